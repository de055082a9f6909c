package websocket

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/stretchr/testify/require"
)

func TestHandlerWithLogsIncCounter(t *testing.T) {
	h := HandlerWithLogs(&WatchHandler{}, time.Second).(*handlerWithLogs)
	defer h.Close()

	h.incCounter("viewport")
	require.Equal(t, 1, h.counter["viewport"])
}

func TestHandlerWithLogsLogSummary(t *testing.T) {
	testClientID := "test-client"
	h := HandlerWithLogs(&WatchHandler{clientID: testClientID}, time.Second).(*handlerWithLogs)
	defer h.Close()

	h.incCounter("ping")
	h.incCounter("ping")
	h.incCounter("viewport")

	var b strings.Builder
	logs.SetInlineEncoder()
	logs.SetLogger(func(e logs.Entry) {
		fmt.Fprint(&b, e)
	})

	h.logSummary()
	require.Empty(t, h.counter)

	logString := b.String()
	clientIDTag := fmt.Sprintf(`"%s":"%s"`, logs.ClientIDTag, testClientID)
	require.Contains(t, logString, `"ping":2`)
	require.Contains(t, logString, `"viewport":1`)
	require.Contains(t, logString, clientIDTag)
	t.Log(b.String())
}

func TestHandlerWithLogsLogSummaryEmpty(t *testing.T) {
	h := HandlerWithLogs(&WatchHandler{}, time.Hour).(*handlerWithLogs)
	defer h.Close()

	var b strings.Builder
	logs.SetInlineEncoder()
	logs.SetLogger(func(e logs.Entry) {
		fmt.Fprint(&b, e)
	})

	h.logSummary()
	require.Empty(t, b.String())
}

func TestHandlerWithLogsStartSummaryWorker(t *testing.T) {
	var wg sync.WaitGroup
	var once sync.Once

	var mutex sync.Mutex
	var b strings.Builder
	logs.SetInlineEncoder()
	logs.SetLogger(func(e logs.Entry) {
		mutex.Lock()
		defer mutex.Unlock()

		fmt.Fprint(&b, e)
		once.Do(wg.Done)
	})

	wg.Add(1)
	h := HandlerWithLogs(&WatchHandler{}, time.Millisecond).(*handlerWithLogs)
	defer h.Close()

	// No summary is logged until a counter is incremented.
	h.incCounter("ping")

	wg.Wait()

	mutex.Lock()
	out := b.String()
	mutex.Unlock()

	require.Contains(t, out, "inbound message summary")
	t.Log(out)
}
