package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/quadspace/featureflag"
	"github.com/aukilabs/quadspace/models"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// NewTestingEnv creates a testing environment to unit test handlers. It
// returns two clients connected to a server that serves each connection
// with a handler created by newHandler.
func NewTestingEnv(t *testing.T, newHandler func() Handler) (*websocket.Conn, *websocket.Conn, func()) {
	var mutex sync.Mutex
	logger := t.Log

	logs.Encoder = func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}

	logs.SetLogger(func(e logs.Entry) {
		mutex.Lock()
		defer mutex.Unlock()

		if logger != nil {
			logger(e)
		}
	})

	errors.Encoder = json.Marshal

	clientA, clientB, close := newTestingEnv(t, newHandler)
	return clientA, clientB, func() {
		mutex.Lock()
		defer mutex.Unlock()
		logger = nil
		close()
	}
}

func newTestingEnv(t *testing.T, newHandler func() Handler) (*websocket.Conn, *websocket.Conn, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	server := httptest.NewServer(websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			handler := newHandler()
			defer handler.Close()

			Handle(ctx, conn, handler)
		},
	})

	newConn := func() *websocket.Conn {
		config, err := websocket.NewConfig(
			strings.ReplaceAll(server.URL, "http://", "ws://"),
			"http://localhost",
		)
		if err != nil {
			t.Fatalf("error initializing web socket: %s", err)
		}

		config.Header.Set("User-Agent", "ted")
		config.Header.Set("X-Forwarded-For", "192.0.0.0")
		config.Header.Set(HeaderClientID, uuid.NewString())

		conn, err := websocket.DialConfig(config)
		if err != nil {
			t.Fatalf("error dialing web socket: %s", err)
		}

		return conn
	}

	clientA := newConn()
	clientB := newConn()

	return clientA, clientB, func() {
		clientA.Close()
		clientB.Close()
		cancel()
		server.Close()
	}
}

func newTestHandler(world *models.World, flags ...string) func() Handler {
	return func() Handler {
		var h Handler = &WatchHandler{
			ClientIdleTimeout: time.Minute,
			World:             world,
			FeatureFlags:      featureflag.New(flags),
		}

		h = HandlerWithLogs(h, time.Millisecond*100)
		h = HandlerWithMetrics(h, "http://quadspace-test.local")
		return h
	}
}

// sendTestMsg sends a message of the given type to the server.
func sendTestMsg(t *testing.T, conn *websocket.Conn, msgType MsgType, requestID uint32, v any) {
	msg, err := NewMsg(msgType, requestID, v)
	if err != nil {
		t.Fatalf("error creating message: %s", err)
	}

	if _, err := Send(conn, msg); err != nil {
		t.Fatalf("error sending message: %s", err)
	}
}

// receiveTestMsg returns the first message of the given type received
// before the timeout. Messages of other types are skipped.
func receiveTestMsg(t *testing.T, conn *websocket.Conn, msgType MsgType, timeout time.Duration) Msg {
	conn.SetReadDeadline(time.Now().Add(timeout))
	defer conn.SetReadDeadline(time.Time{})

	for {
		msg, _, err := Receive(conn)
		if err != nil {
			t.Fatalf("error receiving %s message: %s", msgType, err)
		}
		if msg.Type == msgType {
			return msg
		}
	}
}
