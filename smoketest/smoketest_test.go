package smoketest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aukilabs/quadspace/models"
	"github.com/aukilabs/quadspace/quadtree"
	qwebsocket "github.com/aukilabs/quadspace/websocket"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newTestServer(t *testing.T) (string, *models.World) {
	world, err := models.NewWorld(quadtree.NewRect(0, 0, 100, 100), time.Millisecond*10)
	require.NoError(t, err)
	t.Cleanup(world.Close)

	_, err = world.AddEntity(models.KindWanderer, quadtree.Vector2f{X: 50, Y: 50})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server := httptest.NewServer(websocket.Server{
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			h := &qwebsocket.WatchHandler{
				ClientIdleTimeout: time.Minute,
				World:             world,
			}
			defer h.Close()

			qwebsocket.Handle(ctx, conn, h)
		},
	})
	t.Cleanup(server.Close)

	return strings.Replace(server.URL, "http", "ws", 1), world
}

func TestRun(t *testing.T) {
	t.Run("smoke test success", func(t *testing.T) {
		endpoint, world := newTestServer(t)

		res, err := Run(context.Background(), Options{
			Endpoint:  endpoint,
			UserAgent: "smoketest",
			Viewport:  world.Bounds(),
			Timeout:   time.Second * 2,
		})
		require.NoError(t, err)
		require.True(t, res.Success)
		require.Equal(t, 1, res.Entities)
		require.Empty(t, res.Error)
	})

	t.Run("smoke test with invalid viewport", func(t *testing.T) {
		endpoint, _ := newTestServer(t)

		res, err := Run(context.Background(), Options{
			Endpoint: endpoint,
			Timeout:  time.Second * 2,
		})
		require.Error(t, err)
		require.False(t, res.Success)
		require.NotEmpty(t, res.Error)
	})

	t.Run("smoke test with unreachable endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		endpoint := strings.Replace(server.URL, "http", "ws", 1)
		server.Close()

		res, err := Run(context.Background(), Options{
			Endpoint: endpoint,
			Viewport: quadtree.NewRect(0, 0, 1, 1),
			Timeout:  time.Second,
		})
		require.Error(t, err)
		require.False(t, res.Success)
	})
}

func TestHandleSmokeTest(t *testing.T) {
	endpoint, world := newTestServer(t)

	handler := HandleSmokeTest(Options{
		Endpoint: "ws://localhost:1/watch",
		Viewport: world.Bounds(),
		Timeout:  time.Second * 2,
	})

	t.Run("endpoint override", func(t *testing.T) {
		body, err := json.Marshal(Request{Endpoint: endpoint})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader(body))
		handler(w, r)
		require.Equal(t, http.StatusOK, w.Code)

		var res Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.True(t, res.Success)
		require.Equal(t, endpoint, res.Endpoint)
	})

	t.Run("configured endpoint unreachable", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/smoke-test", nil)
		handler(w, r)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var res Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.False(t, res.Success)
	})

	t.Run("bad body", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/smoke-test", strings.NewReader("{"))
		handler(w, r)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}
