package websocket

import (
	"context"
	"sync"
	"testing"

	"github.com/aukilabs/quadspace/featureflag"
	"github.com/aukilabs/quadspace/models"
	"github.com/aukilabs/quadspace/quadtree"
	"github.com/stretchr/testify/require"
)

type responseRecorder struct {
	mutex sync.Mutex
	msgs  []Msg
}

func (r *responseRecorder) Send(msg Msg) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.msgs = append(r.msgs, msg)
}

func (r *responseRecorder) last(t *testing.T) Msg {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	require.NotEmpty(t, r.msgs)
	return r.msgs[len(r.msgs)-1]
}

func newViewportMsg(t *testing.T, requestID uint32, viewport quadtree.Rect) Msg {
	msg, err := NewMsg(MsgTypeViewport, requestID, ViewportRequest{Viewport: viewport})
	require.NoError(t, err)
	return msg
}

func TestWatchHandlerViewport(t *testing.T) {
	t.Run("frame without viewport is not sent", func(t *testing.T) {
		h := &WatchHandler{World: newTestWorld(t)}
		var rec responseRecorder

		err := h.HandleFrame(context.Background(), &rec, models.Frame{Number: 1})
		require.NoError(t, err)
		require.Empty(t, rec.msgs)

		_, ok := h.Viewport()
		require.False(t, ok)
	})

	t.Run("viewport is stored", func(t *testing.T) {
		h := &WatchHandler{World: newTestWorld(t)}
		var rec responseRecorder

		viewport := quadtree.NewRect(0, 0, 15, 15)
		err := h.HandleViewport(context.Background(), &rec, newViewportMsg(t, 1, viewport))
		require.NoError(t, err)

		v, ok := h.Viewport()
		require.True(t, ok)
		require.Equal(t, viewport, v)

		var frame Frame
		require.NoError(t, rec.last(t).DataTo(&frame))
		require.Equal(t, 1, frame.Total)
	})

	t.Run("invalid viewport keeps the previous one", func(t *testing.T) {
		h := &WatchHandler{World: newTestWorld(t)}
		var rec responseRecorder

		viewport := quadtree.NewRect(0, 0, 15, 15)
		err := h.HandleViewport(context.Background(), &rec, newViewportMsg(t, 1, viewport))
		require.NoError(t, err)

		err = h.HandleViewport(context.Background(), &rec, newViewportMsg(t, 2, quadtree.Rect{
			Min: quadtree.Vector2f{X: 10, Y: 10},
			Max: quadtree.Vector2f{X: 5, Y: 5},
		}))
		require.NoError(t, err)
		require.Equal(t, MsgTypeError, rec.last(t).Type)

		v, _ := h.Viewport()
		require.Equal(t, viewport, v)
	})

	t.Run("viewport without data returns an error", func(t *testing.T) {
		h := &WatchHandler{World: newTestWorld(t)}
		var rec responseRecorder

		msg, err := NewMsg(MsgTypeViewport, 1, nil)
		require.NoError(t, err)

		err = h.HandleViewport(context.Background(), &rec, msg)
		require.Error(t, err)
		require.Empty(t, rec.msgs)
	})
}

func TestWatchHandlerMaxEntities(t *testing.T) {
	h := &WatchHandler{
		World:       newTestWorld(t),
		MaxEntities: 2,
	}
	var rec responseRecorder

	err := h.HandleViewport(context.Background(), &rec, newViewportMsg(t, 1, quadtree.NewRect(0, 0, 100, 100)))
	require.NoError(t, err)

	err = h.HandleFrame(context.Background(), &rec, models.Frame{Number: 9})
	require.NoError(t, err)

	var frame Frame
	require.NoError(t, rec.last(t).DataTo(&frame))
	require.Equal(t, uint64(9), frame.Number)
	require.Equal(t, 3, frame.Total)
	require.Len(t, frame.Entities, 2)
	require.Equal(t, uint32(1), frame.Entities[0].ID)
	require.Equal(t, uint32(2), frame.Entities[1].ID)
}

func TestWatchHandlerSubscribe(t *testing.T) {
	t.Run("subscribe to world frames", func(t *testing.T) {
		h := &WatchHandler{World: newTestWorld(t)}

		cancel := h.Subscribe(func(models.Frame) {})
		require.NotNil(t, cancel)
		cancel()
	})

	t.Run("broadcast disabled", func(t *testing.T) {
		h := &WatchHandler{
			World:        newTestWorld(t),
			FeatureFlags: featureflag.New([]string{string(featureflag.FlagDisableWatchBroadcast)}),
		}

		cancel := h.Subscribe(func(models.Frame) {
			t.Fatal("frame handler should not be called")
		})
		cancel()
	})
}

func TestValidViewport(t *testing.T) {
	tests := []struct {
		name     string
		viewport quadtree.Rect
		valid    bool
	}{
		{name: "valid", viewport: quadtree.NewRect(-10, -10, 20, 20), valid: true},
		{name: "empty width", viewport: quadtree.NewRect(0, 0, 0, 20)},
		{name: "inverted", viewport: quadtree.Rect{Max: quadtree.Vector2f{X: -1, Y: -1}}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.valid, validViewport(test.viewport))
		})
	}
}
