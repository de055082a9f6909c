package websocket

import (
	"testing"
	"time"

	"github.com/aukilabs/quadspace/featureflag"
	"github.com/aukilabs/quadspace/models"
	"github.com/aukilabs/quadspace/quadtree"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

const testTimeout = time.Second * 2

func newTestWorld(t *testing.T) *models.World {
	w, err := models.NewWorld(quadtree.NewRect(0, 0, 100, 100), time.Millisecond*10)
	require.NoError(t, err)
	t.Cleanup(w.Close)

	for _, p := range []quadtree.Vector2f{
		{X: 10, Y: 10},
		{X: 20, Y: 20},
		{X: 80, Y: 80},
	} {
		_, err := w.AddEntity(models.KindWanderer, p)
		require.NoError(t, err)
	}
	return w
}

func TestHandlePing(t *testing.T) {
	world := newTestWorld(t)

	clientA, clientB, close := NewTestingEnv(t, newTestHandler(world))
	defer close()

	sendTestMsg(t, clientA, MsgTypePing, 1, nil)
	res := receiveTestMsg(t, clientA, MsgTypePong, testTimeout)
	require.Equal(t, uint32(1), res.RequestID)

	sendTestMsg(t, clientB, MsgTypePing, 42, nil)
	res = receiveTestMsg(t, clientB, MsgTypePong, testTimeout)
	require.Equal(t, uint32(42), res.RequestID)
}

func TestHandleViewport(t *testing.T) {
	world := newTestWorld(t)

	clientA, _, close := NewTestingEnv(t, newTestHandler(world))
	defer close()

	viewport := quadtree.NewRect(0, 0, 50, 50)
	sendTestMsg(t, clientA, MsgTypeViewport, 7, ViewportRequest{Viewport: viewport})

	res := receiveTestMsg(t, clientA, MsgTypeFrame, testTimeout)
	require.Equal(t, uint32(7), res.RequestID)

	var frame Frame
	require.NoError(t, res.DataTo(&frame))
	require.Equal(t, world.UUID, frame.WorldUUID)
	require.Equal(t, viewport, frame.Viewport)
	require.Equal(t, 2, frame.Total)
	require.Len(t, frame.Entities, 2)
	require.Equal(t, uint32(1), frame.Entities[0].ID)
	require.Equal(t, uint32(2), frame.Entities[1].ID)
	require.Equal(t, quadtree.Vector2f{X: 20, Y: 20}, frame.Entities[1].Position)
}

func TestHandleViewportInvalid(t *testing.T) {
	world := newTestWorld(t)

	clientA, _, close := NewTestingEnv(t, newTestHandler(world))
	defer close()

	sendTestMsg(t, clientA, MsgTypeViewport, 3, ViewportRequest{
		Viewport: quadtree.NewRect(10, 10, 0, 5),
	})

	res := receiveTestMsg(t, clientA, MsgTypeError, testTimeout)
	require.Equal(t, uint32(3), res.RequestID)

	var errRes ErrorResponse
	require.NoError(t, res.DataTo(&errRes))
	require.Equal(t, ErrTypeInvalidViewport, errRes.Code)

	// The client is still connected.
	sendTestMsg(t, clientA, MsgTypePing, 4, nil)
	res = receiveTestMsg(t, clientA, MsgTypePong, testTimeout)
	require.Equal(t, uint32(4), res.RequestID)
}

func TestHandleFrameBroadcast(t *testing.T) {
	world := newTestWorld(t)
	go world.StartDispatchFrames()

	clientA, _, close := NewTestingEnv(t, newTestHandler(world))
	defer close()

	sendTestMsg(t, clientA, MsgTypeViewport, 1, ViewportRequest{
		Viewport: quadtree.NewRect(50, 50, 50, 50),
	})

	res := receiveTestMsg(t, clientA, MsgTypeFrame, testTimeout)
	require.Equal(t, uint32(1), res.RequestID)

	res = receiveTestMsg(t, clientA, MsgTypeFrame, testTimeout)
	require.Zero(t, res.RequestID)

	var frame Frame
	require.NoError(t, res.DataTo(&frame))
	require.NotZero(t, frame.Number)
	require.Equal(t, 1, frame.Total)
	require.Equal(t, uint32(3), frame.Entities[0].ID)
}

func TestHandleFrameBroadcastDisabled(t *testing.T) {
	world := newTestWorld(t)
	go world.StartDispatchFrames()

	clientA, _, close := NewTestingEnv(t, newTestHandler(world, string(featureflag.FlagDisableWatchBroadcast)))
	defer close()

	sendTestMsg(t, clientA, MsgTypeViewport, 1, ViewportRequest{
		Viewport: quadtree.NewRect(0, 0, 100, 100),
	})

	res := receiveTestMsg(t, clientA, MsgTypeFrame, testTimeout)
	require.Equal(t, uint32(1), res.RequestID)

	clientA.SetReadDeadline(time.Now().Add(time.Millisecond * 100))
	_, _, err := Receive(clientA)
	require.Error(t, err)
}

func TestHandleUnsupportedMsg(t *testing.T) {
	world := newTestWorld(t)

	clientA, _, close := NewTestingEnv(t, newTestHandler(world))
	defer close()

	sendTestMsg(t, clientA, MsgTypeFrame, 1, nil)

	clientA.SetReadDeadline(time.Now().Add(testTimeout))
	_, _, err := Receive(clientA)
	require.Error(t, err)
}

func TestHandleIdleTimeout(t *testing.T) {
	world := newTestWorld(t)

	clientA, _, close := NewTestingEnv(t, func() Handler {
		return &WatchHandler{
			ClientIdleTimeout: time.Millisecond * 50,
			World:             world,
		}
	})
	defer close()

	clientA.SetReadDeadline(time.Now().Add(testTimeout))
	var b []byte
	err := websocket.Message.Receive(clientA, &b)
	require.Error(t, err)
}
