package websocket

import (
	"cmp"
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/quadspace/featureflag"
	"github.com/aukilabs/quadspace/models"
	"github.com/aukilabs/quadspace/quadtree"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

// WatchHandler streams the entities located in a client viewport on every
// world frame.
type WatchHandler struct {
	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	// The watched world.
	World *models.World

	// The maximum number of entities sent in a frame. Zero means no limit.
	MaxEntities int

	FeatureFlags featureflag.FeatureFlag

	conn     *websocket.Conn
	clientID string

	mutex    sync.RWMutex
	viewport *quadtree.Rect
}

func (h *WatchHandler) HandleConnect(conn *websocket.Conn) {
	h.clientID = conn.Request().Header.Get(HeaderClientID)
	if h.clientID == "" {
		h.clientID = uuid.NewString()
	}

	h.conn = conn
}

func (h *WatchHandler) HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error {
	res, err := NewMsg(MsgTypePong, msg.RequestID, nil)
	if err != nil {
		return err
	}

	respond.Send(res)
	return nil
}

// HandleViewport sets the watched area and answers with its current content.
// An invalid viewport is answered with an error message and does not
// disconnect the client.
func (h *WatchHandler) HandleViewport(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req ViewportRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	if !validViewport(req.Viewport) {
		res, err := NewMsg(MsgTypeError, msg.RequestID, ErrorResponse{
			Code:    ErrTypeInvalidViewport,
			Message: "viewport must be a non empty finite rectangle",
		})
		if err != nil {
			return err
		}
		respond.Send(res)
		return nil
	}

	h.mutex.Lock()
	h.viewport = &req.Viewport
	h.mutex.Unlock()

	return h.sendFrame(respond, msg.RequestID, h.World.Frame())
}

func (h *WatchHandler) HandleFrame(ctx context.Context, respond ResponseSender, f models.Frame) error {
	return h.sendFrame(respond, 0, f.Number)
}

func (h *WatchHandler) HandleDisconnect(err error) {
}

// Subscribe registers h to the world frames, unless watch broadcasts are
// disabled.
func (h *WatchHandler) Subscribe(fn func(models.Frame)) (cancel func()) {
	if h.FeatureFlags.IsSet(featureflag.FlagDisableWatchBroadcast) {
		return func() {}
	}
	return h.World.HandleFrame(fn)
}

func (h *WatchHandler) Receiver() Receiver {
	return func() (Msg, int, error) {
		return Receive(h.conn)
	}
}

func (h *WatchHandler) Sender() Sender {
	return func(msg Msg) (int, error) {
		return Send(h.conn, msg)
	}
}

func (h *WatchHandler) Close() {
}

func (h *WatchHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *WatchHandler) GetClientID() string {
	return h.clientID
}

// Viewport returns the area watched by the client.
func (h *WatchHandler) Viewport() (quadtree.Rect, bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if h.viewport == nil {
		return quadtree.Rect{}, false
	}
	return *h.viewport, true
}

func (h *WatchHandler) sendFrame(respond ResponseSender, requestID uint32, number uint64) error {
	viewport, ok := h.Viewport()
	if !ok {
		return nil
	}

	states := models.EntitiesToStates(h.World.QueryRect(viewport))
	slices.SortFunc(states, func(a, b models.EntityState) int {
		return cmp.Compare(a.ID, b.ID)
	})

	frame := Frame{
		Number:    number,
		WorldUUID: h.World.UUID,
		Viewport:  viewport,
		Total:     len(states),
		Entities:  states,
	}
	if h.MaxEntities > 0 && len(frame.Entities) > h.MaxEntities {
		frame.Entities = frame.Entities[:h.MaxEntities]
	}

	msg, err := NewMsg(MsgTypeFrame, requestID, frame)
	if err != nil {
		return errors.New("creating frame message failed").Wrap(err)
	}

	respond.Send(msg)
	return nil
}

func validViewport(r quadtree.Rect) bool {
	for _, v := range []float64{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return !r.Empty()
}
