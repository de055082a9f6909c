package models

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/quadspace/quadtree"
	"github.com/google/uuid"
)

// Frame describes a tick of the world loop.
type Frame struct {
	Number uint64
	Delta  time.Duration
}

// World is a bounded 2D area holding entities. Entity positions are indexed
// in a quadtree that the world guards with its own lock, so a world is safe
// for concurrent use.
type World struct {
	UUID string

	entityIDs   SequentialIDGenerator
	entityMutex sync.RWMutex
	entities    map[uint32]*Entity
	index       *quadtree.Quadtree[uint32]

	startFrameOnce  sync.Once
	closeFrameChan  chan struct{}
	frameDuration   time.Duration
	frameTicker     *time.Ticker
	frameCount      atomic.Uint64
	frameHandlerIDs SequentialIDGenerator
	frameHandlers   map[uint32]func(Frame)
	frameMutex      sync.RWMutex

	closeOnce sync.Once
}

// NewWorld creates a world covering bounds whose frames are dispatched every
// frameDuration. The options configure the underlying quadtree.
func NewWorld(bounds quadtree.Rect, frameDuration time.Duration, opts ...quadtree.Option) (*World, error) {
	if frameDuration <= 0 {
		return nil, errors.New("frame duration must be positive").
			WithTag("frame_duration", frameDuration)
	}

	index, err := quadtree.New[uint32](bounds, opts...)
	if err != nil {
		return nil, errors.New("creating world index failed").
			WithType(errors.Type(err)).
			Wrap(err)
	}

	return &World{
		UUID:           uuid.NewString(),
		entities:       make(map[uint32]*Entity),
		index:          index,
		closeFrameChan: make(chan struct{}, 1),
		frameDuration:  frameDuration,
		frameTicker:    time.NewTicker(frameDuration),
		frameHandlers:  make(map[uint32]func(Frame)),
	}, nil
}

func (w *World) Close() {
	w.closeOnce.Do(func() {
		w.frameTicker.Stop()
		w.closeFrameChan <- struct{}{}
	})
}

// Bounds returns the area covered by the world.
func (w *World) Bounds() quadtree.Rect {
	return w.index.Bounds()
}

func (w *World) FrameDuration() time.Duration {
	return w.frameDuration
}

// AddEntity creates an entity of the given kind at p.
func (w *World) AddEntity(kind string, p quadtree.Vector2f) (*Entity, error) {
	w.entityMutex.Lock()
	defer w.entityMutex.Unlock()

	e := &Entity{
		ID:       w.entityIDs.New(),
		Kind:     kind,
		position: p,
	}

	if err := w.index.Insert(e.ID, p); err != nil {
		w.entityIDs.Reuse(e.ID)
		return nil, errors.New("adding entity failed").
			WithType(errors.Type(err)).
			WithTag("kind", kind).
			Wrap(err)
	}

	w.entities[e.ID] = e
	instrumentIncreaseEntityGauge(kind)
	return e, nil
}

func (w *World) RemoveEntity(id uint32) error {
	w.entityMutex.Lock()
	defer w.entityMutex.Unlock()

	e, ok := w.entities[id]
	if !ok {
		return errors.New("entity not found").
			WithType(quadtree.ErrTypeNotFound).
			WithTag("id", id)
	}

	if err := w.index.Remove(id); err != nil {
		return errors.New("removing entity failed").
			WithType(errors.Type(err)).
			Wrap(err)
	}

	delete(w.entities, id)
	w.entityIDs.Reuse(id)
	instrumentDecreaseEntityGauge(e.Kind)
	return nil
}

// MoveEntity moves the entity to p. The entity keeps its previous position
// when an error is returned.
func (w *World) MoveEntity(id uint32, p quadtree.Vector2f) error {
	w.entityMutex.Lock()
	defer w.entityMutex.Unlock()

	e, ok := w.entities[id]
	if !ok {
		return errors.New("entity not found").
			WithType(quadtree.ErrTypeNotFound).
			WithTag("id", id)
	}

	if err := w.index.Update(id, p); err != nil {
		return errors.New("moving entity failed").
			WithType(errors.Type(err)).
			Wrap(err)
	}

	e.SetPosition(p)
	return nil
}

func (w *World) EntityByID(id uint32) (*Entity, bool) {
	w.entityMutex.RLock()
	defer w.entityMutex.RUnlock()

	e, ok := w.entities[id]
	return e, ok
}

func (w *World) Entities() []*Entity {
	w.entityMutex.RLock()
	defer w.entityMutex.RUnlock()

	entities := make([]*Entity, 0, len(w.entities))
	for _, e := range w.entities {
		entities = append(entities, e)
	}
	return entities
}

func (w *World) EntityCount() int {
	w.entityMutex.RLock()
	defer w.entityMutex.RUnlock()

	return len(w.entities)
}

// QueryRect returns the entities located inside r.
func (w *World) QueryRect(r quadtree.Rect) []*Entity {
	w.entityMutex.RLock()
	defer w.entityMutex.RUnlock()

	return w.entitiesByIDs(w.index.Query(r))
}

// QueryCircle returns the entities at most radius away from center.
func (w *World) QueryCircle(center quadtree.Vector2f, radius float64) []*Entity {
	w.entityMutex.RLock()
	defer w.entityMutex.RUnlock()

	return w.entitiesByIDs(w.index.QueryCircle(center, radius))
}

func (w *World) entitiesByIDs(ids []uint32) []*Entity {
	entities := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := w.entities[id]; ok {
			entities = append(entities, e)
		}
	}
	return entities
}

// Nodes returns the nodes of the world index in pre-order.
func (w *World) Nodes() []quadtree.NodeInfo {
	w.entityMutex.RLock()
	defer w.entityMutex.RUnlock()

	var nodes []quadtree.NodeInfo
	w.index.Walk(func(n quadtree.NodeInfo) bool {
		nodes = append(nodes, n)
		return true
	})
	return nodes
}

func (w *World) DebugInfo() quadtree.DebugInfo {
	w.entityMutex.RLock()
	defer w.entityMutex.RUnlock()

	return w.index.GetDebugInfo()
}

// Validate checks the consistency of the world index.
func (w *World) Validate() error {
	w.entityMutex.RLock()
	defer w.entityMutex.RUnlock()

	if err := w.index.Validate(); err != nil {
		return err
	}
	if w.index.Len() != len(w.entities) {
		return errors.New("world index and entities are out of sync").
			WithType(quadtree.ErrTypeInvariantViolation).
			WithTag("indexed", w.index.Len()).
			WithTag("entities", len(w.entities))
	}
	return nil
}

// Frame returns the number of frames dispatched so far.
func (w *World) Frame() uint64 {
	return w.frameCount.Load()
}

// HandleFrame registers h to be called on every frame. The returned function
// unregisters it.
func (w *World) HandleFrame(h func(Frame)) (cancel func()) {
	w.frameMutex.Lock()
	defer w.frameMutex.Unlock()

	id := w.frameHandlerIDs.New()
	w.frameHandlers[id] = h

	return func() {
		w.frameMutex.Lock()
		defer w.frameMutex.Unlock()

		delete(w.frameHandlers, id)
		w.frameHandlerIDs.Reuse(id)
	}
}

// StartDispatchFrames calls the frame handlers on every tick until the world
// is closed. It blocks and must be called once.
func (w *World) StartDispatchFrames() {
	w.startFrameOnce.Do(func() {
		last := time.Now()

		for {
			select {
			case <-w.closeFrameChan:
				return

			case now := <-w.frameTicker.C:
				w.dispatchFrame(Frame{
					Number: w.frameCount.Add(1),
					Delta:  now.Sub(last),
				})
				last = now
			}
		}
	})
}

func (w *World) dispatchFrame(f Frame) {
	start := time.Now()

	w.frameMutex.RLock()
	for _, h := range w.frameHandlers {
		h(f)
	}
	w.frameMutex.RUnlock()

	elapsed := time.Since(start)
	instrumentFrame(elapsed)

	if elapsed > w.frameDuration {
		logs.WithTag("frame", f.Number).
			WithTag("elapsed", elapsed).
			WithTag("frame_duration", w.frameDuration).
			Debug("frame handlers overran the frame duration")
	}
}
