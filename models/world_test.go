package models

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/quadspace/quadtree"
	"github.com/stretchr/testify/require"
)

func newTestWorld(t *testing.T) *World {
	w, err := NewWorld(quadtree.NewRect(0, 0, 100, 100), time.Millisecond*5,
		quadtree.WithName(t.Name()),
		quadtree.WithMaxElements(2),
		quadtree.WithInvariantChecks(true),
	)
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w
}

func TestNewWorld(t *testing.T) {
	t.Run("creates a world", func(t *testing.T) {
		w := newTestWorld(t)
		require.NotEmpty(t, w.UUID)
		require.Equal(t, quadtree.NewRect(0, 0, 100, 100), w.Bounds())
		require.Equal(t, time.Millisecond*5, w.FrameDuration())
	})

	t.Run("invalid frame duration", func(t *testing.T) {
		w, err := NewWorld(quadtree.NewRect(0, 0, 100, 100), 0)
		require.Error(t, err)
		require.Nil(t, w)
	})

	t.Run("invalid bounds", func(t *testing.T) {
		w, err := NewWorld(quadtree.NewRect(0, 0, 0, 100), time.Second)
		require.Error(t, err)
		require.Nil(t, w)
		require.True(t, errors.IsType(err, quadtree.ErrTypeInvalidConfig))
	})
}

func TestWorldAddEntity(t *testing.T) {
	t.Run("entity is added", func(t *testing.T) {
		w := newTestWorld(t)

		e, err := w.AddEntity(KindWanderer, quadtree.Vector2f{X: 10, Y: 20})
		require.NoError(t, err)
		require.NotZero(t, e.ID)
		require.Equal(t, quadtree.Vector2f{X: 10, Y: 20}, e.Position())
		require.Len(t, w.entities, 1)
		require.Equal(t, 1, w.EntityCount())
	})

	t.Run("out of bounds entity is not added", func(t *testing.T) {
		w := newTestWorld(t)

		e, err := w.AddEntity(KindWanderer, quadtree.Vector2f{X: 100, Y: 20})
		require.Error(t, err)
		require.Nil(t, e)
		require.True(t, quadtree.IsOutOfBounds(err))
		require.Empty(t, w.entities)

		e, err = w.AddEntity(KindWanderer, quadtree.Vector2f{X: 1, Y: 1})
		require.NoError(t, err)
		require.Equal(t, uint32(1), e.ID)
	})
}

func TestWorldRemoveEntity(t *testing.T) {
	t.Run("entity is removed", func(t *testing.T) {
		w := newTestWorld(t)

		e, err := w.AddEntity(KindMob, quadtree.Vector2f{X: 10, Y: 20})
		require.NoError(t, err)

		err = w.RemoveEntity(e.ID)
		require.NoError(t, err)
		require.Empty(t, w.entities)
		require.Empty(t, w.QueryRect(w.Bounds()))
		require.NoError(t, w.Validate())
	})

	t.Run("unknown entity", func(t *testing.T) {
		w := newTestWorld(t)

		err := w.RemoveEntity(42)
		require.Error(t, err)
		require.True(t, quadtree.IsNotFound(err))
	})
}

func TestWorldMoveEntity(t *testing.T) {
	t.Run("entity is moved", func(t *testing.T) {
		w := newTestWorld(t)

		e, err := w.AddEntity(KindWanderer, quadtree.Vector2f{X: 10, Y: 10})
		require.NoError(t, err)

		err = w.MoveEntity(e.ID, quadtree.Vector2f{X: 90, Y: 90})
		require.NoError(t, err)
		require.Equal(t, quadtree.Vector2f{X: 90, Y: 90}, e.Position())
		require.Equal(t, []*Entity{e}, w.QueryRect(quadtree.NewRect(80, 80, 20, 20)))
	})

	t.Run("out of bounds move keeps the position", func(t *testing.T) {
		w := newTestWorld(t)

		e, err := w.AddEntity(KindWanderer, quadtree.Vector2f{X: 10, Y: 10})
		require.NoError(t, err)

		err = w.MoveEntity(e.ID, quadtree.Vector2f{X: -1, Y: 10})
		require.Error(t, err)
		require.True(t, quadtree.IsOutOfBounds(err))
		require.Equal(t, quadtree.Vector2f{X: 10, Y: 10}, e.Position())
		require.Equal(t, []*Entity{e}, w.QueryRect(quadtree.NewRect(0, 0, 20, 20)))
	})

	t.Run("unknown entity", func(t *testing.T) {
		w := newTestWorld(t)

		err := w.MoveEntity(42, quadtree.Vector2f{X: 1, Y: 1})
		require.True(t, quadtree.IsNotFound(err))
	})
}

func TestWorldEntityByID(t *testing.T) {
	t.Run("entity is found", func(t *testing.T) {
		w := newTestWorld(t)

		e, err := w.AddEntity(KindSpawner, quadtree.Vector2f{X: 1, Y: 1})
		require.NoError(t, err)

		res, ok := w.EntityByID(e.ID)
		require.True(t, ok)
		require.Equal(t, e, res)
	})

	t.Run("entity is not found", func(t *testing.T) {
		w := newTestWorld(t)

		res, ok := w.EntityByID(42)
		require.False(t, ok)
		require.Nil(t, res)
	})
}

func TestWorldQueries(t *testing.T) {
	w := newTestWorld(t)

	for _, p := range []quadtree.Vector2f{
		{X: 10, Y: 10},
		{X: 12, Y: 12},
		{X: 50, Y: 50},
		{X: 90, Y: 10},
		{X: 90, Y: 90},
	} {
		_, err := w.AddEntity(KindWanderer, p)
		require.NoError(t, err)
	}

	require.Len(t, w.Entities(), 5)

	entities := w.QueryRect(quadtree.NewRect(0, 0, 20, 20))
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].ID < entities[j].ID
	})
	require.Len(t, entities, 2)
	require.Equal(t, uint32(1), entities[0].ID)
	require.Equal(t, uint32(2), entities[1].ID)

	entities = w.QueryCircle(quadtree.Vector2f{X: 50, Y: 50}, 1)
	require.Len(t, entities, 1)
	require.Equal(t, uint32(3), entities[0].ID)

	nodes := w.Nodes()
	require.NotEmpty(t, nodes)
	require.Equal(t, w.Bounds(), nodes[0].Bounds)

	info := w.DebugInfo()
	require.Equal(t, 5, info.ItemCount)
	require.Equal(t, len(nodes), info.NodeCount)
	require.NoError(t, w.Validate())
}

func TestWorldHandleFrame(t *testing.T) {
	w := newTestWorld(t)

	cancel := w.HandleFrame(func(Frame) {})
	require.Len(t, w.frameHandlers, 1)
	defer cancel()

	cancel()
	require.Empty(t, w.frameHandlers)
}

func TestWorldStartDispatchFrames(t *testing.T) {
	w := newTestWorld(t)

	var wg sync.WaitGroup
	wg.Add(2)

	go w.StartDispatchFrames()

	var frames []Frame
	var mutex sync.Mutex
	cancel := w.HandleFrame(func(f Frame) {
		mutex.Lock()
		defer mutex.Unlock()

		if len(frames) < 2 {
			frames = append(frames, f)
			wg.Done()
		}
	})
	defer cancel()

	wg.Wait()
	w.Close()

	mutex.Lock()
	defer mutex.Unlock()
	require.Less(t, frames[0].Number, frames[1].Number)
	require.Positive(t, frames[1].Delta)
	require.GreaterOrEqual(t, w.Frame(), frames[1].Number)
}
