package models

import (
	"sync"

	"github.com/aukilabs/quadspace/quadtree"
)

// Entity kinds spawned by the world modules.
const (
	KindWanderer = "wanderer"
	KindSpawner  = "spawner"
	KindMob      = "mob"
)

type Entity struct {
	ID   uint32
	Kind string

	mutex    sync.RWMutex
	position quadtree.Vector2f
}

func (e *Entity) SetPosition(v quadtree.Vector2f) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.position = v
}

func (e *Entity) Position() quadtree.Vector2f {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return e.position
}

// EntityState is the serializable view of an entity.
type EntityState struct {
	ID       uint32            `json:"id"`
	Kind     string            `json:"kind"`
	Position quadtree.Vector2f `json:"position"`
}

func (e *Entity) State() EntityState {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return EntityState{
		ID:       e.ID,
		Kind:     e.Kind,
		Position: e.position,
	}
}

func EntitiesToStates(entities []*Entity) []EntityState {
	states := make([]EntityState, len(entities))
	for i, e := range entities {
		states[i] = e.State()
	}
	return states
}
