package spawner

import (
	"slices"
	"sync"

	"github.com/aukilabs/quadspace/quadtree"
)

// State is the observable state of the spawner module.
type State struct {
	mutex  sync.RWMutex
	camera quadtree.Rect
	ring   [4]quadtree.Rect
	active []uint32
}

func (s *State) set(camera quadtree.Rect, ring [4]quadtree.Rect, active []uint32) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.camera = camera
	s.ring = ring
	s.active = append(s.active[:0], active...)
}

// Camera returns the area that is considered visible.
func (s *State) Camera() quadtree.Rect {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.camera
}

// Ring returns the four rectangles of the activation ring selected during the
// last update.
func (s *State) Ring() [4]quadtree.Rect {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.ring
}

// Active returns the sorted ids of the spawners selected during the last
// update.
func (s *State) Active() []uint32 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	active := slices.Clone(s.active)
	slices.Sort(active)
	return active
}
