package models

import (
	"testing"

	"github.com/aukilabs/quadspace/quadtree"
	"github.com/stretchr/testify/require"
)

func TestEntityPosition(t *testing.T) {
	var e Entity

	p := quadtree.Vector2f{X: 1.5, Y: -2}
	e.SetPosition(p)
	require.Equal(t, p, e.Position())
}

func TestEntityState(t *testing.T) {
	e := Entity{
		ID:       1,
		Kind:     KindWanderer,
		position: quadtree.Vector2f{X: 3, Y: 4},
	}

	s := e.State()
	require.Equal(t, e.ID, s.ID)
	require.Equal(t, e.Kind, s.Kind)
	require.Equal(t, e.position, s.Position)
}

func TestEntitiesToStates(t *testing.T) {
	entities := []*Entity{
		{ID: 1, Kind: KindWanderer},
		{ID: 2, Kind: KindMob, position: quadtree.Vector2f{X: 7, Y: 8}},
	}

	states := EntitiesToStates(entities)
	require.Len(t, states, 2)
	require.Equal(t, uint32(1), states[0].ID)
	require.Equal(t, KindMob, states[1].Kind)
	require.Equal(t, quadtree.Vector2f{X: 7, Y: 8}, states[1].Position)
}
