package spawner

import (
	"github.com/aukilabs/quadspace/quadtree"
)

// Ring splits the area of outer that is not covered by inner into four
// disjoint rectangles: the bottom and top bands span the whole width of
// outer, the left and right bands the height of inner.
//
//	 ___________________
//	|        top        |
//	|___________________|
//	|    |         |    |
//	|left|  inner  |rght|
//	|____|_________|____|
//	|      bottom       |
//	|___________________|
//
// inner must be inside outer.
func Ring(inner, outer quadtree.Rect) [4]quadtree.Rect {
	return [4]quadtree.Rect{
		{
			Min: outer.Min,
			Max: quadtree.Vector2f{X: outer.Max.X, Y: inner.Min.Y},
		},
		{
			Min: quadtree.Vector2f{X: inner.Max.X, Y: inner.Min.Y},
			Max: quadtree.Vector2f{X: outer.Max.X, Y: inner.Max.Y},
		},
		{
			Min: quadtree.Vector2f{X: outer.Min.X, Y: inner.Max.Y},
			Max: outer.Max,
		},
		{
			Min: quadtree.Vector2f{X: outer.Min.X, Y: inner.Min.Y},
			Max: quadtree.Vector2f{X: inner.Min.X, Y: inner.Max.Y},
		},
	}
}
