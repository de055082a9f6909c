package quadtree

import (
	"math"
)

func Clamp(v float64, min float64, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Vector2f is a position or a displacement in the indexed plane.
type Vector2f struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vector2f) Equal(o Vector2f) bool {
	return v.X == o.X && v.Y == o.Y
}

func (v Vector2f) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

func Add(a Vector2f, b Vector2f) Vector2f {
	return Vector2f{a.X + b.X, a.Y + b.Y}
}

func Sub(a Vector2f, b Vector2f) Vector2f {
	return Vector2f{a.X - b.X, a.Y - b.Y}
}

func Mul(a Vector2f, s float64) Vector2f {
	return Vector2f{a.X * s, a.Y * s}
}

func Distance(a Vector2f, b Vector2f) float64 {
	return Sub(a, b).Length()
}

// Rect is an axis aligned rectangle. Min is inclusive and Max is exclusive on
// both axes: a point lying on the Max edge belongs to the neighbouring
// rectangle.
type Rect struct {
	Min Vector2f `json:"min"`
	Max Vector2f `json:"max"`
}

// NewRect returns the rectangle with its min corner at (x, y) and the given
// size.
func NewRect(x, y, w, h float64) Rect {
	return Rect{
		Min: Vector2f{x, y},
		Max: Vector2f{x + w, y + h},
	}
}

func (r Rect) Width() float64 {
	return r.Max.X - r.Min.X
}

func (r Rect) Height() float64 {
	return r.Max.Y - r.Min.Y
}

// Center returns the midpoint of r. It stays finite when the width of r
// overflows.
func (r Rect) Center() Vector2f {
	return Vector2f{
		X: r.Min.X/2 + r.Max.X/2,
		Y: r.Min.Y/2 + r.Max.Y/2,
	}
}

func (r Rect) Empty() bool {
	return !(r.Min.X < r.Max.X) || !(r.Min.Y < r.Max.Y)
}

func (r Rect) Contains(p Vector2f) bool {
	return p.X >= r.Min.X && p.X < r.Max.X &&
		p.Y >= r.Min.Y && p.Y < r.Max.Y
}

func (r Rect) Intersects(o Rect) bool {
	return r.Min.X < o.Max.X && o.Min.X < r.Max.X &&
		r.Min.Y < o.Max.Y && o.Min.Y < r.Max.Y
}

// Expand returns the rectangle grown by margin on every side.
func (r Rect) Expand(margin float64) Rect {
	return Rect{
		Min: Vector2f{r.Min.X - margin, r.Min.Y - margin},
		Max: Vector2f{r.Max.X + margin, r.Max.Y + margin},
	}
}

// ClampInside returns the point of r closest to p. Because Max is exclusive,
// coordinates on or past Max are pulled to the largest float below it.
func (r Rect) ClampInside(p Vector2f) Vector2f {
	if r.Contains(p) {
		return p
	}
	return Vector2f{
		X: Clamp(p.X, r.Min.X, math.Nextafter(r.Max.X, r.Min.X)),
		Y: Clamp(p.Y, r.Min.Y, math.Nextafter(r.Max.Y, r.Min.Y)),
	}
}

// IntersectsCircle reports whether the disc centered on c overlaps r.
func (r Rect) IntersectsCircle(c Vector2f, radius float64) bool {
	closest := Vector2f{
		X: Clamp(c.X, r.Min.X, r.Max.X),
		Y: Clamp(c.Y, r.Min.Y, r.Max.Y),
	}
	return Distance(c, closest) <= radius
}

// Quadrants in child order. A point on a midline belongs to the higher
// quadrant.
const (
	SouthWest = iota
	SouthEast
	NorthWest
	NorthEast
)

// quadrant returns the child index of p relative to the split point mid.
func quadrant(mid Vector2f, p Vector2f) int {
	q := SouthWest
	if p.X >= mid.X {
		q |= SouthEast
	}
	if p.Y >= mid.Y {
		q |= NorthWest
	}
	return q
}

// Quarter returns the four quadrants of r in child order. Every quadrant
// shares the same midpoint as an edge so the quarters tile r exactly.
func (r Rect) Quarter() [4]Rect {
	mid := r.Center()
	return [4]Rect{
		SouthWest: {Min: r.Min, Max: mid},
		SouthEast: {Min: Vector2f{mid.X, r.Min.Y}, Max: Vector2f{r.Max.X, mid.Y}},
		NorthWest: {Min: Vector2f{r.Min.X, mid.Y}, Max: Vector2f{mid.X, r.Max.Y}},
		NorthEast: {Min: mid, Max: r.Max},
	}
}
