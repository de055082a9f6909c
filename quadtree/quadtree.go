/*
Package quadtree implements a dynamic point quadtree for moving items.

Leaves split into four quadrants when they exceed their capacity and merge back
when their siblings become sparse. A reverse index from item id to owning leaf
makes Remove and Update start from the leaf instead of the root.

A Quadtree is not safe for concurrent use.
*/
package quadtree

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// Quadtree indexes items identified by K at a 2D position.
type Quadtree[K comparable] struct {
	root      *node[K]
	locations map[K]*node[K]

	name            string
	maxElements     int
	maxDepth        int
	invariantChecks bool

	subdivisions uint64
	joins        uint64
	metrics      indexMetrics
}

// New returns an empty quadtree covering bounds. The bounds are fixed for the
// lifetime of the tree.
func New[K comparable](bounds Rect, opts ...Option) (*Quadtree[K], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if bounds.Empty() || !isFinite(bounds) ||
		math.IsInf(bounds.Width(), 0) || math.IsInf(bounds.Height(), 0) {
		return nil, errors.New("world bounds must have a positive finite size").
			WithType(ErrTypeInvalidConfig).
			WithTag("bounds", bounds)
	}
	if o.maxElements < 1 {
		return nil, errors.New("max elements must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("max_elements", o.maxElements)
	}
	if o.maxDepth < 0 {
		return nil, errors.New("max depth must not be negative").
			WithType(ErrTypeInvalidConfig).
			WithTag("max_depth", o.maxDepth)
	}

	t := &Quadtree[K]{
		name:            o.name,
		maxElements:     o.maxElements,
		maxDepth:        o.maxDepth,
		invariantChecks: o.invariantChecks,
		metrics:         newIndexMetrics(o.name),
	}
	t.reset(bounds)
	return t, nil
}

func (t *Quadtree[K]) reset(bounds Rect) {
	t.root = &node[K]{
		tree:   t,
		bounds: bounds,
	}
	t.locations = make(map[K]*node[K])
	t.metrics.items.Set(0)
}

// relocate stores e in the leaf n and points the location of e at n. Every
// placement of an item goes through here so the tree and the locations never
// disagree.
func (t *Quadtree[K]) relocate(n *node[K], e entry[K]) {
	n.items = append(n.items, e)
	t.locations[e.id] = n
}

// Insert indexes id at p.
func (t *Quadtree[K]) Insert(id K, p Vector2f) (err error) {
	defer func() { t.done(opInsert, err) }()

	if !t.root.contains(p) {
		return errOutOfBounds(id, p, t.root.bounds)
	}
	if _, ok := t.locations[id]; ok {
		return errAlreadyExists(id)
	}

	t.root.insert(entry[K]{id: id, pos: p})
	return nil
}

// Remove removes id from the index.
func (t *Quadtree[K]) Remove(id K) (err error) {
	defer func() { t.done(opRemove, err) }()

	n, ok := t.locations[id]
	if !ok {
		return errNotFound(id)
	}

	n.remove(id)
	return nil
}

// Update moves id to p. When p is still inside the leaf holding id, only the
// stored position changes. Otherwise the item is removed from its leaf and
// inserted again from the lowest ancestor containing p.
//
// A position outside the root bounds is rejected before anything changes:
// the item stays indexed at its previous position.
func (t *Quadtree[K]) Update(id K, p Vector2f) (err error) {
	op := opUpdate
	defer func() { t.done(op, err) }()

	n, ok := t.locations[id]
	if !ok {
		return errNotFound(id)
	}
	if !t.root.contains(p) {
		return errOutOfBounds(id, p, t.root.bounds)
	}

	if n.contains(p) {
		op = opUpdateInPlace
		n.items[n.indexOf(id)].pos = p
		return nil
	}

	from := n.remove(id)
	for !from.contains(p) {
		from = from.parent
	}
	from.insert(entry[K]{id: id, pos: p})
	return nil
}

// Query returns the items whose position is inside r.
func (t *Quadtree[K]) Query(r Rect) []K {
	return t.root.query(r, nil)
}

// QueryInto appends the items whose position is inside r to dst and returns
// the extended slice.
func (t *Quadtree[K]) QueryInto(r Rect, dst []K) []K {
	return t.root.query(r, dst)
}

// QueryCircle returns the items whose distance to center is at most radius.
func (t *Quadtree[K]) QueryCircle(center Vector2f, radius float64) []K {
	if radius < 0 {
		return nil
	}
	return t.root.queryCircle(center, radius, nil)
}

// QueryPoint returns the items indexed exactly at p.
func (t *Quadtree[K]) QueryPoint(p Vector2f) []K {
	if !t.root.contains(p) {
		return nil
	}

	var results []K
	for _, e := range t.root.leafAt(p).items {
		if e.pos.Equal(p) {
			results = append(results, e.id)
		}
	}
	return results
}

// Has reports whether id is indexed.
func (t *Quadtree[K]) Has(id K) bool {
	_, ok := t.locations[id]
	return ok
}

// Position returns the last position given for id.
func (t *Quadtree[K]) Position(id K) (Vector2f, bool) {
	n, ok := t.locations[id]
	if !ok {
		return Vector2f{}, false
	}
	return n.items[n.indexOf(id)].pos, true
}

// Len returns the number of indexed items.
func (t *Quadtree[K]) Len() int {
	return len(t.locations)
}

// Clear removes every item and collapses the tree to a single leaf.
func (t *Quadtree[K]) Clear() {
	t.reset(t.root.bounds)
}

// Bounds returns the root bounds.
func (t *Quadtree[K]) Bounds() Rect {
	return t.root.bounds
}

// Walk calls fn for every node in pre-order, parents before children, until
// fn returns false.
func (t *Quadtree[K]) Walk(fn func(NodeInfo) bool) {
	t.root.walk(fn)
}

func (t *Quadtree[K]) GetDebugInfo() DebugInfo {
	info := DebugInfo{
		Bounds:       t.root.bounds,
		MaxElements:  t.maxElements,
		MaxDepth:     t.maxDepth,
		ItemCount:    len(t.locations),
		Subdivisions: t.subdivisions,
		Joins:        t.joins,
	}

	t.Walk(func(n NodeInfo) bool {
		info.NodeCount++
		if n.Leaf {
			info.LeafCount++
		}
		if n.Depth > info.DeepestLevel {
			info.DeepestLevel = n.Depth
		}
		return true
	})
	return info
}

func (t *Quadtree[K]) done(op string, err error) {
	t.metrics.countOperation(op, err)
	if err != nil {
		return
	}

	t.metrics.items.Set(float64(len(t.locations)))

	if t.invariantChecks {
		if verr := t.Validate(); verr != nil {
			logs.WithTag("index", t.name).
				WithTag("op", op).
				Error(verr)
			panic(verr)
		}
	}
}

func isFinite(r Rect) bool {
	for _, v := range []float64{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
