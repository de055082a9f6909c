package quadtree

import (
	"slices"
)

type entry[K comparable] struct {
	id  K
	pos Vector2f
}

// node is a region of the tree. It is a leaf holding entries when
// children[0] is nil, and an internal node with exactly four children and no
// entries otherwise.
type node[K comparable] struct {
	tree     *Quadtree[K]
	bounds   Rect
	depth    int
	parent   *node[K]
	children [4]*node[K]
	items    []entry[K]
}

func (n *node[K]) isLeaf() bool {
	return n.children[0] == nil
}

func (n *node[K]) contains(p Vector2f) bool {
	return n.bounds.Contains(p)
}

func (n *node[K]) child(p Vector2f) *node[K] {
	return n.children[quadrant(n.bounds.Center(), p)]
}

// insert stores e in the leaf of n's subtree that contains e.pos, splitting
// full leaves on the way down, and returns that leaf. The caller guarantees
// that n contains e.pos.
func (n *node[K]) insert(e entry[K]) *node[K] {
	for {
		if n.isLeaf() {
			if len(n.items) < n.tree.maxElements || n.depth >= n.tree.maxDepth {
				n.tree.relocate(n, e)
				return n
			}
			n.subdivide()
		}
		n = n.child(e.pos)
	}
}

func (n *node[K]) subdivide() {
	quarters := n.bounds.Quarter()
	for i := range n.children {
		n.children[i] = &node[K]{
			tree:   n.tree,
			bounds: quarters[i],
			depth:  n.depth + 1,
			parent: n,
		}
	}

	items := n.items
	n.items = nil
	for _, e := range items {
		n.child(e.pos).insert(e)
	}

	n.tree.subdivisions++
	n.tree.metrics.subdivisions.Inc()
}

// remove drops id from the leaf n and merges the ancestors that became
// sparse enough. It returns the lowest node of the path from n to the root
// that is still attached to the tree.
func (n *node[K]) remove(id K) *node[K] {
	i := n.indexOf(id)
	if i < 0 {
		return n
	}
	n.items = slices.Delete(n.items, i, i+1)
	delete(n.tree.locations, id)

	if top := n.parent.join(); top != nil {
		return top
	}
	return n
}

// join collapses the children of n into n when all of them are leaves and
// hold no more than MaxElements items together, then continues with the
// parent. Called on a leaf it delegates to the parent. It returns the highest
// node that collapsed, or nil when nothing changed.
func (n *node[K]) join() *node[K] {
	var top *node[K]

	for ; n != nil; n = n.parent {
		if n.isLeaf() {
			continue
		}
		if !n.joinable() {
			break
		}
		n.collapse()
		top = n
	}
	return top
}

func (n *node[K]) joinable() bool {
	count := 0
	for _, c := range n.children {
		if !c.isLeaf() {
			return false
		}
		count += len(c.items)
	}
	return count <= n.tree.maxElements
}

func (n *node[K]) collapse() {
	children := n.children
	n.children = [4]*node[K]{}

	for _, c := range children {
		for _, e := range c.items {
			n.tree.relocate(n, e)
		}
		c.items = nil
		c.parent = nil
	}

	n.tree.joins++
	n.tree.metrics.joins.Inc()
}

func (n *node[K]) indexOf(id K) int {
	for i, e := range n.items {
		if e.id == id {
			return i
		}
	}
	return -1
}

func (n *node[K]) query(r Rect, results []K) []K {
	if !n.bounds.Intersects(r) {
		return results
	}

	if n.isLeaf() {
		for _, e := range n.items {
			if r.Contains(e.pos) {
				results = append(results, e.id)
			}
		}
		return results
	}

	for _, c := range n.children {
		results = c.query(r, results)
	}
	return results
}

func (n *node[K]) queryCircle(center Vector2f, radius float64, results []K) []K {
	if !n.bounds.IntersectsCircle(center, radius) {
		return results
	}

	if n.isLeaf() {
		for _, e := range n.items {
			if Distance(center, e.pos) <= radius {
				results = append(results, e.id)
			}
		}
		return results
	}

	for _, c := range n.children {
		results = c.queryCircle(center, radius, results)
	}
	return results
}

// leafAt returns the leaf of n's subtree whose bounds contain p.
func (n *node[K]) leafAt(p Vector2f) *node[K] {
	for !n.isLeaf() {
		n = n.child(p)
	}
	return n
}

// walk visits n and its subtree in pre-order until fn returns false.
func (n *node[K]) walk(fn func(NodeInfo) bool) bool {
	info := NodeInfo{
		Bounds: n.bounds,
		Depth:  n.depth,
		Leaf:   n.isLeaf(),
		Items:  len(n.items),
	}
	if !fn(info) {
		return false
	}

	if n.isLeaf() {
		return true
	}
	for _, c := range n.children {
		if !c.walk(fn) {
			return false
		}
	}
	return true
}
