package quadtree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Validate walks the whole tree and returns the first structural violation
// found, or nil. A non-nil result means the tree is corrupted.
func (t *Quadtree[K]) Validate() error {
	if t.root.parent != nil || t.root.depth != 0 {
		return errInvariant("root has a parent or a non zero depth", t.root.depth, t.root.bounds)
	}

	seen := make(map[K]struct{}, len(t.locations))
	if err := t.validateNode(t.root, seen); err != nil {
		return err
	}

	if len(seen) != len(t.locations) {
		return errors.New("locations reference items missing from the tree").
			WithType(ErrTypeInvariantViolation).
			WithTag("tree_items", len(seen)).
			WithTag("locations", len(t.locations))
	}
	return nil
}

func (t *Quadtree[K]) validateNode(n *node[K], seen map[K]struct{}) error {
	if n.tree != t {
		return errInvariant("node belongs to another tree", n.depth, n.bounds)
	}

	if n.isLeaf() {
		for _, c := range n.children {
			if c != nil {
				return errInvariant("leaf has a partial set of children", n.depth, n.bounds)
			}
		}
		if n.depth > t.maxDepth {
			return errInvariant("leaf is deeper than max depth", n.depth, n.bounds)
		}
		if len(n.items) > t.maxElements && n.depth < t.maxDepth {
			return errInvariant("leaf exceeds its capacity", n.depth, n.bounds,
				"items", len(n.items))
		}

		for _, e := range n.items {
			if _, ok := seen[e.id]; ok {
				return errInvariant("item is stored twice", n.depth, n.bounds,
					"id", e.id)
			}
			seen[e.id] = struct{}{}

			if !n.contains(e.pos) {
				return errInvariant("item is outside of its leaf", n.depth, n.bounds,
					"id", e.id,
					"position", e.pos)
			}
			if t.locations[e.id] != n {
				return errInvariant("location does not point to the leaf holding the item", n.depth, n.bounds,
					"id", e.id)
			}
		}
		return nil
	}

	if len(n.items) != 0 {
		return errInvariant("internal node holds items", n.depth, n.bounds,
			"items", len(n.items))
	}

	quarters := n.bounds.Quarter()
	for i, c := range n.children {
		if c == nil {
			return errInvariant("internal node has a partial set of children", n.depth, n.bounds)
		}
		if c.parent != n || c.depth != n.depth+1 {
			return errInvariant("child is not linked to its parent", c.depth, c.bounds)
		}
		if c.bounds != quarters[i] {
			return errInvariant("child bounds do not quarter the parent", c.depth, c.bounds)
		}
		if err := t.validateNode(c, seen); err != nil {
			return err
		}
	}
	return nil
}
