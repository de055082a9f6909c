package quadtree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	// Returned when a position is outside of the root bounds.
	ErrTypeOutOfBounds = "quadtree_out_of_bounds"

	// Returned when an operation references an item that is not indexed.
	ErrTypeNotFound = "quadtree_not_found"

	// Returned when inserting an item that is already indexed.
	ErrTypeAlreadyExists = "quadtree_already_exists"

	// Returned by New when the options or the world bounds are unusable.
	ErrTypeInvalidConfig = "quadtree_invalid_config"

	// Reported by Validate when the tree and its locations disagree.
	ErrTypeInvariantViolation = "quadtree_invariant_violation"
)

func IsOutOfBounds(err error) bool {
	return errors.IsType(err, ErrTypeOutOfBounds)
}

func IsNotFound(err error) bool {
	return errors.IsType(err, ErrTypeNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.IsType(err, ErrTypeAlreadyExists)
}

func errOutOfBounds(id any, p Vector2f, bounds Rect) error {
	return errors.New("position is out of bounds").
		WithType(ErrTypeOutOfBounds).
		WithTag("id", id).
		WithTag("position", p).
		WithTag("bounds", bounds)
}

func errNotFound(id any) error {
	return errors.New("item is not indexed").
		WithType(ErrTypeNotFound).
		WithTag("id", id)
}

func errAlreadyExists(id any) error {
	return errors.New("item is already indexed").
		WithType(ErrTypeAlreadyExists).
		WithTag("id", id)
}

// errInvariant builds an invariant violation error. kv holds extra tag
// key/value pairs.
func errInvariant(msg string, depth int, bounds Rect, kv ...any) error {
	err := errors.New(msg).
		WithType(ErrTypeInvariantViolation).
		WithTag("depth", depth).
		WithTag("bounds", bounds)

	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			err = err.WithTag(k, kv[i+1])
		}
	}
	return err
}
