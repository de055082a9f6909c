package quadtree

const (
	// DefaultMaxElements is the leaf capacity used when WithMaxElements is
	// not given.
	DefaultMaxElements = 4

	// DefaultMaxDepth is the subdivision ceiling used when WithMaxDepth is not
	// given.
	DefaultMaxDepth = 8

	defaultName = "default"
)

type options struct {
	name            string
	maxElements     int
	maxDepth        int
	invariantChecks bool
}

func defaultOptions() options {
	return options{
		name:        defaultName,
		maxElements: DefaultMaxElements,
		maxDepth:    DefaultMaxDepth,
	}
}

// Option configures a Quadtree.
type Option func(*options)

// WithName sets the name used to label the index metrics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithMaxElements sets how many items a leaf holds before it is split.
func WithMaxElements(n int) Option {
	return func(o *options) {
		o.maxElements = n
	}
}

// WithMaxDepth sets the depth at which leaves stop splitting and accept any
// number of items.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		o.maxDepth = depth
	}
}

// WithInvariantChecks makes every mutating call validate the whole tree and
// panic on the first violation. Meant for tests and debug builds: it turns
// O(1) updates into full tree walks.
func WithInvariantChecks(enabled bool) Option {
	return func(o *options) {
		o.invariantChecks = enabled
	}
}
