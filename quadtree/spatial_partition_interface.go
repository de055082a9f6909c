package quadtree

// DebugInfo summarizes the shape of a spatial partition.
type DebugInfo struct {
	Bounds       Rect   `json:"bounds"`
	MaxElements  int    `json:"max_elements"`
	MaxDepth     int    `json:"max_depth"`
	NodeCount    int    `json:"node_count"`
	LeafCount    int    `json:"leaf_count"`
	DeepestLevel int    `json:"deepest_level"`
	ItemCount    int    `json:"item_count"`
	Subdivisions uint64 `json:"subdivisions"`
	Joins        uint64 `json:"joins"`
}

// NodeInfo describes a single node visited by Walk.
type NodeInfo struct {
	Bounds Rect `json:"bounds"`
	Depth  int  `json:"depth"`
	Leaf   bool `json:"leaf"`
	Items  int  `json:"items"`
}

type SpatialPartition[K comparable] interface {
	Insert(id K, p Vector2f) error
	Remove(id K) error
	Update(id K, p Vector2f) error
	Query(r Rect) []K
	QueryInto(r Rect, dst []K) []K
	QueryCircle(center Vector2f, radius float64) []K
	Len() int

	// debug stuff:
	Bounds() Rect
	Walk(fn func(NodeInfo) bool)
	GetDebugInfo() DebugInfo
}

var _ SpatialPartition[uint32] = (*Quadtree[uint32])(nil)
