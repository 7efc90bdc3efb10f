// Package spatial maintains a dynamic bounding volume hierarchy over moving
// objects and reports the pairs whose bounds overlap.
//
// Objects are identified by dense indices [0, count). Every tick the caller
// runs Update with the current count and a callback that reports bounds for
// a batch of indices, then Pairs for the broad-phase candidates. Update
// refreshes leaves in parallel through a job scheduler and reinserts only the
// objects that moved far outside their loose bound.
package spatial

import (
	"fmt"
	"sync"

	"github.com/l1jgo/simcore/internal/core/table"
	"go.uber.org/zap"
)

// Branch is the fan-out of every node.
const Branch = 24

// Tuning defaults. LooseRatio and KMeansIterations have not been tuned
// empirically; both can be overridden through Config.
const (
	DefaultLooseRatio       = 8
	DefaultKMeansIterations = 4
	DefaultLeafBatch        = 16
	DefaultPairBatch        = 64
	DefaultMinArea          = 0.01
)

// Config tunes a Tree. Zero fields take the defaults.
type Config struct {
	// LooseRatio bounds how much larger, by area, a leaf slot's loose bound may
	// grow relative to its object's bound before the object is reinserted.
	LooseRatio float32
	// KMeansIterations is the number of refinement passes of a node split.
	KMeansIterations int
	// LeafBatch is the number of leaves refreshed per job.
	LeafBatch int
	// PairBatch is the number of leaf pairs intersected per job.
	PairBatch int
	// MinArea floors the object area that LooseRatio is measured against.
	// Points and axis segments have zero area and would otherwise be
	// reinserted after any movement.
	MinArea float32
}

func DefaultConfig() Config {
	return Config{
		LooseRatio:       DefaultLooseRatio,
		KMeansIterations: DefaultKMeansIterations,
		LeafBatch:        DefaultLeafBatch,
		PairBatch:        DefaultPairBatch,
		MinArea:          DefaultMinArea,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.LooseRatio <= 0 {
		c.LooseRatio = d.LooseRatio
	}
	if c.KMeansIterations <= 0 {
		c.KMeansIterations = d.KMeansIterations
	}
	if c.LeafBatch <= 0 {
		c.LeafBatch = d.LeafBatch
	}
	if c.PairBatch <= 0 {
		c.PairBatch = d.PairBatch
	}
	if c.MinArea <= 0 {
		c.MinArea = d.MinArea
	}
	return c
}

// BoundFunc writes the current bound of each objs[i] into out[i]. Dead
// objects report Empty(). During Update it is called from several jobs at
// once, so it must only read shared state.
type BoundFunc func(objs []uint32, out []AABB)

// Pair is an overlapping pair of objects with A < B.
type Pair struct {
	A, B uint32
}

const (
	colCount = iota
	colLoose
	colTight
	colChild
)

// Tree is a fixed fan-out BVH whose nodes live in a table.
//
// Each node has up to Branch slots. In a leaf a slot holds an object index,
// its tight (current) bound and its loose bound; in an internal node a slot
// holds a child node and that child's bound in the loose column. Every leaf
// sits leafDepth edges below the root. Row 0 of the node table is unused so
// that node 0 can mean "none"; released nodes go to a free list.
type Tree struct {
	cfg   Config
	nodes *table.Table
	count []uint32
	loose [][Branch]AABB
	tight [][Branch]AABB
	child [][Branch]uint32
	free  []uint32

	root      uint32
	leafDepth int
	objects   int

	mu       sync.Mutex
	reinsert []uint32

	log *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Tree {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Tree{
		cfg: cfg.withDefaults(),
		nodes: table.New(64,
			table.Column[uint32]("count"),
			table.Column[[Branch]AABB]("loose"),
			table.Column[[Branch]AABB]("tight"),
			table.Column[[Branch]uint32]("child"),
		),
		log: log,
	}
	t.nodes.PushRow()
	t.refresh()
	t.root = t.allocNode()
	return t
}

func (t *Tree) Config() Config { return t.cfg }

// LeafDepth returns the number of edges from the root to the leaves.
func (t *Tree) LeafDepth() int { return t.leafDepth }

// Count returns the object count passed to the last Update.
func (t *Tree) Count() int { return t.objects }

// Reinserted returns how many objects the last Update pulled out and
// reinserted because their loose bound outgrew LooseRatio.
func (t *Tree) Reinserted() int { return len(t.reinsert) }

// Nodes returns the number of nodes in use.
func (t *Tree) Nodes() int { return t.nodes.RowCount() - 1 - len(t.free) }

func (t *Tree) refresh() {
	t.count = table.View[uint32](t.nodes, colCount)
	t.loose = table.View[[Branch]AABB](t.nodes, colLoose)
	t.tight = table.View[[Branch]AABB](t.nodes, colTight)
	t.child = table.View[[Branch]uint32](t.nodes, colChild)
}

// allocNode returns an empty node. It may grow the node table, so views
// taken before the call are stale.
func (t *Tree) allocNode() uint32 {
	if n := len(t.free); n > 0 {
		id := t.free[n-1]
		t.free = t.free[:n-1]
		t.count[id] = 0
		return id
	}
	id := t.nodes.PushRow()
	t.refresh()
	return uint32(id)
}

func (t *Tree) freeNode(id uint32) {
	if id == 0 || id == t.root {
		panic(fmt.Sprintf("spatial: free of node %d", id))
	}
	t.count[id] = 0
	t.free = append(t.free, id)
}

// bound returns the union of a node's slot bounds.
func (t *Tree) bound(n uint32) AABB {
	b := Empty()
	for i := uint32(0); i < t.count[n]; i++ {
		b = b.Union(t.loose[n][i])
	}
	return b
}

// Query calls fn for every object whose current bound overlaps box, until fn
// returns false.
func (t *Tree) Query(box AABB, fn func(obj uint32) bool) {
	t.query(t.root, 0, box, fn)
}

func (t *Tree) query(n uint32, depth int, box AABB, fn func(uint32) bool) bool {
	leaf := depth == t.leafDepth
	for i := uint32(0); i < t.count[n]; i++ {
		if !t.loose[n][i].Overlaps(box) {
			continue
		}
		if leaf {
			if t.tight[n][i].Overlaps(box) && !fn(t.child[n][i]) {
				return false
			}
			continue
		}
		if !t.query(t.child[n][i], depth+1, box, fn) {
			return false
		}
	}
	return true
}
