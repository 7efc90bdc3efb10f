package spatial

import (
	"github.com/chewxy/math32"
	"github.com/l1jgo/simcore/internal/core/frame"
	"github.com/l1jgo/simcore/internal/core/job"
	"go.uber.org/zap"
)

// Update brings the tree in line with count objects whose bounds are
// reported by bounds.
//
// Leaves are refreshed in parallel, LeafBatch leaves per job: every slot gets
// its current bound, and an object whose loose bound would grow past
// LooseRatio times its own area is pulled out for reinsertion. After the jobs
// finish, internal bounds are recomputed bottom-up and emptied nodes are
// released. Pulled objects are then reinserted, followed by the new indices
// [previous count, count). Objects at or above count are dropped. Scratch
// comes from mem.
func (t *Tree) Update(count int, bounds BoundFunc, sched job.Scheduler, mem *frame.Arena) {
	if count < 0 {
		count = 0
	}
	old := t.objects
	t.reinsert = t.reinsert[:0]

	leaves := t.leaves(mem)
	batch := t.cfg.LeafBatch
	batches := (len(leaves) + batch - 1) / batch
	objs := frame.Make[uint32](mem, batches*Branch)
	out := frame.Make[AABB](mem, batches*Branch)
	job.ParallelFor(sched, len(leaves), batch, func(lo, hi int) {
		b := lo / batch
		o, bx := objs[b*Branch:(b+1)*Branch], out[b*Branch:(b+1)*Branch]
		for _, leaf := range leaves[lo:hi] {
			t.refreshLeaf(leaf, uint32(count), bounds, o, bx)
		}
	})

	t.refit(t.root, 0)
	t.collapse()

	var one [1]uint32
	var box [1]AABB
	for _, obj := range t.reinsert {
		one[0] = obj
		bounds(one[:], box[:])
		t.insert(obj, box[0])
	}
	for obj := old; obj < count; obj++ {
		one[0] = uint32(obj)
		bounds(one[:], box[:])
		t.insert(uint32(obj), box[0])
	}
	t.objects = count

	if len(t.reinsert) > 0 || count != old {
		t.log.Debug("spatial tree updated",
			zap.Int("objects", count),
			zap.Int("reinserted", len(t.reinsert)),
			zap.Int("inserted", max(0, count-old)),
			zap.Int("leaf_depth", t.leafDepth),
			zap.Int("nodes", t.Nodes()),
		)
	}
}

// leaves returns every leaf node, left to right.
func (t *Tree) leaves(mem *frame.Arena) []uint32 {
	level := frame.Append(mem, nil, t.root)
	for depth := 0; depth < t.leafDepth; depth++ {
		var next []uint32
		for _, n := range level {
			next = frame.Append(mem, next, t.child[n][:t.count[n]]...)
		}
		level = next
	}
	return level
}

// refreshLeaf runs inside a job. It writes only to leaf n and to the
// reinsert queue, under the lock.
func (t *Tree) refreshLeaf(n, count uint32, bounds BoundFunc, objs []uint32, out []AABB) {
	c := uint32(0)
	for i := uint32(0); i < t.count[n]; i++ {
		if t.child[n][i] < count {
			t.setSlot(n, c, t.slot(n, i))
			c++
		}
	}
	if c == 0 {
		t.count[n] = 0
		return
	}
	for i := uint32(0); i < c; i++ {
		objs[i] = t.child[n][i]
	}
	bounds(objs[:c], out[:c])

	kept := uint32(0)
	for i := uint32(0); i < c; i++ {
		tight := out[i]
		loose := t.loose[n][i].Union(tight)
		area := math32.Max(tight.Area(), t.cfg.MinArea)
		if !tight.IsEmpty() && loose != tight && loose.Area() > t.cfg.LooseRatio*area {
			t.mu.Lock()
			t.reinsert = append(t.reinsert, objs[i])
			t.mu.Unlock()
			continue
		}
		t.loose[n][kept], t.tight[n][kept], t.child[n][kept] = loose, tight, objs[i]
		kept++
	}
	t.count[n] = kept
}

// refit recomputes internal bounds below n, releasing children that emptied.
func (t *Tree) refit(n uint32, depth int) {
	if depth == t.leafDepth {
		return
	}
	kept := uint32(0)
	for i := uint32(0); i < t.count[n]; i++ {
		c := t.child[n][i]
		t.refit(c, depth+1)
		if t.count[c] == 0 {
			t.freeNode(c)
			continue
		}
		t.loose[n][kept], t.child[n][kept] = t.bound(c), c
		kept++
	}
	t.count[n] = kept
}

// collapse drops root levels that no longer branch. An empty tree ends up as
// a single empty leaf.
func (t *Tree) collapse() {
	if t.count[t.root] == 0 {
		t.leafDepth = 0
		return
	}
	for t.leafDepth > 0 && t.count[t.root] == 1 {
		old := t.root
		t.root = t.child[old][0]
		t.leafDepth--
		t.count[old] = 0
		t.free = append(t.free, old)
	}
}
