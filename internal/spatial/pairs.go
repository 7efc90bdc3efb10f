package spatial

import (
	"github.com/l1jgo/simcore/internal/core/frame"
	"github.com/l1jgo/simcore/internal/core/job"
)

type nodePair struct {
	a, b uint32
}

// Pairs returns every pair of objects whose bounds overlap, each unordered
// pair once. The traversal is breadth-first over pairs of nodes starting from
// (root, root); pairs of leaves are intersected by jobs, PairBatch leaf pairs
// each. The result is allocated from mem.
func (t *Tree) Pairs(sched job.Scheduler, mem *frame.Arena) []Pair {
	level := frame.Append(mem, nil, nodePair{t.root, t.root})
	for depth := 0; depth < t.leafDepth; depth++ {
		var next []nodePair
		for _, p := range level {
			next = t.expand(mem, p, next)
		}
		level = next
	}
	if len(level) == 0 {
		return nil
	}

	batch := t.cfg.PairBatch
	found := make([][]Pair, (len(level)+batch-1)/batch)
	job.ParallelFor(sched, len(level), batch, func(lo, hi int) {
		var out []Pair
		for _, p := range level[lo:hi] {
			out = t.leafPairs(p, out)
		}
		found[lo/batch] = out
	})

	total := 0
	for _, f := range found {
		total += len(f)
	}
	pairs := frame.Make[Pair](mem, total)[:0]
	for _, f := range found {
		pairs = append(pairs, f...)
	}
	return pairs
}

// expand appends the overlapping child pairs of an internal node pair. When
// both sides are the same node only j <= i is visited, which pairs every
// child with itself once and every two children once.
func (t *Tree) expand(mem *frame.Arena, p nodePair, next []nodePair) []nodePair {
	for i := uint32(0); i < t.count[p.a]; i++ {
		bi := t.loose[p.a][i]
		lim := t.count[p.b]
		if p.a == p.b {
			lim = i + 1
		}
		for j := uint32(0); j < lim; j++ {
			if bi.Overlaps(t.loose[p.b][j]) {
				next = frame.Append(mem, next, nodePair{t.child[p.a][i], t.child[p.b][j]})
			}
		}
	}
	return next
}

// leafPairs runs inside a job and only reads the tree.
func (t *Tree) leafPairs(p nodePair, out []Pair) []Pair {
	for i := uint32(0); i < t.count[p.a]; i++ {
		bi := t.tight[p.a][i]
		lim := t.count[p.b]
		if p.a == p.b {
			lim = i
		}
		for j := uint32(0); j < lim; j++ {
			if bi.Overlaps(t.tight[p.b][j]) {
				x, y := t.child[p.a][i], t.child[p.b][j]
				if x > y {
					x, y = y, x
				}
				out = append(out, Pair{x, y})
			}
		}
	}
	return out
}
