package spatial

import (
	"slices"

	"github.com/chewxy/math32"
)

// minWeight keeps degenerate boxes from vanishing out of a weighted centroid.
const minWeight = 1e-6

type entry struct {
	loose, tight AABB
	child        uint32
}

// insert adds obj with bound box. The caller guarantees obj is not already in
// the tree.
func (t *Tree) insert(obj uint32, box AABB) {
	sib, split := t.insertAt(t.root, 0, entry{loose: box, tight: box, child: obj})
	if !split {
		return
	}
	old := t.root
	root := t.allocNode()
	t.count[root] = 2
	t.loose[root][0], t.child[root][0] = t.bound(old), old
	t.loose[root][1], t.child[root][1] = t.bound(sib), sib
	t.root = root
	t.leafDepth++
}

// insertAt places e below node n at the given depth. When n had to split it
// returns the new sibling and true.
func (t *Tree) insertAt(n uint32, depth int, e entry) (uint32, bool) {
	if depth == t.leafDepth {
		return t.place(n, e)
	}
	i := t.nearest(n, e.loose.Center())
	t.loose[n][i] = t.loose[n][i].Union(e.loose)
	c := t.child[n][i]
	sib, split := t.insertAt(c, depth+1, e)
	if !split {
		return 0, false
	}
	t.loose[n][i] = t.bound(c)
	return t.place(n, entry{loose: t.bound(sib), tight: Empty(), child: sib})
}

// nearest returns the slot of n whose loose center is closest to p.
func (t *Tree) nearest(n uint32, p Vec3) uint32 {
	best, bestDist := uint32(0), math32.Inf(1)
	for i := uint32(0); i < t.count[n]; i++ {
		d := t.loose[n][i].Center().Subtract(p)
		if dist := d.Dot(d); dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

// place appends e to n, splitting n when it is full.
func (t *Tree) place(n uint32, e entry) (uint32, bool) {
	if c := t.count[n]; c < Branch {
		t.setSlot(n, c, e)
		t.count[n] = c + 1
		return 0, false
	}
	var all [Branch + 1]entry
	for i := uint32(0); i < Branch; i++ {
		all[i] = t.slot(n, i)
	}
	all[Branch] = e
	group := t.partition(all[:])

	sib := t.allocNode()
	var kept, moved uint32
	for i, g := range group {
		if g == 0 {
			t.setSlot(n, kept, all[i])
			kept++
		} else {
			t.setSlot(sib, moved, all[i])
			moved++
		}
	}
	t.count[n], t.count[sib] = kept, moved
	return sib, true
}

func (t *Tree) slot(n, i uint32) entry {
	return entry{loose: t.loose[n][i], tight: t.tight[n][i], child: t.child[n][i]}
}

func (t *Tree) setSlot(n, i uint32, e entry) {
	t.loose[n][i], t.tight[n][i], t.child[n][i] = e.loose, e.tight, e.child
}

// partition splits entries into groups 0 and 1 with an area-weighted 2-means
// over their centers. Seeds are the extreme centers along the longest axis of
// the combined bound. Neither group is ever empty.
func (t *Tree) partition(entries []entry) []uint8 {
	n := len(entries)
	centers := make([]Vec3, n)
	weights := make([]float32, n)
	all := Empty()
	for i, e := range entries {
		centers[i] = e.loose.Center()
		weights[i] = math32.Max(e.loose.Area(), minWeight)
		all = all.Union(e.loose)
	}
	axis := all.LongestAxis()

	lo, hi := 0, 0
	for i, c := range centers {
		if c.Axis(axis) < centers[lo].Axis(axis) {
			lo = i
		}
		if c.Axis(axis) > centers[hi].Axis(axis) {
			hi = i
		}
	}
	seeds := [2]Vec3{centers[lo], centers[hi]}
	group := make([]uint8, n)
	assign := func() (sizes [2]int) {
		for i, c := range centers {
			d0, d1 := c.Subtract(seeds[0]), c.Subtract(seeds[1])
			if d1.Dot(d1) < d0.Dot(d0) {
				group[i] = 1
			} else {
				group[i] = 0
			}
			sizes[group[i]]++
		}
		return sizes
	}

	sizes := assign()
	for it := 0; it < t.cfg.KMeansIterations && sizes[0] > 0 && sizes[1] > 0; it++ {
		var sum [2]Vec3
		var w [2]float32
		for i, c := range centers {
			g := group[i]
			sum[g] = sum[g].Add(c.Scale(weights[i]))
			w[g] += weights[i]
		}
		seeds[0], seeds[1] = sum[0].Scale(1/w[0]), sum[1].Scale(1/w[1])
		sizes = assign()
	}
	if sizes[0] > 0 && sizes[1] > 0 {
		return group
	}

	// Coincident centers: fall back to halves along the axis.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		ca, cb := centers[a].Axis(axis), centers[b].Axis(axis)
		switch {
		case ca < cb:
			return -1
		case ca > cb:
			return 1
		}
		return 0
	})
	for k, i := range order {
		if k < n/2 {
			group[i] = 0
		} else {
			group[i] = 1
		}
	}
	return group
}
