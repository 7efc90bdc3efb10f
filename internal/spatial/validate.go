package spatial

import (
	"fmt"

	"go.uber.org/multierr"
)

// Validate walks the whole tree and reports every broken structural
// invariant: leaves at uneven depth, slot counts over Branch, an object bound
// outside its tight bound, a tight bound outside its loose bound, a child
// outside its parent's slot, and objects missing or present twice.
func (t *Tree) Validate(bounds BoundFunc) error {
	var err error
	seen := make(map[uint32]int, t.objects)
	var walk func(n uint32, depth int)
	walk = func(n uint32, depth int) {
		c := t.count[n]
		if c > Branch {
			err = multierr.Append(err, fmt.Errorf("node %d: %d slots", n, c))
			return
		}
		if depth == t.leafDepth {
			for i := uint32(0); i < c; i++ {
				obj := t.child[n][i]
				seen[obj]++
				if !t.loose[n][i].Contains(t.tight[n][i]) {
					err = multierr.Append(err, fmt.Errorf("node %d slot %d: tight bound of object %d escapes loose bound", n, i, obj))
				}
				if bounds == nil {
					continue
				}
				var got [1]AABB
				bounds([]uint32{obj}, got[:])
				if !t.tight[n][i].Contains(got[0]) {
					err = multierr.Append(err, fmt.Errorf("node %d slot %d: object %d bound %v escapes tight bound %v", n, i, obj, got[0], t.tight[n][i]))
				}
			}
			return
		}
		if c == 0 && n != t.root {
			err = multierr.Append(err, fmt.Errorf("node %d: empty internal node", n))
		}
		for i := uint32(0); i < c; i++ {
			ch := t.child[n][i]
			if ch == 0 || int(ch) >= t.nodes.RowCount() {
				err = multierr.Append(err, fmt.Errorf("node %d slot %d: bad child %d", n, i, ch))
				continue
			}
			if !t.loose[n][i].Contains(t.bound(ch)) {
				err = multierr.Append(err, fmt.Errorf("node %d slot %d: child %d escapes its bound", n, i, ch))
			}
			walk(ch, depth+1)
		}
	}
	walk(t.root, 0)

	for obj := 0; obj < t.objects; obj++ {
		switch seen[uint32(obj)] {
		case 1:
		case 0:
			err = multierr.Append(err, fmt.Errorf("object %d missing", obj))
		default:
			err = multierr.Append(err, fmt.Errorf("object %d stored %d times", obj, seen[uint32(obj)]))
		}
		delete(seen, uint32(obj))
	}
	for obj := range seen {
		err = multierr.Append(err, fmt.Errorf("object %d is beyond count %d", obj, t.objects))
	}
	return err
}
