package ecs

import "iter"

// Term binds a store to the variable that receives the current row in a Join.
type Term struct {
	row      *uint32
	store    *Store
	optional bool
}

// Required joins s; entities without a row in s are skipped.
func Required(row *uint32, s *Store) Term {
	return Term{row: row, store: s}
}

// Optional joins s; entities without a row in s get row 0.
func Optional(row *uint32, s *Store) Term {
	return Term{row: row, store: s, optional: true}
}

// Join walks the dense rows of the first term's store and yields every entity
// that also has a row in each required store, writing the matching rows into
// the term variables before each yield. The order is the first store's dense
// order. Adding to or removing from the first store inside the loop is not
// supported.
func Join(terms ...Term) iter.Seq[EntityID] {
	return func(yield func(EntityID) bool) {
		if len(terms) == 0 {
			return
		}
		primary := terms[0]
	rows:
		for row := uint32(1); int(row) <= primary.store.Count(); row++ {
			e := primary.store.Entity(row)
			for _, t := range terms[1:] {
				r := t.store.Find(e)
				if r == 0 && !t.optional {
					continue rows
				}
				*t.row = r
			}
			*primary.row = row
			if !yield(e) {
				return
			}
		}
	}
}

// Each2 iterates over entities that have both component A and B, driven by A.
func Each2[A, B any](ca *Component[A], cb *Component[B], fn func(EntityID, *A, *B)) {
	var ra, rb uint32
	for e := range Join(Required(&ra, ca.Store), Required(&rb, cb.Store)) {
		fn(e, ca.Get(ra), cb.Get(rb))
	}
}

// Each3 iterates over entities that have components A, B and C, driven by A.
func Each3[A, B, C any](ca *Component[A], cb *Component[B], cc *Component[C], fn func(EntityID, *A, *B, *C)) {
	var ra, rb, rc uint32
	for e := range Join(Required(&ra, ca.Store), Required(&rb, cb.Store), Required(&rc, cc.Store)) {
		fn(e, ca.Get(ra), cb.Get(rb), cc.Get(rc))
	}
}
