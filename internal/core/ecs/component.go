package ecs

import (
	"fmt"

	"github.com/l1jgo/simcore/internal/core/hashidx"
	"github.com/l1jgo/simcore/internal/core/table"
	"go.uber.org/zap"
)

const storeInitialRows = 64

// Store is a sparse set of rows keyed by entity.
//
// Rows are dense in a table whose column 0 holds the owning entity; row 0 is a
// sentinel that is never iterated and whose contents seed every new row. A hash
// index maps entity → row. Remove moves the last row into the hole, so any row
// number cached across a Remove on the same store must be re-found.
type Store struct {
	name   string
	tbl    *table.Table
	index  *hashidx.Index
	cursor int
	log    *zap.Logger
}

// NewStore creates a store with the given data columns after the entity column.
func NewStore(name string, log *zap.Logger, specs ...table.ColumnSpec) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	cols := make([]table.ColumnSpec, 0, len(specs)+1)
	cols = append(cols, table.Column[EntityID]("entity"))
	cols = append(cols, specs...)
	s := &Store{
		name:  name,
		tbl:   table.New(storeInitialRows, cols...),
		index: hashidx.New(storeInitialRows),
		log:   log.With(zap.String("store", name)),
	}
	s.tbl.PushRow()
	return s
}

func (s *Store) Name() string        { return s.name }
func (s *Store) Table() *table.Table { return s.tbl }

// Count returns the number of live rows, excluding the sentinel.
func (s *Store) Count() int { return s.tbl.RowCount() - 1 }

// Entity returns the owner of row.
func (s *Store) Entity(row uint32) EntityID {
	return table.View[EntityID](s.tbl, 0)[row]
}

// Entities returns the owners of rows 1..Count in dense order.
// Invalidated by any Add or Remove.
func (s *Store) Entities() []EntityID {
	return table.View[EntityID](s.tbl, 0)[1:s.tbl.RowCount()]
}

// Find returns the row of e, or 0.
func (s *Store) Find(e EntityID) uint32 {
	return uint32(s.index.Find(uint64(e)))
}

// Add creates a row for e, which must not already have one.
func (s *Store) Add(e EntityID) uint32 {
	if e.IsZero() {
		panic(fmt.Sprintf("ecs: store %s: add of null entity", s.name))
	}
	if s.Find(e) != 0 {
		panic(fmt.Sprintf("ecs: store %s: %v already has a row", s.name, e))
	}
	return s.push(e)
}

// AddUnique returns e's row, creating it if needed.
func (s *Store) AddUnique(e EntityID) uint32 {
	if row := s.Find(e); row != 0 {
		return row
	}
	if e.IsZero() {
		panic(fmt.Sprintf("ecs: store %s: add of null entity", s.name))
	}
	return s.push(e)
}

func (s *Store) push(e EntityID) uint32 {
	row := s.tbl.PushRow()
	s.tbl.ClearRow(row)
	table.View[EntityID](s.tbl, 0)[row] = e
	s.index.Insert(uint64(e), uint64(row))
	return uint32(row)
}

// Remove deletes e's row by moving the last row into it. It returns the entity
// that was relocated and the row it now occupies, or zeros when nothing moved.
// Removing an entity without a row logs a warning and does nothing.
func (s *Store) Remove(e EntityID) (EntityID, uint32) {
	row := s.Find(e)
	if row == 0 {
		s.log.Warn("remove of entity without row", zap.Stringer("entity", e))
		return 0, 0
	}
	return s.removeRow(e, row)
}

func (s *Store) removeRow(e EntityID, row uint32) (EntityID, uint32) {
	last := uint32(s.tbl.RowCount() - 1)
	var moved EntityID
	if row != last {
		s.tbl.CopyRow(int(row), int(last))
		moved = s.Entity(row)
		s.index.Insert(uint64(moved), uint64(row))
	}
	s.index.Remove(uint64(e))
	s.tbl.PopRow()
	if moved == 0 {
		return 0, 0
	}
	return moved, row
}

// GC removes rows whose entity is no longer live. It resumes from where the
// previous call stopped and returns after pressure live rows in a row have
// been seen, so each call does a bounded amount of work. It returns the
// number of rows removed.
func (s *Store) GC(alloc *Allocator, pressure int) int {
	removed, valid := 0, 0
	for valid < pressure && valid < s.Count() {
		if s.cursor < 1 || s.cursor >= s.tbl.RowCount() {
			s.cursor = 1
		}
		e := s.Entity(uint32(s.cursor))
		if alloc.Check(e) {
			valid++
			s.cursor++
			continue
		}
		valid = 0
		s.removeRow(e, uint32(s.cursor))
		removed++
	}
	if removed > 0 {
		s.log.Debug("collected stale rows", zap.Int("removed", removed), zap.Int("count", s.Count()))
	}
	return removed
}

// Reindex replaces the entity index with one built with opts.
func (s *Store) Reindex(opts ...hashidx.Option) {
	s.index = hashidx.New(max(storeInitialRows, s.Count()+1), opts...)
	s.Rebuild()
}

// Rebuild re-derives the entity index from column 0, after a restore.
func (s *Store) Rebuild() {
	s.index.Clear()
	s.cursor = 0
	if s.tbl.RowCount() == 0 {
		s.tbl.PushRow()
	}
	for row, e := range s.Entities() {
		s.index.Insert(uint64(e), uint64(row+1))
	}
}

// Component is a store with a single data column of type T.
// T must not contain Go pointers.
type Component[T any] struct {
	*Store
}

func NewComponent[T any](name string, log *zap.Logger) *Component[T] {
	return &Component[T]{Store: NewStore(name, log, table.Column[T](name))}
}

// Get returns the value at row. The pointer is invalidated by Add and Remove.
func (c *Component[T]) Get(row uint32) *T {
	return &table.View[T](c.tbl, 1)[row]
}

// Lookup returns e's value if it has one.
func (c *Component[T]) Lookup(e EntityID) (*T, bool) {
	row := c.Find(e)
	if row == 0 {
		return nil, false
	}
	return c.Get(row), true
}

// Set stores v for e, adding a row if needed.
func (c *Component[T]) Set(e EntityID, v T) uint32 {
	row := c.AddUnique(e)
	*c.Get(row) = v
	return row
}

// Values returns rows 1..Count in dense order, parallel to Entities.
func (c *Component[T]) Values() []T {
	return table.View[T](c.tbl, 1)[1:c.tbl.RowCount()]
}
