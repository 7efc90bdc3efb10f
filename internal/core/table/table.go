// Package table implements fixed-schema columnar row storage.
//
// A Table is a set of parallel columns that share one row count and one
// capacity. Every column is a contiguous byte block holding Cap() elements of
// its declared size, so a column can be viewed as a typed slice or streamed
// raw to a persistence backend. Row 0 is, by convention, the sentinel row:
// ClearRow resets a row to row 0's contents.
//
// Views returned by View and Bytes alias the column storage and are only
// valid until the next call that may grow the table (EnsureCapacity, PushRow,
// SetRowCount, Restore). Holding one across a growth is a bug.
package table

import (
	"fmt"
	"unsafe"
)

const (
	// Align is the granularity of every capacity.
	Align = 16
	// MinCapacity is the smallest capacity a table is ever allocated with.
	MinCapacity = 16
	// MaxCapacity is the sanity ceiling on rows; growth beyond it is fatal.
	MaxCapacity = 1 << 24
	// GrowthFactor multiplies capacity on every growth step.
	GrowthFactor = 2
)

// ColumnSpec names a column and the byte size of one of its elements.
type ColumnSpec struct {
	Name string `yaml:"name"`
	Size int    `yaml:"size"`
}

// Column returns the spec of a column holding values of type T.
// T must not contain Go pointers: column memory is not scanned by the GC.
func Column[T any](name string) ColumnSpec {
	var zero T
	return ColumnSpec{Name: name, Size: int(unsafe.Sizeof(zero))}
}

type column struct {
	spec  ColumnSpec
	words []uint64 // 8-byte aligned backing store
	data  []byte   // words viewed as Cap()*spec.Size bytes
}

// Table is a resizable set of parallel columns.
// Not safe for concurrent mutation.
type Table struct {
	cols []column
	rows int
	cap  int
}

// New allocates a table with room for at least minCapacity rows.
func New(minCapacity int, specs ...ColumnSpec) *Table {
	if len(specs) == 0 {
		panic("table: no columns")
	}
	t := &Table{cols: make([]column, len(specs))}
	for i, s := range specs {
		if s.Size <= 0 {
			panic(fmt.Sprintf("table: column %q has size %d", s.Name, s.Size))
		}
		t.cols[i].spec = s
	}
	t.resize(roundCapacity(minCapacity))
	return t
}

func roundCapacity(n int) int {
	if n < MinCapacity {
		n = MinCapacity
	}
	return (n + Align - 1) / Align * Align
}

func (t *Table) resize(capacity int) {
	if capacity > MaxCapacity {
		panic(fmt.Sprintf("table: capacity %d exceeds %d rows", capacity, MaxCapacity))
	}
	for i := range t.cols {
		c := &t.cols[i]
		n := capacity * c.spec.Size
		words := make([]uint64, (n+7)/8)
		data := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), n)
		copy(data, c.data[:t.rows*c.spec.Size])
		c.words, c.data = words, data
	}
	t.cap = capacity
}

// RowCount returns the number of rows in use.
func (t *Table) RowCount() int { return t.rows }

// Cap returns the number of rows the columns can hold without growing.
func (t *Table) Cap() int { return t.cap }

// Columns returns the number of columns.
func (t *Table) Columns() int { return len(t.cols) }

// Schema returns a copy of the column specs in column order.
func (t *Table) Schema() []ColumnSpec {
	specs := make([]ColumnSpec, len(t.cols))
	for i := range t.cols {
		specs[i] = t.cols[i].spec
	}
	return specs
}

// ColumnIndex returns the index of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i := range t.cols {
		if t.cols[i].spec.Name == name {
			return i
		}
	}
	return -1
}

// EnsureCapacity grows every column, by GrowthFactor steps, until n rows fit.
func (t *Table) EnsureCapacity(n int) {
	if n <= t.cap {
		return
	}
	capacity := t.cap
	for capacity < n {
		capacity *= GrowthFactor
		if capacity > MaxCapacity {
			panic(fmt.Sprintf("table: capacity %d exceeds %d rows", n, MaxCapacity))
		}
	}
	t.resize(capacity)
}

// PushRow appends a zeroed row and returns its index.
func (t *Table) PushRow() int {
	t.EnsureCapacity(t.rows + 1)
	i := t.rows
	t.rows++
	t.zeroRow(i)
	return i
}

// PopRow drops the last row.
func (t *Table) PopRow() {
	if t.rows == 0 {
		panic("table: pop on empty table")
	}
	t.rows--
}

// SetRowCount resizes the row range to n, zeroing any newly exposed rows.
func (t *Table) SetRowCount(n int) {
	if n < 0 {
		panic(fmt.Sprintf("table: negative row count %d", n))
	}
	t.EnsureCapacity(n)
	for i := t.rows; i < n; i++ {
		t.zeroRow(i)
	}
	t.rows = n
}

func (t *Table) zeroRow(i int) {
	for c := range t.cols {
		s := t.cols[c].spec.Size
		clear(t.cols[c].data[i*s : (i+1)*s])
	}
}

// ClearRow resets row i to the contents of the sentinel row 0.
func (t *Table) ClearRow(i int) {
	t.CopyRow(i, 0)
}

// CopyRow copies every column of row src over row dst.
func (t *Table) CopyRow(dst, src int) {
	if dst == src {
		return
	}
	for c := range t.cols {
		s := t.cols[c].spec.Size
		data := t.cols[c].data
		copy(data[dst*s:(dst+1)*s], data[src*s:(src+1)*s])
	}
}

// Reset zeroes every column and drops all rows. Capacity is kept.
func (t *Table) Reset() {
	for c := range t.cols {
		clear(t.cols[c].data)
	}
	t.rows = 0
}

// Bytes returns the raw bytes of the live rows of column col.
func (t *Table) Bytes(col int) []byte {
	c := &t.cols[col]
	return c.data[:t.rows*c.spec.Size]
}

// View returns column col as a []T spanning the full capacity.
// The element size of T must match the column spec.
func View[T any](t *Table, col int) []T {
	c := &t.cols[col]
	var zero T
	if int(unsafe.Sizeof(zero)) != c.spec.Size {
		panic(fmt.Sprintf("table: column %q holds %d-byte elements, view wants %d",
			c.spec.Name, c.spec.Size, unsafe.Sizeof(zero)))
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(c.words))), t.cap)
}
