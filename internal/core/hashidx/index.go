// Package hashidx implements a robin-hood open-addressing map from uint64 keys
// to uint64 values, stored in a table.Table with info, key and value columns.
// Every bucket is a table row, so the table's RowCount always equals Cap and
// Blocks or Bytes on it stream the whole bucket array.
//
// The info byte of a bucket is 0 when empty and probe distance + 1 otherwise.
// Occupied buckets keep the robin-hood ordering: walking forward from any
// key's home slot, probe distances never drop below what that key would have.
// Deletion shifts followers back instead of leaving tombstones.
package hashidx

import (
	"fmt"
	"math/bits"

	"github.com/l1jgo/simcore/internal/core/table"
)

const (
	// DefaultMaxProbe bounds the probe distance before a forced resize.
	DefaultMaxProbe = 32
	// DefaultMaxLoad is the load factor that triggers doubling.
	DefaultMaxLoad = 0.8

	maxInfoProbe = 254

	colInfo  = 0
	colKey   = 1
	colValue = 2
)

// Option configures an Index.
type Option func(*Index)

// WithMaxProbe sets the probe distance that forces a resize.
func WithMaxProbe(n int) Option {
	return func(x *Index) { x.maxProbe = n }
}

// WithMaxLoad sets the load factor that triggers doubling.
func WithMaxLoad(f float64) Option {
	return func(x *Index) { x.maxLoad = f }
}

// Index is a robin-hood hash map. Not safe for concurrent mutation.
type Index struct {
	tbl       *table.Table
	info      []uint8
	keys      []uint64
	values    []uint64
	mask      uint64
	count     int
	threshold int
	maxProbe  int
	maxLoad   float64
}

// New returns an empty index with at least capacity buckets.
func New(capacity int, opts ...Option) *Index {
	x := &Index{maxProbe: DefaultMaxProbe, maxLoad: DefaultMaxLoad}
	for _, opt := range opts {
		opt(x)
	}
	if x.maxProbe < 1 {
		x.maxProbe = 1
	}
	if x.maxProbe > maxInfoProbe {
		x.maxProbe = maxInfoProbe
	}
	if x.maxLoad <= 0 || x.maxLoad > 1 {
		x.maxLoad = DefaultMaxLoad
	}
	x.alloc(pow2(capacity))
	return x
}

func pow2(n int) int {
	if n <= table.MinCapacity {
		return table.MinCapacity
	}
	return 1 << bits.Len(uint(n-1))
}

func (x *Index) alloc(capacity int) {
	x.tbl = table.New(capacity,
		table.Column[uint8]("info"),
		table.Column[uint64]("key"),
		table.Column[uint64]("value"),
	)
	x.tbl.SetRowCount(capacity)
	x.info = table.View[uint8](x.tbl, colInfo)
	x.keys = table.View[uint64](x.tbl, colKey)
	x.values = table.View[uint64](x.tbl, colValue)
	x.mask = uint64(capacity - 1)
	x.threshold = int(float64(capacity) * x.maxLoad)
}

// Len returns the number of stored keys.
func (x *Index) Len() int { return x.count }

// Cap returns the number of buckets; always a power of two.
func (x *Index) Cap() int { return len(x.info) }

// Table returns the bucket table. It is replaced on growth.
func (x *Index) Table() *table.Table { return x.tbl }

// Insert stores value under key and returns the previous value, or 0.
func (x *Index) Insert(key, value uint64) uint64 {
	if slot, ok := x.slot(key); ok {
		old := x.values[slot]
		x.values[slot] = value
		return old
	}
	if x.count+1 > x.threshold {
		x.grow()
	}
	x.place(key, value)
	x.count++
	return 0
}

// place runs robin-hood insertion for a key known to be absent.
func (x *Index) place(key, value uint64) {
	for {
		home := key & x.mask
		idx := home
		dist := 0
		for dist <= x.maxProbe {
			info := x.info[idx]
			if info == 0 {
				x.info[idx] = uint8(dist + 1)
				x.keys[idx] = key
				x.values[idx] = value
				return
			}
			if int(info)-1 < dist {
				// Take the slot from the richer entry and carry it forward.
				x.info[idx] = uint8(dist + 1)
				key, x.keys[idx] = x.keys[idx], key
				value, x.values[idx] = x.values[idx], value
				dist = int(info) - 1
			}
			dist++
			idx = (idx + 1) & x.mask
		}
		if x.stuck(home, key) {
			panic(fmt.Sprintf("hashidx: %d keys from slot %d agree on their low %d bits; growth cannot separate them",
				x.maxProbe+2, home, bits.Len(table.MaxCapacity-1)))
		}
		x.grow()
	}
}

// stuck reports whether key and the full probe window starting at home
// share every bit that doubling up to table.MaxCapacity could add to the
// mask. Growing would keep them packed together, so it can never succeed.
func (x *Index) stuck(home, key uint64) bool {
	reveal := uint64(table.MaxCapacity-1) &^ x.mask
	idx := home
	for range x.maxProbe + 1 {
		if (x.keys[idx]^key)&reveal != 0 {
			return false
		}
		idx = (idx + 1) & x.mask
	}
	return true
}

func (x *Index) grow() {
	info, keys, values := x.info, x.keys, x.values
	x.alloc(2 * len(info))
	for i, in := range info {
		if in != 0 {
			x.place(keys[i], values[i])
		}
	}
}

func (x *Index) slot(key uint64) (uint64, bool) {
	idx := key & x.mask
	for dist := 0; dist <= x.maxProbe; dist++ {
		info := x.info[idx]
		if info == 0 || int(info)-1 < dist {
			return 0, false
		}
		if x.keys[idx] == key {
			return idx, true
		}
		idx = (idx + 1) & x.mask
	}
	return 0, false
}

// Find returns the value stored under key, or 0.
func (x *Index) Find(key uint64) uint64 {
	v, _ := x.Lookup(key)
	return v
}

// Lookup returns the value stored under key and whether it was present.
func (x *Index) Lookup(key uint64) (uint64, bool) {
	slot, ok := x.slot(key)
	if !ok {
		return 0, false
	}
	return x.values[slot], true
}

// Remove deletes key and returns its value, or 0 if it was absent.
func (x *Index) Remove(key uint64) uint64 {
	slot, ok := x.slot(key)
	if !ok {
		return 0
	}
	old := x.values[slot]
	idx := slot
	for {
		next := (idx + 1) & x.mask
		if x.info[next] <= 1 {
			break
		}
		x.info[idx] = x.info[next] - 1
		x.keys[idx] = x.keys[next]
		x.values[idx] = x.values[next]
		idx = next
	}
	x.info[idx] = 0
	x.keys[idx] = 0
	x.values[idx] = 0
	x.count--
	return old
}

// Each calls fn for every entry in bucket order until fn returns false.
func (x *Index) Each(fn func(key, value uint64) bool) {
	for i, in := range x.info {
		if in != 0 && !fn(x.keys[i], x.values[i]) {
			return
		}
	}
}

// MaxDistance returns the largest probe distance among occupied buckets.
func (x *Index) MaxDistance() int {
	m := 0
	for _, in := range x.info {
		if in != 0 && int(in)-1 > m {
			m = int(in) - 1
		}
	}
	return m
}

// Clear removes every entry. Capacity is kept.
func (x *Index) Clear() {
	x.tbl.Reset()
	x.tbl.SetRowCount(len(x.info))
	x.count = 0
}
