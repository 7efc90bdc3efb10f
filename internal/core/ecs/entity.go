package ecs

import (
	"fmt"

	"github.com/l1jgo/simcore/internal/core/table"
	"go.uber.org/zap"
)

// EntityID packs tag(4) | generation(8) | index(16) into 28 bits.
// Index 0 is the null entity. Generation increments every time an index is
// retired, so a stale handle stops matching once its index has been retired.
type EntityID uint32

const (
	IndexBits      = 16
	GenerationBits = 8
	TagBits        = 4

	MaxIndex = 1<<IndexBits - 1
	MaxTag   = 1<<TagBits - 1

	genShift = IndexBits
	tagShift = IndexBits + GenerationBits
)

// DefaultMinFree is how many retired indices must be queued before reuse.
const DefaultMinFree = 1024

func NewEntityID(index uint32, generation uint8, tag uint8) EntityID {
	return EntityID(uint32(tag)<<tagShift | uint32(generation)<<genShift | index&MaxIndex)
}

func (id EntityID) Index() uint32     { return uint32(id) & MaxIndex }
func (id EntityID) Generation() uint8 { return uint8(uint32(id) >> genShift) }
func (id EntityID) Tag() uint8        { return uint8(uint32(id)>>tagShift) & MaxTag }
func (id EntityID) IsZero() bool      { return id.Index() == 0 }

func (id EntityID) String() string {
	return fmt.Sprintf("entity(%d:%d/%d)", id.Index(), id.Generation(), id.Tag())
}

const (
	slotGeneration = 0
	slotTag        = 1
	slotAlive      = 2
)

// Allocator hands out generational entity handles.
//
// Retired indices queue up in FIFO order and are only reused once more than
// minFree of them are waiting, so a handle cached for a tick by another
// consumer is unlikely to alias a fresh entity. Per-index state lives in a
// table with one row per index (row 0 is the null entity); the retired queue is
// a second table consumed from a head cursor.
type Allocator struct {
	slots   *table.Table
	retired *table.Table
	head    int
	live    int
	minFree int
	log     *zap.Logger
}

func NewAllocator(minFree int, log *zap.Logger) *Allocator {
	if log == nil {
		log = zap.NewNop()
	}
	if minFree < 0 {
		minFree = 0
	}
	a := &Allocator{
		slots: table.New(1024,
			table.Column[uint8]("generation"),
			table.Column[uint8]("tag"),
			table.Column[uint8]("alive"),
		),
		retired: table.New(1024, table.Column[uint16]("index")),
		minFree: minFree,
		log:     log,
	}
	a.slots.PushRow()
	return a
}

// Acquire issues a live handle carrying tag.
func (a *Allocator) Acquire(tag uint8) EntityID {
	if tag > MaxTag {
		panic(fmt.Sprintf("ecs: tag %d exceeds %d", tag, MaxTag))
	}
	var idx uint32
	switch {
	case a.Free() > a.minFree:
		idx = a.popRetired()
	case a.slots.RowCount() <= MaxIndex:
		idx = uint32(a.slots.PushRow())
	case a.Free() > 0:
		// Index space is exhausted; reuse early rather than fail.
		idx = a.popRetired()
	default:
		panic(fmt.Sprintf("ecs: entity index space exhausted (%d live)", a.live))
	}
	table.View[uint8](a.slots, slotTag)[idx] = tag
	table.View[uint8](a.slots, slotAlive)[idx] = 1
	a.live++
	return NewEntityID(idx, table.View[uint8](a.slots, slotGeneration)[idx], tag)
}

// Retire kills id. Retiring a handle that is not live logs and does nothing.
func (a *Allocator) Retire(id EntityID) {
	if !a.Check(id) {
		a.log.Warn("retire of dead entity", zap.Stringer("entity", id))
		return
	}
	idx := id.Index()
	table.View[uint8](a.slots, slotGeneration)[idx]++
	table.View[uint8](a.slots, slotAlive)[idx] = 0
	row := a.retired.PushRow()
	table.View[uint16](a.retired, 0)[row] = uint16(idx)
	a.live--
}

// Check reports whether id is a live handle.
func (a *Allocator) Check(id EntityID) bool {
	idx := id.Index()
	if idx == 0 || int(idx) >= a.slots.RowCount() {
		return false
	}
	return table.View[uint8](a.slots, slotAlive)[idx] == 1 &&
		table.View[uint8](a.slots, slotGeneration)[idx] == id.Generation()
}

// Current returns the live handle that owns index, or 0.
func (a *Allocator) Current(index uint32) EntityID {
	if index == 0 || int(index) >= a.slots.RowCount() || table.View[uint8](a.slots, slotAlive)[index] == 0 {
		return 0
	}
	return NewEntityID(index,
		table.View[uint8](a.slots, slotGeneration)[index],
		table.View[uint8](a.slots, slotTag)[index])
}

// Live returns the number of live handles.
func (a *Allocator) Live() int { return a.live }

// Free returns the number of retired indices waiting for reuse.
func (a *Allocator) Free() int { return a.retired.RowCount() - a.head }

// HighWater returns one past the largest index ever issued.
func (a *Allocator) HighWater() uint32 { return uint32(a.slots.RowCount()) }

func (a *Allocator) popRetired() uint32 {
	idx := uint32(table.View[uint16](a.retired, 0)[a.head])
	a.head++
	if a.head >= table.MinCapacity && a.head*2 >= a.retired.RowCount() {
		a.compact()
	}
	return idx
}

func (a *Allocator) compact() {
	if a.head == 0 {
		return
	}
	queue := table.View[uint16](a.retired, 0)
	n := copy(queue, queue[a.head:a.retired.RowCount()])
	a.retired.SetRowCount(n)
	a.head = 0
}

// Tables exposes the allocator state for block persistence.
func (a *Allocator) Tables() []table.Named {
	a.compact()
	return []table.Named{
		{Name: "entity.slots", Table: a.slots},
		{Name: "entity.retired", Table: a.retired},
	}
}

// Restored recomputes derived counters after Tables were filled from a dump.
func (a *Allocator) Restored() {
	if a.slots.RowCount() == 0 {
		a.slots.PushRow()
	}
	a.head = 0
	a.live = 0
	alive := table.View[uint8](a.slots, slotAlive)
	for i := 1; i < a.slots.RowCount(); i++ {
		if alive[i] == 1 {
			a.live++
		}
	}
}
