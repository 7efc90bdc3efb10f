package table

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vec struct{ X, Y, Z float32 }

func newTestTable(capacity int) *Table {
	return New(capacity, Column[uint32]("id"), Column[vec]("pos"))
}

func TestNewRoundsCapacity(t *testing.T) {
	for _, tt := range []struct {
		min, want int
	}{
		{0, MinCapacity},
		{1, MinCapacity},
		{16, 16},
		{17, 32},
		{100, 112},
	} {
		tbl := newTestTable(tt.min)
		assert.Equal(t, tt.want, tbl.Cap(), "min=%d", tt.min)
		assert.Zero(t, tbl.RowCount())
	}
}

func TestPushRowGrowsAndKeepsData(t *testing.T) {
	tbl := newTestTable(16)
	for i := 0; i < 100; i++ {
		row := tbl.PushRow()
		require.Equal(t, i, row)
		View[uint32](tbl, 0)[row] = uint32(i * 3)
		View[vec](tbl, 1)[row] = vec{float32(i), 1, 2}
	}
	assert.Equal(t, 100, tbl.RowCount())
	assert.Equal(t, 128, tbl.Cap())

	ids := View[uint32](tbl, 0)
	pos := View[vec](tbl, 1)
	for i := 0; i < 100; i++ {
		assert.Equal(t, uint32(i*3), ids[i])
		assert.Equal(t, vec{float32(i), 1, 2}, pos[i])
	}
}

func TestClearAndCopyRow(t *testing.T) {
	tbl := newTestTable(16)
	sentinel := tbl.PushRow()
	View[uint32](tbl, 0)[sentinel] = 7
	a := tbl.PushRow()
	b := tbl.PushRow()
	View[uint32](tbl, 0)[a] = 11
	View[vec](tbl, 1)[a] = vec{1, 2, 3}
	View[uint32](tbl, 0)[b] = 22

	tbl.CopyRow(b, a)
	assert.Equal(t, uint32(11), View[uint32](tbl, 0)[b])
	assert.Equal(t, vec{1, 2, 3}, View[vec](tbl, 1)[b])

	tbl.ClearRow(a)
	assert.Equal(t, uint32(7), View[uint32](tbl, 0)[a])
	assert.Equal(t, vec{}, View[vec](tbl, 1)[a])
}

func TestPushRowIsZeroedAfterPop(t *testing.T) {
	tbl := newTestTable(16)
	row := tbl.PushRow()
	View[uint32](tbl, 0)[row] = 99
	tbl.PopRow()
	row = tbl.PushRow()
	assert.Zero(t, View[uint32](tbl, 0)[row])
}

func TestViewSizeMismatchPanics(t *testing.T) {
	tbl := newTestTable(16)
	assert.Panics(t, func() { View[uint64](tbl, 0) })
}

func TestCapacityCeilingIsFatal(t *testing.T) {
	tbl := New(16, Column[uint8]("b"))
	assert.Panics(t, func() { tbl.EnsureCapacity(MaxCapacity + 1) })
	assert.Panics(t, func() { New(16) })
	assert.Panics(t, func() { tbl.PopRow() })
}

func TestBlocksRoundTrip(t *testing.T) {
	src := newTestTable(16)
	for i := 0; i < 40; i++ {
		row := src.PushRow()
		View[uint32](src, 0)[row] = uint32(i)
		View[vec](src, 1)[row] = vec{float32(i), float32(-i), 0.5}
	}

	saved := map[string][]byte{}
	require.NoError(t, src.Blocks(func(b Block) error {
		assert.Len(t, b.Data, src.RowCount()*b.Size)
		saved[b.Label] = append([]byte(nil), b.Data...)
		return nil
	}))

	dst := newTestTable(16)
	require.True(t, dst.SameSchema(src.Schema()))
	require.NoError(t, dst.Restore(src.RowCount(), func(b Block) error {
		copy(b.Data, saved[b.Label])
		return nil
	}))
	assert.Equal(t, src.RowCount(), dst.RowCount())
	assert.Equal(t, View[vec](src, 1)[:40], View[vec](dst, 1)[:40])
	assert.Equal(t, View[uint32](src, 0)[:40], View[uint32](dst, 0)[:40])
}

func TestBlocksPropagatesErrors(t *testing.T) {
	tbl := newTestTable(16)
	boom := errors.New("boom")
	err := tbl.Blocks(func(Block) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, tbl.SameSchema([]ColumnSpec{{Name: "id", Size: 4}}))
	assert.Equal(t, 1, tbl.ColumnIndex("pos"))
	assert.Equal(t, -1, tbl.ColumnIndex("missing"))
}
