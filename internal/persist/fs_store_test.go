package persist

import (
	"context"
	"io"
	"testing"

	"github.com/l1jgo/simcore/internal/core/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-billy.v4/memfs"
	"gopkg.in/src-d/go-billy.v4/util"
)

type sample struct {
	A uint32
	B float32
}

func sampleTables(rows int) []table.Named {
	a := table.New(0, table.Column[uint32]("id"), table.Column[sample]("payload"))
	b := table.New(0, table.Column[uint16]("index"))
	for i := 0; i < rows; i++ {
		r := a.PushRow()
		table.View[uint32](a, 0)[r] = uint32(i * 3)
		table.View[sample](a, 1)[r] = sample{A: uint32(i), B: float32(i) / 2}
	}
	for i := 0; i < rows/2; i++ {
		r := b.PushRow()
		table.View[uint16](b, 0)[r] = uint16(rows - i)
	}
	return []table.Named{{Name: "alpha", Table: a}, {Name: "beta", Table: b}}
}

func requireSameTables(t *testing.T, want, got []table.Named) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i].Table.RowCount(), got[i].Table.RowCount(), want[i].Name)
		for c := 0; c < want[i].Table.Columns(); c++ {
			assert.Equal(t, want[i].Table.Bytes(c), got[i].Table.Bytes(c), "%s column %d", want[i].Name, c)
		}
	}
}

func TestFSStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New()
	s := NewFSStore(fs, nil)

	src := sampleTables(100)
	require.NoError(t, s.Save(ctx, "snap", src))

	dst := sampleTables(3)
	require.NoError(t, s.Load(ctx, "snap", dst))
	requireSameTables(t, src, dst)

	m, err := s.Manifest("snap")
	require.NoError(t, err)
	assert.Equal(t, "snap", m.Name)
	require.Len(t, m.Tables, 2)
	assert.Equal(t, 100, m.Tables[0].Rows)
	assert.Equal(t, 50, m.Tables[1].Rows)

	f, err := fs.Open("snap/alpha.payload.bin")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Len(t, data, 100*8)

	// Saving again over the same name replaces it.
	src = sampleTables(10)
	require.NoError(t, s.Save(ctx, "snap", src))
	require.NoError(t, s.Load(ctx, "snap", dst))
	requireSameTables(t, src, dst)
}

func TestFSStoreDirRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewDirStore(t.TempDir(), nil)
	src := sampleTables(33)
	require.NoError(t, s.Save(ctx, "disk", src))
	dst := sampleTables(0)
	require.NoError(t, s.Load(ctx, "disk", dst))
	requireSameTables(t, src, dst)
}

func TestFSStoreMissingSnapshot(t *testing.T) {
	s := NewFSStore(memfs.New(), nil)
	err := s.Load(context.Background(), "nope", sampleTables(1))
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestFSStoreSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewFSStore(memfs.New(), nil)
	require.NoError(t, s.Save(ctx, "snap", sampleTables(4)))

	other := []table.Named{{Name: "alpha", Table: table.New(0, table.Column[uint64]("id"))}}
	err := s.Load(ctx, "snap", other)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema mismatch")

	missing := []table.Named{{Name: "gamma", Table: table.New(0, table.Column[uint64]("id"))}}
	err = s.Load(ctx, "snap", missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestFSStoreTruncatedBlock(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New()
	s := NewFSStore(fs, nil)
	require.NoError(t, s.Save(ctx, "snap", sampleTables(8)))
	require.NoError(t, util.WriteFile(fs, "snap/alpha.id.bin", []byte{1, 2, 3}, 0o644))
	assert.Error(t, s.Load(ctx, "snap", sampleTables(0)))

	require.NoError(t, util.WriteFile(fs, "snap/alpha.id.bin", make([]byte, 8*4+1), 0o644))
	assert.Error(t, s.Load(ctx, "snap", sampleTables(0)))
}

func TestFSStoreHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewFSStore(memfs.New(), nil)
	assert.ErrorIs(t, s.Save(ctx, "snap", sampleTables(2)), context.Canceled)
}
