package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/l1jgo/simcore/internal/core/table"
)

// Store saves and loads named tables as raw column blocks. There is no
// versioning: a load only succeeds into tables whose schema matches the
// saved one exactly.
type Store interface {
	Save(ctx context.Context, name string, tables []table.Named) error
	Load(ctx context.Context, name string, tables []table.Named) error
}

// ErrNoSnapshot is returned by Load when nothing was saved under the name.
var ErrNoSnapshot = errors.New("snapshot not found")

// Manifest describes a saved snapshot.
type Manifest struct {
	Name    string          `yaml:"name"`
	SavedAt time.Time       `yaml:"saved_at"`
	Tables  []TableManifest `yaml:"tables"`
}

// TableManifest records the shape of one saved table.
type TableManifest struct {
	Name    string             `yaml:"name"`
	Rows    int                `yaml:"rows"`
	Columns []table.ColumnSpec `yaml:"columns"`
}

func newManifest(name string, tables []table.Named) Manifest {
	m := Manifest{Name: name, SavedAt: time.Now().UTC(), Tables: make([]TableManifest, 0, len(tables))}
	for _, nt := range tables {
		m.Tables = append(m.Tables, TableManifest{
			Name:    nt.Name,
			Rows:    nt.Table.RowCount(),
			Columns: nt.Table.Schema(),
		})
	}
	return m
}

func (m *Manifest) lookup(name string) (*TableManifest, bool) {
	for i := range m.Tables {
		if m.Tables[i].Name == name {
			return &m.Tables[i], true
		}
	}
	return nil, false
}

// restore fills every table from the blocks described by m. read must fill
// blk.Data with the saved bytes of column blk.Label of table tbl.
func restore(m *Manifest, tables []table.Named, read func(tbl string, blk table.Block) error) error {
	for _, nt := range tables {
		tm, ok := m.lookup(nt.Name)
		if !ok {
			return fmt.Errorf("snapshot %s: table %s missing", m.Name, nt.Name)
		}
		if !nt.Table.SameSchema(tm.Columns) {
			return fmt.Errorf("snapshot %s: table %s: schema mismatch", m.Name, nt.Name)
		}
		if err := nt.Table.Restore(tm.Rows, func(blk table.Block) error {
			return read(nt.Name, blk)
		}); err != nil {
			return fmt.Errorf("snapshot %s: table %s: %w", m.Name, nt.Name, err)
		}
	}
	return nil
}
