package persist

import (
	"context"
	"fmt"

	"github.com/l1jgo/simcore/internal/core/table"
)

// SnapshotRepo keeps snapshots in PostgreSQL, one bytea row per column.
type SnapshotRepo struct {
	db *DB
}

var _ Store = (*SnapshotRepo)(nil)

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save replaces the snapshot atomically in a single transaction.
func (r *SnapshotRepo) Save(ctx context.Context, name string, tables []table.Named) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("snapshot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO snapshots (name, saved_at) VALUES ($1, now())
		 ON CONFLICT (name) DO UPDATE SET saved_at = EXCLUDED.saved_at`,
		name,
	); err != nil {
		return fmt.Errorf("snapshot upsert: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM snapshot_blocks WHERE snapshot = $1`, name); err != nil {
		return fmt.Errorf("snapshot clear: %w", err)
	}

	for _, nt := range tables {
		rows := nt.Table.RowCount()
		ord := 0
		err := nt.Table.Blocks(func(blk table.Block) error {
			_, err := tx.Exec(ctx,
				`INSERT INTO snapshot_blocks (snapshot, tbl, col, ord, elem_size, row_count, data)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				name, nt.Name, blk.Label, ord, blk.Size, rows, blk.Data,
			)
			ord++
			return err
		})
		if err != nil {
			return fmt.Errorf("snapshot insert %s: %w", nt.Name, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *SnapshotRepo) Load(ctx context.Context, name string, tables []table.Named) error {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT tbl, col, elem_size, row_count, data FROM snapshot_blocks
		 WHERE snapshot = $1 ORDER BY tbl, ord`,
		name,
	)
	if err != nil {
		return fmt.Errorf("snapshot query: %w", err)
	}
	defer rows.Close()

	m := &Manifest{Name: name}
	blocks := make(map[string][]byte)
	for rows.Next() {
		var tbl, col string
		var size, count int
		var data []byte
		if err := rows.Scan(&tbl, &col, &size, &count, &data); err != nil {
			return fmt.Errorf("snapshot scan: %w", err)
		}
		tm, ok := m.lookup(tbl)
		if !ok {
			m.Tables = append(m.Tables, TableManifest{Name: tbl, Rows: count})
			tm = &m.Tables[len(m.Tables)-1]
		}
		tm.Columns = append(tm.Columns, table.ColumnSpec{Name: col, Size: size})
		blocks[tbl+"."+col] = data
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("snapshot rows: %w", err)
	}
	if len(m.Tables) == 0 {
		return fmt.Errorf("load %s: %w", name, ErrNoSnapshot)
	}

	return restore(m, tables, func(tbl string, blk table.Block) error {
		data := blocks[tbl+"."+blk.Label]
		if len(data) != len(blk.Data) {
			return fmt.Errorf("column %s holds %d bytes, want %d", blk.Label, len(data), len(blk.Data))
		}
		copy(blk.Data, data)
		return nil
	})
}
