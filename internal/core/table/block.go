package table

import "fmt"

// Block is one column's raw row data as seen by a persistence walker.
type Block struct {
	Label string
	Size  int
	Data  []byte
}

// Blocks visits every column in order with RowCount()*Size bytes of data.
// The Data slices alias the table and must not be retained.
func (t *Table) Blocks(visit func(Block) error) error {
	for c := range t.cols {
		spec := t.cols[c].spec
		if err := visit(Block{Label: spec.Name, Size: spec.Size, Data: t.Bytes(c)}); err != nil {
			return fmt.Errorf("column %s: %w", spec.Name, err)
		}
	}
	return nil
}

// Restore sets the row count to rows and asks fill to populate every column.
// fill receives blocks sized exactly rows*Size; there is no versioning, so the
// data must have been written by a table with the same schema.
func (t *Table) Restore(rows int, fill func(Block) error) error {
	t.Reset()
	t.SetRowCount(rows)
	for c := range t.cols {
		spec := t.cols[c].spec
		if err := fill(Block{Label: spec.Name, Size: spec.Size, Data: t.Bytes(c)}); err != nil {
			return fmt.Errorf("column %s: %w", spec.Name, err)
		}
	}
	return nil
}

// SameSchema reports whether specs matches the table's columns exactly.
func (t *Table) SameSchema(specs []ColumnSpec) bool {
	if len(specs) != len(t.cols) {
		return false
	}
	for i, s := range specs {
		if t.cols[i].spec != s {
			return false
		}
	}
	return true
}

// Named pairs a table with the label it is persisted under.
type Named struct {
	Name  string
	Table *Table
}
