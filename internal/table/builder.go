package table

import (
	"fmt"
	"slices"
)

// Builder assembles a new table from a base table by swapping whole columns.
// Each column keeps the position it had in the base table, so replacing a
// column never shifts its neighbours.
type Builder struct {
	base     *Table
	names    []string
	replaced map[int][]string
}

// NewBuilder starts a builder over t. t itself is never modified.
func NewBuilder(t *Table) *Builder {
	return &Builder{
		base:     t,
		names:    t.Columns(),
		replaced: make(map[int][]string),
	}
}

// Replace substitutes the column currently named column with values under
// newName, at the same position.
func (b *Builder) Replace(column, newName string, values []string) error {
	pos := slices.Index(b.names, column)
	if pos < 0 {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}
	if len(values) != b.base.Len() {
		return fmt.Errorf("column %q: got %d values for %d rows", column, len(values), b.base.Len())
	}
	if other := slices.Index(b.names, newName); other >= 0 && other != pos {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, newName)
	}
	b.names[pos] = newName
	b.replaced[pos] = slices.Clone(values)
	return nil
}

// Build materializes the table.
func (b *Builder) Build() *Table {
	out := &Table{columns: slices.Clone(b.names), rows: make([][]string, b.base.Len())}
	for i, r := range b.base.rows {
		nr := slices.Clone(r)
		for pos, values := range b.replaced {
			nr[pos] = values[i]
		}
		out.rows[i] = nr
	}
	return out
}
