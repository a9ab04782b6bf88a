package table

import (
	"fmt"
	"slices"
)

// Table is an ordered set of named text columns stored row-major.
type Table struct {
	columns []string
	rows    [][]string
}

// New creates a table from a header and rows. Rows are copied.
func New(columns []string, rows [][]string) (*Table, error) {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, ok := seen[c]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c)
		}
		seen[c] = struct{}{}
	}

	t := &Table{
		columns: slices.Clone(columns),
		rows:    make([][]string, 0, len(rows)),
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrRaggedRow, i, len(r), len(columns))
		}
		t.rows = append(t.rows, slices.Clone(r))
	}
	return t, nil
}

// MustNew is like New but panics on error. Intended for tests and literals.
func MustNew(columns []string, rows [][]string) *Table {
	t, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Width returns the number of columns.
func (t *Table) Width() int {
	return len(t.columns)
}

// Index returns the position of the named column or -1.
func (t *Table) Index(name string) int {
	return slices.Index(t.columns, name)
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	return t.Index(name) >= 0
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []string {
	return slices.Clone(t.rows[i])
}

// Rows returns a deep copy of all rows.
func (t *Table) Rows() [][]string {
	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = slices.Clone(r)
	}
	return out
}

// Cell returns the value at row i of the named column.
func (t *Table) Cell(i int, column string) (string, error) {
	idx := t.Index(column)
	if idx < 0 {
		return "", fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}
	return t.rows[i][idx], nil
}

// Column returns a copy of the values of the named column.
func (t *Table) Column(name string) ([]string, error) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[idx]
	}
	return out, nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	return &Table{columns: t.Columns(), rows: t.Rows()}
}

// Equal reports whether both tables have the same header and cells in the same order.
func (t *Table) Equal(other *Table) bool {
	if other == nil || !slices.Equal(t.columns, other.columns) || len(t.rows) != len(other.rows) {
		return false
	}
	for i := range t.rows {
		if !slices.Equal(t.rows[i], other.rows[i]) {
			return false
		}
	}
	return true
}

// IsNull reports whether a cell value is the null marker.
func IsNull(v string) bool {
	return v == ""
}

// DropNulls removes rows whose cells are all null and then columns whose
// cells are all null. It returns ErrEmptyDataset when no row survives.
func (t *Table) DropNulls() (*Table, error) {
	rows := make([][]string, 0, len(t.rows))
	for _, r := range t.rows {
		if !slices.ContainsFunc(r, func(v string) bool { return !IsNull(v) }) {
			continue
		}
		rows = append(rows, slices.Clone(r))
	}
	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}

	keep := make([]int, 0, len(t.columns))
	for c := range t.columns {
		for _, r := range rows {
			if !IsNull(r[c]) {
				keep = append(keep, c)
				break
			}
		}
	}

	out := &Table{columns: make([]string, 0, len(keep)), rows: make([][]string, len(rows))}
	for _, c := range keep {
		out.columns = append(out.columns, t.columns[c])
	}
	for i, r := range rows {
		nr := make([]string, 0, len(keep))
		for _, c := range keep {
			nr = append(nr, r[c])
		}
		out.rows[i] = nr
	}
	return out, nil
}

// Split partitions the rows by pred, keeping the relative order in each part.
func (t *Table) Split(pred func(row []string) bool) (matched, rest *Table) {
	matched = &Table{columns: t.Columns()}
	rest = &Table{columns: t.Columns()}
	for _, r := range t.rows {
		if pred(r) {
			matched.rows = append(matched.rows, slices.Clone(r))
		} else {
			rest.rows = append(rest.rows, slices.Clone(r))
		}
	}
	return matched, rest
}

// Select returns the rows at the given indices, in the given order.
func (t *Table) Select(indices []int) *Table {
	out := &Table{columns: t.Columns(), rows: make([][]string, 0, len(indices))}
	for _, i := range indices {
		out.rows = append(out.rows, slices.Clone(t.rows[i]))
	}
	return out
}

// Concat appends the rows of other below the rows of t. Both tables must
// have the same header.
func (t *Table) Concat(other *Table) (*Table, error) {
	if !slices.Equal(t.columns, other.columns) {
		return nil, fmt.Errorf("cannot concatenate tables with headers %v and %v", t.columns, other.columns)
	}
	out := t.Clone()
	for _, r := range other.rows {
		out.rows = append(out.rows, slices.Clone(r))
	}
	return out, nil
}
