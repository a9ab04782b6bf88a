package mapping

import (
	"fmt"

	"github.com/nao1215/pseudokit/internal/keystore"
	"github.com/nao1215/pseudokit/internal/table"
)

// Record pairs one original value with its pseudonym.
type Record struct {
	Original  string
	Pseudonym string
}

// Table is the ordered mapping of one column or text category.
type Table struct {
	// Column is the original column or category name.
	Column  string
	Records []Record
	// Encrypted is true when Original holds ciphertext.
	Encrypted bool
}

// Tag returns the name of the pseudonym column, "Index_<column>".
func Tag(column string) string {
	return keystore.TagPrefix + column
}

// FileName returns the artifact name of the mapping for column.
func FileName(column string) string {
	return "mapping_output_" + column + ".csv"
}

// Tag returns the pseudonym column name of m.
func (m *Table) Tag() string {
	return Tag(m.Column)
}

// Len returns the number of records.
func (m *Table) Len() int {
	return len(m.Records)
}

// Pseudonyms returns the pseudonym side in order.
func (m *Table) Pseudonyms() []string {
	out := make([]string, len(m.Records))
	for i, r := range m.Records {
		out[i] = r.Pseudonym
	}
	return out
}

// Originals returns the original side in order.
func (m *Table) Originals() []string {
	out := make([]string, len(m.Records))
	for i, r := range m.Records {
		out[i] = r.Original
	}
	return out
}

// Filter returns the records whose pseudonym is in keep, in order.
func (m *Table) Filter(keep map[string]struct{}) *Table {
	out := &Table{Column: m.Column, Encrypted: m.Encrypted}
	for _, r := range m.Records {
		if _, ok := keep[r.Pseudonym]; ok {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// New pairs originals and pseudonyms position by position.
func New(column string, originals, pseudonyms []string) (*Table, error) {
	if len(originals) != len(pseudonyms) {
		return nil, fmt.Errorf("mapping %s: %d originals for %d pseudonyms", column, len(originals), len(pseudonyms))
	}
	m := &Table{Column: column, Records: make([]Record, len(originals))}
	for i := range originals {
		m.Records[i] = Record{Original: originals[i], Pseudonym: pseudonyms[i]}
	}
	return m, nil
}

// ToTable renders m as a two-column table, pseudonyms first.
func (m *Table) ToTable() *table.Table {
	rows := make([][]string, len(m.Records))
	for i, r := range m.Records {
		rows[i] = []string{r.Pseudonym, r.Original}
	}
	return table.MustNew([]string{m.Tag(), m.Column}, rows)
}

// FromTable reads the mapping of column from a table holding the
// "Index_<column>" and "<column>" columns.
func FromTable(t *table.Table, column string) (*Table, error) {
	pseudonyms, err := t.Column(Tag(column))
	if err != nil {
		return nil, fmt.Errorf("mapping %s: %w", column, err)
	}
	originals, err := t.Column(column)
	if err != nil {
		return nil, fmt.Errorf("mapping %s: %w", column, err)
	}
	return New(column, originals, pseudonyms)
}
