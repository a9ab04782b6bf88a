package table

import (
	"fmt"
	"strconv"
)

// Operator is a row filter comparison.
type Operator string

// Supported row filter operators.
const (
	OpGreater  Operator = ">"
	OpLess     Operator = "<"
	OpEqual    Operator = "=="
	OpNotEqual Operator = "!="
)

// ParseOperator validates a textual operator.
func ParseOperator(s string) (Operator, error) {
	switch op := Operator(s); op {
	case OpGreater, OpLess, OpEqual, OpNotEqual:
		return op, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOperator, s)
	}
}

// Filter selects rows by comparing one column against a constant.
// Values are compared numerically when both sides parse as numbers and
// lexically otherwise. Null cells never match.
type Filter struct {
	Column   string
	Operator Operator
	Value    string
}

// Validate checks the operator and that the column exists in t.
func (f Filter) Validate(t *Table) error {
	if _, err := ParseOperator(string(f.Operator)); err != nil {
		return err
	}
	if !t.Has(f.Column) {
		return fmt.Errorf("row filter: %w: %q", ErrColumnNotFound, f.Column)
	}
	return nil
}

// Split partitions t into the rows matching the filter and the rest.
func (f Filter) Split(t *Table) (matched, rest *Table, err error) {
	if err := f.Validate(t); err != nil {
		return nil, nil, err
	}
	idx := t.Index(f.Column)
	matched, rest = t.Split(func(row []string) bool {
		return f.match(row[idx])
	})
	return matched, rest, nil
}

func (f Filter) match(cell string) bool {
	if IsNull(cell) {
		return false
	}
	cmp := compare(cell, f.Value)
	switch f.Operator {
	case OpGreater:
		return cmp > 0
	case OpLess:
		return cmp < 0
	case OpEqual:
		return cmp == 0
	case OpNotEqual:
		return cmp != 0
	default:
		return false
	}
}

func compare(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
