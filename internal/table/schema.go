package table

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the inferred type of a column.
type Kind int

const (
	// Text is the fallback kind.
	Text Kind = iota
	// Integer columns parse as base-10 integers.
	Integer
	// Float columns parse as floating point numbers.
	Float
	// Date columns parse with one of DateLayouts.
	Date
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Date:
		return "date"
	default:
		return "text"
	}
}

// DateLayouts are the layouts tried when inferring Date columns.
var DateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	time.DateTime,
	"2006/01/02",
	"02.01.2006",
}

// Schema maps a column name to its inferred kind.
type Schema map[string]Kind

// InferSchema inspects every non-null cell and picks the narrowest kind
// that all of them satisfy. A column with only nulls is Text.
func InferSchema(t *Table) Schema {
	s := make(Schema, t.Width())
	for c, name := range t.columns {
		s[name] = inferKind(t.rows, c)
	}
	return s
}

func inferKind(rows [][]string, c int) Kind {
	isInt, isFloat, isDate := true, true, true
	seen := false
	for _, r := range rows {
		v := r[c]
		if IsNull(v) {
			continue
		}
		seen = true
		if isInt {
			if _, err := ParseInt(v); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := ParseFloat(v); err != nil {
				isFloat = false
			}
		}
		if isDate {
			if _, err := ParseDate(v); err != nil {
				isDate = false
			}
		}
	}
	switch {
	case !seen:
		return Text
	case isInt:
		return Integer
	case isFloat:
		return Float
	case isDate:
		return Date
	default:
		return Text
	}
}

// ParseInt parses an integer cell.
func ParseInt(v string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
}

// ParseFloat parses a float cell. NaN and infinities are rejected.
func ParseFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrSyntax
	}
	return f, nil
}

// ParseDate parses a date cell with the first matching layout in DateLayouts.
func ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	var firstErr error
	for _, layout := range DateLayouts {
		ts, err := time.Parse(layout, v)
		if err == nil {
			return ts, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// FormatInt renders an integer the way it is stored in a cell.
func FormatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
