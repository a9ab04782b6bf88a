package kanon

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/nao1215/pseudokit/internal/table"
)

// Method is an aggregation method.
type Method string

// Aggregation methods.
const (
	MethodNumber       Method = "number"
	MethodDatesToYears Method = "dates-to-years"
)

var (
	// ErrInvalidBins is returned when a range cannot produce at least two bins.
	ErrInvalidBins = errors.New("range does not produce matching bins and labels")

	// ErrUnknownMethod is returned for an unsupported aggregation method.
	ErrUnknownMethod = errors.New("unknown aggregation method")
)

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodNumber, MethodDatesToYears:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// MethodForKind picks the aggregation method for a column kind. Text
// columns cannot be aggregated.
func MethodForKind(kind table.Kind) (Method, bool) {
	switch kind {
	case table.Integer, table.Float:
		return MethodNumber, true
	case table.Date:
		return MethodDatesToYears, true
	default:
		return "", false
	}
}

// Bins returns the right-closed bin edges [0, r, 2r, ..., max] and their
// labels "0-r", "r+1-2r", ... for values up to max.
func Bins(maxValue float64, r int) ([]float64, []string, error) {
	if r < 1 || maxValue <= 0 || math.IsInf(maxValue, 0) || math.IsNaN(maxValue) {
		return nil, nil, fmt.Errorf("%w: max %v, range %d", ErrInvalidBins, maxValue, r)
	}
	edges := []float64{0}
	var labels []string
	steps := int(math.Ceil(maxValue / float64(r)))
	upper := 0
	for range steps {
		upper += r
		if float64(upper) >= maxValue {
			continue
		}
		edges = append(edges, float64(upper))
		if len(labels) == 0 {
			labels = append(labels, fmt.Sprintf("0-%d", upper))
		}
		labels = append(labels, fmt.Sprintf("%d-%d", upper+1, upper+r))
	}
	if len(labels) == len(edges) {
		edges = append(edges, maxValue)
	}
	if len(labels) == 0 || len(edges) != len(labels)+1 {
		return nil, nil, fmt.Errorf("%w: max %v, range %d", ErrInvalidBins, maxValue, r)
	}
	return edges, labels, nil
}

// label returns the label of the bin (edges[i], edges[i+1]] holding v, or
// the empty string when v is outside every bin.
func label(v float64, edges []float64, labels []string) string {
	for i := range labels {
		if v > edges[i] && v <= edges[i+1] {
			return labels[i]
		}
	}
	return ""
}

// Aggregate replaces column with coarse ranges. MethodNumber bins numeric
// values by rangeSize; MethodDatesToYears reduces dates to years and bins
// the years unless rangeSize is 1. Nulls and values outside every bin
// (zero or negative) become null.
func Aggregate(t *table.Table, column string, method Method, rangeSize int) (*table.Table, error) {
	if _, err := ParseMethod(string(method)); err != nil {
		return nil, err
	}
	values, err := t.Column(column)
	if err != nil {
		return nil, err
	}

	numbers := make([]float64, len(values))
	present := make([]bool, len(values))
	for i, v := range values {
		if table.IsNull(v) {
			continue
		}
		switch method {
		case MethodNumber:
			f, err := table.ParseFloat(v)
			if err != nil {
				return nil, fmt.Errorf("column %s row %d: %q is not a number", column, i, v)
			}
			numbers[i] = f
		case MethodDatesToYears:
			ts, err := table.ParseDate(v)
			if err != nil {
				return nil, fmt.Errorf("column %s row %d: %q is not a date", column, i, v)
			}
			numbers[i] = float64(ts.Year())
		}
		present[i] = true
	}

	out := make([]string, len(values))
	if !slices.Contains(present, true) {
		return t.Clone(), nil
	}
	if method == MethodDatesToYears && rangeSize == 1 {
		for i := range values {
			if present[i] {
				out[i] = strconv.Itoa(int(numbers[i]))
			}
		}
	} else {
		maxValue := math.Inf(-1)
		for i, n := range numbers {
			if present[i] && n > maxValue {
				maxValue = n
			}
		}
		edges, labels, err := Bins(maxValue, rangeSize)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", column, err)
		}
		for i := range values {
			if present[i] {
				out[i] = label(numbers[i], edges, labels)
			}
		}
	}

	b := table.NewBuilder(t)
	if err := b.Replace(column, column, out); err != nil {
		return nil, err
	}
	return b.Build(), nil
}
