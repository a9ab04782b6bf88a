package kanon

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/nao1215/pseudokit/internal/table"
)

// MaskToken replaces values that cannot be generalized.
const MaskToken = "*"

var (
	// ErrInvalidK is returned for k < 1.
	ErrInvalidK = errors.New("k must be at least 1")

	// ErrInvalidDepth is returned for a negative depth.
	ErrInvalidDepth = errors.New("depth must not be negative")
)

// Options configures Generalize.
type Options struct {
	// Depths maps each quasi-identifier column to its rounding depth.
	Depths map[string]int
	K      int
	// MaskOthers replaces every column outside Depths with MaskToken.
	MaskOthers bool
}

// Result is the outcome of Generalize.
type Result struct {
	Table *table.Table
	// Suppressed counts rows dropped because their group was smaller than K.
	Suppressed int
}

// Generalize rounds the depth columns, masks the others when requested and
// keeps only rows whose depth-column combination occurs at least K times.
// Row order is preserved. Rows with a null in a depth column are dropped.
func Generalize(t *table.Table, opts Options) (*Result, error) {
	if opts.K < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, opts.K)
	}
	for col, d := range opts.Depths {
		if !t.Has(col) {
			return nil, fmt.Errorf("%w: %q", table.ErrColumnNotFound, col)
		}
		if d < 0 {
			return nil, fmt.Errorf("%w: %s=%d", ErrInvalidDepth, col, d)
		}
	}

	schema := table.InferSchema(t)
	b := table.NewBuilder(t)
	var keyCols []string
	for _, col := range t.Columns() {
		values, err := t.Column(col)
		if err != nil {
			return nil, err
		}
		depth, quasi := opts.Depths[col]
		switch {
		case quasi:
			keyCols = append(keyCols, col)
			if values, err = generalizeColumn(values, schema[col], depth); err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
		case opts.MaskOthers:
			for i := range values {
				values[i] = MaskToken
			}
		default:
			continue
		}
		if err := b.Replace(col, col, values); err != nil {
			return nil, err
		}
	}
	generalized := b.Build()

	keyIdx := make([]int, len(keyCols))
	for i, c := range keyCols {
		keyIdx[i] = generalized.Index(c)
	}
	counts := make(map[string]int)
	keys := make([]string, generalized.Len())
	for i := range keys {
		row := generalized.Row(i)
		parts := make([]string, len(keyIdx))
		null := false
		for j, idx := range keyIdx {
			if table.IsNull(row[idx]) {
				null = true
				break
			}
			parts[j] = row[idx]
		}
		if null {
			keys[i] = ""
			continue
		}
		keys[i] = "\x00" + strings.Join(parts, "\x00")
		counts[keys[i]]++
	}

	var keep []int
	for i, k := range keys {
		if k != "" && counts[k] >= opts.K {
			keep = append(keep, i)
		}
	}
	return &Result{
		Table:      generalized.Select(keep),
		Suppressed: generalized.Len() - len(keep),
	}, nil
}

func generalizeColumn(values []string, kind table.Kind, depth int) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		if table.IsNull(v) {
			continue
		}
		var n int64
		switch kind {
		case table.Integer:
			x, err := table.ParseInt(v)
			if err != nil {
				return nil, err
			}
			n = x
		case table.Float:
			f, err := table.ParseFloat(v)
			if err != nil {
				return nil, err
			}
			n = int64(math.RoundToEven(f))
		case table.Date:
			ts, err := table.ParseDate(v)
			if err != nil {
				return nil, err
			}
			n = int64(ts.Year())
		default:
			out[i] = MaskToken
			continue
		}
		out[i] = floorPow10(n, depth)
	}
	return out, nil
}

// maxDepth is the largest depth whose power of ten fits in an int64.
const maxDepth = 18

// floorPow10 rounds n down to a multiple of 10^depth. The result is built
// as text so that it stays exact when it does not fit in an int64.
func floorPow10(n int64, depth int) string {
	var q int64
	switch {
	case depth <= maxDepth:
		p := int64(1)
		for range depth {
			p *= 10
		}
		q = floorDiv(n, p)
	case n < 0:
		q = -1
	}
	if q == 0 {
		return "0"
	}
	return table.FormatInt(q) + strings.Repeat("0", depth)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Verify reports whether every row of t has at least k-1 other rows with
// identical values in all columns. Null equals null. The check compares
// every pair of rows.
func Verify(t *table.Table, k int) bool {
	rows := t.Rows()
	for _, r := range rows {
		n := 0
		for _, other := range rows {
			if slices.Equal(r, other) {
				n++
			}
		}
		if n < k {
			return false
		}
	}
	return true
}
