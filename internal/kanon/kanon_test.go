package kanon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/pseudokit/internal/table"
)

func people(t *testing.T) *table.Table {
	t.Helper()
	return table.MustNew(
		[]string{"age", "zip", "name"},
		[][]string{
			{"23", "12345", "ann"},
			{"27", "12399", "bob"},
			{"25", "12311", "cid"},
			{"41", "12345", "dan"},
			{"44", "12302", "eve"},
			{"67", "99999", "fay"},
		},
	)
}

func TestGeneralize(t *testing.T) {
	t.Parallel()

	t.Run("rounds quasi identifiers and suppresses small groups", func(t *testing.T) {
		t.Parallel()
		res, err := Generalize(people(t), Options{
			Depths:     map[string]int{"age": 1, "zip": 2},
			K:          2,
			MaskOthers: true,
		})
		require.NoError(t, err)
		want := table.MustNew(
			[]string{"age", "zip", "name"},
			[][]string{
				{"20", "12300", "*"},
				{"20", "12300", "*"},
				{"20", "12300", "*"},
				{"40", "12300", "*"},
				{"40", "12300", "*"},
			},
		)
		assert.True(t, want.Equal(res.Table), "got %v", res.Table.Rows())
		assert.Equal(t, 1, res.Suppressed)
		assert.True(t, Verify(res.Table, 2))
	})

	t.Run("other columns are kept without masking", func(t *testing.T) {
		t.Parallel()
		res, err := Generalize(people(t), Options{Depths: map[string]int{"age": 1}, K: 1})
		require.NoError(t, err)
		names, err := res.Table.Column("name")
		require.NoError(t, err)
		assert.Equal(t, []string{"ann", "bob", "cid", "dan", "eve", "fay"}, names)
		assert.Zero(t, res.Suppressed)
	})

	t.Run("floats are rounded before generalizing", func(t *testing.T) {
		t.Parallel()
		in := table.MustNew([]string{"score"}, [][]string{{"2.5"}, {"3.5"}, {"9.4"}})
		res, err := Generalize(in, Options{Depths: map[string]int{"score": 0}, K: 1})
		require.NoError(t, err)
		got, err := res.Table.Column("score")
		require.NoError(t, err)
		assert.Equal(t, []string{"2", "4", "9"}, got)
	})

	t.Run("depths beyond int64 range collapse to zero", func(t *testing.T) {
		t.Parallel()
		in := table.MustNew([]string{"age"}, [][]string{{"34"}, {"51"}})
		for _, depth := range []int{18, 19, 25} {
			res, err := Generalize(in, Options{Depths: map[string]int{"age": depth}, K: 2})
			require.NoError(t, err)
			got, err := res.Table.Column("age")
			require.NoError(t, err)
			assert.Equal(t, []string{"0", "0"}, got, "depth %d", depth)
		}
	})

	t.Run("dates become years", func(t *testing.T) {
		t.Parallel()
		in := table.MustNew([]string{"born"}, [][]string{{"1987-05-01"}, {"1981-12-24"}})
		res, err := Generalize(in, Options{Depths: map[string]int{"born": 1}, K: 2})
		require.NoError(t, err)
		got, err := res.Table.Column("born")
		require.NoError(t, err)
		assert.Equal(t, []string{"1980", "1980"}, got)
	})

	t.Run("negative numbers round toward minus infinity", func(t *testing.T) {
		t.Parallel()
		in := table.MustNew([]string{"delta"}, [][]string{{"-15"}, {"15"}})
		res, err := Generalize(in, Options{Depths: map[string]int{"delta": 1}, K: 1})
		require.NoError(t, err)
		got, err := res.Table.Column("delta")
		require.NoError(t, err)
		assert.Equal(t, []string{"-20", "10"}, got)
	})

	t.Run("text quasi identifiers are masked", func(t *testing.T) {
		t.Parallel()
		res, err := Generalize(people(t), Options{Depths: map[string]int{"name": 1}, K: 6})
		require.NoError(t, err)
		got, err := res.Table.Column("name")
		require.NoError(t, err)
		assert.Equal(t, []string{"*", "*", "*", "*", "*", "*"}, got)
	})

	t.Run("rows with a null key are dropped", func(t *testing.T) {
		t.Parallel()
		in := table.MustNew([]string{"age", "city"}, [][]string{{"31", ""}, {"", "x"}, {"", ""}})
		res, err := Generalize(in, Options{Depths: map[string]int{"age": 1}, K: 1})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Table.Len())
		assert.Equal(t, []string{"30", ""}, res.Table.Row(0))
		assert.Equal(t, 2, res.Suppressed)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		t.Parallel()
		_, err := Generalize(people(t), Options{Depths: map[string]int{"age": 1}, K: 0})
		require.ErrorIs(t, err, ErrInvalidK)
		_, err = Generalize(people(t), Options{Depths: map[string]int{"age": -1}, K: 1})
		require.ErrorIs(t, err, ErrInvalidDepth)
		_, err = Generalize(people(t), Options{Depths: map[string]int{"height": 1}, K: 1})
		require.ErrorIs(t, err, table.ErrColumnNotFound)
	})
}

func TestFloorPow10(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		n     int64
		depth int
		want  string
	}{
		{name: "depth zero keeps the value", n: 42, depth: 0, want: "42"},
		{name: "rounds down", n: 47, depth: 1, want: "40"},
		{name: "small value becomes zero", n: 7, depth: 1, want: "0"},
		{name: "negative rounds toward minus infinity", n: -5, depth: 1, want: "-10"},
		{name: "largest int64 depth", n: 9_223_372_036_854_775_807, depth: 18, want: "9000000000000000000"},
		{name: "result below int64 range", n: -9_223_372_036_854_775_807, depth: 18, want: "-10000000000000000000"},
		{name: "huge depth positive", n: 51, depth: 19, want: "0"},
		{name: "huge depth negative", n: -3, depth: 20, want: "-100000000000000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, floorPow10(tt.n, tt.depth))
		})
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	in := table.MustNew([]string{"a", "b"}, [][]string{{"x", "1"}, {"x", "1"}, {"y", "2"}})
	assert.True(t, Verify(in, 1))
	assert.False(t, Verify(in, 2))

	empty := table.MustNew([]string{"a"}, nil)
	assert.True(t, Verify(empty, 5))
}

func TestBins(t *testing.T) {
	t.Parallel()

	t.Run("partial last bin ends at the maximum", func(t *testing.T) {
		t.Parallel()
		edges, labels, err := Bins(25, 10)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 10, 20, 25}, edges)
		assert.Equal(t, []string{"0-10", "11-20", "21-30"}, labels)
	})

	t.Run("exact multiple", func(t *testing.T) {
		t.Parallel()
		edges, labels, err := Bins(20, 10)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 10, 20}, edges)
		assert.Equal(t, []string{"0-10", "11-20"}, labels)
	})

	t.Run("range not below the maximum", func(t *testing.T) {
		t.Parallel()
		_, _, err := Bins(5, 10)
		require.ErrorIs(t, err, ErrInvalidBins)
		_, _, err = Bins(10, 0)
		require.ErrorIs(t, err, ErrInvalidBins)
	})
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	t.Run("numbers are binned", func(t *testing.T) {
		t.Parallel()
		in := table.MustNew([]string{"age", "id"}, [][]string{{"5", "a"}, {"12", "b"}, {"25", "c"}, {"", "d"}, {"0", "e"}})
		out, err := Aggregate(in, "age", MethodNumber, 10)
		require.NoError(t, err)
		got, err := out.Column("age")
		require.NoError(t, err)
		assert.Equal(t, []string{"0-10", "11-20", "21-30", "", ""}, got)
		ids, err := out.Column("id")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
	})

	t.Run("dates to years", func(t *testing.T) {
		t.Parallel()
		in := table.MustNew([]string{"born"}, [][]string{{"1987-05-01"}, {"1995-01-31"}})
		out, err := Aggregate(in, "born", MethodDatesToYears, 1)
		require.NoError(t, err)
		got, err := out.Column("born")
		require.NoError(t, err)
		assert.Equal(t, []string{"1987", "1995"}, got)

		out, err = Aggregate(in, "born", MethodDatesToYears, 10)
		require.NoError(t, err)
		got, err = out.Column("born")
		require.NoError(t, err)
		assert.Equal(t, []string{"1981-1990", "1991-2000"}, got)
	})

	t.Run("failures", func(t *testing.T) {
		t.Parallel()
		in := table.MustNew([]string{"age"}, [][]string{{"old"}})
		_, err := Aggregate(in, "age", MethodNumber, 10)
		require.Error(t, err)
		_, err = Aggregate(in, "height", MethodNumber, 10)
		require.ErrorIs(t, err, table.ErrColumnNotFound)
		_, err = ParseMethod("median")
		require.ErrorIs(t, err, ErrUnknownMethod)
	})
}
