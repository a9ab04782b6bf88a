package revert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/pseudokit/internal/keystore"
	"github.com/nao1215/pseudokit/internal/mapping"
	"github.com/nao1215/pseudokit/internal/storage"
	"github.com/nao1215/pseudokit/internal/strategy"
	"github.com/nao1215/pseudokit/internal/table"
	"github.com/nao1215/pseudokit/internal/text"
	"github.com/nao1215/pseudokit/internal/tier"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func people() *table.Table {
	return table.MustNew(
		[]string{"name", "job_title", "city", "age"},
		[][]string{
			{"Alice", "Nurse", "Berlin", "34"},
			{"Bob", "Baker", "Warsaw", "51"},
			{"Carol", "Pilot", "", "29"},
			{"Alice", "Pilot", "Berlin", "34"},
		},
	)
}

type fixture struct {
	store  *mapping.Store
	tier   *tier.Engine
	text   *text.Engine
	revert *Engine
}

func newFixture() fixture {
	store := mapping.NewStore(storage.NewMemory(), mapping.WithLogger(discard))
	return fixture{
		store:  store,
		tier:   tier.New(store, tier.WithLogger(discard)),
		text:   text.New(store, text.WithLogger(discard)),
		revert: New(store, WithLogger(discard)),
	}
}

func (f fixture) revertAll(t *testing.T, out *table.Table, mappings []*mapping.Table, opts Options) *table.Table {
	t.Helper()
	for _, m := range mappings {
		var err error
		out, err = f.revert.RevertTable(context.Background(), out, m, opts)
		require.NoError(t, err)
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range []strategy.Strategy{strategy.Counter, strategy.RandomV1, strategy.RandomV4, strategy.Cipher, strategy.Hash, strategy.SaltedHash} {
		t.Run(s.String(), func(t *testing.T) {
			t.Parallel()
			f := newFixture()
			res, err := f.tier.Pseudonymize(context.Background(), people(), tier.Options{
				Columns:  []string{"city", "name"},
				Strategy: s,
			})
			require.NoError(t, err)
			assert.False(t, res.Table.Equal(people()))

			got := f.revertAll(t, res.Table, res.Mappings, Options{})
			assert.True(t, got.Equal(people()), "got %v", got.Rows())
		})
	}

	t.Run("encrypted mappings read back from storage", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		ctx := context.Background()
		res, err := f.tier.Pseudonymize(ctx, people(), tier.Options{
			Columns:        []string{"name"},
			Strategy:       strategy.Counter,
			KeepMapping:    true,
			EncryptMapping: true,
		})
		require.NoError(t, err)

		loaded, err := f.store.Load(ctx, "name")
		require.NoError(t, err)
		assert.False(t, loaded.Encrypted)

		got, err := f.revert.RevertTable(ctx, res.Table, loaded, Options{Decrypt: true})
		require.NoError(t, err)
		assert.True(t, got.Equal(people()))
	})

	t.Run("exempted rows stay in place at the end", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		res, err := f.tier.Pseudonymize(context.Background(), people(), tier.Options{
			Columns:  []string{"name"},
			Strategy: strategy.Counter,
			Filter:   &table.Filter{Column: "job_title", Operator: table.OpEqual, Value: "Baker"},
		})
		require.NoError(t, err)

		got := f.revertAll(t, res.Table, res.Mappings, Options{})
		want := table.MustNew(people().Columns(), [][]string{
			people().Row(0), people().Row(2), people().Row(3), people().Row(1),
		})
		assert.True(t, got.Equal(want), "got %v", got.Rows())
	})
}

func TestRevertTableSubset(t *testing.T) {
	t.Parallel()

	f := newFixture()
	res, err := f.tier.Pseudonymize(context.Background(), people(), tier.Options{
		Columns:  []string{"name"},
		Strategy: strategy.Counter,
	})
	require.NoError(t, err)

	got, err := f.revert.RevertTable(context.Background(), res.Table, res.Mappings[0], Options{Pseudonyms: []string{"1", "3"}})
	require.NoError(t, err)
	names, err := got.Column("name")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob", "Alice"}, names)
}

func TestRevertTableFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture()
	res, err := f.tier.Pseudonymize(ctx, people(), tier.Options{Columns: []string{"name"}, Strategy: strategy.Counter})
	require.NoError(t, err)

	t.Run("mapping for another column", func(t *testing.T) {
		other, err := mapping.New("city", []string{"x"}, []string{"0"})
		require.NoError(t, err)
		_, err = f.revert.RevertTable(ctx, res.Table, other, Options{})
		assert.ErrorIs(t, err, ErrTagMismatch)
		assert.ErrorIs(t, err, table.ErrColumnNotFound)
	})

	t.Run("rows out of order", func(t *testing.T) {
		shuffled := res.Table.Select([]int{1, 0, 2, 3})
		_, err := f.revert.RevertTable(ctx, shuffled, res.Mappings[0], Options{})
		assert.ErrorIs(t, err, ErrMisaligned)
	})

	t.Run("encrypted mapping without key", func(t *testing.T) {
		m := &mapping.Table{Column: "name", Records: res.Mappings[0].Records, Encrypted: true}
		_, err := f.revert.RevertTable(ctx, res.Table, m, Options{})
		assert.ErrorIs(t, err, keystore.ErrKeyNotFound)
	})
}

func TestRevertText(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("substitution round trip", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		res, err := f.text.Pseudonymize(ctx, "Alice met Bob", []text.CategorySpans{
			{Category: strategy.Names, Spans: []string{"Alice", "Bob"}},
		}, text.Options{Strategy: strategy.Counter})
		require.NoError(t, err)

		got, err := f.revert.RevertText(ctx, res.Text, res.Mappings, Options{Categories: []string{"Names"}})
		require.NoError(t, err)
		assert.Equal(t, "Alice met Bob", got)
	})

	t.Run("numeric pseudonyms sharing digits", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		spans := make([]string, 12)
		for i := range spans {
			spans[i] = fmt.Sprintf("Person%c", 'A'+i)
		}
		doc := strings.Join(spans, ", ")
		res, err := f.text.Pseudonymize(ctx, doc, []text.CategorySpans{{Category: strategy.Names, Spans: spans}},
			text.Options{Strategy: strategy.Counter})
		require.NoError(t, err)
		assert.Contains(t, res.Text, "10, 11")

		got, err := f.revert.RevertText(ctx, res.Text, res.Mappings, Options{})
		require.NoError(t, err)
		assert.Equal(t, doc, got)
	})

	t.Run("counter chained across categories", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		names := make([]string, 10)
		for i := range names {
			names[i] = fmt.Sprintf("Person%c", 'A'+i)
		}
		doc := strings.Join(names, " and ") + " live in Berlin."
		res, err := f.text.Pseudonymize(ctx, doc, []text.CategorySpans{
			{Category: strategy.Names, Spans: names},
			{Category: strategy.Locations, Spans: []string{"Berlin"}},
		}, text.Options{Strategy: strategy.Counter})
		require.NoError(t, err)
		require.Len(t, res.Mappings, 2)
		assert.True(t, strings.HasSuffix(res.Text, " live in 10."), res.Text)

		got, err := f.revert.RevertText(ctx, res.Text, res.Mappings, Options{Categories: []string{"Names", "Locations"}})
		require.NoError(t, err)
		assert.Equal(t, doc, got)
	})

	t.Run("subset reveals only selected pseudonyms", func(t *testing.T) {
		t.Parallel()
		m, err := mapping.New("Names", []string{"Alice", "Bob"}, []string{"0", "1"})
		require.NoError(t, err)
		got, err := newFixture().revert.RevertText(ctx, "0 met 1", []*mapping.Table{m}, Options{Pseudonyms: []string{"1"}})
		require.NoError(t, err)
		assert.Equal(t, "0 met Bob", got)
	})

	t.Run("category mismatch", func(t *testing.T) {
		t.Parallel()
		m, err := mapping.New("Names", []string{"Alice"}, []string{"0"})
		require.NoError(t, err)
		_, err = newFixture().revert.RevertText(ctx, "0", []*mapping.Table{m}, Options{Categories: []string{"Locations"}})
		assert.ErrorIs(t, err, ErrTagMismatch)
	})
}

func TestDecrypt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("cipher column decrypts in place", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		res, err := f.tier.Pseudonymize(ctx, people(), tier.Options{Columns: []string{"city"}, Strategy: strategy.Cipher})
		require.NoError(t, err)

		got, err := f.revert.DecryptColumn(ctx, res.Table, "Index_city")
		require.NoError(t, err)
		assert.True(t, got.Equal(people()), "got %v", got.Rows())
	})

	t.Run("encrypted mapping column keeps its name", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		res, err := f.tier.Pseudonymize(ctx, people(), tier.Options{
			Columns:        []string{"name"},
			Strategy:       strategy.Counter,
			EncryptMapping: true,
		})
		require.NoError(t, err)

		got, err := f.revert.DecryptColumn(ctx, res.Mappings[0].ToTable(), "name")
		require.NoError(t, err)
		assert.Equal(t, []string{"Index_name", "name"}, got.Columns())
		names, err := got.Column("name")
		require.NoError(t, err)
		assert.Equal(t, []string{"Alice", "Bob", "Carol", "Alice"}, names)
	})

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()
		_, err := newFixture().revert.DecryptColumn(ctx, people(), "name")
		assert.ErrorIs(t, err, keystore.ErrKeyNotFound)
	})

	t.Run("cipher text decrypts", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		res, err := f.text.Pseudonymize(ctx, "Alice met Bob", []text.CategorySpans{
			{Category: strategy.Names, Spans: []string{"Alice", "Bob"}},
		}, text.Options{Strategy: strategy.Cipher})
		require.NoError(t, err)
		assert.NotContains(t, res.Text, "Alice")

		got, err := f.revert.DecryptText(ctx, res.Text, res.Mappings)
		require.NoError(t, err)
		assert.Equal(t, "Alice met Bob", got)
	})
}
