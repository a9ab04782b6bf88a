// Package revert restores original values from pseudonymized tables and
// texts using their mapping tables, and decrypts cipher-protected columns.
//
// Table revert is positional: record i of the mapping belongs to row i of
// the table. Rows past the end of the mapping (rows exempted by a row filter)
// already hold original values and are left as they are.
package revert

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/nao1215/pseudokit/internal/keystore"
	"github.com/nao1215/pseudokit/internal/mapping"
	"github.com/nao1215/pseudokit/internal/metrics"
	"github.com/nao1215/pseudokit/internal/table"
)

var (
	// ErrTagMismatch is returned when a mapping does not belong to the target.
	ErrTagMismatch = errors.New("mapping does not match target")

	// ErrMisaligned is returned when a table row does not carry the pseudonym
	// the mapping expects at that position.
	ErrMisaligned = errors.New("table rows do not line up with mapping records")
)

// Options narrows and unlocks a revert.
type Options struct {
	// Pseudonyms, when non-empty, restricts the revert to these pseudonyms.
	// Table rows carrying other pseudonyms are dropped from the result.
	Pseudonyms []string
	// Decrypt decrypts the mapping's original side before use. Encrypted
	// mappings are decrypted regardless.
	Decrypt bool
	// Categories lists the expected categories of text mappings; a mapping
	// for any other category is rejected. Empty skips the check.
	Categories []string
}

// Engine performs reverts.
type Engine struct {
	store   *mapping.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New returns an Engine reading keys through store.
func New(store *mapping.Store, opts ...Option) *Engine {
	e := &Engine{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) prepare(ctx context.Context, m *mapping.Table, opts Options) (*mapping.Table, error) {
	if opts.Decrypt || m.Encrypted {
		dec, err := e.store.DecryptOriginals(ctx, m)
		if err != nil {
			return nil, err
		}
		m = dec
	}
	if len(opts.Pseudonyms) > 0 {
		m = m.Filter(subset(opts.Pseudonyms))
	}
	return m, nil
}

func subset(pseudonyms []string) map[string]struct{} {
	keep := make(map[string]struct{}, len(pseudonyms))
	for _, p := range pseudonyms {
		keep[p] = struct{}{}
	}
	return keep
}

// RevertTable replaces the "Index_<column>" column of t with the originals
// of m at the same position.
func (e *Engine) RevertTable(ctx context.Context, t *table.Table, m *mapping.Table, opts Options) (*table.Table, error) {
	tag := m.Tag()
	if !t.Has(tag) {
		return nil, fmt.Errorf("%w: table has no column %q: %w", ErrTagMismatch, tag, table.ErrColumnNotFound)
	}

	m, err := e.prepare(ctx, m, opts)
	if err != nil {
		return nil, err
	}

	if len(opts.Pseudonyms) > 0 {
		idx := t.Index(tag)
		keep := subset(opts.Pseudonyms)
		matched, _ := t.Split(func(row []string) bool {
			_, ok := keep[row[idx]]
			return ok
		})
		t = matched
	}

	current, err := t.Column(tag)
	if err != nil {
		return nil, err
	}
	if len(current) < m.Len() {
		return nil, fmt.Errorf("%w: %d rows for %d records", ErrMisaligned, len(current), m.Len())
	}

	restored := slices.Clone(current)
	for i, r := range m.Records {
		if current[i] != r.Pseudonym {
			return nil, fmt.Errorf("%w: row %d", ErrMisaligned, i)
		}
		restored[i] = r.Original
	}

	b := table.NewBuilder(t)
	if err := b.Replace(tag, m.Column, restored); err != nil {
		return nil, err
	}

	e.metrics.Reverted(m.Len())
	e.logger.Info("column reverted", "column", m.Column, "records", m.Len())
	return b.Build(), nil
}

// RevertText replaces every pseudonym of ms in text with its original.
// The records of all mappings are applied in one pass, longer pseudonyms
// first, so counter pseudonyms chained across categories ("1", "10") do not
// clobber each other. Restored text is never matched again.
func (e *Engine) RevertText(ctx context.Context, text string, ms []*mapping.Table, opts Options) (string, error) {
	var records []mapping.Record
	for _, m := range ms {
		if len(opts.Categories) > 0 && !slices.Contains(opts.Categories, m.Column) {
			return "", fmt.Errorf("%w: mapping is for %q, expected one of %q", ErrTagMismatch, m.Column, opts.Categories)
		}
		m, err := e.prepare(ctx, m, opts)
		if err != nil {
			return "", err
		}
		records = append(records, m.Records...)
		e.logger.Debug("text mapping loaded", "category", m.Column, "records", m.Len())
	}

	out := replace(text, records, func(r mapping.Record) (string, string) { return r.Pseudonym, r.Original })
	e.metrics.Reverted(len(records))
	e.logger.Info("text reverted", "mappings", len(ms), "records", len(records))
	return out, nil
}

// replace substitutes all pairs in a single pass, longest search string first.
func replace(text string, records []mapping.Record, pair func(mapping.Record) (from, to string)) string {
	type fromTo struct{ from, to string }
	pairs := make([]fromTo, 0, len(records))
	for _, r := range records {
		from, to := pair(r)
		if from == "" {
			continue
		}
		pairs = append(pairs, fromTo{from, to})
	}
	slices.SortStableFunc(pairs, func(a, b fromTo) int {
		return cmp.Compare(len(b.from), len(a.from))
	})

	args := make([]string, 0, 2*len(pairs))
	for _, p := range pairs {
		args = append(args, p.from, p.to)
	}
	return strings.NewReplacer(args...).Replace(text)
}

// DecryptColumn decrypts every non-null cell of column with the key of the
// column (a leading "Index_" is ignored). The column keeps its position; it
// is renamed without the "Index_" prefix unless that name is taken.
func (e *Engine) DecryptColumn(ctx context.Context, t *table.Table, column string) (*table.Table, error) {
	values, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	c, err := e.store.Cipher(ctx, column)
	if err != nil {
		return nil, err
	}

	for i, v := range values {
		if table.IsNull(v) {
			continue
		}
		if values[i], err = c.Decrypt(v); err != nil {
			return nil, fmt.Errorf("column %s row %d: %w", column, i, err)
		}
	}

	name := strings.TrimPrefix(column, keystore.TagPrefix)
	if name != column && t.Has(name) {
		name = column
	}
	b := table.NewBuilder(t)
	if err := b.Replace(column, name, values); err != nil {
		return nil, err
	}
	e.logger.Info("column decrypted", "column", column, "records", len(values))
	return b.Build(), nil
}

// DecryptText replaces every ciphertext pseudonym of ms found in text with
// its plaintext, using the key of each mapping's category. All mappings are
// applied in a single pass.
func (e *Engine) DecryptText(ctx context.Context, text string, ms []*mapping.Table) (string, error) {
	var plain []mapping.Record
	for _, m := range ms {
		c, err := e.store.Cipher(ctx, m.Column)
		if err != nil {
			return "", err
		}
		for _, r := range m.Records {
			if table.IsNull(r.Pseudonym) {
				continue
			}
			p, err := c.Decrypt(r.Pseudonym)
			if err != nil {
				return "", fmt.Errorf("category %s: %w", m.Column, err)
			}
			plain = append(plain, mapping.Record{Original: p, Pseudonym: r.Pseudonym})
		}
	}
	e.logger.Info("text decrypted", "mappings", len(ms), "records", len(plain))
	return replace(text, plain, func(r mapping.Record) (string, string) { return r.Pseudonym, r.Original }), nil
}
