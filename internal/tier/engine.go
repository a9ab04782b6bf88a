package tier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/pseudokit/internal/mapping"
	"github.com/nao1215/pseudokit/internal/metrics"
	"github.com/nao1215/pseudokit/internal/strategy"
	"github.com/nao1215/pseudokit/internal/table"
)

// Options selects what to pseudonymize and how.
type Options struct {
	// Columns are processed in this order.
	Columns  []string
	Strategy strategy.Strategy
	// KeepMapping persists each column's mapping through the store.
	KeepMapping bool
	// EncryptMapping encrypts the original side of each mapping.
	EncryptMapping bool
	// Filter exempts matching rows from pseudonymization.
	Filter *table.Filter
	// Seed makes random and synthetic methods reproducible.
	Seed *uint64
	// Start is the first counter value.
	Start int64
}

// Result is the outcome of Pseudonymize.
type Result struct {
	Table    *table.Table
	Mappings []*mapping.Table
	// MappingLocations holds where each mapping was saved, by column.
	MappingLocations map[string]string
	// KeyLocations holds where each generated key was saved, by column.
	KeyLocations map[string]string
	// RowsIn counts the rows after null removal.
	RowsIn int
	// Exempted counts rows kept unchanged by the filter.
	Exempted int
	// NextCounter is one past the last counter value emitted.
	NextCounter int64
}

// Engine runs pseudonymization passes over tables.
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

// New returns an Engine that keeps keys and mappings in store.
func New(store *mapping.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Pseudonymize replaces opts.Columns of t with pseudonyms. t is not modified.
//
// It fails before any work with table.ErrInvalidOperator for a bad filter and
// with table.ErrEmptyDataset when no row survives null removal. A missing
// column aborts the pass with table.ErrColumnNotFound; mappings and keys of
// the columns processed before it stay persisted.
func (e *Engine) Pseudonymize(ctx context.Context, t *table.Table, opts Options) (*Result, error) {
	if opts.Filter != nil {
		if err := opts.Filter.Validate(t); err != nil {
			return nil, err
		}
	}

	work, err := t.DropNulls()
	if err != nil {
		return nil, err
	}

	res := &Result{
		RowsIn:           work.Len(),
		MappingLocations: make(map[string]string),
		KeyLocations:     make(map[string]string),
		NextCounter:      opts.Start,
	}

	var exempt *table.Table
	if opts.Filter != nil {
		if exempt, work, err = opts.Filter.Split(work); err != nil {
			return nil, err
		}
		res.Exempted = exempt.Len()
	}

	rows := work.Rows()
	b := table.NewBuilder(work)
	for _, column := range opts.Columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		m, err := e.column(ctx, work, rows, column, opts, res)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", column, err)
		}
		if err := b.Replace(column, m.Tag(), m.Pseudonyms()); err != nil {
			return nil, fmt.Errorf("column %s: %w", column, err)
		}
		res.Mappings = append(res.Mappings, m)
	}

	out := b.Build()
	if exempt != nil && exempt.Len() > 0 {
		renamed, err := table.New(out.Columns(), exempt.Rows())
		if err != nil {
			return nil, err
		}
		if out, err = out.Concat(renamed); err != nil {
			return nil, err
		}
		e.logger.Warn("row filter changed row order: exempted rows appended after pseudonymized rows",
			"exempted", exempt.Len(), "filter_column", opts.Filter.Column)
	}
	res.Table = out
	return res, nil
}

// column pseudonymizes one column of work and returns its mapping.
func (e *Engine) column(ctx context.Context, work *table.Table, rows [][]string, column string, opts Options, res *Result) (*mapping.Table, error) {
	values, err := work.Column(column)
	if err != nil {
		return nil, err
	}

	in := strategy.Input{
		Values: values,
		Rows:   rows,
		Start:  res.NextCounter,
		Seed:   opts.Seed,
	}
	if c, ok := strategy.CategoryForColumn(column); ok {
		in.Category = c
	}

	needsKey := opts.Strategy == strategy.Cipher || opts.EncryptMapping
	if needsKey {
		if err := e.store.GenerateKey(ctx, column); err != nil {
			return nil, err
		}
		e.metrics.KeyGenerated()
		res.KeyLocations[column] = e.store.KeyLocation(column)
	}
	if opts.Strategy == strategy.Cipher {
		if in.Cipher, err = e.store.Cipher(ctx, column); err != nil {
			return nil, err
		}
	}

	pseudonyms, err := opts.Strategy.Generate(in)
	if err != nil {
		return nil, err
	}
	if opts.Strategy.Sequential() && len(values) > 0 {
		res.NextCounter = in.Start + int64(len(values))
	}

	m, err := mapping.New(column, values, pseudonyms)
	if err != nil {
		return nil, err
	}
	switch {
	case opts.Strategy == strategy.Cipher:
		// the pseudonym already is the encrypted original
		for i := range m.Records {
			m.Records[i].Original = m.Records[i].Pseudonym
		}
		m.Encrypted = true
	case opts.EncryptMapping:
		if m, err = e.store.EncryptOriginals(ctx, m); err != nil {
			return nil, err
		}
	}

	if opts.KeepMapping {
		loc, err := e.store.Save(ctx, m)
		if err != nil {
			return nil, err
		}
		e.metrics.MappingSaved()
		res.MappingLocations[column] = loc
	}

	e.metrics.ColumnProcessed(opts.Strategy.String(), len(values))
	e.logger.Info("column pseudonymized",
		"column", column, "strategy", opts.Strategy.String(), "records", len(values), "encrypted", m.Encrypted)
	return m, nil
}
