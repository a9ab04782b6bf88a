package text

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/nao1215/pseudokit/internal/mapping"
	"github.com/nao1215/pseudokit/internal/metrics"
	"github.com/nao1215/pseudokit/internal/strategy"
)

// Options controls a substitution pass.
type Options struct {
	Strategy       strategy.Strategy
	KeepMapping    bool
	EncryptMapping bool
	Seed           *uint64
	// Start is the first counter value.
	Start int64
}

// Result is the outcome of Pseudonymize.
type Result struct {
	Text string
	// Mappings holds one table per non-empty category, in processing order.
	Mappings         []*mapping.Table
	MappingLocations map[strategy.Category]string
	KeyLocations     map[strategy.Category]string
	NextCounter      int64
}

// Engine substitutes entity spans with pseudonyms.
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

// New returns an Engine keeping keys and mappings in store.
func New(store *mapping.Store, opts ...Option) *Engine {
	e := &Engine{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Pseudonymize replaces the spans of every category, in the given order.
// Empty categories are skipped and produce no mapping.
func (e *Engine) Pseudonymize(ctx context.Context, text string, spans []CategorySpans, opts Options) (*Result, error) {
	res := &Result{
		Text:             text,
		MappingLocations: make(map[strategy.Category]string),
		KeyLocations:     make(map[strategy.Category]string),
		NextCounter:      opts.Start,
	}

	for _, cs := range spans {
		if len(cs.Spans) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := e.category(ctx, cs, opts, res)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", cs.Category, err)
		}
		res.Mappings = append(res.Mappings, m)
	}
	return res, nil
}

// resolve picks the generator of a category. Only the generic synthetic
// strategy is resolved by category; an explicitly named generator is used
// as given.
func resolve(s strategy.Strategy, c strategy.Category) (strategy.Strategy, error) {
	if s != strategy.Synthetic {
		return s, nil
	}
	return strategy.ForCategory(c)
}

func (e *Engine) category(ctx context.Context, cs CategorySpans, opts Options, res *Result) (*mapping.Table, error) {
	name := string(cs.Category)
	s, err := resolve(opts.Strategy, cs.Category)
	if err != nil {
		return nil, err
	}

	in := strategy.Input{
		Values:   cs.Spans,
		Start:    res.NextCounter,
		Seed:     opts.Seed,
		Category: cs.Category,
	}

	if s == strategy.Cipher || opts.EncryptMapping {
		if err := e.store.GenerateKey(ctx, name); err != nil {
			return nil, err
		}
		e.metrics.KeyGenerated()
		res.KeyLocations[cs.Category] = e.store.KeyLocation(name)
	}
	if s == strategy.Cipher {
		if in.Cipher, err = e.store.Cipher(ctx, name); err != nil {
			return nil, err
		}
	}

	pseudonyms, err := s.Generate(in)
	if err != nil {
		return nil, err
	}
	if s.Sequential() {
		res.NextCounter = in.Start + int64(len(cs.Spans))
	}

	res.Text = substitute(res.Text, cs.Spans, pseudonyms)

	m, err := mapping.New(name, cs.Spans, pseudonyms)
	if err != nil {
		return nil, err
	}
	switch {
	case s == strategy.Cipher:
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
		res.MappingLocations[cs.Category] = loc
	}

	e.metrics.ColumnProcessed(s.String(), len(cs.Spans))
	e.logger.Info("category pseudonymized", "category", name, "strategy", s.String(), "records", len(cs.Spans))
	return m, nil
}

// substitute replaces every occurrence of spans[i] with pseudonyms[i] in one
// pass. Longer spans are matched first, and inserted pseudonyms are never
// matched again.
func substitute(text string, spans, pseudonyms []string) string {
	order := make([]int, len(spans))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(len(spans[b]), len(spans[a]))
	})

	args := make([]string, 0, 2*len(spans))
	for _, i := range order {
		if spans[i] == "" {
			continue
		}
		args = append(args, spans[i], pseudonyms[i])
	}
	return strings.NewReplacer(args...).Replace(text)
}
