package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/nao1215/pseudokit/internal/config"
	"github.com/nao1215/pseudokit/internal/kanon"
	"github.com/nao1215/pseudokit/internal/keystore"
	"github.com/nao1215/pseudokit/internal/mapping"
	"github.com/nao1215/pseudokit/internal/metrics"
	"github.com/nao1215/pseudokit/internal/model"
	"github.com/nao1215/pseudokit/internal/revert"
	"github.com/nao1215/pseudokit/internal/storage"
	"github.com/nao1215/pseudokit/internal/strategy"
	"github.com/nao1215/pseudokit/internal/table"
	"github.com/nao1215/pseudokit/internal/text"
	"github.com/nao1215/pseudokit/internal/tier"
)

// Output artifact names.
const (
	OutputFile         = "output.csv"
	TextOutputFile     = "text.txt"
	RevertedOutputFile = "reverted_output.csv"
	RevertedTextFile   = "reverted_text.txt"
	DecryptedTextFile  = "decrypted_text.txt"
	KAnonOutputFile    = "k_anon_output.csv"
)

// DecryptedOutputFile names the output of a structured decrypt job.
func DecryptedOutputFile(columns []string) string {
	return "decrypted_output_" + strings.Join(columns, "_") + ".csv"
}

// Env carries the collaborators of the engine steps.
type Env struct {
	// Store keeps secret keys and mapping tables.
	Store *mapping.Store
	// Outputs receives the output artifact.
	Outputs storage.Storage
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// LoadStep reads the job input into the state.
type LoadStep struct{}

// Name returns the step name.
func (LoadStep) Name() string { return "load" }

// Do reads a delimited table or a text file.
func (LoadStep) Do(_ context.Context, st *State) error {
	st.Run.Input = st.Job.InputFile
	if st.Job.Structured() {
		t, err := table.ReadFile(st.Job.InputFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", st.Job.InputFile, err)
		}
		st.Table = t
		st.Run.RowsIn = t.Len()
		return nil
	}
	data, err := os.ReadFile(st.Job.InputFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", st.Job.InputFile, err)
	}
	st.Text = string(data)
	return nil
}

// PseudonymizeStep runs the tier engine over the job's columns.
type PseudonymizeStep struct {
	engine *tier.Engine
}

// NewPseudonymizeStep returns a PseudonymizeStep.
func NewPseudonymizeStep(env Env) *PseudonymizeStep {
	return &PseudonymizeStep{
		engine: tier.New(env.Store, tier.WithLogger(env.logger()), tier.WithMetrics(env.Metrics)),
	}
}

// Name returns the step name.
func (*PseudonymizeStep) Name() string { return "pseudonymize" }

// Do replaces the job's columns with pseudonyms.
func (s *PseudonymizeStep) Do(ctx context.Context, st *State) error {
	strat, err := st.Job.Strategy()
	if err != nil {
		return err
	}
	filter, err := st.Job.Filter()
	if err != nil {
		return err
	}
	st.Run.Strategy = strat.String()

	res, err := s.engine.Pseudonymize(ctx, st.Table, tier.Options{
		Columns:        st.Job.Columns,
		Strategy:       strat,
		KeepMapping:    st.Job.Mapping,
		EncryptMapping: st.Job.EncryptMap,
		Filter:         filter,
		Seed:           st.Job.Seed,
		Start:          st.Job.Start,
	})
	if err != nil {
		return err
	}

	st.Table = res.Table
	st.Run.RowsIn = res.RowsIn
	st.Run.RowsExempted = res.Exempted
	for _, m := range res.Mappings {
		recordMapping(st.Run, m, res.MappingLocations[m.Column], res.KeyLocations[m.Column])
	}
	if res.Exempted > 0 {
		st.Run.AddWarning(fmt.Sprintf("%d rows matched the row filter and were appended unchanged after the pseudonymized rows", res.Exempted))
	}
	return nil
}

func recordMapping(run *model.Run, m *mapping.Table, mappingLoc, keyLoc string) {
	run.AddColumn(model.ColumnSummary{Name: m.Column, Tag: m.Tag(), Records: m.Len(), Encrypted: m.Encrypted})
	if mappingLoc != "" {
		run.AddArtifact(mapping.FileName(m.Column), model.ArtifactMapping, mappingLoc)
	}
	if keyLoc != "" {
		run.AddArtifact(keystore.FileName(m.Column), model.ArtifactKey, keyLoc)
	}
}

// extractOptions builds the span selection of a text job.
func extractOptions(job *config.Job) text.ExtractOptions {
	opts := text.ExtractOptions{
		Categories:       job.Categories(),
		AllNamedEntities: job.AllNE,
		Patterns:         job.Patterns,
	}
	if job.PatternCategory != "" {
		opts.PatternCategory = strategy.ParseCategory(job.PatternCategory)
	}
	return opts
}

// TextStep extracts entity spans and substitutes them.
type TextStep struct {
	engine *text.Engine
}

// NewTextStep returns a TextStep.
func NewTextStep(env Env) *TextStep {
	return &TextStep{
		engine: text.New(env.Store, text.WithLogger(env.logger()), text.WithMetrics(env.Metrics)),
	}
}

// Name returns the step name.
func (*TextStep) Name() string { return "text" }

// Do pseudonymizes the text of the state.
func (s *TextStep) Do(ctx context.Context, st *State) error {
	strat, err := st.Job.Strategy()
	if err != nil {
		return err
	}
	st.Run.Strategy = strat.String()

	spans, err := text.Extract(ctx, st.Text, text.NewGazetteer(st.Job.Entities), extractOptions(st.Job))
	if err != nil {
		return err
	}
	res, err := s.engine.Pseudonymize(ctx, st.Text, spans, text.Options{
		Strategy:       strat,
		KeepMapping:    st.Job.Mapping,
		EncryptMapping: st.Job.EncryptMap,
		Seed:           st.Job.Seed,
		Start:          st.Job.Start,
	})
	if err != nil {
		return err
	}

	st.Text = res.Text
	for _, m := range res.Mappings {
		c := strategy.Category(m.Column)
		recordMapping(st.Run, m, res.MappingLocations[c], res.KeyLocations[c])
	}
	if len(res.Mappings) == 0 {
		st.Run.AddWarning("no entity spans found")
	}
	return nil
}

// RevertStep restores originals from saved mappings.
type RevertStep struct {
	store  *mapping.Store
	engine *revert.Engine
}

// NewRevertStep returns a RevertStep.
func NewRevertStep(env Env) *RevertStep {
	return &RevertStep{
		store:  env.Store,
		engine: revert.New(env.Store, revert.WithLogger(env.logger()), revert.WithMetrics(env.Metrics)),
	}
}

// Name returns the step name.
func (*RevertStep) Name() string { return "revert" }

// Do reverts every job column, or every selected text category.
func (s *RevertStep) Do(ctx context.Context, st *State) error {
	opts := revert.Options{Pseudonyms: st.Job.Pseudonyms, Decrypt: st.Job.EncryptMap}

	if st.Table != nil {
		t := st.Table
		for _, column := range st.Job.Columns {
			m, err := s.store.Load(ctx, column)
			if err != nil {
				return err
			}
			if t, err = s.engine.RevertTable(ctx, t, m, opts); err != nil {
				return fmt.Errorf("column %s: %w", column, err)
			}
			st.Run.AddColumn(model.ColumnSummary{Name: column, Tag: m.Tag(), Records: m.Len(), Encrypted: m.Encrypted || opts.Decrypt})
		}
		st.Table = t
		return nil
	}

	ms, err := loadCategoryMappings(ctx, s.store, st)
	if err != nil {
		return err
	}
	for _, c := range extractOptions(st.Job).Selected() {
		opts.Categories = append(opts.Categories, string(c))
	}
	if st.Text, err = s.engine.RevertText(ctx, st.Text, ms, opts); err != nil {
		return err
	}
	for _, m := range ms {
		st.Run.AddColumn(model.ColumnSummary{Name: m.Column, Tag: m.Tag(), Records: m.Len(), Encrypted: m.Encrypted || opts.Decrypt})
	}
	return nil
}

// loadCategoryMappings loads the mapping of every selected text category.
// Categories without a mapping are reported as warnings.
func loadCategoryMappings(ctx context.Context, store *mapping.Store, st *State) ([]*mapping.Table, error) {
	var ms []*mapping.Table
	for _, c := range extractOptions(st.Job).Selected() {
		m, err := store.Load(ctx, string(c))
		if errors.Is(err, storage.ErrNotFound) {
			st.Run.AddWarning(fmt.Sprintf("no mapping for category %s", c))
			continue
		}
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return ms, nil
}

// DecryptStep decrypts cipher-protected columns or text pseudonyms.
type DecryptStep struct {
	store  *mapping.Store
	engine *revert.Engine
}

// NewDecryptStep returns a DecryptStep.
func NewDecryptStep(env Env) *DecryptStep {
	return &DecryptStep{
		store:  env.Store,
		engine: revert.New(env.Store, revert.WithLogger(env.logger()), revert.WithMetrics(env.Metrics)),
	}
}

// Name returns the step name.
func (*DecryptStep) Name() string { return "decrypt" }

// Do decrypts every job column with its key, or every ciphertext pseudonym
// of the selected categories found in the text.
func (s *DecryptStep) Do(ctx context.Context, st *State) error {
	if st.Table != nil {
		t := st.Table
		for _, column := range st.Job.Columns {
			var err error
			if t, err = s.engine.DecryptColumn(ctx, t, column); err != nil {
				return err
			}
			st.Run.AddColumn(model.ColumnSummary{Name: column, Tag: column, Records: t.Len(), Encrypted: true})
		}
		st.Table = t
		return nil
	}

	ms, err := loadCategoryMappings(ctx, s.store, st)
	if err != nil {
		return err
	}
	if st.Text, err = s.engine.DecryptText(ctx, st.Text, ms); err != nil {
		return err
	}
	for _, m := range ms {
		st.Run.AddColumn(model.ColumnSummary{Name: m.Column, Tag: m.Tag(), Records: m.Len(), Encrypted: true})
	}
	return nil
}

// AggregateStep coarsens the job's aggregation columns into ranges.
type AggregateStep struct{}

// Name returns the step name.
func (AggregateStep) Name() string { return "aggregate" }

// Do aggregates each column by the method matching its kind. Text columns
// are skipped with a warning.
func (AggregateStep) Do(_ context.Context, st *State) error {
	t := st.Table
	schema := table.InferSchema(t)
	for _, column := range st.Job.AggColumns {
		if !t.Has(column) {
			return fmt.Errorf("%w: %q", table.ErrColumnNotFound, column)
		}
		method, ok := kanon.MethodForKind(schema[column])
		if !ok {
			st.Run.AddWarning(fmt.Sprintf("column %s is neither numeric nor a date and was not aggregated", column))
			continue
		}
		var err error
		if t, err = kanon.Aggregate(t, column, method, st.Job.AggregationRange); err != nil {
			return err
		}
	}
	st.Table = t
	return nil
}

// KAnonymizeStep generalizes the table and verifies the result.
type KAnonymizeStep struct {
	metrics *metrics.Metrics
}

// NewKAnonymizeStep returns a KAnonymizeStep.
func NewKAnonymizeStep(env Env) *KAnonymizeStep {
	return &KAnonymizeStep{metrics: env.Metrics}
}

// Name returns the step name.
func (*KAnonymizeStep) Name() string { return "k-anonymize" }

// Do generalizes the table to k-anonymity.
func (s *KAnonymizeStep) Do(_ context.Context, st *State) error {
	res, err := kanon.Generalize(st.Table, kanon.Options{
		Depths:     st.Job.DepthMap(st.Table.Columns()),
		K:          st.Job.K,
		MaskOthers: st.Job.MaskOthers,
	})
	if err != nil {
		return err
	}
	s.metrics.Suppressed(res.Suppressed)
	if res.Suppressed > 0 {
		st.Run.AddWarning(fmt.Sprintf("%d rows in groups smaller than %d were suppressed", res.Suppressed, st.Job.K))
	}
	ok := kanon.Verify(res.Table, st.Job.K)
	st.Run.Verified = &ok
	if !ok {
		st.Run.AddWarning("columns outside the depth map break k-anonymity; set mask_others to mask them")
	}
	st.Table = res.Table
	return nil
}

// VerifyStep checks the input table for k-anonymity.
type VerifyStep struct{}

// Name returns the step name.
func (VerifyStep) Name() string { return "verify" }

// Do records whether every row shares its values with at least k-1 others.
func (VerifyStep) Do(_ context.Context, st *State) error {
	ok := kanon.Verify(st.Table, st.Job.K)
	st.Run.Verified = &ok
	st.Run.RowsOut = st.Table.Len()
	return nil
}

// WriteStep writes the table or text of the state as an artifact.
type WriteStep struct {
	name    string
	outputs storage.Storage
}

// NewWriteStep returns a WriteStep writing name to env.Outputs.
func NewWriteStep(env Env, name string) *WriteStep {
	return &WriteStep{name: name, outputs: env.Outputs}
}

// Name returns the step name.
func (*WriteStep) Name() string { return "write" }

// Do encodes and stores the output.
func (s *WriteStep) Do(ctx context.Context, st *State) error {
	var (
		data []byte
		kind = model.ArtifactText
	)
	if st.Table != nil {
		var buf bytes.Buffer
		if err := table.Write(&buf, st.Table, table.Delimiter(s.name)); err != nil {
			return fmt.Errorf("failed to encode %s: %w", s.name, err)
		}
		data = buf.Bytes()
		kind = model.ArtifactOutput
		st.Run.RowsOut = st.Table.Len()
	} else {
		data = []byte(st.Text)
	}

	if err := s.outputs.Write(ctx, s.name, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.name, err)
	}
	st.Run.AddArtifact(s.name, kind, s.outputs.Location(s.name))
	return nil
}

// ForJob builds the pipeline of job.
func ForJob(job *config.Job, env Env, opts ...Option) *Pipeline {
	p := New(append([]Option{WithLogger(env.logger())}, opts...)...)
	p.AddStep(LoadStep{})

	structured := job.Structured()
	switch job.Mode() {
	case model.ModePseudonymize:
		p.AddSteps(NewPseudonymizeStep(env), NewWriteStep(env, OutputFile))
	case model.ModeText:
		p.AddSteps(NewTextStep(env), NewWriteStep(env, TextOutputFile))
	case model.ModeRevert:
		name := RevertedTextFile
		if structured {
			name = RevertedOutputFile
		}
		p.AddSteps(NewRevertStep(env), NewWriteStep(env, name))
	case model.ModeDecrypt:
		name := DecryptedTextFile
		if structured {
			name = DecryptedOutputFile(job.Columns)
		}
		p.AddSteps(NewDecryptStep(env), NewWriteStep(env, name))
	case model.ModeAggregate:
		p.AddSteps(AggregateStep{}, NewWriteStep(env, OutputFile))
	case model.ModeKAnonymize:
		if len(job.AggColumns) > 0 {
			p.AddStep(AggregateStep{})
		}
		p.AddSteps(NewKAnonymizeStep(env), NewWriteStep(env, KAnonOutputFile))
	case model.ModeVerify:
		p.AddStep(VerifyStep{})
	}
	return p
}
