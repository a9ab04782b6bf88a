package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/pseudokit/internal/config"
	"github.com/nao1215/pseudokit/internal/database"
	"github.com/nao1215/pseudokit/internal/mapping"
	"github.com/nao1215/pseudokit/internal/metrics"
	"github.com/nao1215/pseudokit/internal/model"
	"github.com/nao1215/pseudokit/internal/storage"
)

// Runner executes single jobs against the configured key backend and
// records them in the history database.
type Runner struct {
	cfg     *config.Config
	db      *database.DB
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithDatabase records every run in db. It is required by the sqlite backend.
func WithDatabase(db *database.DB) RunnerOption {
	return func(r *Runner) {
		r.db = db
	}
}

// WithMetrics sets the metrics sink shared by all engines.
func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner returns a Runner for cfg.
func NewRunner(cfg *config.Config, opts ...RunnerOption) *Runner {
	r := &Runner{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Run executes job. The returned run record is never nil; it carries the
// error message when the job fails.
func (r *Runner) Run(ctx context.Context, job *config.Job) (*model.Run, error) {
	run := model.NewRun(job.Name, job.Mode())
	run.OutputDir = job.Output
	logger := r.logger.With("job", job.Name, "run_id", run.ID)

	err := r.run(ctx, job, run, logger)
	run.Finish(err)
	r.metrics.RunFinished(string(run.Mode), err == nil, run.Duration())

	if r.db != nil {
		if saveErr := r.db.SaveRun(context.WithoutCancel(ctx), run); saveErr != nil {
			logger.Warn("failed to record run", "error", saveErr)
		}
	}
	if err != nil {
		return run, err
	}
	logger.Info("run finished", "mode", run.Mode, "rows_out", run.RowsOut, "elapsed", run.Duration())
	return run, nil
}

func (r *Runner) run(ctx context.Context, job *config.Job, run *model.Run, logger *slog.Logger) error {
	if err := job.Validate(); err != nil {
		return err
	}

	artifacts, closeFn, err := r.artifactStorage(ctx, job)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil {
			logger.Warn("failed to close key backend", "error", cerr)
		}
	}()

	env := Env{
		Store:   mapping.NewStore(artifacts, mapping.WithLogger(logger)),
		Outputs: storage.NewDir(job.Output),
		Logger:  logger,
		Metrics: r.metrics,
	}
	return ForJob(job, env).Execute(ctx, NewState(job, run))
}

// artifactStorage opens where keys and mapping tables live. Revert and
// decrypt jobs fall back to mapping files in the job's mapping directory
// (or the working directory for the dir backend).
func (r *Runner) artifactStorage(ctx context.Context, job *config.Job) (storage.Storage, func() error, error) {
	noop := func() error { return nil }
	location := job.MappingLocation()
	reads := job.Mode() == model.ModeRevert || job.Mode() == model.ModeDecrypt

	switch r.cfg.KeyBackend {
	case config.BackendSQLite:
		if r.db == nil {
			return nil, nil, fmt.Errorf("%w: the sqlite backend needs the history database", config.ErrNoDBDir)
		}
		var s storage.Storage = storage.NewSQLite(r.db, location)
		if reads {
			s = &storage.Fallback{Primary: s, Secondary: storage.NewDir(location)}
		}
		return s, noop, nil
	case config.BackendRedis:
		rs, closeFn, err := storage.DialRedis(ctx, r.cfg.RedisAddr, location)
		if err != nil {
			return nil, nil, err
		}
		if reads {
			return &storage.Fallback{Primary: rs, Secondary: storage.NewDir(location)}, closeFn, nil
		}
		return rs, closeFn, nil
	default:
		var s storage.Storage = storage.NewDir(location)
		if reads {
			s = &storage.Fallback{Primary: s, Secondary: storage.NewDir(".")}
		}
		return s, noop, nil
	}
}
