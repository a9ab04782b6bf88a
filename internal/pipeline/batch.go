package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/pseudokit/internal/config"
	"github.com/nao1215/pseudokit/internal/model"
)

// ErrSharedOutput is returned when two jobs of a batch write to the same
// output directory.
var ErrSharedOutput = errors.New("jobs share an output directory")

// JobRunner executes one job and returns its run record. The record is
// returned even when the job fails.
type JobRunner interface {
	Run(ctx context.Context, job *config.Job) (*model.Run, error)
}

// BatchProcessor runs independent jobs concurrently.
type BatchProcessor struct {
	runner      JobRunner
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent jobs.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor running one job at a time
// unless WithConcurrency says otherwise.
func NewBatchProcessor(runner JobRunner, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		runner:      runner,
		concurrency: config.DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// CheckOutputs rejects jobs that would write into the same directory, since
// concurrent runs there race on keys and mapping files.
func CheckOutputs(jobs []*config.Job) error {
	seen := make(map[string]string, len(jobs))
	for _, j := range jobs {
		if j.Mode() == model.ModeVerify {
			continue
		}
		dir := filepath.Clean(j.Output)
		if other, ok := seen[dir]; ok {
			return fmt.Errorf("%w: %s and %s both write to %s", ErrSharedOutput, other, j.Name, dir)
		}
		seen[dir] = j.Name
	}
	return nil
}

// ProcessBatch runs jobs and returns their run records in input order.
// A failing job does not stop the others; its error is in its record.
// The returned error reports a rejected batch or cancellation.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, jobs []*config.Job) ([]*model.Run, error) {
	if err := CheckOutputs(jobs); err != nil {
		return nil, err
	}

	bp.logger.Info("starting batch", "jobs", len(jobs), "concurrency", bp.concurrency)
	start := time.Now()
	runs := make([]*model.Run, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			run, err := bp.runner.Run(ctx, job)
			runs[i] = run
			if err != nil {
				bp.logger.Warn("job failed", "job", job.Name, "error", err)
				return nil
			}
			bp.logger.Info("job completed", "job", job.Name, "index", i+1, "total", len(jobs))
			return nil
		})
	}
	err := g.Wait()

	bp.logger.Info("batch complete", "jobs", len(jobs), "elapsed", time.Since(start))
	return runs, err
}
