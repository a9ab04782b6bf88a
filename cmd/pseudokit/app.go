package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/pseudokit/internal/config"
	"github.com/nao1215/pseudokit/internal/database"
	"github.com/nao1215/pseudokit/internal/log"
	"github.com/nao1215/pseudokit/internal/metrics"
	"github.com/nao1215/pseudokit/internal/model"
	"github.com/nao1215/pseudokit/internal/pipeline"
	"github.com/nao1215/pseudokit/internal/report"
)

// dotenvFile is read for environment overrides before flags are applied.
const dotenvFile = ".env"

// buildConfig creates a Config from defaults, .env overrides and the
// persistent flags the user set explicitly, in that order.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	if err := cfg.LoadEnv(dotenvFile); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", dotenvFile, err)
	}

	flags := cmd.Flags()
	var err error
	if cfg.Verbose, err = flags.GetBool("verbose"); err != nil {
		return nil, err
	}
	if cfg.LogJSON, err = flags.GetBool("log-json"); err != nil {
		return nil, err
	}
	if cfg.Report, err = flags.GetString("report"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
		return nil, err
	}
	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return nil, err
	}

	overrides := []struct {
		name string
		dst  *string
	}{
		{"key-backend", &cfg.KeyBackend},
		{"redis-addr", &cfg.RedisAddr},
		{"db-dir", &cfg.DBDir},
	}
	for _, o := range overrides {
		if !flags.Changed(o.name) {
			continue
		}
		if *o.dst, err = flags.GetString(o.name); err != nil {
			return nil, err
		}
	}

	if flags.Lookup("batch") != nil {
		if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// setupLogger creates the secure structured logger selected by cfg.
func setupLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	if cfg.LogJSON {
		return log.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return log.NewSecureLogger(w, cfg.Verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// openHistory opens the history database, or returns nil when history is
// disabled by an empty directory.
func openHistory(cfg *config.Config, logger *slog.Logger) (*database.DB, error) {
	if cfg.DBDir == "" {
		return nil, nil //nolint:nilnil // history disabled
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("database opened", "dir", cfg.DBDir)
	return db, nil
}

// errorCollector is a JobRunner keeping every job error so the process exit
// status can reflect them.
type errorCollector struct {
	pipeline.JobRunner

	mu   sync.Mutex
	errs []error
}

func (c *errorCollector) Run(ctx context.Context, job *config.Job) (*model.Run, error) {
	run, err := c.JobRunner.Run(ctx, job)
	if err != nil {
		c.mu.Lock()
		c.errs = append(c.errs, fmt.Errorf("job %s: %w", job.Name, err))
		c.mu.Unlock()
	}
	return run, err
}

// runJobs executes jobs with the settings of cmd, prints a summary of every
// run and returns the joined job errors.
func runJobs(cmd *cobra.Command, jobs []*config.Job) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	m := metrics.New()
	collector := &errorCollector{JobRunner: pipeline.NewRunner(cfg,
		pipeline.WithDatabase(db),
		pipeline.WithMetrics(m),
		pipeline.WithRunnerLogger(logger),
	)}
	bp := pipeline.NewBatchProcessor(collector,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	runs, batchErr := bp.ProcessBatch(ctx, jobs)
	if err := outputReports(cmd, cfg, runs); err != nil {
		logger.Error("report failed", "error", err)
	}
	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("metrics export failed", "error", err)
		}
	}
	return errors.Join(append([]error{batchErr}, collector.errs...)...)
}

// outputReports writes the summary of every finished run.
func outputReports(cmd *cobra.Command, cfg *config.Config, runs []*model.Run) error {
	out, closeFn, err := reportOutput(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	var w report.Writer
	if cfg.Report == config.ReportText && cfg.Verbose {
		w = report.NewSimpleWriter(out, report.WithVerbose(true))
	} else if w, err = report.New(cfg.Report, out); err != nil {
		return err
	}
	for _, run := range runs {
		if run == nil {
			continue
		}
		if _, err := w.Write(run); err != nil {
			return err
		}
	}
	return nil
}

// reportOutput opens the report destination: cfg.ReportFile when set,
// stdout of cmd otherwise.
func reportOutput(cmd *cobra.Command, cfg *config.Config) (io.Writer, func(), error) {
	if cfg.ReportFile == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	if dir := filepath.Dir(cfg.ReportFile); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	// Reports name key files and mapping locations, so they are owner-only.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
