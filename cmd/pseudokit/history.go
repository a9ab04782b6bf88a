package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/pseudokit/internal/config"
	"github.com/nao1215/pseudokit/internal/database"
	"github.com/nao1215/pseudokit/internal/model"
	"github.com/nao1215/pseudokit/internal/report"
)

// defaultHistoryLimit is the number of runs listed without --limit.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [job]",
		Short: "List recorded runs",
		Long: `History lists the runs recorded in the history database, newest first.

Every run of pseudokit is recorded with its columns, record counts, artifacts
and warnings. Original values and keys are never stored in the history.

Examples:
  # List the last 20 runs
  pseudokit history

  # List the runs of one job
  pseudokit history customers

  # Show one run in full, as Markdown
  pseudokit history --id 0b6f... --report markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Maximum number of runs listed (0 for all)")
	cmd.Flags().StringP("id", "i", "", "Show the full summary of one run")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DBDir == "" {
		return fmt.Errorf("%w: history is disabled", config.ErrNoDBDir)
	}

	// Validate flags before opening the database
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	id, err := cmd.Flags().GetString("id")
	if err != nil {
		return err
	}
	if id != "" && len(args) > 0 {
		return errors.New("--id and a job name are mutually exclusive")
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	out, closeFn, err := reportOutput(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	w, err := report.New(cfg.Report, out)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if id != "" {
		run, err := db.GetRun(ctx, id)
		if err != nil {
			return err
		}
		_, err = w.Write(run)
		return err
	}

	var job string
	if len(args) > 0 {
		job = args[0]
	}
	runs, err := loadHistory(ctx, db, job, limit)
	if err != nil {
		return err
	}
	_, err = w.WriteHistory(runs)
	return err
}

// loadHistory returns the full records of the most recent runs.
func loadHistory(ctx context.Context, db *database.DB, job string, limit int) ([]*model.Run, error) {
	metas, err := db.ListRuns(ctx, job, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	runs := make([]*model.Run, 0, len(metas))
	for _, m := range metas {
		run, err := db.GetRun(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}
