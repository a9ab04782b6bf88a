package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/pseudokit/internal/config"
	"github.com/nao1215/pseudokit/internal/table"
)

// Exit statuses.
const (
	exitFailure      = 1
	exitEmptyDataset = 2
)

// NewRootCmd creates the root command for pseudokit.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pseudokit",
		Short: "Pseudonymize, revert and k-anonymize tabular and text data",
		Long: `pseudokit replaces identifying values in CSV/TSV tables and free text with
pseudonyms (counters, hashes, random identifiers, ciphertext, Merkle row hashes
or synthetic values) and keeps mapping tables and secret keys so the
substitution can be reverted later.

It also generalizes tables to k-anonymity and aggregates numeric and date
columns into ranges. Every run is recorded in a local history database.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	pf := cmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Enable verbose logging")
	pf.Bool("log-json", false, "Write logs as JSON")
	pf.String("key-backend", config.DefaultKeyBackend, "Where keys and mappings live: dir, sqlite or redis")
	pf.String("redis-addr", config.DefaultRedisAddr, "Redis address for the redis key backend")
	pf.String("db-dir", config.XDGDataDir(), "History database directory (empty disables history)")
	pf.StringP("report", "r", config.DefaultReportFormat, "Run summary format: text, json or markdown")
	pf.String("report-file", "", "Write the run summary to this file instead of stdout")
	pf.String("metrics-file", "", "Write Prometheus metrics in textfile format after the run")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewPseudonymizeCmd())
	cmd.AddCommand(NewTextCmd())
	cmd.AddCommand(NewRevertCmd())
	cmd.AddCommand(NewDecryptCmd())
	cmd.AddCommand(NewKAnonCmd())
	cmd.AddCommand(NewVerifyCmd())
	cmd.AddCommand(NewAggregateCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	if errors.Is(err, table.ErrEmptyDataset) {
		return exitEmptyDataset
	}
	return exitFailure
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
