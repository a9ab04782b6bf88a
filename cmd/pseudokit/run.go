package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/pseudokit/internal/config"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [job-file...]",
		Short: "Run jobs described by YAML job files",
		Long: `Run executes one or more YAML job files.

Without arguments, run looks for .pseudokit.yaml in the current directory and
then in the home directory. Several jobs may run concurrently with --batch as
long as they write to different output directories.

Examples:
  # Run the job in ./.pseudokit.yaml
  pseudokit run

  # Run two jobs concurrently
  pseudokit run --batch 2 customers.yaml notes.yaml

  # Create a commented job file to start from
  pseudokit init`,
		Args: cobra.ArbitraryArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize, "Number of jobs run concurrently")
	cmd.Flags().StringP("config", "c", "", "Job file path used when no argument is given")

	return cmd
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		explicit, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}
		path := config.FindConfigFile(explicit)
		if path == "" {
			if explicit != "" {
				return fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicit)
			}
			return errors.New("no job file given and no " + config.DefaultConfigFile + " found (run 'pseudokit init' to create one)")
		}
		paths = []string{path}
	}

	jobs, err := loadJobs(paths)
	if err != nil {
		return err
	}
	return runJobs(cmd, jobs)
}

// loadJobs reads every job file. Duplicate job names get the file index
// appended so history entries stay distinguishable.
func loadJobs(paths []string) ([]*config.Job, error) {
	jobs := make([]*config.Job, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for i, p := range paths {
		job, err := config.LoadJobFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to load job file %s: %w", p, err)
		}
		if seen[job.Name] {
			job.Name = fmt.Sprintf("%s-%d", job.Name, i+1)
		}
		seen[job.Name] = true
		jobs = append(jobs, job)
	}
	return jobs, nil
}
