package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/pseudokit/internal/config"
)

//go:embed templates/pseudokit.yaml
var jobTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a commented job file",
		Long: `Init writes a .pseudokit.yaml job file in the current directory.

The generated file documents every job key: the method and columns of a
pseudonymization, text categories and patterns, revert and decrypt settings,
and k-anonymity depths and aggregation.

Examples:
  # Create .pseudokit.yaml in current directory
  pseudokit init

  # Create the job file at a specific path
  pseudokit init -o jobs/customers.yaml

  # Force overwrite existing file
  pseudokit init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile, "Output file path for the job file")
	cmd.Flags().BoolP("force", "f", false, "Overwrite existing job file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("job file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := jobTemplate.ReadFile("templates/pseudokit.yaml")
	if err != nil {
		return fmt.Errorf("failed to read job template: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write job file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created job file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit input_file, output and map_columns, then run:")
	fmt.Fprintln(out, "  pseudokit run")
	return nil
}
