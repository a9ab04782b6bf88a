package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/pseudokit/internal/model"
)

// SimpleWriter renders plain text.
type SimpleWriter struct {
	baseWriter

	// verbose adds artifact locations and warnings.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every artifact location.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders the summary of run.
func (w *SimpleWriter) Write(run *model.Run) (int, error) {
	var sb strings.Builder
	rule(&sb, "=")
	fmt.Fprintf(&sb, "PSEUDOKIT RUN %s\n", run.ID)
	rule(&sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Job:       %s\n", run.Job)
	fmt.Fprintf(&sb, "Mode:      %s\n", run.Mode)
	if run.Strategy != "" {
		fmt.Fprintf(&sb, "Strategy:  %s\n", run.Strategy)
	}
	fmt.Fprintf(&sb, "Input:     %s\n", orDash(run.Input))
	fmt.Fprintf(&sb, "Output:    %s\n", orDash(run.OutputDir))
	fmt.Fprintf(&sb, "Started:   %s\n", run.StartedAt.Format(timeLayout))
	fmt.Fprintf(&sb, "Duration:  %s\n", run.Duration())
	fmt.Fprintf(&sb, "Rows:      %d in, %d out", run.RowsIn, run.RowsOut)
	if run.RowsExempted > 0 {
		fmt.Fprintf(&sb, ", %d exempted", run.RowsExempted)
	}
	sb.WriteString("\n")
	if run.Verified != nil {
		fmt.Fprintf(&sb, "Verified:  %s\n", verified(run))
	}
	fmt.Fprintf(&sb, "Status:    %s\n\n", status(run))

	if len(run.Columns) > 0 {
		section(&sb, "COLUMNS")
		for _, c := range run.Columns {
			enc := ""
			if c.Encrypted {
				enc = " (encrypted mapping)"
			}
			fmt.Fprintf(&sb, "  %-20s -> %-26s %6d records%s\n", c.Name, c.Tag, c.Records, enc)
		}
		fmt.Fprintf(&sb, "\n  TOTAL: %d records\n\n", run.TotalRecords())
	}

	if len(run.Artifacts) > 0 {
		section(&sb, "ARTIFACTS")
		for _, a := range run.Artifacts {
			if w.verbose {
				fmt.Fprintf(&sb, "  [%s] %s  %s\n", a.Kind, a.Name, a.Location)
			} else {
				fmt.Fprintf(&sb, "  [%s] %s\n", a.Kind, a.Name)
			}
		}
		sb.WriteString("\n")
	}

	if len(run.Warnings) > 0 {
		section(&sb, "WARNINGS")
		for _, msg := range run.Warnings {
			fmt.Fprintf(&sb, "  ! %s\n", msg)
		}
		sb.WriteString("\n")
	}

	return io.WriteString(w.output, sb.String())
}

// WriteHistory renders one line per run.
func (w *SimpleWriter) WriteHistory(runs []*model.Run) (int, error) {
	var sb strings.Builder
	if len(runs) == 0 {
		sb.WriteString("No runs recorded.\n")
		return io.WriteString(w.output, sb.String())
	}
	fmt.Fprintf(&sb, "%-36s  %-20s  %-12s  %-13s  %8s  %s\n", "ID", "STARTED", "MODE", "JOB", "RECORDS", "STATUS")
	for _, r := range runs {
		fmt.Fprintf(&sb, "%-36s  %-20s  %-12s  %-13s  %8d  %s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Mode, r.Job, r.TotalRecords(), status(r))
	}
	return io.WriteString(w.output, sb.String())
}

func rule(sb *strings.Builder, ch string) {
	sb.WriteString(strings.Repeat(ch, 70))
	sb.WriteString("\n")
}

func section(sb *strings.Builder, title string) {
	rule(sb, "-")
	sb.WriteString(title)
	sb.WriteString("\n")
	rule(sb, "-")
	sb.WriteString("\n")
}
