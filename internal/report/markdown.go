package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/pseudokit/internal/model"
)

// MarkdownWriter renders GitHub flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write renders the summary of run.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Pseudokit Run")
	md.PlainText("")
	rows := [][]string{
		{"Run", "`" + run.ID + "`"},
		{"Job", run.Job},
		{"Mode", string(run.Mode)},
		{"Strategy", orDash(run.Strategy)},
		{"Input", "`" + orDash(run.Input) + "`"},
		{"Output", "`" + orDash(run.OutputDir) + "`"},
		{"Started", run.StartedAt.Format(timeLayout)},
		{"Duration", run.Duration().String()},
		{"Rows in / out", strconv.Itoa(run.RowsIn) + " / " + strconv.Itoa(run.RowsOut)},
		{"Rows exempted", strconv.Itoa(run.RowsExempted)},
		{"Verified", verified(run)},
	}
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")

	if run.Succeeded() {
		md.Tip("Run completed.")
	} else {
		md.Cautionf("Run failed: %s", run.ErrorMessage)
	}
	md.PlainText("")

	w.writeColumns(md, run)
	w.writeArtifacts(md, run)

	if len(run.Warnings) > 0 {
		md.H2("Warnings")
		md.PlainText("")
		md.BulletList(run.Warnings...)
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeColumns(md *markdown.Markdown, run *model.Run) {
	if len(run.Columns) == 0 {
		return
	}
	md.H2("Columns")
	md.PlainText("")

	rows := make([][]string, len(run.Columns))
	for i, c := range run.Columns {
		enc := "no"
		if c.Encrypted {
			enc = "yes"
		}
		rows[i] = []string{c.Name, "`" + c.Tag + "`", strconv.Itoa(c.Records), enc}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Column", "Pseudonym column", "Records", "Encrypted mapping"},
		Rows:   rows,
	})
	md.PlainText("")

	if run.TotalRecords() == 0 {
		return
	}
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Records per column"),
		piechart.WithShowData(true),
	)
	for _, c := range run.Columns {
		if c.Records > 0 {
			chart.LabelAndIntValue(c.Name, uint64(c.Records)) //nolint:gosec // record counts are never negative
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeArtifacts(md *markdown.Markdown, run *model.Run) {
	if len(run.Artifacts) == 0 {
		return
	}
	md.H2("Artifacts")
	md.PlainText("")
	rows := make([][]string, len(run.Artifacts))
	for i, a := range run.Artifacts {
		rows[i] = []string{a.Name, string(a.Kind), "`" + a.Location + "`"}
	}
	md.Table(markdown.TableSet{Header: []string{"Name", "Kind", "Location"}, Rows: rows})
	md.PlainText("")
	if hasKeys(run) {
		md.Warningf("Secret key files allow decrypting the mappings. Store them apart from the pseudonymized data.")
		md.PlainText("")
	}
}

// WriteHistory renders a table of runs.
func (w *MarkdownWriter) WriteHistory(runs []*model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Pseudokit History")
	md.PlainText("")
	if len(runs) == 0 {
		md.PlainText("No runs recorded.")
		return len(md.String()), md.Build()
	}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			"`" + r.ID + "`",
			r.StartedAt.Format(timeLayout),
			r.Job,
			string(r.Mode),
			strconv.Itoa(r.TotalRecords()),
			status(r),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Run", "Started", "Job", "Mode", "Records", "Status"},
		Rows:   rows,
	})
	return len(md.String()), md.Build()
}

func hasKeys(run *model.Run) bool {
	for _, a := range run.Artifacts {
		if a.Kind == model.ArtifactKey {
			return true
		}
	}
	return false
}
