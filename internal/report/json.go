package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/pseudokit/internal/model"
)

// JSONWriter renders runs as JSON.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Summary wraps a run with derived totals.
type Summary struct {
	*model.Run

	DurationMillis int64 `json:"duration_ms"`
	TotalRecords   int   `json:"total_records"`
	Succeeded      bool  `json:"succeeded"`
}

// NewSummary derives the totals of run.
func NewSummary(run *model.Run) Summary {
	return Summary{
		Run:            run,
		DurationMillis: run.Duration().Milliseconds(),
		TotalRecords:   run.TotalRecords(),
		Succeeded:      run.Succeeded(),
	}
}

// Write renders run as one JSON object.
func (w *JSONWriter) Write(run *model.Run) (int, error) {
	return w.writeJSON(NewSummary(run))
}

// WriteHistory renders runs as a JSON array.
func (w *JSONWriter) WriteHistory(runs []*model.Run) (int, error) {
	out := make([]Summary, len(runs))
	for i, r := range runs {
		out[i] = NewSummary(r)
	}
	return w.writeJSON(out)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
