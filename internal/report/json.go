package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/fairhire/internal/model"
)

// JSONWriter outputs records in JSON format. Each record carries a
// "summary" object with the structured form of its report.
type JSONWriter struct {
	baseWriter

	renderer *Renderer

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output with the given prefix and indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithSummaryRenderer sets the renderer of the summary object.
func WithSummaryRenderer(r *Renderer) JSONWriterOption {
	return func(w *JSONWriter) {
		if r != nil {
			w.renderer = r
		}
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
		renderer:   NewRenderer(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// recordDocument is the JSON shape of a written record.
type recordDocument struct {
	*model.AuditRecord
	Summary Summary `json:"summary"`
}

// Write outputs the record in JSON format.
func (w *JSONWriter) Write(rec *model.AuditRecord) (int, error) {
	return w.WriteValue(recordDocument{
		AuditRecord: rec,
		Summary:     w.renderer.RenderStructured(rec.Findings),
	})
}

// WriteValue marshals any value with the writer's formatting, followed by a newline.
func (w *JSONWriter) WriteValue(v any) (int, error) {
	var (
		data []byte
		err  error
	)
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
