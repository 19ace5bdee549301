package report

import (
	"io"

	"github.com/nao1215/fairhire/internal/model"
)

// Writer presents an audit record.
type Writer interface {
	// Write outputs the record to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(rec *model.AuditRecord) (int, error)
}

// MultiWriter writes to multiple Writers in turn.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the record to every Writer and stops on the first error.
func (m *MultiWriter) Write(rec *model.AuditRecord) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(rec)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
