package report

import (
	"io"

	"github.com/nao1215/a11yscan/internal/model"
)

// Writer writes a scan report in one output format.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(report *model.ScanReport) (int, error)
}

// MultiWriter writes to several Writers in turn, stopping at the first
// error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to every writer and returns the total bytes
// written.
func (m *MultiWriter) Write(report *model.ScanReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
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
