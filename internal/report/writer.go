package report

import (
	"io"

	"github.com/nao1215/scriptorium/internal/model"
)

// Writer defines the interface for run report output.
// Implementations render run results in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// WriteResult outputs one finished run.
	// Returns the number of bytes written and any error encountered.
	WriteResult(record *model.RunRecord) (int, error)

	// WriteHistory outputs a list of past runs, newest first.
	WriteHistory(records []*model.RunRecord) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write run records, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteResult outputs the run to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) WriteResult(record *model.RunRecord) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteResult(record)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteHistory outputs the run history to all configured Writers.
func (m *MultiWriter) WriteHistory(records []*model.RunRecord) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteHistory(records)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusCounts tallies run outcomes for summary sections.
func statusCounts(records []*model.RunRecord) (ok, failed, timedOut int) {
	for _, record := range records {
		switch record.Status() {
		case model.RunStatusOK:
			ok++
		case model.RunStatusTimedOut:
			timedOut++
		default:
			failed++
		}
	}
	return ok, failed, timedOut
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
