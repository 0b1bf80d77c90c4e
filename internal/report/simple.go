package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/scriptorium/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether empty stdout/stderr sections are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty output sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteResult outputs one finished run in human-readable format.
func (w *SimpleWriter) WriteResult(record *model.RunRecord) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, "SCRIPT RUN REPORT")
	w.writeRunInfo(&sb, record)
	w.writeStream(&sb, "STDOUT", record.Stdout)
	w.writeStream(&sb, "STDERR", record.Stderr)

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// WriteHistory outputs past runs as an aligned table with a summary line.
func (w *SimpleWriter) WriteHistory(records []*model.RunRecord) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, "RUN HISTORY")

	if len(records) == 0 {
		sb.WriteString("No runs recorded.\n")
		return w.output.Write([]byte(sb.String()))
	}

	sb.WriteString(fmt.Sprintf("%-6s  %-24s  %-9s  %4s  %9s  %s\n",
		"ID", "SCRIPT", "STATUS", "EXIT", "DURATION", "CREATED AT"))
	for _, record := range records {
		sb.WriteString(fmt.Sprintf("%-6d  %-24s  %-9s  %4d  %9s  %s",
			record.ID,
			truncateString(record.Script, 24),
			record.Status().String(),
			record.ExitCode,
			record.Duration().String(),
			record.CreatedAt.Format("2006-01-02 15:04:05"),
		))
		if w.verbose && len(record.Args) > 0 {
			sb.WriteString("  args: " + strings.Join(record.Args, " "))
		}
		sb.WriteString("\n")
	}

	ok, failed, timedOut := statusCounts(records)
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("TOTAL: %d runs (%d ok, %d failed, %d timed out)\n",
		len(records), ok, failed, timedOut))

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the banner at the top of every report.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	pad := (70 - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	sb.WriteString(strings.Repeat(" ", pad))
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

// writeRunInfo writes the run metadata section.
func (w *SimpleWriter) writeRunInfo(sb *strings.Builder, record *model.RunRecord) {
	sb.WriteString(fmt.Sprintf("Script:    %s\n", record.Script))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", statusLine(record)))
	sb.WriteString(fmt.Sprintf("Duration:  %s\n", record.Duration().String()))

	if record.Cached {
		sb.WriteString("Cached:    yes\n")
	}
	if !record.CreatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Date:      %s\n", record.CreatedAt.Format("2006-01-02 15:04:05 MST")))
	}

	if w.verbose {
		if record.ID > 0 {
			sb.WriteString(fmt.Sprintf("Run ID:    %d\n", record.ID))
		}
		if len(record.Args) > 0 {
			sb.WriteString(fmt.Sprintf("Args:      %s\n", strings.Join(record.Args, " ")))
		}
		if record.InputSHA256 != "" {
			sb.WriteString(fmt.Sprintf("Input:     sha256:%s\n", record.InputSHA256))
		}
	}

	sb.WriteString("\n")
}

// writeStream writes one captured output stream as a titled section.
func (w *SimpleWriter) writeStream(sb *strings.Builder, title, content string) {
	if content == "" && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")

	if content == "" {
		sb.WriteString("(empty)\n")
	} else {
		sb.WriteString(content)
		if !strings.HasSuffix(content, "\n") {
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
}

// statusLine renders the run outcome with its exit code.
func statusLine(record *model.RunRecord) string {
	switch record.Status() {
	case model.RunStatusOK:
		return "OK (exit 0)"
	case model.RunStatusTimedOut:
		return "TIMED OUT"
	default:
		return fmt.Sprintf("FAILED (exit %d)", record.ExitCode)
	}
}
