package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/scriptorium/internal/model"
)

// MarkdownWriter outputs run reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteResult outputs one finished run in Markdown format.
func (w *MarkdownWriter) WriteResult(record *model.RunRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Script Run Report")
	md.PlainText("")

	w.writeRunTable(md, record)
	w.writeResultAlert(md, record)
	w.writeStream(md, "Stdout", record.Stdout)
	w.writeStream(md, "Stderr", record.Stderr)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteHistory outputs past runs in Markdown format with an outcome
// summary, a distribution chart, and a table of runs.
func (w *MarkdownWriter) WriteHistory(records []*model.RunRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Run History")
	md.PlainText("")

	w.writeSummary(md, records)
	w.writeHistoryTable(md, records)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeRunTable writes the run metadata table.
func (w *MarkdownWriter) writeRunTable(md *markdown.Markdown, record *model.RunRecord) {
	rows := [][]string{
		{"Script", "`" + record.Script + "`"},
		{"Status", statusBadge(record)},
		{"Exit Code", strconv.Itoa(record.ExitCode)},
		{"Duration", record.Duration().String()},
	}
	if record.ID > 0 {
		rows = append(rows, []string{"Run ID", strconv.FormatInt(record.ID, 10)})
	}
	if record.Cached {
		rows = append(rows, []string{"Cached", "yes"})
	}
	if record.InputSHA256 != "" {
		rows = append(rows, []string{"Input SHA-256", "`" + record.InputSHA256 + "`"})
	}
	if !record.CreatedAt.IsZero() {
		rows = append(rows, []string{"Date", record.CreatedAt.Format("2006-01-02 15:04:05 MST")})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// statusBadge returns the status cell for the metadata table.
func statusBadge(record *model.RunRecord) string {
	switch record.Status() {
	case model.RunStatusOK:
		return "✅ OK"
	case model.RunStatusTimedOut:
		return "⚠️ Timed Out"
	default:
		return "❌ Failed"
	}
}

// writeResultAlert writes a GitHub alert matching the run outcome.
func (w *MarkdownWriter) writeResultAlert(md *markdown.Markdown, record *model.RunRecord) {
	switch record.Status() {
	case model.RunStatusTimedOut:
		md.Cautionf("The run exceeded its time limit and was killed after %s.",
			record.Duration().String())
	case model.RunStatusFailed:
		md.Warningf("The script exited with code %d.", record.ExitCode)
	default:
		md.Tip("The script completed successfully.")
	}
	md.PlainText("")
}

// writeStream writes one captured output stream as a code block.
func (w *MarkdownWriter) writeStream(md *markdown.Markdown, title, content string) {
	md.H2(title)
	md.PlainText("")

	if content == "" {
		md.PlainText("(empty)")
		md.PlainText("")
		return
	}

	md.CodeBlocks(markdown.SyntaxHighlightText, content)
	md.PlainText("")
}

// writeSummary writes the outcome summary table, distribution chart,
// and an alert reflecting the worst outcome present.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, records []*model.RunRecord) {
	ok, failed, timedOut := statusCounts(records)

	md.H2("Outcome Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"✅ OK", strconv.Itoa(ok)},
			{"❌ Failed", strconv.Itoa(failed)},
			{"⚠️ Timed Out", strconv.Itoa(timedOut)},
			{"**Total**", "**" + strconv.Itoa(len(records)) + "**"},
		},
	})
	md.PlainText("")

	if len(records) > 0 {
		w.writePieChart(md, ok, failed, timedOut)
	}

	switch {
	case timedOut > 0:
		md.Cautionf("%d run(s) timed out and were killed.", timedOut)
	case failed > 0:
		md.Warningf("%d run(s) exited with a non-zero code.", failed)
	case len(records) > 0:
		md.Tip("All recorded runs completed successfully.")
	default:
		md.Note("No runs recorded yet.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of run outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, ok, failed, timedOut int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Run Outcome Distribution"),
		piechart.WithShowData(true),
	)

	if ok > 0 {
		chart.LabelAndIntValue("OK", uint64(ok))
	}
	if failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(failed))
	}
	if timedOut > 0 {
		chart.LabelAndIntValue("Timed Out", uint64(timedOut))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeHistoryTable writes one row per run, newest first.
func (w *MarkdownWriter) writeHistoryTable(md *markdown.Markdown, records []*model.RunRecord) {
	md.H2("Runs")
	md.PlainText("")

	if len(records) == 0 {
		md.PlainText("No runs recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(records))
	for i, record := range records {
		rows[i] = []string{
			strconv.FormatInt(record.ID, 10),
			"`" + truncateString(record.Script, 40) + "`",
			record.Status().String(),
			strconv.Itoa(record.ExitCode),
			record.Duration().String(),
			record.CreatedAt.Format("2006-01-02 15:04:05"),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"ID", "Script", "Status", "Exit", "Duration", "Created At"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [scriptorium](https://github.com/nao1215/scriptorium)*")
}
