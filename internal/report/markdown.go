package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/oabscraper/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for sharing the result of a run.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run summary in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeKinds(md, report)
	w.writeFailureTable(md, report.Failures)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("OAB Scraper Run")
	md.PlainText("")

	rows := make([][]string, 0, 7)
	if report.RunID > 0 {
		rows = append(rows, []string{"Run", "#" + strconv.FormatInt(report.RunID, 10)})
	}
	rows = append(rows,
		[]string{"Listing", "`" + report.BaseURL + "`"},
		[]string{"Output", "`" + report.OutputFile + "`"},
		[]string{"Started", formatTime(report.StartedAt)},
		[]string{"Finished", formatTime(report.FinishedAt)},
		[]string{"Duration", formatDuration(report.Duration())},
		[]string{"Status", w.statusText(report)},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// statusText decorates the run status.
func (w *MarkdownWriter) statusText(report *model.RunReport) string {
	switch {
	case report.Aborted:
		return "❌ Aborted - " + report.AbortReason
	case report.FailedCount() > 0 || len(report.PagesFailed) > 0:
		return "⚠️ " + status(report)
	default:
		return "✅ " + status(report)
	}
}

// writeSummary writes the counters and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Summary")
	md.PlainText("")

	pagesFailed := strconv.Itoa(len(report.PagesFailed))
	if len(report.PagesFailed) > 0 {
		pagesFailed += " (" + joinInts(report.PagesFailed) + ")"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Last page", strconv.Itoa(report.LastPage)},
			{"Pages visited", strconv.Itoa(report.PagesVisited)},
			{"Pages failed", pagesFailed},
			{"Records processed", strconv.Itoa(report.Processed)},
			{"Rows persisted", strconv.Itoa(report.Persisted)},
			{"**Records failed**", "**" + strconv.Itoa(report.FailedCount()) + "**"},
		},
	})
	md.PlainText("")

	switch {
	case report.Aborted:
		md.Cautionf("The run stopped early: %s", report.AbortReason)
	case report.FailedCount() > 0:
		md.Warningf("%d record(s) produced no row. Rerun or inspect them with `oabscraper history --failed %d`.",
			report.FailedCount(), report.RunID)
	case report.Processed == 0:
		md.Note("No record was processed.")
	default:
		md.Tip("Every record was written to the output file.")
	}
	md.PlainText("")
}

// writeKinds writes the failures per kind as a pie chart.
func (w *MarkdownWriter) writeKinds(md *markdown.Markdown, report *model.RunReport) {
	kinds := report.FailuresByKind()
	if len(kinds) == 0 {
		return
	}

	md.H2("Failures by Kind")
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Failure Kinds"),
		piechart.WithShowData(true),
	)
	for _, kc := range kinds {
		chart.LabelAndIntValue(kc.Kind.String(), uint64(kc.Count)) //nolint:gosec // counts are never negative
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFailureTable writes a table of failed records.
func (w *MarkdownWriter) writeFailureTable(md *markdown.Markdown, failures []model.RecordResult) {
	if len(failures) == 0 {
		return
	}

	md.H2("Failed Records")
	md.PlainText("")

	rows := make([][]string, len(failures))
	for i, f := range failures {
		step := f.Step
		if step == "" {
			step = "-"
		}
		rows[i] = []string{
			strconv.Itoa(f.Page),
			f.Ref.Label,
			f.Kind.String(),
			step,
			truncateString(f.Message, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Page", "Record", "Kind", "Step", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [oabscraper](https://github.com/nao1215/oabscraper)*")
}

// WriteHistory outputs the run list as a table.
func (w *MarkdownWriter) WriteHistory(runs []model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Run History")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No runs recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		state := "✅"
		switch {
		case r.Aborted:
			state = "❌"
		case r.Failed > 0:
			state = "⚠️"
		}
		rows[i] = []string{
			strconv.FormatInt(r.ID, 10),
			formatTime(r.StartedAt),
			formatTime(r.FinishedAt),
			strconv.Itoa(r.Processed),
			strconv.Itoa(r.Persisted),
			strconv.Itoa(r.Failed),
			state,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "Finished", "Processed", "Persisted", "Failed", "Status"},
		Rows:   rows,
	})
	return len(md.String()), md.Build()
}

// WriteFailures outputs the failed records of one run.
func (w *MarkdownWriter) WriteFailures(runID int64, failures []model.RecordResult) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Failed Records of Run #" + strconv.FormatInt(runID, 10))
	md.PlainText("")

	if len(failures) == 0 {
		md.Tip("No failed records.")
		return len(md.String()), md.Build()
	}
	w.writeFailureTable(md, failures)
	for _, f := range failures {
		if f.Message != "" {
			md.Details(f.Ref.Label, f.Ref.URL+"\n\n"+f.Message)
		}
	}
	return len(md.String()), md.Build()
}
