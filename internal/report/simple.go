package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/oabscraper/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors so the output can be piped to files or other tools.
type SimpleWriter struct {
	baseWriter

	// verbose adds the URL and error message of every failed record.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

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
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run summary.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeCounts(&sb, report)
	w.writeKinds(&sb, report)
	w.writeFailureList(&sb, report.Failures)
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          OAB SCRAPER RUN\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	if report.RunID > 0 {
		fmt.Fprintf(sb, "Run:         #%d\n", report.RunID)
	}
	fmt.Fprintf(sb, "Listing:     %s\n", report.BaseURL)
	fmt.Fprintf(sb, "Output:      %s\n", report.OutputFile)
	fmt.Fprintf(sb, "Started:     %s\n", formatTime(report.StartedAt))
	fmt.Fprintf(sb, "Finished:    %s\n", formatTime(report.FinishedAt))
	fmt.Fprintf(sb, "Duration:    %s\n", formatDuration(report.Duration()))
	fmt.Fprintf(sb, "Status:      %s\n", status(report))
	if report.AbortReason != "" {
		fmt.Fprintf(sb, "Reason:      %s\n", report.AbortReason)
	}
	sb.WriteString("\n")
}

// writeCounts writes the page and record counters.
func (w *SimpleWriter) writeCounts(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\nSUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "  Last page:      %d\n", report.LastPage)
	fmt.Fprintf(sb, "  Pages visited:  %d\n", report.PagesVisited)
	fmt.Fprintf(sb, "  Pages failed:   %d", len(report.PagesFailed))
	if len(report.PagesFailed) > 0 {
		fmt.Fprintf(sb, " (%s)", joinInts(report.PagesFailed))
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  Processed:      %d\n", report.Processed)
	fmt.Fprintf(sb, "  Persisted:      %d\n", report.Persisted)
	fmt.Fprintf(sb, "  Failed:         %d\n", report.FailedCount())
	sb.WriteString("\n")
}

// writeKinds writes the failure counts per kind.
func (w *SimpleWriter) writeKinds(sb *strings.Builder, report *model.RunReport) {
	kinds := report.FailuresByKind()
	if len(kinds) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\nFAILURES BY KIND\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
	for _, kc := range kinds {
		fmt.Fprintf(sb, "  %-15s %d\n", kc.Kind.String()+":", kc.Count)
	}
	sb.WriteString("\n")
}

// writeFailureList writes one entry per failed record.
func (w *SimpleWriter) writeFailureList(sb *strings.Builder, failures []model.RecordResult) {
	if len(failures) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\nFAILED RECORDS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
	for _, f := range failures {
		fmt.Fprintf(sb, "  [p%d] %s (%s", f.Page, f.Ref.Label, f.Kind)
		if f.Step != "" {
			fmt.Fprintf(sb, " at %s", f.Step)
		}
		sb.WriteString(")\n")
		if w.verbose {
			fmt.Fprintf(sb, "    URL:   %s\n", f.Ref.URL)
			if f.Message != "" {
				fmt.Fprintf(sb, "    Error: %s\n", f.Message)
			}
		}
	}
	sb.WriteString("\n")
}

// WriteHistory outputs one line per run.
func (w *SimpleWriter) WriteHistory(runs []model.RunSummary) (int, error) {
	var sb strings.Builder

	if len(runs) == 0 {
		sb.WriteString("No runs recorded.\n")
		return w.output.Write([]byte(sb.String()))
	}

	fmt.Fprintf(&sb, "%-6s %-25s %9s %9s %6s  %s\n", "ID", "STARTED", "PROCESSED", "PERSISTED", "FAILED", "STATUS")
	for _, r := range runs {
		state := "complete"
		switch {
		case r.Aborted:
			state = "aborted"
		case r.FinishedAt.IsZero():
			state = "running"
		}
		fmt.Fprintf(&sb, "%-6d %-25s %9d %9d %6d  %s\n",
			r.ID, formatTime(r.StartedAt), r.Processed, r.Persisted, r.Failed, state)
	}
	return w.output.Write([]byte(sb.String()))
}

// WriteFailures outputs the failed records of one run.
func (w *SimpleWriter) WriteFailures(runID int64, failures []model.RecordResult) (int, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Run #%d: %d failed record(s)\n\n", runID, len(failures))
	for _, f := range failures {
		fmt.Fprintf(&sb, "  [p%d] %s\n", f.Page, f.Ref.Label)
		fmt.Fprintf(&sb, "    Kind:  %s\n", f.Kind)
		if f.Step != "" {
			fmt.Fprintf(&sb, "    Step:  %s\n", f.Step)
		}
		fmt.Fprintf(&sb, "    URL:   %s\n", f.Ref.URL)
		if f.Message != "" {
			fmt.Fprintf(&sb, "    Error: %s\n", f.Message)
		}
	}
	return w.output.Write([]byte(sb.String()))
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
