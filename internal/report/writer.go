package report

import (
	"io"
	"time"

	"github.com/nao1215/oabscraper/internal/model"
)

// timeLayout is used for every timestamp in rendered reports.
const timeLayout = "2006-01-02 15:04:05 MST"

// Writer defines the interface for report output.
//
// Design decision: We use an interface to allow different output formats
// and destinations. The run command writes a summary to the terminal and
// optionally to a Markdown file with the same API.
type Writer interface {
	// Write outputs the summary of one run.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.RunReport) (int, error)

	// WriteHistory outputs a list of past runs.
	WriteHistory(runs []model.RunSummary) (int, error)

	// WriteFailures outputs the failed records of one run.
	WriteFailures(runID int64, failures []model.RecordResult) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.RunReport) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.Write(report) })
}

// WriteHistory outputs the run list to all configured Writers.
func (m *MultiWriter) WriteHistory(runs []model.RunSummary) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteHistory(runs) })
}

// WriteFailures outputs the failed records to all configured Writers.
func (m *MultiWriter) WriteFailures(runID int64, failures []model.RecordResult) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteFailures(runID, failures) })
}

func (m *MultiWriter) each(fn func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := fn(w)
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

// status returns the one-word state of a run.
func status(report *model.RunReport) string {
	switch {
	case report.Aborted:
		return "Aborted"
	case report.FinishedAt.IsZero():
		return "Running"
	case report.FailedCount() > 0 || len(report.PagesFailed) > 0:
		return "Completed with failures"
	default:
		return "Complete"
	}
}

// formatTime renders t or "-" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(timeLayout)
}

// formatDuration rounds d to the second.
func formatDuration(d time.Duration) string {
	return d.Round(time.Second).String()
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
