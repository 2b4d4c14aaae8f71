package model

import (
	"sort"
	"time"
)

// RunReport summarizes one scraping run.
// It is filled incrementally by the runner and rendered by the report package.
type RunReport struct {
	// RunID is the ledger identifier, zero when the ledger is disabled.
	RunID int64 `json:"runId"`

	BaseURL    string    `json:"baseUrl"`
	OutputFile string    `json:"outputFile"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	// LastPage is the page count read from the listing.
	LastPage int `json:"lastPage"`

	// PagesVisited counts pages whose records were listed.
	PagesVisited int `json:"pagesVisited"`

	// PagesFailed lists pages whose record links could not be read.
	PagesFailed []int `json:"pagesFailed,omitempty"`

	// Processed counts records that were attempted.
	Processed int `json:"processed"`

	// Persisted counts rows appended to the output file.
	Persisted int `json:"persisted"`

	// Failures holds one entry per record that produced no row.
	Failures []RecordResult `json:"failures,omitempty"`

	// Aborted is set when the run stopped before the last page.
	Aborted bool `json:"aborted"`

	// AbortReason is the error that stopped the run.
	AbortReason string `json:"abortReason,omitempty"`
}

// NewRunReport creates an empty report for a run against baseURL.
func NewRunReport(baseURL, outputFile string) *RunReport {
	return &RunReport{
		BaseURL:    baseURL,
		OutputFile: outputFile,
		StartedAt:  time.Now(),
		Failures:   make([]RecordResult, 0),
	}
}

// AddResult records the outcome of one record.
func (r *RunReport) AddResult(res RecordResult) {
	r.Processed++
	if res.Persisted {
		r.Persisted++
		return
	}
	r.Failures = append(r.Failures, res)
}

// AddPageFailure records a page whose links could not be listed.
func (r *RunReport) AddPageFailure(page int) {
	r.PagesFailed = append(r.PagesFailed, page)
}

// Abort marks the run as stopped early.
func (r *RunReport) Abort(err error) {
	r.Aborted = true
	if err != nil {
		r.AbortReason = err.Error()
	}
}

// Finish stamps the end time.
func (r *RunReport) Finish() {
	r.FinishedAt = time.Now()
}

// Duration returns the wall time of the run.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FailedCount returns the number of records that produced no row.
func (r *RunReport) FailedCount() int {
	return len(r.Failures)
}

// KindCount is the number of failures of one kind.
type KindCount struct {
	Kind  FailureKind
	Count int
}

// FailuresByKind counts failures per kind, ordered by kind.
func (r *RunReport) FailuresByKind() []KindCount {
	counts := make(map[FailureKind]int)
	for _, f := range r.Failures {
		counts[f.Kind]++
	}

	result := make([]KindCount, 0, len(counts))
	for k, c := range counts {
		result = append(result, KindCount{Kind: k, Count: c})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Kind < result[j].Kind
	})
	return result
}

// RunSummary is the history line of one run.
// It is used to list runs without loading every record.
type RunSummary struct {
	ID         int64     `json:"id"`
	BaseURL    string    `json:"baseUrl"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Processed  int       `json:"processed"`
	Persisted  int       `json:"persisted"`
	Failed     int       `json:"failed"`
	Aborted    bool      `json:"aborted"`
}
