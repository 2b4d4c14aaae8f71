package model

import "time"

// FieldCount is the number of positional values scraped from a detail page.
const FieldCount = 8

// Header returns the column titles of the output spreadsheet, in the order
// the values appear on the detail page.
func Header() []string {
	return []string{
		"Número de Inscrição",
		"Advogado",
		"Impedimentos",
		"Situação",
		"Subseção",
		"Data da Inscrição",
		"Endereço Comercial",
		"Telefone Comercial",
	}
}

// RecordRef is a link to one lawyer's detail page as it appears on a listing page.
type RecordRef struct {
	// Label is the visible link text (usually the lawyer's name).
	Label string `json:"label"`

	// URL is the absolute detail-page URL.
	URL string `json:"url"`
}

// FieldVector holds the values read from the detail-page table, one per row.
// Position i corresponds to Header()[i]. The vector is written as-is, so a
// page with an unexpected number of rows produces a shorter or longer row.
type FieldVector []string

// Complete reports whether the vector has exactly FieldCount values.
func (f FieldVector) Complete() bool {
	return len(f) == FieldCount
}

// RecordJob carries the state of one record through the processing steps.
// A job is created per record and discarded once its result is recorded.
type RecordJob struct {
	// Page is the 1-based listing page the record was found on.
	Page int

	// Ref identifies the record.
	Ref RecordRef

	// Challenge is the last observed challenge state.
	Challenge ChallengeState

	// Fields is filled by the extraction step.
	Fields FieldVector

	// Persisted is set once the row has been appended to the store.
	Persisted bool
}

// NewRecordJob creates a job for the given record reference.
func NewRecordJob(page int, ref RecordRef) *RecordJob {
	return &RecordJob{
		Page:      page,
		Ref:       ref,
		Challenge: ChallengeUnchallenged,
	}
}

// RecordResult is the outcome of processing one record.
type RecordResult struct {
	Page      int            `json:"page"`
	Ref       RecordRef      `json:"ref"`
	Challenge ChallengeState `json:"challenge"`
	Persisted bool           `json:"persisted"`

	// Kind is KindNone when the record was persisted.
	Kind FailureKind `json:"kind"`

	// Message is the error text of a failed record.
	Message string `json:"message,omitempty"`

	// Step is the name of the processing step that failed.
	Step string `json:"step,omitempty"`

	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Failed reports whether the record produced no row.
func (r RecordResult) Failed() bool {
	return !r.Persisted
}
