package model

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies why an operation failed.
// The orchestrator uses the kind to decide between skipping a record,
// skipping a page, or aborting the run.
type FailureKind int

const (
	// KindNone means no failure.
	KindNone FailureKind = iota

	// KindNavigation covers page loads and missing or unexpected elements.
	KindNavigation

	// KindParsing covers values that could not be interpreted, such as the
	// last-page number.
	KindParsing

	// KindCaptcha covers failures of the challenge flow itself.
	KindCaptcha

	// KindTranscription covers audio download, transcoding and recognition.
	KindTranscription

	// KindExtraction covers reading the detail table.
	KindExtraction

	// KindPersistence covers opening or appending to the output file.
	KindPersistence

	// KindCanceled means the run was interrupted.
	KindCanceled
)

// String returns the kind name used in logs, reports and the run ledger.
func (k FailureKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNavigation:
		return "navigation"
	case KindParsing:
		return "parsing"
	case KindCaptcha:
		return "captcha"
	case KindTranscription:
		return "transcription"
	case KindExtraction:
		return "extraction"
	case KindPersistence:
		return "persistence"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ParseFailureKind is the inverse of FailureKind.String.
// Unknown names map to KindNone.
func ParseFailureKind(s string) FailureKind {
	for k := KindNone; k <= KindCanceled; k++ {
		if k.String() == s {
			return k
		}
	}
	return KindNone
}

// Error is a failure tagged with its kind and the operation that produced it.
type Error struct {
	Kind FailureKind
	Op   string
	Err  error
}

// NewError wraps err with a kind and operation name.
// If err is already a *Error its kind is kept, so the innermost
// classification wins.
func NewError(kind FailureKind, op string, err error) *Error {
	var inner *Error
	if errors.As(err, &inner) {
		kind = inner.Kind
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failure", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err.
// Context cancellation maps to KindCanceled; untyped errors map to
// KindNavigation because most untyped failures come from the page driver.
func KindOf(err error) FailureKind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	return KindNavigation
}
