package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrInvalidListingURL is returned when the listing URL is not an absolute
	// http or https URL.
	ErrInvalidListingURL = errors.New("invalid listing URL")

	// ErrInvalidOutputFile is returned when the output file is empty or is
	// not an .xlsx workbook.
	ErrInvalidOutputFile = errors.New("invalid output file: must be an .xlsx path")

	// ErrInvalidTimeout is returned when any timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxPages is returned when the page cap is negative.
	// Use 0 to process every page.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidSpeechEndpoint is returned when the recognizer URL is malformed.
	ErrInvalidSpeechEndpoint = errors.New("invalid speech endpoint")

	// ErrInvalidRemoteBrowser is returned when the remote browser URL is not
	// a ws, wss, http or https URL.
	ErrInvalidRemoteBrowser = errors.New("invalid remote browser URL")

	// ErrInvalidLocators is returned when a locator override names an unknown
	// key or sets an empty expression.
	ErrInvalidLocators = errors.New("invalid locator override")

	// ErrNoLogDir is returned when file logging is enabled without a directory.
	ErrNoLogDir = errors.New("log directory must be set when file logging is enabled")

	// ErrNoDBDir is returned when the run ledger is enabled without a directory.
	ErrNoDBDir = errors.New("database directory must be set when the run ledger is enabled")
)
