package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and File validation so
// callers can use errors.Is() while users still get readable messages.
var (
	// ErrNoTarget is returned when no file, directory or pattern is given.
	ErrNoTarget = errors.New("no target specified: provide HTML files, directories or glob patterns")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidStandard is returned for a standard HTML_CodeSniffer does
	// not know.
	ErrInvalidStandard = errors.New("invalid standard: must be one of WCAG2A, WCAG2AA, WCAG2AAA, Section508")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when more than one of
	// --json, --markdown and --sarif is specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: use only one of --json, --markdown, --sarif")

	// ErrInvalidEngine is returned for an engine other than phantomjs or
	// playwright.
	ErrInvalidEngine = errors.New("invalid engine: must be phantomjs or playwright")

	// ErrMissingHTMLCS is returned when the playwright engine has no
	// HTMLCS.js to inject.
	ErrMissingHTMLCS = errors.New("missing HTMLCS.js: the playwright engine requires --htmlcs")

	// ErrInvalidPattern is returned for a path override pattern that does
	// not compile.
	ErrInvalidPattern = errors.New("invalid path pattern")
)
