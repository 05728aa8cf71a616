package czml

import "errors"

// Sentinel errors for everything the builder and assembler can reject.
// Callers match with errors.Is; the wrapped message names the offending
// entity or sample.
var (
	ErrMalformedSample     = errors.New("malformed sample")
	ErrInvalidInterval     = errors.New("invalid interval")
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	ErrIntervalMismatch    = errors.New("entity interval outside document interval")
	ErrEmptyDocument       = errors.New("document has no time-bounded content")
)
