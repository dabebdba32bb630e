package webhook

import "errors"

// Domain-specific errors for webhook handling. Both are client errors.
var (
	// ErrUnknownEvent is returned for an unrecognised event title.
	ErrUnknownEvent = errors.New("webhook: unrecognized event")

	// ErrMalformedEvent is returned when the body is not a JSON object
	// or a recognised event lacks a required field.
	ErrMalformedEvent = errors.New("webhook: malformed event")
)
