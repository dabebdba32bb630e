package fleet

import "errors"

// Domain-specific errors for the push transport.
var (
	// ErrPushFailed is returned when the request could not be sent or
	// its frame could not be encoded.
	ErrPushFailed = errors.New("fleet: push failed")

	// ErrUnexpectedStatus is returned for a non-2xx response.
	ErrUnexpectedStatus = errors.New("fleet: unexpected status")

	// ErrInvalidConfig is returned when the base URL or API key is missing.
	ErrInvalidConfig = errors.New("fleet: invalid config")
)
