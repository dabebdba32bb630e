package screen

import "errors"

// Domain-specific errors for graph construction.
var (
	// ErrDuplicateScreen is returned when two specs share an ID.
	ErrDuplicateScreen = errors.New("screen: duplicate screen id")

	// ErrUnknownScreen is returned when an edge or the initial screen
	// names an ID with no spec.
	ErrUnknownScreen = errors.New("screen: unknown screen id")

	// ErrInvalidScreen is returned for a spec missing its ID or painter,
	// or with a negative idle delay.
	ErrInvalidScreen = errors.New("screen: invalid screen")
)
