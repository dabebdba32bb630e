package render

import "errors"

// Domain-specific errors for the render pipeline.
var (
	// ErrNoPainter is returned when Render is called without a drawing routine.
	ErrNoPainter = errors.New("render: no painter")

	// ErrRenderFailed is returned when a drawing routine panics.
	ErrRenderFailed = errors.New("render: drawing routine failed")

	// ErrInvalidOptions is returned when the canvas geometry is unusable.
	ErrInvalidOptions = errors.New("render: invalid options")
)
