package tables

import "errors"

// Domain-specific errors for table state.
var (
	// ErrAssignmentNotFound is returned when no table is bound to a device.
	ErrAssignmentNotFound = errors.New("tables: assignment not found")

	// ErrAssignmentExists is returned when a table or device is already bound.
	ErrAssignmentExists = errors.New("tables: assignment already exists")

	// ErrInvalidAssignment is returned when a table or device ID is missing.
	ErrInvalidAssignment = errors.New("tables: invalid assignment")
)
