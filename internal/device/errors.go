package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID is not registered.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when registering an ID twice.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when a controller is missing its ID,
	// initial screen or a required collaborator.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrStopped is returned when driving a controller after Stop.
	ErrStopped = errors.New("device: controller stopped")

	// ErrBootstrapFailed is returned when too few devices initialise.
	ErrBootstrapFailed = errors.New("device: bootstrap failed")
)
