// Package webhook decodes events reported by the fleet platform and
// routes them to the display controllers.
//
// Four titles are recognised:
//
//	push-switch-on     id, action        press the device's button
//	image-updated      id                mark the device active
//	app-disconnection  id, intentional   log only
//	battery-capacity   id, battery_level log only
//
// Any other title is unrecognised and must be answered with a client
// error. An event for an unknown device is tolerated and reported as
// OutcomeDeviceNotFound.
package webhook
