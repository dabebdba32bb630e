// Package fleet pushes rendered frames to the displays through the
// fleet-management API.
//
// Each push is a single authenticated PUT to {base}/api/v1/update-image
// carrying the target device IDs, an LED code, the buzzer pattern and
// the frame as a PNG data URL. Pushes are fire-and-forget: PushAsync
// logs the outcome and never feeds it back into device state. There is
// no retry; the next transition pushes a fresh frame anyway.
package fleet
