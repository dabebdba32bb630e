package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementBattery    = "display_battery"
	MeasurementPush       = "display_push"
	MeasurementTransition = "screen_transition"
)

// WriteBattery records a display's reported battery level.
func (c *Client) WriteBattery(deviceID string, level float64, at time.Time) {
	c.WritePointWithTime(MeasurementBattery,
		map[string]string{"device_id": deviceID},
		map[string]any{"level": level},
		at,
	)
}

// WritePush records one update-image request.
func (c *Client) WritePush(devices, status int, ok bool, duration time.Duration, at time.Time) {
	result := "ok"
	if !ok {
		result = "error"
	}
	c.WritePointWithTime(MeasurementPush,
		map[string]string{"result": result},
		map[string]any{
			"devices":     devices,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
		},
		at,
	)
}

// WriteTransition records a screen change.
func (c *Client) WriteTransition(deviceID, from, to, input string, pushed, renderFailed bool, at time.Time) {
	c.WritePointWithTime(MeasurementTransition,
		map[string]string{
			"device_id": deviceID,
			"from":      from,
			"to":        to,
			"input":     input,
		},
		map[string]any{
			"pushed":        pushed,
			"render_failed": renderFailed,
		},
		at,
	)
}

// WritePoint writes a custom point stamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
