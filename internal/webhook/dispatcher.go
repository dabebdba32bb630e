package webhook

import (
	"context"
	"errors"

	"github.com/nerrad567/mc-connect-core/internal/device"
)

// defaultLowBattery is the battery level (percent) below which a
// battery-capacity event is logged at warn.
const defaultLowBattery = 20

// Outcome is the result of dispatching one event.
type Outcome string

const (
	// OutcomeHandled means the event changed device state or drove a transition.
	OutcomeHandled Outcome = "handled"
	// OutcomeIgnored means the device was found but the event had no
	// effect (inactive device, unrecognised button code).
	OutcomeIgnored Outcome = "ignored"
	// OutcomeLogged means the event is informational only.
	OutcomeLogged Outcome = "logged"
	// OutcomeDeviceNotFound means the title was recognised but no
	// controller is registered for the id.
	OutcomeDeviceNotFound Outcome = "device_not_found"
	// OutcomeUnrecognized means the title is unknown.
	OutcomeUnrecognized Outcome = "unrecognized"
	// OutcomeMalformed means a required field is missing.
	OutcomeMalformed Outcome = "malformed"
)

// Devices looks up display controllers.
type Devices interface {
	Get(id string) (*device.Controller, error)
}

// Recorder is told about every dispatched event, e.g. to append it to
// the event log or export telemetry. Implementations must not block.
type Recorder interface {
	RecordEvent(ctx context.Context, ev Event, outcome Outcome)
}

// Recorders fans an event out to several recorders in order.
type Recorders []Recorder

// RecordEvent implements Recorder.
func (rs Recorders) RecordEvent(ctx context.Context, ev Event, outcome Outcome) {
	for _, r := range rs {
		if r != nil {
			r.RecordEvent(ctx, ev, outcome)
		}
	}
}

// Logger defines the logging interface used by the dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithRecorder sets the event recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithLowBatteryThreshold sets the percentage below which battery
// reports are logged at warn.
func WithLowBatteryThreshold(pct float64) Option {
	return func(d *Dispatcher) { d.lowBattery = pct }
}

// Dispatcher routes events to controllers. It is safe for concurrent use.
type Dispatcher struct {
	devices    Devices
	logger     Logger
	recorder   Recorder
	lowBattery float64
}

// NewDispatcher creates a dispatcher over devices.
func NewDispatcher(devices Devices, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		devices:    devices,
		logger:     noopLogger{},
		recorder:   Recorders(nil),
		lowBattery: defaultLowBattery,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandlePayload decodes body and dispatches it.
func (d *Dispatcher) HandlePayload(ctx context.Context, source string, body []byte) (Outcome, error) {
	ev, err := Decode(body)
	if err != nil {
		d.logger.Warn("rejecting malformed event", "source", source, "error", err)
		return OutcomeMalformed, err
	}
	ev.Source = source
	return d.Dispatch(ctx, ev)
}

// Dispatch routes ev. The returned error is ErrUnknownEvent or
// ErrMalformedEvent for events the sender should not have sent; every
// other outcome, including an unknown device, returns nil.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (Outcome, error) {
	outcome, err := d.dispatch(ctx, ev)
	d.recorder.RecordEvent(ctx, ev, outcome)
	return outcome, err
}

func (d *Dispatcher) dispatch(ctx context.Context, ev Event) (Outcome, error) {
	if !ev.Title.Known() {
		d.logger.Warn("unknown event title", "title", string(ev.Title), "device_id", ev.ID)
		return OutcomeUnrecognized, ErrUnknownEvent
	}
	if err := ev.validate(); err != nil {
		d.logger.Warn("rejecting malformed event", "title", string(ev.Title), "error", err)
		return OutcomeMalformed, err
	}

	d.logger.Info("received event",
		"title", string(ev.Title),
		"device_id", ev.ID,
		"source", ev.Source,
	)

	c, err := d.devices.Get(ev.ID)
	if err != nil {
		if !errors.Is(err, device.ErrDeviceNotFound) {
			d.logger.Error("device lookup failed", "device_id", ev.ID, "error", err)
		}
		d.logger.Warn("event for unknown device", "title", string(ev.Title), "device_id", ev.ID)
		return OutcomeDeviceNotFound, nil
	}

	switch ev.Title {
	case TitlePushSwitchOn:
		return d.pushSwitch(ctx, c, ev), nil
	case TitleImageUpdated:
		c.SetActive(true)
		d.logger.Info("image updated",
			"device_id", ev.ID,
			"device_name", ev.DeviceName,
			"job_id", ev.JobID,
		)
		return OutcomeHandled, nil
	case TitleAppDisconnection:
		d.logger.Info("app disconnected",
			"device_id", ev.ID,
			"name", ev.Name,
			"intentional", *ev.Intentional,
		)
		return OutcomeLogged, nil
	case TitleBatteryCapacity:
		d.battery(ev)
		return OutcomeLogged, nil
	}
	return OutcomeUnrecognized, ErrUnknownEvent
}

func (d *Dispatcher) pushSwitch(ctx context.Context, c *device.Controller, ev Event) Outcome {
	t, ok := c.PressButton(ctx, *ev.Action)
	if !ok {
		d.logger.Info("button press ignored",
			"device_id", ev.ID,
			"action", *ev.Action,
			"active", c.Active(),
		)
		return OutcomeIgnored
	}
	d.logger.Info("button press handled",
		"device_id", ev.ID,
		"action", *ev.Action,
		"from", string(t.From),
		"to", string(t.To),
	)
	return OutcomeHandled
}

func (d *Dispatcher) battery(ev Event) {
	level := *ev.BatteryLevel
	if level < d.lowBattery {
		d.logger.Warn("display battery low",
			"device_id", ev.ID,
			"device_name", ev.DeviceName,
			"battery_level", level,
		)
		return
	}
	d.logger.Info("display battery level",
		"device_id", ev.ID,
		"device_name", ev.DeviceName,
		"battery_level", level,
	)
}
