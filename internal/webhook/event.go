package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Title selects the handler for an event.
type Title string

// Recognised event titles.
const (
	TitlePushSwitchOn     Title = "push-switch-on"
	TitleImageUpdated     Title = "image-updated"
	TitleAppDisconnection Title = "app-disconnection"
	TitleBatteryCapacity  Title = "battery-capacity"
)

// Known reports whether t is a recognised title.
func (t Title) Known() bool {
	switch t {
	case TitlePushSwitchOn, TitleImageUpdated, TitleAppDisconnection, TitleBatteryCapacity:
		return true
	}
	return false
}

// Event is a decoded webhook payload. Optional fields are nil or empty
// when absent.
type Event struct {
	Title        Title    `json:"title"`
	ID           string   `json:"id"`
	Address      string   `json:"address,omitempty"`
	DeviceName   string   `json:"device_name,omitempty"`
	Name         string   `json:"name,omitempty"`
	JobID        string   `json:"job_id,omitempty"`
	Action       *int     `json:"action,omitempty"`
	Intentional  *bool    `json:"intentional,omitempty"`
	BatteryLevel *float64 `json:"battery_level,omitempty"`

	// Source is where the event arrived from ("webhook" or "mqtt").
	Source string `json:"-"`
}

// wireEvent accepts identifiers and numbers sent either as JSON strings
// or JSON numbers.
type wireEvent struct {
	Title        Title       `json:"title"`
	ID           flexString  `json:"id"`
	Address      flexString  `json:"address"`
	DeviceName   string      `json:"device_name"`
	Name         string      `json:"name"`
	JobID        flexString  `json:"job_id"`
	Action       *flexNumber `json:"action"`
	Intentional  *bool       `json:"intentional"`
	BatteryLevel *flexNumber `json:"battery_level"`
}

// Decode parses a webhook body. It only checks that the body is a JSON
// object with a title; per-title fields are checked by the dispatcher.
func Decode(body []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(body, &w); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if w.Title == "" {
		return Event{}, fmt.Errorf("%w: missing title", ErrMalformedEvent)
	}

	ev := Event{
		Title:       w.Title,
		ID:          string(w.ID),
		Address:     string(w.Address),
		DeviceName:  w.DeviceName,
		Name:        w.Name,
		JobID:       string(w.JobID),
		Intentional: w.Intentional,
	}
	if w.Action != nil {
		n, err := w.Action.int()
		if err != nil {
			return Event{}, fmt.Errorf("%w: action: %w", ErrMalformedEvent, err)
		}
		ev.Action = &n
	}
	if w.BatteryLevel != nil {
		f := float64(*w.BatteryLevel)
		ev.BatteryLevel = &f
	}
	return ev, nil
}

// validate checks the fields a recognised title requires.
func (e Event) validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: %s requires id", ErrMalformedEvent, e.Title)
	}
	switch e.Title {
	case TitlePushSwitchOn:
		if e.Action == nil {
			return fmt.Errorf("%w: %s requires action", ErrMalformedEvent, e.Title)
		}
	case TitleAppDisconnection:
		if e.Intentional == nil {
			return fmt.Errorf("%w: %s requires intentional", ErrMalformedEvent, e.Title)
		}
	case TitleBatteryCapacity:
		if e.BatteryLevel == nil {
			return fmt.Errorf("%w: %s requires battery_level", ErrMalformedEvent, e.Title)
		}
	}
	return nil
}

// Details returns the event's optional fields for the event log.
func (e Event) Details() map[string]any {
	d := make(map[string]any)
	if e.Address != "" {
		d["address"] = e.Address
	}
	if e.DeviceName != "" {
		d["device_name"] = e.DeviceName
	}
	if e.Name != "" {
		d["name"] = e.Name
	}
	if e.JobID != "" {
		d["job_id"] = e.JobID
	}
	if e.Action != nil {
		d["action"] = *e.Action
	}
	if e.Intentional != nil {
		d["intentional"] = *e.Intentional
	}
	if e.BatteryLevel != nil {
		d["battery_level"] = *e.BatteryLevel
	}
	if len(d) == 0 {
		return nil
	}
	return d
}

type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*s = flexString(n.String())
	return nil
}

type flexNumber float64

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("expected number, got %s", b)
	}
	*f = flexNumber(v)
	return nil
}

func (f flexNumber) int() (int, error) {
	n := int(f)
	if float64(n) != float64(f) {
		return 0, fmt.Errorf("expected integer, got %v", float64(f))
	}
	return n, nil
}
