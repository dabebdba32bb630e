package device

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nerrad567/mc-connect-core/internal/screen"
)

// Transition describes one completed state-machine step.
type Transition struct {
	// Seq numbers a device's transitions from 1 in the order they happened.
	Seq      uint64          `json:"seq"`
	DeviceID string          `json:"device_id"`
	From     screen.ID       `json:"from"`
	To       screen.ID       `json:"to"`
	Input    screen.Input    `json:"-"`
	Balance  decimal.Decimal `json:"balance"`
	Active   bool            `json:"active"`
	Pushed   bool            `json:"pushed"`
	At       time.Time       `json:"at"`

	// BalanceErr is set when the lookup failed and 0.00 was rendered.
	BalanceErr error `json:"-"`

	// RenderErr is set when the render cycle was aborted.
	RenderErr error `json:"-"`
}

// Observer is notified after every transition while the device lock is
// still held, so one device's transitions arrive in Seq order.
// Implementations must not block or call back into the controller.
type Observer interface {
	OnTransition(t Transition)
}

// ObserverFunc adapts an ordinary function to the Observer interface.
type ObserverFunc func(t Transition)

// OnTransition calls f(t).
func (f ObserverFunc) OnTransition(t Transition) { f(t) }

// Observers fans a transition out to several observers in order.
type Observers []Observer

// OnTransition implements Observer.
func (os Observers) OnTransition(t Transition) {
	for _, o := range os {
		if o != nil {
			o.OnTransition(t)
		}
	}
}

type noopObserver struct{}

func (noopObserver) OnTransition(Transition) {}
