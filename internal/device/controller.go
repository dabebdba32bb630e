package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nerrad567/mc-connect-core/internal/clock"
	"github.com/nerrad567/mc-connect-core/internal/fleet"
	"github.com/nerrad567/mc-connect-core/internal/render"
	"github.com/nerrad567/mc-connect-core/internal/screen"
)

// Button codes reported by push-switch-on events.
const (
	ButtonShortPress = 1
	ButtonLongPress  = 129
)

// defaultBalanceTimeout bounds one balance lookup.
const defaultBalanceTimeout = 5 * time.Second

// InputForButton maps a raw button code to a state-machine input.
func InputForButton(code int) (screen.Input, bool) {
	switch code {
	case ButtonShortPress:
		return screen.ShortPress, true
	case ButtonLongPress:
		return screen.LongPress, true
	default:
		return 0, false
	}
}

// Logger defines the logging interface used by the device package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// BalanceSource returns the live balance for a device's table.
type BalanceSource interface {
	GetBalance(ctx context.Context, deviceID string) (decimal.Decimal, error)
}

// Renderer draws a screen for a balance.
type Renderer interface {
	Render(p render.Painter, balance decimal.Decimal) (*render.Frame, error)
}

// Previewer is implemented by renderers that can draw a frame without
// advancing shared state such as the promotion rotation.
type Previewer interface {
	Preview(p render.Painter, balance decimal.Decimal) (*render.Frame, error)
}

// Pusher delivers frames to displays without blocking the caller.
type Pusher interface {
	PushAsync(deviceIDs []string, frame fleet.Frame, led int)
}

// Config holds the collaborators shared by every controller.
type Config struct {
	Clock    clock.Clock
	Balances BalanceSource
	Renderer Renderer
	Pusher   Pusher

	// LED is the LED code sent with every push.
	LED int

	// BalanceTimeout bounds each balance lookup. Default: 5s.
	BalanceTimeout time.Duration

	Logger   Logger
	Observer Observer
}

// Snapshot is a point-in-time view of a controller.
type Snapshot struct {
	DeviceID   string          `json:"device_id"`
	Screen     screen.ID       `json:"screen"`
	Active     bool            `json:"active"`
	Balance    decimal.Decimal `json:"balance"`
	IdleArmed  bool            `json:"idle_armed"`
	Renders    int             `json:"renders"`
	LastRender time.Time       `json:"last_render"`
}

// Controller owns one display: its current screen, active flag, cached
// balance and idle timer.
type Controller struct {
	id  string
	cfg Config

	mu         sync.Mutex
	current    *screen.Screen
	active     bool
	balance    decimal.Decimal
	timer      *clock.Timer
	timerGen   uint64
	seq        uint64
	stopped    bool
	renders    int
	lastRender time.Time
}

// NewController creates an active controller showing initial. Nothing is
// rendered until the first transition; call Refresh to draw the initial
// screen.
func NewController(id string, initial *screen.Screen, cfg Config) (*Controller, error) {
	if id == "" || initial == nil {
		return nil, fmt.Errorf("%w: id and initial screen are required", ErrInvalidDevice)
	}
	if cfg.Balances == nil || cfg.Renderer == nil || cfg.Pusher == nil {
		return nil, fmt.Errorf("%w: balance source, renderer and pusher are required", ErrInvalidDevice)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.BalanceTimeout <= 0 {
		cfg.BalanceTimeout = defaultBalanceTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	if cfg.Observer == nil {
		cfg.Observer = noopObserver{}
	}

	return &Controller{
		id:      id,
		cfg:     cfg,
		current: initial,
		active:  true,
		balance: decimal.Zero,
	}, nil
}

// ID returns the device identifier.
func (c *Controller) ID() string { return c.id }

// Transition feeds in to the state machine. Inputs without an edge on
// the current screen self-loop, and still re-render and re-arm.
func (c *Controller) Transition(ctx context.Context, in screen.Input) (Transition, error) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return Transition{}, ErrStopped
	}
	t := c.transitionLocked(ctx, in)
	c.mu.Unlock()
	return t, nil
}

// Refresh re-renders the current screen with a fresh balance and pushes
// it, as a self-loop transition.
func (c *Controller) Refresh(ctx context.Context) (Transition, error) {
	return c.Transition(ctx, screen.Refresh)
}

// PressButton handles a raw button code. It reports false, without
// rendering, when the code is not a recognised gesture or the device is
// inactive.
func (c *Controller) PressButton(ctx context.Context, code int) (Transition, bool) {
	in, ok := InputForButton(code)
	if !ok {
		c.cfg.Logger.Debug("ignoring button code", "device_id", c.id, "code", code)
		return Transition{}, false
	}

	c.mu.Lock()
	if c.stopped || !c.active {
		c.mu.Unlock()
		return Transition{}, false
	}
	t := c.transitionLocked(ctx, in)
	c.mu.Unlock()
	return t, true
}

// SetActive toggles the active flag. Deactivating leaves an armed timer
// scheduled; if it fires while inactive it does nothing, and the missed
// timeout is not replayed later. Reactivating a device with no armed
// timer arms a fresh one for the current screen.
func (c *Controller) SetActive(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == active {
		return
	}
	c.active = active
	c.cfg.Logger.Info("device activity changed", "device_id", c.id, "active", active)

	if active && c.timer == nil && !c.stopped {
		c.armTimerLocked()
	}
}

// Active reports whether the device accepts input and pushes.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Current returns the current screen.
func (c *Controller) Current() *screen.Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Snapshot returns the controller's state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		DeviceID:   c.id,
		Screen:     c.current.ID(),
		Active:     c.active,
		Balance:    c.balance,
		IdleArmed:  c.timer != nil,
		Renders:    c.renders,
		LastRender: c.lastRender,
	}
}

// Preview renders the current screen with a fresh balance without
// changing state or pushing. Renderers implementing Previewer leave the
// promotion rotation untouched.
func (c *Controller) Preview(ctx context.Context) (*render.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	balance, err := c.lookupBalance(ctx)
	if err != nil {
		balance = decimal.Zero
	}
	if p, ok := c.cfg.Renderer.(Previewer); ok {
		return p.Preview(c.current.Painter(), balance)
	}
	return c.cfg.Renderer.Render(c.current.Painter(), balance)
}

// Stop cancels the idle timer. A stopped controller ignores all input.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.cancelTimerLocked()
}

func (c *Controller) transitionLocked(ctx context.Context, in screen.Input) Transition {
	from := c.current
	c.current = from.Next(in)

	c.cancelTimerLocked()
	c.seq++

	t := Transition{
		Seq:      c.seq,
		DeviceID: c.id,
		From:     from.ID(),
		To:       c.current.ID(),
		Input:    in,
		Active:   c.active,
		At:       c.cfg.Clock.Now(),
	}
	c.renderAndPushLocked(ctx, &t)
	c.armTimerLocked()

	c.cfg.Logger.Debug("display transition",
		"device_id", c.id,
		"seq", t.Seq,
		"input", in.String(),
		"from", string(t.From),
		"to", string(t.To),
	)

	// Still under the lock, so observers see each device's transitions in
	// Seq order.
	c.cfg.Observer.OnTransition(t)
	return t
}

func (c *Controller) renderAndPushLocked(ctx context.Context, t *Transition) {
	balance, err := c.lookupBalance(ctx)
	if err != nil {
		c.cfg.Logger.Warn("balance lookup failed, rendering 0.00",
			"device_id", c.id,
			"error", err,
		)
		t.BalanceErr = err
		balance = decimal.Zero
	}
	c.balance = balance
	t.Balance = balance

	frame, err := c.cfg.Renderer.Render(c.current.Painter(), balance)
	if err != nil {
		c.cfg.Logger.Error("render failed",
			"device_id", c.id,
			"screen", string(c.current.ID()),
			"error", err,
		)
		t.RenderErr = err
		return
	}
	c.renders++
	c.lastRender = t.At

	if !c.active {
		return
	}
	c.cfg.Pusher.PushAsync([]string{c.id}, frame, c.cfg.LED)
	t.Pushed = true
}

// lookupBalance detaches from the caller's cancellation: a dropped
// webhook connection must not turn into a 0.00 frame on the display.
func (c *Controller) lookupBalance(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.BalanceTimeout)
	defer cancel()
	return c.cfg.Balances.GetBalance(ctx, c.id)
}

// armTimerLocked arms the idle timer for the current screen if it has an
// idle edge with a positive delay and the device is active.
func (c *Controller) armTimerLocked() {
	d, ok := c.current.IdleTimeout()
	if !ok || !c.active {
		return
	}
	c.timerGen++
	gen := c.timerGen
	c.timer = c.cfg.Clock.AfterFunc(d, func() { c.fireIdle(gen) })
}

// cancelTimerLocked stops the armed timer and invalidates any callback
// that is already running.
func (c *Controller) cancelTimerLocked() {
	c.timerGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) fireIdle(gen uint64) {
	c.mu.Lock()
	if c.stopped || gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	if !c.active {
		c.mu.Unlock()
		c.cfg.Logger.Debug("idle timeout suppressed for inactive device", "device_id", c.id)
		return
	}
	c.transitionLocked(context.Background(), screen.IdleTimeout)
	c.mu.Unlock()
}
