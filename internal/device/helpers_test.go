package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nerrad567/mc-connect-core/internal/clock"
	"github.com/nerrad567/mc-connect-core/internal/fleet"
	"github.com/nerrad567/mc-connect-core/internal/render"
	"github.com/nerrad567/mc-connect-core/internal/screen"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var noopPainter = render.PainterFunc(func(*render.Canvas, decimal.Decimal) {})

// fakeBalances is an in-memory BalanceSource.
type fakeBalances struct {
	mu      sync.Mutex
	balance map[string]decimal.Decimal
	err     error
}

func newFakeBalances() *fakeBalances {
	return &fakeBalances{balance: make(map[string]decimal.Decimal)}
}

func (f *fakeBalances) set(id, amount string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance[id] = decimal.RequireFromString(amount)
}

func (f *fakeBalances) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeBalances) GetBalance(_ context.Context, id string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.balance[id], nil
}

// fakeRenderer records the balances it was asked to draw.
type fakeRenderer struct {
	mu       sync.Mutex
	balances []decimal.Decimal
	err      error
}

func (f *fakeRenderer) Render(_ render.Painter, balance decimal.Decimal) (*render.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.balances = append(f.balances, balance)
	return &render.Frame{}, nil
}

func (f *fakeRenderer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.balances)
}

type push struct {
	deviceIDs []string
	led       int
}

// fakePusher records pushes synchronously.
type fakePusher struct {
	mu     sync.Mutex
	pushes []push
}

func (f *fakePusher) PushAsync(deviceIDs []string, _ fleet.Frame, led int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, push{deviceIDs: deviceIDs, led: led})
}

func (f *fakePusher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushes)
}

// recorder is an Observer collecting transitions.
type recorder struct {
	mu sync.Mutex
	ts []Transition
}

func (r *recorder) OnTransition(t Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ts = append(r.ts, t)
}

func (r *recorder) all() []Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Transition(nil), r.ts...)
}

type harness struct {
	clock    *clock.FakeClock
	balances *fakeBalances
	renderer *fakeRenderer
	pusher   *fakePusher
	observed *recorder
	graph    *screen.Graph
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	g, err := screen.Standard(screen.StandardConfig{
		Promo: noopPainter, Menu: noopPainter, Pay: noopPainter, Help: noopPainter,
		PromoIdle: 20 * time.Second,
		MenuIdle:  40 * time.Second,
		PayIdle:   40 * time.Second,
	})
	if err != nil {
		t.Fatalf("screen.Standard() error = %v", err)
	}
	return &harness{
		clock:    clock.Fake(epoch),
		balances: newFakeBalances(),
		renderer: &fakeRenderer{},
		pusher:   &fakePusher{},
		observed: &recorder{},
		graph:    g,
	}
}

func (h *harness) config() Config {
	return Config{
		Clock:    h.clock,
		Balances: h.balances,
		Renderer: h.renderer,
		Pusher:   h.pusher,
		LED:      2,
		Observer: h.observed,
	}
}

// controllerOn returns a controller already showing id, with the
// transition that got it there excluded from the counters.
func (h *harness) controllerOn(t *testing.T, deviceID string, id screen.ID) *Controller {
	t.Helper()
	s, ok := h.graph.Screen(id)
	if !ok {
		t.Fatalf("no screen %q", id)
	}
	c, err := NewController(deviceID, s, h.config())
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	return c
}

var errLookup = errors.New("database is locked")
