package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nerrad567/mc-connect-core/internal/render"
	"github.com/nerrad567/mc-connect-core/internal/screen"
)

func TestController_ShortPressOnPromoArmsMenuTimer(t *testing.T) {
	h := newHarness(t)
	c := h.controllerOn(t, "dev-1", screen.Promo)

	tr, ok := c.PressButton(context.Background(), ButtonShortPress)
	if !ok {
		t.Fatal("PressButton() ok = false")
	}
	if tr.From != screen.Promo || tr.To != screen.Menu {
		t.Errorf("transition %s -> %s, want promo -> menu", tr.From, tr.To)
	}
	if h.clock.Pending() != 1 {
		t.Fatalf("pending timers = %d, want 1", h.clock.Pending())
	}
	if !c.Snapshot().IdleArmed {
		t.Error("Snapshot().IdleArmed = false")
	}
	if h.pusher.count() != 1 || h.pusher.pushes[0].deviceIDs[0] != "dev-1" || h.pusher.pushes[0].led != 2 {
		t.Errorf("pushes = %+v, want one push to dev-1 with LED 2", h.pusher.pushes)
	}

	// The timer is armed for the menu screen's 40s delay.
	h.clock.Advance(39 * time.Second)
	if c.Current().ID() != screen.Menu {
		t.Errorf("moved early to %s", c.Current().ID())
	}
	h.clock.Advance(time.Second)
	if c.Current().ID() != screen.Promo {
		t.Errorf("after 40s current = %s, want promo", c.Current().ID())
	}
}

func TestController_LongPressOnMenuShowsHelpWithoutTimer(t *testing.T) {
	h := newHarness(t)
	c := h.controllerOn(t, "dev-1", screen.Menu)

	tr, ok := c.PressButton(context.Background(), ButtonLongPress)
	if !ok || tr.To != screen.Help {
		t.Fatalf("PressButton(long) = %s, %v; want help, true", tr.To, ok)
	}
	if h.clock.Pending() != 0 {
		t.Errorf("pending timers = %d, want 0 on help", h.clock.Pending())
	}

	h.clock.Advance(time.Hour)
	if c.Current().ID() != screen.Help {
		t.Errorf("help screen timed out to %s", c.Current().ID())
	}
}

func TestController_IdleTimeoutReturnsToPromoWithCurrentBalance(t *testing.T) {
	h := newHarness(t)
	h.balances.set("dev-1", "10.00")
	c := h.controllerOn(t, "dev-1", screen.Promo)

	if _, ok := c.PressButton(context.Background(), ButtonShortPress); !ok {
		t.Fatal("PressButton() ok = false")
	}

	// The balance changes while the menu is showing.
	h.balances.set("dev-1", "23.45")
	h.clock.Advance(40 * time.Second)

	got := h.observed.all()
	if len(got) != 2 {
		t.Fatalf("observed %d transitions, want 2", len(got))
	}
	idle := got[1]
	if idle.Input != screen.IdleTimeout || idle.From != screen.Menu || idle.To != screen.Promo {
		t.Errorf("idle transition = %s %s -> %s", idle.Input, idle.From, idle.To)
	}
	if !idle.Balance.Equal(decimal.RequireFromString("23.45")) {
		t.Errorf("idle render balance = %s, want 23.45", idle.Balance)
	}
	if !idle.Pushed || h.pusher.count() != 2 {
		t.Errorf("pushes = %d, want 2", h.pusher.count())
	}
}

func TestController_PromoIdleSelfLoopKeepsRotating(t *testing.T) {
	h := newHarness(t)
	c := h.controllerOn(t, "dev-1", screen.Promo)

	if _, err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	h.clock.Advance(60 * time.Second)

	// Refresh plus three 20s idle self-loops.
	if n := h.renderer.count(); n != 4 {
		t.Errorf("renders = %d, want 4", n)
	}
	if h.clock.Pending() != 1 {
		t.Errorf("pending timers = %d, want 1", h.clock.Pending())
	}
}

func TestController_UndefinedInputSelfLoops(t *testing.T) {
	h := newHarness(t)
	c := h.controllerOn(t, "dev-1", screen.Help)

	tr, ok := c.PressButton(context.Background(), ButtonShortPress)
	if !ok {
		t.Fatal("PressButton() ok = false")
	}
	if tr.From != screen.Help || tr.To != screen.Help {
		t.Errorf("transition %s -> %s, want help self-loop", tr.From, tr.To)
	}
	if h.renderer.count() != 1 || h.pusher.count() != 1 {
		t.Errorf("renders, pushes = %d, %d; want 1, 1", h.renderer.count(), h.pusher.count())
	}
}

func TestController_AtMostOneTimer(t *testing.T) {
	h := newHarness(t)
	c := h.controllerOn(t, "dev-1", screen.Promo)
	ctx := context.Background()

	// promo -> menu -> pay -> menu -> pay, each arming a fresh timer.
	for range 4 {
		if _, ok := c.PressButton(ctx, ButtonShortPress); !ok {
			t.Fatal("PressButton() ok = false")
		}
		if n := h.clock.Pending(); n != 1 {
			t.Fatalf("pending timers = %d, want 1", n)
		}
	}

	before := len(h.observed.all())
	h.clock.Advance(40 * time.Second)

	idle := 0
	for _, tr := range h.observed.all()[before:] {
		if tr.Input == screen.IdleTimeout {
			idle++
		}
	}
	if idle != 1 {
		t.Errorf("idle firings = %d, want exactly 1", idle)
	}
}

func TestController_ButtonCodes(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		wantOK bool
		want   screen.ID
	}{
		{name: "short", code: 1, wantOK: true, want: screen.Menu},
		{name: "long self-loops on promo", code: 129, wantOK: true, want: screen.Promo},
		{name: "double press ignored", code: 2, wantOK: false, want: screen.Promo},
		{name: "zero ignored", code: 0, wantOK: false, want: screen.Promo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			c := h.controllerOn(t, "dev-1", screen.Promo)

			_, ok := c.PressButton(context.Background(), tt.code)
			if ok != tt.wantOK {
				t.Errorf("PressButton(%d) ok = %v, want %v", tt.code, ok, tt.wantOK)
			}
			if c.Current().ID() != tt.want {
				t.Errorf("current = %s, want %s", c.Current().ID(), tt.want)
			}
			if !tt.wantOK && h.renderer.count() != 0 {
				t.Error("ignored code triggered a render")
			}
		})
	}
}

func TestController_InactiveIgnoresPresses(t *testing.T) {
	h := newHarness(t)
	c := h.controllerOn(t, "dev-1", screen.Promo)
	c.SetActive(false)

	if _, ok := c.PressButton(context.Background(), ButtonShortPress); ok {
		t.Error("PressButton() on inactive device ok = true")
	}
	if c.Current().ID() != screen.Promo || h.renderer.count() != 0 {
		t.Error("inactive device changed state")
	}
}

func TestController_InactiveSuppressesIdleTimer(t *testing.T) {
	h := newHarness(t)
	c := h.controllerOn(t, "dev-1", screen.Promo)
	ctx := context.Background()

	if _, ok := c.PressButton(ctx, ButtonShortPress); !ok {
		t.Fatal("PressButton() ok = false")
	}
	c.SetActive(false)

	// Deactivation leaves the timer scheduled.
	if h.clock.Pending() != 1 {
		t.Fatalf("pending timers = %d, want 1", h.clock.Pending())
	}
	h.clock.Advance(40 * time.Second)
	if c.Current().ID() != screen.Menu {
		t.Errorf("inactive device moved to %s", c.Current().ID())
	}
	if h.pusher.count() != 1 {
		t.Errorf("pushes = %d, want 1", h.pusher.count())
	}

	// The missed timeout is not replayed; a fresh timer starts instead.
	c.SetActive(true)
	if c.Current().ID() != screen.Menu {
		t.Errorf("reactivation fired missed timeout, now on %s", c.Current().ID())
	}
	if h.clock.Pending() != 1 {
		t.Fatalf("pending timers after reactivation = %d, want 1", h.clock.Pending())
	}
	h.clock.Advance(40 * time.Second)
	if c.Current().ID() != screen.Promo {
		t.Errorf("after fresh timeout current = %s, want promo", c.Current().ID())
	}
}

func TestController_SetActiveIdempotent(t *testing.T) {
	h := newHarness(t)
	c := h.controllerOn(t, "dev-1", screen.Promo)
	if _, err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	c.SetActive(true)
	c.SetActive(true)

	if !c.Active() || h.clock.Pending() != 1 || h.renderer.count() != 1 {
		t.Errorf("active=%v pending=%d renders=%d; want true, 1, 1",
			c.Active(), h.clock.Pending(), h.renderer.count())
	}
}

func TestController_BalanceFailureRendersZero(t *testing.T) {
	h := newHarness(t)
	h.balances.set("dev-1", "5.00")
	h.balances.fail(errLookup)
	c := h.controllerOn(t, "dev-1", screen.Promo)

	tr, err := c.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if !errors.Is(tr.BalanceErr, errLookup) {
		t.Errorf("BalanceErr = %v, want lookup error", tr.BalanceErr)
	}
	if !tr.Balance.IsZero() || !h.renderer.balances[0].IsZero() {
		t.Errorf("rendered balance = %s, want 0", h.renderer.balances[0])
	}
	if !tr.Pushed {
		t.Error("balance failure aborted the push")
	}
}

func TestController_RenderFailureSkipsPush(t *testing.T) {
	h := newHarness(t)
	h.renderer.err = errors.New("bad asset")
	c := h.controllerOn(t, "dev-1", screen.Promo)

	tr, ok := c.PressButton(context.Background(), ButtonShortPress)
	if !ok {
		t.Fatal("PressButton() ok = false")
	}
	if tr.RenderErr == nil || tr.Pushed || h.pusher.count() != 0 {
		t.Errorf("render failure: err=%v pushed=%v pushes=%d", tr.RenderErr, tr.Pushed, h.pusher.count())
	}
	// The state machine still advanced and armed its timer.
	if tr.To != screen.Menu || h.clock.Pending() != 1 {
		t.Errorf("to=%s pending=%d; want menu, 1", tr.To, h.clock.Pending())
	}
}

func TestController_InactiveRefreshRendersWithoutPush(t *testing.T) {
	h := newHarness(t)
	c := h.controllerOn(t, "dev-1", screen.Menu)
	c.SetActive(false)

	tr, err := c.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if tr.Pushed || h.pusher.count() != 0 || h.renderer.count() != 1 {
		t.Errorf("pushed=%v pushes=%d renders=%d", tr.Pushed, h.pusher.count(), h.renderer.count())
	}
	if h.clock.Pending() != 0 {
		t.Errorf("inactive device armed a timer")
	}
}

func TestController_Stop(t *testing.T) {
	h := newHarness(t)
	c := h.controllerOn(t, "dev-1", screen.Promo)
	if _, ok := c.PressButton(context.Background(), ButtonShortPress); !ok {
		t.Fatal("PressButton() ok = false")
	}

	c.Stop()
	if h.clock.Pending() != 0 {
		t.Errorf("pending timers after Stop = %d", h.clock.Pending())
	}
	if _, err := c.Refresh(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Refresh() after Stop error = %v, want ErrStopped", err)
	}
	if _, ok := c.PressButton(context.Background(), ButtonShortPress); ok {
		t.Error("PressButton() after Stop ok = true")
	}
}

func TestController_ScriptedWalk(t *testing.T) {
	h := newHarness(t)
	c := h.controllerOn(t, "dev-1", screen.Promo)
	ctx := context.Background()

	script := []struct {
		code int
		want screen.ID
	}{
		{ButtonShortPress, screen.Menu},
		{ButtonShortPress, screen.Pay},
		{ButtonLongPress, screen.Help},
		{ButtonShortPress, screen.Help},
		{ButtonLongPress, screen.Menu},
		{ButtonLongPress, screen.Help},
		{ButtonLongPress, screen.Menu},
		{ButtonShortPress, screen.Pay},
		{ButtonShortPress, screen.Menu},
	}
	for i, step := range script {
		tr, ok := c.PressButton(ctx, step.code)
		if !ok || tr.To != step.want {
			t.Fatalf("step %d: code %d -> %s, want %s", i, step.code, tr.To, step.want)
		}
	}
	if h.renderer.count() != len(script) {
		t.Errorf("renders = %d, want %d", h.renderer.count(), len(script))
	}
}

func TestController_ConcurrentPressesAndTimers(t *testing.T) {
	h := newHarness(t)
	c := h.controllerOn(t, "dev-1", screen.Promo)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 25 {
				code := ButtonShortPress
				if (i+j)%3 == 0 {
					code = ButtonLongPress
				}
				c.PressButton(ctx, code)
			}
		}()
	}
	for range 10 {
		h.clock.Advance(5 * time.Second)
	}
	wg.Wait()

	if n := h.clock.Pending(); n > 1 {
		t.Errorf("pending timers = %d, want at most 1", n)
	}

	// Observers see the device's transitions in the order they happened.
	seen := h.observed.all()
	for i, tr := range seen {
		if tr.Seq != uint64(i+1) {
			t.Fatalf("observed[%d].Seq = %d, want %d", i, tr.Seq, i+1)
		}
		if i > 0 && tr.From != seen[i-1].To {
			t.Fatalf("observed[%d] from %s, previous went to %s", i, tr.From, seen[i-1].To)
		}
	}
	if final := c.Current().ID(); len(seen) > 0 && seen[len(seen)-1].To != final {
		t.Errorf("last observed screen = %s, controller shows %s", seen[len(seen)-1].To, final)
	}
}

// cancelAwareBalances fails lookups whose context is already done.
type cancelAwareBalances struct {
	amount decimal.Decimal
}

func (b cancelAwareBalances) GetBalance(ctx context.Context, _ string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	return b.amount, nil
}

func TestController_CancelledCallerStillRendersBalance(t *testing.T) {
	h := newHarness(t)
	cfg := h.config()
	cfg.Balances = cancelAwareBalances{amount: decimal.RequireFromString("7.25")}
	c, err := NewController("dev-1", h.graph.Initial(), cfg)
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr, ok := c.PressButton(ctx, ButtonShortPress)
	if !ok {
		t.Fatal("PressButton() ok = false")
	}
	if tr.BalanceErr != nil || !tr.Balance.Equal(decimal.RequireFromString("7.25")) {
		t.Errorf("balance = %s (err %v), want 7.25", tr.Balance, tr.BalanceErr)
	}
}

// previewRenderer counts renders and previews separately.
type previewRenderer struct {
	fakeRenderer
	previews int
}

func (p *previewRenderer) Preview(_ render.Painter, _ decimal.Decimal) (*render.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.previews++
	return &render.Frame{}, nil
}

func TestController_PreviewUsesPreviewer(t *testing.T) {
	h := newHarness(t)
	r := &previewRenderer{}
	cfg := h.config()
	cfg.Renderer = r
	c, err := NewController("dev-1", h.graph.Initial(), cfg)
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	if _, err := c.Preview(context.Background()); err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if r.previews != 1 || r.count() != 0 {
		t.Errorf("previews = %d, renders = %d; want 1, 0", r.previews, r.count())
	}
	if h.pusher.count() != 0 || len(h.observed.all()) != 0 {
		t.Error("Preview pushed or notified observers")
	}
}

func TestNewController_Validation(t *testing.T) {
	h := newHarness(t)
	cfg := h.config()

	if _, err := NewController("", h.graph.Initial(), cfg); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("empty id error = %v", err)
	}
	if _, err := NewController("d", nil, cfg); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("nil screen error = %v", err)
	}
	cfg.Pusher = nil
	if _, err := NewController("d", h.graph.Initial(), cfg); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("nil pusher error = %v", err)
	}
}
