package device

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/mc-connect-core/internal/screen"
)

func TestRegistry_RegisterGetUnregister(t *testing.T) {
	h := newHarness(t)
	reg := NewRegistry()

	a := h.controllerOn(t, "dev-b", screen.Promo)
	b := h.controllerOn(t, "dev-a", screen.Promo)
	for _, c := range []*Controller{a, b} {
		if err := reg.Register(c); err != nil {
			t.Fatalf("Register(%s) error = %v", c.ID(), err)
		}
	}

	if err := reg.Register(h.controllerOn(t, "dev-a", screen.Menu)); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("duplicate Register() error = %v, want ErrDeviceExists", err)
	}

	got, err := reg.Get("dev-b")
	if err != nil || got != a {
		t.Errorf("Get(dev-b) = %v, %v", got, err)
	}
	if _, err := reg.Get("nope"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Get(nope) error = %v, want ErrDeviceNotFound", err)
	}

	list := reg.List()
	if len(list) != 2 || list[0].ID() != "dev-a" || list[1].ID() != "dev-b" {
		t.Errorf("List() not sorted by id: %v, %v", list[0].ID(), list[1].ID())
	}
	if reg.Count() != 2 || reg.ActiveCount() != 2 {
		t.Errorf("Count, ActiveCount = %d, %d; want 2, 2", reg.Count(), reg.ActiveCount())
	}

	if err := reg.Unregister("dev-b"); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if _, err := a.Refresh(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("unregistered controller still running: %v", err)
	}
	if err := reg.Unregister("dev-b"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("second Unregister() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_SnapshotsAndClose(t *testing.T) {
	h := newHarness(t)
	h.balances.set("dev-1", "7.25")
	reg := NewRegistry()

	c := h.controllerOn(t, "dev-1", screen.Promo)
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, ok := c.PressButton(context.Background(), ButtonShortPress); !ok {
		t.Fatal("PressButton() ok = false")
	}

	snaps := reg.Snapshots()
	if len(snaps) != 1 {
		t.Fatalf("Snapshots() len = %d", len(snaps))
	}
	s := snaps[0]
	if s.Screen != screen.Menu || !s.Active || s.Balance.String() != "7.25" || s.Renders != 1 || !s.IdleArmed {
		t.Errorf("snapshot = %+v", s)
	}
	if !s.LastRender.Equal(epoch) {
		t.Errorf("LastRender = %v, want %v", s.LastRender, epoch)
	}

	reg.Close()
	if h.clock.Pending() != 0 {
		t.Errorf("pending timers after Close = %d", h.clock.Pending())
	}
}
