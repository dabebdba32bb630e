package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func assignments(n int) []Assignment {
	out := make([]Assignment, n)
	for i := range out {
		out[i] = Assignment{DeviceID: fmt.Sprintf("dev-%02d", i), TableID: fmt.Sprint(i)}
	}
	return out
}

func TestBootstrap_RegistersAndRendersAll(t *testing.T) {
	h := newHarness(t)
	reg := NewRegistry()

	build := func(_ context.Context, a Assignment) (*Controller, error) {
		return NewController(a.DeviceID, h.graph.Initial(), h.config())
	}

	res, err := Bootstrap(context.Background(), reg, assignments(6), build, BootstrapOptions{Parallelism: 2})
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if len(res.Registered) != 6 || len(res.Failed) != 0 || res.Total != 6 {
		t.Errorf("result = %+v", res)
	}
	if res.Registered[0] != "dev-00" {
		t.Errorf("Registered not sorted: %v", res.Registered)
	}
	if reg.Count() != 6 {
		t.Errorf("registry count = %d, want 6", reg.Count())
	}
	// Each device rendered and pushed its initial screen, and armed the
	// promo idle timer.
	if h.renderer.count() != 6 || h.pusher.count() != 6 || h.clock.Pending() != 6 {
		t.Errorf("renders=%d pushes=%d timers=%d; want 6 each",
			h.renderer.count(), h.pusher.count(), h.clock.Pending())
	}
}

func TestBootstrap_BoundedParallelism(t *testing.T) {
	h := newHarness(t)
	reg := NewRegistry()

	var inFlight, peak atomic.Int32
	build := func(_ context.Context, a Assignment) (*Controller, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return NewController(a.DeviceID, h.graph.Initial(), h.config())
	}

	if _, err := Bootstrap(context.Background(), reg, assignments(12), build, BootstrapOptions{Parallelism: 3}); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if p := peak.Load(); p > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", p)
	}
}

func TestBootstrap_SuccessRatio(t *testing.T) {
	errQR := errors.New("qr encode failed")

	tests := []struct {
		name     string
		failing  int
		ratio    float64
		wantErr  bool
		wantRegs int
	}{
		{name: "tolerates failures by default", failing: 3, ratio: 0, wantErr: false, wantRegs: 7},
		{name: "ratio met", failing: 2, ratio: 0.8, wantErr: false, wantRegs: 8},
		{name: "ratio missed", failing: 3, ratio: 0.8, wantErr: true, wantRegs: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			reg := NewRegistry()

			build := func(_ context.Context, a Assignment) (*Controller, error) {
				var i int
				fmt.Sscanf(a.TableID, "%d", &i) //nolint:errcheck // test ids are numeric
				if i < tt.failing {
					return nil, errQR
				}
				return NewController(a.DeviceID, h.graph.Initial(), h.config())
			}

			res, err := Bootstrap(context.Background(), reg, assignments(10), build,
				BootstrapOptions{Parallelism: 4, MinSuccessRatio: tt.ratio})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Bootstrap() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrBootstrapFailed) {
				t.Errorf("error = %v, want ErrBootstrapFailed", err)
			}
			if len(res.Registered) != tt.wantRegs || reg.Count() != tt.wantRegs {
				t.Errorf("registered = %d (registry %d), want %d", len(res.Registered), reg.Count(), tt.wantRegs)
			}
			if len(res.Failed) != 10-tt.wantRegs {
				t.Errorf("failed = %d, want %d", len(res.Failed), 10-tt.wantRegs)
			}
			for id, ferr := range res.Failed {
				if !errors.Is(ferr, errQR) {
					t.Errorf("Failed[%s] = %v", id, ferr)
				}
			}
		})
	}
}

func TestBootstrap_FailFast(t *testing.T) {
	h := newHarness(t)
	reg := NewRegistry()

	var mu sync.Mutex
	built := 0
	build := func(ctx context.Context, a Assignment) (*Controller, error) {
		mu.Lock()
		built++
		mu.Unlock()
		if a.DeviceID == "dev-00" {
			return nil, errors.New("boom")
		}
		return NewController(a.DeviceID, h.graph.Initial(), h.config())
	}

	res, err := Bootstrap(context.Background(), reg, assignments(20), build,
		BootstrapOptions{Parallelism: 1, MinSuccessRatio: 1})
	if !errors.Is(err, ErrBootstrapFailed) {
		t.Fatalf("Bootstrap() error = %v, want ErrBootstrapFailed", err)
	}
	if len(res.Failed) != 20 {
		t.Errorf("failed = %d, want all 20 (first error plus cancelled)", len(res.Failed))
	}
	if built != 1 {
		t.Errorf("built %d controllers after the first failure, want 1", built)
	}
}

func TestBootstrap_DuplicateDevice(t *testing.T) {
	h := newHarness(t)
	reg := NewRegistry()
	build := func(_ context.Context, a Assignment) (*Controller, error) {
		return NewController(a.DeviceID, h.graph.Initial(), h.config())
	}

	dup := []Assignment{{DeviceID: "dev-1", TableID: "1"}, {DeviceID: "dev-1", TableID: "2"}}
	res, err := Bootstrap(context.Background(), reg, dup, build, BootstrapOptions{})
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if len(res.Registered) != 1 || !errors.Is(res.Failed["dev-1"], ErrDeviceExists) {
		t.Errorf("result = %+v", res)
	}
	if h.clock.Pending() != 1 {
		t.Errorf("pending timers = %d, want 1 (rejected duplicate never armed)", h.clock.Pending())
	}
}
