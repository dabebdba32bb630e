package main

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/mc-connect-core/internal/audit"
	"github.com/nerrad567/mc-connect-core/internal/device"
	"github.com/nerrad567/mc-connect-core/internal/fleet"
	"github.com/nerrad567/mc-connect-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/mc-connect-core/internal/infrastructure/logging"
	"github.com/nerrad567/mc-connect-core/internal/metrics"
	"github.com/nerrad567/mc-connect-core/internal/render"
	"github.com/nerrad567/mc-connect-core/internal/screen"
	"github.com/nerrad567/mc-connect-core/internal/tables"
	"github.com/nerrad567/mc-connect-core/internal/webhook"
)

// helpWriteTimeout bounds the help flag update made after a transition.
const helpWriteTimeout = 5 * time.Second

// pushTelemetry reports every completed fleet push.
type pushTelemetry struct {
	metrics *metrics.Collector
	influx  *influxdb.Client // nil when InfluxDB is disabled
}

func (p *pushTelemetry) observe(r fleet.Result) {
	p.metrics.ObservePush(r)
	if p.influx != nil {
		p.influx.WritePush(len(r.DeviceIDs), r.StatusCode, r.Err == nil, r.Duration, time.Now())
	}
}

// eventRepo is the subset of audit.SQLiteRepository used by eventLog.
type eventRepo interface {
	Create(ctx context.Context, ev *audit.Event) error
}

// eventLog persists every dispatched fleet event.
type eventLog struct {
	repo eventRepo
	log  *logging.Logger
}

// RecordEvent implements webhook.Recorder.
func (e *eventLog) RecordEvent(ctx context.Context, ev webhook.Event, outcome webhook.Outcome) {
	err := e.repo.Create(context.WithoutCancel(ctx), &audit.Event{
		DeviceID: ev.ID,
		Title:    string(ev.Title),
		Source:   ev.Source,
		Outcome:  string(outcome),
		Details:  ev.Details(),
	})
	if err != nil {
		e.log.Error("recording device event failed", "device_id", ev.ID, "title", string(ev.Title), "error", err)
	}
}

// eventPurger is the subset of audit.SQLiteRepository used by eventPruner.
type eventPurger interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// eventPruner deletes device events older than the retention period,
// once at start and then every interval.
type eventPruner struct {
	repo      eventPurger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	log       *logging.Logger
}

func (p *eventPruner) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		p.prune(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *eventPruner) prune(ctx context.Context) {
	cutoff := p.now().Add(-p.retention)
	n, err := p.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Error("pruning device events failed", "error", err)
		}
		return
	}
	if n > 0 {
		p.log.Info("pruned device events", "deleted", n, "before", cutoff)
	}
}

// helpStore is the subset of tables.SQLiteRepository used by helpFlag.
type helpStore interface {
	SetHelp(ctx context.Context, deviceID string, help bool) error
}

// helpFlag raises the table's help flag for staff while its display shows
// the help screen, and clears it when the display leaves it.
//
// Observers must not block the device, so OnTransition only records the
// wanted value and run writes it. Pending values are kept per device and
// overwritten by later transitions, and a single worker writes them, so
// the stored flag always ends at the device's last transition.
type helpFlag struct {
	store helpStore
	log   *logging.Logger

	mu      sync.Mutex
	pending map[string]bool
	wake    chan struct{}
	done    chan struct{}
}

func newHelpFlag(store helpStore, log *logging.Logger) *helpFlag {
	return &helpFlag{
		store:   store,
		log:     log,
		pending: make(map[string]bool),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// OnTransition implements device.Observer.
func (h *helpFlag) OnTransition(t device.Transition) {
	entering := t.To == screen.Help && t.From != screen.Help
	leaving := t.From == screen.Help && t.To != screen.Help
	if !entering && !leaving {
		return
	}

	h.mu.Lock()
	h.pending[t.DeviceID] = entering
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// run writes pending flags until ctx is cancelled, then writes whatever
// is still pending and closes done.
func (h *helpFlag) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.flush()
			return
		case <-h.wake:
			h.flush()
		}
	}
}

func (h *helpFlag) flush() {
	for {
		h.mu.Lock()
		batch := h.pending
		h.pending = make(map[string]bool)
		h.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for deviceID, help := range batch {
			h.write(deviceID, help)
		}
	}
}

func (h *helpFlag) write(deviceID string, help bool) {
	ctx, cancel := context.WithTimeout(context.Background(), helpWriteTimeout)
	defer cancel()
	if err := h.store.SetHelp(ctx, deviceID, help); err != nil {
		h.log.Error("updating help flag failed", "device_id", deviceID, "help", help, "error", err)
	}
}

// influxSink writes transitions and battery readings as time series.
type influxSink struct {
	client *influxdb.Client
}

// OnTransition implements device.Observer.
func (s *influxSink) OnTransition(t device.Transition) {
	s.client.WriteTransition(t.DeviceID, string(t.From), string(t.To), t.Input.String(), t.Pushed, t.RenderErr != nil, t.At)
}

// RecordEvent implements webhook.Recorder. Only battery readings for
// known devices carry a value worth keeping.
func (s *influxSink) RecordEvent(_ context.Context, ev webhook.Event, outcome webhook.Outcome) {
	if ev.Title != webhook.TitleBatteryCapacity || outcome != webhook.OutcomeLogged || ev.BatteryLevel == nil {
		return
	}
	s.client.WriteBattery(ev.ID, *ev.BatteryLevel, time.Now())
}

// assignmentRepo is the subset of tables.SQLiteRepository used by the
// provisioner.
type assignmentRepo interface {
	CreateAssignment(ctx context.Context, a *tables.Assignment) error
	DeleteAssignment(ctx context.Context, deviceID string) error
}

// assignmentStore adapts the tables repository to device.AssignmentStore.
type assignmentStore struct {
	repo assignmentRepo
}

func (s *assignmentStore) CreateAssignment(ctx context.Context, a device.Assignment) error {
	return s.repo.CreateAssignment(ctx, &tables.Assignment{TableID: a.TableID, DeviceID: a.DeviceID})
}

func (s *assignmentStore) DeleteAssignment(ctx context.Context, deviceID string) error {
	return s.repo.DeleteAssignment(ctx, deviceID)
}

// provisioner drops a removed device's metric series along with it.
type provisioner struct {
	inner   *device.Provisioner
	metrics *metrics.Collector
}

func (p *provisioner) Provision(ctx context.Context, a device.Assignment) (*device.Controller, error) {
	return p.inner.Provision(ctx, a)
}

func (p *provisioner) Deprovision(ctx context.Context, deviceID string) error {
	if err := p.inner.Deprovision(ctx, deviceID); err != nil {
		return err
	}
	p.metrics.Forget(deviceID)
	return nil
}

// promotionSource is the subset of tables.SQLiteRepository used to reload
// the rotation.
type promotionSource interface {
	ListPromotions(ctx context.Context) ([]render.Promotion, error)
}

// promotionReloader swaps the shared rotation for the current menu's
// promoted items.
type promotionReloader struct {
	repo     promotionSource
	rotation *render.Rotation
}

func (p *promotionReloader) ReloadPromotions(ctx context.Context) (int, error) {
	items, err := p.repo.ListPromotions(ctx)
	if err != nil {
		return 0, err
	}
	p.rotation.Replace(items)
	return len(items), nil
}
