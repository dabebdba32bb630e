// Package metrics exports display fleet counters in Prometheus format.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/mc-connect-core/internal/device"
	"github.com/nerrad567/mc-connect-core/internal/fleet"
	"github.com/nerrad567/mc-connect-core/internal/webhook"
)

// FleetStats reports the current fleet size.
type FleetStats interface {
	Count() int
	ActiveCount() int
}

// Collector owns a private registry with every mcconnect_ metric.
type Collector struct {
	registry *prometheus.Registry

	transitions     *prometheus.CounterVec
	renderFailures  prometheus.Counter
	balanceFailures prometheus.Counter
	pushes          *prometheus.CounterVec
	pushDuration    prometheus.Histogram
	events          *prometheus.CounterVec
	battery         *prometheus.GaugeVec
}

// New creates a collector. stats may be nil, in which case the device
// gauges are omitted.
func New(stats FleetStats) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcconnect_screen_transitions_total",
			Help: "Screen transitions by input",
		}, []string{"input"}),
		renderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcconnect_render_failures_total",
			Help: "Transitions whose frame could not be drawn",
		}),
		balanceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcconnect_balance_lookup_failures_total",
			Help: "Balance lookups that failed and fell back to zero",
		}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcconnect_pushes_total",
			Help: "Frame pushes to the fleet platform by result",
		}, []string{"result"}),
		pushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mcconnect_push_duration_seconds",
			Help:    "Duration of update-image requests",
			Buckets: prometheus.DefBuckets,
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcconnect_webhook_events_total",
			Help: "Fleet events by title and outcome",
		}, []string{"title", "outcome"}),
		battery: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mcconnect_display_battery_percent",
			Help: "Last reported display battery level",
		}, []string{"device_id"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.transitions,
		c.renderFailures,
		c.balanceFailures,
		c.pushes,
		c.pushDuration,
		c.events,
		c.battery,
	)

	if stats != nil {
		c.registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "mcconnect_devices",
				Help: "Registered display controllers",
			}, func() float64 { return float64(stats.Count()) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "mcconnect_devices_active",
				Help: "Display controllers currently accepting input",
			}, func() float64 { return float64(stats.ActiveCount()) }),
		)
	}
	return c
}

// OnTransition implements device.Observer.
func (c *Collector) OnTransition(t device.Transition) {
	c.transitions.WithLabelValues(t.Input.String()).Inc()
	if t.RenderErr != nil {
		c.renderFailures.Inc()
	}
	if t.BalanceErr != nil {
		c.balanceFailures.Inc()
	}
}

// ObservePush records one finished push. It matches fleet.WithObserver.
func (c *Collector) ObservePush(r fleet.Result) {
	result := "ok"
	if r.Err != nil {
		result = "error"
	}
	c.pushes.WithLabelValues(result).Inc()
	c.pushDuration.Observe(r.Duration.Seconds())
}

// RecordEvent implements webhook.Recorder.
func (c *Collector) RecordEvent(_ context.Context, ev webhook.Event, outcome webhook.Outcome) {
	title := string(ev.Title)
	if outcome == webhook.OutcomeUnrecognized {
		// Unknown titles would otherwise mint unbounded label values.
		title = "other"
	}
	c.events.WithLabelValues(title, string(outcome)).Inc()

	if ev.Title == webhook.TitleBatteryCapacity && ev.BatteryLevel != nil && outcome == webhook.OutcomeLogged {
		c.battery.WithLabelValues(ev.ID).Set(*ev.BatteryLevel)
	}
}

// Forget drops per-device series, e.g. after a display is unassigned.
func (c *Collector) Forget(deviceID string) {
	c.battery.DeleteLabelValues(deviceID)
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
