package main

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/nerrad567/mc-connect-core/internal/device"
	"github.com/nerrad567/mc-connect-core/internal/infrastructure/logging"
	"github.com/nerrad567/mc-connect-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/mc-connect-core/internal/webhook"
)

// mirrorQueueSize bounds the messages waiting for the broker.
const mirrorQueueSize = 256

// jsonPublisher is the subset of mqtt.Client used by brokerMirror.
type jsonPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

type mirrorMessage struct {
	topic    string
	payload  any
	retained bool
}

// displayEvent is published on a display's event topic.
type displayEvent struct {
	Title   string         `json:"title"`
	Outcome string         `json:"outcome"`
	Source  string         `json:"source,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	At      time.Time      `json:"at"`
}

// brokerMirror republishes screen changes (retained, per display state
// topic) and fleet events on MQTT. Publishing waits on the broker, so
// messages are queued and sent from run; when the queue is full new
// messages are dropped.
type brokerMirror struct {
	client  jsonPublisher
	log     *logging.Logger
	topics  mqtt.Topics
	queue   chan mirrorMessage
	dropped atomic.Int64
}

func newBrokerMirror(client jsonPublisher, log *logging.Logger) *brokerMirror {
	return &brokerMirror{
		client: client,
		log:    log,
		queue:  make(chan mirrorMessage, mirrorQueueSize),
	}
}

// OnTransition implements device.Observer.
func (m *brokerMirror) OnTransition(t device.Transition) {
	m.enqueue(mirrorMessage{topic: m.topics.DisplayState(t.DeviceID), payload: t, retained: true})
}

// RecordEvent implements webhook.Recorder.
func (m *brokerMirror) RecordEvent(_ context.Context, ev webhook.Event, outcome webhook.Outcome) {
	if ev.ID == "" {
		return
	}
	m.enqueue(mirrorMessage{
		topic: m.topics.DisplayEvent(ev.ID),
		payload: displayEvent{
			Title:   string(ev.Title),
			Outcome: string(outcome),
			Source:  ev.Source,
			Details: ev.Details(),
			At:      time.Now().UTC(),
		},
	})
}

func (m *brokerMirror) enqueue(msg mirrorMessage) {
	select {
	case m.queue <- msg:
	default:
		if n := m.dropped.Add(1); n == 1 || n%100 == 0 {
			m.log.Warn("MQTT mirror queue full, dropping messages", "dropped", n)
		}
	}
}

// run publishes queued messages until ctx is cancelled.
func (m *brokerMirror) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-m.queue:
			err := m.client.PublishJSON(msg.topic, msg.payload, msg.retained)
			switch {
			case err == nil:
			case errors.Is(err, mqtt.ErrNotConnected):
				m.log.Debug("MQTT mirror skipped while disconnected", "topic", msg.topic)
			default:
				m.log.Warn("MQTT mirror publish failed", "topic", msg.topic, "error", err)
			}
		}
	}
}
