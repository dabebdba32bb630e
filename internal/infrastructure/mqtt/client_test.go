package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/mc-connect-core/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration. Only the integration
// tests actually dial the broker.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "mcconnect-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type mockLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"DisplayState", topics.DisplayState("D-1042"), "mcconnect/display/D-1042/state"},
		{"DisplayEvent", topics.DisplayEvent("D-1042"), "mcconnect/display/D-1042/event"},
		{"SystemStatus", topics.SystemStatus(), "mcconnect/system/status"},
		{"AllDisplayStates", topics.AllDisplayStates(), "mcconnect/display/+/state"},
		{"AllDisplayEvents", topics.AllDisplayEvents(), "mcconnect/display/+/event"},
		{"AllTopics", topics.AllTopics(), "mcconnect/#"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "core"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want tcp://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "mcconnect-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "core" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
	}
	if !opts.AutoReconnect || !opts.CleanSession {
		t.Error("expected auto-reconnect and clean session")
	}

	cfg.Broker.TLS = true
	opts = buildClientOptions(cfg)
	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig not set")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, "mcconnect-test")

	if !opts.WillEnabled || !opts.WillRetained {
		t.Fatal("LWT should be enabled and retained")
	}
	if opts.WillTopic != "mcconnect/system/status" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}

	var payload map[string]string
	if err := json.Unmarshal(opts.WillPayload, &payload); err != nil {
		t.Fatalf("LWT payload is not JSON: %v", err)
	}
	if payload["status"] != "offline" || payload["reason"] != "unexpected_disconnect" {
		t.Errorf("LWT payload = %v", payload)
	}
}

func TestStatusPayloads(t *testing.T) {
	var online map[string]string
	if err := json.Unmarshal([]byte(buildOnlinePayload("core-1")), &online); err != nil {
		t.Fatalf("online payload: %v", err)
	}
	if online["status"] != "online" || online["client_id"] != "core-1" {
		t.Errorf("online = %v", online)
	}
	if _, ok := online["reason"]; ok {
		t.Error("online payload should carry no reason")
	}

	if !strings.Contains(buildOfflinePayload("core-1"), `"reason":"graceful_shutdown"`) {
		t.Error("offline payload missing graceful_shutdown reason")
	}
}

func TestValidation_Disconnected(t *testing.T) {
	c := newClient(testConfig(), buildClientOptions(testConfig()))
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"publish empty topic", c.Publish("", nil, 1, false), ErrInvalidTopic},
		{"publish bad qos", c.Publish("a", nil, 3, false), ErrInvalidQoS},
		{"publish oversized", c.Publish("a", make([]byte, maxPayloadSize+1), 1, false), ErrPublishFailed},
		{"publish disconnected", c.Publish("a", []byte("x"), 1, false), ErrNotConnected},
		{"publish json disconnected", c.PublishJSON("a", map[string]int{"n": 1}, true), ErrNotConnected},
		{"publish json unencodable", c.PublishJSON("a", make(chan int), false), ErrPublishFailed},
		{"subscribe empty topic", c.Subscribe("", 1, noop), ErrInvalidTopic},
		{"subscribe bad qos", c.Subscribe("a", 9, noop), ErrInvalidQoS},
		{"subscribe nil handler", c.Subscribe("a", 1, nil), ErrSubscribeFailed},
		{"subscribe disconnected", c.Subscribe("a", 1, noop), ErrNotConnected},
		{"unsubscribe empty topic", c.Unsubscribe(""), ErrInvalidTopic},
		{"unsubscribe disconnected", c.Unsubscribe("a"), ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}

	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on never-connected client = %v", err)
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	c := newClient(testConfig(), buildClientOptions(testConfig()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() = %v, want context.Canceled", err)
	}
}

func TestWrapHandler(t *testing.T) {
	c := newClient(testConfig(), buildClientOptions(testConfig()))
	logger := &mockLogger{}
	c.SetLogger(logger)

	var got []byte
	c.wrapHandler(func(_ string, p []byte) error {
		got = p
		return nil
	})(nil, fakeMessage{topic: "mcconnect/fleet/events", payload: []byte(`{"title":"image-updated"}`)})
	if string(got) != `{"title":"image-updated"}` {
		t.Errorf("handler saw %q", got)
	}

	c.wrapHandler(func(string, []byte) error {
		return errors.New("bad payload")
	})(nil, fakeMessage{topic: "t"})

	c.wrapHandler(func(string, []byte) error {
		panic("boom")
	})(nil, fakeMessage{topic: "t"})

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.warns) != 1 || logger.warns[0] != "MQTT handler returned error" {
		t.Errorf("warns = %v", logger.warns)
	}
	if len(logger.errors) != 1 || logger.errors[0] != "MQTT handler panic recovered" {
		t.Errorf("errors = %v", logger.errors)
	}
}

func TestWrapHandler_NoLogger(t *testing.T) {
	c := newClient(testConfig(), buildClientOptions(testConfig()))
	// Must not panic without a logger.
	c.wrapHandler(func(string, []byte) error { panic("boom") })(nil, fakeMessage{topic: "t"})
}
