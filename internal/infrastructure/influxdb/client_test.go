package influxdb_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/mc-connect-core/internal/infrastructure/config"
	"github.com/nerrad567/mc-connect-core/internal/infrastructure/influxdb"
)

// fakeInflux answers /ping and collects line-protocol bodies sent to
// /api/v2/write.
type fakeInflux struct {
	mu        sync.Mutex
	lines     []string
	writeCode int
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ping":
		w.WriteHeader(http.StatusNoContent)
	case "/api/v2/write":
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		code := f.writeCode
		if code == 0 {
			f.lines = append(f.lines, strings.Split(strings.TrimSpace(string(body)), "\n")...)
			code = http.StatusNoContent
		}
		f.mu.Unlock()
		if code != http.StatusNoContent {
			http.Error(w, `{"code":"invalid","message":"bad point"}`, code)
			return
		}
		w.WriteHeader(code)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeInflux) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

// waitForLines polls until n lines arrived; the write API posts batches
// from its own goroutine.
func (f *fakeInflux) waitForLines(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		lines := f.written()
		if len(lines) >= n || time.Now().After(deadline) {
			return lines
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func newServer(t *testing.T) (*fakeInflux, config.InfluxDBConfig) {
	t.Helper()
	f := &fakeInflux{}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, config.InfluxDBConfig{
		Enabled:       true,
		URL:           srv.URL,
		Token:         "test-token",
		Org:           "mcconnect",
		Bucket:        "fleet",
		BatchSize:     100,
		FlushInterval: 60,
	}
}

func connect(t *testing.T, cfg config.InfluxDBConfig) *influxdb.Client {
	t.Helper()
	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestConnect_Disabled(t *testing.T) {
	_, err := influxdb.Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := influxdb.Connect(config.InfluxDBConfig{Enabled: true, URL: url, Token: "t"})
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_DefaultsAndHealth(t *testing.T) {
	_, cfg := newServer(t)
	cfg.BatchSize = -1
	cfg.FlushInterval = 0

	client := connect(t, cfg)
	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := client.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestWrite_Measurements(t *testing.T) {
	f, cfg := newServer(t)
	client := connect(t, cfg)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	client.WriteBattery("D-1042", 37.5, at)
	client.WritePush(3, 200, true, 120*time.Millisecond, at)
	client.WriteTransition("D-1042", "promo", "menu", "short_press", true, false, at)
	client.Flush()

	lines := f.waitForLines(t, 3)
	want := []string{
		"display_battery,device_id=D-1042 level=37.5",
		"display_push,result=ok devices=3i,duration_ms=120i,status=200i",
		"screen_transition,device_id=D-1042,from=promo,input=short_press,to=menu pushed=true,render_failed=false",
	}
	if len(lines) != len(want) {
		t.Fatalf("wrote %d lines, want %d: %q", len(lines), len(want), lines)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(lines[i], prefix+" ") {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], prefix)
		}
	}
}

func TestWrite_ErrorCallback(t *testing.T) {
	f, cfg := newServer(t)
	f.writeCode = http.StatusBadRequest
	client := connect(t, cfg)

	errs := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case errs <- err:
		default:
		}
	})

	client.WritePush(1, 500, false, time.Second, time.Now())
	client.Flush()

	select {
	case err := <-errs:
		if !errors.Is(err, influxdb.ErrWriteFailed) {
			t.Errorf("callback error = %v, want ErrWriteFailed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("error callback not invoked")
	}
}

func TestClose(t *testing.T) {
	f, cfg := newServer(t)
	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	// Writes after close are dropped.
	client.WriteBattery("D1", 50, time.Now())
	client.Flush()
	if len(f.written()) != 0 {
		t.Errorf("wrote %d lines after Close", len(f.written()))
	}
	if err := client.HealthCheck(t.Context()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close = %v, want ErrNotConnected", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var client *influxdb.Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client = %v", err)
	}
}
