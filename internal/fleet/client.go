package fleet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	updateImagePath     = "/api/v1/update-image"
	defaultAPIKeyHeader = "API-Key"
	defaultTimeout      = 10 * time.Second

	// maxResponseLog bounds how much of a response body is logged.
	maxResponseLog = 1024
)

// Frame is anything that can be encoded as an image data URL.
type Frame interface {
	DataURL() (string, error)
}

// Buzzer is the buzzer pattern sent with every push (milliseconds).
type Buzzer struct {
	OnTime      int `json:"on_time"`
	OffTime     int `json:"off_time"`
	Repetitions int `json:"repetitions"`
}

// Payload is the update-image request body.
type Payload struct {
	DeviceIDs []string `json:"device_ids"`
	LED       int      `json:"led"`
	Buzzer    Buzzer   `json:"buzzer"`
	Content   string   `json:"content"`
}

// Config contains the fleet API settings.
type Config struct {
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	Buzzer       Buzzer

	// Timeout bounds each push. Default: 10s.
	Timeout time.Duration
}

// Result describes one completed push for observers.
type Result struct {
	DeviceIDs  []string
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Logger defines the logging interface used by the client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(l Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithObserver registers a callback invoked after every push.
func WithObserver(fn func(Result)) Option {
	return func(c *Client) { c.observe = fn }
}

// Client pushes frames to the fleet API. It is safe for concurrent use.
type Client struct {
	endpoint string
	cfg      Config
	http     *http.Client
	logger   Logger
	observe  func(Result)

	wg sync.WaitGroup
}

// New creates a Client for cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: base URL and API key are required", ErrInvalidConfig)
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base URL %q", ErrInvalidConfig, cfg.BaseURL)
	}
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = defaultAPIKeyHeader
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	c := &Client{
		endpoint: base.String() + updateImagePath,
		cfg:      cfg,
		http:     &http.Client{},
		logger:   noopLogger{},
		observe:  func(Result) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Push sends frame to deviceIDs and waits for the response, bounded by
// the configured timeout.
func (c *Client) Push(ctx context.Context, deviceIDs []string, frame Frame, led int) error {
	start := time.Now()
	status, err := c.push(ctx, deviceIDs, frame, led)
	c.observe(Result{
		DeviceIDs:  deviceIDs,
		StatusCode: status,
		Duration:   time.Since(start),
		Err:        err,
	})
	return err
}

// PushAsync sends frame in the background and only logs the outcome.
func (c *Client) PushAsync(deviceIDs []string, frame Frame, led int) {
	ids := append([]string(nil), deviceIDs...)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Push(context.Background(), ids, frame, led); err != nil {
			c.logger.Warn("push to display failed",
				"device_ids", ids,
				"error", err,
			)
		}
	}()
}

// Wait blocks until all in-flight async pushes finish or ctx is done.
func (c *Client) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) push(ctx context.Context, deviceIDs []string, frame Frame, led int) (int, error) {
	content, err := frame.DataURL()
	if err != nil {
		return 0, fmt.Errorf("%w: encoding frame: %w", ErrPushFailed, err)
	}

	body, err := json.Marshal(Payload{
		DeviceIDs: deviceIDs,
		LED:       led,
		Buzzer:    c.cfg.Buzzer,
		Content:   content,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: marshalling payload: %w", ErrPushFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: building request: %w", ErrPushFailed, err)
	}
	req.Header.Set(c.cfg.APIKeyHeader, c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPushFailed, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseLog)) //nolint:errcheck // body is only logged
	c.logger.Debug("fleet API response",
		"device_ids", deviceIDs,
		"status", resp.StatusCode,
		"body", string(respBody),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return resp.StatusCode, nil
}
