package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/mc-connect-core/internal/audit"
	"github.com/nerrad567/mc-connect-core/internal/device"
	"github.com/nerrad567/mc-connect-core/internal/infrastructure/config"
	"github.com/nerrad567/mc-connect-core/internal/infrastructure/logging"
	"github.com/nerrad567/mc-connect-core/internal/webhook"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Provisioner adds and removes displays.
type Provisioner interface {
	Provision(ctx context.Context, a device.Assignment) (*device.Controller, error)
	Deprovision(ctx context.Context, deviceID string) error
}

// EventLog lists recorded fleet events.
type EventLog interface {
	List(ctx context.Context, filter audit.Filter) (*audit.ListResult, error)
}

// PromotionReloader re-reads the promotion rotation from the menu.
type PromotionReloader interface {
	ReloadPromotions(ctx context.Context) (int, error)
}

// HealthChecker is implemented by the database and broker clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Security    config.SecurityConfig
	Logger      *logging.Logger
	Registry    *device.Registry
	Dispatcher  *webhook.Dispatcher
	Provisioner Provisioner       // optional: device registration endpoints answer 503 without it
	Events      EventLog          // optional
	Promotions  PromotionReloader // optional
	Metrics     http.Handler      // optional: served at /metrics
	Hub         *Hub              // optional: created by Start when nil
	Checks      map[string]HealthChecker
	Version     string
}

// Server is the HTTP API server for mC Connect Core.
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	registry    *device.Registry
	dispatcher  *webhook.Dispatcher
	provisioner Provisioner
	events      EventLog
	promotions  PromotionReloader
	metrics     http.Handler
	checks      map[string]HealthChecker
	version     string
	tickets     *ticketStore
	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates a new API server. It is not listening until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("webhook dispatcher is required")
	}

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		secCfg:      deps.Security,
		logger:      deps.Logger,
		registry:    deps.Registry,
		dispatcher:  deps.Dispatcher,
		provisioner: deps.Provisioner,
		events:      deps.Events,
		promotions:  deps.Promotions,
		metrics:     deps.Metrics,
		checks:      deps.Checks,
		version:     deps.Version,
		tickets:     newTicketStore(),
	}

	// The hub is usually created by main so it can also be registered
	// as a transition observer before the devices start.
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	}
	return s, nil
}

// Start builds the router and begins listening in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	go s.cleanTicketsLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close waits up to 10 seconds for in-flight requests, then closes
// remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
