package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/potentiostat-core/internal/audit"
	"github.com/nerrad567/potentiostat-core/internal/auth"
	"github.com/nerrad567/potentiostat-core/internal/client"
	"github.com/nerrad567/potentiostat-core/internal/experiment"
	"github.com/nerrad567/potentiostat-core/internal/infrastructure/config"
	"github.com/nerrad567/potentiostat-core/internal/infrastructure/logging"
	"github.com/nerrad567/potentiostat-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/potentiostat-core/internal/measurement"
	"github.com/nerrad567/potentiostat-core/internal/user"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by every infrastructure dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Subscriber is the part of the MQTT client the event relay needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config        config.APIConfig
	WS            config.WebSocketConfig
	Logger        *logging.Logger
	Authenticator *auth.Authenticator
	Issuer        *auth.Issuer
	Users         *user.Service
	Clients       *client.Service
	Experiments   *experiment.Engine
	Measurements  *measurement.Service
	AuditRepo     audit.Repository
	MQTT          Subscriber // optional: events are not relayed without it
	// Health lists the dependencies reported by GET /health, by name.
	Health  map[string]HealthChecker
	Version string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg           config.APIConfig
	wsCfg         config.WebSocketConfig
	logger        *logging.Logger
	authenticator *auth.Authenticator
	issuer        *auth.Issuer
	users         *user.Service
	clients       *client.Service
	experiments   *experiment.Engine
	measurements  *measurement.Service
	auditRepo     audit.Repository
	mqtt          Subscriber
	health        map[string]HealthChecker
	version       string
	server        *http.Server
	hub           *Hub
	tickets       *ticketStore
	cancel        context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Issuer == nil || deps.Authenticator == nil {
		return nil, fmt.Errorf("authenticator and token issuer are required")
	}
	if deps.Users == nil || deps.Clients == nil || deps.Experiments == nil || deps.Measurements == nil || deps.AuditRepo == nil {
		return nil, fmt.Errorf("domain services are required")
	}

	return &Server{
		cfg:           deps.Config,
		wsCfg:         deps.WS,
		logger:        deps.Logger,
		authenticator: deps.Authenticator,
		issuer:        deps.Issuer,
		users:         deps.Users,
		clients:       deps.Clients,
		experiments:   deps.Experiments,
		measurements:  deps.Measurements,
		auditRepo:     deps.AuditRepo,
		mqtt:          deps.MQTT,
		health:        deps.Health,
		version:       deps.Version,
		hub:           NewHub(deps.WS, deps.Logger),
		tickets:       newTicketStore(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, subscribes to client event topics for the
// WebSocket relay, and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	go s.tickets.cleanLoop(srvCtx)

	if err := s.subscribeClientEvents(); err != nil {
		s.logger.Warn("failed to subscribe to client events for WebSocket relay", "error", err)
	}

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

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
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

// HealthCheck verifies the API server is running.
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
