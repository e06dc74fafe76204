package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coldaisle/hvac-edge/internal/gateway"
	"github.com/coldaisle/hvac-edge/internal/history"
	"github.com/coldaisle/hvac-edge/internal/infrastructure/config"
	"github.com/coldaisle/hvac-edge/internal/infrastructure/logging"
	"github.com/coldaisle/hvac-edge/internal/policy"
	"github.com/coldaisle/hvac-edge/internal/topology"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// CommandForwarder relays device commands into the CoAP gateway and
// reports the upstream reply. *gateway.ForwardClient satisfies it.
type CommandForwarder interface {
	Exchange(ctx context.Context, req policy.ForwardRequest) (*gateway.ForwardResponse, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Rooms   []*topology.Room
	Engines map[string]*policy.Engine
	Forward CommandForwarder
	History *history.Store // optional; events endpoint returns 404 without it
	// ExternalHub, when set, is used instead of creating a new hub. The
	// orchestrator needs the hub before the server exists so collector
	// observers can broadcast through it.
	ExternalHub *Hub
	Version     string
}

// Server is the administrative HTTP server for the HVAC edge agent.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	logger  *logging.Logger
	rooms   map[string]*topology.Room
	engines map[string]*policy.Engine
	forward CommandForwarder
	events  *history.Store
	version string

	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, rooms, engines)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if len(deps.Rooms) == 0 {
		return nil, fmt.Errorf("at least one room is required")
	}
	// Forward is optional; the proxy endpoint degrades to 503 without it

	rooms := make(map[string]*topology.Room, len(deps.Rooms))
	for _, rm := range deps.Rooms {
		rooms[rm.RoomID] = rm
	}

	s := &Server{
		cfg:     deps.Config,
		wsCfg:   deps.WS,
		logger:  deps.Logger,
		rooms:   rooms,
		engines: deps.Engines,
		forward: deps.Forward,
		events:  deps.History,
		version: deps.Version,
	}

	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the server's WebSocket hub, creating it if necessary.
// Safe to call before Start().
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
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
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub)
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

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
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

// room looks up a room by ID.
func (s *Server) room(roomID string) (*topology.Room, bool) {
	rm, ok := s.rooms[roomID]
	return rm, ok
}

// engine looks up the policy engine for a room.
func (s *Server) engine(roomID string) (*policy.Engine, bool) {
	e, ok := s.engines[roomID]
	return e, ok
}
