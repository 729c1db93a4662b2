package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/winstonhome/winston/internal/group"
	"github.com/winstonhome/winston/internal/infrastructure/config"
	"github.com/winstonhome/winston/internal/infrastructure/logging"
	"github.com/winstonhome/winston/internal/rpc"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// RPCHandler executes RPC paths. *rpc.Router implements it.
type RPCHandler interface {
	Handle(ctx context.Context, rawPath string) rpc.Response
}

// ExecutionStore lists recorded trigger executions. *group.SQLiteRepository
// implements it.
type ExecutionStore interface {
	GetExecution(ctx context.Context, id string) (*group.Execution, error)
	ListExecutions(ctx context.Context, group string, limit int) ([]group.Execution, error)
}

// HealthChecker is implemented by the MQTT, InfluxDB and database clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ConnectionReporter reports broker connectivity. *mqtt.Client implements it.
type ConnectionReporter interface {
	IsConnected() bool
}

// DBStatser reports connection pool statistics. *database.DB implements it.
type DBStatser interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Router  RPCHandler
	Version string

	// Optional.
	Metrics    http.Handler
	Hub        *Hub
	Executions ExecutionStore
	Checks     map[string]HealthChecker
	MQTT       ConnectionReporter
	DB         DBStatser
}

// Server is the HTTP server of a Winston daemon.
//
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	logger     *logging.Logger
	router     RPCHandler
	metrics    http.Handler
	hub        *Hub
	executions ExecutionStore
	checks     map[string]HealthChecker
	mqtt       ConnectionReporter
	db         DBStatser
	version    string
	startTime  time.Time
	server     *http.Server
	cancel     context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Router == nil {
		return nil, fmt.Errorf("rpc router is required")
	}
	if deps.Config.Workers < 1 {
		return nil, fmt.Errorf("at least one worker is required")
	}

	return &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		router:     deps.Router,
		metrics:    deps.Metrics,
		hub:        deps.Hub,
		executions: deps.Executions,
		checks:     deps.Checks,
		mqtt:       deps.MQTT,
		db:         deps.DB,
		version:    deps.Version,
		startTime:  time.Now(),
	}, nil
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// If a hub is configured it runs until Close or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub != nil {
		go s.hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
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
			s.logger.Info("API server starting", "address", s.server.Addr, "workers", s.cfg.Workers)
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
