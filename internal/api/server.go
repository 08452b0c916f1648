package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-hub/internal/audit"
	"github.com/nerrad567/gray-logic-hub/internal/connection"
	"github.com/nerrad567/gray-logic-hub/internal/device"
	"github.com/nerrad567/gray-logic-hub/internal/exchange"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-hub/internal/property"
	"github.com/nerrad567/gray-logic-hub/internal/state"
	"github.com/nerrad567/gray-logic-hub/internal/store"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Catalogue is the read side of the device registry.
type Catalogue interface {
	GetConnector(ctx context.Context, id string) (*device.Connector, error)
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	GetChannel(ctx context.Context, id string) (*device.Channel, error)
	ListDevices(ctx context.Context) ([]device.Device, error)
	ListChannels(ctx context.Context, deviceID string) ([]device.Channel, error)
}

// HistoryReader lists recorded property states.
type HistoryReader interface {
	List(ctx context.Context, q store.HistoryQuery) ([]store.HistoryEntry, error)
}

// PropertyDeleter removes property definitions.
type PropertyDeleter interface {
	Delete(ctx context.Context, id string) error
}

// BrokerStatus reports broker connectivity for metrics.
type BrokerStatus interface {
	IsConnected() bool
}

// PendingCounter reports queued messages for metrics.
type PendingCounter interface {
	Pending() int
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Registry    Catalogue
	Connectors  *state.Manager
	Devices     *state.Manager
	Channels    *state.Manager
	Connection  *connection.Utility
	Definitions PropertyDeleter  // optional: DELETE on a property answers 503 without it
	Queue       exchange.Queue   // optional: channel writes are not pushed without it
	History     HistoryReader    // optional
	Audit       audit.Repository // optional
	Broker      BrokerStatus     // optional
	DB          *sql.DB          // optional
	Hub         *Hub             // If set, the server uses this hub instead of creating its own
	Source      string
	Version     string
}

// Server is the HTTP API server of the hub.
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	registry    Catalogue
	managers    map[property.EntityKind]*state.Manager
	connection  *connection.Utility
	definitions PropertyDeleter
	queue       exchange.Queue
	history     HistoryReader
	audit       audit.Repository
	broker      BrokerStatus
	db          *sql.DB
	source      string
	version     string
	startTime   time.Time
	server      *http.Server
	hub         *Hub
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Connectors == nil || deps.Devices == nil || deps.Channels == nil {
		return nil, fmt.Errorf("state managers are required")
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		registry: deps.Registry,
		managers: map[property.EntityKind]*state.Manager{
			property.EntityConnector: deps.Connectors,
			property.EntityDevice:    deps.Devices,
			property.EntityChannel:   deps.Channels,
		},
		connection:  deps.Connection,
		definitions: deps.Definitions,
		queue:       deps.Queue,
		history:     deps.History,
		audit:       deps.Audit,
		broker:      deps.Broker,
		db:          deps.DB,
		source:      deps.Source,
		version:     deps.Version,
		startTime:   time.Now(),
		hub:         deps.Hub,
	}
	return s, nil
}

// Hub returns the WebSocket hub, or nil before Start when none was injected.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.Timeouts.ReadTimeout(),
		WriteTimeout:      s.cfg.Timeouts.WriteTimeout(),
		IdleTimeout:       s.cfg.Timeouts.IdleTimeout(),
	}

	// Bind synchronously so a busy port fails Start instead of a log line.
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", ln.Addr().String(), "cert", s.cfg.TLS.CertFile)
			err = s.server.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", ln.Addr().String())
			err = s.server.Serve(ln)
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
