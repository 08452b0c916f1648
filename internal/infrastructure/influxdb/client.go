package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 // seconds
)

// Logger receives asynchronous write failures.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Client writes property values and connection transitions to an InfluxDB
// v2 bucket. Writes are batched and never block the caller; failures reach
// the logger set with SetLogger.
type Client struct {
	client    influxdb2.Client
	writeAPI  api.WriteAPI
	connected atomic.Bool

	mu     sync.RWMutex
	logger Logger
}

// Connect pings the server and prepares the batched write API.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, clientOptions(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := ping(ctx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		logger:   noopLogger{},
	}
	c.connected.Store(true)
	// The error channel must exist before the first write.
	go c.logWriteErrors(c.writeAPI.Errors())
	return c, nil
}

// clientOptions maps batch settings; non-positive values fall back to the
// defaults.
func clientOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	flush := cfg.FlushInterval
	if flush <= 0 {
		flush = defaultFlushInterval
	}
	return influxdb2.DefaultOptions().
		SetBatchSize(uint(batch)).           //nolint:gosec // positive
		SetFlushInterval(uint(flush) * 1000) //nolint:gosec // positive, milliseconds
}

func ping(ctx context.Context, client influxdb2.Client) error {
	ok, err := client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("server not healthy")
	}
	return nil
}

// logWriteErrors drains the write API error channel until the client closes.
func (c *Client) logWriteErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		log := c.logger
		c.mu.RUnlock()
		log.Error("influxdb write failed", "error", err)
	}
}

// SetLogger sets the logger for asynchronous write failures.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

// Close flushes buffered points and releases the client. Safe to call on a
// client that never connected.
func (c *Client) Close() error {
	if c.client == nil || !c.connected.Swap(false) {
		return nil
	}
	c.writeAPI.Flush()
	c.client.Close()
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(ctx, c.client); err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	return nil
}

// IsConnected reports whether the client is open. It does not ping.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Flush blocks until buffered points are sent. It is a no-op once closed.
func (c *Client) Flush() {
	if c.IsConnected() {
		c.writeAPI.Flush()
	}
}
