package influxdb

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/winstonhome/winston/internal/infrastructure/config"
)

const (
	pingTimeout = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// Logger receives batch failures. *logging.Logger satisfies it.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Client queues channel values and trigger executions as batched points.
// Writes never block the caller; a rejected batch is logged and dropped.
type Client struct {
	conn   influxdb2.Client
	writer api.WriteAPI
	bucket string
	log    Logger

	open     atomic.Bool
	rejected atomic.Uint64
}

// Dial pings the server and starts the batching writer. A nil logger
// discards batch failures.
func Dial(ctx context.Context, cfg config.InfluxDBConfig, log Logger) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if log == nil {
		log = noopLogger{}
	}

	conn := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, clientOptions(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if healthy, err := conn.Ping(pingCtx); err != nil || !healthy {
		conn.Close()
		if err == nil {
			err = errors.New("server not ready")
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, cfg.URL, err)
	}

	c := &Client{
		conn:   conn,
		writer: conn.WriteAPI(cfg.Org, cfg.Bucket),
		bucket: cfg.Bucket,
		log:    log,
	}
	c.open.Store(true)
	go c.watchBatches(c.writer.Errors())
	return c, nil
}

// clientOptions applies batch_size and flush_interval (seconds), falling
// back to the defaults for unset values.
func clientOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(defaultBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize)
	}
	flush := defaultFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}
	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds()))
}

func (c *Client) watchBatches(errs <-chan error) {
	for err := range errs {
		n := c.rejected.Add(1)
		c.log.Error("influxdb batch rejected", "bucket", c.bucket, "rejected_total", n, "error", err)
	}
}

// Rejected returns how many batches the server has refused so far.
func (c *Client) Rejected() uint64 {
	return c.rejected.Load()
}

// Close flushes queued points and releases the connection. Writes after
// Close are dropped.
func (c *Client) Close() error {
	if c.conn == nil || !c.open.Swap(false) {
		return nil
	}
	c.writer.Flush()
	c.conn.Close()
	return nil
}

// IsConnected reports whether the client is still accepting points.
func (c *Client) IsConnected() bool {
	return c.open.Load()
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy, err := c.conn.Ping(ctx)
	if err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check: server not ready")
	}
	return nil
}

// Flush sends queued points now. It is a no-op after Close.
func (c *Client) Flush() {
	if c.IsConnected() {
		c.writer.Flush()
	}
}
