package influxdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/potentiostat-core/internal/infrastructure/config"
	"github.com/nerrad567/potentiostat-core/internal/infrastructure/logging"
)

// Errors returned by Connect and HealthCheck.
var (
	ErrDisabled         = errors.New("influxdb: disabled in configuration")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrNotConnected     = errors.New("influxdb: not connected")
)

const (
	pingTimeout          = 5 * time.Second
	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// Client is the measurement mirror. SQLite stays the source of truth;
// points written here are batched in the background and a failed write
// is logged, never returned to the ingestion path.
type Client struct {
	influx influxdb2.Client
	writer api.WriteAPI
	log    *logging.Logger

	open      atomic.Bool
	closeOnce sync.Once
	drained   chan struct{}
}

// Connect pings the server and starts the batched writer. A nil log
// discards write errors.
func Connect(cfg config.InfluxDBConfig, log *logging.Logger) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if log == nil {
		log = logging.Discard()
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	opts := influxdb2.DefaultOptions().
		SetBatchSize(uint(batch)). // #nosec G115 -- positive
		SetFlushInterval(uint(flushInterval(cfg).Milliseconds()))
	influx := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*pingTimeout)
	defer cancel()
	if err := ping(ctx, influx); err != nil {
		influx.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		influx:  influx,
		writer:  influx.WriteAPI(cfg.Org, cfg.Bucket),
		log:     log.With("component", "influxdb", "bucket", cfg.Bucket),
		drained: make(chan struct{}),
	}
	c.open.Store(true)
	// Errors must be requested before the first write.
	go c.logWriteErrors(c.writer.Errors())
	return c, nil
}

func flushInterval(cfg config.InfluxDBConfig) time.Duration {
	if cfg.FlushInterval <= 0 {
		return defaultFlushInterval
	}
	return time.Duration(cfg.FlushInterval) * time.Second
}

func ping(ctx context.Context, influx influxdb2.Client) error {
	healthy, err := influx.Ping(ctx)
	if err != nil {
		return err
	}
	if !healthy {
		return errors.New("server not healthy")
	}
	return nil
}

// logWriteErrors drains the writer's error channel until the client closes.
func (c *Client) logWriteErrors(errs <-chan error) {
	defer close(c.drained)
	for err := range errs {
		c.log.Error("measurement mirror write failed", "error", err)
	}
}

// Close flushes buffered points and releases the client. Further
// RecordMeasurement calls are dropped. Safe to call more than once.
func (c *Client) Close() error {
	if c.influx == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.open.Store(false)
		c.writer.Flush()
		c.influx.Close()
		<-c.drained
	})
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.open.Load() {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(ctx, c.influx); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}
