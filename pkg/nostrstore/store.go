package nostrstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/randalmurphal/nostrstore/pkg/nostrstore/codec"
	"github.com/randalmurphal/nostrstore/pkg/nostrstore/config"
	"github.com/randalmurphal/nostrstore/pkg/nostrstore/nostr"
	"github.com/randalmurphal/nostrstore/pkg/nostrstore/observability"
	"github.com/randalmurphal/nostrstore/pkg/nostrstore/pool"
)

// Store is the durable persistence layer behind an authoritative in-memory
// index. All statements run through a single pooled connection; all domain
// policy decisions come from the Index collaborator.
type Store struct {
	db      *sql.DB
	pool    *pool.Pool
	index   Index
	builder *codec.Builder

	path    string
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	closed atomic.Bool
}

// storeConfig holds configuration for Open.
type storeConfig struct {
	logger          *slog.Logger
	metrics         observability.MetricsRecorder
	spans           observability.SpanManager
	scratchCapacity int
	busyTimeout     time.Duration
}

func defaultStoreConfig() storeConfig {
	return storeConfig{
		metrics:         observability.NoopMetrics{},
		spans:           observability.NoopSpanManager{},
		scratchCapacity: codec.DefaultScratchCapacity,
		busyTimeout:     5 * time.Second,
	}
}

// Option configures a Store at open time.
type Option func(*storeConfig)

// WithLogger enables structured logging through the given slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *storeConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
// Default: observability.NoopMetrics{}
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *storeConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpanManager sets the tracing span manager.
// Default: observability.NoopSpanManager{}
func WithSpanManager(sm observability.SpanManager) Option {
	return func(c *storeConfig) {
		if sm != nil {
			c.spans = sm
		}
	}
}

// WithScratchCapacity sets the initial size of the encode scratch buffer.
// Default: codec.DefaultScratchCapacity
func WithScratchCapacity(n int) Option {
	return func(c *storeConfig) {
		if n > 0 {
			c.scratchCapacity = n
		}
	}
}

// WithBusyTimeout sets the SQLite busy_timeout applied at open.
// Default: 5s
func WithBusyTimeout(d time.Duration) Option {
	return func(c *storeConfig) {
		if d > 0 {
			c.busyTimeout = d
		}
	}
}

// OptionsFromConfig derives open options from a loaded configuration, e.g.
// a YAML file read with config.FromFile. Recognized keys: busy_timeout,
// scratch_capacity, tracing (bool), metrics (bool).
func OptionsFromConfig(cfg config.Config) []Option {
	var opts []Option
	if d := cfg.Duration("busy_timeout", 0); d > 0 {
		opts = append(opts, WithBusyTimeout(d))
	}
	if n := cfg.Int("scratch_capacity", 0); n > 0 {
		opts = append(opts, WithScratchCapacity(n))
	}
	if cfg.Bool("tracing", false) {
		opts = append(opts, WithSpanManager(observability.NewSpanManager()))
	}
	if cfg.Bool("metrics", false) {
		opts = append(opts, WithMetrics(observability.NewMetricsRecorder()))
	}
	return opts
}

// Open creates or opens a SQLite-backed store at path (":memory:" for
// testing), wires it to the given index, applies pragmas and migrations, and
// runs startup reconciliation. Any failure aborts construction.
//
// Capacity policy travels with the index collaborator: a bounded index
// reports evictions through its discard decisions and the store applies them
// like any other.
func Open(ctx context.Context, path string, index Index, opts ...Option) (*Store, error) {
	if index == nil {
		return nil, fmt.Errorf("open store: index must not be nil")
	}

	cfg := defaultStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	done := observability.TimedOperation()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The pool owns the only connection; keep the driver from opening more.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	p, err := pool.New(ctx, db, cfg.logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{
		db:      db,
		pool:    p,
		index:   index,
		builder: codec.NewBuilder(cfg.scratchCapacity),
		path:    path,
		logger:  cfg.logger,
		metrics: cfg.metrics,
		spans:   cfg.spans,
	}

	if err := s.applyPragmas(ctx, cfg.busyTimeout); err != nil {
		s.shutdown()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(ctx, p); err != nil {
		s.shutdown()
		return nil, err
	}

	if err := s.reconcile(ctx); err != nil {
		s.shutdown()
		return nil, err
	}

	observability.LogOpen(s.logger, path, done())
	return s, nil
}

// applyPragmas sets required SQLite configuration on the pooled connection.
func (s *Store) applyPragmas(ctx context.Context, busyTimeout time.Duration) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}
	_, err := pool.Interact(ctx, s.pool, func(ctx context.Context, conn *sql.Conn) (struct{}, error) {
		for _, pragma := range pragmas {
			if _, err := conn.ExecContext(ctx, pragma); err != nil {
				return struct{}{}, fmt.Errorf("execute %q: %w", pragma, err)
			}
		}
		return struct{}{}, nil
	})
	return err
}

// Close shuts down the pool and releases the database handle.
// Safe to call more than once; operations after Close fail with ErrStoreClosed.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	poolErr := s.pool.Close()
	dbErr := s.db.Close()
	if poolErr != nil {
		return poolErr
	}
	return dbErr
}

// shutdown tears down a partially constructed store.
func (s *Store) shutdown() {
	s.closed.Store(true)
	_ = s.pool.Close()
	_ = s.db.Close()
}

// deleteIDs removes the given event rows, one statement per id, inside a
// single pool task. Only index decisions ever reach this path.
func (s *Store) deleteIDs(ctx context.Context, ids []nostr.ID) error {
	if len(ids) == 0 {
		return nil
	}
	hexIDs := make([]string, len(ids))
	for i, id := range ids {
		hexIDs[i] = id.Hex()
	}
	_, err := pool.Interact(ctx, s.pool, func(ctx context.Context, conn *sql.Conn) (struct{}, error) {
		stmt, err := conn.PrepareContext(ctx, "DELETE FROM events WHERE event_id = ?")
		if err != nil {
			return struct{}{}, err
		}
		defer stmt.Close()
		for _, id := range hexIDs {
			if _, err := stmt.ExecContext(ctx, id); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
	return err
}
