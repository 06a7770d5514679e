package dbutil

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// PoolConfig holds connection pool settings for a *sql.DB.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// Ping controls whether Open verifies connectivity before returning.
	// SQLite connections are lazy and file-backed; disabling Ping is useful
	// for DSNs that reference a file which is created on first statement.
	Ping bool
}

// DefaultPoolConfig returns the default pool configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 2 * time.Minute,
		Ping:            true,
	}
}

// Option customizes pool configuration.
type Option func(*PoolConfig)

// WithMaxOpenConns sets the maximum number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(c *PoolConfig) { c.MaxOpenConns = n }
}

// WithMaxIdleConns sets the maximum number of idle connections.
func WithMaxIdleConns(n int) Option {
	return func(c *PoolConfig) { c.MaxIdleConns = n }
}

// WithConnMaxLifetime sets the maximum lifetime of a connection.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(c *PoolConfig) { c.ConnMaxLifetime = d }
}

// WithConnMaxIdleTime sets the maximum idle time of a connection.
func WithConnMaxIdleTime(d time.Duration) Option {
	return func(c *PoolConfig) { c.ConnMaxIdleTime = d }
}

// WithPing enables or disables the connectivity check performed by Open.
func WithPing(ping bool) Option {
	return func(c *PoolConfig) { c.Ping = ping }
}

// Open opens a database connection using the given driver and DSN, configures
// the connection pool, and (unless disabled via WithPing) pings the database
// to verify connectivity.
func Open(driverName, dsn string, opts ...Option) (*sql.DB, error) {
	cfg := DefaultPoolConfig()
	for _, o := range opts {
		o(&cfg)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if cfg.Ping {
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pinging database: %w", err)
		}
	}

	return db, nil
}

// OpenSQLite opens a SQLite connection using the pure-Go "sqlite" driver and
// applies the crash-safe pragmas the durable store depends on: WAL journaling,
// NORMAL synchronous level, and a page cache large enough to avoid per-query
// disk seeks for the catalog sizes this service targets.
//
// SQLite allows at most one writer at a time; MaxOpenConns defaults to 1
// unless overridden, since a higher pool size only adds contention on the
// database-level lock without improving throughput.
func OpenSQLite(path string, opts ...Option) (*sql.DB, error) {
	opts = append([]Option{WithMaxOpenConns(1), WithMaxIdleConns(1)}, opts...)
	db, err := Open("sqlite", path, opts...)
	if err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=10000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	return db, nil
}
