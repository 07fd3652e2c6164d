// Package sqlite provides SQLite-backed implementations of the policy stores.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/felixgeelhaar/policykeeper/domain/fault"
)

// Config configures SQLite storage.
type Config struct {
	// DSN is the data source name (e.g., "file:policies.db?mode=rwc").
	DSN string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime.
	ConnMaxLifetime time.Duration

	// AutoMigrate creates tables if they don't exist.
	AutoMigrate bool

	// JournalMode sets the SQLite journal mode (e.g., "WAL").
	JournalMode string

	// BusyTimeout sets the busy timeout in milliseconds.
	BusyTimeout int
}

// Option configures SQLite storage.
type Option func(*Config)

// WithDSN sets the data source name.
func WithDSN(dsn string) Option {
	return func(c *Config) {
		c.DSN = dsn
	}
}

// WithPath sets the DSN to a read-write database file at path.
func WithPath(path string) Option {
	return func(c *Config) {
		c.DSN = "file:" + path + "?mode=rwc"
	}
}

// WithMaxOpenConns sets the maximum open connections.
func WithMaxOpenConns(n int) Option {
	return func(c *Config) {
		c.MaxOpenConns = n
	}
}

// WithAutoMigrate enables automatic table creation.
func WithAutoMigrate() Option {
	return func(c *Config) {
		c.AutoMigrate = true
	}
}

// WithJournalMode sets the SQLite journal mode.
func WithJournalMode(mode string) Option {
	return func(c *Config) {
		c.JournalMode = mode
	}
}

// WithBusyTimeout sets the busy timeout in milliseconds.
func WithBusyTimeout(ms int) Option {
	return func(c *Config) {
		c.BusyTimeout = ms
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		DSN:             "file:policykeeper.db?mode=rwc",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		AutoMigrate:     true,
		JournalMode:     "WAL",
		BusyTimeout:     5000,
	}
}

// ErrMigrationFailed indicates the schema could not be created.
var ErrMigrationFailed = errors.New("sqlite: migration failed")

// Open opens the database described by cfg and, when enabled, creates the
// schema. Every write transaction starts with BEGIN IMMEDIATE so
// read-then-insert sequences cannot interleave across connections.
func Open(cfg Config, opts ...Option) (*sql.DB, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	dsn, err := connectionString(cfg)
	if err != nil {
		return nil, errors.Join(fault.ErrConnectionFailed, err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Join(fault.ErrConnectionFailed, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Join(fault.ErrConnectionFailed, err)
	}

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return db, nil
}

// connectionString adds the per-connection pragmas to the DSN. Pragmas
// executed once on *sql.DB would only reach one pooled connection.
func connectionString(cfg Config) (string, error) {
	if cfg.DSN == "" {
		return "", errors.New("sqlite: empty DSN")
	}

	base, rawQuery, _ := strings.Cut(cfg.DSN, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("sqlite: parse DSN: %w", err)
	}

	setDefault := func(key, value string) {
		if query.Get(key) == "" && value != "" {
			query.Set(key, value)
		}
	}
	setDefault("_txlock", "immediate")
	setDefault("_foreign_keys", "on")
	setDefault("_journal_mode", cfg.JournalMode)
	if cfg.BusyTimeout > 0 {
		setDefault("_busy_timeout", fmt.Sprint(cfg.BusyTimeout))
	}

	return base + "?" + query.Encode(), nil
}
