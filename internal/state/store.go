// Package state persists validation run history to SQLite. It implements
// the checker's RunLogger contract and the read-side queries the CLI uses
// to inspect past runs.
package state

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

const (
	defaultMaxRetries = 5
	defaultRetryDelay = 100 * time.Millisecond
)

// Options configures a Store.
type Options struct {
	// MaxRetries bounds how often a busy write is retried before the error
	// escalates. Defaults to 5.
	MaxRetries uint64

	// RetryDelay is the fixed delay between retry attempts. Defaults to
	// 100ms.
	RetryDelay time.Duration

	// Logger is the structured logger (optional, discards if nil).
	Logger *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = defaultRetryDelay
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// Store persists runs and rule results to a SQLite database.
type Store struct {
	db         *sql.DB
	path       string
	maxRetries uint64
	retryDelay time.Duration
	logger     *slog.Logger
}

// Open opens (or creates) the run log database at path and applies pending
// migrations. Use ":memory:" for an in-memory database.
func Open(path string, opts Options) (*Store, error) {
	opts.applyDefaults()

	dsn := path
	if path != ":memory:" {
		// WAL tolerates concurrent readers alongside a single writer;
		// busy retries absorb transient lock contention.
		dsn = fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping run log database: %w", err)
	}

	s := &Store{
		db:         db,
		path:       path,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		logger:     opts.Logger,
	}

	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// NewWithDB wraps an existing database connection. The schema is assumed to
// be in place; used by tests that drive the connection directly.
func NewWithDB(db *sql.DB, opts Options) *Store {
	opts.applyDefaults()
	return &Store{
		db:         db,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		logger:     opts.Logger,
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
