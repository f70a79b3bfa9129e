// Package dataset provides the columnar engine datasets are evaluated
// against. It wraps DuckDB behind database/sql; all row-level computation
// (null counts, distinct counts, membership checks, predicate evaluation)
// is pushed down to the engine rather than performed in Go.
package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Engine wraps a DuckDB connection that hosts one or more named datasets.
type Engine struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open establishes a DuckDB connection. An empty path opens an in-memory
// database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Engine, error) {
	if path == "" {
		path = ":memory:"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	logger.Debug("opened dataset engine", slog.String("path", path))
	return &Engine{db: db, logger: logger}, nil
}

// Close closes the underlying connection.
func (e *Engine) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows. It exists for
// callers that stage data themselves (tests, embedding applications).
func (e *Engine) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if e.db == nil {
		return fmt.Errorf("engine connection not established")
	}
	if _, err := e.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// UnsupportedFormatError is returned when a dataset file's declared format
// has no reader in the engine.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported dataset format %q (expected \"parquet\" or \"csv\")", e.Format)
}

// Load reads a parquet or CSV file into a view named after the dataset and
// returns a handle to it.
func (e *Engine) Load(ctx context.Context, name, path, format string) (*Dataset, error) {
	if e.db == nil {
		return nil, fmt.Errorf("engine connection not established")
	}

	var reader string
	switch strings.ToLower(format) {
	case "parquet":
		reader = "read_parquet"
	case "csv":
		reader = "read_csv_auto"
	default:
		return nil, &UnsupportedFormatError{Format: format}
	}

	stmt := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM %s(%s)",
		quoteIdent(name), reader, quoteString(path))
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return nil, fmt.Errorf("failed to load dataset %q from %s: %w", name, path, err)
	}

	e.logger.Debug("loaded dataset",
		slog.String("name", name),
		slog.String("path", path),
		slog.String("format", format))

	return e.Dataset(name, name), nil
}

// Dataset returns a handle to an existing table or view in the engine.
func (e *Engine) Dataset(name, relation string) *Dataset {
	return &Dataset{engine: e, name: name, relation: relation}
}

// quoteIdent quotes a SQL identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteString quotes a SQL string literal, doubling embedded quotes.
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
