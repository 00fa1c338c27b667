package dbexec

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteExecutor runs DB-node queries against a SQLite file. Zero
// setup, pure Go driver; the usual choice for development, tests, and
// single-process deployments. Use ":memory:" for an ephemeral
// database.
type SQLiteExecutor struct {
	db *sql.DB
}

// NewSQLiteExecutor opens (or creates) the database at path, enabling
// WAL mode and a lock timeout so concurrent node dispatches do not
// trip over the single writer.
func NewSQLiteExecutor(path string) (*SQLiteExecutor, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return &SQLiteExecutor{db: db}, nil
}

// DB exposes the handle for schema setup in callers and tests.
func (e *SQLiteExecutor) DB() *sql.DB { return e.db }

// Close releases the connection.
func (e *SQLiteExecutor) Close() error { return e.db.Close() }

// Execute implements the DatabaseExecutor contract: first row of the
// result as a column-keyed map.
func (e *SQLiteExecutor) Execute(ctx context.Context, query string, params []string) (any, error) {
	row, err := queryOneRow(ctx, e.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return row, nil
}
