package dbexec

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLExecutor runs DB-node queries against a MySQL server.
type MySQLExecutor struct {
	db  *sql.DB
	dsn string
}

// NewMySQLExecutor connects using a go-sql-driver DSN
// (user:pass@tcp(host:3306)/dbname) and verifies the connection with
// a ping.
func NewMySQLExecutor(dsn string) (*MySQLExecutor, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach MySQL at %s: %w", describeDSN(dsn), err)
	}
	return &MySQLExecutor{db: db, dsn: dsn}, nil
}

// DB exposes the handle for schema setup in callers and tests.
func (e *MySQLExecutor) DB() *sql.DB { return e.db }

// Close releases the connection pool.
func (e *MySQLExecutor) Close() error { return e.db.Close() }

// Execute implements the DatabaseExecutor contract: first row of the
// result as a column-keyed map.
func (e *MySQLExecutor) Execute(ctx context.Context, query string, params []string) (any, error) {
	row, err := queryOneRow(ctx, e.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}
	return row, nil
}
