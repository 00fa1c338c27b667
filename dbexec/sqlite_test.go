package dbexec

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func newTestExecutor(t *testing.T) *SQLiteExecutor {
	t.Helper()
	exec, err := NewSQLiteExecutor(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteExecutor: %v", err)
	}
	t.Cleanup(func() { _ = exec.Close() })

	ctx := context.Background()
	if _, err := exec.DB().ExecContext(ctx, `
		CREATE TABLE products (
			product_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			stock INTEGER NOT NULL
		)
	`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := exec.DB().ExecContext(ctx,
		`INSERT INTO products VALUES ('PROD-001', 'Widget A', 42), ('PROD-002', 'Widget B', 7)`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return exec
}

func TestSQLiteExecutor_Execute(t *testing.T) {
	exec := newTestExecutor(t)

	row, err := exec.Execute(context.Background(),
		"SELECT product_id, name, stock FROM products WHERE product_id = $1",
		[]string{"PROD-001"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	result := row.(map[string]any)
	if result["product_id"] != "PROD-001" || result["name"] != "Widget A" {
		t.Errorf("row = %v", result)
	}
	if result["stock"] != int64(42) {
		t.Errorf("stock = %v (%T), want int64 42", result["stock"], result["stock"])
	}
}

func TestSQLiteExecutor_QuestionMarkPlaceholders(t *testing.T) {
	exec := newTestExecutor(t)

	row, err := exec.Execute(context.Background(),
		"SELECT name FROM products WHERE product_id = ?",
		[]string{"PROD-002"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if row.(map[string]any)["name"] != "Widget B" {
		t.Errorf("row = %v", row)
	}
}

func TestSQLiteExecutor_NoRows(t *testing.T) {
	exec := newTestExecutor(t)

	_, err := exec.Execute(context.Background(),
		"SELECT * FROM products WHERE product_id = $1",
		[]string{"PROD-999"})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("error = %v, want sql.ErrNoRows", err)
	}
}

func TestSQLiteExecutor_BadQuery(t *testing.T) {
	exec := newTestExecutor(t)

	if _, err := exec.Execute(context.Background(), "SELECT FROM nowhere", nil); err == nil {
		t.Error("malformed query succeeded")
	}
}

func TestNormalizePlaceholders(t *testing.T) {
	cases := []struct{ in, want string }{
		{"SELECT * FROM t WHERE a = $1 AND b = $2", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{"SELECT * FROM t WHERE a = ?", "SELECT * FROM t WHERE a = ?"},
		{"SELECT 1", "SELECT 1"},
		{"SELECT * FROM t WHERE a = $10", "SELECT * FROM t WHERE a = ?"},
	}
	for _, tc := range cases {
		if got := normalizePlaceholders(tc.in); got != tc.want {
			t.Errorf("normalizePlaceholders(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDescribeDSN(t *testing.T) {
	if got := describeDSN("user:secret@tcp(db:3306)/orders"); got != "tcp(db:3306)/orders" {
		t.Errorf("describeDSN leaked credentials: %q", got)
	}
}
