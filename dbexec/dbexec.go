// Package dbexec provides DatabaseExecutor implementations for DB
// nodes over database/sql: SQLite (modernc, pure Go) and MySQL.
//
// The engine hands queries over verbatim with positional parameters;
// this package owns the dialect concerns — placeholder style, row
// scanning, and column-to-JSON mapping. Every executor returns the
// first result row as a map[string]any.
package dbexec

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
)

// dollarPlaceholder matches $1-style positional placeholders, the
// notation graph documents use regardless of backing database.
var dollarPlaceholder = regexp.MustCompile(`\$\d+`)

// normalizePlaceholders rewrites $1, $2, ... into the ?-style both
// supported drivers expect. Order is preserved: the engine binds
// parameters positionally.
func normalizePlaceholders(query string) string {
	return dollarPlaceholder.ReplaceAllString(query, "?")
}

// queryOneRow runs the query and maps the first row to JSON-typed
// values keyed by column name.
func queryOneRow(ctx context.Context, db *sql.DB, query string, params []string) (map[string]any, error) {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p
	}

	rows, err := db.QueryContext(ctx, normalizePlaceholders(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}

	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	out := make(map[string]any, len(cols))
	for i, col := range cols {
		out[col] = normalizeValue(raw[i])
	}
	return out, rows.Err()
}

// normalizeValue maps driver types onto the engine's JSON value set.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return v
	}
}

func describeDSN(dsn string) string {
	// Never echo credentials back in errors.
	if at := strings.LastIndex(dsn, "@"); at >= 0 {
		return dsn[at+1:]
	}
	return dsn
}
