package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/sqlpilot/sqlpilot/internal/observability"
)

// DuckDB executes queries against an embedded DuckDB database. It backs
// the dev and test profiles, where a local analytics file replaces the
// shared Postgres instance. Path "" opens an in-memory database.
type DuckDB struct {
	db *sql.DB
}

func OpenDuckDB(ctx context.Context, path string) (*DuckDB, error) {
	db, err := sql.Open("duckdb", strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return &DuckDB{db: db}, nil
}

func (d *DuckDB) Close() error {
	return d.db.Close()
}

func (d *DuckDB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping duckdb: %w", err)
	}
	return nil
}

func (d *DuckDB) Query(ctx context.Context, sqlText string) ([]Row, error) {
	if strings.TrimSpace(sqlText) == "" {
		return nil, &Error{Message: "sql is required"}
	}
	rows, err := d.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, &Error{Message: "query failed", Err: err}
	}
	defer func() { _ = rows.Close() }()

	result, err := scanRows(rows)
	if err != nil {
		return nil, &Error{Message: "scan results", Err: err}
	}
	observability.ObserveSQLRowsReturned(len(result))
	return result, nil
}
