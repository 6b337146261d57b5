// Package duckdb provides the DuckDB warehouse adapter.
// DuckDB is the local development backend; no hosted warehouse is needed.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os/user"
	"strings"
	"sync"

	rgsql "github.com/rowguard-labs/rowguard/internal/sql"
	"github.com/rowguard-labs/rowguard/internal/warehouse"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver
)

// Config configures the DuckDB adapter.
type Config struct {
	// DatabasePath is the path to the DuckDB database file.
	// Use ":memory:" for an in-memory database.
	DatabasePath string

	// User is reported as the current principal. When empty, the
	// operating-system user is reported instead.
	User string
}

// Adapter implements the warehouse interface for DuckDB.
type Adapter struct {
	mu     sync.RWMutex
	db     *sql.DB
	config Config
	closed bool
}

// NewAdapter creates a new DuckDB adapter with default in-memory configuration.
func NewAdapter() (*Adapter, error) {
	return NewAdapterWithConfig(Config{DatabasePath: ":memory:"})
}

// NewAdapterWithConfig creates a new DuckDB adapter with the given configuration.
func NewAdapterWithConfig(config Config) (*Adapter, error) {
	path := config.DatabasePath
	if path == "" {
		path = ":memory:"
	}
	if path == ":memory:" {
		path = ""
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("duckdb: failed to open database: %w", err)
	}

	// A single connection keeps the in-memory database visible across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Adapter{
		db:     db,
		config: config,
	}, nil
}

// Name returns the backend name.
func (a *Adapter) Name() string {
	return "duckdb"
}

// Query executes a statement that returns rows.
func (a *Adapter) Query(ctx context.Context, stmt rgsql.Statement) (*warehouse.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("duckdb: context error: %w", err)
	}

	db, err := a.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("duckdb: query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("duckdb: failed to get columns: %w", err)
	}

	resultRows := make([][]interface{}, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("duckdb: failed to scan row: %w", err)
		}
		resultRows = append(resultRows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("duckdb: error during row iteration: %w", err)
	}

	return &warehouse.Result{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
		Metadata: map[string]string{
			"backend": "duckdb",
		},
	}, nil
}

// Exec executes a statement and reports the number of rows affected.
func (a *Adapter) Exec(ctx context.Context, stmt rgsql.Statement) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("duckdb: context error: %w", err)
	}

	db, err := a.handle()
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, fmt.Errorf("duckdb: exec failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("duckdb: rows affected unavailable: %w", err)
	}
	return affected, nil
}

// Columns returns the column names of the given table via DESCRIBE.
func (a *Adapter) Columns(ctx context.Context, table string) ([]string, error) {
	db, err := a.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "DESCRIBE "+table)
	if err != nil {
		return nil, fmt.Errorf("duckdb: describe failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("duckdb: failed to get describe columns: %w", err)
	}

	names := make([]string, 0)
	for rows.Next() {
		values := make([]interface{}, len(cols))
		valuePtrs := make([]interface{}, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("duckdb: failed to scan describe row: %w", err)
		}
		if name, ok := values[0].(string); ok {
			names = append(names, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("duckdb: error during describe iteration: %w", err)
	}
	return names, nil
}

// CurrentUser returns the configured principal, falling back to the
// operating-system user for local development.
func (a *Adapter) CurrentUser(ctx context.Context) (string, error) {
	if a.config.User != "" {
		return a.config.User, nil
	}
	u, err := user.Current()
	if err != nil || strings.TrimSpace(u.Username) == "" {
		return "", fmt.Errorf("duckdb: no local principal available: %w", err)
	}
	return u.Username, nil
}

// Ping checks if the database is usable.
func (a *Adapter) Ping(ctx context.Context) error {
	db, err := a.handle()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close releases the database. Close is idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *Adapter) handle() (*sql.DB, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed || a.db == nil {
		return nil, fmt.Errorf("duckdb: connection is closed")
	}
	return a.db, nil
}
