// Package sqlitews provides a SQLite-backed warehouse adapter.
//
// SQLite cannot address catalog.schema.table names, so the adapter is told
// which fully-qualified name it hosts and maps it to a local table. It backs
// the test suites (pure Go driver, no server required) the same way the
// upstream warehouses back production.
package sqlitews

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	rgsql "github.com/rowguard-labs/rowguard/internal/sql"
	"github.com/rowguard-labs/rowguard/internal/warehouse"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Config configures the SQLite adapter.
type Config struct {
	// Path is the database file path; ":memory:" for in-memory.
	Path string

	// QualifiedTable is the catalog.schema.table name statements address.
	QualifiedTable string

	// LocalTable is the SQLite table backing QualifiedTable.
	LocalTable string

	// User is reported as the current principal. Empty means the
	// backend has no principal and CurrentUser fails.
	User string
}

// Adapter implements the warehouse interface over SQLite.
type Adapter struct {
	mu     sync.RWMutex
	db     *sql.DB
	config Config
	closed bool
}

// NewAdapter opens a SQLite-backed adapter.
func NewAdapter(config Config) (*Adapter, error) {
	if config.QualifiedTable == "" {
		return nil, fmt.Errorf("sqlitews: qualified table is required")
	}
	if config.LocalTable == "" {
		return nil, fmt.Errorf("sqlitews: local table is required")
	}
	path := config.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitews: failed to open database: %w", err)
	}

	// In-memory databases vanish when their sole connection closes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Adapter{
		db:     db,
		config: config,
	}, nil
}

// Name returns the backend name.
func (a *Adapter) Name() string {
	return "sqlite"
}

// DB exposes the underlying handle so callers can create the backing table.
func (a *Adapter) DB() *sql.DB {
	return a.db
}

// Query executes a statement that returns rows.
func (a *Adapter) Query(ctx context.Context, stmt rgsql.Statement) (*warehouse.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sqlitews: context error: %w", err)
	}

	db, err := a.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, a.localize(stmt.SQL), stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("sqlitews: query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlitews: failed to get columns: %w", err)
	}

	resultRows := make([][]interface{}, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("sqlitews: failed to scan row: %w", err)
		}
		resultRows = append(resultRows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitews: error during row iteration: %w", err)
	}

	return &warehouse.Result{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
		Metadata: map[string]string{
			"backend": "sqlite",
		},
	}, nil
}

// Exec executes a statement and reports the number of rows affected.
func (a *Adapter) Exec(ctx context.Context, stmt rgsql.Statement) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("sqlitews: context error: %w", err)
	}

	db, err := a.handle()
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx, a.localize(stmt.SQL), stmt.Args...)
	if err != nil {
		return 0, fmt.Errorf("sqlitews: exec failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlitews: rows affected unavailable: %w", err)
	}
	return affected, nil
}

// Columns returns the column names of the hosted table, in declared order.
func (a *Adapter) Columns(ctx context.Context, table string) ([]string, error) {
	if table != a.config.QualifiedTable {
		return nil, fmt.Errorf("sqlitews: unknown table %q", table)
	}

	db, err := a.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", a.config.LocalTable))
	if err != nil {
		return nil, fmt.Errorf("sqlitews: table_info failed: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal interface{}
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("sqlitews: failed to scan table_info row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitews: error during table_info iteration: %w", err)
	}
	return names, nil
}

// CurrentUser returns the configured principal.
func (a *Adapter) CurrentUser(ctx context.Context) (string, error) {
	if strings.TrimSpace(a.config.User) == "" {
		return "", fmt.Errorf("sqlitews: backend has no principal")
	}
	return a.config.User, nil
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

// localize maps the qualified table name onto the local SQLite table.
func (a *Adapter) localize(sql string) string {
	return strings.ReplaceAll(sql, a.config.QualifiedTable, a.config.LocalTable)
}

func (a *Adapter) handle() (*sql.DB, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed || a.db == nil {
		return nil, fmt.Errorf("sqlitews: connection is closed")
	}
	return a.db, nil
}
