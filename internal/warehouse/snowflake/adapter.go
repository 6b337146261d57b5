// Package snowflake provides the Snowflake warehouse adapter.
package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	rgsql "github.com/rowguard-labs/rowguard/internal/sql"
	"github.com/rowguard-labs/rowguard/internal/warehouse"

	// Import gosnowflake driver - registers as "snowflake"
	_ "github.com/snowflakedb/gosnowflake"
)

// Config configures the Snowflake adapter.
type Config struct {
	// Account is the Snowflake account identifier.
	Account string

	// User is the Snowflake username.
	User string

	// Password for basic auth.
	Password string

	// Database is the default database.
	Database string

	// Schema is the default schema.
	Schema string

	// Warehouse is the compute warehouse.
	Warehouse string

	// Role is the Snowflake role.
	Role string

	// ConnectTimeout is the timeout for establishing connections.
	ConnectTimeout time.Duration
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Account == "" {
		return fmt.Errorf("snowflake: account is required")
	}
	if c.User == "" {
		return fmt.Errorf("snowflake: user is required")
	}
	if c.Password == "" {
		return fmt.Errorf("snowflake: password is required")
	}
	if c.Warehouse == "" {
		return fmt.Errorf("snowflake: warehouse is required")
	}
	return nil
}

// Adapter implements the warehouse interface for Snowflake.
type Adapter struct {
	mu     sync.RWMutex
	db     *sql.DB
	config Config
	closed bool
}

// NewAdapter creates a new Snowflake adapter.
func NewAdapter(config Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 30 * time.Second
	}

	// Build DSN: user:password@account/database/schema?warehouse=X&role=Y
	dsn := fmt.Sprintf("%s:%s@%s/%s/%s?warehouse=%s",
		config.User,
		config.Password,
		config.Account,
		config.Database,
		config.Schema,
		config.Warehouse,
	)
	if config.Role != "" {
		dsn += fmt.Sprintf("&role=%s", config.Role)
	}
	dsn += fmt.Sprintf("&loginTimeout=%d", int(config.ConnectTimeout.Seconds()))

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("snowflake: failed to open connection: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Adapter{
		db:     db,
		config: config,
	}, nil
}

// Name returns the backend name.
func (a *Adapter) Name() string {
	return "snowflake"
}

// Query executes a statement that returns rows.
func (a *Adapter) Query(ctx context.Context, stmt rgsql.Statement) (*warehouse.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("snowflake: context error: %w", err)
	}

	db, err := a.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("snowflake: query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("snowflake: failed to get columns: %w", err)
	}

	resultRows := make([][]interface{}, 0)
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("snowflake: context error during row iteration: %w", err)
		}

		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("snowflake: failed to scan row: %w", err)
		}
		resultRows = append(resultRows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snowflake: error during row iteration: %w", err)
	}

	return &warehouse.Result{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
		Metadata: map[string]string{
			"backend":   "snowflake",
			"warehouse": a.config.Warehouse,
			"database":  a.config.Database,
		},
	}, nil
}

// Exec executes a statement and reports the number of rows affected.
func (a *Adapter) Exec(ctx context.Context, stmt rgsql.Statement) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("snowflake: context error: %w", err)
	}

	db, err := a.handle()
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, fmt.Errorf("snowflake: exec failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("snowflake: rows affected unavailable: %w", err)
	}
	return affected, nil
}

// Columns returns the column names of the given table via DESCRIBE TABLE.
func (a *Adapter) Columns(ctx context.Context, table string) ([]string, error) {
	db, err := a.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "DESCRIBE TABLE "+table)
	if err != nil {
		return nil, fmt.Errorf("snowflake: describe failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("snowflake: failed to get describe columns: %w", err)
	}

	names := make([]string, 0)
	for rows.Next() {
		values := make([]interface{}, len(cols))
		valuePtrs := make([]interface{}, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("snowflake: failed to scan describe row: %w", err)
		}
		// Snowflake reports column names uppercased; preserve them as-is.
		if name, ok := values[0].(string); ok {
			names = append(names, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snowflake: error during describe iteration: %w", err)
	}
	return names, nil
}

// CurrentUser returns the principal the warehouse session runs as.
func (a *Adapter) CurrentUser(ctx context.Context) (string, error) {
	db, err := a.handle()
	if err != nil {
		return "", err
	}

	var user string
	if err := db.QueryRowContext(ctx, "SELECT CURRENT_USER()").Scan(&user); err != nil {
		return "", fmt.Errorf("snowflake: current_user query failed: %w", err)
	}
	if strings.TrimSpace(user) == "" {
		return "", fmt.Errorf("snowflake: warehouse returned an empty principal")
	}
	return user, nil
}

// Ping checks if Snowflake is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	db, err := a.handle()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close releases the connection. Close is idempotent.
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
		return nil, fmt.Errorf("snowflake: connection is closed")
	}
	return a.db, nil
}
