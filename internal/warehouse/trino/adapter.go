// Package trino provides the Trino warehouse adapter. Trino is the primary
// hosted-warehouse backend: connections are addressed by hostname, HTTP path
// and access token, matching the deployment contract of hosted SQL warehouses.
package trino

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	rgsql "github.com/rowguard-labs/rowguard/internal/sql"
	"github.com/rowguard-labs/rowguard/internal/warehouse"

	_ "github.com/trinodb/trino-go-client/trino" // Trino driver
)

// Config configures the Trino adapter.
type Config struct {
	// Hostname is the coordinator hostname.
	Hostname string

	// Port is the coordinator port.
	Port int

	// HTTPPath is the endpoint path prefix, if the warehouse routes by path.
	HTTPPath string

	// AccessToken authenticates the session (JWT).
	AccessToken string

	// User is the session user when no token is supplied.
	User string

	// Catalog is the default catalog.
	Catalog string

	// Schema is the default schema.
	Schema string

	// SSLMode controls TLS: "", "disable", "require".
	SSLMode string

	// ConnectTimeout is the timeout for establishing connections.
	ConnectTimeout time.Duration

	// QueryTimeout is the default statement timeout.
	QueryTimeout time.Duration
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Hostname == "" {
		return fmt.Errorf("trino: hostname is required")
	}
	if c.AccessToken == "" && c.User == "" {
		return fmt.Errorf("trino: access token or user is required")
	}
	return nil
}

// Adapter implements the warehouse interface for Trino.
type Adapter struct {
	mu     sync.RWMutex
	db     *sql.DB
	config Config
	closed bool
}

// NewAdapter creates a new Trino adapter with the given configuration.
func NewAdapter(config Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Apply defaults
	if config.Port == 0 {
		config.Port = 443
	}
	if config.User == "" {
		config.User = "rowguard"
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = 5 * time.Minute
	}

	scheme := "https"
	if config.SSLMode == "disable" {
		scheme = "http"
	}

	// Build DSN: http[s]://user@host:port/path?catalog=X&schema=Y&accessToken=Z
	params := url.Values{}
	params.Set("source", "rowguard")
	if config.Catalog != "" {
		params.Set("catalog", config.Catalog)
	}
	if config.Schema != "" {
		params.Set("schema", config.Schema)
	}
	if config.AccessToken != "" {
		params.Set("accessToken", config.AccessToken)
	}
	dsn := (&url.URL{
		Scheme:   scheme,
		User:     url.User(config.User),
		Host:     fmt.Sprintf("%s:%d", config.Hostname, config.Port),
		Path:     config.HTTPPath,
		RawQuery: params.Encode(),
	}).String()

	db, err := sql.Open("trino", dsn)
	if err != nil {
		return nil, fmt.Errorf("trino: failed to open connection: %w", err)
	}

	// One interactive session, one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Adapter{
		db:     db,
		config: config,
	}, nil
}

// Name returns the backend name.
func (a *Adapter) Name() string {
	return "trino"
}

// Query executes a statement that returns rows.
func (a *Adapter) Query(ctx context.Context, stmt rgsql.Statement) (*warehouse.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("trino: context error: %w", err)
	}

	db, err := a.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("trino: query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("trino: failed to get columns: %w", err)
	}

	resultRows := make([][]interface{}, 0)
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("trino: context error during row iteration: %w", err)
		}

		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("trino: failed to scan row: %w", err)
		}
		resultRows = append(resultRows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trino: error during row iteration: %w", err)
	}

	return &warehouse.Result{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
		Metadata: map[string]string{
			"backend": "trino",
			"catalog": a.config.Catalog,
			"schema":  a.config.Schema,
		},
	}, nil
}

// Exec executes a statement and reports the number of rows affected.
func (a *Adapter) Exec(ctx context.Context, stmt rgsql.Statement) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("trino: context error: %w", err)
	}

	db, err := a.handle()
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, fmt.Errorf("trino: exec failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		// Trino reports update counts for DML; anything else is unexpected.
		return 0, fmt.Errorf("trino: rows affected unavailable: %w", err)
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
		return nil, fmt.Errorf("trino: describe failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("trino: failed to get describe columns: %w", err)
	}

	names := make([]string, 0)
	for rows.Next() {
		values := make([]interface{}, len(cols))
		valuePtrs := make([]interface{}, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("trino: failed to scan describe row: %w", err)
		}
		// Column name is the first DESCRIBE field
		if name, ok := values[0].(string); ok {
			names = append(names, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trino: error during describe iteration: %w", err)
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
	if err := db.QueryRowContext(ctx, "SELECT current_user").Scan(&user); err != nil {
		return "", fmt.Errorf("trino: current_user query failed: %w", err)
	}
	if strings.TrimSpace(user) == "" {
		return "", fmt.Errorf("trino: warehouse returned an empty principal")
	}
	return user, nil
}

// Ping checks if the coordinator is reachable.
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
		return nil, fmt.Errorf("trino: connection is closed")
	}
	return a.db, nil
}
