// Package bigquery provides the Google BigQuery warehouse adapter.
//
// BigQuery addresses tables as project.dataset.table, which maps directly
// onto the catalog.schema.table addressing the data layer emits.
package bigquery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	rgsql "github.com/rowguard-labs/rowguard/internal/sql"
	"github.com/rowguard-labs/rowguard/internal/warehouse"
)

// Config configures the BigQuery adapter.
type Config struct {
	// ProjectID is the GCP project ID.
	ProjectID string

	// CredentialsJSON is the service account key (optional if using ADC).
	CredentialsJSON string

	// CredentialsFile is a path to a service account key file.
	CredentialsFile string

	// Location is the BigQuery region (e.g., "US", "EU").
	Location string

	// QueryTimeout for query execution.
	QueryTimeout time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Location:     "US",
		QueryTimeout: 5 * time.Minute,
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("bigquery: project_id is required")
	}
	return nil
}

// Adapter implements the warehouse interface for BigQuery.
type Adapter struct {
	mu     sync.RWMutex
	config Config
	client *bigquery.Client
	closed bool
}

// NewAdapter creates a new BigQuery adapter.
func NewAdapter(ctx context.Context, config Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = 5 * time.Minute
	}

	// Build client options
	var opts []option.ClientOption
	if config.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(config.CredentialsJSON)))
	}
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}
	// With no explicit credentials the SDK uses Application Default Credentials.

	client, err := bigquery.NewClient(ctx, config.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery: failed to create client: %w", err)
	}

	return &Adapter{
		config: config,
		client: client,
	}, nil
}

// Name returns the backend name.
func (a *Adapter) Name() string {
	return "bigquery"
}

// Query executes a statement that returns rows. Positional ? placeholders
// are bound as positional query parameters.
func (a *Adapter) Query(ctx context.Context, stmt rgsql.Statement) (*warehouse.Result, error) {
	client, err := a.clientHandle()
	if err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, a.config.QueryTimeout)
	defer cancel()

	it, err := a.newQuery(client, stmt).Read(queryCtx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: query failed: %w", err)
	}

	columns := make([]string, len(it.Schema))
	for i, field := range it.Schema {
		columns[i] = field.Name
	}

	resultRows := make([][]interface{}, 0)
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery: failed to read row: %w", err)
		}

		rowData := make([]interface{}, len(row))
		for i, v := range row {
			rowData[i] = v
		}
		resultRows = append(resultRows, rowData)
	}

	return &warehouse.Result{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
		Metadata: map[string]string{
			"backend": "bigquery",
			"project": a.config.ProjectID,
		},
	}, nil
}

// Exec executes a DML statement and reports the number of rows affected.
func (a *Adapter) Exec(ctx context.Context, stmt rgsql.Statement) (int64, error) {
	client, err := a.clientHandle()
	if err != nil {
		return 0, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, a.config.QueryTimeout)
	defer cancel()

	job, err := a.newQuery(client, stmt).Run(queryCtx)
	if err != nil {
		return 0, fmt.Errorf("bigquery: failed to start job: %w", err)
	}
	status, err := job.Wait(queryCtx)
	if err != nil {
		return 0, fmt.Errorf("bigquery: job failed: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("bigquery: job completed with error: %w", err)
	}

	if stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		return stats.NumDMLAffectedRows, nil
	}
	return 0, nil
}

// Columns returns the column names of the given project.dataset.table.
func (a *Adapter) Columns(ctx context.Context, table string) ([]string, error) {
	client, err := a.clientHandle()
	if err != nil {
		return nil, err
	}

	parts := strings.Split(table, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("bigquery: expected project.dataset.table, got %q", table)
	}

	md, err := client.DatasetInProject(parts[0], parts[1]).Table(parts[2]).Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: failed to read table metadata: %w", err)
	}

	names := make([]string, 0, len(md.Schema))
	for _, field := range md.Schema {
		names = append(names, field.Name)
	}
	return names, nil
}

// CurrentUser returns the principal the BigQuery session runs as.
func (a *Adapter) CurrentUser(ctx context.Context) (string, error) {
	res, err := a.Query(ctx, rgsql.Statement{SQL: "SELECT SESSION_USER()"})
	if err != nil {
		return "", err
	}
	if res.RowCount == 0 || len(res.Rows[0]) == 0 {
		return "", fmt.Errorf("bigquery: warehouse returned no principal")
	}
	user, ok := res.Rows[0][0].(string)
	if !ok || strings.TrimSpace(user) == "" {
		return "", fmt.Errorf("bigquery: warehouse returned an empty principal")
	}
	return user, nil
}

// Ping checks if BigQuery is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	_, err := a.Query(ctx, rgsql.Statement{SQL: "SELECT 1"})
	return err
}

// Close releases the client. Close is idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

func (a *Adapter) clientHandle() (*bigquery.Client, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed || a.client == nil {
		return nil, fmt.Errorf("bigquery: client is closed")
	}
	return a.client, nil
}

func (a *Adapter) newQuery(client *bigquery.Client, stmt rgsql.Statement) *bigquery.Query {
	q := client.Query(stmt.SQL)
	if a.config.Location != "" {
		q.Location = a.config.Location
	}
	// Unnamed parameters bind to ? placeholders in order.
	for _, arg := range stmt.Args {
		q.Parameters = append(q.Parameters, bigquery.QueryParameter{Value: arg})
	}
	return q
}
