// Package warehouse defines the transport contract between the data layer
// and the backing SQL warehouse. Each backend implements the Warehouse
// interface; the data layer never sees driver-specific types.
//
// Adapters are thin and explicit: no silent retries, no hidden fallbacks.
package warehouse

import (
	"context"

	rgsql "github.com/rowguard-labs/rowguard/internal/sql"
)

// Result represents the rows returned by a query.
type Result struct {
	// Columns are the column names in the result, in positional order.
	Columns []string

	// Rows are the result rows, each row is a slice of values.
	Rows [][]interface{}

	// RowCount is the number of rows returned.
	RowCount int

	// Metadata contains additional execution information.
	Metadata map[string]string
}

// Warehouse is the interface all backend adapters must implement.
type Warehouse interface {
	// Name returns the unique name of this backend.
	Name() string

	// Query executes a statement that returns rows.
	// Must propagate errors explicitly - never swallow.
	Query(ctx context.Context, stmt rgsql.Statement) (*Result, error)

	// Exec executes a statement that returns no rows and reports the
	// number of rows affected.
	Exec(ctx context.Context, stmt rgsql.Statement) (int64, error)

	// Columns returns the column names of the given fully-qualified
	// table, in the order the warehouse reports them.
	Columns(ctx context.Context, table string) ([]string, error)

	// CurrentUser returns the authenticated principal the warehouse
	// session runs as.
	CurrentUser(ctx context.Context) (string, error)

	// Ping checks if the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the adapter.
	Close() error
}

// Registry manages backend adapters by name.
type Registry struct {
	backends map[string]Warehouse
}

// NewRegistry creates a new adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]Warehouse),
	}
}

// Register adds a backend to the registry.
func (r *Registry) Register(w Warehouse) {
	r.backends[w.Name()] = w
}

// Get returns a backend by name.
func (r *Registry) Get(name string) (Warehouse, bool) {
	w, ok := r.backends[name]
	return w, ok
}

// Available returns the names of all registered backends.
func (r *Registry) Available() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	return names
}

// CloseAll closes all registered backends.
func (r *Registry) CloseAll() error {
	var lastErr error
	for _, w := range r.backends {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
