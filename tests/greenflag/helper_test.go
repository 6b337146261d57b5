package greenflag

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rowguard-labs/rowguard/internal/identity"
	"github.com/rowguard-labs/rowguard/internal/schema"
	"github.com/rowguard-labs/rowguard/internal/store"
	"github.com/rowguard-labs/rowguard/internal/warehouse"
	"github.com/rowguard-labs/rowguard/internal/warehouse/sqlitews"
)

const qualifiedTable = "analytics.app.user_data"

const tableDDL = `
	CREATE TABLE IF NOT EXISTS user_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT,
		email TEXT,
		phone TEXT,
		department TEXT,
		status TEXT,
		notes TEXT,
		owner_user TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)
`

// session is one interactive session: an identity, its store and a
// settable clock.
type session struct {
	store    *store.Store
	resolver *identity.Resolver
	clock    *time.Time
}

func (s *session) id() identity.Identity {
	return s.resolver.Identity(context.Background())
}

func (s *session) advance(d time.Duration) {
	*s.clock = s.clock.Add(d)
}

// sharedDatabase returns a database path two sessions can share.
func sharedDatabase(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "warehouse.db")
}

// newSession opens a session against the shared database as the given user.
func newSession(t *testing.T, dbPath, user string) *session {
	t.Helper()

	adapter, err := sqlitews.NewAdapter(sqlitews.Config{
		Path:           dbPath,
		QualifiedTable: qualifiedTable,
		LocalTable:     "user_data",
		User:           user,
	})
	if err != nil {
		t.Fatalf("failed to open adapter: %v", err)
	}
	t.Cleanup(func() { adapter.Close() })

	if _, err := adapter.DB().Exec(tableDDL); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	handle := warehouse.NewLazy(func(ctx context.Context) (warehouse.Warehouse, error) {
		return adapter, nil
	})
	resolver := identity.NewResolver(adapter)

	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	clock := &now
	st := store.New(handle, qualifiedTable, schema.Default(), store.WithClock(func() time.Time {
		return *clock
	}))

	return &session{store: st, resolver: resolver, clock: clock}
}

// mustCreate inserts a record and fails the test on anything but success.
func mustCreate(t *testing.T, s *session, fields map[string]string) {
	t.Helper()
	out := s.store.Create(context.Background(), fields, s.id())
	if out.Kind != store.OutcomeSuccess {
		t.Fatalf("create failed: %+v", out)
	}
}

// mustList reads the session's records and fails the test on error.
func mustList(t *testing.T, s *session, filters map[string]string) *store.RecordSet {
	t.Helper()
	set, out := s.store.List(context.Background(), s.id(), filters)
	if out.Kind != store.OutcomeSuccess {
		t.Fatalf("list failed: %+v", out)
	}
	return set
}

// names extracts the name column from a record set, in result order.
func names(t *testing.T, set *store.RecordSet) []string {
	t.Helper()
	result := make([]string, 0, set.Len())
	for i := 0; i < set.Len(); i++ {
		v, err := set.Field(i, "name")
		if err != nil {
			t.Fatal(err)
		}
		result = append(result, v.(string))
	}
	return result
}
