package redflag

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

type session struct {
	store    *store.Store
	resolver *identity.Resolver
}

func (s *session) id() identity.Identity {
	return s.resolver.Identity(context.Background())
}

func sharedDatabase(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "warehouse.db")
}

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

	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	st := store.New(handle, qualifiedTable, schema.Default(), store.WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))

	return &session{store: st, resolver: identity.NewResolver(adapter)}
}

func mustCreate(t *testing.T, s *session, fields map[string]string) {
	t.Helper()
	out := s.store.Create(context.Background(), fields, s.id())
	if out.Kind != store.OutcomeSuccess {
		t.Fatalf("create failed: %+v", out)
	}
}

// firstID returns the id of the session's most recently touched record.
func firstID(t *testing.T, s *session) int64 {
	t.Helper()
	set, out := s.store.List(context.Background(), s.id(), nil)
	if out.Kind != store.OutcomeSuccess || set.Len() == 0 {
		t.Fatalf("expected at least one record: %+v", out)
	}
	id, err := set.Field(0, "id")
	if err != nil {
		t.Fatal(err)
	}
	return id.(int64)
}

// fieldOfFirst returns the named column of the most recently touched record.
func fieldOfFirst(t *testing.T, s *session, column string) interface{} {
	t.Helper()
	set, out := s.store.List(context.Background(), s.id(), nil)
	if out.Kind != store.OutcomeSuccess || set.Len() == 0 {
		t.Fatalf("expected at least one record: %+v", out)
	}
	v, err := set.Field(0, column)
	if err != nil {
		t.Fatal(err)
	}
	return v
}
