package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rowguard-labs/rowguard/internal/schema"
	rgsql "github.com/rowguard-labs/rowguard/internal/sql"
	"github.com/rowguard-labs/rowguard/internal/warehouse"
)

const storeTable = "analytics.app.user_data"

// fakeWarehouse counts calls and returns scripted results.
type fakeWarehouse struct {
	queries  int
	execs    int
	affected int64
	execErr  error
	queryErr error
	rows     [][]interface{}
}

func (f *fakeWarehouse) Name() string { return "fake" }

func (f *fakeWarehouse) Query(ctx context.Context, stmt rgsql.Statement) (*warehouse.Result, error) {
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &warehouse.Result{
		Columns:  []string{"id", "name", "owner_user"},
		Rows:     f.rows,
		RowCount: len(f.rows),
	}, nil
}

func (f *fakeWarehouse) Exec(ctx context.Context, stmt rgsql.Statement) (int64, error) {
	f.execs++
	if f.execErr != nil {
		return 0, f.execErr
	}
	return f.affected, nil
}

func (f *fakeWarehouse) Columns(ctx context.Context, table string) ([]string, error) {
	return []string{"id", "name", "owner_user", "created_at", "updated_at"}, nil
}

func (f *fakeWarehouse) CurrentUser(ctx context.Context) (string, error) { return "fake_user", nil }
func (f *fakeWarehouse) Ping(ctx context.Context) error                  { return nil }
func (f *fakeWarehouse) Close() error                                    { return nil }

func newTestStore(fake *fakeWarehouse) *Store {
	handle := warehouse.NewLazy(func(ctx context.Context) (warehouse.Warehouse, error) {
		return fake, nil
	})
	return New(handle, storeTable, schema.Default(), WithClock(func() time.Time {
		return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	}))
}

func TestStore_CreateValidatesBeforeBackend(t *testing.T) {
	fake := &fakeWarehouse{}
	s := newTestStore(fake)

	out := s.Create(context.Background(), map[string]string{"phone": "555"}, "ada")
	if out.Kind != OutcomeValidationFailure {
		t.Fatalf("expected validation failure, got %v", out.Kind)
	}
	if fake.execs != 0 {
		t.Errorf("expected no backend call, got %d", fake.execs)
	}
}

func TestStore_CreateInvalidatesView(t *testing.T) {
	fake := &fakeWarehouse{affected: 1}
	s := newTestStore(fake)

	before := s.View().Generation()
	out := s.Create(context.Background(), map[string]string{"name": "Ada", "email": "a@b.c"}, "ada")
	if out.Kind != OutcomeSuccess || out.RowsAffected != 1 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if s.View().Generation() != before+1 {
		t.Error("expected view invalidation after create")
	}
}

func TestStore_CreateWithoutReportedCountIsSuccess(t *testing.T) {
	fake := &fakeWarehouse{affected: 0}
	s := newTestStore(fake)

	out := s.Create(context.Background(), map[string]string{"name": "Ada", "email": "a@b.c"}, "ada")
	if out.Kind != OutcomeSuccess || out.RowsAffected != 1 {
		t.Fatalf("expected success for insert without row count, got %+v", out)
	}
}

func TestStore_ListServesCachedView(t *testing.T) {
	fake := &fakeWarehouse{rows: [][]interface{}{{int64(1), "Ada", "ada"}}}
	s := newTestStore(fake)

	first, out := s.List(context.Background(), "ada", nil)
	if out.Kind != OutcomeSuccess || first.Len() != 1 {
		t.Fatalf("unexpected first list: %+v %+v", first, out)
	}
	second, out := s.List(context.Background(), "ada", nil)
	if out.Kind != OutcomeSuccess || second != first {
		t.Fatalf("expected cached set, got %+v %+v", second, out)
	}
	if fake.queries != 1 {
		t.Errorf("expected one backend query, got %d", fake.queries)
	}
}

func TestStore_MutationForcesFreshRead(t *testing.T) {
	fake := &fakeWarehouse{affected: 1}
	s := newTestStore(fake)

	s.List(context.Background(), "ada", nil)
	s.Update(context.Background(), 1, map[string]string{"name": "Ada L"}, "ada")
	s.List(context.Background(), "ada", nil)

	if fake.queries != 2 {
		t.Errorf("expected fresh read after mutation, got %d queries", fake.queries)
	}
}

func TestStore_ListEmptyFilterEqualsAbsent(t *testing.T) {
	fake := &fakeWarehouse{}
	s := newTestStore(fake)

	s.List(context.Background(), "ada", map[string]string{"name": ""})
	s.List(context.Background(), "ada", nil)

	if fake.queries != 1 {
		t.Errorf("expected cache hit across empty and absent filters, got %d queries", fake.queries)
	}
}

func TestStore_ListRejectsUndeclaredFilter(t *testing.T) {
	fake := &fakeWarehouse{}
	s := newTestStore(fake)

	_, out := s.List(context.Background(), "ada", map[string]string{"salary": "1"})
	if out.Kind != OutcomeValidationFailure {
		t.Fatalf("expected validation failure, got %v", out.Kind)
	}
	if fake.queries != 0 {
		t.Errorf("expected no backend call, got %d", fake.queries)
	}
}

func TestStore_UpdateZeroRowsIsNoop(t *testing.T) {
	fake := &fakeWarehouse{affected: 0}
	s := newTestStore(fake)

	out := s.Update(context.Background(), 99, map[string]string{"name": "X"}, "ada")
	if out.Kind != OutcomeNoop {
		t.Fatalf("expected noop, got %+v", out)
	}
	if !out.OK() {
		t.Error("a noop is not a failure")
	}
}

func TestStore_DeleteZeroRowsIsNoop(t *testing.T) {
	fake := &fakeWarehouse{affected: 0}
	s := newTestStore(fake)

	before := s.View().Generation()
	out := s.Delete(context.Background(), 99, "ada")
	if out.Kind != OutcomeNoop {
		t.Fatalf("expected noop, got %+v", out)
	}
	if s.View().Generation() != before {
		t.Error("a noop must not invalidate the view")
	}
}

func TestStore_InvalidRecordID(t *testing.T) {
	fake := &fakeWarehouse{}
	s := newTestStore(fake)

	if out := s.Update(context.Background(), 0, map[string]string{"name": "X"}, "ada"); out.Kind != OutcomeValidationFailure {
		t.Errorf("expected validation failure for id 0, got %v", out.Kind)
	}
	if out := s.Delete(context.Background(), -4, "ada"); out.Kind != OutcomeValidationFailure {
		t.Errorf("expected validation failure for negative id, got %v", out.Kind)
	}
	if fake.execs != 0 {
		t.Errorf("expected no backend calls, got %d", fake.execs)
	}
}

func TestStore_StatementFailureIsNotRetryable(t *testing.T) {
	fake := &fakeWarehouse{execErr: fmt.Errorf("table not found")}
	s := newTestStore(fake)

	out := s.Delete(context.Background(), 1, "ada")
	if out.Kind != OutcomeBackendFailure || out.Retryable {
		t.Fatalf("expected non-retryable backend failure, got %+v", out)
	}
}

func TestStore_ConnectionFailureIsRetryableAndResets(t *testing.T) {
	attempts := 0
	handle := warehouse.NewLazy(func(ctx context.Context) (warehouse.Warehouse, error) {
		attempts++
		return nil, fmt.Errorf("connection refused")
	})
	s := New(handle, storeTable, schema.Default())

	out := s.Delete(context.Background(), 1, "ada")
	if out.Kind != OutcomeBackendFailure || !out.Retryable {
		t.Fatalf("expected retryable backend failure, got %+v", out)
	}

	// The handle was reset, so the next operation attempts a fresh
	// connection instead of reusing the failed one.
	s.Delete(context.Background(), 1, "ada")
	if attempts != 2 {
		t.Errorf("expected a fresh connection attempt, got %d", attempts)
	}
}

func TestStore_QueryFailureDistinctFromEmptyResult(t *testing.T) {
	fake := &fakeWarehouse{queryErr: fmt.Errorf("warehouse suspended")}
	s := newTestStore(fake)

	set, out := s.List(context.Background(), "ada", nil)
	if set != nil || out.Kind != OutcomeBackendFailure {
		t.Fatalf("expected backend failure with no set, got %+v %+v", set, out)
	}

	fake.queryErr = nil
	fake.rows = nil
	set, out = s.List(context.Background(), "ada", nil)
	if out.Kind != OutcomeSuccess || !set.Empty() {
		t.Fatalf("expected empty successful set, got %+v %+v", set, out)
	}
}
