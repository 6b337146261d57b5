// Package store is the row-owned data access layer over the managed table.
//
// Every operation is parameterized by a resolved identity: writes stamp
// ownership and timestamps, and reads, updates and deletes are constrained
// to rows owned by that identity at statement-construction time. Built
// statements pass an ownership guard before execution.
//
// The layer assumes one interaction at a time per session. Two sessions
// under different identities never collide (disjoint ownership predicates);
// two sessions under the same identity race with last-writer-wins
// semantics. That is an accepted limitation, not a defect.
package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rowguard-labs/rowguard/internal/identity"
	"github.com/rowguard-labs/rowguard/internal/observability"
	"github.com/rowguard-labs/rowguard/internal/schema"
	rgsql "github.com/rowguard-labs/rowguard/internal/sql"
	"github.com/rowguard-labs/rowguard/internal/warehouse"
)

// Store exposes the four operations against the managed table.
type Store struct {
	mu      sync.Mutex
	handle  *warehouse.Lazy
	builder *rgsql.Builder
	guard   *rgsql.Guard
	schema  *schema.FormSchema
	logger  observability.OperationLogger
	view    *CachedView
	now     func() time.Time
	opSeq   atomic.Uint64
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the operation logger.
func WithLogger(logger observability.OperationLogger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a store over the session's shared warehouse handle.
// qualifiedTable is the catalog.schema.table name, reproduced verbatim in
// every statement.
func New(handle *warehouse.Lazy, qualifiedTable string, formSchema *schema.FormSchema, opts ...Option) *Store {
	s := &Store{
		handle:  handle,
		builder: rgsql.NewBuilder(qualifiedTable),
		guard:   rgsql.NewGuard(qualifiedTable),
		schema:  formSchema,
		logger:  observability.NewNoopLogger(),
		view:    NewCachedView(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Table returns the fully-qualified table name.
func (s *Store) Table() string {
	return s.builder.Table()
}

// View returns the session's cached view, for front ends that need the
// invalidation signal.
func (s *Store) View() *CachedView {
	return s.view
}

// Refresh discards the cached view without a mutation, forcing the next
// read to fetch fresh data.
func (s *Store) Refresh() {
	s.view.Invalidate()
}

// Create inserts one row owned by the acting identity. The layer stamps
// owner_user, created_at and updated_at; the caller supplies domain fields
// only. Required fields must be non-empty or the operation is not attempted.
func (s *Store) Create(ctx context.Context, fields map[string]string, id identity.Identity) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	if err := s.schema.ValidateFields(fields, true); err != nil {
		out := ValidationFailure(err.Error())
		s.log(ctx, "create", id, 0, s.now().Sub(started), out, err)
		return out
	}

	stmt := s.builder.Insert(fields, id.String(), s.now())
	out := s.exec(ctx, "create", stmt)
	if out.Kind == OutcomeSuccess {
		s.view.Invalidate()
	}
	s.log(ctx, "create", id, out.RowsAffected, s.now().Sub(started), out, nil)
	return out
}

// List returns the identity's records, most recently touched first. Each
// non-empty filter narrows the set with an ANDed substring match; empty
// filter values are ignored. The owner predicate is always present and not
// skippable by any filter combination.
//
// A valid cached view for the same identity and filters is served without
// a backend round trip. An empty set is a normal result; a backend failure
// is reported through the outcome, never conflated with zero rows.
func (s *Store) List(ctx context.Context, id identity.Identity, filters map[string]string) (*RecordSet, Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	if err := s.schema.ValidateFilters(filters); err != nil {
		out := ValidationFailure(err.Error())
		s.log(ctx, "read", id, 0, s.now().Sub(started), out, err)
		return nil, out
	}

	normalized := normalizeFilters(filters)
	if set, ok := s.view.Get(id, normalized); ok {
		return set, Success(int64(set.Len()))
	}

	stmt := s.builder.Select(id.String(), normalized)
	if err := s.guard.Check(stmt); err != nil {
		out := BackendFailure(err.Error(), false)
		s.log(ctx, "read", id, 0, s.now().Sub(started), out, err)
		return nil, out
	}

	wh, err := s.handle.Get(ctx)
	if err != nil {
		s.handle.Reset()
		out := BackendFailure(err.Error(), true)
		s.log(ctx, "read", id, 0, s.now().Sub(started), out, err)
		return nil, out
	}

	res, err := wh.Query(ctx, stmt)
	if err != nil {
		out := BackendFailure(err.Error(), false)
		s.log(ctx, "read", id, 0, s.now().Sub(started), out, err)
		return nil, out
	}

	set := &RecordSet{Columns: res.Columns, Rows: res.Rows}
	s.view.Put(id, normalized, set)
	out := Success(int64(set.Len()))
	s.log(ctx, "read", id, out.RowsAffected, s.now().Sub(started), out, nil)
	return set, out
}

// Update rewrites the given columns of one owned row and refreshes
// updated_at. The WHERE clause is id = ? AND owner_user = ?; a row owned
// by someone else matches zero rows, reported as a benign no-op that does
// not reveal whether the row exists.
func (s *Store) Update(ctx context.Context, recordID int64, fields map[string]string, id identity.Identity) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	if err := s.schema.ValidateFields(fields, false); err != nil {
		out := ValidationFailure(err.Error())
		s.log(ctx, "update", id, 0, s.now().Sub(started), out, err)
		return out
	}
	if recordID <= 0 {
		out := ValidationFailure(fmt.Sprintf("invalid record id %d", recordID))
		s.log(ctx, "update", id, 0, s.now().Sub(started), out, nil)
		return out
	}

	stmt := s.builder.Update(recordID, fields, id.String(), s.now())
	out := s.exec(ctx, "update", stmt)
	if out.Kind == OutcomeSuccess {
		s.view.Invalidate()
	}
	s.log(ctx, "update", id, out.RowsAffected, s.now().Sub(started), out, nil)
	return out
}

// Delete removes one owned row. Zero rows affected is a benign no-op;
// "already gone" and "not yours" produce the same outcome.
func (s *Store) Delete(ctx context.Context, recordID int64, id identity.Identity) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	if recordID <= 0 {
		out := ValidationFailure(fmt.Sprintf("invalid record id %d", recordID))
		s.log(ctx, "delete", id, 0, s.now().Sub(started), out, nil)
		return out
	}

	stmt := s.builder.Delete(recordID, id.String())
	out := s.exec(ctx, "delete", stmt)
	if out.Kind == OutcomeSuccess {
		s.view.Invalidate()
	}
	s.log(ctx, "delete", id, out.RowsAffected, s.now().Sub(started), out, nil)
	return out
}

// TableColumns returns the managed table's column names in warehouse order,
// used by front ends to label fields.
func (s *Store) TableColumns(ctx context.Context) ([]string, error) {
	wh, err := s.handle.Get(ctx)
	if err != nil {
		s.handle.Reset()
		return nil, err
	}
	return wh.Columns(ctx, s.builder.Table())
}

// exec guards and executes a mutation, mapping the result to an outcome.
func (s *Store) exec(ctx context.Context, operation string, stmt rgsql.Statement) Outcome {
	if err := s.guard.Check(stmt); err != nil {
		return BackendFailure(err.Error(), false)
	}

	wh, err := s.handle.Get(ctx)
	if err != nil {
		// Connection-level failure: drop the handle so the next call
		// attempts a fresh connection.
		s.handle.Reset()
		return BackendFailure(err.Error(), true)
	}

	affected, err := wh.Exec(ctx, stmt)
	if err != nil {
		return BackendFailure(err.Error(), false)
	}
	if affected == 0 && operation != "create" {
		return Noop()
	}
	if operation == "create" && affected == 0 {
		// Some warehouses do not report insert counts; the statement
		// succeeded, so the row is in.
		return Success(1)
	}
	return Success(affected)
}

func (s *Store) log(ctx context.Context, operation string, id identity.Identity, rows int64, took time.Duration, out Outcome, cause error) {
	entry := observability.OperationLogEntry{
		OperationID:   fmt.Sprintf("op_%d_%s", s.opSeq.Add(1), operation),
		User:          id.String(),
		Table:         s.builder.Table(),
		Operation:     operation,
		RowsAffected:  rows,
		ExecutionTime: took,
		Outcome:       out.Kind.String(),
	}
	if cause != nil {
		entry.Error = cause.Error()
	} else if out.Kind == OutcomeBackendFailure {
		entry.Error = out.Message
	}
	// Logging must never fail an operation.
	_ = s.logger.LogOperation(ctx, entry)
}

// normalizeFilters drops empty values so an empty string and an absent
// filter behave identically; a predicate like LIKE '%%' is never built.
func normalizeFilters(filters map[string]string) map[string]string {
	normalized := make(map[string]string, len(filters))
	for name, value := range filters {
		if value == "" {
			continue
		}
		normalized[name] = value
	}
	return normalized
}
