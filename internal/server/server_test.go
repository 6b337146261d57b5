package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rowguard-labs/rowguard/internal/identity"
	"github.com/rowguard-labs/rowguard/internal/observability"
	"github.com/rowguard-labs/rowguard/internal/schema"
	rgsql "github.com/rowguard-labs/rowguard/internal/sql"
	"github.com/rowguard-labs/rowguard/internal/store"
	"github.com/rowguard-labs/rowguard/internal/warehouse"
	"github.com/rowguard-labs/rowguard/pkg/api"
)

type fakeWarehouse struct {
	rows     [][]interface{}
	affected int64
	user     string
}

func (f *fakeWarehouse) Name() string { return "fake" }

func (f *fakeWarehouse) Query(ctx context.Context, stmt rgsql.Statement) (*warehouse.Result, error) {
	return &warehouse.Result{
		Columns:  []string{"id", "name", "owner_user"},
		Rows:     f.rows,
		RowCount: len(f.rows),
	}, nil
}

func (f *fakeWarehouse) Exec(ctx context.Context, stmt rgsql.Statement) (int64, error) {
	return f.affected, nil
}

func (f *fakeWarehouse) Columns(ctx context.Context, table string) ([]string, error) {
	return []string{"id", "name", "owner_user", "created_at", "updated_at"}, nil
}

func (f *fakeWarehouse) CurrentUser(ctx context.Context) (string, error) { return f.user, nil }
func (f *fakeWarehouse) Ping(ctx context.Context) error                  { return nil }
func (f *fakeWarehouse) Close() error                                    { return nil }

func newTestServer(fake *fakeWarehouse) *Server {
	handle := warehouse.NewLazy(func(ctx context.Context) (warehouse.Warehouse, error) {
		return fake, nil
	})
	resolver := identity.NewResolver(identity.SourceFunc(func(ctx context.Context) (string, error) {
		return fake.CurrentUser(ctx)
	}))
	formSchema := schema.Default()
	logger := observability.NewNoopLogger()
	st := store.New(handle, "analytics.app.user_data", formSchema, store.WithLogger(logger))
	return New(st, resolver, formSchema, logger, handle, "test")
}

func doJSON(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	parsed := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, parsed
}

func TestServer_ListRecords(t *testing.T) {
	fake := &fakeWarehouse{
		user: "ada@example.com",
		rows: [][]interface{}{{float64(1), "Ada", "ada@example.com"}},
	}
	srv := newTestServer(fake)

	rec, body := doJSON(t, srv, http.MethodGet, api.EndpointRecords, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %v", rec.Code, body)
	}
	if body["count"] != float64(1) {
		t.Errorf("expected one record, got %v", body["count"])
	}
	records := body["records"].([]interface{})
	record := records[0].(map[string]interface{})
	if record["name"] != "Ada" {
		t.Errorf("unexpected record: %v", record)
	}
}

func TestServer_CreateRecord(t *testing.T) {
	fake := &fakeWarehouse{user: "ada@example.com", affected: 1}
	srv := newTestServer(fake)

	rec, body := doJSON(t, srv, http.MethodPost, api.EndpointRecords,
		`{"fields": {"name": "Ada", "email": "ada@example.com"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %v", rec.Code, body)
	}
	if body["outcome"] != "success" {
		t.Errorf("unexpected outcome: %v", body)
	}
}

func TestServer_CreateRejectsMissingRequired(t *testing.T) {
	fake := &fakeWarehouse{user: "ada@example.com"}
	srv := newTestServer(fake)

	rec, body := doJSON(t, srv, http.MethodPost, api.EndpointRecords, `{"fields": {"phone": "555"}}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %v", rec.Code, body)
	}
}

func TestServer_CreateRejectsManagedColumn(t *testing.T) {
	fake := &fakeWarehouse{user: "ada@example.com"}
	srv := newTestServer(fake)

	rec, _ := doJSON(t, srv, http.MethodPost, api.EndpointRecords,
		`{"fields": {"name": "A", "email": "a@b.c", "owner_user": "someone_else"}}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for managed column write, got %d", rec.Code)
	}
}

func TestServer_UpdateMissingRowIsNoop(t *testing.T) {
	fake := &fakeWarehouse{user: "ada@example.com", affected: 0}
	srv := newTestServer(fake)

	rec, body := doJSON(t, srv, http.MethodPut, api.EndpointRecords+"/42", `{"fields": {"name": "X"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("a zero-row update is benign, got %d: %v", rec.Code, body)
	}
	if body["outcome"] != "noop" {
		t.Errorf("expected noop outcome, got %v", body)
	}
}

func TestServer_DeleteRecord(t *testing.T) {
	fake := &fakeWarehouse{user: "ada@example.com", affected: 1}
	srv := newTestServer(fake)

	rec, body := doJSON(t, srv, http.MethodDelete, api.EndpointRecords+"/7", "")
	if rec.Code != http.StatusOK || body["outcome"] != "success" {
		t.Fatalf("unexpected delete response %d: %v", rec.Code, body)
	}
}

func TestServer_InvalidRecordID(t *testing.T) {
	fake := &fakeWarehouse{user: "ada@example.com"}
	srv := newTestServer(fake)

	rec, _ := doJSON(t, srv, http.MethodDelete, api.EndpointRecords+"/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
	}
}

func TestServer_Session(t *testing.T) {
	fake := &fakeWarehouse{user: "ada@example.com"}
	srv := newTestServer(fake)

	rec, body := doJSON(t, srv, http.MethodGet, api.EndpointSession, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if body["user"] != "ada@example.com" || body["fallback"] != false {
		t.Errorf("unexpected session: %v", body)
	}
	if fp, _ := body["fingerprint"].(string); len(fp) != 8 {
		t.Errorf("expected 8-char fingerprint, got %v", body["fingerprint"])
	}
}

func TestServer_Schema(t *testing.T) {
	fake := &fakeWarehouse{user: "ada@example.com"}
	srv := newTestServer(fake)

	rec, body := doJSON(t, srv, http.MethodGet, api.EndpointSchema, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	columns := body["columns"].([]interface{})
	if len(columns) != 6 {
		t.Errorf("expected 6 declared columns, got %d", len(columns))
	}
	first := columns[0].(map[string]interface{})
	if first["name"] != "name" || first["required"] != true {
		t.Errorf("unexpected first column: %v", first)
	}
}

func TestServer_AuditSummary(t *testing.T) {
	fake := &fakeWarehouse{user: "ada@example.com"}
	srv := newTestServer(fake)

	rec, body := doJSON(t, srv, http.MethodGet, api.EndpointAudit, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if _, ok := body["success_count"]; !ok {
		t.Errorf("expected aggregate summary, got %v", body)
	}
}

func TestServer_HealthAndReady(t *testing.T) {
	fake := &fakeWarehouse{user: "ada@example.com"}
	srv := newTestServer(fake)

	rec, body := doJSON(t, srv, http.MethodGet, api.EndpointHealth, "")
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health response %d: %v", rec.Code, body)
	}

	rec, body = doJSON(t, srv, http.MethodGet, api.EndpointReady, "")
	if rec.Code != http.StatusOK || body["status"] != "ready" {
		t.Fatalf("unexpected readiness response %d: %v", rec.Code, body)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	fake := &fakeWarehouse{user: "ada@example.com"}
	srv := newTestServer(fake)

	rec, _ := doJSON(t, srv, http.MethodDelete, api.EndpointSession, "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
