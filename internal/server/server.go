// Package server exposes the row-owned store over HTTP JSON.
//
// Every request resolves the acting identity through the shared resolver;
// there is no way to name another user's rows through this surface. The
// handler set mirrors the store's four operations plus session, schema and
// audit introspection.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rowguard-labs/rowguard/internal/identity"
	"github.com/rowguard-labs/rowguard/internal/observability"
	"github.com/rowguard-labs/rowguard/internal/schema"
	"github.com/rowguard-labs/rowguard/internal/store"
	"github.com/rowguard-labs/rowguard/internal/warehouse"
	"github.com/rowguard-labs/rowguard/pkg/api"
)

// Server is the HTTP front end over a single session's store.
type Server struct {
	store    *store.Store
	resolver *identity.Resolver
	schema   *schema.FormSchema
	logger   observability.OperationLogger
	handle   *warehouse.Lazy
	version  string
	mux      *http.ServeMux
}

// New wires the handler set. The logger backs the audit summary endpoint
// and may be shared with the store.
func New(st *store.Store, resolver *identity.Resolver, formSchema *schema.FormSchema, logger observability.OperationLogger, handle *warehouse.Lazy, version string) *Server {
	s := &Server{
		store:    st,
		resolver: resolver,
		schema:   formSchema,
		logger:   logger,
		handle:   handle,
		version:  version,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc(api.EndpointRecords, s.handleRecords)
	s.mux.HandleFunc(api.EndpointRecords+"/", s.handleRecordByID)
	s.mux.HandleFunc(api.EndpointSession, s.handleSession)
	s.mux.HandleFunc(api.EndpointSchema, s.handleSchema)
	s.mux.HandleFunc(api.EndpointAudit, s.handleAudit)
	s.mux.HandleFunc(api.EndpointHealth, s.handleHealth)
	s.mux.HandleFunc(api.EndpointReady, s.handleReady)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleRecords serves GET (list) and POST (create) on the collection.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listRecords(w, r)
	case http.MethodPost:
		s.createRecord(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "", "use GET or POST")
	}
}

// handleRecordByID serves PUT (update) and DELETE on a single record.
func (s *Server) handleRecordByID(w http.ResponseWriter, r *http.Request) {
	idPart := strings.TrimPrefix(r.URL.Path, api.EndpointRecords+"/")
	recordID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid record id %q", idPart), "", "record ids are positive integers")
		return
	}

	switch r.Method {
	case http.MethodPut:
		s.updateRecord(w, r, recordID)
	case http.MethodDelete:
		s.deleteRecord(w, r, recordID)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "", "use PUT or DELETE")
	}
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		s.store.Refresh()
	}

	filters := make(map[string]string)
	for _, col := range s.schema.Columns {
		if !col.Filterable {
			continue
		}
		if v := r.URL.Query().Get(col.Name); v != "" {
			filters[col.Name] = v
		}
	}

	id := s.resolver.Identity(r.Context())
	set, out := s.store.List(r.Context(), id, filters)
	if out.Kind != store.OutcomeSuccess {
		s.writeOutcomeError(w, out)
		return
	}

	records := make([]map[string]interface{}, 0, set.Len())
	for i := range set.Rows {
		record := make(map[string]interface{}, len(set.Columns))
		for j, col := range set.Columns {
			record[col] = set.Rows[i][j]
		}
		records = append(records, record)
	}

	s.writeJSON(w, http.StatusOK, api.RecordsResponse{
		Columns:    set.Columns,
		Records:    records,
		Count:      set.Len(),
		Generation: s.store.View().Generation(),
	})
}

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	var req api.CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err.Error(), "send a JSON object with a fields map")
		return
	}

	id := s.resolver.Identity(r.Context())
	out := s.store.Create(r.Context(), req.Fields, id)
	s.writeOutcome(w, out, http.StatusCreated)
}

func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request, recordID int64) {
	var req api.UpdateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err.Error(), "send a JSON object with a fields map")
		return
	}

	id := s.resolver.Identity(r.Context())
	out := s.store.Update(r.Context(), recordID, req.Fields, id)
	s.writeOutcome(w, out, http.StatusOK)
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request, recordID int64) {
	id := s.resolver.Identity(r.Context())
	out := s.store.Delete(r.Context(), recordID, id)
	s.writeOutcome(w, out, http.StatusOK)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "", "use GET")
		return
	}

	session := s.resolver.Resolve(r.Context())
	s.writeJSON(w, http.StatusOK, api.SessionInfo{
		User:        session.Identity.String(),
		Fingerprint: session.Fingerprint,
		ResolvedAt:  session.ResolvedAt,
		Fallback:    session.Fallback,
	})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "", "use GET")
		return
	}

	resp := api.SchemaResponse{Columns: make([]api.SchemaColumn, 0, len(s.schema.Columns))}
	for _, col := range s.schema.Columns {
		resp.Columns = append(resp.Columns, api.SchemaColumn{
			Name:       col.Name,
			Label:      col.Label,
			Required:   col.Required,
			Filterable: col.Filterable,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "", "use GET")
		return
	}
	s.writeJSON(w, http.StatusOK, s.logger.GetAuditSummary())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

// handleReady reports whether the warehouse answers. A failed probe resets
// the lazy handle so the next probe reconnects.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	wh, err := s.handle.Get(ctx)
	if err == nil {
		err = wh.Ping(ctx)
	}
	if err != nil {
		s.handle.Reset()
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": err.Error(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writeOutcome maps a mutation outcome to a response. No-ops are reported
// as plain success with zero rows; the response never distinguishes a
// missing row from a row owned by someone else.
func (s *Server) writeOutcome(w http.ResponseWriter, out store.Outcome, successStatus int) {
	switch out.Kind {
	case store.OutcomeSuccess:
		s.writeJSON(w, successStatus, api.OutcomeResponse{
			Outcome:      out.Kind.String(),
			RowsAffected: out.RowsAffected,
		})
	case store.OutcomeNoop:
		s.writeJSON(w, http.StatusOK, api.OutcomeResponse{
			Outcome: out.Kind.String(),
		})
	default:
		s.writeOutcomeError(w, out)
	}
}

func (s *Server) writeOutcomeError(w http.ResponseWriter, out store.Outcome) {
	switch out.Kind {
	case store.OutcomeValidationFailure:
		s.writeError(w, http.StatusUnprocessableEntity, out.Reason, "", "correct the fields and retry")
	case store.OutcomeBackendFailure:
		status := http.StatusBadGateway
		if out.Retryable {
			status = http.StatusServiceUnavailable
		}
		s.writeError(w, status, out.Message, "", "retry once the warehouse is reachable")
	default:
		s.writeError(w, http.StatusInternalServerError, "unexpected outcome", out.Kind.String(), "")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set(api.HeaderContentType, api.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, reason, suggestion string) {
	s.writeJSON(w, status, api.ErrorResponse{
		Error:      message,
		Reason:     reason,
		Suggestion: suggestion,
		Code:       status,
	})
}

