// Package api defines the public API endpoints and payloads for rowguardd.
package api

import (
	"time"
)

// API version
const Version = "0.1.0"

// API endpoints
const (
	EndpointRecords = "/api/v1/records"
	EndpointSession = "/api/v1/session"
	EndpointSchema  = "/api/v1/schema"
	EndpointAudit   = "/api/v1/audit/summary"
	EndpointHealth  = "/health"
	EndpointReady   = "/ready"
)

// HTTP headers
const (
	HeaderContentType = "Content-Type"
	HeaderRequestID   = "X-Request-ID"
)

// Content types
const (
	ContentTypeJSON = "application/json"
)

// SessionInfo is the API response for the current session identity.
type SessionInfo struct {
	User        string    `json:"user"`
	Fingerprint string    `json:"fingerprint"`
	ResolvedAt  time.Time `json:"resolved_at"`
	Fallback    bool      `json:"fallback"`
}

// CreateRecordRequest is the API request for creating a record.
// Fields maps domain column names to values; ownership and timestamps are
// stamped server-side and must not appear here.
type CreateRecordRequest struct {
	Fields map[string]string `json:"fields"`
}

// UpdateRecordRequest is the API request for updating a record.
type UpdateRecordRequest struct {
	Fields map[string]string `json:"fields"`
}

// RecordsResponse is the API response for listing records.
type RecordsResponse struct {
	Columns    []string                 `json:"columns"`
	Records    []map[string]interface{} `json:"records"`
	Count      int                      `json:"count"`
	Generation uint64                   `json:"generation"`
}

// OutcomeResponse is the API response for a mutation.
type OutcomeResponse struct {
	Outcome      string `json:"outcome"`
	RowsAffected int64  `json:"rows_affected"`
	Reason       string `json:"reason,omitempty"`
	Message      string `json:"message,omitempty"`
	Retryable    bool   `json:"retryable,omitempty"`
}

// SchemaResponse is the API response for the form schema.
type SchemaResponse struct {
	Columns []SchemaColumn `json:"columns"`
}

// SchemaColumn describes one domain column of the managed table.
type SchemaColumn struct {
	Name       string `json:"name"`
	Label      string `json:"label,omitempty"`
	Required   bool   `json:"required,omitempty"`
	Filterable bool   `json:"filterable,omitempty"`
}

// ErrorResponse is the API response for errors.
type ErrorResponse struct {
	Error      string `json:"error"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Code       int    `json:"code"`
}
