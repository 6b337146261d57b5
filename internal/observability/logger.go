// Package observability provides structured logging for rowguard.
//
// Every data operation emits: operation id, acting user, table, operation
// kind, rows affected, execution time, outcome, and error (if any).
package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// OperationLogEntry contains all required fields for operation logging.
type OperationLogEntry struct {
	// OperationID is the unique identifier for this operation.
	OperationID string

	// User is the acting identity the operation ran as.
	User string

	// SessionFingerprint is the cosmetic session hash, for correlation.
	SessionFingerprint string

	// Table is the fully-qualified table the operation addressed.
	Table string

	// Operation is the kind: "create", "read", "update", "delete",
	// "resolve_identity".
	Operation string

	// RowsAffected is the number of rows written or returned.
	RowsAffected int64

	// ExecutionTime is how long the operation took.
	// Must be non-negative.
	ExecutionTime time.Duration

	// Outcome is the result status: "success", "noop",
	// "validation_failure", "backend_failure".
	Outcome string

	// Error contains the error message if the operation failed.
	// Empty string for successful operations.
	Error string
}

// Validate checks that all required fields are present.
func (e *OperationLogEntry) Validate() error {
	if e.OperationID == "" {
		return fmt.Errorf("observability: operation_id is required")
	}
	if e.User == "" {
		return fmt.Errorf("observability: user is required")
	}
	if e.Operation == "" {
		return fmt.Errorf("observability: operation is required")
	}
	if e.ExecutionTime < 0 {
		return fmt.Errorf("observability: execution_time cannot be negative")
	}
	return nil
}

// OperationLogger is the interface for operation logging.
type OperationLogger interface {
	// LogOperation logs a data operation event.
	// Returns an error if logging fails or the entry is invalid.
	LogOperation(ctx context.Context, entry OperationLogEntry) error

	// GetAuditSummary returns aggregated audit statistics.
	// Aggregates only - no record data is exposed.
	GetAuditSummary() *AuditSummary
}

// AuditSummary represents aggregated audit statistics.
type AuditSummary struct {
	SuccessCount  int                  `json:"success_count"`
	FailureCount  int                  `json:"failure_count"`
	TopFailures   []FailureReasonStat  `json:"top_failures"`
	TopOperations []OperationKindStat  `json:"top_operations"`
}

// FailureReasonStat represents failure reason statistics.
type FailureReasonStat struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// OperationKindStat represents per-operation-kind statistics.
type OperationKindStat struct {
	Operation string `json:"operation"`
	Count     int    `json:"count"`
}

// jsonLogOutput is the structured format for JSON logs.
type jsonLogOutput struct {
	Timestamp          string `json:"timestamp"`
	Level              string `json:"level"`
	OperationID        string `json:"operation_id"`
	User               string `json:"user"`
	SessionFingerprint string `json:"session_fingerprint,omitempty"`
	Table              string `json:"table,omitempty"`
	Operation          string `json:"operation"`
	RowsAffected       int64  `json:"rows_affected"`
	ExecutionTimeMs    int64  `json:"execution_time_ms"`
	Outcome            string `json:"outcome,omitempty"`
	Error              string `json:"error,omitempty"`
}

// JSONLogger implements OperationLogger with JSON output.
type JSONLogger struct {
	writer  io.Writer
	entries []OperationLogEntry // Track entries for audit summary
	mu      sync.RWMutex
}

// NewJSONLogger creates a new JSON logger writing to the given writer.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{
		writer:  w,
		entries: make([]OperationLogEntry, 0),
	}
}

// LogOperation logs a data operation event as JSON.
func (l *JSONLogger) LogOperation(ctx context.Context, entry OperationLogEntry) error {
	// Check context first
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}

	// Validate entry
	if err := entry.Validate(); err != nil {
		return err
	}

	// Determine log level
	level := "info"
	if entry.Error != "" {
		level = "error"
	}

	output := jsonLogOutput{
		Timestamp:          time.Now().UTC().Format(time.RFC3339),
		Level:              level,
		OperationID:        entry.OperationID,
		User:               entry.User,
		SessionFingerprint: entry.SessionFingerprint,
		Table:              entry.Table,
		Operation:          entry.Operation,
		RowsAffected:       entry.RowsAffected,
		ExecutionTimeMs:    entry.ExecutionTime.Milliseconds(),
		Outcome:            entry.Outcome,
		Error:              entry.Error,
	}

	data, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("observability: failed to marshal log: %w", err)
	}

	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("observability: failed to write log: %w", err)
	}

	// Track entry for audit summary
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	return nil
}

// GetAuditSummary returns aggregated audit statistics.
func (l *JSONLogger) GetAuditSummary() *AuditSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	summary := &AuditSummary{
		TopFailures:   []FailureReasonStat{},
		TopOperations: []OperationKindStat{},
	}

	failureReasons := make(map[string]int)
	operationCounts := make(map[string]int)

	for _, entry := range l.entries {
		if entry.Error == "" {
			summary.SuccessCount++
		} else {
			summary.FailureCount++
			failureReasons[entry.Error]++
		}
		operationCounts[entry.Operation]++
	}

	for reason, count := range failureReasons {
		summary.TopFailures = append(summary.TopFailures, FailureReasonStat{
			Reason: reason,
			Count:  count,
		})
	}
	sort.Slice(summary.TopFailures, func(i, j int) bool {
		return summary.TopFailures[i].Count > summary.TopFailures[j].Count
	})
	if len(summary.TopFailures) > 5 {
		summary.TopFailures = summary.TopFailures[:5]
	}

	for op, count := range operationCounts {
		summary.TopOperations = append(summary.TopOperations, OperationKindStat{
			Operation: op,
			Count:     count,
		})
	}
	sort.Slice(summary.TopOperations, func(i, j int) bool {
		return summary.TopOperations[i].Count > summary.TopOperations[j].Count
	})
	if len(summary.TopOperations) > 5 {
		summary.TopOperations = summary.TopOperations[:5]
	}

	return summary
}

// NoopLogger is a logger that discards all logs.
// Useful for testing or when logging is disabled.
type NoopLogger struct{}

// NewNoopLogger creates a new no-op logger.
func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

// LogOperation does nothing and always succeeds.
func (l *NoopLogger) LogOperation(ctx context.Context, entry OperationLogEntry) error {
	return nil
}

// GetAuditSummary returns an empty summary for the no-op logger.
func (l *NoopLogger) GetAuditSummary() *AuditSummary {
	return &AuditSummary{
		TopFailures:   []FailureReasonStat{},
		TopOperations: []OperationKindStat{},
	}
}

// PersistentLogger implements OperationLogger with PostgreSQL persistence.
// Audit entries survive process restarts.
type PersistentLogger struct {
	db     *sql.DB
	writer io.Writer // optional: also write to stdout for debugging
}

// NewPersistentLogger creates a logger that persists audit entries to PostgreSQL.
func NewPersistentLogger(db *sql.DB) (*PersistentLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("observability: database connection is required for persistent logging")
	}
	return &PersistentLogger{
		db: db,
	}, nil
}

// NewPersistentLoggerWithWriter creates a logger that persists to both DB and a writer.
func NewPersistentLoggerWithWriter(db *sql.DB, w io.Writer) (*PersistentLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("observability: database connection is required for persistent logging")
	}
	return &PersistentLogger{
		db:     db,
		writer: w,
	}, nil
}

// LogOperation persists an operation log entry to PostgreSQL.
func (l *PersistentLogger) LogOperation(ctx context.Context, entry OperationLogEntry) error {
	// Check context first
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}

	// Validate entry
	if err := entry.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO audit_logs (
			operation_id, user_id, session_fingerprint, table_name,
			operation, rows_affected, execution_time_ms, outcome,
			error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := l.db.ExecContext(ctx, query,
		entry.OperationID,
		entry.User,
		nullableString(entry.SessionFingerprint),
		nullableString(entry.Table),
		entry.Operation,
		entry.RowsAffected,
		entry.ExecutionTime.Milliseconds(),
		nullableString(entry.Outcome),
		nullableString(entry.Error),
	)
	if err != nil {
		return fmt.Errorf("observability: failed to persist audit log: %w", err)
	}

	// Also write to optional writer (for debugging)
	if l.writer != nil {
		level := "info"
		if entry.Error != "" {
			level = "error"
		}
		output := jsonLogOutput{
			Timestamp:          time.Now().UTC().Format(time.RFC3339),
			Level:              level,
			OperationID:        entry.OperationID,
			User:               entry.User,
			SessionFingerprint: entry.SessionFingerprint,
			Table:              entry.Table,
			Operation:          entry.Operation,
			RowsAffected:       entry.RowsAffected,
			ExecutionTimeMs:    entry.ExecutionTime.Milliseconds(),
			Outcome:            entry.Outcome,
			Error:              entry.Error,
		}
		if data, err := json.Marshal(output); err == nil {
			l.writer.Write(data)
			l.writer.Write([]byte("\n"))
		}
	}

	return nil
}

// GetAuditSummary returns aggregated audit statistics from the database.
func (l *PersistentLogger) GetAuditSummary() *AuditSummary {
	summary := &AuditSummary{
		TopFailures:   []FailureReasonStat{},
		TopOperations: []OperationKindStat{},
	}

	ctx := context.Background()

	row := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM audit_logs WHERE error_message IS NULL OR error_message = ''
	`)
	row.Scan(&summary.SuccessCount)

	row = l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM audit_logs WHERE error_message IS NOT NULL AND error_message != ''
	`)
	row.Scan(&summary.FailureCount)

	rows, err := l.db.QueryContext(ctx, `
		SELECT error_message, COUNT(*) as cnt
		FROM audit_logs
		WHERE error_message IS NOT NULL AND error_message != ''
		GROUP BY error_message
		ORDER BY cnt DESC
		LIMIT 5
	`)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var reason string
			var count int
			if rows.Scan(&reason, &count) == nil {
				summary.TopFailures = append(summary.TopFailures, FailureReasonStat{
					Reason: reason,
					Count:  count,
				})
			}
		}
	}

	rows, err = l.db.QueryContext(ctx, `
		SELECT operation, COUNT(*) as cnt
		FROM audit_logs
		GROUP BY operation
		ORDER BY cnt DESC
		LIMIT 5
	`)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var op string
			var count int
			if rows.Scan(&op, &count) == nil {
				summary.TopOperations = append(summary.TopOperations, OperationKindStat{
					Operation: op,
					Count:     count,
				})
			}
		}
	}

	return summary
}

// nullableString converts empty strings to nil for SQL NULL.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
