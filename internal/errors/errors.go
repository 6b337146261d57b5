// Package errors provides explicit, human-readable error types for rowguard.
// All errors must include a Reason and Suggestion for actionable feedback.
package errors

import (
	"fmt"
)

// RowguardError is the base error type for all rowguard errors.
// Every error must provide a human-readable reason and suggestion.
type RowguardError struct {
	Code       ErrorCode
	Message    string
	Reason     string
	Suggestion string
	Cause      error
}

// ErrorCode represents the category of error for exit code mapping.
type ErrorCode int

const (
	CodeValidation ErrorCode = 1
	CodeIdentity   ErrorCode = 2
	CodeBackend    ErrorCode = 3
	CodeInternal   ErrorCode = 4
)

func (e *RowguardError) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s\nReason: %s", msg, e.Reason)
	}
	if e.Suggestion != "" {
		msg = fmt.Sprintf("%s\nSuggestion: %s", msg, e.Suggestion)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s\nCaused by: %v", msg, e.Cause)
	}
	return msg
}

func (e *RowguardError) Unwrap() error {
	return e.Cause
}

// ErrConnectionFailed is returned when a warehouse connection could not be
// established. The data layer resets its cached handle so the next call
// attempts a fresh connection; the error is retryable.
type ErrConnectionFailed struct {
	RowguardError
	Backend string
}

// NewConnectionFailed creates a new ErrConnectionFailed.
func NewConnectionFailed(backend string, cause error) *ErrConnectionFailed {
	return &ErrConnectionFailed{
		RowguardError: RowguardError{
			Code:       CodeBackend,
			Message:    fmt.Sprintf("could not connect to %s warehouse", backend),
			Reason:     "the backend was unreachable or rejected the connection",
			Suggestion: "verify connection settings with 'rowguard doctor' and retry",
			Cause:      cause,
		},
		Backend: backend,
	}
}

// ErrStatementFailed is returned when a well-formed statement was rejected or
// failed during execution. Not retried automatically.
type ErrStatementFailed struct {
	RowguardError
	Operation string
}

// NewStatementFailed creates a new ErrStatementFailed.
func NewStatementFailed(operation string, cause error) *ErrStatementFailed {
	return &ErrStatementFailed{
		RowguardError: RowguardError{
			Code:       CodeBackend,
			Message:    fmt.Sprintf("%s statement failed", operation),
			Reason:     "the warehouse rejected the statement during execution",
			Suggestion: "check the backend message; the operation was not retried",
			Cause:      cause,
		},
		Operation: operation,
	}
}

// ErrValidationFailed is returned when caller-supplied data fails the layer's
// required-field contract. No statement is issued.
type ErrValidationFailed struct {
	RowguardError
	Field string
}

// NewValidationFailed creates a new ErrValidationFailed.
func NewValidationFailed(field, reason string) *ErrValidationFailed {
	return &ErrValidationFailed{
		RowguardError: RowguardError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("invalid value for field '%s'", field),
			Reason:     reason,
			Suggestion: "supply the missing value and retry; no statement was issued",
		},
		Field: field,
	}
}

// ErrManagedColumn is returned when a write names a column that only the data
// layer may set (id, owner_user, created_at, updated_at).
type ErrManagedColumn struct {
	RowguardError
	Column string
}

// NewManagedColumn creates a new ErrManagedColumn.
func NewManagedColumn(column string) *ErrManagedColumn {
	return &ErrManagedColumn{
		RowguardError: RowguardError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("column '%s' is managed by the data layer", column),
			Reason:     "ownership and timestamp columns are stamped automatically and are never caller-writable",
			Suggestion: "remove the column from the field set",
		},
		Column: column,
	}
}

// ErrUnknownColumn is returned when a write or filter names a column that the
// form schema does not declare.
type ErrUnknownColumn struct {
	RowguardError
	Column string
}

// NewUnknownColumn creates a new ErrUnknownColumn.
func NewUnknownColumn(column string) *ErrUnknownColumn {
	return &ErrUnknownColumn{
		RowguardError: RowguardError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("unknown column: %s", column),
			Reason:     "the form schema does not declare this column",
			Suggestion: "list declared columns with 'rowguard schema show'",
		},
		Column: column,
	}
}

// ErrIdentityUnavailable is returned internally when the warehouse could not
// report a current principal. It never reaches a user: the resolver recovers
// by falling back to the sentinel identity.
type ErrIdentityUnavailable struct {
	RowguardError
}

// NewIdentityUnavailable creates a new ErrIdentityUnavailable.
func NewIdentityUnavailable(cause error) *ErrIdentityUnavailable {
	return &ErrIdentityUnavailable{
		RowguardError: RowguardError{
			Code:       CodeIdentity,
			Message:    "could not resolve current warehouse principal",
			Reason:     "the backend was unreachable or returned no principal",
			Suggestion: "the session continues under the sentinel identity",
			Cause:      cause,
		},
	}
}

// ErrGuardRejected is returned when the statement guard refuses a built
// statement because it does not carry the mandatory owner predicate.
// This indicates a bug in the statement builder, never user input.
type ErrGuardRejected struct {
	RowguardError
	Statement string
}

// NewGuardRejected creates a new ErrGuardRejected.
func NewGuardRejected(statement, reason string) *ErrGuardRejected {
	return &ErrGuardRejected{
		RowguardError: RowguardError{
			Code:       CodeInternal,
			Message:    "statement rejected by ownership guard",
			Reason:     reason,
			Suggestion: "this is an internal defect; the statement was not executed",
		},
		Statement: statement,
	}
}

// ErrInvalidSchema is returned when a form schema definition is invalid.
type ErrInvalidSchema struct {
	RowguardError
	Field string
}

// NewInvalidSchema creates a new ErrInvalidSchema.
func NewInvalidSchema(field, reason string) *ErrInvalidSchema {
	return &ErrInvalidSchema{
		RowguardError: RowguardError{
			Code:       CodeValidation,
			Message:    "invalid form schema",
			Reason:     fmt.Sprintf("field '%s': %s", field, reason),
			Suggestion: "fix the schema file and reload",
		},
		Field: field,
	}
}

// ErrMigrationFailed is returned when an audit store migration fails.
// Startup aborts rather than run with a partial audit schema.
type ErrMigrationFailed struct {
	RowguardError
	Migration string
}

// NewMigrationFailed creates a new ErrMigrationFailed.
func NewMigrationFailed(migration string, cause error) *ErrMigrationFailed {
	return &ErrMigrationFailed{
		RowguardError: RowguardError{
			Code:       CodeInternal,
			Message:    fmt.Sprintf("audit migration '%s' failed", migration),
			Reason:     "the audit database rejected the migration statement",
			Suggestion: "check the audit database permissions and rerun",
			Cause:      cause,
		},
		Migration: migration,
	}
}
