package store

// OutcomeKind tags the result of a data operation.
type OutcomeKind int

const (
	// OutcomeSuccess means the operation changed or returned data.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeNoop means an update or delete matched zero rows: the record
	// does not exist or is not owned by the acting identity. The two are
	// deliberately indistinguishable.
	OutcomeNoop

	// OutcomeValidationFailure means caller-supplied data failed the
	// required-field contract; no statement was issued.
	OutcomeValidationFailure

	// OutcomeBackendFailure means the warehouse rejected the connection
	// or the statement.
	OutcomeBackendFailure
)

// String returns the outcome kind as a log-friendly word.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoop:
		return "noop"
	case OutcomeValidationFailure:
		return "validation_failure"
	case OutcomeBackendFailure:
		return "backend_failure"
	}
	return "unknown"
}

// Outcome is the tagged result of a data operation. Callers branch on Kind;
// failure paths cannot be silently ignored the way a dropped error can.
type Outcome struct {
	// Kind tags the result.
	Kind OutcomeKind

	// Reason is the human-readable validation reason, set for
	// OutcomeValidationFailure.
	Reason string

	// Message is the backend's message, set for OutcomeBackendFailure.
	Message string

	// RowsAffected is the number of rows the operation touched.
	RowsAffected int64

	// Retryable marks backend failures worth retrying (connection-level).
	Retryable bool
}

// Success returns a success outcome.
func Success(rows int64) Outcome {
	return Outcome{Kind: OutcomeSuccess, RowsAffected: rows}
}

// Noop returns a benign zero-rows outcome.
func Noop() Outcome {
	return Outcome{Kind: OutcomeNoop}
}

// ValidationFailure returns a validation failure outcome.
func ValidationFailure(reason string) Outcome {
	return Outcome{Kind: OutcomeValidationFailure, Reason: reason}
}

// BackendFailure returns a backend failure outcome.
func BackendFailure(message string, retryable bool) Outcome {
	return Outcome{Kind: OutcomeBackendFailure, Message: message, Retryable: retryable}
}

// OK reports whether the operation succeeded or was a benign no-op.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess || o.Kind == OutcomeNoop
}
