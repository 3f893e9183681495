package domain

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a query failure. The set is closed: every error that
// reaches a response carries exactly one of these codes.
type ErrorCode string

const (
	ErrorCodeIntentUnclear         ErrorCode = "INTENT_UNCLEAR"
	ErrorCodeSchemaNotFound        ErrorCode = "SCHEMA_NOT_FOUND"
	ErrorCodeMissingRequiredFilter ErrorCode = "MISSING_REQUIRED_FILTER"
	ErrorCodeItemNotFound          ErrorCode = "ITEM_NOT_FOUND"
	ErrorCodeWarehouseNotFound     ErrorCode = "WAREHOUSE_NOT_FOUND"
	ErrorCodeWorkstationNotFound   ErrorCode = "WORKSTATION_NOT_FOUND"
	ErrorCodeAmbiguousReference    ErrorCode = "AMBIGUOUS_REFERENCE"
	ErrorCodeColumnNotFound        ErrorCode = "COLUMN_NOT_FOUND"
	ErrorCodeBinderError           ErrorCode = "BINDER_ERROR"
	ErrorCodeOutOfMemory           ErrorCode = "OUT_OF_MEMORY"
	ErrorCodeQueryTimeout          ErrorCode = "QUERY_TIMEOUT"
	ErrorCodeConnectionError       ErrorCode = "CONNECTION_ERROR"
	ErrorCodeJoinUnguarded         ErrorCode = "JOIN_UNGUARDED"
	ErrorCodeQueryError            ErrorCode = "QUERY_ERROR"
	ErrorCodeInternalError         ErrorCode = "INTERNAL_ERROR"

	// ErrorCodeQueryCancelled marks a query aborted by client disconnect.
	// It never appears in a serialized response.
	ErrorCodeQueryCancelled ErrorCode = "QUERY_CANCELLED"
)

// ErrorClass groups codes by who can act on them.
type ErrorClass string

const (
	ErrorClassUser     ErrorClass = "user"
	ErrorClassSchema   ErrorClass = "schema"
	ErrorClassResource ErrorClass = "resource"
	ErrorClassInfra    ErrorClass = "infra"
)

// Class reports the remediation class of a code.
func (c ErrorCode) Class() ErrorClass {
	switch c {
	case ErrorCodeIntentUnclear, ErrorCodeMissingRequiredFilter,
		ErrorCodeItemNotFound, ErrorCodeWarehouseNotFound, ErrorCodeWorkstationNotFound:
		return ErrorClassUser
	case ErrorCodeSchemaNotFound, ErrorCodeColumnNotFound,
		ErrorCodeAmbiguousReference, ErrorCodeBinderError:
		return ErrorClassSchema
	case ErrorCodeQueryTimeout, ErrorCodeOutOfMemory, ErrorCodeJoinUnguarded:
		return ErrorClassResource
	default:
		return ErrorClassInfra
	}
}

// Retryable reports whether a caller-side retry with backoff is sensible.
func (c ErrorCode) Retryable() bool {
	return c == ErrorCodeConnectionError || c == ErrorCodeInternalError
}

// Diagnostic is the typed failure produced by pipeline phases. Phases return
// (value, *Diagnostic) rather than panicking; the state machine and the
// response builder branch on Code and Stage.
type Diagnostic struct {
	Code        ErrorCode `json:"code"`
	Stage       string    `json:"stage,omitempty"`
	Message     string    `json:"message"`
	Suggestions []string  `json:"suggestions,omitempty"`

	// Err holds the upstream cause, surfaced as error.exception in debug mode only.
	Err error `json:"-"`
}

// NewDiagnostic builds a Diagnostic with a formatted message.
func NewDiagnostic(code ErrorCode, format string, args ...any) *Diagnostic {
	return &Diagnostic{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (d *Diagnostic) Error() string {
	if d.Err != nil {
		return fmt.Sprintf("%s: %s: %v", d.Code, d.Message, d.Err)
	}
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

func (d *Diagnostic) Unwrap() error {
	return d.Err
}

// AsDiagnostic extracts a Diagnostic from an error chain, wrapping unknown
// errors as INTERNAL_ERROR so the closed code set holds at the boundary.
func AsDiagnostic(err error) *Diagnostic {
	if err == nil {
		return nil
	}
	var d *Diagnostic
	if errors.As(err, &d) {
		return d
	}
	return &Diagnostic{Code: ErrorCodeInternalError, Message: "internal error", Err: err}
}
