package executor

import (
	"context"
	"errors"
	"strings"

	"dataagentjp.io/querycore/internal/domain"
)

// mapBackendError folds driver error text into the closed code set.
// DuckDB reports through binder/catalog/IO error prefixes, Oracle
// through ORA- codes; anything unrecognized stays QUERY_ERROR so no
// raw driver string leaks as a code.
func mapBackendError(err error) *domain.Diagnostic {
	if errors.Is(err, context.DeadlineExceeded) {
		return diag(domain.ErrorCodeQueryTimeout, "query exceeded the execution timeout", err,
			"narrow the time range", "add more filter conditions")
	}
	if errors.Is(err, context.Canceled) {
		return diag(domain.ErrorCodeQueryCancelled, "query cancelled by the client", err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "ambiguous reference to column name"):
		return diag(domain.ErrorCodeAmbiguousReference, "a column name matches more than one table", err,
			"qualify the column with its table name")

	case strings.Contains(msg, "table with name") && strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "no files found that match"),
		strings.Contains(msg, "ora-00942"):
		return diag(domain.ErrorCodeSchemaNotFound, "the referenced table or data file does not exist", err,
			"reload the catalog if the table was added recently")

	case strings.Contains(msg, "referenced column") && strings.Contains(msg, "not found"),
		strings.Contains(msg, "not found in from clause"),
		strings.Contains(msg, "ora-00904"):
		return diag(domain.ErrorCodeColumnNotFound, "a referenced column does not exist", err)

	case strings.Contains(msg, "binder error"):
		return diag(domain.ErrorCodeBinderError, "the query failed to bind against the schema", err)

	case strings.Contains(msg, "out of memory"), strings.Contains(msg, "memory limit"):
		return diag(domain.ErrorCodeOutOfMemory, "the query exceeded the memory limit", err,
			"narrow the time range", "reduce the number of selected columns")

	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "dial tcp"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "ora-12154"),
		strings.Contains(msg, "ora-12170"),
		strings.Contains(msg, "ora-12514"),
		strings.Contains(msg, "ora-12541"):
		return diag(domain.ErrorCodeConnectionError, "could not reach the datasource", err,
			"retry after a short delay")
	}

	return diag(domain.ErrorCodeQueryError, "query execution failed", err)
}

func diag(code domain.ErrorCode, message string, err error, suggestions ...string) *domain.Diagnostic {
	return &domain.Diagnostic{
		Code:        code,
		Stage:       string(domain.StateEmitSQL),
		Message:     message,
		Suggestions: suggestions,
		Err:         err,
	}
}
