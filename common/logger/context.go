package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, so request context (task_id, intent, stage)
// is included in every log statement without threading it by hand.
type LogFields struct {
	TaskID    *string // caller-supplied or generated task identifier
	SystemID  *string // catalog namespace
	Intent    *string // recognized intent name
	Stage     *string // resolver stage currently executing
	Dialect   *string // active SQL dialect
	Component string  // component name (OTel semantic convention style, e.g., "querycore.nlq.parser")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

// mergeFields merges two LogFields, preferring non-nil/non-empty values from 'new'.
func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.TaskID != nil {
		result.TaskID = new.TaskID
	}
	if new.SystemID != nil {
		result.SystemID = new.SystemID
	}
	if new.Intent != nil {
		result.Intent = new.Intent
	}
	if new.Stage != nil {
		result.Stage = new.Stage
	}
	if new.Dialect != nil {
		result.Dialect = new.Dialect
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{TaskID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like NLQs or generated SQL.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
