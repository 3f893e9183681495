package domain

// State names a resolver phase. The resolver walks them in declared
// order and records every visited state, including ERROR, in its
// state history.
type State string

const (
	StateInit            State = "INIT"
	StateParseNLQ        State = "PARSE_NLQ"
	StateMatchConcepts   State = "MATCH_CONCEPTS"
	StateResolveBindings State = "RESOLVE_BINDINGS"
	StateValidate        State = "VALIDATE"
	StateBuildAST        State = "BUILD_AST"
	StateEmitSQL         State = "EMIT_SQL"
	StateCompleted       State = "COMPLETED"
	StateError           State = "ERROR"
)

// FailureCode is the default error code for a failure in this state,
// used when the phase does not supply a more specific one.
func (s State) FailureCode() ErrorCode {
	switch s {
	case StateParseNLQ:
		return ErrorCodeIntentUnclear
	case StateMatchConcepts:
		return ErrorCodeSchemaNotFound
	case StateResolveBindings:
		return ErrorCodeBinderError
	case StateValidate:
		return ErrorCodeMissingRequiredFilter
	case StateBuildAST, StateEmitSQL:
		return ErrorCodeQueryError
	default:
		return ErrorCodeInternalError
	}
}
