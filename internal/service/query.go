package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"dataagentjp.io/querycore/common/logger"
	"dataagentjp.io/querycore/internal/domain"
	"dataagentjp.io/querycore/internal/events"
	"dataagentjp.io/querycore/internal/executor"
	"dataagentjp.io/querycore/internal/i18n"
	"dataagentjp.io/querycore/internal/nlq"
	"dataagentjp.io/querycore/internal/resolver"
)

// QueryRequest is one natural-language query job, already unwrapped
// from the transport envelope.
type QueryRequest struct {
	TaskID     string
	NLQ        string
	Locale     string
	Timeout    time.Duration
	Limit      int
	CountTotal bool
	NoCache    bool
}

// QueryResponse is the batch response shape; the SSE final event
// carries the same payload.
type QueryResponse struct {
	Status     string             `json:"status"`
	TaskID     string             `json:"task_id"`
	SQL        string             `json:"sql,omitempty"`
	Data       []map[string]any   `json:"data"`
	SchemaUsed string             `json:"schema_used,omitempty"`
	Pagination *domain.Pagination `json:"pagination,omitempty"`
	TokenUsage domain.TokenUsage  `json:"token_usage"`
	DurationMS int64              `json:"duration_ms"`
	Error      *ResponseError     `json:"error,omitempty"`
}

// ResponseError is the wire form of a Diagnostic. Exception carries the
// raw upstream text and is populated in debug mode only.
type ResponseError struct {
	Code        domain.ErrorCode `json:"code"`
	Message     string           `json:"message"`
	Stage       string           `json:"stage,omitempty"`
	Suggestions []string         `json:"suggestions,omitempty"`
	Exception   string           `json:"exception,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Parser turns an NLQ into a parsed intent. It never fails; low
// confidence is caught by the validator.
type Parser interface {
	Parse(ctx context.Context, nlqText string) nlq.ParsedIntent
}

// Validator rejects parses that cannot become safe SQL.
type Validator interface {
	Check(parsed nlq.ParsedIntent) *domain.Diagnostic
}

// Resolver drives the state machine from parsed intent to emitted SQL.
type Resolver interface {
	Resolve(ctx context.Context, req resolver.Request) (*resolver.Resolution, *domain.Diagnostic)
}

// QueryService runs the full NLQ pipeline, emitting stage events to
// the sink as it goes. Execute always returns a response; on failure
// the response carries the error and the stream has been terminated
// with an error event, except after client cancellation where nothing
// more is emitted.
type QueryService interface {
	Execute(ctx context.Context, req QueryRequest, sink events.Sink) *QueryResponse
}

type QueryServiceParams struct {
	Parser    Parser
	Validator Validator
	Resolver  Resolver
	Executor  executor.Executor
	Debug     bool
	Logger    *slog.Logger
}

type queryService struct {
	parser    Parser
	validator Validator
	resolver  Resolver
	executor  executor.Executor
	debug     bool
	logger    *slog.Logger
}

func NewQueryService(params QueryServiceParams) QueryService {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &queryService{
		parser:    params.Parser,
		validator: params.Validator,
		resolver:  params.Resolver,
		executor:  params.Executor,
		debug:     params.Debug,
		logger:    logger,
	}
}

func (s *queryService) Execute(ctx context.Context, req QueryRequest, sink events.Sink) *QueryResponse {
	start := time.Now()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TaskID:    logger.Ptr(req.TaskID),
		Component: "querycore.service.query",
	})
	stream := events.NewStream(sink, req.Locale)

	if err := stream.Emit(ctx, events.StageRequestReceived, map[string]any{"task_id": req.TaskID}); err != nil {
		return s.cancelled(ctx, req, nlq.ParsedIntent{}, start, err)
	}

	parsed := s.parser.Parse(ctx, req.NLQ)
	ctx = logger.WithLogFields(ctx, logger.LogFields{Intent: logger.Ptr(parsed.Intent)})
	if diag := s.validator.Check(parsed); diag != nil {
		return s.fail(ctx, stream, req, parsed, diag, start)
	}

	if err := stream.Emit(ctx, events.StageSchemaConfirmed, map[string]any{
		"intent":     parsed.Intent,
		"confidence": parsed.Confidence,
	}); err != nil {
		return s.cancelled(ctx, req, parsed, start, err)
	}

	res, diag := s.resolver.Resolve(ctx, resolver.Request{
		NLQ:    req.NLQ,
		Parsed: parsed,
		Limit:  req.Limit,
	})
	if diag != nil {
		return s.fail(ctx, stream, req, parsed, diag, start)
	}

	if err := stream.Emit(ctx, events.StageSQLGenerated, map[string]any{"sql": res.SQL}); err != nil {
		return s.cancelled(ctx, req, parsed, start, err)
	}
	if err := stream.Emit(ctx, events.StageQueryExecuting, nil); err != nil {
		return s.cancelled(ctx, req, parsed, start, err)
	}

	result, diag := s.executor.Execute(ctx, executor.Request{
		SQL:       res.SQL,
		Timeout:   req.Timeout,
		Partition: res.Partition,
		SkipCache: req.NoCache,
	})
	if diag != nil {
		return s.fail(ctx, stream, req, parsed, diag, start)
	}

	if err := stream.Emit(ctx, events.StageQueryCompleted, map[string]any{
		"row_count":         result.RowCount,
		"execution_time_ms": result.ExecutionTimeMS,
	}); err != nil {
		return s.cancelled(ctx, req, parsed, start, err)
	}
	if err := stream.Emit(ctx, events.StageResultValidating, nil); err != nil {
		return s.cancelled(ctx, req, parsed, start, err)
	}

	pagination := s.paginate(ctx, req, res, result)

	if err := stream.Emit(ctx, events.StageResultReady, map[string]any{"row_count": result.RowCount}); err != nil {
		return s.cancelled(ctx, req, parsed, start, err)
	}

	resp := &QueryResponse{
		Status:     StatusSuccess,
		TaskID:     req.TaskID,
		SQL:        res.SQL,
		Data:       result.Data,
		SchemaUsed: res.Table,
		Pagination: &pagination,
		TokenUsage: parsed.TokenUsage,
		DurationMS: time.Since(start).Milliseconds(),
	}

	if err := stream.Emit(ctx, events.StageFinal, resp); err != nil {
		return s.cancelled(ctx, req, parsed, start, err)
	}

	s.logger.InfoContext(ctx, "query completed",
		"task_id", req.TaskID,
		"nlq_hash", hashNLQ(req.NLQ),
		"intent", parsed.Intent,
		"parser_stage", string(parsed.Stage),
		"rows", result.RowCount,
		"cache_hit", parsed.TokenUsage.CacheHit,
		"duration_ms", resp.DurationMS)
	return resp
}

// paginate fills the pagination block. total_rows mirrors the returned
// row count unless the caller opted into the second COUNT query.
func (s *queryService) paginate(ctx context.Context, req QueryRequest, res *resolver.Resolution, result *domain.QueryResult) domain.Pagination {
	limit, offset := 0, 0
	if res.AST != nil {
		limit, offset = res.AST.Limit, res.AST.Offset
	}

	total := result.RowCount
	if req.CountTotal && res.CountSQL != "" {
		counted, diag := s.executor.Execute(ctx, executor.Request{
			SQL:       res.CountSQL,
			Timeout:   req.Timeout,
			Partition: res.Partition,
		})
		if diag != nil {
			s.logger.WarnContext(ctx, "count query failed, falling back to row count",
				"task_id", req.TaskID, "code", diag.Code)
		} else if n, ok := firstScalar(counted); ok {
			total = n
		}
	}

	return domain.NewPagination(limit, offset, total)
}

func (s *queryService) fail(ctx context.Context, stream *events.Stream, req QueryRequest, parsed nlq.ParsedIntent, diag *domain.Diagnostic, start time.Time) *QueryResponse {
	resp := s.errorResponse(req, parsed, diag, start)
	if diag.Code != domain.ErrorCodeQueryCancelled {
		if err := stream.Fail(ctx, resp); err != nil {
			s.logger.DebugContext(ctx, "error event not delivered", "task_id", req.TaskID, "error", err)
		}
	}
	s.logger.WarnContext(ctx, "query failed",
		"task_id", req.TaskID,
		"nlq_hash", hashNLQ(req.NLQ),
		"intent", parsed.Intent,
		"code", diag.Code,
		"stage", diag.Stage,
		"duration_ms", resp.DurationMS)
	return resp
}

// cancelled handles a client that went away mid-stream: no further
// events, response kept for the access log only.
func (s *queryService) cancelled(ctx context.Context, req QueryRequest, parsed nlq.ParsedIntent, start time.Time, cause error) *QueryResponse {
	diag := &domain.Diagnostic{
		Code:    domain.ErrorCodeQueryCancelled,
		Message: "query cancelled by the client",
		Err:     cause,
	}
	resp := s.errorResponse(req, parsed, diag, start)
	s.logger.InfoContext(ctx, "query cancelled",
		"task_id", req.TaskID,
		"nlq_hash", hashNLQ(req.NLQ),
		"duration_ms", resp.DurationMS)
	return resp
}

func (s *queryService) errorResponse(req QueryRequest, parsed nlq.ParsedIntent, diag *domain.Diagnostic, start time.Time) *QueryResponse {
	locale := i18n.Normalize(req.Locale)
	respErr := &ResponseError{
		Code:        diag.Code,
		Message:     i18n.Message(locale, string(diag.Code)),
		Stage:       diag.Stage,
		Suggestions: diag.Suggestions,
	}
	if s.debug && diag.Err != nil {
		respErr.Exception = diag.Err.Error()
	}

	return &QueryResponse{
		Status:     StatusError,
		TaskID:     req.TaskID,
		Data:       []map[string]any{},
		TokenUsage: parsed.TokenUsage,
		DurationMS: time.Since(start).Milliseconds(),
		Error:      respErr,
	}
}

// firstScalar pulls the single COUNT(*) value out of a result.
func firstScalar(result *domain.QueryResult) (int, bool) {
	if result == nil || len(result.Data) == 0 || len(result.Columns) == 0 {
		return 0, false
	}
	switch v := result.Data[0][result.Columns[0]].(type) {
	case int64:
		return int(v), true
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func hashNLQ(nlqText string) string {
	sum := sha256.Sum256([]byte(nlqText))
	return hex.EncodeToString(sum[:8])
}
