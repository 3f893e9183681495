package service_test

import (
	"context"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dataagentjp.io/querycore/internal/domain"
	"dataagentjp.io/querycore/internal/events"
	"dataagentjp.io/querycore/internal/executor"
	"dataagentjp.io/querycore/internal/nlq"
	"dataagentjp.io/querycore/internal/resolver"
	"dataagentjp.io/querycore/internal/service"
	"dataagentjp.io/querycore/internal/sqlgen"
)

type fakeParser struct {
	parseFn func(ctx context.Context, nlqText string) nlq.ParsedIntent
}

func (f *fakeParser) Parse(ctx context.Context, nlqText string) nlq.ParsedIntent {
	if f.parseFn != nil {
		return f.parseFn(ctx, nlqText)
	}
	return nlq.ParsedIntent{
		Intent:     "QUERY_INVENTORY",
		Confidence: 0.9,
		Stage:      nlq.StageRule,
	}
}

type fakeValidator struct {
	checkFn func(parsed nlq.ParsedIntent) *domain.Diagnostic
}

func (f *fakeValidator) Check(parsed nlq.ParsedIntent) *domain.Diagnostic {
	if f.checkFn != nil {
		return f.checkFn(parsed)
	}
	return nil
}

type fakeResolver struct {
	resolveFn func(ctx context.Context, req resolver.Request) (*resolver.Resolution, *domain.Diagnostic)
	calls     int
}

func (f *fakeResolver) Resolve(ctx context.Context, req resolver.Request) (*resolver.Resolution, *domain.Diagnostic) {
	f.calls++
	if f.resolveFn != nil {
		return f.resolveFn(ctx, req)
	}
	return &resolver.Resolution{
		Intent: "QUERY_INVENTORY",
		Table:  "mart_inventory_wide",
		SQL:    "SELECT item_no, quantity FROM mart_inventory_wide LIMIT 100",
	}, nil
}

type fakeExecutor struct {
	executeFn func(ctx context.Context, req executor.Request) (*domain.QueryResult, *domain.Diagnostic)
	requests  []executor.Request
}

func (f *fakeExecutor) Execute(ctx context.Context, req executor.Request) (*domain.QueryResult, *domain.Diagnostic) {
	f.requests = append(f.requests, req)
	if f.executeFn != nil {
		return f.executeFn(ctx, req)
	}
	return &domain.QueryResult{
		Data:            []map[string]any{{"item_no": "10-0012", "quantity": int64(42)}},
		RowCount:        1,
		ExecutionTimeMS: 5,
		Columns:         []string{"item_no", "quantity"},
	}, nil
}

func (f *fakeExecutor) Close() error { return nil }

func stagesOf(collected []events.Event) []events.Stage {
	stages := make([]events.Stage, 0, len(collected))
	for _, e := range collected {
		stages = append(stages, e.Stage)
	}
	return stages
}

var _ = Describe("QueryService", func() {
	var (
		parser    *fakeParser
		validator *fakeValidator
		resolv    *fakeResolver
		exec      *fakeExecutor
		sink      *events.Collector
		svc       service.QueryService
		req       service.QueryRequest
	)

	newService := func(debug bool) service.QueryService {
		return service.NewQueryService(service.QueryServiceParams{
			Parser:    parser,
			Validator: validator,
			Resolver:  resolv,
			Executor:  exec,
			Debug:     debug,
		})
	}

	BeforeEach(func() {
		parser = &fakeParser{}
		validator = &fakeValidator{}
		resolv = &fakeResolver{}
		exec = &fakeExecutor{}
		sink = events.NewCollector()
		svc = newService(false)
		req = service.QueryRequest{
			TaskID: "task-1",
			NLQ:    "查詢料號 10-0012 的庫存",
			Locale: "zh-TW",
		}
	})

	It("runs the full pipeline and emits all eight stages", func() {
		resp := svc.Execute(context.Background(), req, sink)

		Expect(resp.Status).To(Equal(service.StatusSuccess))
		Expect(resp.TaskID).To(Equal("task-1"))
		Expect(resp.SQL).To(ContainSubstring("FROM mart_inventory_wide"))
		Expect(resp.SchemaUsed).To(Equal("mart_inventory_wide"))
		Expect(resp.Data).To(HaveLen(1))
		Expect(resp.Error).To(BeNil())
		Expect(resp.Pagination.TotalRows).To(Equal(1))

		Expect(stagesOf(sink.Events())).To(Equal([]events.Stage{
			events.StageRequestReceived,
			events.StageSchemaConfirmed,
			events.StageSQLGenerated,
			events.StageQueryExecuting,
			events.StageQueryCompleted,
			events.StageResultValidating,
			events.StageResultReady,
			events.StageFinal,
		}))

		last, ok := sink.Last()
		Expect(ok).To(BeTrue())
		Expect(last.Data).To(Equal(resp))
	})

	It("stops at validation failures with suggestions and no SQL", func() {
		validator.checkFn = func(nlq.ParsedIntent) *domain.Diagnostic {
			return &domain.Diagnostic{
				Code:        domain.ErrorCodeWarehouseNotFound,
				Stage:       string(domain.StateValidate),
				Message:     "warehouse W0X not found",
				Suggestions: []string{"W01", "W02"},
			}
		}

		resp := svc.Execute(context.Background(), req, sink)

		Expect(resp.Status).To(Equal(service.StatusError))
		Expect(resp.SQL).To(BeEmpty())
		Expect(resp.Error.Code).To(Equal(domain.ErrorCodeWarehouseNotFound))
		Expect(resp.Error.Suggestions).To(Equal([]string{"W01", "W02"}))
		Expect(resolv.calls).To(BeZero())
		Expect(exec.requests).To(BeEmpty())

		Expect(stagesOf(sink.Events())).To(Equal([]events.Stage{
			events.StageRequestReceived,
			events.StageError,
		}))
	})

	It("localizes error messages per the request locale", func() {
		validator.checkFn = func(nlq.ParsedIntent) *domain.Diagnostic {
			return domain.NewDiagnostic(domain.ErrorCodeIntentUnclear, "confidence too low")
		}

		req.Locale = "en"
		resp := svc.Execute(context.Background(), req, sink)
		english := resp.Error.Message

		sink = events.NewCollector()
		req.Locale = "ja"
		respJA := svc.Execute(context.Background(), req, sink)

		Expect(english).NotTo(BeEmpty())
		Expect(respJA.Error.Message).NotTo(BeEmpty())
		Expect(respJA.Error.Message).NotTo(Equal(english))
	})

	It("reports resolver failures after schema confirmation", func() {
		resolv.resolveFn = func(context.Context, resolver.Request) (*resolver.Resolution, *domain.Diagnostic) {
			return nil, &domain.Diagnostic{
				Code:  domain.ErrorCodeSchemaNotFound,
				Stage: string(domain.StateResolveBindings),
			}
		}

		resp := svc.Execute(context.Background(), req, sink)

		Expect(resp.Error.Code).To(Equal(domain.ErrorCodeSchemaNotFound))
		Expect(resp.Error.Stage).To(Equal(string(domain.StateResolveBindings)))
		Expect(stagesOf(sink.Events())).To(Equal([]events.Stage{
			events.StageRequestReceived,
			events.StageSchemaConfirmed,
			events.StageError,
		}))
	})

	It("reports executor failures after query_executing", func() {
		exec.executeFn = func(context.Context, executor.Request) (*domain.QueryResult, *domain.Diagnostic) {
			return nil, &domain.Diagnostic{
				Code:  domain.ErrorCodeJoinUnguarded,
				Stage: string(domain.StateEmitSQL),
			}
		}

		resp := svc.Execute(context.Background(), req, sink)

		Expect(resp.Error.Code).To(Equal(domain.ErrorCodeJoinUnguarded))
		Expect(stagesOf(sink.Events())).To(Equal([]events.Stage{
			events.StageRequestReceived,
			events.StageSchemaConfirmed,
			events.StageSQLGenerated,
			events.StageQueryExecuting,
			events.StageError,
		}))
	})

	It("emits nothing after the client cancels mid-execution", func() {
		ctx, cancel := context.WithCancel(context.Background())
		exec.executeFn = func(context.Context, executor.Request) (*domain.QueryResult, *domain.Diagnostic) {
			cancel()
			return nil, &domain.Diagnostic{Code: domain.ErrorCodeQueryCancelled}
		}

		resp := svc.Execute(ctx, req, sink)

		Expect(resp.Status).To(Equal(service.StatusError))
		Expect(resp.Error.Code).To(Equal(domain.ErrorCodeQueryCancelled))
		Expect(stagesOf(sink.Events())).To(Equal([]events.Stage{
			events.StageRequestReceived,
			events.StageSchemaConfirmed,
			events.StageSQLGenerated,
			events.StageQueryExecuting,
		}))
	})

	It("returns immediately when the context is already cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		resp := svc.Execute(ctx, req, sink)

		Expect(resp.Error.Code).To(Equal(domain.ErrorCodeQueryCancelled))
		Expect(sink.Events()).To(BeEmpty())
		Expect(exec.requests).To(BeEmpty())
	})

	It("passes timeout, partition and cache options to the executor", func() {
		partition := &domain.TimeRange{Start: "2026-01-01", End: "2026-02-01"}
		resolv.resolveFn = func(context.Context, resolver.Request) (*resolver.Resolution, *domain.Diagnostic) {
			return &resolver.Resolution{
				Intent:    "QUERY_WORK_ORDER_COUNT",
				Table:     "mart_work_order_wide",
				SQL:       "SELECT COUNT(*) AS n FROM mart_work_order_wide LIMIT 100",
				Partition: partition,
			}, nil
		}
		req.Timeout = 10 * time.Second
		req.NoCache = true

		svc.Execute(context.Background(), req, sink)

		Expect(exec.requests).To(HaveLen(1))
		Expect(exec.requests[0].Timeout).To(Equal(10 * time.Second))
		Expect(exec.requests[0].Partition).To(Equal(partition))
		Expect(exec.requests[0].SkipCache).To(BeTrue())
	})

	It("issues the opt-in count query to fill total_rows", func() {
		resolv.resolveFn = func(context.Context, resolver.Request) (*resolver.Resolution, *domain.Diagnostic) {
			return &resolver.Resolution{
				Intent:   "QUERY_INVENTORY",
				Table:    "mart_inventory_wide",
				SQL:      "SELECT item_no FROM mart_inventory_wide LIMIT 100 OFFSET 200",
				CountSQL: "SELECT COUNT(*) AS total FROM mart_inventory_wide",
				AST:      &sqlgen.QueryAST{Limit: 100, Offset: 200},
			}, nil
		}
		exec.executeFn = func(_ context.Context, r executor.Request) (*domain.QueryResult, *domain.Diagnostic) {
			if strings.HasPrefix(r.SQL, "SELECT COUNT(*)") {
				return &domain.QueryResult{
					Data:     []map[string]any{{"total": int64(1234)}},
					RowCount: 1,
					Columns:  []string{"total"},
				}, nil
			}
			return &domain.QueryResult{
				Data:     []map[string]any{{"item_no": "10-0012"}},
				RowCount: 1,
				Columns:  []string{"item_no"},
			}, nil
		}
		req.CountTotal = true

		resp := svc.Execute(context.Background(), req, sink)

		Expect(exec.requests).To(HaveLen(2))
		Expect(resp.Pagination.TotalRows).To(Equal(1234))
		Expect(resp.Pagination.Page).To(Equal(3))
		Expect(resp.Pagination.PageSize).To(Equal(100))
		Expect(resp.Pagination.TotalPages).To(Equal(13))
	})

	It("falls back to the row count when the count query fails", func() {
		resolv.resolveFn = func(context.Context, resolver.Request) (*resolver.Resolution, *domain.Diagnostic) {
			return &resolver.Resolution{
				Intent:   "QUERY_INVENTORY",
				Table:    "mart_inventory_wide",
				SQL:      "SELECT item_no FROM mart_inventory_wide LIMIT 100",
				CountSQL: "SELECT COUNT(*) AS total FROM mart_inventory_wide",
				AST:      &sqlgen.QueryAST{Limit: 100},
			}, nil
		}
		exec.executeFn = func(_ context.Context, r executor.Request) (*domain.QueryResult, *domain.Diagnostic) {
			if strings.HasPrefix(r.SQL, "SELECT COUNT(*)") {
				return nil, domain.NewDiagnostic(domain.ErrorCodeQueryTimeout, "count timed out")
			}
			return &domain.QueryResult{
				Data:     []map[string]any{{"item_no": "10-0012"}},
				RowCount: 1,
				Columns:  []string{"item_no"},
			}, nil
		}
		req.CountTotal = true

		resp := svc.Execute(context.Background(), req, sink)

		Expect(resp.Status).To(Equal(service.StatusSuccess))
		Expect(resp.Pagination.TotalRows).To(Equal(1))
	})

	It("propagates parser token usage including cache hits", func() {
		parser.parseFn = func(context.Context, string) nlq.ParsedIntent {
			return nlq.ParsedIntent{
				Intent:     "QUERY_INVENTORY",
				Confidence: 0.95,
				Stage:      nlq.StageCache,
				TokenUsage: domain.TokenUsage{CacheHit: true},
			}
		}

		resp := svc.Execute(context.Background(), req, sink)
		Expect(resp.TokenUsage.CacheHit).To(BeTrue())
	})

	It("includes the upstream exception only in debug mode", func() {
		cause := context.DeadlineExceeded
		exec.executeFn = func(context.Context, executor.Request) (*domain.QueryResult, *domain.Diagnostic) {
			return nil, &domain.Diagnostic{
				Code: domain.ErrorCodeQueryTimeout,
				Err:  cause,
			}
		}

		resp := svc.Execute(context.Background(), req, sink)
		Expect(resp.Error.Exception).To(BeEmpty())

		sink = events.NewCollector()
		svc = newService(true)
		resp = svc.Execute(context.Background(), req, sink)
		Expect(resp.Error.Exception).To(ContainSubstring("deadline"))
	})
})
