// Package executor runs generated SQL against the configured backend
// with strict resource bounds: a join guard, a per-query timeout
// watchdog, DuckDB path mapping with partition pruning, and an LRU
// result cache collapsed through singleflight.
package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"dataagentjp.io/querycore/common/logger"
	"dataagentjp.io/querycore/core/config"
	"dataagentjp.io/querycore/internal/catalog"
	"dataagentjp.io/querycore/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	defaultMaxRows = 1000
)

// Request is one execution job. Partition is an optional pruning hint
// from the resolver; SkipCache bypasses the result cache for this call
// only.
type Request struct {
	SQL       string
	Timeout   time.Duration
	Partition *domain.TimeRange
	SkipCache bool
}

// Executor is the service-facing execution contract.
type Executor interface {
	Execute(ctx context.Context, req Request) (*domain.QueryResult, *domain.Diagnostic)
	Close() error
}

// backend abstracts the per-dialect connection strategy. The returned
// cleanup releases whatever the call opened and must run after the rows
// are drained.
type backend interface {
	name() string
	query(ctx context.Context, sqlText string) (*sql.Rows, func(), error)
	close() error
}

// CatalogProvider hands the runner the current catalog snapshot for
// path mapping.
type CatalogProvider interface {
	Current() *catalog.Store
}

type Params struct {
	Dialect domain.Dialect
	Catalog CatalogProvider

	DuckDB config.DuckDBConfig
	Oracle config.OracleConfig
	Cache  config.ExecutorConfig

	// DefaultTimeout bounds queries whose request carries none; zero
	// means 30s.
	DefaultTimeout time.Duration

	// MaxRows is the LIMIT injected into unbounded JOIN queries; zero
	// means 1000.
	MaxRows int
}

// Runner implements Executor for one dialect.
type Runner struct {
	dialect domain.Dialect
	backend backend
	catalog CatalogProvider
	cache   *resultCache
	flights singleflight.Group
	timeout time.Duration
	maxRows int
	bucket  string
}

// New builds a Runner for the configured datasource. MYSQL is a
// generation-only dialect and has no executor.
func New(params Params) (*Runner, error) {
	var b backend
	switch params.Dialect {
	case domain.DialectDuckDB:
		b = newDuckDBBackend(params.DuckDB)
	case domain.DialectOracle:
		b = newOracleBackend(params.Oracle)
	default:
		return nil, fmt.Errorf("no executor backend for datasource %s", params.Dialect)
	}

	timeout := params.DefaultTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRows := params.MaxRows
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}

	return &Runner{
		dialect: params.Dialect,
		backend: b,
		catalog: params.Catalog,
		cache:   newResultCache(params.Cache),
		timeout: timeout,
		maxRows: maxRows,
		bucket:  params.DuckDB.S3Bucket,
	}, nil
}

// Execute guards, rewrites and runs one SQL statement. The returned
// diagnostic carries a closed error code; QUERY_CANCELLED means the
// caller went away and nothing should be emitted downstream.
func (r *Runner) Execute(ctx context.Context, req Request) (*domain.QueryResult, *domain.Diagnostic) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "querycore.executor"})

	sqlText := strings.TrimSpace(req.SQL)
	if sqlText == "" {
		return nil, &domain.Diagnostic{
			Code:    domain.ErrorCodeQueryError,
			Stage:   string(domain.StateEmitSQL),
			Message: "empty sql statement",
		}
	}

	sqlText, diag := guardJoins(sqlText, r.maxRows)
	if diag != nil {
		return nil, diag
	}

	if r.dialect == domain.DialectDuckDB {
		sqlText = newPathMapper(r.catalog.Current(), r.bucket).Rewrite(sqlText)
		sqlText = prunePartitions(sqlText, req.Partition)
	}

	useCache := r.cache.usable() && !req.SkipCache
	if useCache {
		if cached, ok := r.cache.get(sqlText); ok {
			slog.DebugContext(ctx, "result cache hit", "rows", cached.RowCount)
			return cached, nil
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}

	start := time.Now()
	result, err := r.fly(ctx, sqlText, timeout)
	if err != nil {
		diag := mapBackendError(err)
		slog.WarnContext(ctx, "sql execution failed",
			"backend", r.backend.name(),
			"code", diag.Code,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return nil, diag
	}

	slog.InfoContext(ctx, "sql execution completed",
		"backend", r.backend.name(),
		"rows", result.RowCount,
		"duration_ms", result.ExecutionTimeMS)

	if useCache {
		r.cache.put(sqlText, result)
	}
	return result, nil
}

// fly collapses identical concurrent SQL into one backend call. When
// the flight owner disconnects mid-query the followers rerun on their
// own context instead of inheriting the cancellation.
func (r *Runner) fly(ctx context.Context, sqlText string, timeout time.Duration) (*domain.QueryResult, error) {
	v, err, shared := r.flights.Do(sqlText, func() (any, error) {
		return r.run(ctx, sqlText, timeout)
	})
	if err != nil {
		if shared && ctx.Err() == nil && errors.Is(err, context.Canceled) {
			return r.run(ctx, sqlText, timeout)
		}
		return nil, err
	}
	return v.(*domain.QueryResult), nil
}

// run executes with a watchdog: the caller observes at most timeout
// even when the driver call refuses to return. A late driver return is
// still cleaned up by the worker goroutine.
func (r *Runner) run(ctx context.Context, sqlText string, timeout time.Duration) (*domain.QueryResult, error) {
	sc := logger.StartSpan(ctx, "executor.run_sql", trace.WithSpanKind(trace.SpanKindClient))
	defer sc.End()

	qctx, cancel := context.WithTimeout(sc.Context(), timeout)
	defer cancel()

	start := time.Now()

	type outcome struct {
		result *domain.QueryResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		rows, cleanup, err := r.backend.query(qctx, sqlText)
		if err != nil {
			done <- outcome{nil, err}
			return
		}
		result, err := scanRows(rows)
		rows.Close()
		cleanup()
		done <- outcome{result, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			sc.RecordError(out.err)
			return nil, out.err
		}
		out.result.ExecutionTimeMS = time.Since(start).Milliseconds()
		return out.result, nil
	case <-qctx.Done():
		sc.RecordError(qctx.Err())
		return nil, qctx.Err()
	}
}

func (r *Runner) Close() error {
	return r.backend.close()
}
