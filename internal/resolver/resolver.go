// Package resolver drives a parsed intent through deterministic phases
// to dialect-correct SQL: concept matching, binding resolution,
// validation, AST assembly and emission. Every visited state lands in
// the resolution's state history, ERROR included.
package resolver

import (
	"context"
	"log/slog"
	"time"

	"dataagentjp.io/querycore/common/logger"
	"dataagentjp.io/querycore/internal/catalog"
	"dataagentjp.io/querycore/internal/domain"
	"dataagentjp.io/querycore/internal/nlq"
	"dataagentjp.io/querycore/internal/sqlgen"
)

const (
	defaultLimit   = 100
	defaultMaxRows = 1000
	defaultGate    = 0.3
	defaultBucket  = "erp-lake"
)

// DefaultAliases is the built-in intent alias map, extended or replaced
// through configuration.
func DefaultAliases() map[string]string {
	return map[string]string{"QUERY_STATS": "QUERY_INVENTORY"}
}

// CatalogProvider hands the resolver the current catalog snapshot.
type CatalogProvider interface {
	Current() *catalog.Store
}

type Params struct {
	Catalog CatalogProvider
	Dialect domain.Dialect

	// Aliases rewrites parsed intent names in MATCH_CONCEPTS; nil means
	// DefaultAliases.
	Aliases map[string]string

	ConfidenceGate float64
	DefaultLimit   int
	MaxLimit       int

	// FallbackBucket names the object-storage bucket for the hard-coded
	// path glob when neither binding nor table schema carries one.
	FallbackBucket string
}

type Resolver struct {
	catalog      CatalogProvider
	dialect      domain.Dialect
	aliases      map[string]string
	gate         float64
	defaultLimit int
	maxLimit     int
	bucket       string
}

func New(params Params) *Resolver {
	aliases := params.Aliases
	if aliases == nil {
		aliases = DefaultAliases()
	}
	gate := params.ConfidenceGate
	if gate <= 0 {
		gate = defaultGate
	}
	limit := params.DefaultLimit
	if limit <= 0 {
		limit = defaultLimit
	}
	maxLimit := params.MaxLimit
	if maxLimit <= 0 {
		maxLimit = defaultMaxRows
	}
	bucket := params.FallbackBucket
	if bucket == "" {
		bucket = defaultBucket
	}
	return &Resolver{
		catalog:      params.Catalog,
		dialect:      params.Dialect,
		aliases:      aliases,
		gate:         gate,
		defaultLimit: limit,
		maxLimit:     maxLimit,
		bucket:       bucket,
	}
}

// Request is one resolution job. Limit is the caller's page size for
// when the NLQ itself named none; the parsed limit wins over it.
type Request struct {
	NLQ    string
	Parsed nlq.ParsedIntent
	Limit  int
}

// MatchedConcept records one parsed param matched onto a catalog
// concept.
type MatchedConcept struct {
	Concept string       `json:"concept"`
	Value   domain.Value `json:"value"`
	Source  string       `json:"source"`
}

// Resolution is the resolver's output. On failure the returned
// diagnostic is non-nil and the resolution carries whatever was
// established before the failing state, plus the full state history.
type Resolution struct {
	Intent       string
	Table        string
	SQL          string
	CountSQL     string
	AST          *sqlgen.QueryAST
	Matched      []MatchedConcept
	Partition    *domain.TimeRange
	StateHistory []domain.State
}

// Resolve walks the state machine over one request. The diagnostic's
// stage and code name the failing state; callers must check it before
// using SQL fields.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Resolution, *domain.Diagnostic) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Dialect:   logger.Ptr(string(r.dialect)),
		Component: "querycore.resolver",
	})

	res := &Resolution{StateHistory: []domain.State{domain.StateInit}}
	c := &carry{req: req}

	phases := []struct {
		state domain.State
		run   func(context.Context, *carry) *domain.Diagnostic
	}{
		{domain.StateParseNLQ, r.parseNLQ},
		{domain.StateMatchConcepts, r.matchConcepts},
		{domain.StateResolveBindings, r.resolveBindings},
		{domain.StateValidate, r.validate},
		{domain.StateBuildAST, r.buildAST},
		{domain.StateEmitSQL, r.emitSQL},
	}

	for _, phase := range phases {
		res.StateHistory = append(res.StateHistory, phase.state)
		start := time.Now()
		phaseCtx := logger.WithLogFields(ctx, logger.LogFields{Stage: logger.Ptr(string(phase.state))})

		if diag := phase.run(phaseCtx, c); diag != nil {
			res.StateHistory = append(res.StateHistory, domain.StateError)
			if diag.Code == "" {
				diag.Code = phase.state.FailureCode()
			}
			if diag.Stage == "" {
				diag.Stage = string(phase.state)
			}
			c.fill(res)
			slog.DebugContext(phaseCtx, "resolver state failed",
				"code", diag.Code,
				"message", diag.Message)
			return res, diag
		}

		slog.DebugContext(phaseCtx, "resolver state completed",
			"duration_ms", time.Since(start).Milliseconds())
	}

	res.StateHistory = append(res.StateHistory, domain.StateCompleted)
	c.fill(res)
	return res, nil
}

// carry accumulates per-request resolution state between phases.
type carry struct {
	req       Request
	intent    catalog.Intent
	matched   []MatchedConcept
	bound     []boundSelect
	filters   []boundFilter
	partition *domain.TimeRange
	table     string
	path      string
	ast       *sqlgen.QueryAST
	sql       string
	countSQL  string
}

type boundSelect struct {
	concept string
	binding catalog.Binding
}

type boundFilter struct {
	binding  catalog.Binding
	value    domain.Value
	operator string
}

func (c *carry) fill(res *Resolution) {
	res.Intent = c.intent.Name
	res.Table = c.table
	res.SQL = c.sql
	res.CountSQL = c.countSQL
	res.AST = c.ast
	res.Matched = c.matched
	res.Partition = c.partition
}

func (c *carry) allBindings() []catalog.Binding {
	out := make([]catalog.Binding, 0, len(c.bound)+len(c.filters))
	for _, b := range c.bound {
		out = append(out, b.binding)
	}
	for _, f := range c.filters {
		out = append(out, f.binding)
	}
	return out
}
