package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"dataagentjp.io/querycore/internal/catalog"
	"dataagentjp.io/querycore/internal/domain"
	"dataagentjp.io/querycore/internal/sqlgen"
)

// parseNLQ gates the parse for callers that skip the pre-validator.
func (r *Resolver) parseNLQ(ctx context.Context, c *carry) *domain.Diagnostic {
	parsed := c.req.Parsed
	if parsed.Unknown() || parsed.Confidence < r.gate {
		return &domain.Diagnostic{
			Code:    domain.ErrorCodeIntentUnclear,
			Message: fmt.Sprintf("intent confidence %.2f below gate %.2f", parsed.Confidence, r.gate),
		}
	}
	return nil
}

// matchConcepts applies the alias map, loads the intent and matches
// parsed params onto catalog concepts. Unknown params are dropped, not
// fatal; the model sometimes invents keys.
func (r *Resolver) matchConcepts(ctx context.Context, c *carry) *domain.Diagnostic {
	store := r.catalog.Current()

	name := c.req.Parsed.Intent
	if alias, ok := r.aliases[name]; ok {
		slog.DebugContext(ctx, "intent alias applied", "from", name, "to", alias)
		name = alias
	}
	intent, ok := store.Intent(name)
	if !ok {
		return &domain.Diagnostic{
			Code:    domain.ErrorCodeSchemaNotFound,
			Message: fmt.Sprintf("intent %q is not in the catalog", name),
		}
	}
	c.intent = intent

	keys := make([]string, 0, len(c.req.Parsed.Params))
	for key := range c.req.Parsed.Params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		value := c.req.Parsed.Params[key]

		concept := domain.ConceptForParam(key)
		if key == domain.ParamKeyTimeRange {
			concept = dateFilterConcept(store, intent)
			if concept == "" {
				slog.DebugContext(ctx, "intent has no date filter for time range", "intent", intent.Name)
				continue
			}
		}
		if _, ok := store.Concept(concept); !ok {
			slog.DebugContext(ctx, "ignoring unmatched param", "param", key)
			continue
		}
		if seen[concept] {
			continue
		}
		seen[concept] = true
		c.matched = append(c.matched, MatchedConcept{Concept: concept, Value: value, Source: "parsed"})
	}
	return nil
}

// dateFilterConcept picks the intent's first date-typed filter concept,
// the column an abstract time range applies to.
func dateFilterConcept(store *catalog.Store, intent catalog.Intent) string {
	for _, name := range intent.Filters {
		concept, ok := store.Concept(name)
		if ok && (concept.DataType == "date" || concept.DataType == "datetime") {
			return name
		}
	}
	return ""
}

// resolveBindings looks up the active dialect's binding for every
// intent-declared dimension and metric and every matched filter,
// resolves abstract time ranges, and settles the source table and its
// object-storage path.
func (r *Resolver) resolveBindings(ctx context.Context, c *carry) *domain.Diagnostic {
	store := r.catalog.Current()

	for _, name := range c.intent.Dimensions {
		binding, ok := store.Binding(name, r.dialect)
		if !ok {
			return bindingMissing(name, r.dialect)
		}
		c.bound = append(c.bound, boundSelect{concept: name, binding: binding})
	}
	for _, name := range c.intent.Metrics {
		binding, ok := store.Binding(name, r.dialect)
		if !ok {
			return bindingMissing(name, r.dialect)
		}
		c.bound = append(c.bound, boundSelect{concept: name, binding: binding})
	}

	simpleCount := r.isSimpleCount(c)

	for _, m := range c.matched {
		binding, ok := store.Binding(m.Concept, r.dialect)
		if !ok {
			return bindingMissing(m.Concept, r.dialect)
		}

		if m.Value.Kind == domain.ValueKindTimeRange {
			resolved, err := m.Value.Time.Resolve()
			if err != nil {
				return &domain.Diagnostic{
					Message: fmt.Sprintf("resolve time range for %s", m.Concept),
					Err:     err,
				}
			}
			c.partition = resolved
			if simpleCount {
				// Row counts lean on partition pruning instead of a
				// date filter over the full scan.
				slog.DebugContext(ctx, "time range dropped for simple count", "intent", c.intent.Name)
				continue
			}
			c.filters = append(c.filters, boundFilter{
				binding: binding,
				value:   domain.TimeRangeValue(resolved),
			})
			continue
		}

		operator := binding.Operator
		if m.Value.Kind == domain.ValueKindList {
			operator = ""
		}
		c.filters = append(c.filters, boundFilter{binding: binding, value: m.Value, operator: operator})
	}

	for _, binding := range c.allBindings() {
		switch {
		case c.table == "":
			c.table = binding.Table
		case c.table != binding.Table:
			return &domain.Diagnostic{
				Message: fmt.Sprintf("intent %s binds to multiple tables: %s, %s",
					c.intent.Name, c.table, binding.Table),
			}
		}
	}
	if c.table == "" {
		return &domain.Diagnostic{
			Message: fmt.Sprintf("no bindings resolved for intent %s", c.intent.Name),
		}
	}

	if r.dialect == domain.DialectDuckDB {
		c.path = r.resolvePath(store, c)
	}
	return nil
}

// isSimpleCount reports whether the intent is a bare row count: exactly
// one metric, zero dimensions, and the metric binds to COUNT.
func (r *Resolver) isSimpleCount(c *carry) bool {
	if len(c.intent.Metrics) != 1 || len(c.intent.Dimensions) != 0 {
		return false
	}
	for _, b := range c.bound {
		if b.concept == c.intent.Metrics[0] {
			return b.binding.Aggregation == catalog.AggregationCount
		}
	}
	return false
}

// resolvePath picks the parquet glob: binding s3_path first, then the
// table schema, then the conventional lake layout.
func (r *Resolver) resolvePath(store *catalog.Store, c *carry) string {
	for _, binding := range c.allBindings() {
		if binding.S3Path != "" {
			return binding.S3Path
		}
	}
	if schema, ok := store.Table(c.table); ok && schema.S3Path != "" {
		return schema.S3Path
	}
	return fmt.Sprintf("s3://%s/raw/v1/%s/year=*/month=*/data.parquet", r.bucket, c.table)
}

// validate re-asserts required filters for callers that invoke the
// resolver without the pre-validator.
func (r *Resolver) validate(ctx context.Context, c *carry) *domain.Diagnostic {
	matched := make(map[string]bool, len(c.matched))
	for _, m := range c.matched {
		matched[m.Concept] = true
	}

	var missing []string
	for _, name := range c.intent.RequiredFilters {
		if !matched[name] {
			missing = append(missing, domain.ParamForConcept(name))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &domain.Diagnostic{
		Code:        domain.ErrorCodeMissingRequiredFilter,
		Message:     fmt.Sprintf("intent %s requires %s", c.intent.Name, strings.Join(missing, ", ")),
		Suggestions: missing,
	}
}

// buildAST assembles the query form: dimensions then metrics in the
// select list, matched filters as conjuncts, grouping injected when any
// selection aggregates, and pagination defaults.
func (r *Resolver) buildAST(ctx context.Context, c *carry) *domain.Diagnostic {
	ast := &sqlgen.QueryAST{Source: sqlgen.Source{Table: c.table, Path: c.path}}

	for _, b := range c.bound {
		expr := sqlgen.SelectExpr{Column: b.binding.Column}
		if b.binding.Aggregation != "" && b.binding.Aggregation != catalog.AggregationNone {
			expr.Aggregate = string(b.binding.Aggregation)
			if b.concept != b.binding.Column {
				expr.Alias = b.concept
			}
		}
		ast.Select = append(ast.Select, expr)
	}
	if len(ast.Select) == 0 {
		return &domain.Diagnostic{
			Message: fmt.Sprintf("intent %s selects no columns", c.intent.Name),
		}
	}

	for _, f := range c.filters {
		ast.Where = append(ast.Where, sqlgen.Condition{
			Column:   f.binding.Column,
			Operator: f.operator,
			Value:    f.value,
		})
	}

	if ast.HasAggregate() {
		for _, expr := range ast.Select {
			if !expr.Aggregated() {
				ast.GroupBy = append(ast.GroupBy, expr.Column)
			}
		}
	}

	limit := c.req.Parsed.Limit
	if limit <= 0 {
		limit = c.req.Limit
	}
	if limit <= 0 {
		limit = r.defaultLimit
	}
	if limit > r.maxLimit {
		limit = r.maxLimit
	}
	ast.Limit = limit
	ast.Offset = c.req.Parsed.Offset

	c.ast = ast
	return nil
}

// emitSQL renders the AST for the active dialect plus the COUNT variant
// used when the caller opts into exact totals.
func (r *Resolver) emitSQL(ctx context.Context, c *carry) *domain.Diagnostic {
	gen, err := sqlgen.ForDialect(r.dialect)
	if err != nil {
		return &domain.Diagnostic{Message: "select sql generator", Err: err}
	}

	sql, err := gen.Render(c.ast)
	if err != nil {
		return &domain.Diagnostic{Message: "render sql", Err: err}
	}
	c.sql = sql

	countSQL, err := gen.Render(&sqlgen.QueryAST{
		Select: []sqlgen.SelectExpr{{Column: "*", Aggregate: "COUNT"}},
		Source: c.ast.Source,
		Where:  c.ast.Where,
	})
	if err != nil {
		return &domain.Diagnostic{Message: "render count sql", Err: err}
	}
	c.countSQL = countSQL
	return nil
}

func bindingMissing(concept string, dialect domain.Dialect) *domain.Diagnostic {
	return &domain.Diagnostic{
		Code:    domain.ErrorCodeBinderError,
		Message: fmt.Sprintf("concept %q has no %s binding", concept, dialect),
	}
}
