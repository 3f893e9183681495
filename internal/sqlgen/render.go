package sqlgen

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"dataagentjp.io/querycore/internal/domain"
)

// Generator renders one SQL dialect.
type Generator interface {
	Dialect() domain.Dialect
	Render(ast *QueryAST) (string, error)
}

// ForDialect returns the generator for a dialect.
func ForDialect(dialect domain.Dialect) (Generator, error) {
	switch dialect {
	case domain.DialectOracle:
		return oracleGenerator{}, nil
	case domain.DialectDuckDB:
		return duckdbGenerator{}, nil
	case domain.DialectMySQL:
		return mysqlGenerator{}, nil
	default:
		return nil, fmt.Errorf("no generator for dialect %q", dialect)
	}
}

// style carries the hooks a dialect overrides on the shared clause
// builder. The zero hooks mean identity quoting, a bare FROM and
// TRUE/FALSE boolean literals.
type style struct {
	ident    func(string) string
	from     func(Source) string
	boolLit  func(bool) string
	tieBreak bool
}

func identIdent(name string) string { return name }

func plainFrom(st style) func(Source) string {
	return func(src Source) string { return st.ident(src.Table) }
}

func defaultBool(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

func (st style) fill() style {
	if st.ident == nil {
		st.ident = identIdent
	}
	if st.from == nil {
		st.from = plainFrom(st)
	}
	if st.boolLit == nil {
		st.boolLit = defaultBool
	}
	return st
}

// Render emits the dialect-neutral form: canonical clause order,
// identity quoting, trailing LIMIT and OFFSET. Parse inverts it.
func Render(ast *QueryAST) (string, error) {
	sql, err := renderBase(ast, style{}.fill())
	if err != nil {
		return "", err
	}
	return sql + limitOffset(ast), nil
}

// renderBase assembles SELECT through ORDER BY. Pagination is the
// dialect's business.
func renderBase(ast *QueryAST, st style) (string, error) {
	if len(ast.Select) == 0 {
		return "", fmt.Errorf("empty select list")
	}
	if ast.Source.Table == "" {
		return "", fmt.Errorf("empty source table")
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	for i, expr := range ast.Select {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(renderSelect(expr, st))
	}

	b.WriteString(" FROM ")
	b.WriteString(st.from(ast.Source))

	if len(ast.Where) > 0 {
		b.WriteString(" WHERE ")
		for i, cond := range ast.Where {
			if i > 0 {
				b.WriteString(" AND ")
			}
			rendered, err := renderCondition(cond, st)
			if err != nil {
				return "", err
			}
			b.WriteString(rendered)
		}
	}

	if len(ast.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		for i, col := range ast.GroupBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(st.ident(col))
		}
	}

	order := ast.OrderBy
	if st.tieBreak && len(order) == 0 && ast.Limit > 0 && !ast.Select[0].Aggregated() {
		// Deterministic pages need a deterministic order.
		order = []OrderBy{{Column: ast.Select[0].Column}}
	}
	if len(order) > 0 {
		b.WriteString(" ORDER BY ")
		for i, term := range order {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(st.ident(term.Column))
			if term.Desc {
				b.WriteString(" DESC")
			}
		}
	}

	return b.String(), nil
}

func renderSelect(expr SelectExpr, st style) string {
	column := expr.Column
	if column != "*" {
		column = st.ident(column)
	}
	rendered := column
	if expr.Aggregated() {
		rendered = fmt.Sprintf("%s(%s)", strings.ToUpper(expr.Aggregate), column)
	}
	if expr.Alias != "" {
		rendered += " AS " + st.ident(expr.Alias)
	}
	return rendered
}

func renderCondition(cond Condition, st style) (string, error) {
	column := st.ident(cond.Column)

	switch cond.Value.Kind {
	case domain.ValueKindList:
		if len(cond.Value.List) == 0 {
			return "", fmt.Errorf("empty IN list for column %s", cond.Column)
		}
		items := make([]string, len(cond.Value.List))
		for i, item := range cond.Value.List {
			items[i] = renderScalar(item, st)
		}
		return fmt.Sprintf("%s IN (%s)", column, strings.Join(items, ", ")), nil

	case domain.ValueKindTimeRange:
		tr := cond.Value.Time
		if tr == nil || tr.Abstract() {
			return "", fmt.Errorf("unresolved time range for column %s", cond.Column)
		}
		return fmt.Sprintf("%s BETWEEN '%s' AND '%s'", column, tr.Start, tr.End), nil

	default:
		op := cond.Operator
		if op == "" {
			op = "="
		}
		return fmt.Sprintf("%s %s %s", column, op, renderScalar(cond.Value.Scalar, st)), nil
	}
}

// renderScalar formats one literal. Strings are single-quoted with
// embedded quotes doubled; whole-valued floats drop the fraction so
// JSON-decoded integers stay integers in SQL.
func renderScalar(v any, st style) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case bool:
		return st.boolLit(t)
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'"
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return renderScalar(float64(t), st)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return "'" + strings.ReplaceAll(fmt.Sprintf("%v", t), "'", "''") + "'"
	}
}

func limitOffset(ast *QueryAST) string {
	var b strings.Builder
	if ast.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", ast.Limit)
	}
	if ast.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", ast.Offset)
	}
	return b.String()
}
