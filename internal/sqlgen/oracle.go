package sqlgen

import (
	"fmt"

	"dataagentjp.io/querycore/internal/domain"
)

type oracleGenerator struct{}

func (oracleGenerator) Dialect() domain.Dialect { return domain.DialectOracle }

// Render emits Oracle SQL. A plain limit becomes a ROWNUM conjunct on
// the WHERE clause, ahead of any GROUP BY. Offsets need the classic
// nested-query window since a bare ROWNUM cannot skip rows.
func (oracleGenerator) Render(ast *QueryAST) (string, error) {
	st := style{boolLit: oracleBool, tieBreak: true}.fill()

	if ast.Limit <= 0 {
		return renderBase(ast, st)
	}

	if ast.Offset == 0 {
		capped := *ast
		capped.Where = append(append([]Condition{}, ast.Where...), Condition{
			Column:   "ROWNUM",
			Operator: "<=",
			Value:    domain.ScalarValue(ast.Limit),
		})
		return renderBase(&capped, st)
	}

	inner := *ast
	inner.Limit, inner.Offset = 0, 0
	if len(inner.OrderBy) == 0 && len(inner.Select) > 0 && !inner.Select[0].Aggregated() {
		// Page windows are meaningless without a stable order.
		inner.OrderBy = []OrderBy{{Column: inner.Select[0].Column}}
	}
	innerSQL, err := renderBase(&inner, st)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"SELECT * FROM (SELECT q.*, ROWNUM rn FROM (%s) q WHERE ROWNUM <= %d) WHERE rn > %d",
		innerSQL, ast.Limit+ast.Offset, ast.Offset,
	), nil
}

func oracleBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
