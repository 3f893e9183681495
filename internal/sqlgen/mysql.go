package sqlgen

import (
	"dataagentjp.io/querycore/internal/domain"
)

type mysqlGenerator struct{}

func (mysqlGenerator) Dialect() domain.Dialect { return domain.DialectMySQL }

// Render emits MySQL SQL with backtick-quoted identifiers and trailing
// LIMIT/OFFSET pagination.
func (mysqlGenerator) Render(ast *QueryAST) (string, error) {
	sql, err := renderBase(ast, style{ident: backtick, tieBreak: true}.fill())
	if err != nil {
		return "", err
	}
	return sql + limitOffset(ast), nil
}

func backtick(name string) string {
	return "`" + name + "`"
}
