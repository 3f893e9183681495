package sqlgen

import (
	"fmt"

	"dataagentjp.io/querycore/internal/domain"
)

type duckdbGenerator struct{}

func (duckdbGenerator) Dialect() domain.Dialect { return domain.DialectDuckDB }

// Render emits DuckDB SQL. Sources with a resolved object-storage path
// become read_parquet expressions with hive partitioning, so year=/month=
// path segments surface as queryable columns.
func (duckdbGenerator) Render(ast *QueryAST) (string, error) {
	sql, err := renderBase(ast, style{from: duckdbFrom, tieBreak: true}.fill())
	if err != nil {
		return "", err
	}
	return sql + limitOffset(ast), nil
}

func duckdbFrom(src Source) string {
	if src.Path == "" {
		return src.Table
	}
	return fmt.Sprintf("read_parquet('%s', hive_partitioning=true)", src.Path)
}
