// Package sqlgen renders the analyzed query form into dialect-correct
// SQL. The base renderer is dialect-neutral and paired with a parser so
// rendering round-trips; Oracle, DuckDB and MySQL variants layer their
// pagination and quoting rules on top of it.
package sqlgen

import (
	"dataagentjp.io/querycore/internal/domain"
)

// QueryAST is the analyzed query: select expressions, one source,
// conjunctive filters, grouping, ordering and pagination. The resolver
// assembles it; generators only read it.
type QueryAST struct {
	Select  []SelectExpr `json:"select"`
	Source  Source       `json:"source"`
	Where   []Condition  `json:"where,omitempty"`
	GroupBy []string     `json:"group_by,omitempty"`
	OrderBy []OrderBy    `json:"order_by,omitempty"`
	Limit   int          `json:"limit,omitempty"`
	Offset  int          `json:"offset,omitempty"`
}

// SelectExpr is one projected expression. Aggregate is empty for plain
// columns; COUNT pairs with the "*" column for row counts.
type SelectExpr struct {
	Column    string `json:"column"`
	Aggregate string `json:"aggregate,omitempty"`
	Alias     string `json:"alias,omitempty"`
}

// Aggregated reports whether the expression wraps an aggregate function.
func (e SelectExpr) Aggregated() bool {
	return e.Aggregate != ""
}

// Source names the logical table. Path carries the resolved
// object-storage glob when the active dialect reads parquet directly.
type Source struct {
	Table string `json:"table"`
	Path  string `json:"path,omitempty"`
}

// Condition is one WHERE conjunct. List values render as IN, time
// ranges as BETWEEN; the operator applies to scalar values only.
type Condition struct {
	Column   string       `json:"column"`
	Operator string       `json:"operator"`
	Value    domain.Value `json:"value"`
}

// OrderBy is one ORDER BY term.
type OrderBy struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc,omitempty"`
}

// HasAggregate reports whether any select expression aggregates.
func (a *QueryAST) HasAggregate() bool {
	for _, expr := range a.Select {
		if expr.Aggregated() {
			return true
		}
	}
	return false
}
