package executor

import (
	"fmt"
	"regexp"

	"dataagentjp.io/querycore/internal/domain"
)

var (
	joinWordRe  = regexp.MustCompile(`(?i)\bJOIN\b`)
	whereWordRe = regexp.MustCompile(`(?i)\bWHERE\b`)
	limitWordRe = regexp.MustCompile(`(?i)\bLIMIT\s+\d+`)
)

// guardJoins enforces the multi-table safety rules before any backend
// contact. Queries with two or more JOINs and no WHERE clause are
// refused outright; any JOIN query without a LIMIT gets one injected so
// a missed join condition cannot fan out unbounded.
func guardJoins(sqlText string, maxRows int) (string, *domain.Diagnostic) {
	joins := len(joinWordRe.FindAllStringIndex(sqlText, -1))
	if joins == 0 {
		return sqlText, nil
	}

	if joins >= 2 && !whereWordRe.MatchString(sqlText) {
		return "", &domain.Diagnostic{
			Code:    domain.ErrorCodeJoinUnguarded,
			Stage:   string(domain.StateEmitSQL),
			Message: fmt.Sprintf("refusing %d-way join without a WHERE clause", joins+1),
			Suggestions: []string{
				"add a filter condition to the query",
				"narrow the time range",
			},
		}
	}

	if !limitWordRe.MatchString(sqlText) {
		sqlText = fmt.Sprintf("%s LIMIT %d", sqlText, maxRows)
	}
	return sqlText, nil
}
