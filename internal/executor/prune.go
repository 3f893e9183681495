package executor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"dataagentjp.io/querycore/internal/domain"
)

const wildcardPartition = "year=*/month=*"

var betweenStartRe = regexp.MustCompile(
	`(?i)BETWEEN\s+'(\d{4})-(\d{2})-\d{2}'\s+AND\s+'\d{4}-\d{2}-\d{2}'`)

// prunePartitions narrows the parquet glob to the partition of the
// query's start date. The resolver's partition hint wins; without one
// the date is lifted from the first BETWEEN range in the SQL text. An
// optimization only, never required for correctness.
func prunePartitions(sqlText string, hint *domain.TimeRange) string {
	if !strings.Contains(sqlText, wildcardPartition) {
		return sqlText
	}

	year, month, ok := partitionFromHint(hint)
	if !ok {
		year, month, ok = partitionFromSQL(sqlText)
	}
	if !ok {
		return sqlText
	}

	return strings.ReplaceAll(sqlText, wildcardPartition,
		fmt.Sprintf("year=%d/month=%02d", year, month))
}

func partitionFromHint(hint *domain.TimeRange) (int, int, bool) {
	if hint == nil || len(hint.Start) < 7 {
		return 0, 0, false
	}
	year, err := strconv.Atoi(hint.Start[0:4])
	if err != nil {
		return 0, 0, false
	}
	month, err := strconv.Atoi(hint.Start[5:7])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}

func partitionFromSQL(sqlText string) (int, int, bool) {
	sub := betweenStartRe.FindStringSubmatch(sqlText)
	if sub == nil {
		return 0, 0, false
	}
	year, _ := strconv.Atoi(sub[1])
	month, _ := strconv.Atoi(sub[2])
	if month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}
