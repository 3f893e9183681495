package nlq

import (
	"regexp"
	"strconv"
	"time"

	"dataagentjp.io/querycore/internal/domain"
)

// Intent recognition is a fixed table: the pattern with the best base
// score wins, then each extracted parameter lifts the score a notch.
// The table is deliberately small; anything it misses goes to the LLM.
type intentPattern struct {
	intent  string
	pattern *regexp.Regexp
	score   float64
}

var intentPatterns = []intentPattern{
	{
		intent:  "QUERY_WORK_ORDER_COUNT",
		pattern: regexp.MustCompile(`(工單|工单|製令|制令).*(數量|数量|總數|总数|筆數|笔数|統計|统计)|多少.*(工單|工单)`),
		score:   0.70,
	},
	{
		intent:  "QUERY_TRANSACTION_HISTORY",
		pattern: regexp.MustCompile(`(交易|異動|异动|出入庫|出入库)`),
		score:   0.65,
	},
	{
		intent:  "QUERY_PURCHASE_ORDER",
		pattern: regexp.MustCompile(`(採購單|采购单|採購|采购|發注|发注)`),
		score:   0.65,
	},
	{
		intent:  "QUERY_INVENTORY",
		pattern: regexp.MustCompile(`(庫存|库存|在庫|存量)`),
		score:   0.60,
	},
}

const (
	paramScoreBoost = 0.1
	ruleScoreCap    = 0.95
)

// Parameter extractors. Keys are the upper snake case parameter names
// the rest of the pipeline expects.
var (
	itemPattern          = regexp.MustCompile(`\b\d{2}-\d{4}\b`)
	warehouseKeyword     = regexp.MustCompile(`(?:倉庫|仓库)\s*([A-Za-z][A-Za-z0-9-]{1,9})`)
	warehouseCode        = regexp.MustCompile(`\b(W\d[A-Z0-9]{0,4})\b`)
	workstationPattern   = regexp.MustCompile(`\b((?:CNC|ASSY|WS)-\d{2})\b`)
	purchaseOrderPattern = regexp.MustCompile(`\b(PO-?\d{6,10})\b`)
	workOrderPattern     = regexp.MustCompile(`\b((?:WO|MO)-?\d{6,10})\b`)
	yearPattern          = regexp.MustCompile(`(\d{4})年(?:\s*(\d{1,2})月)?`)
	bareMonthPattern     = regexp.MustCompile(`(\d{1,2})月`)
)

// extractParams runs every parameter pattern over the NLQ. The clock is
// injected so bare月 descriptors resolve to a test-stable year.
func extractParams(nlq string, now func() time.Time) map[string]domain.Value {
	params := make(map[string]domain.Value)

	if m := itemPattern.FindString(nlq); m != "" {
		params["ITEM_NO"] = domain.ScalarValue(m)
	}

	if m := warehouseKeyword.FindStringSubmatch(nlq); m != nil {
		params["WAREHOUSE"] = domain.ScalarValue(m[1])
	} else if m := warehouseCode.FindStringSubmatch(nlq); m != nil {
		params["WAREHOUSE"] = domain.ScalarValue(m[1])
	}

	if m := workstationPattern.FindStringSubmatch(nlq); m != nil {
		params["WORKSTATION"] = domain.ScalarValue(m[1])
	}

	if m := purchaseOrderPattern.FindStringSubmatch(nlq); m != nil {
		params["PURCHASE_ORDER_NO"] = domain.ScalarValue(m[1])
	}

	if m := workOrderPattern.FindStringSubmatch(nlq); m != nil {
		params["WORK_ORDER_NO"] = domain.ScalarValue(m[1])
	}

	if tr := extractTimeRange(nlq, now); tr != nil {
		params[domain.ParamKeyTimeRange] = domain.TimeRangeValue(tr)
	}

	return params
}

func extractTimeRange(nlq string, now func() time.Time) *domain.TimeRange {
	if m := yearPattern.FindStringSubmatch(nlq); m != nil {
		year, _ := strconv.Atoi(m[1])
		if m[2] != "" {
			month, _ := strconv.Atoi(m[2])
			if month >= 1 && month <= 12 {
				return &domain.TimeRange{Type: domain.TimeRangeTypeMonth, Year: year, Month: month}
			}
		}
		return &domain.TimeRange{Type: domain.TimeRangeTypeYear, Year: year}
	}

	// A bare month descriptor refers to the current year.
	if m := bareMonthPattern.FindStringSubmatch(nlq); m != nil {
		month, _ := strconv.Atoi(m[1])
		if month >= 1 && month <= 12 {
			return &domain.TimeRange{Type: domain.TimeRangeTypeMonth, Year: now().Year(), Month: month}
		}
	}

	return nil
}

// Pagination hints are swept independently of intent recognition.
var (
	limitPatterns = []*regexp.Regexp{
		regexp.MustCompile(`前\s*(\d+)\s*[筆笔條条]`),
		regexp.MustCompile(`最多\s*(\d+)\s*[筆笔條条]`),
	}
	offsetPattern = regexp.MustCompile(`跳[過过]\s*(\d+)\s*[筆笔條条]?`)
	pagePattern   = regexp.MustCompile(`第\s*(\d+)\s*[頁页]`)
)

const pageSizeFallback = 100

// extractPagination finds limit and offset hints. A page descriptor
// multiplies by the extracted limit, defaulting to 100 rows per page.
// The limit is hard-capped at maxResults.
func extractPagination(nlq string, maxResults int) (limit, offset int) {
	for _, p := range limitPatterns {
		if m := p.FindStringSubmatch(nlq); m != nil {
			limit, _ = strconv.Atoi(m[1])
			break
		}
	}

	if m := offsetPattern.FindStringSubmatch(nlq); m != nil {
		offset, _ = strconv.Atoi(m[1])
	}

	if m := pagePattern.FindStringSubmatch(nlq); m != nil {
		page, _ := strconv.Atoi(m[1])
		if page > 0 {
			if limit == 0 {
				limit = pageSizeFallback
			}
			offset = (page - 1) * limit
		}
	}

	if maxResults > 0 && limit > maxResults {
		limit = maxResults
	}
	return limit, offset
}
