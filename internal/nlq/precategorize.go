package nlq

import "strings"

// The precategorizer gives the LLM prompt a cheap table hint: count
// category keyword hits and take the best category. Order breaks ties.
type category struct {
	name     string
	keywords []string
}

var categories = []category{
	{name: "inventory", keywords: []string{"庫存", "库存", "在庫", "存量", "倉庫", "仓库"}},
	{name: "work_order", keywords: []string{"工單", "工单", "製令", "制令", "工作站"}},
	{name: "purchase_order", keywords: []string{"採購", "采购", "發注", "发注", "供應商", "供应商"}},
	{name: "transaction", keywords: []string{"交易", "異動", "异动", "出入庫", "出入库"}},
}

// tableHint returns the best-matching table category for the NLQ, or
// empty when nothing matches.
func tableHint(nlq string) string {
	best := ""
	bestHits := 0
	for _, c := range categories {
		hits := 0
		for _, kw := range c.keywords {
			if strings.Contains(nlq, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best = c.name
			bestHits = hits
		}
	}
	return best
}
