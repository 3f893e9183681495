package domain

import "strings"

// ParamKeyTimeRange is the reserved parsed-parameter key carrying the
// query's time window. It never names a catalog concept directly; the
// resolver maps it onto the intent's date filter concept.
const ParamKeyTimeRange = "TIME_RANGE"

// Parsed parameters arrive keyed in upper snake case while catalog
// concepts use lower snake case. The irregular pairs are listed here;
// any other key folds to its lowercase form.
var paramConcepts = map[string]string{
	"ITEM_NO":     "item",
	"WAREHOUSE":   "warehouse",
	"WORKSTATION": "workstation",
}

// ConceptForParam translates a parsed-parameter key into the catalog
// concept name it refers to.
func ConceptForParam(key string) string {
	if concept, ok := paramConcepts[key]; ok {
		return concept
	}
	return strings.ToLower(key)
}

// ParamForConcept is the inverse mapping, used when presenting concepts
// as parameter keys in prompts and diagnostics.
func ParamForConcept(concept string) string {
	for key, c := range paramConcepts {
		if c == concept {
			return key
		}
	}
	return strings.ToUpper(concept)
}
