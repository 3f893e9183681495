package catalog

import (
	"fmt"
	"strings"

	"dataagentjp.io/querycore/internal/domain"
)

// Older metadata exports tag concepts with storage-level kinds. They fold
// into the two query-level kinds; anything else is a load error.
var legacyKinds = map[string]Kind{
	"CODE":      KindDimension,
	"STRING":    KindDimension,
	"NUMBER":    KindMetric,
	"DIMENSION": KindDimension,
	"METRIC":    KindMetric,
}

var validAggregations = map[Aggregation]struct{}{
	AggregationNone:  {},
	AggregationSum:   {},
	AggregationAvg:   {},
	AggregationCount: {},
	AggregationMin:   {},
	AggregationMax:   {},
}

// NormalizeKind folds legacy kind tags into DIMENSION or METRIC.
func NormalizeKind(raw Kind) (Kind, error) {
	kind, ok := legacyKinds[strings.ToUpper(strings.TrimSpace(string(raw)))]
	if !ok {
		return "", fmt.Errorf("unknown concept kind %q", raw)
	}
	return kind, nil
}

// NormalizeAggregation maps an absent aggregation to NONE and rejects
// anything outside the supported set.
func NormalizeAggregation(raw Aggregation) (Aggregation, error) {
	agg := Aggregation(strings.ToUpper(strings.TrimSpace(string(raw))))
	if agg == "" {
		return AggregationNone, nil
	}
	if _, ok := validAggregations[agg]; !ok {
		return "", fmt.Errorf("unknown aggregation %q", raw)
	}
	return agg, nil
}

func normalizeConcept(c Concept) (Concept, error) {
	kind, err := NormalizeKind(c.Kind)
	if err != nil {
		return Concept{}, fmt.Errorf("concept %q: %w", c.Name, err)
	}
	c.Kind = kind
	return c, nil
}

func normalizeBinding(b Binding) (Binding, error) {
	if b.Concept == "" {
		return Binding{}, fmt.Errorf("binding missing concept name")
	}
	if b.Table == "" || b.Column == "" {
		return Binding{}, fmt.Errorf("binding for concept %q missing table or column", b.Concept)
	}

	b.Dialect = domain.Dialect(strings.ToUpper(strings.TrimSpace(string(b.Dialect))))
	if b.Dialect == "" {
		return Binding{}, fmt.Errorf("binding for concept %q missing dialect", b.Concept)
	}

	agg, err := NormalizeAggregation(b.Aggregation)
	if err != nil {
		return Binding{}, fmt.Errorf("binding for concept %q: %w", b.Concept, err)
	}
	b.Aggregation = agg

	if b.Operator == "" {
		b.Operator = "="
	}
	return b, nil
}
