// Package catalog holds the schema catalog: business concepts, query
// intents, per-dialect physical bindings, and warehouse table layouts.
// The catalog is loaded once at startup from a chain of sources and
// swapped atomically on reload.
package catalog

import (
	"dataagentjp.io/querycore/internal/domain"
)

// Kind classifies a concept. Loader input may still carry the legacy
// tags CODE, STRING and NUMBER; normalization folds those into these two.
type Kind string

const (
	KindDimension Kind = "DIMENSION"
	KindMetric    Kind = "METRIC"
)

// Aggregation is the SQL aggregate applied to a bound column.
type Aggregation string

const (
	AggregationNone  Aggregation = "NONE"
	AggregationSum   Aggregation = "SUM"
	AggregationAvg   Aggregation = "AVG"
	AggregationCount Aggregation = "COUNT"
	AggregationMin   Aggregation = "MIN"
	AggregationMax   Aggregation = "MAX"
)

// Concept is a named business term queries refer to, independent of any
// physical table. Labels are localized display names keyed by locale tag.
type Concept struct {
	Name     string            `json:"name"`
	Kind     Kind              `json:"kind"`
	DataType string            `json:"data_type,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
	Synonyms []string          `json:"synonyms,omitempty"`
}

// Intent is a recognized query shape: which concepts it filters on,
// which filters are mandatory, and which concepts it selects.
type Intent struct {
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Filters         []string `json:"filters,omitempty"`
	RequiredFilters []string `json:"required_filters,omitempty"`
	Metrics         []string `json:"metrics,omitempty"`
	Dimensions      []string `json:"dimensions,omitempty"`
}

// ReferencedConcepts returns every concept name the intent mentions,
// deduplicated, in filters/required/metrics/dimensions order.
func (i Intent) ReferencedConcepts() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, group := range [][]string{i.Filters, i.RequiredFilters, i.Metrics, i.Dimensions} {
		for _, name := range group {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// Binding maps a concept onto a physical column for one SQL dialect.
type Binding struct {
	Concept     string         `json:"concept"`
	Dialect     domain.Dialect `json:"dialect"`
	Table       string         `json:"table"`
	Column      string         `json:"column"`
	Aggregation Aggregation    `json:"aggregation,omitempty"`
	Operator    string         `json:"operator,omitempty"`
	S3Path      string         `json:"s3_path,omitempty"`
}

// BindingKey identifies a binding: one concept bound for one dialect.
type BindingKey struct {
	Concept string
	Dialect domain.Dialect
}

// TableSchema describes a warehouse table's physical layout. S3Path and
// Partitions only matter for the DuckDB datalake dialect.
type TableSchema struct {
	Name       string         `json:"name" yaml:"name"`
	S3Path     string         `json:"s3_path,omitempty" yaml:"s3_path"`
	Partitions []string       `json:"partitions,omitempty" yaml:"partitions"`
	Columns    []ColumnSchema `json:"columns,omitempty" yaml:"columns"`
}

// ColumnSchema is one column of a warehouse table.
type ColumnSchema struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type,omitempty" yaml:"type"`
}
