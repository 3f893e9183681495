package catalog

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dataagentjp.io/querycore/internal/domain"
)

var _ = Describe("NormalizeKind", func() {
	DescribeTable("folds legacy kind tags",
		func(raw string, expected Kind) {
			kind, err := NormalizeKind(Kind(raw))
			Expect(err).NotTo(HaveOccurred())
			Expect(kind).To(Equal(expected))
		},
		Entry("CODE becomes DIMENSION", "CODE", KindDimension),
		Entry("STRING becomes DIMENSION", "STRING", KindDimension),
		Entry("NUMBER becomes METRIC", "NUMBER", KindMetric),
		Entry("DIMENSION passes through", "DIMENSION", KindDimension),
		Entry("METRIC passes through", "METRIC", KindMetric),
		Entry("lowercase input is accepted", "code", KindDimension),
		Entry("surrounding whitespace is ignored", " METRIC ", KindMetric),
	)

	It("rejects unknown kinds", func() {
		_, err := NormalizeKind("GEOMETRY")
		Expect(err).To(MatchError(ContainSubstring(`unknown concept kind "GEOMETRY"`)))
	})
})

var _ = Describe("NormalizeAggregation", func() {
	It("maps an empty aggregation to NONE", func() {
		agg, err := NormalizeAggregation("")
		Expect(err).NotTo(HaveOccurred())
		Expect(agg).To(Equal(AggregationNone))
	})

	It("accepts the supported set case-insensitively", func() {
		for raw, expected := range map[string]Aggregation{
			"sum": AggregationSum, "AVG": AggregationAvg, "Count": AggregationCount,
			"MIN": AggregationMin, "max": AggregationMax,
		} {
			agg, err := NormalizeAggregation(Aggregation(raw))
			Expect(err).NotTo(HaveOccurred())
			Expect(agg).To(Equal(expected))
		}
	})

	It("rejects unknown aggregations", func() {
		_, err := NormalizeAggregation("MEDIAN")
		Expect(err).To(MatchError(ContainSubstring("unknown aggregation")))
	})
})

var _ = Describe("normalizeBinding", func() {
	It("defaults the operator to equality", func() {
		b, err := normalizeBinding(Binding{
			Concept: "item", Dialect: "duckdb", Table: "mart_inventory_wide", Column: "item_no",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Operator).To(Equal("="))
		Expect(b.Dialect).To(Equal(domain.DialectDuckDB))
		Expect(b.Aggregation).To(Equal(AggregationNone))
	})

	It("requires a dialect", func() {
		_, err := normalizeBinding(Binding{Concept: "item", Table: "t", Column: "c"})
		Expect(err).To(MatchError(ContainSubstring("missing dialect")))
	})

	It("requires table and column", func() {
		_, err := normalizeBinding(Binding{Concept: "item", Dialect: "DUCKDB"})
		Expect(err).To(MatchError(ContainSubstring("missing table or column")))
	})

	It("preserves an explicit operator", func() {
		b, err := normalizeBinding(Binding{
			Concept: "item", Dialect: "DUCKDB", Table: "t", Column: "c", Operator: "LIKE",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Operator).To(Equal("LIKE"))
	})
})
