package catalog

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dataagentjp.io/querycore/internal/domain"
)

func inventoryConcepts() []Concept {
	return []Concept{
		{Name: "item", Kind: KindDimension, DataType: "string"},
		{Name: "warehouse", Kind: KindDimension, DataType: "string"},
		{Name: "quantity", Kind: KindMetric, DataType: "decimal"},
	}
}

func inventoryIntent() Intent {
	return Intent{
		Name:            "QUERY_INVENTORY",
		Filters:         []string{"item", "warehouse"},
		RequiredFilters: []string{"item"},
		Metrics:         []string{"quantity"},
		Dimensions:      []string{"item", "warehouse"},
	}
}

func inventoryBindings() []Binding {
	return []Binding{
		{Concept: "item", Dialect: domain.DialectDuckDB, Table: "mart_inventory_wide", Column: "item_no", Aggregation: AggregationNone, Operator: "="},
		{Concept: "warehouse", Dialect: domain.DialectDuckDB, Table: "mart_inventory_wide", Column: "warehouse_no", Aggregation: AggregationNone, Operator: "="},
		{Concept: "quantity", Dialect: domain.DialectDuckDB, Table: "mart_inventory_wide", Column: "qty", Aggregation: AggregationNone, Operator: "="},
	}
}

var _ = Describe("Store", func() {
	It("looks up concepts, intents, bindings and tables", func() {
		store, err := NewStore(
			inventoryConcepts(),
			[]Intent{inventoryIntent()},
			inventoryBindings(),
			[]TableSchema{{Name: "mart_inventory_wide", Partitions: []string{"year", "month"}}},
		)
		Expect(err).NotTo(HaveOccurred())

		concept, ok := store.Concept("item")
		Expect(ok).To(BeTrue())
		Expect(concept.Kind).To(Equal(KindDimension))

		_, ok = store.Concept("nonexistent")
		Expect(ok).To(BeFalse())

		intent, ok := store.Intent("QUERY_INVENTORY")
		Expect(ok).To(BeTrue())
		Expect(intent.RequiredFilters).To(ConsistOf("item"))

		binding, ok := store.Binding("quantity", domain.DialectDuckDB)
		Expect(ok).To(BeTrue())
		Expect(binding.Column).To(Equal("qty"))

		_, ok = store.Binding("quantity", domain.DialectOracle)
		Expect(ok).To(BeFalse())

		table, ok := store.Table("mart_inventory_wide")
		Expect(ok).To(BeTrue())
		Expect(table.Partitions).To(Equal([]string{"year", "month"}))

		Expect(store.Counts()).To(Equal(Counts{Concepts: 3, Intents: 1, Bindings: 3, Tables: 1}))
	})

	It("returns intents sorted by name", func() {
		store, err := NewStore(nil, []Intent{
			{Name: "QUERY_WORK_ORDER_COUNT"},
			{Name: "QUERY_INVENTORY"},
			{Name: "QUERY_PURCHASE_ORDER"},
		}, inventoryBindings(), nil)
		Expect(err).NotTo(HaveOccurred())

		var names []string
		for _, intent := range store.Intents() {
			names = append(names, intent.Name)
		}
		Expect(names).To(Equal([]string{"QUERY_INVENTORY", "QUERY_PURCHASE_ORDER", "QUERY_WORK_ORDER_COUNT"}))
	})

	It("rejects duplicate concepts", func() {
		_, err := NewStore([]Concept{{Name: "item"}, {Name: "item"}}, nil, inventoryBindings(), nil)
		Expect(err).To(MatchError(ContainSubstring(`duplicate concept "item"`)))
	})

	It("rejects duplicate bindings for the same concept and dialect", func() {
		bindings := append(inventoryBindings(), inventoryBindings()[0])
		_, err := NewStore(nil, nil, bindings, nil)
		Expect(err).To(MatchError(ContainSubstring("duplicate binding")))
	})
})

var _ = Describe("CrossCheck", func() {
	It("passes when every referenced concept is bound", func() {
		store, err := NewStore(inventoryConcepts(), []Intent{inventoryIntent()}, inventoryBindings(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(store.CrossCheck(domain.DialectDuckDB)).To(Succeed())
	})

	It("names every unbound concept, sorted", func() {
		intent := inventoryIntent()
		intent.Metrics = append(intent.Metrics, "total_quantity")
		store, err := NewStore(inventoryConcepts(), []Intent{intent}, inventoryBindings()[:1], nil)
		Expect(err).NotTo(HaveOccurred())

		err = store.CrossCheck(domain.DialectDuckDB)
		Expect(err).To(MatchError(ContainSubstring("no DUCKDB binding")))
		Expect(err).To(MatchError(ContainSubstring("quantity, total_quantity, warehouse")))
	})

	It("checks only the active dialect", func() {
		store, err := NewStore(inventoryConcepts(), []Intent{inventoryIntent()}, inventoryBindings(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(store.CrossCheck(domain.DialectOracle)).NotTo(Succeed())
	})
})
