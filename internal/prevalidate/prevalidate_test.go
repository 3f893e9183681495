package prevalidate

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dataagentjp.io/querycore/internal/catalog"
	"dataagentjp.io/querycore/internal/domain"
	"dataagentjp.io/querycore/internal/masterdata"
	"dataagentjp.io/querycore/internal/nlq"
)

type staticCatalog struct {
	store *catalog.Store
}

func (s staticCatalog) Current() *catalog.Store { return s.store }

type staticMaster struct {
	store *masterdata.Store
}

func (s staticMaster) Current() *masterdata.Store { return s.store }

func validationCatalog() CatalogProvider {
	store, err := catalog.NewStore(
		[]catalog.Concept{
			{Name: "item", Kind: catalog.KindDimension, DataType: "string"},
			{Name: "warehouse", Kind: catalog.KindDimension, DataType: "string"},
			{Name: "workstation", Kind: catalog.KindDimension, DataType: "string"},
			{Name: "quantity", Kind: catalog.KindMetric, DataType: "number"},
			{Name: "transaction_date", Kind: catalog.KindDimension, DataType: "date"},
		},
		[]catalog.Intent{
			{
				Name:    "QUERY_INVENTORY",
				Filters: []string{"item", "warehouse", "workstation"},
				Metrics: []string{"quantity"},
			},
			{
				Name:            "QUERY_TRANSACTION_HISTORY",
				Filters:         []string{"item", "transaction_date"},
				RequiredFilters: []string{"item", "transaction_date"},
			},
		},
		nil, nil,
	)
	Expect(err).NotTo(HaveOccurred())
	return staticCatalog{store: store}
}

func validationMaster(data map[masterdata.Kind][]masterdata.Entry) MasterProvider {
	return staticMaster{store: masterdata.NewStore(data)}
}

func fullMaster() MasterProvider {
	return validationMaster(map[masterdata.Kind][]masterdata.Entry{
		masterdata.KindItem: {
			{Code: "10-0012", Name: "六角螺絲 M6x20"},
			{Code: "10-0034", Name: "平墊圈 M6"},
		},
		masterdata.KindWarehouse: {
			{Code: "W01"}, {Code: "W02"}, {Code: "W03"},
			{Code: "W04"}, {Code: "W05"},
			{Code: "W0X1"}, {Code: "W0X2"},
		},
		masterdata.KindWorkstation: {
			{Code: "CNC-01"}, {Code: "CNC-02"},
		},
	})
}

func parsed(intent string, confidence float64, params map[string]domain.Value) nlq.ParsedIntent {
	if params == nil {
		params = map[string]domain.Value{}
	}
	return nlq.ParsedIntent{Intent: intent, Confidence: confidence, Params: params}
}

var _ = Describe("Validator", func() {
	var validator *Validator

	BeforeEach(func() {
		validator = New(Params{
			Catalog:        validationCatalog(),
			Master:         fullMaster(),
			Aliases:        map[string]string{"QUERY_STATS": "QUERY_INVENTORY"},
			ConfidenceGate: 0.3,
		})
	})

	It("accepts a confident parse with valid master data codes", func() {
		diag := validator.Check(parsed("QUERY_INVENTORY", 0.7, map[string]domain.Value{
			"ITEM_NO": domain.ScalarValue("10-0012"),
		}))
		Expect(diag).To(BeNil())
	})

	It("rejects an UNKNOWN parse with the intent index as suggestions", func() {
		diag := validator.Check(parsed(nlq.IntentUnknown, 0.2, nil))

		Expect(diag).NotTo(BeNil())
		Expect(diag.Code).To(Equal(domain.ErrorCodeIntentUnclear))
		Expect(diag.Stage).To(Equal(string(domain.StateParseNLQ)))
		Expect(diag.Suggestions).To(Equal([]string{"QUERY_INVENTORY", "QUERY_TRANSACTION_HISTORY"}))
	})

	It("rejects a named intent below the confidence gate", func() {
		diag := validator.Check(parsed("QUERY_INVENTORY", 0.1, nil))
		Expect(diag).NotTo(BeNil())
		Expect(diag.Code).To(Equal(domain.ErrorCodeIntentUnclear))
	})

	It("resolves intent aliases before the catalog lookup", func() {
		diag := validator.Check(parsed("QUERY_STATS", 0.8, nil))
		Expect(diag).To(BeNil())
	})

	It("rejects an intent the catalog does not know", func() {
		diag := validator.Check(parsed("QUERY_SHIPMENTS", 0.9, nil))

		Expect(diag).NotTo(BeNil())
		Expect(diag.Code).To(Equal(domain.ErrorCodeIntentUnclear))
		Expect(diag.Message).To(ContainSubstring("QUERY_SHIPMENTS"))
	})

	It("names every missing required filter", func() {
		diag := validator.Check(parsed("QUERY_TRANSACTION_HISTORY", 0.8, nil))

		Expect(diag).NotTo(BeNil())
		Expect(diag.Code).To(Equal(domain.ErrorCodeMissingRequiredFilter))
		Expect(diag.Stage).To(Equal(string(domain.StateValidate)))
		Expect(diag.Suggestions).To(Equal([]string{"ITEM_NO", "TRANSACTION_DATE"}))
		Expect(diag.Message).To(ContainSubstring("QUERY_TRANSACTION_HISTORY"))
	})

	It("lets a TIME_RANGE satisfy a required date filter", func() {
		diag := validator.Check(parsed("QUERY_TRANSACTION_HISTORY", 0.8, map[string]domain.Value{
			"ITEM_NO": domain.ScalarValue("10-0012"),
			domain.ParamKeyTimeRange: domain.TimeRangeValue(&domain.TimeRange{
				Type: domain.TimeRangeTypeMonth, Year: 2026, Month: 1,
			}),
		}))
		Expect(diag).To(BeNil())
	})

	It("rejects a warehouse missing from master data with nearby codes", func() {
		diag := validator.Check(parsed("QUERY_INVENTORY", 0.8, map[string]domain.Value{
			"WAREHOUSE": domain.ScalarValue("W0X"),
		}))

		Expect(diag).NotTo(BeNil())
		Expect(diag.Code).To(Equal(domain.ErrorCodeWarehouseNotFound))
		Expect(diag.Stage).To(Equal(string(domain.StateValidate)))
		Expect(diag.Message).To(ContainSubstring("W0X"))
		Expect(diag.Suggestions).To(Equal([]string{"W0X1", "W0X2"}))
	})

	It("caps suggestions at the configured maximum", func() {
		diag := validator.Check(parsed("QUERY_INVENTORY", 0.8, map[string]domain.Value{
			"WAREHOUSE": domain.ScalarValue("W0"),
		}))

		Expect(diag).NotTo(BeNil())
		Expect(diag.Suggestions).To(Equal([]string{"W01", "W02", "W03", "W04", "W05"}))
	})

	It("suggests by containment in both directions", func() {
		diag := validator.Check(parsed("QUERY_INVENTORY", 0.8, map[string]domain.Value{
			"WORKSTATION": domain.ScalarValue("CNC-01-B"),
		}))

		Expect(diag).NotTo(BeNil())
		Expect(diag.Code).To(Equal(domain.ErrorCodeWorkstationNotFound))
		Expect(diag.Suggestions).To(Equal([]string{"CNC-01"}))
	})

	It("checks every element of a list value", func() {
		diag := validator.Check(parsed("QUERY_INVENTORY", 0.8, map[string]domain.Value{
			"ITEM_NO": domain.ListValue([]any{"10-0012", "99-9999"}),
		}))

		Expect(diag).NotTo(BeNil())
		Expect(diag.Code).To(Equal(domain.ErrorCodeItemNotFound))
		Expect(diag.Message).To(ContainSubstring("99-9999"))
	})

	It("skips existence checks for kinds with no master data", func() {
		validator = New(Params{
			Catalog: validationCatalog(),
			Master: validationMaster(map[masterdata.Kind][]masterdata.Entry{
				masterdata.KindItem: {{Code: "10-0012"}},
			}),
			ConfidenceGate: 0.3,
		})

		diag := validator.Check(parsed("QUERY_INVENTORY", 0.8, map[string]domain.Value{
			"WAREHOUSE": domain.ScalarValue("W99"),
		}))
		Expect(diag).To(BeNil())
	})

	It("checks master data kinds in declared order", func() {
		diag := validator.Check(parsed("QUERY_INVENTORY", 0.8, map[string]domain.Value{
			"ITEM_NO":   domain.ScalarValue("99-9999"),
			"WAREHOUSE": domain.ScalarValue("W0X"),
		}))

		Expect(diag).NotTo(BeNil())
		Expect(diag.Code).To(Equal(domain.ErrorCodeItemNotFound))
	})
})
