package catalog

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FileSource", func() {
	var (
		ctx context.Context
		src *FileSource
	)

	BeforeEach(func() {
		ctx = context.Background()
		src = NewFileSource(filepath.Join("testdata", "metadata"))
	})

	It("reads concepts with their localized labels", func() {
		concepts, err := src.Concepts(ctx, "jp_erp")
		Expect(err).NotTo(HaveOccurred())
		Expect(concepts).To(HaveLen(4))

		Expect(concepts[0].Name).To(Equal("item"))
		Expect(concepts[0].Kind).To(BeEquivalentTo("CODE"))
		Expect(concepts[0].Labels).To(HaveKeyWithValue("zh-TW", "料號"))
		Expect(concepts[0].Synonyms).To(ContainElement("品號"))
	})

	It("reads intents", func() {
		intents, err := src.Intents(ctx, "jp_erp")
		Expect(err).NotTo(HaveOccurred())
		Expect(intents).To(HaveLen(1))
		Expect(intents[0].Name).To(Equal("QUERY_INVENTORY"))
		Expect(intents[0].RequiredFilters).To(Equal([]string{"item"}))
	})

	It("reads bindings across dialects", func() {
		bindings, err := src.Bindings(ctx, "jp_erp")
		Expect(err).NotTo(HaveOccurred())
		Expect(bindings).To(HaveLen(5))
		Expect(bindings[0].S3Path).To(HavePrefix("s3://erp-datalake/"))
	})

	It("reads table schemas from YAML", func() {
		tables, err := src.Tables(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(tables).To(HaveLen(2))
		Expect(tables[0].Name).To(Equal("mart_inventory_wide"))
		Expect(tables[0].Partitions).To(Equal([]string{"year", "month"}))
		Expect(tables[0].Columns).To(HaveLen(5))
		Expect(tables[1].S3Path).To(BeEmpty())
	})

	It("treats missing files as empty sections", func() {
		empty := NewFileSource(filepath.Join("testdata", "does-not-exist"))

		concepts, err := empty.Concepts(ctx, "jp_erp")
		Expect(err).NotTo(HaveOccurred())
		Expect(concepts).To(BeEmpty())

		tables, err := empty.Tables(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(tables).To(BeEmpty())
	})

	It("surfaces malformed JSON", func() {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "bindings.json"), []byte("{not json"), 0o644)).To(Succeed())

		_, err := NewFileSource(dir).Bindings(ctx, "jp_erp")
		Expect(err).To(MatchError(ContainSubstring("parse")))
	})

	It("loads end to end through the loader chain", func() {
		loader := NewLoader(LoaderParams{
			SystemID:       "jp_erp",
			Dialect:        "DUCKDB",
			ConceptSources: []ConceptSource{src},
			IntentSources:  []IntentSource{src},
			BindingSources: []BindingSource{src},
			TableSources:   []TableSource{src},
		})

		store, err := loader.Load(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Counts()).To(Equal(Counts{Concepts: 4, Intents: 1, Bindings: 5, Tables: 2}))

		// Legacy kinds were folded during load.
		concept, _ := store.Concept("quantity")
		Expect(concept.Kind).To(Equal(KindMetric))
	})
})
