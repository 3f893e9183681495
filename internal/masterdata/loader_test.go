package masterdata_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dataagentjp.io/querycore/internal/masterdata"
)

type fakeSource struct {
	name string
	data map[masterdata.Kind][]masterdata.Entry
	err  error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Load(context.Context) (map[masterdata.Kind][]masterdata.Entry, error) {
	return f.data, f.err
}

var _ = Describe("Loader", func() {
	It("fills each kind from the first source that has it", func() {
		primary := &fakeSource{name: "postgres", data: map[masterdata.Kind][]masterdata.Entry{
			masterdata.KindItem: {{Code: "10-0012"}},
		}}
		fallback := &fakeSource{name: "files", data: map[masterdata.Kind][]masterdata.Entry{
			masterdata.KindItem:      {{Code: "99-9999"}},
			masterdata.KindWarehouse: {{Code: "W01"}},
		}}

		store, err := masterdata.NewLoader(primary, fallback).Load(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(store.Exists(masterdata.KindItem, "10-0012")).To(BeTrue())
		Expect(store.Exists(masterdata.KindItem, "99-9999")).To(BeFalse())
		Expect(store.Exists(masterdata.KindWarehouse, "W01")).To(BeTrue())
	})

	It("falls through when a source errors", func() {
		broken := &fakeSource{name: "postgres", err: errors.New("connection refused")}
		fallback := &fakeSource{name: "files", data: map[masterdata.Kind][]masterdata.Entry{
			masterdata.KindWarehouse: {{Code: "W01"}},
		}}

		store, err := masterdata.NewLoader(broken, fallback).Load(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Exists(masterdata.KindWarehouse, "W01")).To(BeTrue())
	})

	It("produces a permissive store when nothing loads", func() {
		store, err := masterdata.NewLoader(&fakeSource{name: "files"}).Load(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Validatable(masterdata.KindItem)).To(BeFalse())
		Expect(store.Exists(masterdata.KindItem, "anything")).To(BeTrue())
	})
})

var _ = Describe("FileSource", func() {
	It("reads the bundled reference files", func() {
		src := masterdata.NewFileSource(filepath.Join("testdata", "metadata"))

		data, err := src.Load(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(data[masterdata.KindItem]).To(HaveLen(4))
		Expect(data[masterdata.KindWarehouse]).To(HaveLen(5))
		Expect(data[masterdata.KindWorkstation]).To(HaveLen(3))

		Expect(data[masterdata.KindItem][0].Code).To(Equal("10-0012"))
		Expect(data[masterdata.KindItem][0].Name).NotTo(BeEmpty())
	})

	It("skips missing files without error", func() {
		src := masterdata.NewFileSource(filepath.Join("testdata", "nope"))
		data, err := src.Load(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(BeEmpty())
	})

	It("surfaces malformed JSON", func() {
		dir := GinkgoT().TempDir()
		Expect(os.MkdirAll(filepath.Join(dir, "master_data"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "master_data", "items.json"), []byte("nope"), 0o644)).To(Succeed())

		_, err := masterdata.NewFileSource(dir).Load(context.Background())
		Expect(err).To(MatchError(ContainSubstring("parse")))
	})
})

var _ = Describe("Holder", func() {
	It("swaps snapshots atomically on reload", func() {
		src := &fakeSource{name: "files", data: map[masterdata.Kind][]masterdata.Entry{
			masterdata.KindItem: {{Code: "10-0012"}},
		}}
		holder := masterdata.NewHolder(masterdata.NewLoader(src))

		Expect(holder.Load(context.Background())).To(Succeed())
		first := holder.Current()

		src.data = map[masterdata.Kind][]masterdata.Entry{masterdata.KindItem: {{Code: "10-0013"}}}
		Expect(holder.Reload(context.Background())).To(Succeed())

		Expect(holder.Current()).NotTo(BeIdenticalTo(first))
		Expect(holder.Current().Exists(masterdata.KindItem, "10-0013")).To(BeTrue())
		Expect(holder.Current().Exists(masterdata.KindItem, "10-0012")).To(BeFalse())
	})
})
