package executor

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dataagentjp.io/querycore/internal/domain"
)

var _ = Describe("mapBackendError", func() {
	DescribeTable("maps driver text to the closed code set",
		func(err error, want domain.ErrorCode) {
			diag := mapBackendError(err)
			Expect(diag.Code).To(Equal(want))
			Expect(diag.Err).To(MatchError(err))
		},
		Entry("ambiguous column",
			errors.New(`Binder Error: Ambiguous reference to column name "item_no" (use: "a.item_no" or "b.item_no")`),
			domain.ErrorCodeAmbiguousReference),
		Entry("missing table",
			errors.New("Catalog Error: Table with name mart_unknown does not exist!"),
			domain.ErrorCodeSchemaNotFound),
		Entry("missing parquet files",
			errors.New(`IO Error: No files found that match the pattern "s3://erp-lake/raw/v1/x/*.parquet"`),
			domain.ErrorCodeSchemaNotFound),
		Entry("oracle missing table",
			errors.New("ORA-00942: table or view does not exist"),
			domain.ErrorCodeSchemaNotFound),
		Entry("missing column",
			errors.New(`Binder Error: Referenced column "qty" not found in FROM clause!`),
			domain.ErrorCodeColumnNotFound),
		Entry("oracle missing column",
			errors.New(`ORA-00904: "QTY": invalid identifier`),
			domain.ErrorCodeColumnNotFound),
		Entry("other binder failure",
			errors.New("Binder Error: aggregate function calls cannot be nested"),
			domain.ErrorCodeBinderError),
		Entry("out of memory",
			errors.New("Out of Memory Error: failed to allocate block"),
			domain.ErrorCodeOutOfMemory),
		Entry("memory limit",
			errors.New("could not allocate: exceeded memory limit of 4.0 GiB"),
			domain.ErrorCodeOutOfMemory),
		Entry("connection refused",
			fmt.Errorf("run query: %w", errors.New("dial tcp 10.0.0.5:9000: connect: connection refused")),
			domain.ErrorCodeConnectionError),
		Entry("tns resolution",
			errors.New("ORA-12154: TNS:could not resolve the connect identifier"),
			domain.ErrorCodeConnectionError),
		Entry("anything else",
			errors.New("Parser Error: syntax error at or near SELEC"),
			domain.ErrorCodeQueryError),
	)

	It("maps a deadline to QUERY_TIMEOUT with suggestions", func() {
		diag := mapBackendError(context.DeadlineExceeded)
		Expect(diag.Code).To(Equal(domain.ErrorCodeQueryTimeout))
		Expect(diag.Suggestions).To(ContainElement("narrow the time range"))
	})

	It("maps cancellation to the internal QUERY_CANCELLED", func() {
		diag := mapBackendError(context.Canceled)
		Expect(diag.Code).To(Equal(domain.ErrorCodeQueryCancelled))
	})

	It("maps a wrapped deadline ahead of text matching", func() {
		err := fmt.Errorf("query: %w", context.DeadlineExceeded)
		Expect(mapBackendError(err).Code).To(Equal(domain.ErrorCodeQueryTimeout))
	})
})
