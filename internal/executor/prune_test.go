package executor

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dataagentjp.io/querycore/internal/domain"
)

var _ = Describe("prunePartitions", func() {
	const mapped = "SELECT * FROM read_parquet(" +
		"'s3://erp-lake/raw/v1/mart_inventory_wide/year=*/month=*/data.parquet'" +
		", hive_partitioning=true) AS mart_inventory_wide"

	It("narrows the glob from the resolver hint", func() {
		out := prunePartitions(mapped, &domain.TimeRange{Start: "2026-01-01", End: "2026-02-01"})
		Expect(out).To(ContainSubstring("year=2026/month=01"))
		Expect(out).NotTo(ContainSubstring("year=*"))
	})

	It("falls back to the BETWEEN range in the SQL text", func() {
		sqlText := mapped + " WHERE transaction_date BETWEEN '2025-11-01' AND '2025-12-01'"
		out := prunePartitions(sqlText, nil)
		Expect(out).To(ContainSubstring("year=2025/month=11"))
	})

	It("prefers the hint over the SQL text", func() {
		sqlText := mapped + " WHERE transaction_date BETWEEN '2025-11-01' AND '2025-12-01'"
		out := prunePartitions(sqlText, &domain.TimeRange{Start: "2026-03-15", End: "2026-04-01"})
		Expect(out).To(ContainSubstring("year=2026/month=03"))
	})

	It("leaves the glob alone without a date source", func() {
		Expect(prunePartitions(mapped, nil)).To(Equal(mapped))
	})

	It("leaves SQL without a wildcard partition alone", func() {
		sqlText := "SELECT * FROM t WHERE d BETWEEN '2026-01-01' AND '2026-02-01'"
		Expect(prunePartitions(sqlText, nil)).To(Equal(sqlText))
	})

	It("ignores malformed hint dates", func() {
		out := prunePartitions(mapped, &domain.TimeRange{Start: "soon"})
		Expect(out).To(Equal(mapped))
	})
})
