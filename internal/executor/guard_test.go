package executor

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dataagentjp.io/querycore/internal/domain"
)

var _ = Describe("guardJoins", func() {
	It("passes single-table queries through untouched", func() {
		sqlText, diag := guardJoins("SELECT item_no FROM mart_inventory_wide", 1000)
		Expect(diag).To(BeNil())
		Expect(sqlText).To(Equal("SELECT item_no FROM mart_inventory_wide"))
	})

	It("refuses two joins without a WHERE clause", func() {
		sqlText, diag := guardJoins(
			"SELECT * FROM a JOIN b ON a.id = b.id JOIN c ON b.id = c.id", 1000)
		Expect(sqlText).To(BeEmpty())
		Expect(diag).NotTo(BeNil())
		Expect(diag.Code).To(Equal(domain.ErrorCodeJoinUnguarded))
		Expect(diag.Suggestions).NotTo(BeEmpty())
	})

	It("allows two joins once a WHERE clause is present", func() {
		sqlText, diag := guardJoins(
			"SELECT * FROM a JOIN b ON a.id = b.id JOIN c ON b.id = c.id WHERE a.x = 1 LIMIT 10", 1000)
		Expect(diag).To(BeNil())
		Expect(sqlText).To(ContainSubstring("WHERE a.x = 1"))
	})

	It("injects a limit into join queries lacking one", func() {
		sqlText, diag := guardJoins(
			"SELECT * FROM a JOIN b ON a.id = b.id WHERE a.x = 1", 500)
		Expect(diag).To(BeNil())
		Expect(sqlText).To(HaveSuffix(" LIMIT 500"))
	})

	It("keeps an existing limit", func() {
		sqlText, diag := guardJoins(
			"SELECT * FROM a JOIN b ON a.id = b.id WHERE a.x = 1 LIMIT 10", 500)
		Expect(diag).To(BeNil())
		Expect(sqlText).To(HaveSuffix(" LIMIT 10"))
	})

	It("does not mistake identifiers containing join for the keyword", func() {
		sqlText, diag := guardJoins("SELECT joined_at FROM events", 1000)
		Expect(diag).To(BeNil())
		Expect(sqlText).To(Equal("SELECT joined_at FROM events"))
	})

	It("counts join keywords case-insensitively", func() {
		_, diag := guardJoins(
			"SELECT * FROM a join b ON a.id = b.id Join c ON b.id = c.id", 1000)
		Expect(diag).NotTo(BeNil())
		Expect(diag.Code).To(Equal(domain.ErrorCodeJoinUnguarded))
	})
})
