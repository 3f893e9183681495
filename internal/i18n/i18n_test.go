package i18n

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Normalize", func() {
	DescribeTable("maps requested locales onto supported ones",
		func(requested, expected string) {
			Expect(Normalize(requested)).To(Equal(expected))
		},
		Entry("empty falls back", "", "zh-TW"),
		Entry("exact zh-TW", "zh-TW", "zh-TW"),
		Entry("exact ja", "ja", "ja"),
		Entry("exact en", "en", "en"),
		Entry("regional japanese", "ja-JP", "ja"),
		Entry("regional english", "en-US", "en"),
		Entry("garbage falls back", "???", "zh-TW"),
		Entry("unsupported language falls back", "ko", "zh-TW"),
	)
})

var _ = Describe("Message", func() {
	It("returns the localized stage message", func() {
		Expect(Message("ja", "sql_generated")).To(Equal("SQLを生成しました"))
		Expect(Message("en", "sql_generated")).To(Equal("SQL generated"))
		Expect(Message("zh-TW", "sql_generated")).To(Equal("SQL 已產生"))
	})

	It("falls back to zh-TW for unsupported locales", func() {
		Expect(Message("ko", "request_received")).To(Equal(Message("zh-TW", "request_received")))
	})

	It("returns the key itself for unknown keys", func() {
		Expect(Message("en", "no_such_key")).To(Equal("no_such_key"))
	})

	It("covers every error code in every locale", func() {
		codes := []string{
			"INTENT_UNCLEAR", "SCHEMA_NOT_FOUND", "MISSING_REQUIRED_FILTER",
			"ITEM_NOT_FOUND", "WAREHOUSE_NOT_FOUND", "WORKSTATION_NOT_FOUND",
			"AMBIGUOUS_REFERENCE", "COLUMN_NOT_FOUND", "BINDER_ERROR",
			"OUT_OF_MEMORY", "QUERY_TIMEOUT", "CONNECTION_ERROR",
			"JOIN_UNGUARDED", "QUERY_ERROR", "INTERNAL_ERROR",
		}
		for _, code := range codes {
			for _, locale := range Locales() {
				Expect(messages[code]).To(HaveKey(locale), "code %s locale %s", code, locale)
			}
		}
	})
})
