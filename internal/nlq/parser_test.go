package nlq

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dataagentjp.io/querycore/common/llm"
	"dataagentjp.io/querycore/internal/catalog"
)

type fakeLLM struct {
	generateFn func(ctx context.Context, req llm.Request) (*llm.Response, error)
	calls      int
}

func (f *fakeLLM) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.calls++
	return f.generateFn(ctx, req)
}

func (f *fakeLLM) Model() string { return "fake-model" }

type staticCatalog struct {
	store *catalog.Store
}

func (s staticCatalog) Current() *catalog.Store { return s.store }

func testCatalog() CatalogProvider {
	store, err := catalog.NewStore(
		[]catalog.Concept{
			{Name: "item", Kind: catalog.KindDimension},
			{Name: "quantity", Kind: catalog.KindMetric},
		},
		[]catalog.Intent{
			{Name: "QUERY_INVENTORY", Description: "庫存查詢", RequiredFilters: []string{"item"}},
			{Name: "QUERY_WORK_ORDER_COUNT", Description: "工單統計"},
		},
		nil, nil,
	)
	Expect(err).NotTo(HaveOccurred())
	return staticCatalog{store: store}
}

func newTestParser(client llm.Client) *Parser {
	params := Params{
		Catalog:        testCatalog(),
		RuleThreshold:  0.5,
		ConfidenceGate: 0.3,
		CacheSize:      100,
		CacheTTL:       time.Hour,
		MaxResults:     1000,
		Temperature:    0.03,
		NumPredict:     256,
		Now:            fixedNow,
	}
	if client != nil {
		params.LLM = client
	}
	return New(params)
}

func llmJSON(intent string, confidence float64, params string) *llm.Response {
	return &llm.Response{
		Text:             fmt.Sprintf(`{"intent":%q,"confidence":%v,"params":%s}`, intent, confidence, params),
		PromptTokens:     120,
		CompletionTokens: 30,
	}
}

var _ = Describe("Parser", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("returns UNKNOWN for an empty NLQ", func() {
		result := newTestParser(nil).Parse(ctx, "   ")
		Expect(result.Unknown()).To(BeTrue())
	})

	It("does not consult the LLM when the rules are confident", func() {
		client := &fakeLLM{}
		result := newTestParser(client).Parse(ctx, "查詢料號 10-0012 的庫存")

		Expect(result.Intent).To(Equal("QUERY_INVENTORY"))
		Expect(client.calls).To(BeZero())
		Expect(result.TokenUsage.TotalTokens).To(BeZero())
	})

	It("asks the LLM when the rules are weak and adopts its verdict", func() {
		client := &fakeLLM{generateFn: func(_ context.Context, req llm.Request) (*llm.Response, error) {
			Expect(req.Temperature).To(BeNumerically("~", 0.03, 1e-9))
			Expect(req.MaxTokens).To(Equal(256))
			Expect(req.Prompt).To(ContainSubstring("QUERY_INVENTORY"))
			Expect(req.Prompt).To(ContainSubstring("required params: ITEM_NO"))
			return llmJSON("QUERY_INVENTORY", 0.85, `{"item_no":"10-0012"}`), nil
		}}

		result := newTestParser(client).Parse(ctx, "幫我看一下那個料 10-0012 還剩多少")

		Expect(result.Intent).To(Equal("QUERY_INVENTORY"))
		Expect(result.Stage).To(Equal(StageLLM))
		Expect(result.Confidence).To(BeNumerically("~", 0.85, 1e-9))
		// Params are upper-cased and merged with rule extraction.
		Expect(result.Params["ITEM_NO"].Scalar).To(Equal("10-0012"))
		Expect(result.TokenUsage.PromptTokens).To(Equal(120))
		Expect(result.TokenUsage.TotalTokens).To(Equal(150))
		Expect(result.TokenUsage.CacheHit).To(BeFalse())
	})

	It("keeps the rule result when the model is weaker and below the gate", func() {
		client := &fakeLLM{generateFn: func(context.Context, llm.Request) (*llm.Response, error) {
			return llmJSON(IntentUnknown, 0.1, `{}`), nil
		}}
		parser := New(Params{
			Catalog:        testCatalog(),
			LLM:            client,
			RuleThreshold:  0.7,
			ConfidenceGate: 0.3,
			CacheSize:      100,
			CacheTTL:       time.Hour,
			MaxResults:     1000,
			Now:            fixedNow,
		})

		result := parser.Parse(ctx, "最近的交易紀錄")

		Expect(client.calls).To(Equal(1))
		Expect(result.Intent).To(Equal("QUERY_TRANSACTION_HISTORY"))
		Expect(result.Stage).To(Equal(StageRule))
		Expect(result.Confidence).To(BeNumerically("~", 0.65, 1e-9))
		// Token spend from the failed escalation is still reported.
		Expect(result.TokenUsage.PromptTokens).To(Equal(120))
	})

	It("discards a malformed model reply and falls back to the gate", func() {
		client := &fakeLLM{generateFn: func(context.Context, llm.Request) (*llm.Response, error) {
			return &llm.Response{Text: "not json at all", PromptTokens: 80, CompletionTokens: 5}, nil
		}}

		result := newTestParser(client).Parse(ctx, "那個東西還有嗎")
		Expect(result.Unknown()).To(BeTrue())
		Expect(client.calls).To(Equal(1))
	})

	It("collapses low-confidence results to UNKNOWN with an empty params map", func() {
		client := &fakeLLM{generateFn: func(context.Context, llm.Request) (*llm.Response, error) {
			return llmJSON("QUERY_INVENTORY", 0.2, `{"item_no":"10-0012"}`), nil
		}}

		result := newTestParser(client).Parse(ctx, "嗯")
		Expect(result.Unknown()).To(BeTrue())
		Expect(result.Params).To(BeEmpty())
		Expect(result.Confidence).To(BeNumerically("~", 0.2, 1e-9))
	})

	It("serves identical questions from the cache without another LLM call", func() {
		client := &fakeLLM{generateFn: func(context.Context, llm.Request) (*llm.Response, error) {
			return llmJSON("QUERY_INVENTORY", 0.85, `{"ITEM_NO":"10-0012"}`), nil
		}}
		parser := newTestParser(client)

		first := parser.Parse(ctx, "幫我看一下 10-0012")
		Expect(first.TokenUsage.CacheHit).To(BeFalse())
		Expect(client.calls).To(Equal(1))

		second := parser.Parse(ctx, "幫我看一下 10-0012")
		Expect(second.Intent).To(Equal(first.Intent))
		Expect(second.TokenUsage.CacheHit).To(BeTrue())
		Expect(second.TokenUsage.TotalTokens).To(BeZero())
		Expect(second.Stage).To(Equal(StageCache))
		Expect(client.calls).To(Equal(1))
	})

	It("does not cache UNKNOWN results", func() {
		client := &fakeLLM{generateFn: func(context.Context, llm.Request) (*llm.Response, error) {
			return llmJSON(IntentUnknown, 0, `{}`), nil
		}}
		parser := newTestParser(client)

		Expect(parser.Parse(ctx, "???").Unknown()).To(BeTrue())
		Expect(parser.Parse(ctx, "???").Unknown()).To(BeTrue())
		Expect(client.calls).To(Equal(2))
	})

	It("applies pagination hints to the final result", func() {
		result := newTestParser(nil).Parse(ctx, "前 10 筆 10-0012 的庫存，第 3 頁")
		Expect(result.Limit).To(Equal(10))
		Expect(result.Offset).To(Equal(20))
	})

	It("caps the extracted limit", func() {
		result := newTestParser(nil).Parse(ctx, "前 5000 筆庫存")
		Expect(result.Limit).To(Equal(1000))
	})

	It("fails fast once the breaker opens", func() {
		client := &fakeLLM{generateFn: func(context.Context, llm.Request) (*llm.Response, error) {
			return nil, errors.New("connection refused")
		}}
		parser := newTestParser(client)

		for i := 0; i < 3; i++ {
			Expect(parser.Parse(ctx, fmt.Sprintf("奇怪的問題 %d", i)).Unknown()).To(BeTrue())
		}
		Expect(client.calls).To(Equal(3))

		// Breaker is open now: the client is not touched again.
		Expect(parser.Parse(ctx, "另一個奇怪的問題").Unknown()).To(BeTrue())
		Expect(client.calls).To(Equal(3))
	})

	It("purges the cache on demand", func() {
		client := &fakeLLM{generateFn: func(context.Context, llm.Request) (*llm.Response, error) {
			return llmJSON("QUERY_INVENTORY", 0.9, `{}`), nil
		}}
		parser := newTestParser(client)

		parser.Parse(ctx, "幫我查一下那個")
		parser.PurgeCache()
		parser.Parse(ctx, "幫我查一下那個")
		Expect(client.calls).To(Equal(2))
	})
})
