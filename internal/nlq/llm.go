package nlq

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"dataagentjp.io/querycore/common/llm"
	"dataagentjp.io/querycore/internal/catalog"
	"dataagentjp.io/querycore/internal/domain"
)

// llmReply is the decoded model verdict. Param values arrive as scalars,
// lists or time-range objects; domain.Value sorts them out.
type llmReply struct {
	Intent     string                  `json:"intent"`
	Confidence float64                 `json:"confidence"`
	Params     map[string]domain.Value `json:"params"`
}

// llmParser is the cascade's slow stage. A circuit breaker guards the
// endpoint: while open, the stage fails fast and the rule result stands.
type llmParser struct {
	client      llm.Client
	breaker     *gobreaker.CircuitBreaker
	temperature float64
	numPredict  int
}

func newLLMParser(client llm.Client, temperature float64, numPredict int) *llmParser {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "llm-parser",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("llm parser breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &llmParser{
		client:      client,
		breaker:     breaker,
		temperature: temperature,
		numPredict:  numPredict,
	}
}

// parse asks the model to classify the NLQ. Transport failures and an
// open breaker return errors; a malformed reply is discarded with a
// warning and never retried.
func (l *llmParser) parse(ctx context.Context, nlq string, intents []catalog.Intent) (ParsedIntent, error) {
	start := time.Now()
	prompt := buildPrompt(intents, tableHint(nlq), nlq)

	raw, err := l.breaker.Execute(func() (any, error) {
		return l.client.Generate(ctx, llm.Request{
			Prompt:      prompt,
			Temperature: l.temperature,
			MaxTokens:   l.numPredict,
		})
	})
	if err != nil {
		return ParsedIntent{}, fmt.Errorf("llm generate: %w", err)
	}
	resp := raw.(*llm.Response)

	usage := domain.TokenUsage{
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		TotalTokens:      resp.PromptTokens + resp.CompletionTokens,
	}

	reply, err := llm.DecodeJSON[llmReply](resp.Text)
	if err != nil {
		slog.WarnContext(ctx, "discarding malformed llm reply",
			"error", err,
			"reply", llm.StripFences(resp.Text))
		return ParsedIntent{TokenUsage: usage}, fmt.Errorf("malformed llm reply: %w", err)
	}

	params := make(map[string]domain.Value, len(reply.Params))
	for key, value := range reply.Params {
		params[strings.ToUpper(key)] = value
	}

	confidence := reply.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	slog.DebugContext(ctx, "llm parse completed",
		"intent", reply.Intent,
		"confidence", confidence,
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"duration_ms", time.Since(start).Milliseconds())

	return ParsedIntent{
		Intent:     reply.Intent,
		Confidence: confidence,
		Params:     params,
		TokenUsage: usage,
		Stage:      StageLLM,
	}, nil
}
