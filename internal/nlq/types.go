// Package nlq maps free-text questions to parsed intents through a
// three-stage cascade: result cache, regex rule table, LLM classifier.
package nlq

import (
	"dataagentjp.io/querycore/internal/domain"
)

// IntentUnknown is returned when no stage clears the confidence gate.
const IntentUnknown = "UNKNOWN"

// Stage names which cascade stage produced a result.
type Stage string

const (
	StageCache Stage = "cache"
	StageRule  Stage = "rule"
	StageLLM   Stage = "llm"
)

// ParsedIntent is the parser's verdict on one NLQ. Params are keyed by
// upper snake case parameter names (ITEM_NO, WAREHOUSE, TIME_RANGE, ...);
// domain.ConceptForParam translates them to catalog concepts downstream.
type ParsedIntent struct {
	Intent     string                  `json:"intent"`
	Confidence float64                 `json:"confidence"`
	Params     map[string]domain.Value `json:"params,omitempty"`
	Limit      int                     `json:"limit,omitempty"`
	Offset     int                     `json:"offset,omitempty"`
	TokenUsage domain.TokenUsage       `json:"token_usage"`
	Stage      Stage                   `json:"stage,omitempty"`
}

// Unknown reports whether the parse failed to identify an intent.
func (p ParsedIntent) Unknown() bool {
	return p.Intent == IntentUnknown || p.Intent == ""
}

func unknownIntent() ParsedIntent {
	return ParsedIntent{
		Intent: IntentUnknown,
		Params: map[string]domain.Value{},
	}
}
