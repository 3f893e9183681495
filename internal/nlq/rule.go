package nlq

import (
	"time"
)

// ruleParser is the no-network stage: fixed regex tables score the NLQ
// against the known intent shapes.
type ruleParser struct {
	now func() time.Time
}

func (r *ruleParser) parse(nlq string) ParsedIntent {
	best := ""
	bestScore := 0.0
	for _, candidate := range intentPatterns {
		if !candidate.pattern.MatchString(nlq) {
			continue
		}
		if candidate.score > bestScore {
			best = candidate.intent
			bestScore = candidate.score
		}
	}

	params := extractParams(nlq, r.now)
	if best == "" {
		result := unknownIntent()
		result.Params = params
		result.Stage = StageRule
		return result
	}

	score := bestScore + paramScoreBoost*float64(len(params))
	if score > ruleScoreCap {
		score = ruleScoreCap
	}

	return ParsedIntent{
		Intent:     best,
		Confidence: score,
		Params:     params,
		Stage:      StageRule,
	}
}
