package nlq

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"dataagentjp.io/querycore/common/llm"
	"dataagentjp.io/querycore/common/logger"
	"dataagentjp.io/querycore/internal/catalog"
	"dataagentjp.io/querycore/internal/domain"
)

// CatalogProvider hands the parser the current catalog snapshot for
// prompt construction.
type CatalogProvider interface {
	Current() *catalog.Store
}

type Params struct {
	Catalog CatalogProvider

	// LLM is optional; without it the cascade stops after the rule pass.
	LLM llm.Client

	// Redis is an optional second cache tier shared across replicas.
	Redis *redis.Client

	RuleThreshold  float64
	ConfidenceGate float64
	CacheSize      int
	CacheTTL       time.Duration
	MaxResults     int
	Temperature    float64
	NumPredict     int

	// Now is injectable so bare-month time descriptors are test-stable.
	Now func() time.Time
}

// Parser runs the cascade: cache, rule table, then LLM. Results above
// the gate are cached; everything below it collapses to UNKNOWN.
type Parser struct {
	catalog CatalogProvider
	rule    *ruleParser
	llm     *llmParser
	cache   *resultCache

	ruleThreshold  float64
	confidenceGate float64
	maxResults     int
}

func New(params Params) *Parser {
	now := params.Now
	if now == nil {
		now = time.Now
	}

	p := &Parser{
		catalog:        params.Catalog,
		rule:           &ruleParser{now: now},
		cache:          newResultCache(params.CacheSize, params.CacheTTL, params.Redis),
		ruleThreshold:  params.RuleThreshold,
		confidenceGate: params.ConfidenceGate,
		maxResults:     params.MaxResults,
	}
	if params.LLM != nil {
		p.llm = newLLMParser(params.LLM, params.Temperature, params.NumPredict)
	}
	return p
}

// Parse maps one NLQ to a ParsedIntent. It never fails: anything the
// cascade cannot place confidently comes back as UNKNOWN for the
// resolver to convert into a diagnostic. Callers must not mutate the
// returned params; cached entries share them.
func (p *Parser) Parse(ctx context.Context, nlq string) ParsedIntent {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "querycore.nlq.parser"})

	nlq = strings.TrimSpace(nlq)
	if nlq == "" {
		return unknownIntent()
	}

	key := cacheKey(nlq)
	if cached, ok := p.cache.get(ctx, key); ok {
		cached.TokenUsage = domain.TokenUsage{CacheHit: true}
		cached.Stage = StageCache
		slog.DebugContext(ctx, "parse cache hit", "nlq_hash", key)
		return cached
	}

	result := p.rule.parse(nlq)

	if result.Confidence < p.ruleThreshold && p.llm != nil {
		llmResult, err := p.llm.parse(ctx, nlq, p.catalog.Current().Intents())
		switch {
		case err != nil:
			// Rule result stands; the failure is already logged.
		case llmResult.Confidence < p.confidenceGate && result.Confidence > llmResult.Confidence:
			// Weak model verdict, weaker than the rules: keep the rules.
			result.TokenUsage = llmResult.TokenUsage
		default:
			llmResult.Params = mergeParams(llmResult.Params, result.Params)
			result = llmResult
		}
	}

	result.Limit, result.Offset = extractPagination(nlq, p.maxResults)

	if result.Confidence < p.confidenceGate {
		failed := unknownIntent()
		failed.Confidence = result.Confidence
		failed.TokenUsage = result.TokenUsage
		failed.Stage = result.Stage
		failed.Limit, failed.Offset = result.Limit, result.Offset
		return failed
	}

	p.cache.put(ctx, key, result)
	return result
}

// PurgeCache drops locally cached parses, used after catalog reloads.
func (p *Parser) PurgeCache() {
	p.cache.purge()
}

// mergeParams fills gaps in the model's params with rule-extracted
// ones. The regex extractors are precise on codes; the model sometimes
// drops them while still naming the right intent.
func mergeParams(primary, fallback map[string]domain.Value) map[string]domain.Value {
	if primary == nil {
		primary = map[string]domain.Value{}
	}
	for key, value := range fallback {
		if _, ok := primary[key]; !ok {
			primary[key] = value
		}
	}
	return primary
}
