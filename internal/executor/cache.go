package executor

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"dataagentjp.io/querycore/core/config"
	"dataagentjp.io/querycore/internal/domain"
)

const (
	defaultCacheSize    = 50
	defaultCacheTTL     = 10 * time.Minute
	defaultCacheMaxRows = 5000
)

// resultCache keeps recent query results keyed by the canonical SQL
// text, so the key is computed after path mapping and pruning. Results
// above maxRows are never stored; the cached execution time is the
// original run's.
type resultCache struct {
	lru     *expirable.LRU[string, domain.QueryResult]
	maxRows int
}

func newResultCache(cfg config.ExecutorConfig) *resultCache {
	if cfg.ResultCacheDisabled {
		return &resultCache{}
	}

	size := cfg.ResultCacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	ttl := cfg.ResultCacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	maxRows := cfg.ResultCacheMaxRows
	if maxRows <= 0 {
		maxRows = defaultCacheMaxRows
	}

	return &resultCache{
		lru:     expirable.NewLRU[string, domain.QueryResult](size, nil, ttl),
		maxRows: maxRows,
	}
}

func (c *resultCache) usable() bool {
	return c.lru != nil
}

func (c *resultCache) get(key string) (*domain.QueryResult, bool) {
	if c.lru == nil {
		return nil, false
	}
	cached, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return &cached, true
}

func (c *resultCache) put(key string, result *domain.QueryResult) {
	if c.lru == nil || result == nil || result.RowCount > c.maxRows {
		return
	}
	c.lru.Add(key, *result)
}
