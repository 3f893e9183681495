package nlq

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// resultCache holds canonical parse results keyed by NLQ hash. The
// local expirable LRU is authoritative; a Redis tier, when configured,
// mirrors entries so replicas share warm parses. Cache trouble must
// never fail a parse, so the Redis tier only logs its errors.
type resultCache struct {
	local *expirable.LRU[string, ParsedIntent]
	redis *redis.Client
	ttl   time.Duration
}

func newResultCache(size int, ttl time.Duration, redisClient *redis.Client) *resultCache {
	return &resultCache{
		local: expirable.NewLRU[string, ParsedIntent](size, nil, ttl),
		redis: redisClient,
		ttl:   ttl,
	}
}

// cacheKey hashes the NLQ so keys stay short and free of user text.
func cacheKey(nlq string) string {
	sum := sha256.Sum256([]byte(nlq))
	return hex.EncodeToString(sum[:])[:16]
}

func (c *resultCache) redisKey(key string) string {
	return "nlq:parse:" + key
}

func (c *resultCache) get(ctx context.Context, key string) (ParsedIntent, bool) {
	if cached, ok := c.local.Get(key); ok {
		return cached, true
	}

	if c.redis == nil {
		return ParsedIntent{}, false
	}

	raw, err := c.redis.Get(ctx, c.redisKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.DebugContext(ctx, "redis cache read failed", "error", err)
		}
		return ParsedIntent{}, false
	}

	var cached ParsedIntent
	if err := json.Unmarshal(raw, &cached); err != nil {
		slog.DebugContext(ctx, "redis cache entry malformed, ignoring", "error", err)
		return ParsedIntent{}, false
	}

	c.local.Add(key, cached)
	return cached, true
}

func (c *resultCache) put(ctx context.Context, key string, result ParsedIntent) {
	c.local.Add(key, result)

	if c.redis == nil {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, c.redisKey(key), raw, c.ttl).Err(); err != nil {
		slog.DebugContext(ctx, "redis cache write failed", "error", err)
	}
}

// purge empties the local tier. Reload endpoints call this so stale
// intents do not outlive a catalog swap.
func (c *resultCache) purge() {
	c.local.Purge()
}
