package checks

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const mxCacheKeyPrefix = "mx:"

// RedisMXCache caches resolved MX hosts in Redis with a TTL.
// All Redis failures degrade to cache misses so the checker still resolves.
type RedisMXCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisMXCache builds a Redis-backed MX cache.
func NewRedisMXCache(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *RedisMXCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisMXCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached hosts for a domain, or false on miss.
func (c *RedisMXCache) Get(ctx context.Context, domain string) ([]string, bool) {
	raw, err := c.client.Get(ctx, mxCacheKeyPrefix+domain).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "mx cache read failed", "domain", domain, "error", err)
		}
		return nil, false
	}

	var hosts []string
	if err := json.Unmarshal([]byte(raw), &hosts); err != nil {
		c.logger.WarnContext(ctx, "mx cache entry corrupt", "domain", domain, "error", err)
		return nil, false
	}
	return hosts, true
}

// Set stores the hosts for a domain. Write failures are logged and dropped.
func (c *RedisMXCache) Set(ctx context.Context, domain string, hosts []string) {
	raw, err := json.Marshal(hosts)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, mxCacheKeyPrefix+domain, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "mx cache write failed", "domain", domain, "error", err)
	}
}
