package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ISearchCache caches search responses keyed by their normalised query parameters.
// Get reports the generation it looked under; pass it back to Set so a result computed
// before an Invalidate is never stored where later readers can see it.
type ISearchCache interface {
	Get(ctx context.Context, params map[string]string, dest interface{}) (gen string, hit bool, err error)
	Set(ctx context.Context, gen string, params map[string]string, value interface{}) error
	// Invalidate makes every cached entry unreachable.
	Invalidate(ctx context.Context) error
}

// redisSearchCache namespaces keys with a generation counter; bumping the counter
// invalidates all entries at once and the stale ones expire through their TTL.
type redisSearchCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSearchCache returns a Redis-backed cache, or a no-op cache when rdb is nil or ttl is not positive.
func NewSearchCache(rdb *redis.Client, prefix string, ttl time.Duration) ISearchCache {
	if rdb == nil || ttl <= 0 {
		return noopSearchCache{}
	}
	return &redisSearchCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *redisSearchCache) genKey() string {
	return c.prefix + ":gen"
}

func (c *redisSearchCache) generation(ctx context.Context) (string, error) {
	gen, err := c.rdb.Get(ctx, c.genKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cache generation: %w", err)
	}
	return gen, nil
}

func (c *redisSearchCache) Get(ctx context.Context, params map[string]string, dest interface{}) (string, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", false, err
	}
	data, err := c.rdb.Get(ctx, c.entryKey(gen, params)).Bytes()
	if errors.Is(err, redis.Nil) {
		return gen, false, nil
	}
	if err != nil {
		return gen, false, fmt.Errorf("failed to read cached search: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return gen, false, fmt.Errorf("failed to decode cached search: %w", err)
	}
	return gen, true, nil
}

// Set stores value under gen. An empty gen means Get failed, and nothing is written.
func (c *redisSearchCache) Set(ctx context.Context, gen string, params map[string]string, value interface{}) error {
	if gen == "" {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode search for cache: %w", err)
	}
	return c.rdb.Set(ctx, c.entryKey(gen, params), data, c.ttl).Err()
}

func (c *redisSearchCache) entryKey(gen string, params map[string]string) string {
	return GenerateQueryCacheKey(c.prefix+":"+gen, params)
}

func (c *redisSearchCache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, c.genKey()).Err()
}

type noopSearchCache struct{}

func (noopSearchCache) Get(context.Context, map[string]string, interface{}) (string, bool, error) {
	return "", false, nil
}
func (noopSearchCache) Set(context.Context, string, map[string]string, interface{}) error { return nil }
func (noopSearchCache) Invalidate(context.Context) error                                  { return nil }

// GenerateQueryCacheKey builds a stable key from query parameters regardless of their order.
// Empty values are skipped so "?beds=" and no beds parameter share an entry.
func GenerateQueryCacheKey(prefix string, queryParams map[string]string) string {
	keys := make([]string, 0, len(queryParams))
	for k, v := range queryParams {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var builder strings.Builder
	for i, k := range keys {
		if i > 0 {
			builder.WriteString("&")
		}
		builder.WriteString(k)
		builder.WriteString("=")
		builder.WriteString(queryParams[k])
	}

	hash := md5.Sum([]byte(builder.String()))
	return prefix + ":" + hex.EncodeToString(hash[:])
}
