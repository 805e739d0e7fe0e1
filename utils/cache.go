package utils

import (
	"context"
	"encoding/json"
	"time"
)

const (
	defaultCacheTTL = time.Minute
	cacheOpTimeout  = 2 * time.Second
	scanBatch       = 500
	maxScanRounds   = 20
)

// Cache key prefixes. Invalidation works by prefix.
const (
	CacheFeedPrefix       = "cache:posts:feed:"
	CacheUserPublicPrefix = "cache:user:public:"
	CacheTrendingKey      = "cache:trending"
)

// CacheGet decodes the JSON stored at key. A miss, a decode failure or a
// disabled Redis all report ok=false so callers go to the database.
func CacheGet[T any](ctx context.Context, key string) (T, bool) {
	var out T
	rc := GetRedis()
	if rc == nil {
		return out, false
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal(b, &out); err != nil {
		Sugar.Warnf("cache entry undecodable key=%s err=%v", key, err)
		return out, false
	}
	return out, true
}

// CacheSet stores v as JSON for ttl, or the default TTL when ttl <= 0.
func CacheSet(ctx context.Context, key string, v any, ttl time.Duration) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	b, err := json.Marshal(v)
	if err != nil {
		Sugar.Warnf("cache marshal failed key=%s err=%v", key, err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// CacheInvalidate deletes every key under the given prefixes using SCAN.
// Stale entries left behind by a failed scan expire with their TTL.
func CacheInvalidate(ctx context.Context, prefixes ...string) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	for _, prefix := range prefixes {
		var cursor uint64
		for round := 0; round < maxScanRounds; round++ {
			keys, next, err := rc.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
			if err != nil {
				Sugar.Warnf("cache invalidate failed prefix=%s err=%v", prefix, err)
				break
			}
			if len(keys) > 0 {
				if err := rc.Unlink(ctx, keys...).Err(); err != nil {
					Sugar.Warnf("cache unlink failed prefix=%s err=%v", prefix, err)
				}
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}
}
