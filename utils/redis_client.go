package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deep3/social/config"
)

// RedisDisabled as the configured host turns caching and shared revocation off.
const RedisDisabled = "disabled"

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// GetRedis returns the shared client, or nil when Redis is disabled.
// The first call pings the server but a failed ping only logs: every caller
// treats Redis errors as cache misses.
func GetRedis() *redis.Client {
	redisOnce.Do(func() {
		cfg := config.Get()
		if cfg.RedisHost == "" || cfg.RedisHost == RedisDisabled {
			return
		}
		redisClient = redis.NewClient(&redis.Options{
			Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  3 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		})
		if status := RedisStatus(context.Background()); status != "ok" {
			Sugar.Warnf("redis %s at %s, cache will miss until it recovers", status, redisClient.Options().Addr)
		}
	})
	return redisClient
}

// RedisStatus reports "ok", "down" or "disabled" for health checks.
func RedisStatus(ctx context.Context) string {
	if redisClient == nil {
		return RedisDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return "down"
	}
	return "ok"
}

// CloseRedis releases the shared client on shutdown.
func CloseRedis() {
	if redisClient == nil {
		return
	}
	if err := redisClient.Close(); err != nil {
		Sugar.Warnf("redis close: %v", err)
	}
}
