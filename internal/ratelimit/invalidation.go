package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// InvalidateIP removes all rate limit state for a client IP
func (rl *RateLimiter) InvalidateIP(ctx context.Context, ip string) error {
	if !rl.redisClient.IsEnabled() {
		rl.dropFallback(func(key string) bool {
			return key == ipKey(ip) || strings.HasSuffix(key, ":"+ip)
		})
		slog.Info("Invalidated IP rate limits (in-memory)", "ip", ip)
		return nil
	}

	if err := rl.deleteByPattern(ctx, ipKey(ip)); err != nil {
		return err
	}
	return rl.deleteByPattern(ctx, fmt.Sprintf("ratelimit:endpoint:*:%s", ip))
}

// InvalidateAll removes every rate limit key
func (rl *RateLimiter) InvalidateAll(ctx context.Context) error {
	if !rl.redisClient.IsEnabled() {
		rl.dropFallback(func(string) bool { return true })
		slog.Warn("Invalidated all rate limits (in-memory)")
		return nil
	}

	slog.Warn("Invalidating all rate limits")
	return rl.deleteByPattern(ctx, "ratelimit:*")
}

func (rl *RateLimiter) dropFallback(match func(key string) bool) {
	rl.fallbackMutex.Lock()
	defer rl.fallbackMutex.Unlock()

	for key := range rl.fallbackLimiters {
		if match(key) {
			delete(rl.fallbackLimiters, key)
		}
	}
}

// deleteByPattern deletes all Redis keys matching a pattern. redis_rate
// prefixes its keys, so the pattern is matched with and without it.
func (rl *RateLimiter) deleteByPattern(ctx context.Context, pattern string) error {
	client := rl.redisClient.GetClient()
	deletedCount := 0

	for _, p := range []string{pattern, redisRatePrefix + pattern} {
		var cursor uint64
		for {
			keys, nextCursor, err := client.Scan(ctx, cursor, p, 100).Result()
			if err != nil {
				return fmt.Errorf("failed to scan keys: %w", err)
			}

			if len(keys) > 0 {
				deleted, err := client.Del(ctx, keys...).Result()
				if err != nil {
					return fmt.Errorf("failed to delete keys: %w", err)
				}
				deletedCount += int(deleted)
			}

			cursor = nextCursor
			if cursor == 0 {
				break
			}
		}
	}

	slog.Info("Deleted rate limit keys by pattern", "pattern", pattern, "count", deletedCount)
	return nil
}

const redisRatePrefix = "rate:"
