package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exhaust(t *testing.T, limiter *RateLimiter, key string, r Rate) {
	t.Helper()
	for i := 0; i < r.Limit; i++ {
		_, err := limiter.Allow(context.Background(), key, r)
		require.NoError(t, err)
	}
	result, err := limiter.Allow(context.Background(), key, r)
	require.NoError(t, err)
	require.False(t, result.Allowed)
}

func TestInvalidateIP(t *testing.T) {
	config := DefaultConfig()
	config.IPLimit = 3
	limiter, _ := newFallbackLimiter(t, config)

	ctx := context.Background()
	ip := "192.168.1.1"
	endpointKey := "ratelimit:endpoint:register:" + ip
	otherKey := "ratelimit:ip:192.168.1.2"
	minute := Rate{Limit: 3, Period: time.Minute}

	exhaust(t, limiter, ipKey(ip), minute)
	exhaust(t, limiter, endpointKey, minute)
	exhaust(t, limiter, otherKey, minute)

	require.NoError(t, limiter.InvalidateIP(ctx, ip))

	result, err := limiter.AllowIP(ctx, ip)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = limiter.Allow(ctx, endpointKey, minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = limiter.Allow(ctx, otherKey, minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed, "other clients keep their state")
}

func TestInvalidateAll(t *testing.T) {
	limiter, _ := newFallbackLimiter(t, DefaultConfig())

	minute := Rate{Limit: 2, Period: time.Minute}
	exhaust(t, limiter, "a", minute)
	exhaust(t, limiter, "b", minute)

	require.NoError(t, limiter.InvalidateAll(context.Background()))
	assert.Equal(t, 0, limiter.GetStats()["fallback_limiters"])
}
