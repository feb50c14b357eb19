package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := CheckRateLimit(ctx, rdb, "10.0.0.1", "auth", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should pass", i+1)
	}

	ok, err := CheckRateLimit(ctx, rdb, "10.0.0.1", "auth", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Other keys and other actions count separately.
	ok, err = CheckRateLimit(ctx, rdb, "10.0.0.2", "auth", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckRateLimit(ctx, rdb, "10.0.0.1", "public", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckRateLimitWindowResets(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	ok, err := CheckRateLimit(ctx, rdb, "10.0.0.1", "auth", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckRateLimit(ctx, rdb, "10.0.0.1", "auth", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = CheckRateLimit(ctx, rdb, "10.0.0.1", "auth", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckRateLimitWithoutRedis(t *testing.T) {
	ok, err := CheckRateLimit(context.Background(), nil, "10.0.0.1", "auth", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
