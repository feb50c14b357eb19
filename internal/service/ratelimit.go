package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CheckRateLimit applies a fixed-window counter per key (typically an IP) in
// redis. Returns true while the caller is under max requests for the window.
// Without redis configured the limiter is a pass-through.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, key, action string, max int, window time.Duration) (bool, error) {
	if rdb == nil {
		return true, nil
	}

	redisKey := fmt.Sprintf("rate_limit:%s:%s", action, key)

	count, err := rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}

	if count == 1 {
		if err := rdb.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= int64(max), nil
}

// RateLimitTTL reports how long until the window for key resets.
func RateLimitTTL(ctx context.Context, rdb *redis.Client, key, action string) (time.Duration, error) {
	if rdb == nil {
		return 0, nil
	}
	redisKey := fmt.Sprintf("rate_limit:%s:%s", action, key)
	return rdb.TTL(ctx, redisKey).Result()
}
