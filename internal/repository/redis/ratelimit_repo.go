package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const RateLimitPrefix = "ratelimit"

// RateLimitRepository keeps fixed-window request counters.
type RateLimitRepository struct {
	RDB *redis.Client
}

// IncrWithExpire increments key; the first hit of a window sets its expiry.
func (r *RateLimitRepository) IncrWithExpire(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := r.RDB.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := r.RDB.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// Allow 统计 scope+subject 在当前窗口内的次数，超过 limit 返回 false
func (r *RateLimitRepository) Allow(ctx context.Context, scope, subject string, limit int, window time.Duration) (bool, int64, error) {
	key := fmt.Sprintf("%s:%s:%s", RateLimitPrefix, scope, subject)
	count, err := r.IncrWithExpire(ctx, key, window)
	if err != nil {
		return false, 0, err
	}
	return count <= int64(limit), count, nil
}
