package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"mediflow.org/internal/obs"
)

// RedisLimiter is a fixed-window counter shared across instances. It fails
// open: when Redis is unreachable requests pass and the outage is logged,
// so a cache incident never takes the API down with it.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb *redis.Client, limitPerWindow int, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{rdb: rdb, limit: limitPerWindow, window: window}
}

func (l *RedisLimiter) Allow(r *http.Request, key string) bool {
	ctx := r.Context()
	slot := time.Now().Unix() / int64(l.window.Seconds())
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, slot)

	pipe := l.rdb.Pipeline()
	count := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		logger := obs.Logger()
		logger.Warn().Err(err).Msg("redis rate limiter unavailable")
		return true
	}
	return count.Val() <= int64(l.limit)
}
