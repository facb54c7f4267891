package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares request limits across instances. A key that exceeds
// maxInWindow requests is blocked for three windows.
type RedisLimiter struct {
	rdb         redis.Cmdable
	window      time.Duration
	maxInWindow int
	cooldown    time.Duration
}

func NewRedisLimiter(rdb redis.Cmdable, window time.Duration, maxInWindow int, cooldown time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, window: window, maxInWindow: maxInWindow, cooldown: cooldown}
}

func (l *RedisLimiter) CanRequest(ctx context.Context, key string) error {
	blockKey := fmt.Sprintf("otp:block:%s", key)
	lastKey := fmt.Sprintf("otp:last:%s", key)
	countKey := fmt.Sprintf("otp:count:%s", key)

	if ttl, err := l.rdb.TTL(ctx, blockKey).Result(); err == nil && ttl > 0 {
		return apperr.TooManyRequests("too many OTP requests; please try again after %d seconds", seconds(ttl))
	}
	if ttl, err := l.rdb.TTL(ctx, lastKey).Result(); err == nil && ttl > 0 {
		return apperr.TooManyRequests("please wait %d seconds before requesting another OTP", seconds(ttl))
	}

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, countKey)
	pipe.ExpireNX(ctx, countKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "counting otp requests")
	}

	if int(incr.Val()) > l.maxInWindow {
		block := l.window * 3
		_ = l.rdb.Set(ctx, blockKey, "1", block).Err()
		return apperr.TooManyRequests("too many OTP requests; please try again after %d seconds", seconds(block))
	}

	if l.cooldown > 0 {
		_ = l.rdb.Set(ctx, lastKey, "1", l.cooldown).Err()
	}
	return nil
}
