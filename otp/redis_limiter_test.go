package otp

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRedisLimiter runs against a real server when REDIS_TEST_ADDR is set.
func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx).Err())

	key := "test:" + uuid.NewString()
	defer rdb.Del(ctx, "otp:block:"+key, "otp:last:"+key, "otp:count:"+key)

	l := NewRedisLimiter(rdb, time.Minute, 2, 0)
	require.NoError(t, l.CanRequest(ctx, key))
	require.NoError(t, l.CanRequest(ctx, key))

	err := l.CanRequest(ctx, key)
	require.Error(t, err)
	assert.Equal(t, apperr.KindTooManyRequests, apperr.KindOf(err))

	ttl, err := rdb.TTL(ctx, "otp:block:"+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 2*time.Minute)

	cooled := NewRedisLimiter(rdb, time.Minute, 5, time.Minute)
	other := key + ":cooldown"
	defer rdb.Del(ctx, "otp:last:"+other, "otp:count:"+other)
	require.NoError(t, cooled.CanRequest(ctx, other))
	err = cooled.CanRequest(ctx, other)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before requesting another OTP")
}
