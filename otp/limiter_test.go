package otp

import (
	"context"
	"testing"
	"time"

	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterCooldown(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(15*time.Minute, 5, 30*time.Second)
	l.Now = func() time.Time { return now }

	require.NoError(t, l.CanRequest(ctx, "signup:email:a@x.com"))

	now = now.Add(10 * time.Second)
	err := l.CanRequest(ctx, "signup:email:a@x.com")
	require.Error(t, err)
	assert.Equal(t, apperr.KindTooManyRequests, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "20 seconds")

	assert.NoError(t, l.CanRequest(ctx, "signup:email:b@x.com"), "keys are independent")

	now = now.Add(21 * time.Second)
	assert.NoError(t, l.CanRequest(ctx, "signup:email:a@x.com"))
}

func TestMemoryLimiterWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(15*time.Minute, 3, 0)
	l.Now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		require.NoError(t, l.CanRequest(ctx, "k"), "request %d", i)
	}
	assert.Error(t, l.CanRequest(ctx, "k"))

	// one token refills every window/max
	now = now.Add(5 * time.Minute)
	assert.NoError(t, l.CanRequest(ctx, "k"))
	assert.Error(t, l.CanRequest(ctx, "k"))
}

func TestNoLimit(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.NoError(t, NoLimit{}.CanRequest(context.Background(), "k"))
	}
}
