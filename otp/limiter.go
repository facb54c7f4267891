package otp

import (
	"context"
	"sync"
	"time"

	"github.com/raushankrgupta/temple-connect/apperr"
	"golang.org/x/time/rate"
)

// Limiter decides whether another code may be issued for key.
type Limiter interface {
	CanRequest(ctx context.Context, key string) error
}

// NoLimit allows every request.
type NoLimit struct{}

func (NoLimit) CanRequest(context.Context, string) error { return nil }

type visitor struct {
	limiter *rate.Limiter
	last    time.Time
}

// MemoryLimiter keeps a token bucket and a cooldown per key. It is used when
// no Redis is configured and only limits within one process.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	cooldown time.Duration
	every    rate.Limit
	burst    int
	Now      func() time.Time
}

// NewMemoryLimiter allows maxInWindow requests per window per key, and at most
// one per cooldown.
func NewMemoryLimiter(window time.Duration, maxInWindow int, cooldown time.Duration) *MemoryLimiter {
	if maxInWindow <= 0 {
		maxInWindow = 1
	}
	return &MemoryLimiter{
		visitors: make(map[string]*visitor),
		cooldown: cooldown,
		every:    rate.Every(window / time.Duration(maxInWindow)),
		burst:    maxInWindow,
		Now:      time.Now,
	}
}

func (l *MemoryLimiter) CanRequest(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.Now()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.visitors[key] = v
	}

	if !v.last.IsZero() {
		if wait := l.cooldown - now.Sub(v.last); wait > 0 {
			return apperr.TooManyRequests("please wait %d seconds before requesting another OTP", seconds(wait))
		}
	}
	if !v.limiter.AllowN(now, 1) {
		return apperr.TooManyRequests("too many OTP requests; please try again later")
	}
	v.last = now
	l.prune(now)
	return nil
}

// prune drops keys idle for longer than a full refill.
func (l *MemoryLimiter) prune(now time.Time) {
	idle := time.Duration(float64(l.burst)/float64(l.every)*float64(time.Second)) + l.cooldown
	for key, v := range l.visitors {
		if now.Sub(v.last) > idle {
			delete(l.visitors, key)
		}
	}
}

func seconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}
