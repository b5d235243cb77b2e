package security

import (
	"context"
	"fmt"
	"time"

	"github.com/xcellar/xcellar/internal/cache"
)

// RateLimiter throttles repeated behavior such as OTP sends, password reset
// requests and raw request volume.
type RateLimiter struct {
	store cache.Store
}

// RateResult describes the outcome of an Allow call.
type RateResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// NewRateLimiter builds a limiter on the cache store.
func NewRateLimiter(store cache.Store) (*RateLimiter, error) {
	if store == nil {
		return nil, fmt.Errorf("rate limiter requires cache store")
	}
	return &RateLimiter{store: store.Namespace("rate")}, nil
}

// Allow reports whether key may proceed within the fixed window.
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (RateResult, error) {
	if l == nil {
		return RateResult{}, fmt.Errorf("rate limiter not initialized")
	}
	if limit <= 0 {
		return RateResult{}, fmt.Errorf("limit must be positive")
	}
	if window <= 0 {
		window = time.Minute
	}

	now := time.Now().UTC()
	ttl := window
	if remain, ok := l.store.TTL(ctx, key); ok && remain > 0 {
		ttl = remain
	}

	current, err := l.store.Increment(ctx, key, 1, ttl)
	if err != nil {
		return RateResult{}, fmt.Errorf("increment rate limit counter failed: %w", err)
	}

	remaining := limit - int(current)
	if remaining < 0 {
		remaining = 0
	}

	allowed := current <= int64(limit)
	resetAt := now.Add(ttl)
	return RateResult{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the counter for key.
func (l *RateLimiter) Reset(ctx context.Context, key string) {
	if l == nil {
		return
	}
	l.store.Delete(ctx, key)
}
