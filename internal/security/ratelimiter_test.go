package security

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcellar/xcellar/internal/cache"
)

func newLimiter(t *testing.T) *RateLimiter {
	t.Helper()
	limiter, err := NewRateLimiter(cache.NewStore(cache.Options{}))
	require.NoError(t, err)
	return limiter
}

func TestRateLimiterRequiresStore(t *testing.T) {
	_, err := NewRateLimiter(nil)
	assert.Error(t, err)
}

func TestAllowWithinLimit(t *testing.T) {
	limiter := newLimiter(t)
	ctx := t.Context()

	for i := 0; i < 3; i++ {
		result, err := limiter.Allow(ctx, "otp:+2348031234567", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 2-i, result.Remaining)
	}

	result, err := limiter.Allow(ctx, "otp:+2348031234567", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Zero(t, result.Remaining)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Minute), result.ResetAt, 5*time.Second)
}

func TestAllowKeysAreIndependent(t *testing.T) {
	limiter := newLimiter(t)
	ctx := t.Context()

	result, err := limiter.Allow(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = limiter.Allow(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	result, err = limiter.Allow(ctx, "b", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestResetClearsWindow(t *testing.T) {
	limiter := newLimiter(t)
	ctx := t.Context()

	_, err := limiter.Allow(ctx, "reset-me", 1, time.Minute)
	require.NoError(t, err)
	result, err := limiter.Allow(ctx, "reset-me", 1, time.Minute)
	require.NoError(t, err)
	require.False(t, result.Allowed)

	limiter.Reset(ctx, "reset-me")
	result, err = limiter.Allow(ctx, "reset-me", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestAllowRejectsBadLimit(t *testing.T) {
	limiter := newLimiter(t)
	_, err := limiter.Allow(t.Context(), "k", 0, time.Minute)
	assert.Error(t, err)
}

func TestLoggerRecorder(t *testing.T) {
	var buf bytes.Buffer
	recorder := NewLoggerRecorder(slog.New(slog.NewTextHandler(&buf, nil)))

	recorder.Record(t.Context(), Event{
		Kind:    "auth.login",
		ActorID: "42",
		IP:      "203.0.113.9",
	})

	logged := buf.String()
	assert.Contains(t, logged, "auth.login")
	assert.Contains(t, logged, "actor_id=42")
	assert.Contains(t, logged, "203.0.113.9")
}

func TestLoggerRecorderNilLoggerDiscards(t *testing.T) {
	recorder := NewLoggerRecorder(nil)
	// Must not panic.
	recorder.Record(t.Context(), Event{Kind: "otp.check"})
}
