package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcellar/xcellar/internal/cache"
	"github.com/xcellar/xcellar/internal/security"
)

func newTestLimiter(t *testing.T) *security.RateLimiter {
	t.Helper()
	limiter, err := security.NewRateLimiter(cache.NewStore(cache.Options{}))
	require.NoError(t, err)
	return limiter
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitRejectsOverBudget(t *testing.T) {
	handler := RateLimit(newTestLimiter(t), RateLimitConfig{
		Limit:  2,
		Window: time.Minute,
	})(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/faq", nil)
		req.RemoteAddr = "203.0.113.9:4123"
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/faq", nil)
	req.RemoteAddr = "203.0.113.9:4123"
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Another client keeps its own budget.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/faq", nil)
	req.RemoteAddr = "203.0.113.10:4123"
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitSkipsConfiguredPaths(t *testing.T) {
	handler := RateLimit(newTestLimiter(t), RateLimitConfig{
		Limit:     1,
		Window:    time.Minute,
		SkipPaths: []string{"/health"},
	})(okHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "203.0.113.9:4123"
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitNilLimiterPassesThrough(t *testing.T) {
	handler := RateLimit(nil, RateLimitConfig{Limit: 1, Window: time.Minute})(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/faq", nil)
		req.RemoteAddr = "203.0.113.9:4123"
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestCORSHonorsConfiguredOrigins(t *testing.T) {
	handler := CORS(CORSConfig{
		AllowedOrigins: []string{"https://app.xcellar.ng"},
	})(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/faq", nil)
	req.Header.Set("Origin", "https://app.xcellar.ng")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.xcellar.ng", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/faq", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS(DefaultCORSConfig())(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/faq", nil)
	req.Header.Set("Origin", "https://app.xcellar.ng")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
}

func TestBodyLimitCapsRequests(t *testing.T) {
	handler := BodyLimit(BodyLimitConfig{MaxBytes: 16})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/help/request", strings.NewReader("small"))
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/help/request", strings.NewReader(strings.Repeat("x", 64)))
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
