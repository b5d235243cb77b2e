package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadIsolated(t *testing.T) *Config {
	t.Helper()
	// Keep the loader away from any real config.yaml or .env on disk.
	t.Chdir(t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := loadIsolated(t)

	assert.Equal(t, "0.0.0.0:8000", cfg.HTTP.Addr)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "data/xcellar.db", cfg.DB.Path)
	assert.Equal(t, 180, cfg.Auth.AccessTokenDays)
	assert.Equal(t, 365, cfg.Auth.RefreshTokenDays)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.True(t, cfg.Jobs.Enabled)
	assert.Equal(t, "https://api.paystack.co", cfg.Paystack.BaseURL)
}

func TestLoadLegacyEnvNames(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_abc")
	t.Setenv("JWT_SECRET", "real-secret")
	t.Setenv("DATABASE_PATH", "/var/lib/xcellar/app.db")
	t.Setenv("OTP_MAX_ATTEMPTS", "5")

	cfg := loadIsolated(t)
	assert.Equal(t, "sk_test_abc", cfg.Paystack.SecretKey)
	assert.Equal(t, "real-secret", cfg.Auth.SigningKey)
	assert.Equal(t, "/var/lib/xcellar/app.db", cfg.DB.Path)
	assert.Equal(t, 5, cfg.Verification.MaxAttempts)
}

func TestLoadPortOverridesAddr(t *testing.T) {
	t.Setenv("PORT", "9090")
	cfg := loadIsolated(t)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr)
}

func TestValidate(t *testing.T) {
	cfg := loadIsolated(t)

	// Defaults alone are not deployable: the signing key is a placeholder.
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.signing_key")

	cfg.Auth.SigningKey = "real-secret"
	assert.NoError(t, cfg.Validate())

	cfg.Cache.Driver = "redis"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.addr")
	cfg.Cache.Addr = "localhost:6379"
	assert.NoError(t, cfg.Validate())

	cfg.Cache.Driver = "memcached"
	assert.Error(t, cfg.Validate())
	cfg.Cache.Driver = "memory"

	cfg.Auth.RefreshTokenDays = 1
	assert.Error(t, cfg.Validate())
}

func TestDerivedDurations(t *testing.T) {
	cfg := Config{
		Auth:         AuthConfig{AccessTokenDays: 2, RefreshTokenDays: 4},
		Verification: VerificationConfig{ExpiryMinutes: 5, CooldownSeconds: 60},
	}
	assert.Equal(t, 48*time.Hour, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, 96*time.Hour, cfg.Auth.RefreshTokenTTL())
	assert.Equal(t, 5*time.Minute, cfg.Verification.OTPExpiry())
	assert.Equal(t, time.Minute, cfg.Verification.Cooldown())
}

func TestRateLimitWindowDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, SecurityConfig{RateLimitWindow: "30s"}.RateLimitWindowDuration())
	assert.Equal(t, 2*time.Minute, SecurityConfig{RateLimitWindow: "2m"}.RateLimitWindowDuration())
	// Absent or garbage values fall back to one minute.
	assert.Equal(t, time.Minute, SecurityConfig{}.RateLimitWindowDuration())
	assert.Equal(t, time.Minute, SecurityConfig{RateLimitWindow: "often"}.RateLimitWindowDuration())
	assert.Equal(t, time.Minute, SecurityConfig{RateLimitWindow: "-5s"}.RateLimitWindowDuration())
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LogConfig{Level: "debug"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LogConfig{Level: "warning"}.SlogLevel())
	assert.Equal(t, slog.LevelError, LogConfig{Level: "error"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{Level: "anything"}.SlogLevel())
}
