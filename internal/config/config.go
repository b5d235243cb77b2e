package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Config holds the full application configuration.
type Config struct {
	HTTP         HTTPConfig         `mapstructure:"http"`
	Log          LogConfig          `mapstructure:"log"`
	DB           DBConfig           `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Security     SecurityConfig     `mapstructure:"security"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Verification VerificationConfig `mapstructure:"verification"`
	Paystack     PaystackConfig     `mapstructure:"paystack"`
	Twilio       TwilioConfig       `mapstructure:"twilio"`
	N8N          N8NConfig          `mapstructure:"n8n"`
	Jobs         JobsConfig         `mapstructure:"jobs"`
}

// HTTPConfig defines the HTTP server settings.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	AddSource   bool   `mapstructure:"add_source"`
	Environment string `mapstructure:"environment"`
	File        string `mapstructure:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
}

// DBConfig defines database settings.
type DBConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// AuthConfig defines token and password hashing settings. Token lifetimes
// are day-based because mobile clients stay signed in for months.
type AuthConfig struct {
	SigningKey        string        `mapstructure:"signing_key"`
	AccessTokenDays   int           `mapstructure:"access_token_days"`
	RefreshTokenDays  int           `mapstructure:"refresh_token_days"`
	Issuer            string        `mapstructure:"issuer"`
	Audience          string        `mapstructure:"audience"`
	Leeway            time.Duration `mapstructure:"leeway"`
	BcryptCost        int           `mapstructure:"bcrypt_cost"`
	ResetTokenExpiry  time.Duration `mapstructure:"reset_token_expiry"`
	ResetRequestPerIP int           `mapstructure:"reset_request_per_ip"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Driver   string `mapstructure:"driver"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SecurityConfig defines request-level protections.
type SecurityConfig struct {
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	RateLimitRequests  int      `mapstructure:"rate_limit_requests"`
	RateLimitWindow    string   `mapstructure:"rate_limit_window"`
	BodyLimitBytes     int64    `mapstructure:"body_limit_bytes"`
	ServerAPIToken     string   `mapstructure:"server_api_token"`
	AutomationToken    string   `mapstructure:"automation_token"`
}

// MetricsConfig defines Prometheus metrics settings.
type MetricsConfig struct {
	Enabled   bool      `mapstructure:"enabled"`
	Namespace string    `mapstructure:"namespace"`
	Subsystem string    `mapstructure:"subsystem"`
	Buckets   []float64 `mapstructure:"buckets"`
	Token     string    `mapstructure:"token"`
}

// VerificationConfig defines phone OTP settings.
type VerificationConfig struct {
	ExpiryMinutes   int `mapstructure:"expiry_minutes"`
	MaxAttempts     int `mapstructure:"max_attempts"`
	CooldownSeconds int `mapstructure:"cooldown_seconds"`
}

// PaystackConfig defines the payment provider settings.
type PaystackConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	PublicKey string `mapstructure:"public_key"`
	BaseURL   string `mapstructure:"base_url"`
}

// TwilioConfig defines the Twilio Verify settings.
type TwilioConfig struct {
	AccountSID       string `mapstructure:"account_sid"`
	AuthToken        string `mapstructure:"auth_token"`
	VerifyServiceSID string `mapstructure:"verify_service_sid"`
}

// N8NConfig defines the workflow automation webhook settings.
type N8NConfig struct {
	HelpWebhookURL string `mapstructure:"help_webhook_url"`
	WebhookToken   string `mapstructure:"webhook_token"`
}

// JobsConfig toggles the background scheduler and its cron specs.
type JobsConfig struct {
	Enabled                  bool   `mapstructure:"enabled"`
	OfferSweeperSpec         string `mapstructure:"offer_sweeper_spec"`
	NotificationDispatchSpec string `mapstructure:"notification_dispatch_spec"`
	StaleCartCleanupSpec     string `mapstructure:"stale_cart_cleanup_spec"`
	LoginLogCleanupSpec      string `mapstructure:"login_log_cleanup_spec"`
}

func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AccessTokenTTL returns the access token lifetime.
func (c AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenDays) * 24 * time.Hour
}

// RefreshTokenTTL returns the refresh token lifetime.
func (c AuthConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenDays) * 24 * time.Hour
}

// OTPExpiry returns the verification code lifetime.
func (c VerificationConfig) OTPExpiry() time.Duration {
	return time.Duration(c.ExpiryMinutes) * time.Minute
}

// Cooldown returns the minimum gap between OTP sends for one phone.
func (c VerificationConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// RateLimitWindowDuration parses the configured window, defaulting to one
// minute when the value is absent or unparsable.
func (c SecurityConfig) RateLimitWindowDuration() time.Duration {
	window, err := time.ParseDuration(c.RateLimitWindow)
	if err != nil || window <= 0 {
		return time.Minute
	}
	return window
}

// Validate reports configuration values that cannot work at runtime.
func (c *Config) Validate() error {
	var problems []string
	if c.HTTP.Addr == "" {
		problems = append(problems, "http.addr must not be empty")
	}
	if c.DB.Path == "" {
		problems = append(problems, "database.path must not be empty")
	}
	if c.Auth.SigningKey == "" || c.Auth.SigningKey == "change-me" {
		problems = append(problems, "auth.signing_key must be set to a real secret")
	}
	if c.Auth.AccessTokenDays <= 0 {
		problems = append(problems, "auth.access_token_days must be positive")
	}
	if c.Auth.RefreshTokenDays < c.Auth.AccessTokenDays {
		problems = append(problems, "auth.refresh_token_days must not be shorter than access")
	}
	if c.Verification.MaxAttempts <= 0 {
		problems = append(problems, "verification.max_attempts must be positive")
	}
	switch c.Cache.Driver {
	case "", "memory":
	case "redis":
		if c.Cache.Addr == "" {
			problems = append(problems, "cache.addr required when cache.driver is redis")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown cache.driver %q", c.Cache.Driver))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
