package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	v := viper.New()

	// Default settings
	setDefaults(v)

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/xcellar/")

	// Environment variable settings
	v.SetEnvPrefix("XCELLAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 1. Try to read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// It's okay if config file is missing, we might rely on Envs/Defaults
	}

	// 2. Load .env file (parity with the legacy deployment docs)
	if err := loadDotEnv(v); err != nil {
		return nil, err
	}

	// 3. Flat env vars from the real environment win over .env values
	bindLegacyEnviron(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// PORT is how the hosting platform tells us where to listen
	if port := os.Getenv("PORT"); port != "" {
		cfg.HTTP.Addr = "0.0.0.0:" + port
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", "0.0.0.0:8000")
	v.SetDefault("http.shutdown_timeout", "15s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "production")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/xcellar.db")

	v.SetDefault("auth.signing_key", "change-me")
	v.SetDefault("auth.access_token_days", 180)
	v.SetDefault("auth.refresh_token_days", 365)
	v.SetDefault("auth.issuer", "xcellar")
	v.SetDefault("auth.audience", "xcellar-api")
	v.SetDefault("auth.leeway", "30s")
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.reset_token_expiry", "15m")
	v.SetDefault("auth.reset_request_per_ip", 5)

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.db", 0)

	v.SetDefault("security.cors_allowed_origins", []string{"*"})
	v.SetDefault("security.rate_limit_requests", 300)
	v.SetDefault("security.rate_limit_window", "1m")
	v.SetDefault("security.body_limit_bytes", 10*1024*1024)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "xcellar")
	v.SetDefault("metrics.subsystem", "http")

	v.SetDefault("verification.expiry_minutes", 5)
	v.SetDefault("verification.max_attempts", 3)
	v.SetDefault("verification.cooldown_seconds", 60)

	v.SetDefault("paystack.base_url", "https://api.paystack.co")

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.offer_sweeper_spec", "*/5 * * * *")
	v.SetDefault("jobs.notification_dispatch_spec", "* * * * *")
	v.SetDefault("jobs.stale_cart_cleanup_spec", "0 * * * *")
	v.SetDefault("jobs.login_log_cleanup_spec", "30 3 * * *")
}

func loadDotEnv(v *viper.Viper) error {
	candidates := []string{".", "..", "../.."}
	for _, path := range candidates {
		file := filepath.Clean(filepath.Join(path, ".env"))
		if _, err := os.Stat(file); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat .env: %w", err)
		}

		// Separate viper instance for .env to avoid type confusion with main config
		envViper := viper.New()
		envViper.SetConfigFile(file)
		envViper.SetConfigType("env")
		if err := envViper.ReadInConfig(); err != nil {
			return fmt.Errorf("read .env: %w", err)
		}

		for oldKey, newKey := range legacyEnvKeys {
			if val := envViper.GetString(oldKey); val != "" {
				v.Set(newKey, val)
			}
		}
	}
	return nil
}

// bindLegacyEnviron maps the flat env names the deployment docs use onto
// the hierarchical keys. Real environment variables take priority over
// anything loaded from a .env file.
func bindLegacyEnviron(v *viper.Viper) {
	for oldKey, newKey := range legacyEnvKeys {
		if val := os.Getenv(oldKey); val != "" {
			v.Set(newKey, val)
		}
	}
}

var legacyEnvKeys = map[string]string{
	"HTTP_ADDR":                   "http.addr",
	"SHUTDOWN_TIMEOUT":            "http.shutdown_timeout",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"LOG_FILE":                    "log.file",
	"ENV":                         "log.environment",
	"APP_ENV":                     "log.environment",
	"DATABASE_PATH":               "database.path",
	"DB_PATH":                     "database.path",
	"JWT_SECRET":                  "auth.signing_key",
	"SECRET_KEY":                  "auth.signing_key",
	"JWT_ACCESS_TOKEN_DAYS":       "auth.access_token_days",
	"JWT_REFRESH_TOKEN_DAYS":      "auth.refresh_token_days",
	"PASSWORD_RESET_TOKEN_EXPIRY": "auth.reset_token_expiry",
	"CACHE_DRIVER":                "cache.driver",
	"REDIS_ADDR":                  "cache.addr",
	"REDIS_PASSWORD":              "cache.password",
	"REDIS_DB":                    "cache.db",
	"CORS_ALLOWED_ORIGINS":        "security.cors_allowed_origins",
	"RATE_LIMIT_REQUESTS":         "security.rate_limit_requests",
	"RATE_LIMIT_WINDOW":           "security.rate_limit_window",
	"SERVER_API_TOKEN":            "security.server_api_token",
	"OTP_EXPIRY_MINUTES":          "verification.expiry_minutes",
	"OTP_MAX_ATTEMPTS":            "verification.max_attempts",
	"OTP_COOLDOWN_SECONDS":        "verification.cooldown_seconds",
	"PAYSTACK_SECRET_KEY":         "paystack.secret_key",
	"PAYSTACK_PUBLIC_KEY":         "paystack.public_key",
	"PAYSTACK_BASE_URL":           "paystack.base_url",
	"TWILIO_ACCOUNT_SID":          "twilio.account_sid",
	"TWILIO_AUTH_TOKEN":           "twilio.auth_token",
	"TWILIO_VERIFY_SERVICE_SID":   "twilio.verify_service_sid",
	"N8N_HELP_WEBHOOK_URL":        "n8n.help_webhook_url",
	"N8N_WEBHOOK_TOKEN":           "n8n.webhook_token",
	"AUTOMATION_WEBHOOK_TOKEN":    "security.automation_token",
}
