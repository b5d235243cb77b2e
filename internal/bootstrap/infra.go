package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xcellar/xcellar/internal/auth/token"
	"github.com/xcellar/xcellar/internal/cache"
	"github.com/xcellar/xcellar/internal/config"
	"github.com/xcellar/xcellar/internal/notifier"
	"github.com/xcellar/xcellar/internal/security"
	"github.com/xcellar/xcellar/internal/support/hash"
)

// Infrastructure bundles the shared helpers services are built on.
type Infrastructure struct {
	Cache       cache.Store
	Token       *token.Manager
	Hasher      hash.Hasher
	Notifier    notifier.Service
	RateLimiter *security.RateLimiter
	Audit       security.Recorder
}

// BuildInfrastructure wires cache, token, hashing and notification helpers
// from configuration. The cache driver selects memory or redis.
func BuildInfrastructure(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	cacheStore, err := buildCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("cache store: %w", err)
	}

	tokenManager, err := token.NewManager(token.Options{
		SigningKey: []byte(cfg.Auth.SigningKey),
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		AccessTTL:  cfg.Auth.AccessTokenTTL(),
		RefreshTTL: cfg.Auth.RefreshTokenTTL(),
		Leeway:     cfg.Auth.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}

	hasher, err := hash.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt hasher: %w", err)
	}

	rateLimiter, err := security.NewRateLimiter(cacheStore)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	return &Infrastructure{
		Cache:       cacheStore,
		Token:       tokenManager,
		Hasher:      hasher,
		Notifier:    notifier.NewLoggerService(logger),
		RateLimiter: rateLimiter,
		Audit:       security.NewLoggerRecorder(logger),
	}, nil
}

func buildCache(cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Driver {
	case "redis":
		return cache.NewRedisStore(cache.RedisOptions{
			Addr:       cfg.Addr,
			Password:   cfg.Password,
			DB:         cfg.DB,
			DefaultTTL: 5 * time.Minute,
			Prefix:     "xcellar",
		})
	case "", "memory":
		return cache.NewStore(cache.Options{
			Prefix:          "xcellar",
			DefaultTTL:      5 * time.Minute,
			CleanupInterval: time.Minute,
		}), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}
