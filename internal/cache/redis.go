package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configure the Redis-backed cache.
type RedisOptions struct {
	Addr       string
	Password   string
	DB         int
	DefaultTTL time.Duration
	Prefix     string
}

// NewRedisStore builds a Store on go-redis. The zero TTL falls back to
// DefaultTTL so callers behave the same against both drivers.
func NewRedisStore(opts RedisOptions) (Store, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	defaultTTL := opts.DefaultTTL
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &redisStore{
		client:     client,
		defaultTTL: defaultTTL,
		prefix:     normalizePrefix(opts.Prefix),
	}, nil
}

type redisStore struct {
	client     *redis.Client
	defaultTTL time.Duration
	prefix     string
}

func (s *redisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := encodeRedisValue(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefixed(key), data, s.normalizeTTL(ttl)).Err()
}

func (s *redisStore) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefixed(key), value, s.normalizeTTL(ttl)).Err()
}

func (s *redisStore) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefixed(key), value, s.normalizeTTL(ttl)).Err()
}

func (s *redisStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.SetBytes(ctx, key, data, ttl)
}

func (s *redisStore) Get(ctx context.Context, key string) (any, bool) {
	raw, err := s.client.Get(ctx, s.prefixed(key)).Result()
	if err != nil {
		return nil, false
	}
	return raw, true
}

func (s *redisStore) GetString(ctx context.Context, key string) (string, bool) {
	raw, err := s.client.Get(ctx, s.prefixed(key)).Result()
	if err != nil {
		return "", false
	}
	return raw, true
}

func (s *redisStore) GetBytes(ctx context.Context, key string) ([]byte, bool) {
	raw, err := s.client.Get(ctx, s.prefixed(key)).Bytes()
	if err != nil {
		return nil, false
	}
	return raw, true
}

func (s *redisStore) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, ok := s.GetBytes(ctx, key)
	if !ok {
		return false, nil
	}
	if dest == nil {
		return true, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *redisStore) Delete(ctx context.Context, key string) {
	s.client.Del(ctx, s.prefixed(key))
}

func (s *redisStore) TTL(ctx context.Context, key string) (time.Duration, bool) {
	ttl, err := s.client.TTL(ctx, s.prefixed(key)).Result()
	if err != nil || ttl <= 0 {
		return 0, false
	}
	return ttl, true
}

func (s *redisStore) Namespace(prefix string) Store {
	return &redisStore{
		client:     s.client,
		defaultTTL: s.defaultTTL,
		prefix:     joinPrefixes(s.prefix, prefix),
	}
}

func (s *redisStore) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return 0, nil
	}
	full := s.prefixed(trimmed)
	value, err := s.client.IncrBy(ctx, full, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("cache increment failed: %w", err)
	}
	// Set the expiry only when the key is fresh so the window does not slide.
	if current, err := s.client.TTL(ctx, full).Result(); err == nil && current < 0 {
		s.client.Expire(ctx, full, s.normalizeTTL(ttl))
	}
	return value, nil
}

// Ping verifies connectivity; bootstrap calls it before serving traffic.
func (s *redisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *redisStore) prefixed(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return s.prefix
	}
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *redisStore) normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return s.defaultTTL
	}
	return ttl
}

func encodeRedisValue(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, errors.New("cannot cache nil value")
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}
