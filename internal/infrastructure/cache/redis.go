package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/config"
)

// redisCache stores catalog snapshots and recommendation sets in Redis. Every failure is
// logged at warn: callers treat the cache as advisory and fall back to the store.
type redisCache struct {
	client *redis.Client
	logger *zap.Logger
}

func redisOptions(cfg *config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         cfg.URL,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// NewRedisCache connects and pings once so a misconfigured address fails at startup
// rather than on the first request.
func NewRedisCache(cfg *config.RedisConfig, logger *zap.Logger) (Cache, error) {
	rc, err := newRedisCache(cfg, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		_ = rc.client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("redis cache initialized",
		zap.String("addr", cfg.URL),
		zap.Int("db", cfg.DB),
		zap.Int("pool_size", cfg.PoolSize))

	return rc, nil
}

// newRedisCache builds the client without dialing; go-redis connects lazily.
func newRedisCache(cfg *config.RedisConfig, logger *zap.Logger) (*redisCache, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}
	return &redisCache{client: redis.NewClient(redisOptions(cfg)), logger: logger}, nil
}

func (r *redisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", r.readError(key, err)
	}
	return val, nil
}

func (r *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Warn("redis set failed", zap.String("key", key), zap.Duration("ttl", ttl), zap.Error(err))
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn("redis delete failed", zap.Strings("keys", keys), zap.Error(err))
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *redisCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// GetJSON decodes the entry at key. An entry that no longer decodes, for example after a
// type changed shape between releases, is evicted so the next read repopulates it.
func (r *redisCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return r.readError(key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		r.logger.Warn("evicting undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = r.client.Del(ctx, key).Err()
		return fmt.Errorf("json unmarshal failed: %w", err)
	}
	return nil
}

func (r *redisCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("json marshal failed for %s: %w", key, err)
	}
	return r.Set(ctx, key, data, ttl)
}

func (r *redisCache) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("redis close failed: %w", err)
	}
	r.logger.Info("redis cache connection closed")
	return nil
}

func (r *redisCache) readError(key string, err error) error {
	if errors.Is(err, redis.Nil) {
		return ErrCacheKeyNotFound{Key: key}
	}
	r.logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
	return fmt.Errorf("redis get failed: %w", err)
}
