package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/config"
)

// New builds the application cache: redis behind a circuit breaker, or a no-op cache
// when caching is disabled. An unreachable redis is not a startup error.
func New(cfg *config.Config, logger *zap.Logger) (Cache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if !cfg.Cache.Enabled {
		logger.Info("cache disabled, using no-op cache")
		return NewNoopCache(), nil
	}

	redisCache, err := NewRedisCache(&cfg.Redis, logger)
	if err != nil {
		// The breaker keeps probing, so the cache recovers once redis comes back.
		logger.Warn("redis unreachable at startup, continuing without cache",
			zap.String("addr", cfg.Redis.URL),
			zap.Error(err))
		lazy, lerr := newRedisCache(&cfg.Redis, logger)
		if lerr != nil {
			return nil, fmt.Errorf("failed to create redis cache: %w", lerr)
		}
		redisCache = lazy
	}

	logger.Info("cache initialized",
		zap.String("addr", cfg.Redis.URL),
		zap.Uint32("breaker_threshold", cfg.Cache.Breaker.ConsecutiveFailures))

	return NewResilientCache(redisCache, cfg.Cache.Breaker, logger), nil
}
