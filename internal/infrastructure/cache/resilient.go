package cache

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/config"
)

// ResilientCache guards a Cache with a circuit breaker. Once the backing store has failed
// ConsecutiveFailures times in a row, calls fail fast with ErrCacheUnavailable until the
// breaker's timeout lets a trial request through. Misses do not count as failures.
type ResilientCache struct {
	next   Cache
	cb     *gobreaker.CircuitBreaker[any]
	logger *zap.Logger
}

func NewResilientCache(next Cache, cfg config.BreakerConfig, logger *zap.Logger) *ResilientCache {
	if logger == nil {
		logger = zap.NewNop()
	}

	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	rc := &ResilientCache{next: next, logger: logger}
	rc.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "cache",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cache circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsNotFound(err)
		},
	})
	return rc
}

// State exposes the breaker state for readiness reporting.
func (c *ResilientCache) State() gobreaker.State {
	return c.cb.State()
}

func (c *ResilientCache) run(fn func() error) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Join(ErrCacheUnavailable, err)
	}
	return err
}

func (c *ResilientCache) Get(ctx context.Context, key string) (string, error) {
	var out string
	err := c.run(func() error {
		var err error
		out, err = c.next.Get(ctx, key)
		return err
	})
	return out, err
}

func (c *ResilientCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.run(func() error { return c.next.Set(ctx, key, value, ttl) })
}

func (c *ResilientCache) Delete(ctx context.Context, keys ...string) error {
	return c.run(func() error { return c.next.Delete(ctx, keys...) })
}

func (c *ResilientCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	return c.run(func() error { return c.next.GetJSON(ctx, key, dest) })
}

func (c *ResilientCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.run(func() error { return c.next.SetJSON(ctx, key, value, ttl) })
}

// Ping bypasses the breaker so readiness reflects the real backend.
func (c *ResilientCache) Ping(ctx context.Context) error {
	return c.next.Ping(ctx)
}

func (c *ResilientCache) Close() error {
	return c.next.Close()
}
