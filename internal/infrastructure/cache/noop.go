package cache

import (
	"context"
	"time"
)

// noopCache always misses. It stands in when caching is disabled.
type noopCache struct{}

func NewNoopCache() Cache {
	return noopCache{}
}

func (noopCache) Get(_ context.Context, key string) (string, error) {
	return "", ErrCacheKeyNotFound{Key: key}
}

func (noopCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }

func (noopCache) Delete(context.Context, ...string) error { return nil }

func (noopCache) GetJSON(_ context.Context, key string, _ interface{}) error {
	return ErrCacheKeyNotFound{Key: key}
}

func (noopCache) SetJSON(context.Context, string, interface{}, time.Duration) error { return nil }

func (noopCache) Ping(context.Context) error { return nil }

func (noopCache) Close() error { return nil }
