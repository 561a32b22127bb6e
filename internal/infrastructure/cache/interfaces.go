package cache

import (
	"context"
	"errors"
	"time"
)

// Cache provides a generic caching interface with support for TTL
type Cache interface {
	// Get retrieves a value by key
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value with optional TTL
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes one or more keys
	Delete(ctx context.Context, keys ...string) error

	// GetJSON retrieves and unmarshals JSON data
	GetJSON(ctx context.Context, key string, dest interface{}) error

	// SetJSON marshals and stores JSON data
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Ping reports whether the backing store is reachable
	Ping(ctx context.Context) error

	// Close closes the cache connection
	Close() error
}

// Key prefixes for consistent cache key naming
const (
	RecommendationPrefix = "recommendations:"
	PlanPrefix           = "plans:"
	PlansAllKey          = "plans:all"

	// CatalogVersionKey holds a token rewritten on every catalog change. Cached
	// recommendation sets carry the token they were ranked against.
	CatalogVersionKey = "plans:version"
)

// Common TTL values
const (
	RecommendationTTL = 1 * time.Hour
	CatalogTTL        = 5 * time.Minute
	PlanTTL           = 10 * time.Minute
)

// ErrCacheKeyNotFound is returned when a cache key doesn't exist
type ErrCacheKeyNotFound struct {
	Key string
}

func (e ErrCacheKeyNotFound) Error() string {
	return "cache key not found: " + e.Key
}

// ErrCacheUnavailable is returned while the circuit breaker is open.
var ErrCacheUnavailable = errors.New("cache unavailable")

// IsNotFound reports whether err is a cache miss rather than a failure.
func IsNotFound(err error) bool {
	var nf ErrCacheKeyNotFound
	return errors.As(err, &nf)
}
