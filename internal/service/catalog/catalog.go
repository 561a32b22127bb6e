package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/plan"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/cache"
	"github.com/davidleathers/energy-plan-advisor/internal/metrics"
)

const cacheName = "catalog"

// PlanStore is the persistence side of the catalog.
type PlanStore interface {
	ListActivePlans(ctx context.Context) ([]*plan.Plan, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*plan.Plan, error)
}

// Cache is the subset of the cache the catalog needs.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Recorder receives cache outcomes and catalog size.
type Recorder interface {
	RecordCacheResult(ctx context.Context, cache, outcome string)
	SetActivePlans(n int64)
}

type Config struct {
	CatalogTTL time.Duration
	PlanTTL    time.Duration
}

// CachedCatalog serves the active plan catalog read-through from the cache. Cache
// failures fall through to the store and are never returned to the caller.
type CachedCatalog struct {
	store    PlanStore
	cache    Cache
	recorder Recorder
	logger   *zap.Logger
	cfg      Config
}

func NewCachedCatalog(store PlanStore, c Cache, recorder Recorder, logger *zap.Logger, cfg Config) *CachedCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CatalogTTL <= 0 {
		cfg.CatalogTTL = cache.CatalogTTL
	}
	if cfg.PlanTTL <= 0 {
		cfg.PlanTTL = cache.PlanTTL
	}
	return &CachedCatalog{store: store, cache: c, recorder: recorder, logger: logger, cfg: cfg}
}

func PlanKey(id uuid.UUID) string {
	return cache.PlanPrefix + id.String()
}

// ActivePlans returns one consistent snapshot of the active catalog.
func (c *CachedCatalog) ActivePlans(ctx context.Context) ([]*plan.Plan, error) {
	var plans []*plan.Plan
	if c.lookup(ctx, cache.PlansAllKey, &plans) {
		return plans, nil
	}

	plans, err := c.store.ListActivePlans(ctx)
	if err != nil {
		return nil, err
	}

	c.put(ctx, cache.PlansAllKey, plans, c.cfg.CatalogTTL)
	if c.recorder != nil {
		c.recorder.SetActivePlans(int64(len(plans)))
	}
	return plans, nil
}

func (c *CachedCatalog) Plan(ctx context.Context, id uuid.UUID) (*plan.Plan, error) {
	var p plan.Plan
	if c.lookup(ctx, PlanKey(id), &p) {
		return &p, nil
	}

	found, err := c.store.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	c.put(ctx, PlanKey(id), found, c.cfg.PlanTTL)
	return found, nil
}

// Invalidate drops one plan and the catalog snapshot that contains it. Cached
// recommendation sets ranked against the old catalog go stale with it.
func (c *CachedCatalog) Invalidate(ctx context.Context, id uuid.UUID) {
	if err := c.cache.Delete(ctx, PlanKey(id), cache.PlansAllKey); err != nil {
		c.logger.Warn("catalog cache invalidation failed", zap.String("plan_id", id.String()), zap.Error(err))
	}
	c.bumpVersion(ctx)
}

func (c *CachedCatalog) InvalidateAll(ctx context.Context) {
	if err := c.cache.Delete(ctx, cache.PlansAllKey); err != nil {
		c.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
	c.bumpVersion(ctx)
}

// bumpVersion writes a fresh catalog version with no expiry.
func (c *CachedCatalog) bumpVersion(ctx context.Context) {
	c.put(ctx, cache.CatalogVersionKey, uuid.NewString(), 0)
}

// Warm loads the catalog from the store and primes both the snapshot and per-plan keys.
func (c *CachedCatalog) Warm(ctx context.Context) (int, error) {
	plans, err := c.store.ListActivePlans(ctx)
	if err != nil {
		return 0, err
	}

	c.put(ctx, cache.PlansAllKey, plans, c.cfg.CatalogTTL)
	for _, p := range plans {
		c.put(ctx, PlanKey(p.ID), p, c.cfg.PlanTTL)
	}
	if c.recorder != nil {
		c.recorder.SetActivePlans(int64(len(plans)))
	}

	c.logger.Info("catalog cache warmed", zap.Int("plans", len(plans)))
	return len(plans), nil
}

func (c *CachedCatalog) lookup(ctx context.Context, key string, dest interface{}) bool {
	err := c.cache.GetJSON(ctx, key, dest)
	switch {
	case err == nil:
		c.record(ctx, metrics.CacheHit)
		return true
	case cache.IsNotFound(err):
		c.record(ctx, metrics.CacheMiss)
	default:
		c.record(ctx, metrics.CacheError)
		c.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (c *CachedCatalog) put(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if err := c.cache.SetJSON(ctx, key, value, ttl); err != nil {
		c.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedCatalog) record(ctx context.Context, outcome string) {
	if c.recorder != nil {
		c.recorder.RecordCacheResult(ctx, cacheName, outcome)
	}
}
