package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Cache outcomes recorded by RecordCacheResult.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Registry holds all domain-specific metrics for the application
type Registry struct {
	meter metric.Meter

	// Recommendation Domain Metrics
	RecommendationDuration metric.Float64Histogram
	RecommendationCounter  metric.Int64Counter
	RecommendationsPerSet  metric.Int64Histogram
	PlansFilteredCounter   metric.Int64Counter
	ContractDecisions      metric.Int64Counter

	// Catalog Metrics
	ActivePlans metric.Int64ObservableGauge

	// Ingestion and Feedback Metrics
	UsageRecordsIngested metric.Int64Counter
	UsageRowsRejected    metric.Int64Counter
	FeedbackCounter      metric.Int64Counter

	// System Metrics
	CacheRequestCounter    metric.Int64Counter
	CacheHitRate           metric.Float64ObservableGauge
	DatabaseConnectionPool metric.Int64ObservableGauge
	APIRequestDuration     metric.Float64Histogram
	APIRequestCounter      metric.Int64Counter

	// State for observable metrics
	mu          sync.RWMutex
	activePlans int64
	dbPoolSize  int64
	cacheHits   int64
	cacheTotal  int64
}

// NewRegistry creates a new metrics registry with all domain metrics
func NewRegistry(meterName string) (*Registry, error) {
	r := &Registry{meter: otel.Meter(meterName)}

	if err := r.initRecommendationMetrics(); err != nil {
		return nil, err
	}

	if err := r.initCatalogMetrics(); err != nil {
		return nil, err
	}

	if err := r.initIngestionMetrics(); err != nil {
		return nil, err
	}

	if err := r.initSystemMetrics(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Registry) initRecommendationMetrics() error {
	var err error

	r.RecommendationDuration, err = r.meter.Float64Histogram(
		"epa.recommendation.duration",
		metric.WithDescription("Wall-clock time to generate a recommendation set in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2000),
	)
	if err != nil {
		return err
	}

	r.RecommendationCounter, err = r.meter.Int64Counter(
		"epa.recommendation.requests_total",
		metric.WithDescription("Total number of recommendation requests"),
	)
	if err != nil {
		return err
	}

	r.RecommendationsPerSet, err = r.meter.Int64Histogram(
		"epa.recommendation.set_size",
		metric.WithDescription("Number of plans returned per recommendation set"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 5, 10),
	)
	if err != nil {
		return err
	}

	r.PlansFilteredCounter, err = r.meter.Int64Counter(
		"epa.recommendation.plans_filtered_total",
		metric.WithDescription("Plans removed by hard preference constraints"),
	)
	if err != nil {
		return err
	}

	r.ContractDecisions, err = r.meter.Int64Counter(
		"epa.contract.decisions_total",
		metric.WithDescription("Switch timing decisions by outcome"),
	)
	return err
}

func (r *Registry) initCatalogMetrics() error {
	var err error

	r.ActivePlans, err = r.meter.Int64ObservableGauge(
		"epa.catalog.active_plans",
		metric.WithDescription("Number of active plans in the last catalog snapshot"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.activePlans)
			return nil
		}),
	)
	return err
}

func (r *Registry) initIngestionMetrics() error {
	var err error

	r.UsageRecordsIngested, err = r.meter.Int64Counter(
		"epa.ingestion.records_total",
		metric.WithDescription("Usage records accepted by ingestion"),
	)
	if err != nil {
		return err
	}

	r.UsageRowsRejected, err = r.meter.Int64Counter(
		"epa.ingestion.rejected_rows_total",
		metric.WithDescription("Usage rows rejected during ingestion"),
	)
	if err != nil {
		return err
	}

	r.FeedbackCounter, err = r.meter.Int64Counter(
		"epa.feedback.submitted_total",
		metric.WithDescription("Feedback entries submitted"),
	)
	return err
}

func (r *Registry) initSystemMetrics() error {
	var err error

	r.CacheRequestCounter, err = r.meter.Int64Counter(
		"epa.cache.requests_total",
		metric.WithDescription("Cache lookups by cache name and outcome"),
	)
	if err != nil {
		return err
	}

	r.CacheHitRate, err = r.meter.Float64ObservableGauge(
		"epa.cache.hit_rate",
		metric.WithDescription("Cache hit rate percentage"),
		metric.WithUnit("%"),
		metric.WithFloat64Callback(func(ctx context.Context, o metric.Float64Observer) error {
			o.Observe(r.CacheHitRatio() * 100)
			return nil
		}),
	)
	if err != nil {
		return err
	}

	r.DatabaseConnectionPool, err = r.meter.Int64ObservableGauge(
		"epa.system.db_connection_pool",
		metric.WithDescription("Number of database connections in pool"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.dbPoolSize)
			return nil
		}),
	)
	if err != nil {
		return err
	}

	r.APIRequestDuration, err = r.meter.Float64Histogram(
		"epa.api.request_duration",
		metric.WithDescription("API request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500),
	)
	if err != nil {
		return err
	}

	r.APIRequestCounter, err = r.meter.Int64Counter(
		"epa.api.request_total",
		metric.WithDescription("Total number of API requests"),
	)
	return err
}

func (r *Registry) SetActivePlans(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activePlans = n
}

func (r *Registry) SetDBPoolSize(size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dbPoolSize = size
}

// CacheHitRatio returns hits over lookups since start, or 0 before the first lookup.
func (r *Registry) CacheHitRatio() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cacheTotal == 0 {
		return 0
	}
	return float64(r.cacheHits) / float64(r.cacheTotal)
}

// RecordRecommendation records one orchestrator run.
func (r *Registry) RecordRecommendation(ctx context.Context, durationMS float64, success bool, count int) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
	}

	r.RecommendationDuration.Record(ctx, durationMS, metric.WithAttributes(attrs...))
	r.RecommendationCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	if success {
		r.RecommendationsPerSet.Record(ctx, int64(count))
	}
}

func (r *Registry) RecordPlansFiltered(ctx context.Context, filterCode string, n int) {
	if n <= 0 {
		return
	}
	r.PlansFilteredCounter.Add(ctx, int64(n), metric.WithAttributes(attribute.String("filter_code", filterCode)))
}

func (r *Registry) RecordContractDecision(ctx context.Context, decision string) {
	r.ContractDecisions.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decision)))
}

// RecordCacheResult counts a cache lookup; outcome is CacheHit, CacheMiss or CacheError.
func (r *Registry) RecordCacheResult(ctx context.Context, cache, outcome string) {
	r.CacheRequestCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cache),
		attribute.String("outcome", outcome),
	))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cacheTotal++
	if outcome == CacheHit {
		r.cacheHits++
	}
}

func (r *Registry) RecordIngestion(ctx context.Context, source string, accepted, rejected int) {
	attrs := metric.WithAttributes(attribute.String("source", source))
	r.UsageRecordsIngested.Add(ctx, int64(accepted), attrs)
	r.UsageRowsRejected.Add(ctx, int64(rejected), attrs)
}

func (r *Registry) RecordFeedback(ctx context.Context, feedbackType string) {
	r.FeedbackCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("feedback_type", feedbackType)))
}

func (r *Registry) RecordAPIRequest(ctx context.Context, duration float64, method, path string, statusCode int) {
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status_code", statusCode),
	}

	r.APIRequestDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
	r.APIRequestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}
