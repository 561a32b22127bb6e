package main

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/database"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "epa",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "handler", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "epa",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
		},
		[]string{"method", "handler"},
	)

	dbConnectionPoolSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "pgxpool",
			Name:      "connections",
			Help:      "Current number of connections in the pool",
		},
		[]string{"state"},
	)

	dbConnectionPoolMax = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pgxpool",
			Name:      "max_conns",
			Help:      "Maximum number of connections in the pool",
		},
	)

	dbConnectionAcquireCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pgxpool",
			Name:      "acquire_count",
			Help:      "Cumulative number of connection acquisitions",
		},
	)
)

// prometheusRecorder exports API request metrics on /metrics alongside the OTel registry.
type prometheusRecorder struct{}

func (prometheusRecorder) RecordAPIRequest(_ context.Context, durationMS float64, method, path string, statusCode int) {
	httpRequestsTotal.WithLabelValues(method, path, statusCodeClass(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(durationMS / 1000)
}

// statusCodeClass returns the status code class (2xx, 3xx, 4xx, 5xx)
func statusCodeClass(code int) string {
	switch {
	case code >= 200 && code < 600:
		return strconv.Itoa(code/100) + "xx"
	default:
		return "unknown"
	}
}

func collectPoolStats(ctx context.Context, pool *database.ConnectionPool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stat := pool.Pool().Stat()
			dbConnectionPoolSize.WithLabelValues("active").Set(float64(stat.AcquiredConns()))
			dbConnectionPoolSize.WithLabelValues("idle").Set(float64(stat.IdleConns()))
			dbConnectionPoolSize.WithLabelValues("total").Set(float64(stat.TotalConns()))
			dbConnectionPoolMax.Set(float64(stat.MaxConns()))
			dbConnectionAcquireCount.Set(float64(stat.AcquireCount()))
		}
	}
}
