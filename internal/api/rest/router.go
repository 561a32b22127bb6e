package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/clock"
)

// RouterConfig carries the cross-cutting collaborators of the HTTP surface.
type RouterConfig struct {
	Version string
	Logger  *slog.Logger
	// Metrics may be nil, in which case requests are not recorded.
	Metrics     APIRecorder
	RateLimiter *RateLimiter
	Health      *HealthService
	Clock       clock.Clock
	// RecommendationTimeout bounds POST /api/v1/recommendations; zero keeps the default.
	RecommendationTimeout time.Duration
}

type route struct {
	method  string
	path    string
	handler HandlerFunc
	opts    []HandlerOption
}

// NewRouter registers every endpoint on a ServeMux. Each route gets its own middleware
// chain so that metrics and logs can label requests by the matched pattern.
func NewRouter(cfg RouterConfig, services Services) *http.ServeMux {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Version == "" {
		cfg.Version = "v1"
	}

	base := NewBaseHandler(cfg.Version, cfg.Logger)
	h := NewHandler(base, services, cfg.Clock)

	middlewares := []Middleware{
		RecoveryMiddleware(base),
		RequestIDMiddleware(),
		RequestLoggingMiddleware(cfg.Logger),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, MetricsMiddleware(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		middlewares = append(middlewares, cfg.RateLimiter.Middleware(base))
	}
	chain := NewMiddlewareChain(middlewares...)

	var recommendOpts []HandlerOption
	if cfg.RecommendationTimeout > 0 {
		recommendOpts = append(recommendOpts, WithTimeout(cfg.RecommendationTimeout))
	}

	routes := []route{
		{method: http.MethodPost, path: "/api/v1/customers", handler: h.createCustomer, opts: []HandlerOption{WithStatus(http.StatusCreated)}},
		{method: http.MethodGet, path: "/api/v1/customers/{id}", handler: h.getCustomer},
		{method: http.MethodDelete, path: "/api/v1/customers/{id}", handler: h.deleteCustomer, opts: []HandlerOption{WithStatus(http.StatusNoContent)}},
		{method: http.MethodGet, path: "/api/v1/customers/external/{external_id}", handler: h.getCustomerByExternalID},
		{method: http.MethodPost, path: "/api/v1/customers/{id}/usage/csv", handler: h.ingestUsageCSV, opts: []HandlerOption{WithMaxBodySize(10 << 20)}},
		{method: http.MethodPost, path: "/api/v1/customers/{id}/usage", handler: h.ingestUsageJSON, opts: []HandlerOption{WithMaxBodySize(10 << 20)}},

		{method: http.MethodGet, path: "/api/v1/plans", handler: h.listPlans},
		{method: http.MethodGet, path: "/api/v1/plans/{id}", handler: h.getPlan},
		{method: http.MethodPost, path: "/api/v1/plans", handler: h.createPlan, opts: []HandlerOption{WithStatus(http.StatusCreated)}},
		{method: http.MethodPost, path: "/api/v1/plans/suppliers", handler: h.createSupplier, opts: []HandlerOption{WithStatus(http.StatusCreated)}},
		{method: http.MethodGet, path: "/api/v1/plans/suppliers", handler: h.listSuppliers},
		{method: http.MethodGet, path: "/api/v1/plans/suppliers/{id}", handler: h.getSupplier},

		{method: http.MethodPut, path: "/api/v1/preferences/{customer_id}", handler: h.putPreferences},
		{method: http.MethodGet, path: "/api/v1/preferences/{customer_id}", handler: h.getPreferences},
		{method: http.MethodDelete, path: "/api/v1/preferences/{customer_id}", handler: h.deletePreferences, opts: []HandlerOption{WithStatus(http.StatusNoContent)}},

		{method: http.MethodPost, path: "/api/v1/recommendations", handler: h.createRecommendations, opts: recommendOpts},
		{method: http.MethodGet, path: "/api/v1/recommendations/{customer_id}", handler: h.getRecommendations},
		{method: http.MethodDelete, path: "/api/v1/recommendations/{customer_id}", handler: h.deleteRecommendations, opts: []HandlerOption{WithStatus(http.StatusNoContent)}},

		{method: http.MethodPost, path: "/api/v1/feedback", handler: h.submitFeedback, opts: []HandlerOption{WithStatus(http.StatusCreated)}},
		{method: http.MethodGet, path: "/api/v1/feedback/stats", handler: h.feedbackStats},
		{method: http.MethodGet, path: "/api/v1/feedback/summary", handler: h.feedbackSummary},
		{method: http.MethodGet, path: "/api/v1/feedback/customers/{customer_id}", handler: h.customerFeedback},
		{method: http.MethodGet, path: "/api/v1/feedback/recommendations/{recommendation_id}", handler: h.recommendationFeedback},
		{method: http.MethodGet, path: "/api/v1/feedback/{id}", handler: h.getFeedback},
	}

	mux := http.NewServeMux()
	for _, rt := range routes {
		pattern := rt.method + " " + rt.path
		mux.Handle(pattern, chain.Then(base.WrapHandler(rt.method, rt.path, rt.handler, rt.opts...)))
	}

	if cfg.Health != nil {
		mux.Handle("GET /health", cfg.Health.LivenessHandler())
		mux.Handle("GET /health/ready", cfg.Health.ReadinessHandler())
	}
	mux.Handle("GET /openapi.yaml", http.HandlerFunc(serveOpenAPISpec))

	return mux
}
