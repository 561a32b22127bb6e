package rest

import (
	"context"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// HealthChecker checks the health of a dependency
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) HealthCheckResult
}

type HealthCheckResult struct {
	Status       HealthStatus `json:"status"`
	Error        string       `json:"error,omitempty"`
	ResponseTime string       `json:"response_time"`
	LastChecked  time.Time    `json:"last_checked"`
}

type HealthStatus string

const (
	HealthStatusPass HealthStatus = "pass"
	HealthStatusWarn HealthStatus = "warn"
	HealthStatusFail HealthStatus = "fail"
)

type HealthResponse struct {
	Status        HealthStatus                 `json:"status"`
	Version       string                       `json:"version"`
	ServiceName   string                       `json:"service_name"`
	UptimeSeconds float64                      `json:"uptime_seconds"`
	Checks        map[string]HealthCheckResult `json:"checks,omitempty"`
}

// HealthService answers liveness and readiness checks.
type HealthService struct {
	mu          sync.RWMutex
	checkers    []HealthChecker
	optional    map[string]bool
	timeout     time.Duration
	serviceName string
	version     string
	tracer      trace.Tracer
	startTime   time.Time
}

func NewHealthService(serviceName, version string, timeout time.Duration) *HealthService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthService{
		timeout:     timeout,
		optional:    make(map[string]bool),
		serviceName: serviceName,
		version:     version,
		tracer:      otel.Tracer("api.rest.health"),
		startTime:   time.Now(),
	}
}

func (h *HealthService) RegisterChecker(checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, checker)
}

// RegisterOptionalChecker adds a checker whose failure is reported as a warning without
// taking the instance out of rotation.
func (h *HealthService) RegisterOptionalChecker(checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, checker)
	h.optional[checker.Name()] = true
}

// LivenessHandler reports that the process is serving requests.
func (h *HealthService) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := h.tracer.Start(r.Context(), "health.liveness")
		defer span.End()

		writeHealth(w, http.StatusOK, HealthResponse{
			Status:        HealthStatusPass,
			Version:       h.version,
			ServiceName:   h.serviceName,
			UptimeSeconds: time.Since(h.startTime).Seconds(),
		})
	}
}

// ReadinessHandler runs every checker and answers 503 when a required one fails.
func (h *HealthService) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := h.tracer.Start(r.Context(), "health.readiness")
		defer span.End()

		checks := h.runChecks(ctx)
		status, code := h.overall(checks)

		span.SetAttributes(
			attribute.String("health.status", string(status)),
			attribute.Int("health.checks_count", len(checks)),
		)

		writeHealth(w, code, HealthResponse{
			Status:        status,
			Version:       h.version,
			ServiceName:   h.serviceName,
			UptimeSeconds: time.Since(h.startTime).Seconds(),
			Checks:        checks,
		})
	}
}

func (h *HealthService) overall(checks map[string]HealthCheckResult) (HealthStatus, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := HealthStatusPass
	for name, result := range checks {
		if result.Status != HealthStatusFail {
			continue
		}
		if !h.optional[name] {
			return HealthStatusFail, http.StatusServiceUnavailable
		}
		status = HealthStatusWarn
	}
	return status, http.StatusOK
}

func (h *HealthService) runChecks(ctx context.Context) map[string]HealthCheckResult {
	h.mu.RLock()
	checkers := append([]HealthChecker(nil), h.checkers...)
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]HealthCheckResult, len(checkers))
	)
	for _, c := range checkers {
		wg.Add(1)
		go func(c HealthChecker) {
			defer wg.Done()
			res := c.Check(ctx)
			mu.Lock()
			results[c.Name()] = res
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return results
}

func writeHealth(w http.ResponseWriter, status int, resp HealthResponse) {
	body, err := json.Marshal(resp)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Pinger is any dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker adapts a Pinger, such as the database pool or the cache, to HealthChecker.
type PingChecker struct {
	name   string
	pinger Pinger
}

func NewPingChecker(name string, p Pinger) *PingChecker {
	return &PingChecker{name: name, pinger: p}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) HealthCheckResult {
	start := time.Now()
	err := c.pinger.Ping(ctx)
	res := HealthCheckResult{
		Status:       HealthStatusPass,
		ResponseTime: time.Since(start).String(),
		LastChecked:  time.Now().UTC(),
	}
	if err != nil {
		res.Status = HealthStatusFail
		res.Error = err.Error()
	}
	return res
}
