package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/errors"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/config"
)

// Middleware represents a function that wraps an HTTP handler
type Middleware func(http.Handler) http.Handler

// MiddlewareChain builds a chain of middleware
type MiddlewareChain struct {
	middlewares []Middleware
}

func NewMiddlewareChain(middlewares ...Middleware) *MiddlewareChain {
	return &MiddlewareChain{middlewares: middlewares}
}

// Then wraps the handler with all middleware in the chain, the first one outermost.
func (c *MiddlewareChain) Then(h http.Handler) http.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		h = c.middlewares[i](h)
	}
	return h
}

// RequestIDMiddleware propagates X-Request-ID or assigns a fresh one.
func RequestIDMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RecoveryMiddleware turns a panic into a 500 envelope.
func RecoveryMiddleware(base *BaseHandler) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					status, resp := base.errorHandler.HandlePanic(r.Context(), rec)
					base.writeError(w, r, status, resp)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLoggingMiddleware logs one line per request.
func RequestLoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			level := slog.LevelInfo
			if rec.statusCode >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(r.Context(), level, "http_request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", routeLabel(r)),
				slog.Int("status", rec.statusCode),
				slog.Int64("bytes", rec.bytesWritten),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("request_id", RequestIDFromContext(r.Context())),
				slog.String("remote_addr", getClientIP(r)),
			)
		})
	}
}

// APIRecorder receives one observation per served request.
type APIRecorder interface {
	RecordAPIRequest(ctx context.Context, durationMS float64, method, path string, statusCode int)
}

// APIRecorders fans a request observation out to several recorders.
type APIRecorders []APIRecorder

func (rs APIRecorders) RecordAPIRequest(ctx context.Context, durationMS float64, method, path string, statusCode int) {
	for _, r := range rs {
		r.RecordAPIRequest(ctx, durationMS, method, path, statusCode)
	}
}

// MetricsMiddleware records request duration and status keyed by route pattern, which
// keeps label cardinality bounded.
func MetricsMiddleware(recorder APIRecorder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			elapsed := float64(time.Since(start).Microseconds()) / 1000
			recorder.RecordAPIRequest(r.Context(), elapsed, r.Method, routeLabel(r), rec.statusCode)
		})
	}
}

// RateLimiter is a per-client token bucket.
type RateLimiter struct {
	limiters sync.Map
	rps      rate.Limit
	burst    int
	idleTTL  time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.BurstSize,
		idleTTL: 5 * time.Minute,
	}
}

// Allow consumes one token for key.
func (rl *RateLimiter) Allow(key string) bool {
	v, _ := rl.limiters.LoadOrStore(key, &clientLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)})
	cl := v.(*clientLimiter)

	cl.mu.Lock()
	cl.lastSeen = time.Now()
	cl.mu.Unlock()

	return cl.limiter.Allow()
}

// Sweep forgets clients idle since before cutoff and returns how many were dropped.
func (rl *RateLimiter) Sweep(cutoff time.Time) int {
	dropped := 0
	rl.limiters.Range(func(key, v any) bool {
		cl := v.(*clientLimiter)
		cl.mu.Lock()
		idle := cl.lastSeen.Before(cutoff)
		cl.mu.Unlock()
		if idle {
			rl.limiters.Delete(key)
			dropped++
		}
		return true
	})
	return dropped
}

// Run sweeps idle clients every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.Sweep(now.Add(-rl.idleTTL))
		}
	}
}

func (rl *RateLimiter) Middleware(base *BaseHandler) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(getClientIP(r)) {
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", int(rl.rps)))
				w.Header().Set("X-RateLimit-Remaining", "0")
				base.handleError(w, r, errors.NewRateLimitError("Too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.statusCode = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	n, err := r.ResponseWriter.Write(b)
	r.bytesWritten += int64(n)
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// routeLabel prefers the matched mux pattern over the raw path.
func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return r.URL.Path
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
