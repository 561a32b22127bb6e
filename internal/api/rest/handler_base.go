package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultMaxBodySize = 1 << 20

// ResponseEnvelope wraps all API responses
type ResponseEnvelope struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
	Meta    ResponseMeta   `json:"meta"`
}

type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// ErrorResponse carries the error code, a human message and optional structured details.
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Fields  map[string][]string    `json:"fields,omitempty"`
}

// BaseHandler provides request decoding, validation, tracing and response writing
// for every endpoint.
type BaseHandler struct {
	validator    *validator.Validate
	tracer       trace.Tracer
	errorHandler ErrorHandler
	logger       *slog.Logger
	apiVersion   string
}

func NewBaseHandler(apiVersion string, logger *slog.Logger) *BaseHandler {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &BaseHandler{
		validator:    v,
		tracer:       otel.Tracer("api.rest"),
		errorHandler: NewErrorHandler(logger),
		logger:       logger,
		apiVersion:   apiVersion,
	}
}

// HandlerFunc is the shape of every endpoint: it returns the payload to wrap in the
// envelope or an error to map onto a status code.
type HandlerFunc func(ctx context.Context, r *http.Request) (interface{}, error)

// WrapHandler adapts a HandlerFunc to net/http with tracing, a timeout, body limits and
// envelope rendering.
func (h *BaseHandler) WrapHandler(method, pattern string, handler HandlerFunc, opts ...HandlerOption) http.HandlerFunc {
	cfg := &handlerConfig{
		status:      http.StatusOK,
		maxBodySize: defaultMaxBodySize,
		timeout:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	spanName := fmt.Sprintf("%s %s", method, pattern)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := h.tracer.Start(r.Context(), spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", method),
				attribute.String("http.route", pattern),
			),
		)
		defer span.End()

		if cfg.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
			defer cancel()
		}

		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.maxBodySize)
		}
		r = r.WithContext(ctx)

		res, err := handler(ctx, r)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			h.handleError(w, r, err)
			return
		}

		span.SetAttributes(attribute.Int("http.status_code", cfg.status))
		if cfg.status == http.StatusNoContent {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.writeSuccess(w, r, cfg.status, res)
	}
}

// decodeJSON reads a JSON body into v and runs struct validation on it.
func (h *BaseHandler) decodeJSON(r *http.Request, v interface{}) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return &ValidationError{Message: "Content-Type must be application/json"}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return parseBodyError(err)
	}
	if len(body) == 0 {
		return &ValidationError{Message: "Request body is required"}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return &ValidationError{Message: "Invalid JSON", Details: err.Error()}
	}

	if err := h.validator.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func parseBodyError(err error) error {
	var maxBytesError *http.MaxBytesError
	if errors.As(err, &maxBytesError) {
		return &ValidationError{
			Message: fmt.Sprintf("Request body too large (max %d bytes)", maxBytesError.Limit),
		}
	}
	return &ValidationError{Message: "Failed to read request body"}
}

// formatValidationError converts validator errors to per-field messages.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return &ValidationError{Message: "Validation error", Details: err.Error()}
	}

	fields := make(map[string][]string)
	for _, fe := range validationErrors {
		param := fe.Param()

		var msg string
		switch fe.Tag() {
		case "required":
			msg = "This field is required"
		case "min":
			msg = fmt.Sprintf("Minimum value is %s", param)
		case "max":
			msg = fmt.Sprintf("Maximum value is %s", param)
		case "oneof":
			msg = fmt.Sprintf("Must be one of: %s", param)
		case "url":
			msg = "Must be a valid URL"
		case "datetime":
			msg = fmt.Sprintf("Must be a date in format %s", param)
		default:
			msg = fmt.Sprintf("Failed %s validation", fe.Tag())
		}

		fields[fe.Field()] = append(fields[fe.Field()], msg)
	}

	return &ValidationError{Message: "Validation failed", Fields: fields}
}

func (h *BaseHandler) writeSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	h.writeJSON(w, status, ResponseEnvelope{
		Success: true,
		Data:    data,
		Meta:    h.meta(r.Context()),
	})
}

func (h *BaseHandler) writeError(w http.ResponseWriter, r *http.Request, status int, resp *ErrorResponse) {
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "1")
	}
	h.writeJSON(w, status, ResponseEnvelope{
		Success: false,
		Error:   resp,
		Meta:    h.meta(r.Context()),
	})
}

func (h *BaseHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("failed to encode response", "error", err)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"INTERNAL_ERROR","message":"failed to encode response"},"meta":{}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (h *BaseHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := h.errorHandler.HandleError(r.Context(), err)
	h.writeError(w, r, status, resp)
}

func (h *BaseHandler) meta(ctx context.Context) ResponseMeta {
	id := RequestIDFromContext(ctx)
	if id == "" {
		id = uuid.New().String()
	}
	return ResponseMeta{
		RequestID: id,
		Timestamp: time.Now().UTC(),
		Version:   h.apiVersion,
	}
}

// pathUUID parses a UUID path parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.PathValue(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &ValidationError{
			Message: fmt.Sprintf("invalid %s", name),
			Fields:  map[string][]string{name: {"Must be a valid UUID"}},
		}
	}
	return id, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &ValidationError{
			Message: fmt.Sprintf("invalid %s", name),
			Fields:  map[string][]string{name: {"Must be true or false"}},
		}
	}
	return v, nil
}

// queryLimit parses the optional limit parameter. Zero means the caller's default.
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, &ValidationError{
			Message: "invalid limit",
			Fields:  map[string][]string{"limit": {"Must be a positive integer"}},
		}
	}
	return limit, nil
}

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// RequestIDFromContext returns the id assigned by RequestIDMiddleware, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

// HandlerOption configures handler behavior
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	status      int
	maxBodySize int64
	timeout     time.Duration
}

// WithStatus sets the status code written on success.
func WithStatus(code int) HandlerOption {
	return func(c *handlerConfig) { c.status = code }
}

func WithMaxBodySize(size int64) HandlerOption {
	return func(c *handlerConfig) { c.maxBodySize = size }
}

func WithTimeout(d time.Duration) HandlerOption {
	return func(c *handlerConfig) { c.timeout = d }
}

// ValidationError is a request that failed decoding or struct validation.
type ValidationError struct {
	Message string
	Details string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	return e.Message
}
