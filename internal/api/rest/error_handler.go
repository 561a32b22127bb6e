package rest

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/errors"
)

// ErrorHandler maps errors and recovered panics onto HTTP responses.
type ErrorHandler interface {
	HandleError(ctx context.Context, err error) (int, *ErrorResponse)
	HandlePanic(ctx context.Context, recovered interface{}) (int, *ErrorResponse)
}

// DefaultErrorHandler maps AppErrors onto their status and code, request validation
// failures onto 400 and everything else onto an opaque 500.
type DefaultErrorHandler struct {
	logger *slog.Logger
}

func NewErrorHandler(logger *slog.Logger) ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultErrorHandler{logger: logger}
}

func (h *DefaultErrorHandler) HandleError(ctx context.Context, err error) (int, *ErrorResponse) {
	trace.SpanFromContext(ctx).RecordError(err, trace.WithAttributes(
		attribute.String("error.type", fmt.Sprintf("%T", err)),
	))

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return h.handleDomainError(ctx, appErr)
	}

	var validationErr *ValidationError
	if stderrors.As(err, &validationErr) {
		resp := &ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: validationErr.Message,
			Fields:  validationErr.Fields,
		}
		if validationErr.Details != "" {
			resp.Details = map[string]interface{}{"reason": validationErr.Details}
		}
		return http.StatusBadRequest, resp
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, &ErrorResponse{Code: "REQUEST_TIMEOUT", Message: "Request timed out"}
	}
	if stderrors.Is(err, context.Canceled) {
		return http.StatusRequestTimeout, &ErrorResponse{Code: "REQUEST_CANCELED", Message: "Request was canceled"}
	}

	h.logger.ErrorContext(ctx, "unhandled error", "error", err)
	return http.StatusInternalServerError, &ErrorResponse{Code: "INTERNAL_ERROR", Message: "An internal error occurred"}
}

func (h *DefaultErrorHandler) HandlePanic(ctx context.Context, recovered interface{}) (int, *ErrorResponse) {
	h.logger.ErrorContext(ctx, "panic recovered",
		"panic", fmt.Sprint(recovered),
		"stack", string(debug.Stack()),
	)
	trace.SpanFromContext(ctx).RecordError(fmt.Errorf("panic: %v", recovered))
	return http.StatusInternalServerError, &ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}
}

func (h *DefaultErrorHandler) handleDomainError(ctx context.Context, err *errors.AppError) (int, *ErrorResponse) {
	status := err.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "request failed",
			"code", err.Code,
			"retryable", err.Retryable,
			"error", err,
		)
	}

	resp := &ErrorResponse{
		Code:    err.Code,
		Message: err.Message,
		Details: err.Details,
	}
	if err.Type == errors.ErrorTypeInternal {
		resp.Message = "An internal error occurred"
		resp.Details = nil
	}
	return status, resp
}
