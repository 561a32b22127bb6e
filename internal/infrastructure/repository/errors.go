package repository

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/errors"
)

// Common repository errors. Store methods return AppErrors whose cause chain carries these.
var (
	ErrNotFound     = stderrors.New("entity not found")
	ErrDuplicateKey = stderrors.New("duplicate key violation")
	ErrForeignKey   = stderrors.New("foreign key violation")
)

// IsForeignKeyViolation checks if the error is a foreign key constraint violation
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, ErrForeignKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

// IsDuplicateKeyViolation checks if the error is a unique constraint violation
func IsDuplicateKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, ErrDuplicateKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// IsNotFound checks if the error indicates a record was not found
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound) || stderrors.Is(err, pgx.ErrNoRows)
}

// IsConnectionError checks if the error is related to database connectivity
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "closed pool")
}

// WrapRepositoryError translates a driver error into the application error taxonomy.
// resource names the entity in not-found and conflict messages.
func WrapRepositoryError(err error, operation, resource string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsAppError(err); ok {
		return err
	}

	switch {
	case IsNotFound(err):
		return errors.NewNotFoundError(resource).WithCause(ErrNotFound)
	case IsDuplicateKeyViolation(err):
		return errors.NewConflictError(fmt.Sprintf("%s already exists", resource)).
			WithCause(fmt.Errorf("%w: %w", ErrDuplicateKey, err))
	case IsForeignKeyViolation(err):
		return errors.NewValidationError("INVALID_REFERENCE",
			fmt.Sprintf("%s references an entity that does not exist", resource)).
			WithCause(fmt.Errorf("%w: %w", ErrForeignKey, err))
	case IsConnectionError(err):
		return errors.NewExternalError("database", fmt.Sprintf("%s: connection failure", operation)).WithCause(err)
	default:
		return errors.NewExternalError("database", fmt.Sprintf("%s failed", operation)).WithCause(err)
	}
}
