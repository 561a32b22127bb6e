package ingestion

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/clock"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/customer"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/errors"
)

const (
	SourceCSV  = "csv"
	SourceJSON = "json"
)

// Store persists customers and their usage history.
type Store interface {
	CreateCustomer(ctx context.Context, c *customer.Customer) error
	GetCustomerByExternalID(ctx context.Context, externalID string) (*customer.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
	// SaveUsage upserts records by period and fails with not-found for an unknown customer.
	SaveUsage(ctx context.Context, customerID uuid.UUID, records []customer.UsageRecord) error
}

// Invalidator drops derived data that depends on a customer's usage.
type Invalidator interface {
	Invalidate(ctx context.Context, customerID uuid.UUID)
}

type Recorder interface {
	RecordIngestion(ctx context.Context, source string, accepted, rejected int)
}

type Config struct {
	AnonymizationSalt string
}

// NewCustomer is a customer registration, optionally with an initial usage upload.
type NewCustomer struct {
	ExternalID          string
	Anonymize           bool
	CurrentPlanID       *uuid.UUID
	ContractEndDate     *time.Time
	EarlyTerminationFee decimal.Decimal
	Usage               []map[string]any
}

type Service struct {
	store       Store
	invalidator Invalidator
	recorder    Recorder
	clock       clock.Clock
	logger      *zap.Logger
	cfg         Config
}

func NewService(store Store, invalidator Invalidator, recorder Recorder, clk clock.Clock, logger *zap.Logger, cfg Config) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Service{
		store:       store,
		invalidator: invalidator,
		recorder:    recorder,
		clock:       clk,
		logger:      logger,
		cfg:         cfg,
	}
}

// IngestCSV parses a CSV upload and stores it against an existing customer.
func (s *Service) IngestCSV(ctx context.Context, customerID uuid.UUID, r io.Reader, dateColumn, usageColumn string) (Result, error) {
	records, result := ParseCSV(r, dateColumn, usageColumn)
	return s.save(ctx, SourceCSV, customerID, records, result)
}

// IngestJSON stores JSON usage rows against an existing customer.
func (s *Service) IngestJSON(ctx context.Context, customerID uuid.UUID, rows []map[string]any) (Result, error) {
	records, result := ParseJSON(rows)
	return s.save(ctx, SourceJSON, customerID, records, result)
}

// CreateCustomer registers a customer. External ids are hashed when Anonymize is set and
// generated when absent; a duplicate external id is a conflict.
func (s *Service) CreateCustomer(ctx context.Context, in NewCustomer) (*customer.Customer, Result, error) {
	var (
		records []customer.UsageRecord
		result  = Result{Errors: []string{}, Warnings: []string{}}
	)
	if len(in.Usage) > 0 {
		records, result = ParseJSON(in.Usage)
		s.record(ctx, SourceJSON, result)
		if !result.Success {
			return nil, result, parseFailure(result)
		}
	}

	if in.EarlyTerminationFee.IsNegative() {
		return nil, result, errors.NewValidationError("INVALID_CUSTOMER", "early_termination_fee must be non-negative")
	}

	externalID := s.resolveExternalID(in.ExternalID, in.Anonymize)

	existing, err := s.store.GetCustomerByExternalID(ctx, externalID)
	switch {
	case err == nil && existing != nil:
		return nil, result, errors.NewConflictError("customer with this external_id already exists").
			WithDetails(map[string]interface{}{"external_id": externalID})
	case err != nil && !errors.IsType(err, errors.ErrorTypeNotFound):
		return nil, result, err
	}

	cust, err := customer.NewCustomer(externalID, s.clock.Now())
	if err != nil {
		return nil, result, err
	}
	cust.CurrentPlanID = in.CurrentPlanID
	cust.ContractEndDate = in.ContractEndDate
	cust.EarlyTerminationFee = in.EarlyTerminationFee
	cust.Usage = records

	if err := s.store.CreateCustomer(ctx, cust); err != nil {
		return nil, result, err
	}

	s.logger.Info("customer created",
		zap.String("customer_id", cust.ID.String()),
		zap.Int("usage_records", len(records)),
	)
	return cust, result, nil
}

// CustomerByExternalID finds a customer by the identifier they registered with. Set
// anonymized when registration hashed the identifier, so the lookup hashes it the same way.
func (s *Service) CustomerByExternalID(ctx context.Context, externalID string, anonymized bool) (*customer.Customer, error) {
	if externalID == "" {
		return nil, errors.NewValidationError("INVALID_CUSTOMER", "external_id is required")
	}
	if anonymized {
		externalID = AnonymizeExternalID(externalID, s.cfg.AnonymizationSalt)
	}
	return s.store.GetCustomerByExternalID(ctx, externalID)
}

// DeleteCustomer erases a customer with their usage, preferences, history and feedback,
// then drops anything cached for them.
func (s *Service) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, id)
	}
	s.logger.Info("customer erased", zap.String("customer_id", id.String()))
	return nil
}

func (s *Service) resolveExternalID(externalID string, anonymize bool) string {
	switch {
	case externalID == "":
		return SyntheticID()
	case anonymize:
		return AnonymizeExternalID(externalID, s.cfg.AnonymizationSalt)
	default:
		return externalID
	}
}

func (s *Service) save(ctx context.Context, source string, customerID uuid.UUID, records []customer.UsageRecord, result Result) (Result, error) {
	s.record(ctx, source, result)
	if !result.Success {
		return result, parseFailure(result)
	}

	if err := customer.ValidateUsage(records); err != nil {
		return result, err
	}

	if err := s.store.SaveUsage(ctx, customerID, records); err != nil {
		return result, err
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, customerID)
	}

	s.logger.Info("usage ingested",
		zap.String("customer_id", customerID.String()),
		zap.String("source", source),
		zap.Int("records", result.RecordsProcessed),
		zap.Int("rejected", result.RecordsFailed),
		zap.Int("warnings", len(result.Warnings)),
	)
	return result, nil
}

func (s *Service) record(ctx context.Context, source string, result Result) {
	if s.recorder != nil {
		s.recorder.RecordIngestion(ctx, source, result.RecordsProcessed, result.RecordsFailed)
	}
}

func parseFailure(result Result) error {
	return errors.NewValidationError("USAGE_PARSE_FAILED", "failed to parse usage data").
		WithDetails(map[string]interface{}{"errors": result.Errors})
}
