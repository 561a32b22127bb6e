package feedback

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/clock"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/customer"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/feedback"
)

const (
	DefaultListLimit = 10
	maxListLimit     = 100
)

// Store persists feedback entries.
type Store interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*customer.Customer, error)
	CreateFeedback(ctx context.Context, f *feedback.Feedback) error
	ListFeedbackByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]feedback.Feedback, error)
	ListFeedbackByRecommendation(ctx context.Context, recommendationID uuid.UUID) ([]feedback.Feedback, error)
	ListRecentFeedback(ctx context.Context, limit int) ([]feedback.Feedback, error)
	GetFeedback(ctx context.Context, id uuid.UUID) (*feedback.Feedback, error)
	FeedbackStats(ctx context.Context) (*feedback.Stats, error)
}

type Recorder interface {
	RecordFeedback(ctx context.Context, feedbackType string)
}

// Service captures customer reactions to recommendations
type Service struct {
	store    Store
	recorder Recorder
	clock    clock.Clock
	logger   *zap.Logger
}

func NewService(store Store, recorder Recorder, clk clock.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Service{store: store, recorder: recorder, clock: clk, logger: logger}
}

// Submit validates and stores feedback for an existing customer.
func (s *Service) Submit(ctx context.Context, f *feedback.Feedback) (*feedback.Feedback, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.store.GetCustomer(ctx, f.CustomerID); err != nil {
		return nil, err
	}

	f.ID = uuid.New()
	f.CreatedAt = s.clock.Now()

	if err := s.store.CreateFeedback(ctx, f); err != nil {
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.RecordFeedback(ctx, string(f.Type))
	}

	s.logger.Info("feedback submitted",
		zap.String("feedback_id", f.ID.String()),
		zap.String("customer_id", f.CustomerID.String()),
		zap.String("feedback_type", string(f.Type)),
	)
	return f, nil
}

// ForCustomer returns a customer's most recent feedback first.
func (s *Service) ForCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]feedback.Feedback, error) {
	return s.store.ListFeedbackByCustomer(ctx, customerID, clampLimit(limit))
}

func (s *Service) ForRecommendation(ctx context.Context, recommendationID uuid.UUID) ([]feedback.Feedback, error) {
	return s.store.ListFeedbackByRecommendation(ctx, recommendationID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*feedback.Feedback, error) {
	return s.store.GetFeedback(ctx, id)
}

func (s *Service) Stats(ctx context.Context) (*feedback.Stats, error) {
	return s.store.FeedbackStats(ctx)
}

// Summary pairs the aggregate stats with the latest entries across all customers.
func (s *Service) Summary(ctx context.Context, limit int) (*feedback.Summary, error) {
	stats, err := s.store.FeedbackStats(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.ListRecentFeedback(ctx, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []feedback.Feedback{}
	}
	return &feedback.Summary{Stats: *stats, Recent: recent}, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	}
	return limit
}
