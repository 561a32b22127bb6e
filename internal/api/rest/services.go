package rest

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/customer"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/feedback"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/plan"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/preference"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/recommendation"
	"github.com/davidleathers/energy-plan-advisor/internal/service/ingestion"
)

// Store is the slice of persistence the handlers reach directly.
type Store interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*customer.Customer, error)
	CreateSupplier(ctx context.Context, s *plan.Supplier) error
	ListSuppliers(ctx context.Context, activeOnly bool) ([]*plan.Supplier, error)
	GetSupplier(ctx context.Context, id uuid.UUID) (*plan.Supplier, error)
	CreatePlan(ctx context.Context, p *plan.Plan) error
	GetPreferences(ctx context.Context, customerID uuid.UUID) (*preference.Preferences, error)
	SavePreferences(ctx context.Context, p *preference.Preferences) error
	DeletePreferences(ctx context.Context, customerID uuid.UUID) error
}

type Catalog interface {
	ActivePlans(ctx context.Context) ([]*plan.Plan, error)
	Plan(ctx context.Context, id uuid.UUID) (*plan.Plan, error)
	Invalidate(ctx context.Context, id uuid.UUID)
	InvalidateAll(ctx context.Context)
}

type IngestionService interface {
	CreateCustomer(ctx context.Context, in ingestion.NewCustomer) (*customer.Customer, ingestion.Result, error)
	CustomerByExternalID(ctx context.Context, externalID string, anonymized bool) (*customer.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
	IngestCSV(ctx context.Context, customerID uuid.UUID, r io.Reader, dateColumn, usageColumn string) (ingestion.Result, error)
	IngestJSON(ctx context.Context, customerID uuid.UUID, rows []map[string]any) (ingestion.Result, error)
}

type RecommendationService interface {
	Recommend(ctx context.Context, customerID uuid.UUID, override *preference.Preferences, includeSwitching bool) (*recommendation.Set, error)
	Cached(ctx context.Context, customerID uuid.UUID) (*recommendation.Set, bool)
	Invalidate(ctx context.Context, customerID uuid.UUID)
}

type FeedbackService interface {
	Submit(ctx context.Context, f *feedback.Feedback) (*feedback.Feedback, error)
	ForCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]feedback.Feedback, error)
	ForRecommendation(ctx context.Context, recommendationID uuid.UUID) ([]feedback.Feedback, error)
	Get(ctx context.Context, id uuid.UUID) (*feedback.Feedback, error)
	Stats(ctx context.Context) (*feedback.Stats, error)
	Summary(ctx context.Context, limit int) (*feedback.Summary, error)
}

// Services groups everything the handlers depend on.
type Services struct {
	Store           Store
	Catalog         Catalog
	Ingestion       IngestionService
	Recommendations RecommendationService
	Feedback        FeedbackService
}
