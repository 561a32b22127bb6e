package recommendation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/customer"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/plan"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/preference"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/recommendation"
)

// Service produces ranked plan recommendations for a customer
type Service interface {
	// Generate runs the full pipeline for an already loaded customer
	Generate(ctx context.Context, cust *customer.Customer, override *preference.Preferences, includeSwitching bool) (*recommendation.Set, error)
	// Recommend loads the customer, checks there is enough usage history and calls Generate
	Recommend(ctx context.Context, customerID uuid.UUID, override *preference.Preferences, includeSwitching bool) (*recommendation.Set, error)
	// Cached returns the last generated set if it is still cached
	Cached(ctx context.Context, customerID uuid.UUID) (*recommendation.Set, bool)
	// Invalidate drops the cached set for a customer
	Invalidate(ctx context.Context, customerID uuid.UUID)
}

// Store defines the persistence the orchestrator reads from and records into
type Store interface {
	// GetCustomer returns the customer with usage history populated
	GetCustomer(ctx context.Context, id uuid.UUID) (*customer.Customer, error)
	// GetPreferences returns stored preferences or a not-found error
	GetPreferences(ctx context.Context, customerID uuid.UUID) (*preference.Preferences, error)
	// SaveRecommendations keeps a history of generated recommendations
	SaveRecommendations(ctx context.Context, set *recommendation.Set) error
}

// Catalog serves plan snapshots
type Catalog interface {
	ActivePlans(ctx context.Context) ([]*plan.Plan, error)
	Plan(ctx context.Context, id uuid.UUID) (*plan.Plan, error)
}

// Cache stores generated sets
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Recorder receives orchestrator metrics
type Recorder interface {
	RecordRecommendation(ctx context.Context, durationMS float64, success bool, count int)
	RecordPlansFiltered(ctx context.Context, filterCode string, n int)
	RecordCacheResult(ctx context.Context, cache, outcome string)
	RecordContractDecision(ctx context.Context, decision string)
}
