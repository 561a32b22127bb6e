package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/customer"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/errors"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/feedback"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/plan"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/preference"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/recommendation"
)

// MemoryStore is an in-process Store used by the offline CLI and by handler tests.
// Values are copied on the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu              sync.RWMutex
	customers       map[uuid.UUID]*customer.Customer
	byExternalID    map[string]uuid.UUID
	suppliers       map[uuid.UUID]*plan.Supplier
	plans           map[uuid.UUID]*plan.Plan
	preferences     map[uuid.UUID]*preference.Preferences
	recommendations []recommendation.Recommendation
	feedback        []feedback.Feedback
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers:    make(map[uuid.UUID]*customer.Customer),
		byExternalID: make(map[string]uuid.UUID),
		suppliers:    make(map[uuid.UUID]*plan.Supplier),
		plans:        make(map[uuid.UUID]*plan.Plan),
		preferences:  make(map[uuid.UUID]*preference.Preferences),
	}
}

// LoadPlans registers plans and their embedded suppliers in one step.
func (m *MemoryStore) LoadPlans(plans []*plan.Plan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range plans {
		if p.Supplier != nil {
			sup := *p.Supplier
			m.suppliers[sup.ID] = &sup
		}
		m.plans[p.ID] = clonePlan(p)
	}
}

func (m *MemoryStore) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.customers[c.ID]; ok {
		return errors.NewConflictError("customer already exists").WithCause(ErrDuplicateKey)
	}
	if _, ok := m.byExternalID[c.ExternalID]; ok {
		return errors.NewConflictError("customer already exists").WithCause(ErrDuplicateKey)
	}
	if c.CurrentPlanID != nil {
		if _, ok := m.plans[*c.CurrentPlanID]; !ok {
			return errors.NewValidationError("INVALID_REFERENCE",
				"customer references an entity that does not exist").WithCause(ErrForeignKey)
		}
	}

	stored := cloneCustomer(c)
	stored.Usage = customer.SortUsage(stored.Usage)
	m.customers[c.ID] = stored
	m.byExternalID[c.ExternalID] = c.ID
	return nil
}

func (m *MemoryStore) GetCustomer(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, errors.NewNotFoundError("customer").WithCause(ErrNotFound)
	}
	return cloneCustomer(c), nil
}

func (m *MemoryStore) GetCustomerByExternalID(ctx context.Context, externalID string) (*customer.Customer, error) {
	m.mu.RLock()
	id, ok := m.byExternalID[externalID]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError("customer").WithCause(ErrNotFound)
	}
	return m.GetCustomer(ctx, id)
}

// DeleteCustomer removes the customer with everything recorded against them.
func (m *MemoryStore) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return errors.NewNotFoundError("customer").WithCause(ErrNotFound)
	}
	delete(m.customers, id)
	delete(m.byExternalID, c.ExternalID)
	delete(m.preferences, id)

	recs := m.recommendations[:0]
	for _, r := range m.recommendations {
		if r.CustomerID != id {
			recs = append(recs, r)
		}
	}
	m.recommendations = recs

	kept := m.feedback[:0]
	for _, f := range m.feedback {
		if f.CustomerID != id {
			kept = append(kept, f)
		}
	}
	m.feedback = kept
	return nil
}

// SaveUsage upserts records by period.
func (m *MemoryStore) SaveUsage(ctx context.Context, customerID uuid.UUID, records []customer.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[customerID]
	if !ok {
		return errors.NewNotFoundError("customer").WithCause(ErrNotFound)
	}

	byPeriod := make(map[string]int, len(c.Usage))
	for i, r := range c.Usage {
		byPeriod[r.Period.Format("2006-01")] = i
	}
	for _, r := range records {
		key := r.Period.Format("2006-01")
		if i, ok := byPeriod[key]; ok {
			c.Usage[i].KWh = r.KWh
			continue
		}
		byPeriod[key] = len(c.Usage)
		c.Usage = append(c.Usage, r)
	}
	c.Usage = customer.SortUsage(c.Usage)
	return nil
}

func (m *MemoryStore) CreateSupplier(ctx context.Context, s *plan.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.suppliers {
		if existing.ID == s.ID || strings.EqualFold(existing.Name, s.Name) {
			return errors.NewConflictError("supplier already exists").WithCause(ErrDuplicateKey)
		}
	}
	sup := *s
	m.suppliers[s.ID] = &sup
	return nil
}

// ListSuppliers returns suppliers ordered by name then ID.
func (m *MemoryStore) ListSuppliers(ctx context.Context, activeOnly bool) ([]*plan.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*plan.Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		if activeOnly && !s.Active {
			continue
		}
		sup := *s
		out = append(out, &sup)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (m *MemoryStore) GetSupplier(ctx context.Context, id uuid.UUID) (*plan.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.suppliers[id]
	if !ok {
		return nil, errors.NewNotFoundError("supplier").WithCause(ErrNotFound)
	}
	sup := *s
	return &sup, nil
}

func (m *MemoryStore) CreatePlan(ctx context.Context, p *plan.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[p.ID]; ok {
		return errors.NewConflictError("plan already exists").WithCause(ErrDuplicateKey)
	}
	sup, ok := m.suppliers[p.SupplierID]
	if !ok {
		return errors.NewValidationError("INVALID_REFERENCE",
			"plan references an entity that does not exist").WithCause(ErrForeignKey)
	}
	stored := clonePlan(p)
	s := *sup
	stored.Supplier = &s
	m.plans[p.ID] = stored
	return nil
}

// ListActivePlans returns active plans ordered by name then ID.
func (m *MemoryStore) ListActivePlans(ctx context.Context) ([]*plan.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*plan.Plan, 0, len(m.plans))
	for _, p := range m.plans {
		if p.Active {
			out = append(out, clonePlan(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (m *MemoryStore) GetPlan(ctx context.Context, id uuid.UUID) (*plan.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, errors.NewNotFoundError("plan").WithCause(ErrNotFound)
	}
	return clonePlan(p), nil
}

func (m *MemoryStore) GetPreferences(ctx context.Context, customerID uuid.UUID) (*preference.Preferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.preferences[customerID]
	if !ok {
		return nil, errors.NewNotFoundError("preferences").WithCause(ErrNotFound)
	}
	return clonePreferences(p), nil
}

func (m *MemoryStore) SavePreferences(ctx context.Context, p *preference.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[p.CustomerID]; !ok {
		return errors.NewNotFoundError("customer").WithCause(ErrNotFound)
	}
	m.preferences[p.CustomerID] = clonePreferences(p)
	return nil
}

func (m *MemoryStore) DeletePreferences(ctx context.Context, customerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.preferences[customerID]; !ok {
		return errors.NewNotFoundError("preferences").WithCause(ErrNotFound)
	}
	delete(m.preferences, customerID)
	return nil
}

func (m *MemoryStore) SaveRecommendations(ctx context.Context, set *recommendation.Set) error {
	if set == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recommendations = append(m.recommendations, set.Recommendations...)
	return nil
}

// Recommendations returns the stored history for a customer, oldest first.
func (m *MemoryStore) Recommendations(customerID uuid.UUID) []recommendation.Recommendation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []recommendation.Recommendation
	for _, r := range m.recommendations {
		if r.CustomerID == customerID {
			out = append(out, r)
		}
	}
	return out
}

func (m *MemoryStore) CreateFeedback(ctx context.Context, f *feedback.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[f.CustomerID]; !ok {
		return errors.NewValidationError("INVALID_REFERENCE",
			fmt.Sprintf("feedback references unknown customer %s", f.CustomerID)).WithCause(ErrForeignKey)
	}
	m.feedback = append(m.feedback, *f)
	return nil
}

// ListFeedbackByCustomer returns the newest entries first.
func (m *MemoryStore) ListFeedbackByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]feedback.Feedback, error) {
	return m.filterFeedback(func(f feedback.Feedback) bool { return f.CustomerID == customerID }, limit), nil
}

func (m *MemoryStore) ListFeedbackByRecommendation(ctx context.Context, recommendationID uuid.UUID) ([]feedback.Feedback, error) {
	return m.filterFeedback(func(f feedback.Feedback) bool {
		return f.RecommendationID != nil && *f.RecommendationID == recommendationID
	}, 0), nil
}

func (m *MemoryStore) ListRecentFeedback(ctx context.Context, limit int) ([]feedback.Feedback, error) {
	return m.filterFeedback(func(feedback.Feedback) bool { return true }, limit), nil
}

func (m *MemoryStore) GetFeedback(ctx context.Context, id uuid.UUID) (*feedback.Feedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.feedback {
		if f.ID == id {
			out := f
			return &out, nil
		}
	}
	return nil, errors.NewNotFoundError("feedback").WithCause(ErrNotFound)
}

// filterFeedback returns matching entries newest first, capped at limit when positive.
func (m *MemoryStore) filterFeedback(match func(feedback.Feedback) bool, limit int) []feedback.Feedback {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []feedback.Feedback{}
	for _, f := range m.feedback {
		if match(f) {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *MemoryStore) FeedbackStats(ctx context.Context) (*feedback.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := feedback.Summarize(m.feedback)
	return &stats, nil
}

func cloneCustomer(c *customer.Customer) *customer.Customer {
	out := *c
	out.Usage = append([]customer.UsageRecord(nil), c.Usage...)
	if c.CurrentPlanID != nil {
		id := *c.CurrentPlanID
		out.CurrentPlanID = &id
	}
	if c.ContractEndDate != nil {
		end := *c.ContractEndDate
		out.ContractEndDate = &end
	}
	return &out
}

func clonePlan(p *plan.Plan) *plan.Plan {
	out := *p
	if p.Supplier != nil {
		sup := *p.Supplier
		out.Supplier = &sup
	}
	return &out
}

func clonePreferences(p *preference.Preferences) *preference.Preferences {
	out := *p
	if p.Constraints.MaxContractMonths != nil {
		v := *p.Constraints.MaxContractMonths
		out.Constraints.MaxContractMonths = &v
	}
	return &out
}
