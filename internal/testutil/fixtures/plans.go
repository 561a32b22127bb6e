package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/plan"
)

// PlanBuilder builds catalog plans for tests. Defaults describe a 12 month fixed plan.
type PlanBuilder struct {
	p plan.Plan
}

func NewPlanBuilder() *PlanBuilder {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	supplierID := uuid.New()
	return &PlanBuilder{p: plan.Plan{
		ID:                   uuid.New(),
		SupplierID:           supplierID,
		Supplier:             &plan.Supplier{ID: supplierID, Name: "Test Supplier", Active: true},
		Name:                 "Test Plan",
		RateKind:             plan.RateFixed,
		RatePerKWh:           decimal.RequireFromString("0.10"),
		MonthlyFee:           decimal.Zero,
		ContractLengthMonths: 12,
		EarlyTerminationFee:  decimal.Zero,
		CancellationFee:      decimal.Zero,
		Active:               true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}}
}

func (b *PlanBuilder) WithID(id uuid.UUID) *PlanBuilder {
	b.p.ID = id
	return b
}

func (b *PlanBuilder) WithName(name string) *PlanBuilder {
	b.p.Name = name
	return b
}

func (b *PlanBuilder) WithSupplier(s *plan.Supplier) *PlanBuilder {
	b.p.Supplier = s
	if s != nil {
		b.p.SupplierID = s.ID
	}
	return b
}

func (b *PlanBuilder) WithRate(kind plan.RateKind, perKWh string) *PlanBuilder {
	b.p.RateKind = kind
	b.p.RatePerKWh = decimal.RequireFromString(perKWh)
	return b
}

func (b *PlanBuilder) WithMonthlyFee(fee string) *PlanBuilder {
	b.p.MonthlyFee = decimal.RequireFromString(fee)
	return b
}

func (b *PlanBuilder) WithContract(months int, etf string) *PlanBuilder {
	b.p.ContractLengthMonths = months
	b.p.EarlyTerminationFee = decimal.RequireFromString(etf)
	return b
}

func (b *PlanBuilder) WithRenewable(pct int) *PlanBuilder {
	b.p.RenewablePercentage = pct
	return b
}

func (b *PlanBuilder) Inactive() *PlanBuilder {
	b.p.Active = false
	return b
}

func (b *PlanBuilder) Build() *plan.Plan {
	p := b.p
	return &p
}

// NewSupplier returns an active supplier, rated when rating is non-empty.
func NewSupplier(name, rating string) *plan.Supplier {
	s := &plan.Supplier{ID: uuid.New(), Name: name, Active: true}
	if rating != "" {
		r := decimal.RequireFromString(rating)
		s.Rating = &r
	}
	return s
}
