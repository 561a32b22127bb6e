package preference

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/errors"
)

var (
	// FallbackWeight substitutes any weight the caller left unset.
	FallbackWeight = decimal.RequireFromString("0.25")

	weightSumTolerance = decimal.RequireFromString("0.01")
)

// Weights are the MCDA weights. Unset weights are tolerated and resolve to FallbackWeight.
type Weights struct {
	Cost        decimal.NullDecimal `json:"cost_savings_weight"`
	Flexibility decimal.NullDecimal `json:"flexibility_weight"`
	Renewable   decimal.NullDecimal `json:"renewable_weight"`
	Rating      decimal.NullDecimal `json:"supplier_rating_weight"`
}

// Resolved is the set of weights actually applied to a scoring run.
type Resolved struct {
	Cost        decimal.Decimal `json:"cost"`
	Flexibility decimal.Decimal `json:"flexibility"`
	Renewable   decimal.Decimal `json:"renewable"`
	Rating      decimal.Decimal `json:"rating"`
}

// Sum of the four weights.
func (r Resolved) Sum() decimal.Decimal {
	return r.Cost.Add(r.Flexibility).Add(r.Renewable).Add(r.Rating)
}

// NewWeights builds a fully specified weight set.
func NewWeights(cost, flexibility, renewable, rating decimal.Decimal) Weights {
	return Weights{
		Cost:        decimal.NewNullDecimal(cost),
		Flexibility: decimal.NewNullDecimal(flexibility),
		Renewable:   decimal.NewNullDecimal(renewable),
		Rating:      decimal.NewNullDecimal(rating),
	}
}

// Effective resolves unset weights to FallbackWeight. No renormalization is applied.
func (w Weights) Effective() Resolved {
	pick := func(d decimal.NullDecimal) decimal.Decimal {
		if !d.Valid {
			return FallbackWeight
		}
		return d.Decimal
	}
	return Resolved{
		Cost:        pick(w.Cost),
		Flexibility: pick(w.Flexibility),
		Renewable:   pick(w.Renewable),
		Rating:      pick(w.Rating),
	}
}

// Constraints are hard filters applied before scoring.
type Constraints struct {
	MinRenewablePercentage int  `json:"min_renewable_percentage"`
	MaxContractMonths      *int `json:"max_contract_months,omitempty"`
	AvoidVariableRates     bool `json:"avoid_variable_rates"`
}

// Preferences is a customer's weights plus hard constraints.
type Preferences struct {
	CustomerID  uuid.UUID   `json:"customer_id"`
	Weights     Weights     `json:"weights"`
	Constraints Constraints `json:"constraints"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Defaults returns 0.40 cost / 0.20 flexibility / 0.20 renewable / 0.20 rating with no constraints.
func Defaults(customerID uuid.UUID) *Preferences {
	return &Preferences{
		CustomerID: customerID,
		Weights: NewWeights(
			decimal.RequireFromString("0.40"),
			decimal.RequireFromString("0.20"),
			decimal.RequireFromString("0.20"),
			decimal.RequireFromString("0.20"),
		),
	}
}

// Validate rejects out-of-range weights or constraints at the boundary.
func (p *Preferences) Validate() error {
	fields := []struct {
		name string
		val  decimal.NullDecimal
	}{
		{"cost_savings_weight", p.Weights.Cost},
		{"flexibility_weight", p.Weights.Flexibility},
		{"renewable_weight", p.Weights.Renewable},
		{"supplier_rating_weight", p.Weights.Rating},
	}
	for _, f := range fields {
		if !f.val.Valid {
			continue
		}
		if f.val.Decimal.IsNegative() || f.val.Decimal.GreaterThan(decimal.NewFromInt(1)) {
			return errors.NewValidationError("INVALID_WEIGHT",
				fmt.Sprintf("%s must be between 0 and 1", f.name))
		}
	}

	sum := p.Weights.Effective().Sum()
	if sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(weightSumTolerance) {
		return errors.NewValidationError("INVALID_WEIGHT_SUM",
			fmt.Sprintf("weights must sum to 1.0, got %s", sum.String())).
			WithDetails(map[string]interface{}{"sum": sum.String()})
	}

	c := p.Constraints
	if c.MinRenewablePercentage < 0 || c.MinRenewablePercentage > 100 {
		return errors.NewValidationError("INVALID_CONSTRAINT", "min_renewable_percentage must be between 0 and 100")
	}
	if c.MaxContractMonths != nil && (*c.MaxContractMonths < 1 || *c.MaxContractMonths > 60) {
		return errors.NewValidationError("INVALID_CONSTRAINT", "max_contract_months must be between 1 and 60")
	}
	return nil
}
