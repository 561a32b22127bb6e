package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/errors"
)

// RateKind is how a plan prices each kWh.
type RateKind string

const (
	RateFixed     RateKind = "fixed"
	RateVariable  RateKind = "variable"
	RateIndexed   RateKind = "indexed"
	RateTimeOfUse RateKind = "time_of_use"
)

// ParseRateKind validates a rate kind coming from an API or file boundary.
func ParseRateKind(s string) (RateKind, error) {
	switch k := RateKind(strings.ToLower(strings.TrimSpace(s))); k {
	case RateFixed, RateVariable, RateIndexed, RateTimeOfUse:
		return k, nil
	default:
		return "", errors.NewValidationError("UNSUPPORTED_RATE_KIND",
			fmt.Sprintf("unsupported rate kind %q", s))
	}
}

// IsVariable reports whether the price per kWh can move during the contract.
func (k RateKind) IsVariable() bool {
	return k == RateVariable || k == RateIndexed
}

func (k RateKind) String() string {
	return string(k)
}

type Supplier struct {
	ID                    uuid.UUID        `json:"id"`
	Name                  string           `json:"name"`
	Rating                *decimal.Decimal `json:"rating,omitempty"`
	CustomerServiceRating *decimal.Decimal `json:"customer_service_rating,omitempty"`
	Website               string           `json:"website,omitempty"`
	Active                bool             `json:"is_active"`
}

// Validate checks the supplier name and that ratings sit on the 0 to 5 scale.
func (s *Supplier) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.NewValidationError("INVALID_SUPPLIER", "supplier name is required")
	}
	for _, r := range []*decimal.Decimal{s.Rating, s.CustomerServiceRating} {
		if r != nil && (r.IsNegative() || r.GreaterThan(decimal.NewFromInt(5))) {
			return errors.NewValidationError("INVALID_SUPPLIER", "supplier rating must be between 0 and 5")
		}
	}
	return nil
}

// Plan is an immutable catalog snapshot for the duration of a recommendation run.
type Plan struct {
	ID                   uuid.UUID       `json:"id"`
	SupplierID           uuid.UUID       `json:"supplier_id"`
	Supplier             *Supplier       `json:"supplier,omitempty"`
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	RateKind             RateKind        `json:"rate_type"`
	RatePerKWh           decimal.Decimal `json:"rate_per_kwh"`
	MonthlyFee           decimal.Decimal `json:"monthly_fee"`
	ContractLengthMonths int             `json:"contract_length_months"`
	EarlyTerminationFee  decimal.Decimal `json:"early_termination_fee"`
	CancellationFee      decimal.Decimal `json:"cancellation_fee"`
	RenewablePercentage  int             `json:"renewable_percentage"`
	Active               bool            `json:"is_active"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Validate checks the catalog invariants every plan must hold before it can be scored.
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.NewValidationError("INVALID_PLAN", "plan name is required")
	}
	if _, err := ParseRateKind(string(p.RateKind)); err != nil {
		return err
	}
	if p.RatePerKWh.IsNegative() {
		return errors.NewValidationError("INVALID_PLAN", "rate_per_kwh must be non-negative")
	}
	if p.MonthlyFee.IsNegative() {
		return errors.NewValidationError("INVALID_PLAN", "monthly_fee must be non-negative")
	}
	if p.EarlyTerminationFee.IsNegative() || p.CancellationFee.IsNegative() {
		return errors.NewValidationError("INVALID_PLAN", "fees must be non-negative")
	}
	if p.ContractLengthMonths < 1 {
		return errors.NewValidationError("INVALID_PLAN", "contract_length_months must be at least 1")
	}
	if p.RenewablePercentage < 0 || p.RenewablePercentage > 100 {
		return errors.NewValidationError("INVALID_PLAN", "renewable_percentage must be between 0 and 100")
	}
	if p.Supplier != nil && p.Supplier.Rating != nil {
		r := *p.Supplier.Rating
		if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(5)) {
			return errors.NewValidationError("INVALID_SUPPLIER", "supplier rating must be between 0 and 5")
		}
	}
	return nil
}

// SupplierName returns the supplier's name or "" when the reference is unresolved.
func (p *Plan) SupplierName() string {
	if p.Supplier == nil {
		return ""
	}
	return p.Supplier.Name
}

// SupplierRating returns the supplier rating, if one is known.
func (p *Plan) SupplierRating() (decimal.Decimal, bool) {
	if p.Supplier == nil || p.Supplier.Rating == nil {
		return decimal.Zero, false
	}
	return *p.Supplier.Rating, true
}
