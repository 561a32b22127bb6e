package customer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/clock"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/errors"
)

// UsageRecord is one calendar month of metered consumption.
type UsageRecord struct {
	Period time.Time       `json:"period"`
	KWh    decimal.Decimal `json:"kwh"`
}

// Customer is a fully resolved value: usage history is loaded, the current plan is a reference.
type Customer struct {
	ID                  uuid.UUID       `json:"id"`
	ExternalID          string          `json:"external_id,omitempty"`
	CurrentPlanID       *uuid.UUID      `json:"current_plan_id,omitempty"`
	ContractEndDate     *time.Time      `json:"contract_end_date,omitempty"`
	EarlyTerminationFee decimal.Decimal `json:"early_termination_fee"`
	Usage               []UsageRecord   `json:"usage,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// NewCustomer creates a customer with a fresh ID.
func NewCustomer(externalID string, now time.Time) (*Customer, error) {
	externalID = strings.TrimSpace(externalID)
	if len(externalID) > 255 {
		return nil, errors.NewValidationError("INVALID_CUSTOMER", "external_id must be at most 255 characters")
	}
	return &Customer{
		ID:                  uuid.New(),
		ExternalID:          externalID,
		EarlyTerminationFee: decimal.Zero,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// MonthsOfData is the number of usage records on file.
func (c *Customer) MonthsOfData() int {
	return len(c.Usage)
}

// HasActiveContract reports whether the contract end date is strictly after today.
func (c *Customer) HasActiveContract(today time.Time) bool {
	return c.ContractEndDate != nil && clock.Date(*c.ContractEndDate).After(clock.Date(today))
}

// ContractEnded reports whether a known contract end date is today or earlier. An
// unknown end date has not ended.
func (c *Customer) ContractEnded(today time.Time) bool {
	return c.ContractEndDate != nil && !clock.Date(*c.ContractEndDate).After(clock.Date(today))
}

// SortUsage returns a copy of records ordered by period.
func SortUsage(records []UsageRecord) []UsageRecord {
	sorted := make([]UsageRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Period.Before(sorted[j].Period)
	})
	return sorted
}

// NormalizeUsage snaps every period to the first of its month.
func NormalizeUsage(records []UsageRecord) []UsageRecord {
	out := make([]UsageRecord, len(records))
	for i, r := range records {
		out[i] = UsageRecord{Period: clock.MonthStart(r.Period), KWh: r.KWh}
	}
	return out
}

// ValidateUsage enforces non-negative quantities and one record per calendar month.
func ValidateUsage(records []UsageRecord) error {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.KWh.IsNegative() {
			return errors.NewValidationError("INVALID_USAGE",
				fmt.Sprintf("usage for %s is negative", r.Period.Format("2006-01")))
		}
		key := r.Period.Format("2006-01")
		if _, dup := seen[key]; dup {
			return errors.NewValidationError("DUPLICATE_USAGE_PERIOD",
				fmt.Sprintf("duplicate usage period %s", key))
		}
		seen[key] = struct{}{}
	}
	return nil
}
