package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/customer"
)

// FlatUsage returns months consecutive records of kwh each, starting at start.
func FlatUsage(start time.Time, months int, kwh int64) []customer.UsageRecord {
	records := make([]customer.UsageRecord, months)
	for i := range records {
		records[i] = customer.UsageRecord{
			Period: time.Date(start.Year(), start.Month()+time.Month(i), 1, 0, 0, 0, 0, time.UTC),
			KWh:    decimal.NewFromInt(kwh),
		}
	}
	return records
}

// SeasonalUsage returns twelve months starting January with a summer and winter peak.
func SeasonalUsage(year int) []customer.UsageRecord {
	profile := []int64{1400, 1300, 900, 700, 650, 1300, 1450, 1400, 900, 750, 850, 1350}
	records := make([]customer.UsageRecord, len(profile))
	for i, kwh := range profile {
		records[i] = customer.UsageRecord{
			Period: time.Date(year, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC),
			KWh:    decimal.NewFromInt(kwh),
		}
	}
	return records
}

// NewCustomer returns a customer with the given usage and no contract.
func NewCustomer(usage []customer.UsageRecord) *customer.Customer {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &customer.Customer{
		ID:                  uuid.New(),
		ExternalID:          "cust-" + uuid.NewString()[:8],
		EarlyTerminationFee: decimal.Zero,
		Usage:               usage,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}
