package customer

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/errors"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestNewCustomer(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	c, err := NewCustomer("  acct-42 ", now)
	require.NoError(t, err)
	assert.Equal(t, "acct-42", c.ExternalID)
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.True(t, c.EarlyTerminationFee.IsZero())

	_, err = NewCustomer(string(make([]byte, 300)), now)
	assert.Error(t, err)
}

func TestHasActiveContract(t *testing.T) {
	today := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	future := today.AddDate(0, 0, 1)
	sameDay := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	past := today.AddDate(0, -1, 0)

	tests := []struct {
		name       string
		end        *time.Time
		wantActive bool
		wantEnded  bool
	}{
		{"no end date", nil, false, false},
		{"ends tomorrow", &future, true, false},
		{"ends today", &sameDay, false, true},
		{"ended last month", &past, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Customer{ContractEndDate: tt.end}
			assert.Equal(t, tt.wantActive, c.HasActiveContract(today))
			assert.Equal(t, tt.wantEnded, c.ContractEnded(today))
		})
	}
}

func TestSortAndNormalizeUsage(t *testing.T) {
	records := []UsageRecord{
		{Period: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), KWh: decimal.NewFromInt(300)},
		{Period: month(2024, 1), KWh: decimal.NewFromInt(100)},
		{Period: month(2024, 2), KWh: decimal.NewFromInt(200)},
	}

	sorted := SortUsage(NormalizeUsage(records))
	require.Len(t, sorted, 3)
	assert.Equal(t, month(2024, 1), sorted[0].Period)
	assert.Equal(t, month(2024, 3), sorted[2].Period)
	// input untouched
	assert.Equal(t, 15, records[0].Period.Day())
}

func TestValidateUsage(t *testing.T) {
	tests := []struct {
		name     string
		records  []UsageRecord
		wantCode string
	}{
		{"valid", []UsageRecord{{month(2024, 1), decimal.NewFromInt(10)}, {month(2024, 2), decimal.Zero}}, ""},
		{"negative", []UsageRecord{{month(2024, 1), decimal.NewFromInt(-1)}}, "INVALID_USAGE"},
		{"duplicate", []UsageRecord{{month(2024, 1), decimal.NewFromInt(1)}, {month(2024, 1), decimal.NewFromInt(2)}}, "DUPLICATE_USAGE_PERIOD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsage(tt.records)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			appErr, ok := errors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}
