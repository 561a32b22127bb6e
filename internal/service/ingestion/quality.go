package ingestion

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/customer"
)

const maxQualityWarnings = 5

var (
	highOutlierFactor = decimal.NewFromInt(3)
	lowOutlierFactor  = decimal.RequireFromString("0.2")
)

// qualityWarnings flags short histories, calendar gaps and outlying months. records must
// be sorted by period.
func qualityWarnings(records []customer.UsageRecord) []string {
	warnings := make([]string, 0)
	if len(records) == 0 {
		return warnings
	}

	switch n := len(records); {
	case n < 3:
		warnings = append(warnings, fmt.Sprintf(
			"Only %d months of data provided. Minimum 3 months required, 12 months recommended.", n))
	case n < 12:
		warnings = append(warnings, fmt.Sprintf(
			"Only %d months of data provided. 12 months recommended for accurate projections.", n))
	}

	for i := 1; i < len(records); i++ {
		prev, curr := records[i-1].Period, records[i].Period
		diff := (curr.Year()-prev.Year())*12 + int(curr.Month()) - int(prev.Month())
		if diff > 1 {
			warnings = append(warnings, fmt.Sprintf(
				"Gap detected between %s and %s. Missing data may affect projection accuracy.",
				prev.Format("2006-01-02"), curr.Format("2006-01-02")))
		}
	}

	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.KWh)
	}
	avg := total.Div(decimal.NewFromInt(int64(len(records))))

	for _, r := range records {
		switch {
		case r.KWh.GreaterThan(avg.Mul(highOutlierFactor)):
			warnings = append(warnings, fmt.Sprintf("Unusually high usage on %s: %s kWh (3x average)",
				r.Period.Format("2006-01-02"), r.KWh.String()))
		case r.KWh.LessThan(avg.Mul(lowOutlierFactor)) && r.KWh.IsPositive():
			warnings = append(warnings, fmt.Sprintf("Unusually low usage on %s: %s kWh (5x below average)",
				r.Period.Format("2006-01-02"), r.KWh.String()))
		}
	}

	if len(warnings) > maxQualityWarnings {
		warnings = warnings[:maxQualityWarnings]
	}
	return warnings
}
