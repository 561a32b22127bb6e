package cost

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/customer"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/plan"
)

var (
	twelve = decimal.NewFromInt(12)
	five   = decimal.NewFromInt(5)
)

// UsageStats are the usage figures shared by every plan costed in one run.
type UsageStats struct {
	TotalKWh           decimal.Decimal `json:"total_kwh"`
	AnnualKWhProjected decimal.Decimal `json:"annual_kwh_projected"`
	AvgMonthlyKWh      decimal.Decimal `json:"avg_monthly_kwh"`
	MonthsOfData       int             `json:"months_of_data"`
}

type Breakdown struct {
	EnergyCost  decimal.Decimal `json:"energy_cost"`
	MonthlyFees decimal.Decimal `json:"monthly_fees"`
	Total       decimal.Decimal `json:"total"`
}

// PlanCost is the projected cost of one plan for one customer.
type PlanCost struct {
	PlanID              uuid.UUID       `json:"plan_id"`
	AnnualCost          decimal.Decimal `json:"annual_cost"`
	MonthlyAverage      decimal.Decimal `json:"monthly_average"`
	CostPerKWhEffective decimal.Decimal `json:"cost_per_kwh_effective"`
	Breakdown           Breakdown       `json:"breakdown"`
	UsageStats          UsageStats      `json:"usage_stats"`
}

type Savings struct {
	AnnualSavings       decimal.Decimal `json:"annual_savings"`
	FirstYearNetSavings decimal.Decimal `json:"first_year_net_savings"`
	SwitchingCost       decimal.Decimal `json:"switching_cost"`
	BreakEvenMonths     *int            `json:"break_even_months,omitempty"`
	FiveYearSavings     decimal.Decimal `json:"five_year_savings"`
	IsBeneficial        bool            `json:"is_beneficial"`
}

type MonthlyProjection struct {
	Month         string          `json:"month"`
	KWh           decimal.Decimal `json:"kwh_usage"`
	ProjectedCost decimal.Decimal `json:"projected_cost"`
}

// Calculator is pure and stateless; it is safe for concurrent use.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Stats computes the shared usage figures, annualizing when fewer than 12 months are present.
func (c *Calculator) Stats(usage []customer.UsageRecord) UsageStats {
	months := len(usage)
	if months == 0 {
		return UsageStats{TotalKWh: decimal.Zero, AnnualKWhProjected: decimal.Zero, AvgMonthlyKWh: decimal.Zero}
	}

	total := decimal.Zero
	for _, u := range usage {
		total = total.Add(u.KWh)
	}
	n := decimal.NewFromInt(int64(months))

	annual := total
	if months < 12 {
		annual = total.Mul(twelve).Div(n)
	}

	return UsageStats{
		TotalKWh:           total,
		AnnualKWhProjected: annual,
		AvgMonthlyKWh:      total.Div(n),
		MonthsOfData:       months,
	}
}

// AnnualCost projects a year of cost: annualized kWh at the plan rate plus twelve monthly fees.
func (c *Calculator) AnnualCost(usage []customer.UsageRecord, p *plan.Plan) decimal.Decimal {
	if len(usage) == 0 {
		return decimal.Zero.Round(2)
	}
	return annualCost(c.Stats(usage), p)
}

func annualCost(stats UsageStats, p *plan.Plan) decimal.Decimal {
	if stats.MonthsOfData == 0 {
		return decimal.Zero.Round(2)
	}
	energy := stats.AnnualKWhProjected.Mul(p.RatePerKWh)
	fees := p.MonthlyFee.Mul(twelve)
	return energy.Add(fees).Round(2)
}

// MonthlyCost prices a single month of consumption.
func (c *Calculator) MonthlyCost(kwh decimal.Decimal, p *plan.Plan) decimal.Decimal {
	return kwh.Mul(p.RatePerKWh).Add(p.MonthlyFee).Round(2)
}

// AllCosts costs every plan against one shared set of usage figures.
func (c *Calculator) AllCosts(usage []customer.UsageRecord, plans []*plan.Plan) map[uuid.UUID]PlanCost {
	stats := c.Stats(usage)
	costs := make(map[uuid.UUID]PlanCost, len(plans))

	for _, p := range plans {
		annual := annualCost(stats, p)

		effective := decimal.Zero
		if stats.AnnualKWhProjected.IsPositive() {
			effective = annual.Div(stats.AnnualKWhProjected).Round(6)
		}

		costs[p.ID] = PlanCost{
			PlanID:              p.ID,
			AnnualCost:          annual,
			MonthlyAverage:      annual.Div(twelve).Round(2),
			CostPerKWhEffective: effective,
			Breakdown: Breakdown{
				EnergyCost:  stats.AnnualKWhProjected.Mul(p.RatePerKWh).Round(2),
				MonthlyFees: p.MonthlyFee.Mul(twelve).Round(2),
				Total:       annual,
			},
			UsageStats: stats,
		}
	}
	return costs
}

// Savings compares two annual costs, netting out a one-time switching cost.
func (c *Calculator) Savings(currentAnnual, newAnnual, switchingCost decimal.Decimal) Savings {
	annual := currentAnnual.Sub(newAnnual)
	firstYear := annual.Sub(switchingCost)

	var breakEven *int
	if switchingCost.IsPositive() && annual.IsPositive() {
		months := int(switchingCost.Mul(twelve).Div(annual).Floor().IntPart())
		breakEven = &months
	}

	return Savings{
		AnnualSavings:       annual,
		FirstYearNetSavings: firstYear,
		SwitchingCost:       switchingCost,
		BreakEvenMonths:     breakEven,
		FiveYearSavings:     annual.Mul(five).Sub(switchingCost),
		IsBeneficial:        firstYear.IsPositive(),
	}
}

// ProjectSeasonalCosts prices each historical month on the given plan.
func (c *Calculator) ProjectSeasonalCosts(usage []customer.UsageRecord, p *plan.Plan) []MonthlyProjection {
	sorted := customer.SortUsage(usage)
	out := make([]MonthlyProjection, 0, len(sorted))
	for _, u := range sorted {
		out = append(out, MonthlyProjection{
			Month:         u.Period.Format("2006-01"),
			KWh:           u.KWh,
			ProjectedCost: c.MonthlyCost(u.KWh, p),
		})
	}
	return out
}
