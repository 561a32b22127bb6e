package contract

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/analysis"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/clock"
)

const (
	DefaultNewPlanContractMonths = 12

	maxBreakEvenMonths  = 18
	shortContractDays   = 14
	switchSoonDays      = 30
	daysPerMonth        = 30
	noticeLeadDays      = 60
	finalSwitchLeadDays = 7
)

var (
	twelve = decimal.NewFromInt(12)
	three  = decimal.NewFromInt(3)
	two    = decimal.NewFromInt(2)

	minAnnualSavings      = decimal.NewFromInt(50)
	marginalAnnualSavings = decimal.NewFromInt(100)
)

// TimingInput describes one current-plan versus candidate-plan comparison.
type TimingInput struct {
	ContractEnd           *time.Time
	EarlyTerminationFee   decimal.Decimal
	CurrentMonthlyCost    decimal.Decimal
	NewMonthlyCost        decimal.Decimal
	NewPlanContractMonths int
	Today                 time.Time
}

// Analyzer decides when, and whether, a customer should switch plans.
// It holds no state.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// AnalyzeSwitchTiming runs the ordered not-beneficial gates and, when none fire,
// weighs an immediate switch against waiting out the current contract.
func (a *Analyzer) AnalyzeSwitchTiming(in TimingInput) analysis.Contract {
	today := clock.Date(in.Today)
	newContractMonths := in.NewPlanContractMonths
	if newContractMonths <= 0 {
		newContractMonths = DefaultNewPlanContractMonths
	}

	result := analysis.Contract{
		ContractEndDate:        in.ContractEnd,
		EarlyTerminationFee:    decimal.Zero,
		RemainingContractCost:  decimal.Zero,
		NewPlanCostSamePeriod:  decimal.Zero,
		ImmediateSwitchSavings: decimal.Zero,
		WaitToSwitchSavings:    decimal.Zero,
	}

	var daysUntilEnd int
	if in.ContractEnd != nil && clock.Date(*in.ContractEnd).After(today) {
		daysUntilEnd = clock.DaysBetween(today, *in.ContractEnd)
		result.HasActiveContract = true
		result.DaysUntilContractEnd = &daysUntilEnd
		result.EarlyTerminationFee = in.EarlyTerminationFee
	}
	etf := result.EarlyTerminationFee

	monthlySavings := in.CurrentMonthlyCost.Sub(in.NewMonthlyCost)
	if !monthlySavings.IsPositive() {
		result.Recommendation = analysis.SwitchNotBeneficial
		result.NotBeneficialReason = reason(analysis.ReasonNewPlanMoreExpensive)
		result.ConfidenceScore = 1.0
		result.ImmediateSwitchSavings = monthlySavings
		result.Explanation = fmt.Sprintf(
			"The new plan would not save you money: it costs $%s more per month than your current plan.",
			monthlySavings.Neg().StringFixed(2))
		result.Details = map[string]any{
			"monthly_difference": monthlySavings.StringFixed(2),
			"reason":             string(analysis.ReasonNewPlanMoreExpensive),
		}
		return result
	}

	annualSavings := monthlySavings.Mul(twelve)
	breakEven := int(etf.Div(monthlySavings).Floor().IntPart()) + 1
	result.BreakEvenMonths = &breakEven
	result.WaitToSwitchSavings = annualSavings
	result.Details = map[string]any{
		"monthly_savings":       monthlySavings.StringFixed(2),
		"annual_savings":        annualSavings.StringFixed(2),
		"break_even_months":     breakEven,
		"early_termination_fee": etf.StringFixed(2),
	}

	if gated := a.notBeneficialGate(&result, in, etf, monthlySavings, annualSavings, breakEven, newContractMonths, daysUntilEnd); gated {
		return result
	}

	if !result.HasActiveContract {
		result.Recommendation = analysis.SwitchNow
		result.OptimalSwitchDate = &today
		result.ImmediateSwitchSavings = annualSavings
		result.ConfidenceScore = 1.0
		result.Explanation = fmt.Sprintf(
			"No contract restrictions. Switch now to save $%s per year.", annualSavings.StringFixed(2))
		return result
	}

	monthsRemaining := daysUntilEnd / daysPerMonth
	remaining := decimal.NewFromInt(int64(monthsRemaining))
	result.RemainingContractCost = in.CurrentMonthlyCost.Mul(remaining)
	result.NewPlanCostSamePeriod = in.NewMonthlyCost.Mul(remaining)
	result.ImmediateSwitchSavings = result.RemainingContractCost.Sub(result.NewPlanCostSamePeriod).Sub(etf)
	result.Details["months_remaining"] = monthsRemaining

	end := clock.Date(*in.ContractEnd)
	switch {
	case result.ImmediateSwitchSavings.IsPositive() && daysUntilEnd <= switchSoonDays:
		result.Recommendation = analysis.SwitchSoon
		result.OptimalSwitchDate = &end
		result.ConfidenceScore = 0.85
		result.Explanation = fmt.Sprintf(
			"Your contract ends in %d days. Wait to avoid the $%s fee, then switch to save $%s/year.",
			daysUntilEnd, etf.StringFixed(2), annualSavings.StringFixed(2))
	case result.ImmediateSwitchSavings.IsPositive():
		result.Recommendation = analysis.SwitchNow
		result.OptimalSwitchDate = &today
		result.ConfidenceScore = 0.9
		result.Explanation = fmt.Sprintf(
			"Even with the $%s early termination fee, switching now saves $%s over your remaining contract, plus $%s/year ongoing.",
			etf.StringFixed(2), result.ImmediateSwitchSavings.StringFixed(2), annualSavings.StringFixed(2))
	default:
		result.Recommendation = analysis.WaitForContractEnd
		result.OptimalSwitchDate = &end
		result.ConfidenceScore = 0.8
		result.Explanation = fmt.Sprintf(
			"Wait %d days for your contract to end. Then switch to save $%s/year.",
			daysUntilEnd, annualSavings.StringFixed(2))
	}
	return result
}

// notBeneficialGate applies the gates in priority order; the first match wins.
func (a *Analyzer) notBeneficialGate(
	result *analysis.Contract,
	in TimingInput,
	etf, monthlySavings, annualSavings decimal.Decimal,
	breakEven, newContractMonths, daysUntilEnd int,
) bool {
	set := func(rec analysis.SwitchRecommendation, r analysis.NotBeneficialReason, confidence float64, explanation string) {
		result.Recommendation = rec
		result.NotBeneficialReason = reason(r)
		result.ConfidenceScore = confidence
		result.Explanation = explanation
		result.Details["reason"] = string(r)
	}

	switch {
	case annualSavings.LessThan(minAnnualSavings):
		set(analysis.SwitchNotBeneficial, analysis.ReasonSavingsTooSmall, 0.9, fmt.Sprintf(
			"Switching would only save $%s per year, which is not worth the effort of changing plans.",
			annualSavings.StringFixed(2)))
		return true

	case etf.GreaterThan(annualSavings) && breakEven > maxBreakEvenMonths:
		set(analysis.SwitchNotBeneficial, analysis.ReasonETFExceedsAnnualSavings, 0.95, fmt.Sprintf(
			"The $%s early termination fee is more than a full year of savings and would take %d months to recover.",
			etf.StringFixed(2), breakEven))
		return true

	case etf.IsPositive() && breakEven > newContractMonths:
		set(analysis.SwitchNotBeneficial, analysis.ReasonBreakEvenTooLong, 0.85, fmt.Sprintf(
			"Recovering the $%s early termination fee takes %d months, longer than the new plan's %d-month contract.",
			etf.StringFixed(2), breakEven, newContractMonths))
		return true

	case result.HasActiveContract && daysUntilEnd <= shortContractDays &&
		etf.GreaterThan(three.Mul(monthlySavings.Div(two))):
		end := clock.Date(*in.ContractEnd)
		result.OptimalSwitchDate = &end
		set(analysis.SwitchMarginal, analysis.ReasonContractTooShort, 0.7, fmt.Sprintf(
			"Your contract ends in %d days. Paying the $%s fee now is not worth it; switch when the contract ends.",
			daysUntilEnd, etf.StringFixed(2)))
		return true

	case annualSavings.LessThan(marginalAnnualSavings):
		set(analysis.SwitchMarginal, analysis.ReasonSavingsTooSmall, 0.6, fmt.Sprintf(
			"Switching saves $%s per year. The benefit is modest.", annualSavings.StringFixed(2)))
		return true
	}
	return false
}

func reason(r analysis.NotBeneficialReason) *analysis.NotBeneficialReason {
	return &r
}

// SwitchingWindows returns the shopping and cut-off dates ahead of a contract end.
func (a *Analyzer) SwitchingWindows(contractEnd *time.Time, today time.Time) analysis.SwitchingWindows {
	today = clock.Date(today)
	windows := analysis.SwitchingWindows{Today: today}
	if contractEnd == nil {
		return windows
	}

	end := clock.Date(*contractEnd)
	windows.ContractEnd = &end
	if !end.After(today) {
		return windows
	}

	notice := end.AddDate(0, 0, -noticeLeadDays)
	if notice.Before(today) {
		notice = today
	}
	final := end.AddDate(0, 0, -finalSwitchLeadDays)
	windows.OptimalNoticeDate = &notice
	windows.FinalSwitchDate = &final
	return windows
}

// TotalCostOfSwitching compares finishing the current contract before switching with
// paying the fee and switching today, over the same horizon.
func (a *Analyzer) TotalCostOfSwitching(
	etf decimal.Decimal,
	monthsRemaining int,
	currentMonthly, newMonthly decimal.Decimal,
	newContractMonths int,
) analysis.SwitchingCostComparison {
	remaining := decimal.NewFromInt(int64(monthsRemaining))
	newTerm := decimal.NewFromInt(int64(newContractMonths))

	stay := currentMonthly.Mul(remaining)
	after := newMonthly.Mul(newTerm)
	stayThenSwitch := stay.Add(after)
	switchNow := etf.Add(newMonthly.Mul(remaining.Add(newTerm)))
	savings := stayThenSwitch.Sub(switchNow)

	rec := "wait"
	if savings.IsPositive() {
		rec = "switch_now"
	}

	return analysis.SwitchingCostComparison{
		StayOnCurrentCost:   stay,
		NewPlanCostAfter:    after,
		TotalStayThenSwitch: stayThenSwitch,
		SwitchNowTotalCost:  switchNow,
		SavingsIfSwitchNow:  savings,
		Recommendation:      rec,
	}
}
