package recommendation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/plan"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/recommendation"
	"github.com/davidleathers/energy-plan-advisor/internal/service/scoring"
)

const (
	fullHistoryMonths     = 12
	minConfidentMonths    = 6
	longContractMonths    = 24
	flexibleContractLimit = 6
	significantRenewable  = 50
	minEligiblePlans      = 3
)

var (
	highETF          = decimal.NewFromInt(200)
	highlyRatedFloor = decimal.NewFromInt(4)
)

func assessRisks(p *plan.Plan, monthsOfData int) []recommendation.RiskFlag {
	risks := make([]recommendation.RiskFlag, 0)

	if p.RateKind.IsVariable() {
		risks = append(risks, recommendation.RiskFlag{
			Code:     recommendation.RiskVariableRate,
			Severity: recommendation.SeverityMedium,
			Message:  "This plan has a variable rate that may fluctuate with market conditions.",
			Details:  map[string]any{"rate_type": p.RateKind.String()},
		})
	}

	if p.ContractLengthMonths >= longContractMonths {
		risks = append(risks, recommendation.RiskFlag{
			Code:     recommendation.RiskLongContract,
			Severity: recommendation.SeverityLow,
			Message:  fmt.Sprintf("This plan requires a %d-month commitment.", p.ContractLengthMonths),
			Details:  map[string]any{"months": p.ContractLengthMonths},
		})
	}

	if p.EarlyTerminationFee.GreaterThanOrEqual(highETF) {
		risks = append(risks, recommendation.RiskFlag{
			Code:     recommendation.RiskHighETF,
			Severity: recommendation.SeverityMedium,
			Message:  fmt.Sprintf("Early termination fee of $%s applies.", p.EarlyTerminationFee.StringFixed(2)),
			Details:  map[string]any{"etf": p.EarlyTerminationFee.StringFixed(2)},
		})
	}

	if monthsOfData < fullHistoryMonths {
		risks = append(risks, recommendation.RiskFlag{
			Code:     recommendation.RiskInsufficientData,
			Severity: recommendation.SeverityLow,
			Message: fmt.Sprintf("Only %d months of usage data available. Projections may be less accurate.",
				monthsOfData),
			Details: map[string]any{"months_available": monthsOfData},
		})
	}

	return risks
}

func confidenceFor(monthsOfData int, risks []recommendation.RiskFlag) recommendation.Confidence {
	if monthsOfData < minConfidentMonths {
		return recommendation.ConfidenceLow
	}
	if monthsOfData < fullHistoryMonths {
		return recommendation.ConfidenceMedium
	}
	for _, r := range risks {
		if r.Severity == recommendation.SeverityHigh {
			return recommendation.ConfidenceMedium
		}
	}
	return recommendation.ConfidenceHigh
}

func explain(sp scoring.ScoredPlan, savings decimal.Decimal, rationale string) (string, recommendation.ExplanationDetails) {
	p := sp.Plan
	var parts []string

	switch {
	case sp.CostScore > 0.8:
		parts = append(parts, fmt.Sprintf("offers excellent value with projected annual savings of $%s", savings.StringFixed(2)))
	case savings.IsPositive():
		parts = append(parts, fmt.Sprintf("could save you $%s per year", savings.StringFixed(2)))
	}

	if p.RenewablePercentage >= significantRenewable {
		parts = append(parts, fmt.Sprintf("includes %d%% renewable energy", p.RenewablePercentage))
	}

	if p.ContractLengthMonths <= flexibleContractLimit {
		parts = append(parts, "offers flexible month-to-month or short-term commitment")
	}

	if r, ok := p.SupplierRating(); ok && r.GreaterThanOrEqual(highlyRatedFloor) {
		parts = append(parts, fmt.Sprintf("from %s, a highly-rated supplier", p.SupplierName()))
	}

	text := "This plan matches your preferences."
	if len(parts) > 0 {
		text = "This plan " + strings.Join(parts, ", ") + "."
	}

	details := recommendation.ExplanationDetails{
		CostRanking:      "competitive",
		RenewableLevel:   "standard",
		Flexibility:      "standard",
		ProjectedSavings: savings.StringFixed(2),
		ScoreRationale:   rationale,
	}
	if sp.CostScore > 0.8 {
		details.CostRanking = "top"
	}
	if p.RenewablePercentage >= significantRenewable {
		details.RenewableLevel = "high"
	}
	if p.ContractLengthMonths <= flexibleContractLimit {
		details.Flexibility = "high"
	}

	return text, details
}

func warningsFor(monthsOfData, catalogSize, eligible int) []string {
	warnings := make([]string, 0)

	if eligible < minEligiblePlans {
		warnings = append(warnings, fmt.Sprintf(
			"Only %d plans match your criteria. Consider relaxing constraints for more options.", eligible))
	}

	if monthsOfData < fullHistoryMonths {
		warnings = append(warnings, fmt.Sprintf(
			"Projections based on %d months of data. 12 months recommended for accurate estimates.", monthsOfData))
	}

	if filtered := catalogSize - eligible; filtered > eligible {
		warnings = append(warnings, fmt.Sprintf(
			"%d plans were filtered out based on your preferences.", filtered))
	}

	return warnings
}
