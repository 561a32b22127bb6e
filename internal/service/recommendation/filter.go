package recommendation

import (
	"fmt"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/plan"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/preference"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/recommendation"
)

// filterPlans applies the hard constraints in a fixed order. A plan that fails several
// constraints is recorded once, under the first one it fails.
func filterPlans(plans []*plan.Plan, c preference.Constraints) ([]*plan.Plan, []recommendation.FilteredPlan) {
	eligible := make([]*plan.Plan, 0, len(plans))
	filtered := make([]recommendation.FilteredPlan, 0)

	for _, p := range plans {
		fp := recommendation.FilteredPlan{
			PlanID:       p.ID,
			PlanName:     p.Name,
			SupplierName: p.SupplierName(),
		}

		switch {
		case p.RenewablePercentage < c.MinRenewablePercentage:
			fp.FilterCode = recommendation.FilterLowRenewable
			fp.FilterReason = fmt.Sprintf("Renewable energy is %d%%, below your %d%% minimum requirement.",
				p.RenewablePercentage, c.MinRenewablePercentage)
			fp.Details = map[string]any{
				"plan_renewable":     p.RenewablePercentage,
				"required_renewable": c.MinRenewablePercentage,
			}

		case c.MaxContractMonths != nil && p.ContractLengthMonths > *c.MaxContractMonths:
			fp.FilterCode = recommendation.FilterLongContract
			fp.FilterReason = fmt.Sprintf("Contract length is %d months, exceeding your %d-month maximum.",
				p.ContractLengthMonths, *c.MaxContractMonths)
			fp.Details = map[string]any{
				"plan_contract_months": p.ContractLengthMonths,
				"max_contract_months":  *c.MaxContractMonths,
			}

		case c.AvoidVariableRates && p.RateKind.IsVariable():
			fp.FilterCode = recommendation.FilterVariableRate
			fp.FilterReason = fmt.Sprintf("This plan has a %s rate, which you've chosen to avoid.", p.RateKind)
			fp.Details = map[string]any{"rate_type": p.RateKind.String()}

		default:
			eligible = append(eligible, p)
			continue
		}

		filtered = append(filtered, fp)
	}

	return eligible, filtered
}
