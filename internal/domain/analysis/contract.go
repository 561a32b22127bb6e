package analysis

import (
	"time"

	"github.com/shopspring/decimal"
)

// SwitchRecommendation is the single timing decision for one candidate plan.
type SwitchRecommendation string

const (
	SwitchNow           SwitchRecommendation = "switch_now"
	SwitchSoon          SwitchRecommendation = "switch_soon"
	WaitForContractEnd  SwitchRecommendation = "wait_for_contract_end"
	SwitchNotBeneficial SwitchRecommendation = "not_beneficial"
	SwitchMarginal      SwitchRecommendation = "marginal_benefit"
)

// NotBeneficialReason explains a not_beneficial or marginal_benefit outcome.
type NotBeneficialReason string

const (
	ReasonNewPlanMoreExpensive    NotBeneficialReason = "NEW_PLAN_MORE_EXPENSIVE"
	ReasonSavingsTooSmall         NotBeneficialReason = "SAVINGS_TOO_SMALL"
	ReasonETFExceedsAnnualSavings NotBeneficialReason = "ETF_EXCEEDS_ANNUAL_SAVINGS"
	ReasonBreakEvenTooLong        NotBeneficialReason = "BREAK_EVEN_TOO_LONG"
	ReasonContractTooShort        NotBeneficialReason = "CONTRACT_TOO_SHORT"
)

// Contract is the outcome of a switch-timing analysis.
type Contract struct {
	HasActiveContract    bool                 `json:"has_active_contract"`
	ContractEndDate      *time.Time           `json:"contract_end_date,omitempty"`
	DaysUntilContractEnd *int                 `json:"days_until_contract_end,omitempty"`
	EarlyTerminationFee  decimal.Decimal      `json:"early_termination_fee"`
	Recommendation       SwitchRecommendation `json:"switch_recommendation"`
	OptimalSwitchDate    *time.Time           `json:"optimal_switch_date,omitempty"`
	BreakEvenMonths      *int                 `json:"break_even_months,omitempty"`

	RemainingContractCost  decimal.Decimal `json:"remaining_contract_cost"`
	NewPlanCostSamePeriod  decimal.Decimal `json:"new_plan_cost_same_period"`
	ImmediateSwitchSavings decimal.Decimal `json:"immediate_switch_savings"`
	WaitToSwitchSavings    decimal.Decimal `json:"wait_to_switch_savings"`

	NotBeneficialReason *NotBeneficialReason `json:"not_beneficial_reason,omitempty"`
	ConfidenceScore     float64              `json:"confidence_score"`
	Explanation         string               `json:"explanation"`
	Details             map[string]any       `json:"details"`
}

// SwitchingWindows are the key calendar dates around a contract end.
type SwitchingWindows struct {
	Today             time.Time  `json:"today"`
	ContractEnd       *time.Time `json:"contract_end,omitempty"`
	OptimalNoticeDate *time.Time `json:"optimal_notice_date,omitempty"`
	FinalSwitchDate   *time.Time `json:"final_switch_date,omitempty"`
}

// SwitchingCostComparison contrasts staying until contract end against switching today.
type SwitchingCostComparison struct {
	StayOnCurrentCost   decimal.Decimal `json:"stay_on_current_cost"`
	NewPlanCostAfter    decimal.Decimal `json:"new_plan_cost_after"`
	TotalStayThenSwitch decimal.Decimal `json:"total_stay_then_switch"`
	SwitchNowTotalCost  decimal.Decimal `json:"switch_now_total_cost"`
	SavingsIfSwitchNow  decimal.Decimal `json:"savings_if_switch_now"`
	Recommendation      string          `json:"recommendation"`
}
