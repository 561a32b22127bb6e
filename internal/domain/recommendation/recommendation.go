package recommendation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/analysis"
)

// FilterCode identifies the hard constraint that excluded a plan.
type FilterCode string

const (
	FilterLowRenewable FilterCode = "LOW_RENEWABLE"
	FilterLongContract FilterCode = "LONG_CONTRACT"
	FilterVariableRate FilterCode = "VARIABLE_RATE"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Risk flag codes.
const (
	RiskVariableRate     = "VARIABLE_RATE"
	RiskLongContract     = "LONG_CONTRACT"
	RiskHighETF          = "HIGH_ETF"
	RiskInsufficientData = "INSUFFICIENT_DATA"
)

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

type RiskFlag struct {
	Code     string         `json:"code"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
}

// FilteredPlan records a plan removed by a hard constraint, for transparency.
type FilteredPlan struct {
	PlanID       uuid.UUID      `json:"plan_id"`
	PlanName     string         `json:"plan_name"`
	SupplierName string         `json:"supplier_name,omitempty"`
	FilterCode   FilterCode     `json:"filter_code"`
	FilterReason string         `json:"filter_reason"`
	Details      map[string]any `json:"details,omitempty"`
}

// ExplanationDetails is the structured counterpart of the explanation text.
type ExplanationDetails struct {
	CostRanking      string `json:"cost_ranking"`
	RenewableLevel   string `json:"renewable_level"`
	Flexibility      string `json:"flexibility"`
	ProjectedSavings string `json:"projected_savings"`
	ScoreRationale   string `json:"score_rationale,omitempty"`
}

type Scores struct {
	Overall     float64 `json:"overall_score"`
	Cost        float64 `json:"cost_score"`
	Flexibility float64 `json:"flexibility_score"`
	Renewable   float64 `json:"renewable_score"`
	Rating      float64 `json:"rating_score"`
}

type Recommendation struct {
	ID                     uuid.UUID          `json:"id"`
	CustomerID             uuid.UUID          `json:"customer_id"`
	Rank                   int                `json:"rank"`
	PlanID                 uuid.UUID          `json:"plan_id"`
	PlanName               string             `json:"plan_name"`
	SupplierName           string             `json:"supplier_name,omitempty"`
	Scores                 Scores             `json:"scores"`
	ProjectedAnnualCost    decimal.Decimal    `json:"projected_annual_cost"`
	ProjectedMonthlyCost   decimal.Decimal    `json:"projected_monthly_cost"`
	ProjectedAnnualSavings decimal.Decimal    `json:"projected_annual_savings"`
	SwitchingCost          decimal.Decimal    `json:"switching_cost"`
	NetFirstYearSavings    decimal.Decimal    `json:"net_first_year_savings"`
	Explanation            string             `json:"explanation"`
	ExplanationDetails     ExplanationDetails `json:"explanation_details"`
	RiskFlags              []RiskFlag         `json:"risk_flags"`
	ConfidenceLevel        Confidence         `json:"confidence_level"`
	SwitchingAnalysis      *analysis.Contract `json:"switching_analysis,omitempty"`
	CreatedAt              time.Time          `json:"created_at"`
	ExpiresAt              time.Time          `json:"expires_at"`
}

// Set is the full output of one recommendation run.
type Set struct {
	CustomerID        uuid.UUID                  `json:"customer_id"`
	Recommendations   []Recommendation           `json:"recommendations"`
	FilteredPlans     []FilteredPlan             `json:"filtered_plans"`
	UsageAnalysis     *analysis.Usage            `json:"usage_analysis,omitempty"`
	CurrentAnnualCost *decimal.Decimal           `json:"current_annual_cost,omitempty"`
	BestSavings       decimal.Decimal            `json:"best_savings"`
	SwitchingWindows  *analysis.SwitchingWindows `json:"switching_windows,omitempty"`
	Warnings          []string                   `json:"warnings"`
	GeneratedAt       time.Time                  `json:"generated_at"`
	ExpiresAt         time.Time                  `json:"expires_at"`
	ProcessingTimeMS  int64                      `json:"processing_time_ms"`
}

// CacheKey is the cache key for a customer's recommendation set.
func CacheKey(customerID uuid.UUID) string {
	return fmt.Sprintf("recommendations:%s", customerID)
}
