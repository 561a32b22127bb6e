package rest

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/feedback"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/plan"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/preference"
	"github.com/davidleathers/energy-plan-advisor/internal/service/ingestion"
)

const dateLayout = "2006-01-02"

type CreateCustomerRequest struct {
	ExternalID          string              `json:"external_id" validate:"max=255"`
	Anonymize           bool                `json:"anonymize"`
	CurrentPlanID       *uuid.UUID          `json:"current_plan_id"`
	ContractEndDate     string              `json:"contract_end_date" validate:"omitempty,datetime=2006-01-02"`
	EarlyTerminationFee decimal.NullDecimal `json:"early_termination_fee"`
	UsageData           []map[string]any    `json:"usage_data"`
}

func (r *CreateCustomerRequest) toNewCustomer() ingestion.NewCustomer {
	in := ingestion.NewCustomer{
		ExternalID:          r.ExternalID,
		Anonymize:           r.Anonymize,
		CurrentPlanID:       r.CurrentPlanID,
		EarlyTerminationFee: decimal.Zero,
		Usage:               r.UsageData,
	}
	if r.EarlyTerminationFee.Valid {
		in.EarlyTerminationFee = r.EarlyTerminationFee.Decimal
	}
	if r.ContractEndDate != "" {
		// Format already checked by the datetime tag.
		end, _ := time.Parse(dateLayout, r.ContractEndDate)
		in.ContractEndDate = &end
	}
	return in
}

type IngestUsageRequest struct {
	UsageData []map[string]any `json:"usage_data" validate:"required,min=1"`
}

type CreateSupplierRequest struct {
	Name                  string           `json:"name" validate:"required,max=255"`
	Rating                *decimal.Decimal `json:"rating"`
	CustomerServiceRating *decimal.Decimal `json:"customer_service_rating"`
	Website               string           `json:"website" validate:"omitempty,url,max=500"`
}

type CreatePlanRequest struct {
	SupplierID           uuid.UUID       `json:"supplier_id" validate:"required"`
	Name                 string          `json:"name" validate:"required,max=255"`
	Description          string          `json:"description" validate:"max=2000"`
	RateType             string          `json:"rate_type" validate:"required,oneof=fixed variable indexed time_of_use"`
	RatePerKWh           decimal.Decimal `json:"rate_per_kwh"`
	MonthlyFee           decimal.Decimal `json:"monthly_fee"`
	ContractLengthMonths int             `json:"contract_length_months" validate:"required,min=1,max=60"`
	EarlyTerminationFee  decimal.Decimal `json:"early_termination_fee"`
	CancellationFee      decimal.Decimal `json:"cancellation_fee"`
	RenewablePercentage  int             `json:"renewable_percentage" validate:"min=0,max=100"`
	IsActive             *bool           `json:"is_active"`
}

func (r *CreatePlanRequest) toPlan(now time.Time) *plan.Plan {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &plan.Plan{
		ID:                   uuid.New(),
		SupplierID:           r.SupplierID,
		Name:                 r.Name,
		Description:          r.Description,
		RateKind:             plan.RateKind(r.RateType),
		RatePerKWh:           r.RatePerKWh,
		MonthlyFee:           r.MonthlyFee,
		ContractLengthMonths: r.ContractLengthMonths,
		EarlyTerminationFee:  r.EarlyTerminationFee,
		CancellationFee:      r.CancellationFee,
		RenewablePercentage:  r.RenewablePercentage,
		Active:               active,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// PreferencesRequest is the flat wire form of weights and hard constraints. Omitted
// weights fall back to the neutral default when scoring.
type PreferencesRequest struct {
	CostSavingsWeight      decimal.NullDecimal `json:"cost_savings_weight"`
	FlexibilityWeight      decimal.NullDecimal `json:"flexibility_weight"`
	RenewableWeight        decimal.NullDecimal `json:"renewable_weight"`
	SupplierRatingWeight   decimal.NullDecimal `json:"supplier_rating_weight"`
	MinRenewablePercentage int                 `json:"min_renewable_percentage" validate:"min=0,max=100"`
	MaxContractMonths      *int                `json:"max_contract_months" validate:"omitempty,min=1,max=60"`
	AvoidVariableRates     bool                `json:"avoid_variable_rates"`
}

func (r *PreferencesRequest) toPreferences(customerID uuid.UUID, now time.Time) *preference.Preferences {
	return &preference.Preferences{
		CustomerID: customerID,
		Weights: preference.Weights{
			Cost:        r.CostSavingsWeight,
			Flexibility: r.FlexibilityWeight,
			Renewable:   r.RenewableWeight,
			Rating:      r.SupplierRatingWeight,
		},
		Constraints: preference.Constraints{
			MinRenewablePercentage: r.MinRenewablePercentage,
			MaxContractMonths:      r.MaxContractMonths,
			AvoidVariableRates:     r.AvoidVariableRates,
		},
		UpdatedAt: now,
	}
}

type RecommendationRequest struct {
	CustomerID               uuid.UUID           `json:"customer_id" validate:"required"`
	Preferences              *PreferencesRequest `json:"preferences"`
	IncludeSwitchingAnalysis *bool               `json:"include_switching_analysis"`
}

func (r *RecommendationRequest) includeSwitching() bool {
	return r.IncludeSwitchingAnalysis == nil || *r.IncludeSwitchingAnalysis
}

type FeedbackRequest struct {
	CustomerID       uuid.UUID      `json:"customer_id" validate:"required"`
	RecommendationID *uuid.UUID     `json:"recommendation_id"`
	PlanID           *uuid.UUID     `json:"plan_id"`
	FeedbackType     string         `json:"feedback_type" validate:"omitempty,oneof=recommendation_rating plan_selected general_feedback"`
	Rating           *int           `json:"rating" validate:"omitempty,min=1,max=5"`
	WasHelpful       *bool          `json:"was_helpful"`
	SwitchedToPlan   *bool          `json:"switched_to_plan"`
	Comment          string         `json:"comment" validate:"max=2000"`
	Metadata         map[string]any `json:"metadata"`
}

func (r *FeedbackRequest) toFeedback() *feedback.Feedback {
	return &feedback.Feedback{
		CustomerID:       r.CustomerID,
		RecommendationID: r.RecommendationID,
		PlanID:           r.PlanID,
		Type:             feedback.Type(r.FeedbackType),
		Rating:           r.Rating,
		WasHelpful:       r.WasHelpful,
		SwitchedToPlan:   r.SwitchedToPlan,
		Comment:          r.Comment,
		Metadata:         r.Metadata,
	}
}
