package scoring

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/plan"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/preference"
	"github.com/davidleathers/energy-plan-advisor/internal/service/cost"
)

const scorePlaces = 4

var (
	defaultRating     = decimal.NewFromInt(3)
	maxRatingScale    = decimal.NewFromInt(5)
	maxRenewableScale = decimal.NewFromInt(100)
	one               = decimal.NewFromInt(1)
)

// ScoredPlan carries the four normalized criteria and their weighted sum.
type ScoredPlan struct {
	Plan             *plan.Plan          `json:"plan"`
	AnnualCost       decimal.Decimal     `json:"annual_cost"`
	CostScore        float64             `json:"cost_score"`
	FlexibilityScore float64             `json:"flexibility_score"`
	RenewableScore   float64             `json:"renewable_score"`
	RatingScore      float64             `json:"rating_score"`
	OverallScore     float64             `json:"overall_score"`
	WeightsApplied   preference.Resolved `json:"weights_applied"`
}

// Engine scores plans relative to the candidate set it is given.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

type bounds struct {
	minCost, maxCost         decimal.Decimal
	minContract, maxContract decimal.Decimal
	renewableCeil            decimal.Decimal
	ratingCeil               decimal.Decimal
}

// ScorePlans normalizes each criterion over plans and applies weights.
// Every plan must have an entry in costs; plans without one are skipped.
func (e *Engine) ScorePlans(plans []*plan.Plan, costs map[uuid.UUID]cost.PlanCost, weights preference.Weights) []ScoredPlan {
	candidates := make([]*plan.Plan, 0, len(plans))
	for _, p := range plans {
		if _, ok := costs[p.ID]; ok {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return []ScoredPlan{}
	}

	b := computeBounds(candidates, costs)
	w := weights.Effective()

	scored := make([]ScoredPlan, 0, len(candidates))
	for _, p := range candidates {
		annual := costs[p.ID].AnnualCost

		costScore := normalizeInverse(annual, b.minCost, b.maxCost)
		flexScore := normalizeInverse(decimal.NewFromInt(int64(p.ContractLengthMonths)), b.minContract, b.maxContract)
		renewableScore := normalize(decimal.NewFromInt(int64(p.RenewablePercentage)), decimal.Zero, b.renewableCeil)
		ratingScore := normalize(effectiveRating(p), decimal.Zero, b.ratingCeil)

		overall := w.Cost.Mul(costScore).
			Add(w.Flexibility.Mul(flexScore)).
			Add(w.Renewable.Mul(renewableScore)).
			Add(w.Rating.Mul(ratingScore))

		scored = append(scored, ScoredPlan{
			Plan:             p,
			AnnualCost:       annual,
			CostScore:        roundScore(costScore),
			FlexibilityScore: roundScore(flexScore),
			RenewableScore:   roundScore(renewableScore),
			RatingScore:      roundScore(ratingScore),
			OverallScore:     roundScore(overall),
			WeightsApplied:   w,
		})
	}
	return scored
}

func computeBounds(plans []*plan.Plan, costs map[uuid.UUID]cost.PlanCost) bounds {
	first := plans[0]
	b := bounds{
		minCost:       costs[first.ID].AnnualCost,
		maxCost:       costs[first.ID].AnnualCost,
		minContract:   decimal.NewFromInt(int64(first.ContractLengthMonths)),
		maxContract:   decimal.NewFromInt(int64(first.ContractLengthMonths)),
		renewableCeil: decimal.Zero,
		ratingCeil:    decimal.Zero,
	}

	anyRated := false
	for _, p := range plans {
		c := costs[p.ID].AnnualCost
		b.minCost = decimal.Min(b.minCost, c)
		b.maxCost = decimal.Max(b.maxCost, c)

		months := decimal.NewFromInt(int64(p.ContractLengthMonths))
		b.minContract = decimal.Min(b.minContract, months)
		b.maxContract = decimal.Max(b.maxContract, months)

		b.renewableCeil = decimal.Max(b.renewableCeil, decimal.NewFromInt(int64(p.RenewablePercentage)))

		if _, ok := p.SupplierRating(); ok {
			anyRated = true
		}
		b.ratingCeil = decimal.Max(b.ratingCeil, effectiveRating(p))
	}

	if !b.renewableCeil.IsPositive() {
		b.renewableCeil = maxRenewableScale
	}
	if !anyRated || !b.ratingCeil.IsPositive() {
		b.ratingCeil = maxRatingScale
	}
	return b
}

// effectiveRating treats an unrated supplier as an average 3.0.
func effectiveRating(p *plan.Plan) decimal.Decimal {
	if r, ok := p.SupplierRating(); ok {
		return r
	}
	return defaultRating
}

// normalize maps value into [0,1] where higher is better; a degenerate range scores 1.0.
func normalize(value, lo, hi decimal.Decimal) decimal.Decimal {
	if hi.Equal(lo) {
		return one
	}
	return value.Sub(lo).Div(hi.Sub(lo))
}

// normalizeInverse maps value into [0,1] where lower is better; a degenerate range scores 1.0.
func normalizeInverse(value, lo, hi decimal.Decimal) decimal.Decimal {
	if hi.Equal(lo) {
		return one
	}
	return hi.Sub(value).Div(hi.Sub(lo))
}

func roundScore(v decimal.Decimal) float64 {
	return v.Round(scorePlaces).InexactFloat64()
}
