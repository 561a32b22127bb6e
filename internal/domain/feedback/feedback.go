package feedback

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/errors"
)

type Type string

const (
	TypeRecommendationRating Type = "recommendation_rating"
	TypePlanSelected         Type = "plan_selected"
	TypeGeneral              Type = "general_feedback"
)

const maxCommentLength = 2000

// Feedback is a customer's reaction to a recommendation run.
type Feedback struct {
	ID               uuid.UUID      `json:"id"`
	CustomerID       uuid.UUID      `json:"customer_id"`
	RecommendationID *uuid.UUID     `json:"recommendation_id,omitempty"`
	PlanID           *uuid.UUID     `json:"plan_id,omitempty"`
	Type             Type           `json:"feedback_type"`
	Rating           *int           `json:"rating,omitempty"`
	WasHelpful       *bool          `json:"was_helpful,omitempty"`
	SwitchedToPlan   *bool          `json:"switched_to_plan,omitempty"`
	Comment          string         `json:"comment,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Validate fills the default type and rejects out-of-range values.
func (f *Feedback) Validate() error {
	if f.CustomerID == uuid.Nil {
		return errors.NewValidationError("INVALID_FEEDBACK", "customer_id is required")
	}
	if f.Type == "" {
		f.Type = TypeRecommendationRating
	}
	switch f.Type {
	case TypeRecommendationRating, TypePlanSelected, TypeGeneral:
	default:
		return errors.NewValidationError("INVALID_FEEDBACK", fmt.Sprintf("unknown feedback type %q", f.Type))
	}
	if f.Rating != nil && (*f.Rating < 1 || *f.Rating > 5) {
		return errors.NewValidationError("INVALID_FEEDBACK", "rating must be between 1 and 5")
	}
	f.Comment = strings.TrimSpace(f.Comment)
	if len(f.Comment) > maxCommentLength {
		return errors.NewValidationError("INVALID_FEEDBACK", "comment must be at most 2000 characters")
	}
	return nil
}

// Stats aggregates all feedback on record.
type Stats struct {
	Total              int            `json:"total_feedback"`
	AverageRating      *float64       `json:"average_rating,omitempty"`
	HelpfulPercentage  *float64       `json:"helpful_percentage,omitempty"`
	SwitchRate         *float64       `json:"switch_rate,omitempty"`
	RatingDistribution map[int]int    `json:"rating_distribution"`
	ByType             map[string]int `json:"feedback_by_type"`
}

// Summary is the stats view together with the most recent entries.
type Summary struct {
	Stats  Stats      `json:"stats"`
	Recent []Feedback `json:"recent_feedback"`
}

// Summarize computes Stats over a set of feedback entries. Percentages are over the
// entries that answered the question, and stay nil when none did.
func Summarize(entries []Feedback) Stats {
	stats := Stats{
		Total:              len(entries),
		RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		ByType:             make(map[string]int),
	}

	var ratingSum, rated, helpful, answeredHelpful, switched, answeredSwitch int
	for _, f := range entries {
		stats.ByType[string(f.Type)]++
		if f.Rating != nil {
			ratingSum += *f.Rating
			rated++
			stats.RatingDistribution[*f.Rating]++
		}
		if f.WasHelpful != nil {
			answeredHelpful++
			if *f.WasHelpful {
				helpful++
			}
		}
		if f.SwitchedToPlan != nil {
			answeredSwitch++
			if *f.SwitchedToPlan {
				switched++
			}
		}
	}

	stats.AverageRating = ratio(float64(ratingSum), rated, 1)
	stats.HelpfulPercentage = ratio(float64(helpful), answeredHelpful, 100)
	stats.SwitchRate = ratio(float64(switched), answeredSwitch, 100)
	return stats
}

func ratio(num float64, den int, scale float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / float64(den) * scale
	return &v
}
