package feedback

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestFeedbackValidate(t *testing.T) {
	customerID := uuid.New()
	tests := []struct {
		name     string
		fb       Feedback
		wantErr  string
		wantType Type
	}{
		{"defaults type", Feedback{CustomerID: customerID, Rating: intPtr(5)}, "", TypeRecommendationRating},
		{"plan selected", Feedback{CustomerID: customerID, Type: TypePlanSelected}, "", TypePlanSelected},
		{"missing customer", Feedback{}, "customer_id is required", ""},
		{"unknown type", Feedback{CustomerID: customerID, Type: "complaint"}, "unknown feedback type", ""},
		{"rating too low", Feedback{CustomerID: customerID, Rating: intPtr(0)}, "rating must be between 1 and 5", ""},
		{"rating too high", Feedback{CustomerID: customerID, Rating: intPtr(6)}, "rating must be between 1 and 5", ""},
		{"comment too long", Feedback{CustomerID: customerID, Comment: strings.Repeat("x", 2001)}, "comment must be at most", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := tt.fb
			err := fb.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, fb.Type)
		})
	}
}

func boolPtr(b bool) *bool { return &b }

func TestSummarize(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		s := Summarize(nil)
		assert.Equal(t, 0, s.Total)
		assert.Nil(t, s.AverageRating)
		assert.Nil(t, s.HelpfulPercentage)
		assert.Nil(t, s.SwitchRate)
		assert.Equal(t, 0, s.RatingDistribution[5])
	})

	t.Run("mixed answers", func(t *testing.T) {
		entries := []Feedback{
			{Type: TypeRecommendationRating, Rating: intPtr(5), WasHelpful: boolPtr(true)},
			{Type: TypeRecommendationRating, Rating: intPtr(3), WasHelpful: boolPtr(false)},
			{Type: TypePlanSelected, SwitchedToPlan: boolPtr(true), WasHelpful: boolPtr(true)},
			{Type: TypeGeneral, Rating: intPtr(4), SwitchedToPlan: boolPtr(false)},
		}

		s := Summarize(entries)
		assert.Equal(t, 4, s.Total)
		require.NotNil(t, s.AverageRating)
		assert.InDelta(t, 4.0, *s.AverageRating, 1e-9)
		require.NotNil(t, s.HelpfulPercentage)
		assert.InDelta(t, 66.6667, *s.HelpfulPercentage, 1e-3)
		require.NotNil(t, s.SwitchRate)
		assert.InDelta(t, 50.0, *s.SwitchRate, 1e-9)
		assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 1, 4: 1, 5: 1}, s.RatingDistribution)
		assert.Equal(t, map[string]int{
			"recommendation_rating": 2,
			"plan_selected":         1,
			"general_feedback":      1,
		}, s.ByType)
	})
}
