package scoring

import "strings"

// ExplainScore summarizes which criteria drove a plan's score.
func (e *Engine) ExplainScore(sp ScoredPlan) string {
	var parts []string

	switch {
	case sp.CostScore > 0.8:
		parts = append(parts, "excellent cost efficiency")
	case sp.CostScore > 0.5:
		parts = append(parts, "competitive pricing")
	}

	// a low flexibility score means a long commitment
	switch {
	case sp.FlexibilityScore > 0.8:
		parts = append(parts, "high flexibility with short contract terms")
	case sp.FlexibilityScore < 0.3:
		parts = append(parts, "longer contract commitment required")
	}

	switch {
	case sp.RenewableScore > 0.8:
		parts = append(parts, "strong renewable energy content")
	case sp.RenewableScore > 0.5:
		parts = append(parts, "moderate renewable energy mix")
	}

	if sp.RatingScore > 0.8 {
		parts = append(parts, "highly rated supplier")
	}

	if len(parts) == 0 {
		return "This plan provides a balanced option across your criteria."
	}
	return "This plan scores well due to: " + strings.Join(parts, ", ") + "."
}
