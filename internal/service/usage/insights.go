package usage

import (
	"fmt"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/analysis"
)

const lowQualityThreshold = 0.7

// PlanSuitabilityInsights turns a usage profile into short UI guidance keyed by category.
// It does not influence scoring.
func (a *Analyzer) PlanSuitabilityInsights(u analysis.Usage) map[string]string {
	insights := make(map[string]string)

	switch u.SeasonalPattern {
	case analysis.PatternSummerPeak:
		insights[analysis.InsightSeasonal] = "Your usage peaks in summer, most likely from cooling. " +
			"Plans with lower summer pricing or time-of-use rates may suit you."
	case analysis.PatternWinterPeak:
		insights[analysis.InsightSeasonal] = "Your usage peaks in winter, most likely from heating. " +
			"Stable fixed rates protect you from winter price spikes."
	case analysis.PatternDualPeak:
		insights[analysis.InsightSeasonal] = "Your usage climbs in both summer and winter. " +
			"A fixed-rate plan keeps those bills predictable."
	case analysis.PatternFlat:
		insights[analysis.InsightSeasonal] = "Your usage is steady through the year, " +
			"so most rate structures will work well."
	}

	switch u.ConsumptionTier {
	case analysis.TierVeryHigh:
		insights[analysis.InsightConsumption] = "Your usage is well above average. " +
			"The rate per kWh matters far more than the monthly fee."
	case analysis.TierHigh:
		insights[analysis.InsightConsumption] = "Your usage is above average, " +
			"so the rate per kWh drives most of your bill."
	case analysis.TierLow:
		insights[analysis.InsightConsumption] = "Your usage is below average. " +
			"Watch for monthly fees that cancel out a low rate."
	}

	switch u.Trend {
	case analysis.TrendIncreasing:
		insights[analysis.InsightTrend] = fmt.Sprintf("Your usage is rising (%.1f%%). "+
			"Favor a low rate per kWh over a low fixed fee.", u.TrendPercentChange)
	case analysis.TrendDecreasing:
		insights[analysis.InsightTrend] = fmt.Sprintf("Your usage is falling (%.1f%%). "+
			"Shorter contracts keep you flexible as your needs change.", u.TrendPercentChange)
	}

	if u.DataQualityScore < lowQualityThreshold {
		insights[analysis.InsightDataQuality] = "Limited usage history makes these projections less certain. " +
			"A shorter-term plan is safer until more data is available."
	}

	return insights
}
