package usage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/analysis"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/customer"
	"github.com/davidleathers/energy-plan-advisor/internal/testutil/fixtures"
)

// series builds consecutive monthly records starting at year/month.
func series(year int, month time.Month, values ...float64) []customer.UsageRecord {
	records := make([]customer.UsageRecord, len(values))
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		records[i] = customer.UsageRecord{
			Period: start.AddDate(0, i, 0),
			KWh:    decimal.NewFromFloat(v),
		}
	}
	return records
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestAnalyze_Empty(t *testing.T) {
	a := NewAnalyzer().Analyze(nil)

	assert.Equal(t, analysis.PatternUnknown, a.SeasonalPattern)
	assert.Equal(t, analysis.TrendUnknown, a.Trend)
	assert.Equal(t, analysis.TierUnknown, a.ConsumptionTier)
	assert.Zero(t, a.MonthsOfData)
	assert.Zero(t, a.DataQualityScore)
	assert.True(t, a.HasGaps)
	assert.Empty(t, a.GapMonths)
	assert.False(t, a.IsHighConsumer)
}

func TestAnalyze_FlatYear(t *testing.T) {
	a := NewAnalyzer().Analyze(series(2023, time.January, repeat(1000, 12)...))

	assert.Equal(t, 12000.0, a.TotalKWh)
	assert.Equal(t, 12000.0, a.AnnualizedKWh)
	assert.Equal(t, 1000.0, a.AverageMonthlyKWh)
	assert.Equal(t, 1000.0, a.MinMonthlyKWh)
	assert.Equal(t, 1000.0, a.MaxMonthlyKWh)
	assert.Zero(t, a.StdDev)

	assert.Equal(t, analysis.PatternFlat, a.SeasonalPattern)
	assert.Equal(t, []int{1, 2, 3}, a.LowMonths)
	assert.Equal(t, []int{10, 11, 12}, a.PeakMonths)
	assert.Zero(t, a.SeasonalVariationPercent)

	assert.Equal(t, analysis.TrendStable, a.Trend)
	assert.Zero(t, a.TrendPercentChange)
	assert.Equal(t, analysis.TierHigh, a.ConsumptionTier)
	assert.True(t, a.IsHighConsumer)
	assert.Equal(t, 1.0, a.DataQualityScore)
	assert.False(t, a.HasGaps)
}

func TestAnalyze_SeasonalPatterns(t *testing.T) {
	summer := []float64{800, 800, 800, 800, 800, 1600, 1600, 1600, 800, 800, 800, 800}
	winter := []float64{1600, 1600, 800, 800, 800, 800, 800, 800, 800, 800, 800, 1600}
	dual := []float64{1500, 1500, 500, 500, 500, 1500, 1500, 1500, 500, 500, 500, 1500}

	tests := []struct {
		name        string
		values      []float64
		pattern     analysis.SeasonalPattern
		peak        []int
		low         []int
		variation   float64
		trend       analysis.Trend
		trendChange float64
	}{
		{"summer peak", summer, analysis.PatternSummerPeak, []int{6, 7, 8}, []int{12, 1, 2}, 100.0, analysis.TrendIncreasing, 14.3},
		{"winter peak", winter, analysis.PatternWinterPeak, []int{12, 1, 2}, []int{6, 7, 8}, 100.0, analysis.TrendDecreasing, -12.5},
		{"dual peak", dual, analysis.PatternDualPeak, []int{6, 7, 8, 12, 1, 2}, []int{3, 4, 5, 9, 10, 11}, 200.0, analysis.TrendStable, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyzer().Analyze(series(2023, time.January, tt.values...))

			assert.Equal(t, tt.pattern, a.SeasonalPattern)
			assert.Equal(t, tt.peak, a.PeakMonths)
			assert.Equal(t, tt.low, a.LowMonths)
			assert.InDelta(t, tt.variation, a.SeasonalVariationPercent, 0.001)
			assert.Equal(t, tt.trend, a.Trend)
			assert.InDelta(t, tt.trendChange, a.TrendPercentChange, 0.001)
		})
	}
}

func TestAnalyze_SeasonalFixture(t *testing.T) {
	a := NewAnalyzer().Analyze(fixtures.SeasonalUsage(2023))

	assert.Equal(t, analysis.PatternDualPeak, a.SeasonalPattern)
	assert.Equal(t, 12950.0, a.AnnualizedKWh)
	assert.Equal(t, analysis.TierHigh, a.ConsumptionTier)
	assert.True(t, a.IsHighConsumer)
	assert.Equal(t, analysis.TrendIncreasing, a.Trend)
	assert.Equal(t, 1.0, a.DataQualityScore)
	assert.False(t, a.HasGaps)
}

func TestAnalyze_ShortHistory(t *testing.T) {
	a := NewAnalyzer().Analyze(series(2024, time.March, 500, 520, 480, 510))

	assert.Equal(t, analysis.PatternUnknown, a.SeasonalPattern)
	assert.Empty(t, a.PeakMonths)
	assert.Equal(t, analysis.TrendUnknown, a.Trend)
	assert.Equal(t, 4, a.MonthsOfData)
	assert.InDelta(t, 0.6, a.DataQualityScore, 1e-9)
	assert.Equal(t, 6030.0, a.AnnualizedKWh)
	assert.Equal(t, analysis.TierMedium, a.ConsumptionTier)
}

func TestAnalyze_Gaps(t *testing.T) {
	tests := []struct {
		name    string
		periods []time.Time
		gaps    []int
		quality float64
	}{
		{
			name: "two gaps in year",
			periods: []time.Time{
				time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC),
			},
			gaps:    []int{3, 6},
			quality: 0.45,
		},
		{
			name: "gap across year boundary",
			periods: []time.Time{
				time.Date(2022, 11, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			},
			gaps:    []int{12},
			quality: 0.4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make([]customer.UsageRecord, len(tt.periods))
			for i, p := range tt.periods {
				records[i] = customer.UsageRecord{Period: p, KWh: decimal.NewFromInt(500)}
			}
			// reverse order to prove sorting happens first
			for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
				records[i], records[j] = records[j], records[i]
			}

			a := NewAnalyzer().Analyze(records)
			assert.True(t, a.HasGaps)
			assert.Equal(t, tt.gaps, a.GapMonths)
			assert.InDelta(t, tt.quality, a.DataQualityScore, 1e-9)
		})
	}
}

func TestAnalyze_QualityPenalties(t *testing.T) {
	values := repeat(1000, 12)
	values[3] = 0
	values[7] = 5000

	a := NewAnalyzer().Analyze(series(2023, time.January, values...))
	// one zero month (-0.05) and one outlier above 3x the mean (-0.03)
	assert.InDelta(t, 0.92, a.DataQualityScore, 1e-9)
	assert.Equal(t, 0.0, a.MinMonthlyKWh)
	assert.Equal(t, 5000.0, a.MaxMonthlyKWh)
}

func TestAnalyze_Tiers(t *testing.T) {
	tests := []struct {
		monthly float64
		tier    analysis.ConsumptionTier
		high    bool
	}{
		{400, analysis.TierLow, false},
		{800, analysis.TierMedium, false},
		{875, analysis.TierHigh, false},
		{900, analysis.TierHigh, true},
		{1300, analysis.TierVeryHigh, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			a := NewAnalyzer().Analyze(series(2023, time.January, repeat(tt.monthly, 6)...))
			assert.Equal(t, tt.tier, a.ConsumptionTier)
			assert.Equal(t, tt.high, a.IsHighConsumer)
		})
	}
}

func TestAnalyze_StdDevAndTrendEdgeCases(t *testing.T) {
	a := NewAnalyzer().Analyze(series(2023, time.January, 2, 4, 4, 4, 5, 5, 7, 9))
	assert.Equal(t, 2.14, a.StdDev)

	single := NewAnalyzer().Analyze(series(2023, time.January, 750))
	assert.Zero(t, single.StdDev)
	assert.False(t, single.HasGaps)

	zeroStart := NewAnalyzer().Analyze(series(2023, time.January, 0, 0, 0, 100, 100, 100))
	assert.Equal(t, analysis.TrendUnknown, zeroStart.Trend)
	assert.Zero(t, zeroStart.TrendPercentChange)
}

func TestPlanSuitabilityInsights(t *testing.T) {
	analyzer := NewAnalyzer()

	summer := analyzer.Analyze(series(2023, time.January, 800, 800, 800, 800, 800, 1600, 1600, 1600, 800, 800, 800, 800))
	insights := analyzer.PlanSuitabilityInsights(summer)
	require.Contains(t, insights, analysis.InsightSeasonal)
	assert.Contains(t, insights[analysis.InsightSeasonal], "summer")
	assert.Contains(t, insights, analysis.InsightConsumption)
	assert.Contains(t, insights[analysis.InsightTrend], "14.3%")
	assert.NotContains(t, insights, analysis.InsightDataQuality)

	short := analyzer.Analyze(series(2024, time.January, 300, 300, 300))
	insights = analyzer.PlanSuitabilityInsights(short)
	assert.NotContains(t, insights, analysis.InsightSeasonal)
	assert.NotContains(t, insights, analysis.InsightTrend)
	assert.Contains(t, insights, analysis.InsightDataQuality)
	assert.Contains(t, insights[analysis.InsightConsumption], "below average")
}
