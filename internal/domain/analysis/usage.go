package analysis

// SeasonalPattern classifies which season(s) show elevated consumption.
type SeasonalPattern string

const (
	PatternSummerPeak SeasonalPattern = "summer_peak"
	PatternWinterPeak SeasonalPattern = "winter_peak"
	PatternDualPeak   SeasonalPattern = "dual_peak"
	PatternFlat       SeasonalPattern = "flat"
	PatternUnknown    SeasonalPattern = "unknown"
)

// Trend compares the second half of a usage series against the first.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
	TrendUnknown    Trend = "unknown"
)

// ConsumptionTier buckets annualized consumption.
type ConsumptionTier string

const (
	TierLow      ConsumptionTier = "low"
	TierMedium   ConsumptionTier = "medium"
	TierHigh     ConsumptionTier = "high"
	TierVeryHigh ConsumptionTier = "very_high"
	TierUnknown  ConsumptionTier = "unknown"
)

// Insight categories returned alongside a usage analysis.
const (
	InsightSeasonal    = "seasonal"
	InsightConsumption = "consumption"
	InsightTrend       = "trend"
	InsightDataQuality = "data_quality"
)

// Usage is the derived profile of a customer's monthly consumption. Never persisted on its own.
type Usage struct {
	TotalKWh          float64 `json:"total_annual_kwh"`
	AnnualizedKWh     float64 `json:"annualized_kwh"`
	AverageMonthlyKWh float64 `json:"average_monthly_kwh"`
	MinMonthlyKWh     float64 `json:"min_monthly_kwh"`
	MaxMonthlyKWh     float64 `json:"max_monthly_kwh"`
	StdDev            float64 `json:"standard_deviation"`

	SeasonalPattern          SeasonalPattern `json:"seasonal_pattern"`
	SeasonalVariationPercent float64         `json:"seasonal_variation_percent"`
	PeakMonths               []int           `json:"peak_months"`
	LowMonths                []int           `json:"low_months"`

	Trend              Trend   `json:"usage_trend"`
	TrendPercentChange float64 `json:"trend_percent_change"`

	ConsumptionTier ConsumptionTier `json:"consumption_tier"`
	IsHighConsumer  bool            `json:"is_high_consumer"`

	MonthsOfData     int     `json:"months_of_data"`
	DataQualityScore float64 `json:"data_quality_score"`
	HasGaps          bool    `json:"has_gaps"`
	GapMonths        []int   `json:"gap_months"`

	Insights map[string]string `json:"insights,omitempty"`
}
