package usage

import (
	"math"
	"sort"
	"time"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/analysis"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/clock"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/customer"
)

const (
	// AverageAnnualKWh is the reference US household consumption.
	AverageAnnualKWh = 10500.0

	seasonalThreshold = 1.20
	trendThreshold    = 5.0
	minSeasonalMonths = 6
	minTrendMonths    = 6
	fullYear          = 12
)

var (
	summerMonths   = []int{6, 7, 8}
	winterMonths   = []int{12, 1, 2}
	shoulderMonths = []int{3, 4, 5, 9, 10, 11}
)

// Analyzer derives seasonal, trend and quality profiles from monthly usage.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze never fails; an empty series yields a zeroed "unknown" profile.
func (a *Analyzer) Analyze(records []customer.UsageRecord) analysis.Usage {
	if len(records) == 0 {
		return emptyAnalysis()
	}

	sorted := customer.SortUsage(records)
	values := kwhValues(sorted)

	total := sum(values)
	avg := total / float64(len(values))
	minVal, maxVal := minMax(values)

	pattern, peak, low, variation := detectSeasonalPattern(sorted)
	trend, trendChange := analyzeTrend(values)

	annual := round(avg*fullYear, 2)
	hasGaps, gaps := detectGaps(sorted)

	return analysis.Usage{
		TotalKWh:                 round(total, 2),
		AnnualizedKWh:            annual,
		AverageMonthlyKWh:        round(avg, 2),
		MinMonthlyKWh:            round(minVal, 2),
		MaxMonthlyKWh:            round(maxVal, 2),
		StdDev:                   round(sampleStdDev(values, avg), 2),
		SeasonalPattern:          pattern,
		SeasonalVariationPercent: variation,
		PeakMonths:               peak,
		LowMonths:                low,
		Trend:                    trend,
		TrendPercentChange:       trendChange,
		ConsumptionTier:          tierFor(annual),
		IsHighConsumer:           annual > AverageAnnualKWh,
		MonthsOfData:             len(sorted),
		DataQualityScore:         dataQuality(values, avg, len(gaps)),
		HasGaps:                  hasGaps,
		GapMonths:                gaps,
	}
}

func emptyAnalysis() analysis.Usage {
	return analysis.Usage{
		SeasonalPattern: analysis.PatternUnknown,
		PeakMonths:      []int{},
		LowMonths:       []int{},
		Trend:           analysis.TrendUnknown,
		ConsumptionTier: analysis.TierUnknown,
		HasGaps:         true,
		GapMonths:       []int{},
	}
}

func detectSeasonalPattern(sorted []customer.UsageRecord) (analysis.SeasonalPattern, []int, []int, float64) {
	if len(sorted) < minSeasonalMonths {
		return analysis.PatternUnknown, []int{}, []int{}, 0
	}

	var summer, winter, shoulder []float64
	for _, r := range sorted {
		v := r.KWh.InexactFloat64()
		switch season(r.Period.Month()) {
		case "summer":
			summer = append(summer, v)
		case "winter":
			winter = append(winter, v)
		default:
			shoulder = append(shoulder, v)
		}
	}

	summerAvg, winterAvg, shoulderAvg := mean(summer), mean(winter), mean(shoulder)
	overall := mean(kwhValues(sorted))

	summerRatio, winterRatio := 1.0, 1.0
	if overall > 0 {
		summerRatio = summerAvg / overall
		winterRatio = winterAvg / overall
	}

	var (
		pattern   analysis.SeasonalPattern
		peak, low []int
	)
	switch {
	case summerRatio >= seasonalThreshold && winterRatio >= seasonalThreshold:
		pattern = analysis.PatternDualPeak
		peak = append(append([]int{}, summerMonths...), winterMonths...)
		low = append([]int{}, shoulderMonths...)
	case summerRatio >= seasonalThreshold:
		pattern = analysis.PatternSummerPeak
		peak = append([]int{}, summerMonths...)
		low = append([]int{}, winterMonths...)
	case winterRatio >= seasonalThreshold:
		pattern = analysis.PatternWinterPeak
		peak = append([]int{}, winterMonths...)
		low = append([]int{}, summerMonths...)
	default:
		pattern = analysis.PatternFlat
		peak, low = extremeMonths(sorted, 3)
	}

	return pattern, peak, low, seasonalVariation(summerAvg, winterAvg, shoulderAvg)
}

func season(m time.Month) string {
	switch m {
	case time.June, time.July, time.August:
		return "summer"
	case time.December, time.January, time.February:
		return "winter"
	default:
		return "shoulder"
	}
}

// extremeMonths ranks month-of-year averages ascending; ties keep first-seen order.
func extremeMonths(sorted []customer.UsageRecord, n int) (peak, low []int) {
	var order []int
	totals := make(map[int][]float64)
	for _, r := range sorted {
		m := int(r.Period.Month())
		if _, ok := totals[m]; !ok {
			order = append(order, m)
		}
		totals[m] = append(totals[m], r.KWh.InexactFloat64())
	}

	sort.SliceStable(order, func(i, j int) bool {
		return mean(totals[order[i]]) < mean(totals[order[j]])
	})

	lowN := min(n, len(order))
	low = append([]int{}, order[:lowN]...)
	peak = append([]int{}, order[len(order)-lowN:]...)
	return peak, low
}

func seasonalVariation(avgs ...float64) float64 {
	maxAvg := 0.0
	minPositive := math.Inf(1)
	for _, v := range avgs {
		maxAvg = math.Max(maxAvg, v)
		if v > 0 && v < minPositive {
			minPositive = v
		}
	}
	if math.IsInf(minPositive, 1) {
		return 0
	}
	return round((maxAvg-minPositive)/minPositive*100, 1)
}

func analyzeTrend(values []float64) (analysis.Trend, float64) {
	if len(values) < minTrendMonths {
		return analysis.TrendUnknown, 0
	}

	mid := len(values) / 2
	firstAvg := mean(values[:mid])
	secondAvg := mean(values[mid:])
	if firstAvg == 0 {
		return analysis.TrendUnknown, 0
	}

	change := (secondAvg - firstAvg) / firstAvg * 100
	switch {
	case change > trendThreshold:
		return analysis.TrendIncreasing, round(change, 1)
	case change < -trendThreshold:
		return analysis.TrendDecreasing, round(change, 1)
	default:
		return analysis.TrendStable, round(change, 1)
	}
}

func tierFor(annualKWh float64) analysis.ConsumptionTier {
	switch {
	case annualKWh < 6000:
		return analysis.TierLow
	case annualKWh < AverageAnnualKWh:
		return analysis.TierMedium
	case annualKWh < 15000:
		return analysis.TierHigh
	default:
		return analysis.TierVeryHigh
	}
}

func dataQuality(values []float64, avg float64, gapCount int) float64 {
	score := 1.0
	if n := len(values); n < fullYear {
		score -= float64(fullYear-n) * 0.05
	}
	score -= float64(gapCount) * 0.10

	for _, v := range values {
		switch {
		case v == 0:
			score -= 0.05
		case avg > 0 && (v > avg*3 || v < avg*0.2):
			score -= 0.03
		}
	}
	return math.Max(0, math.Min(1, round(score, 2)))
}

// detectGaps records the expected month for every step that skips a calendar month.
func detectGaps(sorted []customer.UsageRecord) (bool, []int) {
	gaps := []int{}
	for i := 1; i < len(sorted); i++ {
		expected := clock.MonthStart(sorted[i-1].Period).AddDate(0, 1, 0)
		curr := sorted[i].Period
		if curr.Year() != expected.Year() || curr.Month() != expected.Month() {
			gaps = append(gaps, int(expected.Month()))
		}
	}
	sort.Ints(gaps)
	return len(gaps) > 0, gaps
}

func kwhValues(records []customer.UsageRecord) []float64 {
	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.KWh.InexactFloat64()
	}
	return values
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

func minMax(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func sampleStdDev(values []float64, avg float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sq float64
	for _, v := range values {
		sq += (v - avg) * (v - avg)
	}
	return math.Sqrt(sq / float64(len(values)-1))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
