package backtest

import (
	"fmt"
	"math"
	"sort"

	"github.com/gridstate-labs/gridstate/internal/faults"
)

// MetricSummary is the empirical distribution summary of one revenue metric
// over a Monte Carlo ensemble.
type MetricSummary struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	// Percentiles maps "p05"-style keys to the value at that level.
	Percentiles map[string]float64 `json:"percentiles"`
}

// ConfidenceSummary holds the per-metric distribution summaries of an
// ensemble.
type ConfidenceSummary struct {
	TotalRevenue MetricSummary `json:"total_revenue"`
	UpRevenue    MetricSummary `json:"up_revenue"`
	DownRevenue  MetricSummary `json:"down_revenue"`
	AvgPerPeriod MetricSummary `json:"avg_per_period"`
	Levels       []float64     `json:"levels"`
	Trials       int           `json:"trials"`
}

// ConfidenceIntervals summarizes an ensemble: for every metric it sorts the
// trial values and reads percentiles at floor(level*(n-1)), plus mean, std,
// min, and max. Sorting makes the summary independent of trial completion
// order.
func ConfidenceIntervals(ensemble *Ensemble, levels []float64) (ConfidenceSummary, error) {
	if ensemble == nil || len(ensemble.Results) == 0 {
		return ConfidenceSummary{}, faults.Input("cannot summarize an empty ensemble")
	}
	for _, level := range levels {
		if level <= 0 || level >= 1 {
			return ConfidenceSummary{}, faults.Config("confidence level must be in (0, 1), got %v", level)
		}
	}

	n := len(ensemble.Results)
	totals := make([]float64, n)
	ups := make([]float64, n)
	downs := make([]float64, n)
	avgs := make([]float64, n)
	for i, r := range ensemble.Results {
		totals[i] = r.Revenue.Total.InexactFloat64()
		ups[i] = r.Revenue.Up.InexactFloat64()
		downs[i] = r.Revenue.Down.InexactFloat64()
		avgs[i] = r.Revenue.AvgPerPeriod
	}

	return ConfidenceSummary{
		TotalRevenue: summarize(totals, levels),
		UpRevenue:    summarize(ups, levels),
		DownRevenue:  summarize(downs, levels),
		AvgPerPeriod: summarize(avgs, levels),
		Levels:       append([]float64(nil), levels...),
		Trials:       n,
	}, nil
}

// summarize computes the distribution summary of one metric's trial values.
func summarize(values []float64, levels []float64) MetricSummary {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	m := statMean(values)
	s := MetricSummary{
		Mean:        m,
		Std:         statStddev(values, m),
		Min:         sorted[0],
		Max:         sorted[len(sorted)-1],
		Percentiles: make(map[string]float64, len(levels)),
	}
	for _, level := range levels {
		s.Percentiles[PercentileKey(level)] = percentileOf(sorted, level)
	}
	return s
}

// percentileOf reads the value at a level in (0,1) from a sorted slice using
// the floor(level*(n-1)) index convention. Monotone in level, so
// p_low <= p_median <= p_high always holds.
func percentileOf(sorted []float64, level float64) float64 {
	idx := int(math.Floor(level * float64(len(sorted)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// PercentileKey formats a level in (0,1) as a "p05"/"p50"-style map key.
func PercentileKey(level float64) string {
	return fmt.Sprintf("p%02d", int(math.Round(level*100)))
}

// RiskReport holds the risk statistics of one window's revenue stream,
// bucketed into synthetic days.
type RiskReport struct {
	Days           int     `json:"days"`
	DailyMean      float64 `json:"daily_mean"`
	DailyStd       float64 `json:"daily_std"`
	SharpeLike     float64 `json:"sharpe_like"`      // daily mean / daily std, 0 when std is 0
	ValueAtRisk95  float64 `json:"value_at_risk_95"` // 5th percentile of daily revenue
	MaxDrawdown    float64 `json:"max_drawdown"`     // largest peak-to-trough fall of cumulative revenue
	MaxDrawdownPct float64 `json:"max_drawdown_pct"` // same, relative to the running peak
}

// RiskMetrics buckets a window's per-period revenue into synthetic daily
// slices of periodsPerDay and computes mean/std, a Sharpe-like ratio, the
// 95% VaR, and the maximum drawdown of the cumulative revenue curve. A
// trailing partial day keeps its smaller period share.
func RiskMetrics(result WindowResult, periodsPerDay int) RiskReport {
	if periodsPerDay <= 0 {
		periodsPerDay = 24
	}
	if len(result.PeriodRevenue) == 0 {
		return RiskReport{}
	}

	var daily []float64
	for start := 0; start < len(result.PeriodRevenue); start += periodsPerDay {
		end := start + periodsPerDay
		if end > len(result.PeriodRevenue) {
			end = len(result.PeriodRevenue)
		}
		sum := 0.0
		for _, r := range result.PeriodRevenue[start:end] {
			sum += r
		}
		daily = append(daily, sum)
	}

	m := statMean(daily)
	sd := statStddev(daily, m)

	report := RiskReport{
		Days:      len(daily),
		DailyMean: m,
		DailyStd:  sd,
	}
	if sd > 0 {
		report.SharpeLike = m / sd
	}

	sorted := make([]float64, len(daily))
	copy(sorted, daily)
	sort.Float64s(sorted)
	report.ValueAtRisk95 = percentileOf(sorted, 0.05)

	report.MaxDrawdown, report.MaxDrawdownPct = drawdownFromDaily(daily)
	return report
}

// drawdownFromDaily computes the maximum peak-to-trough decline of the
// cumulative daily revenue curve, absolute and relative to the running peak.
func drawdownFromDaily(daily []float64) (dd float64, ddPct float64) {
	cum := 0.0
	peak := 0.0
	for _, r := range daily {
		cum += r
		if cum > peak {
			peak = cum
		}
		fall := peak - cum
		if fall > dd {
			dd = fall
		}
		if peak > 0 {
			if pct := fall / peak; pct > ddPct {
				ddPct = pct
			}
		}
	}
	return dd, ddPct
}

// --- internal helpers ---

func statMean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// statStddev returns the sample standard deviation given the mean.
func statStddev(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sumSq := 0.0
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}
