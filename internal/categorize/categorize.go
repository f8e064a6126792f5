// Package categorize converts a continuous observation signal into discrete
// contracting-regime labels. Six interchangeable strategies are provided,
// selected through a closed Method enum; every strategy maps each value to
// exactly one market.State, so the label sequence always has the same length
// as the input.
package categorize

import (
	"math"
	"sort"

	"github.com/gridstate-labs/gridstate/internal/faults"
	"github.com/gridstate-labs/gridstate/internal/market"
	"github.com/rs/zerolog/log"
)

// Method selects a categorization strategy.
type Method int

const (
	MethodQuantile Method = iota
	MethodKMeans
	MethodVolatility
	MethodAdaptive
	MethodZScore
	MethodThreshold
)

func (m Method) String() string {
	switch m {
	case MethodQuantile:
		return "quantile"
	case MethodKMeans:
		return "kmeans"
	case MethodVolatility:
		return "volatility"
	case MethodAdaptive:
		return "adaptive"
	case MethodZScore:
		return "zscore"
	case MethodThreshold:
		return "threshold"
	default:
		return "unknown"
	}
}

// ParseMethod maps a config string to a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "quantile":
		return MethodQuantile, nil
	case "kmeans":
		return MethodKMeans, nil
	case "volatility":
		return MethodVolatility, nil
	case "adaptive":
		return MethodAdaptive, nil
	case "zscore":
		return MethodZScore, nil
	case "threshold":
		return MethodThreshold, nil
	default:
		return 0, faults.Config("unknown categorization method %q", s)
	}
}

// Config carries the selected method and its per-method options.
type Config struct {
	Method     Method
	Quantile   QuantileOptions
	KMeans     KMeansOptions
	Volatility VolatilityOptions
	Adaptive   AdaptiveOptions
	ZScore     ZScoreOptions
	Threshold  ThresholdOptions
}

// DefaultConfig returns a Config with every strategy's defaults populated.
func DefaultConfig() Config {
	return Config{
		Method:     MethodQuantile,
		Quantile:   DefaultQuantileOptions(),
		KMeans:     DefaultKMeansOptions(),
		Volatility: DefaultVolatilityOptions(),
		Adaptive:   DefaultAdaptiveOptions(),
		ZScore:     DefaultZScoreOptions(),
		Threshold:  ThresholdOptions{},
	}
}

// Categorize labels every value with a regime state using the configured
// strategy. The returned sequence has exactly len(values) entries.
func Categorize(values []float64, cfg Config) ([]market.State, error) {
	if len(values) == 0 {
		return nil, faults.Input("cannot categorize an empty value sequence")
	}

	switch cfg.Method {
	case MethodQuantile:
		return categorizeQuantile(values, cfg.Quantile)
	case MethodKMeans:
		return categorizeKMeans(values, cfg.KMeans)
	case MethodVolatility:
		return categorizeVolatility(values, cfg.Volatility), nil
	case MethodAdaptive:
		return categorizeAdaptive(values, cfg.Adaptive), nil
	case MethodZScore:
		return categorizeZScore(values, cfg.ZScore), nil
	case MethodThreshold:
		return categorizeThreshold(values, cfg.Threshold), nil
	default:
		return nil, faults.Config("unknown categorization method %d", int(cfg.Method))
	}
}

// ---------------------------------------------------------------------------
// quantile
// ---------------------------------------------------------------------------

// QuantileOptions configures the quantile strategy.
type QuantileOptions struct {
	LowPercentile  float64 // boundary percentile for UNDER, in (0, 100)
	HighPercentile float64 // boundary percentile for OVER, in (0, 100)
}

func DefaultQuantileOptions() QuantileOptions {
	return QuantileOptions{LowPercentile: 33, HighPercentile: 67}
}

// categorizeQuantile labels each value by its position relative to the
// low/high order statistics of the full sequence. Boundary ties resolve with
// <= on both cuts, so a value equal to the low cut is UNDER and a value equal
// to the high cut is BALANCED.
func categorizeQuantile(values []float64, opts QuantileOptions) ([]market.State, error) {
	if opts.LowPercentile <= 0 || opts.HighPercentile >= 100 || opts.LowPercentile >= opts.HighPercentile {
		return nil, faults.Config("quantile percentiles must satisfy 0 < low < high < 100, got %.1f/%.1f",
			opts.LowPercentile, opts.HighPercentile)
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	lowCut := orderStatistic(sorted, opts.LowPercentile/100.0)
	highCut := orderStatistic(sorted, opts.HighPercentile/100.0)

	labels := make([]market.State, len(values))
	for i, v := range values {
		switch {
		case v <= lowCut:
			labels[i] = market.StateUnder
		case v <= highCut:
			labels[i] = market.StateBalanced
		default:
			labels[i] = market.StateOver
		}
	}
	return labels, nil
}

// orderStatistic reads the value at percentile level p in [0,1] from a sorted
// slice using the floor(p*(n-1)) index convention.
func orderStatistic(sorted []float64, p float64) float64 {
	idx := int(math.Floor(p * float64(len(sorted)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// ---------------------------------------------------------------------------
// zscore
// ---------------------------------------------------------------------------

// ZScoreOptions configures the zscore strategy.
type ZScoreOptions struct {
	LowThreshold  float64 // z below or at this -> UNDER
	HighThreshold float64 // z at or above this -> OVER
}

func DefaultZScoreOptions() ZScoreOptions {
	return ZScoreOptions{LowThreshold: -0.5, HighThreshold: 0.5}
}

// categorizeZScore labels by global z-score. A zero-variance input cannot
// produce z-scores; every point falls back to BALANCED instead of dividing
// by zero.
func categorizeZScore(values []float64, opts ZScoreOptions) []market.State {
	m := meanOf(values)
	sd := stddevOf(values, m)

	labels := make([]market.State, len(values))
	if sd == 0 {
		log.Warn().Int("points", len(values)).
			Msg("categorize: zero-variance input, labeling all points balanced")
		for i := range labels {
			labels[i] = market.StateBalanced
		}
		return labels
	}

	for i, v := range values {
		z := (v - m) / sd
		switch {
		case z <= opts.LowThreshold:
			labels[i] = market.StateUnder
		case z >= opts.HighThreshold:
			labels[i] = market.StateOver
		default:
			labels[i] = market.StateBalanced
		}
	}
	return labels
}

// ---------------------------------------------------------------------------
// threshold
// ---------------------------------------------------------------------------

// ThresholdOptions configures the fixed-cut strategy.
type ThresholdOptions struct {
	LowValue  float64 // value at or below this -> UNDER
	HighValue float64 // value at or above this -> OVER
}

func categorizeThreshold(values []float64, opts ThresholdOptions) []market.State {
	labels := make([]market.State, len(values))
	for i, v := range values {
		switch {
		case v <= opts.LowValue:
			labels[i] = market.StateUnder
		case v >= opts.HighValue:
			labels[i] = market.StateOver
		default:
			labels[i] = market.StateBalanced
		}
	}
	return labels
}

// ---------------------------------------------------------------------------
// shared helpers
// ---------------------------------------------------------------------------

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddevOf returns the population standard deviation given the mean.
func stddevOf(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sumSq := 0.0
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

// bandLabel classifies v against a center with a symmetric band of
// band*|center| on each side. Values inside the band are BALANCED.
func bandLabel(v, center, band float64) market.State {
	width := band * math.Abs(center)
	switch {
	case v < center-width:
		return market.StateUnder
	case v > center+width:
		return market.StateOver
	default:
		return market.StateBalanced
	}
}
