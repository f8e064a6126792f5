package categorize

import (
	"math"

	"github.com/gridstate-labs/gridstate/internal/market"
)

// VolatilityOptions configures the volatility-aware strategy.
type VolatilityOptions struct {
	Window      int     // rolling window length in samples
	CVThreshold float64 // local coefficient-of-variation above this switches to local bands
	LocalBand   float64 // band around the local mean (fraction of |mean|)
	GlobalBand  float64 // band around the global mean (fraction of |mean|)
}

func DefaultVolatilityOptions() VolatilityOptions {
	return VolatilityOptions{Window: 96, CVThreshold: 0.3, LocalBand: 0.05, GlobalBand: 0.10}
}

// categorizeVolatility labels each point against either its local rolling
// mean or the global mean, depending on how volatile the local window is.
// In calm stretches the global mean with a wide band decides; once the local
// coefficient of variation exceeds the threshold, a tight band around the
// local mean decides instead. The window is clipped at the start of the
// sequence.
func categorizeVolatility(values []float64, opts VolatilityOptions) []market.State {
	if opts.Window <= 0 {
		opts.Window = DefaultVolatilityOptions().Window
	}
	if opts.CVThreshold <= 0 {
		opts.CVThreshold = DefaultVolatilityOptions().CVThreshold
	}
	if opts.LocalBand <= 0 {
		opts.LocalBand = DefaultVolatilityOptions().LocalBand
	}
	if opts.GlobalBand <= 0 {
		opts.GlobalBand = DefaultVolatilityOptions().GlobalBand
	}

	globalMean := meanOf(values)
	labels := make([]market.State, len(values))

	for i, v := range values {
		start := i - opts.Window + 1
		if start < 0 {
			start = 0
		}
		window := values[start : i+1]
		localMean := meanOf(window)
		localStd := stddevOf(window, localMean)

		cv := 0.0
		if localMean != 0 {
			cv = localStd / math.Abs(localMean)
		}

		if cv > opts.CVThreshold {
			labels[i] = bandLabel(v, localMean, opts.LocalBand)
		} else {
			labels[i] = bandLabel(v, globalMean, opts.GlobalBand)
		}
	}
	return labels
}

// AdaptiveOptions configures the adaptive-threshold strategy.
type AdaptiveOptions struct {
	MaxWindow   int     // upper bound on the rolling window (further capped at len/4)
	Sensitivity float64 // band half-width in local standard deviations
	MinSpread   float64 // minimum band width as a fraction of |local mean|
}

func DefaultAdaptiveOptions() AdaptiveOptions {
	return AdaptiveOptions{MaxWindow: 96, Sensitivity: 1.0, MinSpread: 0.05}
}

// categorizeAdaptive labels each point against mean ± sensitivity·std over a
// trailing window whose length adapts to the sequence: at most MaxWindow and
// at most a quarter of the sequence. A band narrower than MinSpread·|mean|
// is forced open symmetrically so near-constant stretches still have a
// defined BALANCED zone.
func categorizeAdaptive(values []float64, opts AdaptiveOptions) []market.State {
	if opts.MaxWindow <= 0 {
		opts.MaxWindow = DefaultAdaptiveOptions().MaxWindow
	}
	if opts.Sensitivity <= 0 {
		opts.Sensitivity = DefaultAdaptiveOptions().Sensitivity
	}
	if opts.MinSpread <= 0 {
		opts.MinSpread = DefaultAdaptiveOptions().MinSpread
	}

	window := opts.MaxWindow
	if quarter := len(values) / 4; quarter < window {
		window = quarter
	}
	if window < 2 {
		window = 2
	}

	labels := make([]market.State, len(values))
	for i, v := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		local := values[start : i+1]
		m := meanOf(local)
		sd := stddevOf(local, m)

		low := m - opts.Sensitivity*sd
		high := m + opts.Sensitivity*sd

		// Force a minimum spread around the mean. When the mean itself is
		// zero the relative floor degenerates, so fall back to the absolute
		// MinSpread value.
		minWidth := opts.MinSpread * math.Abs(m)
		if minWidth == 0 {
			minWidth = opts.MinSpread
		}
		if high-low < minWidth {
			low = m - minWidth/2
			high = m + minWidth/2
		}

		switch {
		case v < low:
			labels[i] = market.StateUnder
		case v > high:
			labels[i] = market.StateOver
		default:
			labels[i] = market.StateBalanced
		}
	}
	return labels
}
