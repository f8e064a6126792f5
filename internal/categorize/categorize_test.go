package categorize

import (
	"testing"

	"github.com/gridstate-labs/gridstate/internal/faults"
	"github.com/gridstate-labs/gridstate/internal/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ascending(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i + 1)
	}
	return values
}

func countByState(labels []market.State) map[market.State]int {
	counts := make(map[market.State]int)
	for _, l := range labels {
		counts[l]++
	}
	return counts
}

func TestCategorizeEmptyInput(t *testing.T) {
	for _, method := range []Method{
		MethodQuantile, MethodKMeans, MethodVolatility,
		MethodAdaptive, MethodZScore, MethodThreshold,
	} {
		cfg := DefaultConfig()
		cfg.Method = method
		_, err := Categorize(nil, cfg)
		require.Error(t, err, "method %s", method)
		assert.True(t, faults.IsKind(err, faults.KindInput), "method %s should return an input error", method)
	}
}

func TestCategorizeLengthPreserved(t *testing.T) {
	values := ascending(50)
	for _, method := range []Method{
		MethodQuantile, MethodKMeans, MethodVolatility,
		MethodAdaptive, MethodZScore, MethodThreshold,
	} {
		cfg := DefaultConfig()
		cfg.Method = method
		labels, err := Categorize(values, cfg)
		require.NoError(t, err, "method %s", method)
		assert.Len(t, labels, len(values), "method %s", method)
	}
}

func TestParseMethod(t *testing.T) {
	for name, want := range map[string]Method{
		"quantile":   MethodQuantile,
		"kmeans":     MethodKMeans,
		"volatility": MethodVolatility,
		"adaptive":   MethodAdaptive,
		"zscore":     MethodZScore,
		"threshold":  MethodThreshold,
	} {
		got, err := ParseMethod(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, name, got.String())
	}

	_, err := ParseMethod("fuzzy")
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindConfig))
}

// --- quantile ---

func TestQuantileEvenThreeWaySplit(t *testing.T) {
	// Ascending 1..99 with default 33/67 percentiles: the cuts fall at the
	// order statistics floor(0.33*98)=32 -> 33 and floor(0.67*98)=65 -> 66,
	// so the split is 33/33/33.
	labels, err := Categorize(ascending(99), DefaultConfig())
	require.NoError(t, err)

	counts := countByState(labels)
	assert.InDelta(t, 33, counts[market.StateUnder], 1)
	assert.InDelta(t, 33, counts[market.StateBalanced], 1)
	assert.InDelta(t, 33, counts[market.StateOver], 1)
}

func TestQuantileBoundaryTies(t *testing.T) {
	// sorted = [1 1 2 2 3 3], low cut = sorted[floor(0.33*5)] = sorted[1] = 1,
	// high cut = sorted[floor(0.67*5)] = sorted[3] = 2. Values equal to a
	// cut resolve downward (<=).
	values := []float64{1, 2, 3, 1, 2, 3}
	labels, err := Categorize(values, DefaultConfig())
	require.NoError(t, err)

	want := []market.State{
		market.StateUnder, market.StateBalanced, market.StateOver,
		market.StateUnder, market.StateBalanced, market.StateOver,
	}
	assert.Equal(t, want, labels)
}

func TestQuantileInvalidPercentiles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Quantile = QuantileOptions{LowPercentile: 70, HighPercentile: 30}
	_, err := Categorize(ascending(10), cfg)
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindConfig))
}

// --- zscore ---

func TestZScoreKnownLabels(t *testing.T) {
	// values = [0, 10, 20]: mean = 10, population std = sqrt(200/3) = 8.165.
	// z = [-1.22, 0, +1.22] against thresholds -0.5/+0.5.
	cfg := DefaultConfig()
	cfg.Method = MethodZScore
	labels, err := Categorize([]float64{0, 10, 20}, cfg)
	require.NoError(t, err)

	assert.Equal(t, []market.State{market.StateUnder, market.StateBalanced, market.StateOver}, labels)
}

func TestZScoreZeroVarianceFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Method = MethodZScore

	values := []float64{5, 5, 5, 5, 5, 5}
	labels, err := Categorize(values, cfg)
	require.NoError(t, err, "zero-variance input must not fail")

	for i, l := range labels {
		assert.Equal(t, market.StateBalanced, l, "point %d should fall back to balanced", i)
	}
}

// --- threshold ---

func TestThresholdFixedCuts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Method = MethodThreshold
	cfg.Threshold = ThresholdOptions{LowValue: 10, HighValue: 20}

	labels, err := Categorize([]float64{5, 10, 15, 20, 25}, cfg)
	require.NoError(t, err)

	want := []market.State{
		market.StateUnder,    // below low
		market.StateUnder,    // equal to low
		market.StateBalanced, // between
		market.StateOver,     // equal to high
		market.StateOver,     // above high
	}
	assert.Equal(t, want, labels)
}

// --- kmeans ---

func TestKMeansThreeSeparatedClusters(t *testing.T) {
	values := []float64{
		1.0, 1.1, 0.9, 1.05, // low cluster
		10.0, 10.1, 9.9, 10.05, // mid cluster
		20.0, 20.1, 19.9, 20.05, // high cluster
	}

	cfg := DefaultConfig()
	cfg.Method = MethodKMeans
	labels, err := Categorize(values, cfg)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		assert.Equal(t, market.StateUnder, labels[i], "low cluster point %d", i)
	}
	for i := 4; i < 8; i++ {
		assert.Equal(t, market.StateBalanced, labels[i], "mid cluster point %d", i)
	}
	for i := 8; i < 12; i++ {
		assert.Equal(t, market.StateOver, labels[i], "high cluster point %d", i)
	}
}

func TestKMeansDeterministicForFixedSeed(t *testing.T) {
	values := ascending(60)
	cfg := DefaultConfig()
	cfg.Method = MethodKMeans

	first, err := Categorize(values, cfg)
	require.NoError(t, err)
	second, err := Categorize(values, cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestKMeansConstantInput(t *testing.T) {
	// All values identical: every centroid collapses onto the same value.
	// The labeling must still be defined and uniform.
	values := []float64{7, 7, 7, 7, 7, 7, 7, 7}
	cfg := DefaultConfig()
	cfg.Method = MethodKMeans

	labels, err := Categorize(values, cfg)
	require.NoError(t, err)
	require.Len(t, labels, len(values))
	for i := 1; i < len(labels); i++ {
		assert.Equal(t, labels[0], labels[i], "identical values must share one label")
	}
}

// --- volatility ---

func TestVolatilityCalmSeriesUsesGlobalBands(t *testing.T) {
	// Mostly flat series around 100 with a single spike at index 10.
	// Local CV stays below the threshold throughout, so the global mean
	// (103.125) with a 10% band decides: only the spike leaves the band.
	values := make([]float64, 0, 16)
	for i := 0; i < 10; i++ {
		values = append(values, 100)
	}
	values = append(values, 150)
	for i := 0; i < 5; i++ {
		values = append(values, 100)
	}

	cfg := DefaultConfig()
	cfg.Method = MethodVolatility
	labels, err := Categorize(values, cfg)
	require.NoError(t, err)

	for i, l := range labels {
		if i == 10 {
			assert.Equal(t, market.StateOver, l, "spike should label over")
		} else {
			assert.Equal(t, market.StateBalanced, l, "flat point %d should label balanced", i)
		}
	}
}

func TestVolatilityWindowClippedAtStart(t *testing.T) {
	// Shorter than the default window: must not index before the start.
	values := []float64{100, 101, 99, 100, 102}
	cfg := DefaultConfig()
	cfg.Method = MethodVolatility

	labels, err := Categorize(values, cfg)
	require.NoError(t, err)
	assert.Len(t, labels, len(values))
}

// --- adaptive ---

func TestAdaptiveJumpDetection(t *testing.T) {
	// Constant 10s with one jump to 30 at index 12. The adaptive window is
	// len/4 = 4. In constant stretches the spread floor (0.05*10 = 0.5)
	// keeps a defined balanced band; the jump exceeds mean+std of its
	// window.
	values := make([]float64, 0, 16)
	for i := 0; i < 12; i++ {
		values = append(values, 10)
	}
	values = append(values, 30)
	for i := 0; i < 3; i++ {
		values = append(values, 10)
	}

	cfg := DefaultConfig()
	cfg.Method = MethodAdaptive
	labels, err := Categorize(values, cfg)
	require.NoError(t, err)

	assert.Equal(t, market.StateOver, labels[12], "jump should label over")
	for _, i := range []int{0, 5, 11} {
		assert.Equal(t, market.StateBalanced, labels[i], "constant point %d should label balanced", i)
	}
}

func TestAdaptiveZeroMeanSpreadForcedOpen(t *testing.T) {
	// A zero-mean constant series has zero relative spread; the band is
	// forced open with the absolute MinSpread so every point stays defined.
	values := []float64{0, 0, 0, 0, 0, 0, 0, 0}
	cfg := DefaultConfig()
	cfg.Method = MethodAdaptive

	labels, err := Categorize(values, cfg)
	require.NoError(t, err)
	for i, l := range labels {
		assert.Equal(t, market.StateBalanced, l, "point %d", i)
	}
}
