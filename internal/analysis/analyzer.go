// Package analysis orchestrates the full pipeline: categorization, model
// building, Baum-Welch refinement, Viterbi decoding, and backtesting. Every
// entry point is a pure function of (dataset, config) returning an immutable
// result record; nothing is cached between calls.
package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/gridstate-labs/gridstate/internal/backtest"
	"github.com/gridstate-labs/gridstate/internal/categorize"
	"github.com/gridstate-labs/gridstate/internal/config"
	"github.com/gridstate-labs/gridstate/internal/hmm"
	"github.com/gridstate-labs/gridstate/internal/market"
	"github.com/rs/zerolog/log"
)

// Result is the outcome of one regime analysis run.
type Result struct {
	RunID              string           `json:"run_id"`
	Labels             []market.State   `json:"labels"`
	TransitionMatrix   [][]float64      `json:"transition_matrix"`
	EmissionMatrix     [][]float64      `json:"emission_matrix"`
	ViterbiPath        []market.State   `json:"viterbi_path"`
	StateCounts        map[string]int   `json:"state_counts"`
	ViterbiStateCounts map[string]int   `json:"viterbi_state_counts"`
	Training           hmm.TrainResult  `json:"training"`
	Model              hmm.Model        `json:"-"`
	Mapper             hmm.SymbolMapper `json:"-"`
}

// Analyze runs categorization, builds the heuristic starting model, refines
// it with Baum-Welch over the binned observation signal, and decodes the
// most likely regime path. The heuristic builder serves as the fast-path
// initializer; the trained model is the one returned and decoded with.
func Analyze(ctx context.Context, ds *market.Dataset, cfg *config.Config) (*Result, error) {
	if err := ds.Validate(cfg.Analysis.MinDataPoints); err != nil {
		return nil, err
	}

	values := ds.Values()
	labels, err := categorize.Categorize(values, cfg.CategorizeConfig())
	if err != nil {
		return nil, err
	}

	start, err := hmm.BuildModel(values, labels)
	if err != nil {
		return nil, err
	}

	binner := hmm.NewBinner(values)
	symbols := hmm.Symbols(values, binner)

	trained, training, err := hmm.Train(ctx, symbols, start, cfg.TrainConfig())
	if err != nil {
		return nil, err
	}

	path := hmm.Decode(symbols, trained)

	result := &Result{
		RunID:              uuid.New().String(),
		Labels:             labels,
		TransitionMatrix:   trained.Transition,
		EmissionMatrix:     trained.Emission,
		ViterbiPath:        path,
		StateCounts:        countStates(labels),
		ViterbiStateCounts: countStates(path),
		Training:           training,
		Model:              trained,
		Mapper:             binner,
	}

	log.Info().
		Str("run_id", result.RunID).
		Str("method", cfg.Analysis.CategorizationMethod).
		Int("points", len(values)).
		Bool("converged", training.Converged).
		Int("iterations", training.Iterations).
		Msg("analysis: run complete")
	return result, nil
}

// countStates tallies a label sequence by state name.
func countStates(labels []market.State) map[string]int {
	counts := map[string]int{
		market.StateUnder.String():    0,
		market.StateBalanced.String(): 0,
		market.StateOver.String():     0,
	}
	for _, l := range labels {
		counts[l.String()]++
	}
	return counts
}

// Summary carries the headline figures of a backtest report, preformatted
// for presentation layers.
type Summary struct {
	MeanTotalRevenue float64 `json:"mean_total_revenue"`
	LowRevenue       float64 `json:"low_revenue"`    // lowest configured percentile
	MedianRevenue    float64 `json:"median_revenue"` // median percentile
	HighRevenue      float64 `json:"high_revenue"`   // highest configured percentile
	ValueAtRisk95    float64 `json:"value_at_risk_95"`
	SharpeLike       float64 `json:"sharpe_like"`
	Text             string  `json:"text"`
}

// BacktestReport aggregates every backtest surface for one model/dataset
// pair.
type BacktestReport struct {
	RunID          string                     `json:"run_id"`
	FullWindow     backtest.WindowResult      `json:"full_window"`
	SlidingWindows []backtest.WindowResult    `json:"sliding_windows"`
	MonteCarlo     *backtest.Ensemble         `json:"monte_carlo"`
	Confidence     backtest.ConfidenceSummary `json:"confidence"`
	Risk           backtest.RiskReport        `json:"risk"`
	Summary        Summary                    `json:"summary"`
}

// RunBacktest evaluates a trained model over the dataset: the full window,
// sliding windows, and the Monte Carlo ensemble with confidence intervals
// and risk metrics.
func RunBacktest(ctx context.Context, ds *market.Dataset, result *Result, cfg *config.Config) (*BacktestReport, error) {
	engine, err := backtest.New(result.Model, result.Mapper, cfg.BacktestConfig())
	if err != nil {
		return nil, err
	}

	full, err := engine.RunWindow(ds, 0, ds.Len())
	if err != nil {
		return nil, err
	}

	sliding, err := engine.RunSlidingWindows(ds)
	if err != nil {
		return nil, err
	}

	ensemble, err := engine.RunMonteCarlo(ctx, ds)
	if err != nil {
		return nil, err
	}

	levels := cfg.Backtest.ConfidenceLevels
	confidence, err := backtest.ConfidenceIntervals(ensemble, levels)
	if err != nil {
		return nil, err
	}

	risk := backtest.RiskMetrics(full, cfg.Backtest.PeriodsPerDay)

	report := &BacktestReport{
		RunID:          result.RunID,
		FullWindow:     full,
		SlidingWindows: sliding,
		MonteCarlo:     ensemble,
		Confidence:     confidence,
		Risk:           risk,
		Summary:        buildSummary(confidence, risk, levels),
	}

	log.Info().
		Str("run_id", report.RunID).
		Str("total_revenue", full.Revenue.Total.String()).
		Int("sliding_windows", len(sliding)).
		Int("trials", confidence.Trials).
		Msg("analysis: backtest complete")
	return report, nil
}

// buildSummary extracts the headline figures from the confidence and risk
// results. The low/median/high revenue figures come from the lowest,
// middle, and highest configured confidence levels.
func buildSummary(confidence backtest.ConfidenceSummary, risk backtest.RiskReport, levels []float64) Summary {
	low, median, high := levelTriple(levels)
	total := confidence.TotalRevenue

	s := Summary{
		MeanTotalRevenue: total.Mean,
		LowRevenue:       total.Percentiles[low],
		MedianRevenue:    total.Percentiles[median],
		HighRevenue:      total.Percentiles[high],
		ValueAtRisk95:    risk.ValueAtRisk95,
		SharpeLike:       risk.SharpeLike,
	}
	s.Text = fmt.Sprintf(
		"mean window revenue %.2f (range %.2f to %.2f at configured confidence), daily VaR95 %.2f, risk-adjusted ratio %.2f",
		s.MeanTotalRevenue, s.LowRevenue, s.HighRevenue, s.ValueAtRisk95, s.SharpeLike)
	return s
}

// levelTriple returns the percentile keys of the lowest, middle, and
// highest configured levels. Levels are validated non-empty by the backtest
// config before this is reached.
func levelTriple(levels []float64) (low, median, high string) {
	sorted := append([]float64(nil), levels...)
	sort.Float64s(sorted)
	mid := sorted[len(sorted)/2]
	return backtest.PercentileKey(sorted[0]), backtest.PercentileKey(mid), backtest.PercentileKey(sorted[len(sorted)-1])
}
