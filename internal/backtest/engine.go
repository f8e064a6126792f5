// Package backtest evaluates regime-conditioned bidding decisions against
// historical clearing prices: single windows, sliding windows, and seeded
// Monte Carlo window resampling with confidence and risk statistics.
package backtest

import (
	"context"
	"math/rand"
	"runtime"
	"sync"

	"github.com/gridstate-labs/gridstate/internal/faults"
	"github.com/gridstate-labs/gridstate/internal/hmm"
	"github.com/gridstate-labs/gridstate/internal/market"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Config bounds the backtest surfaces.
type Config struct {
	// WindowSize is the number of periods per evaluation window.
	WindowSize int
	// OverlapFraction in [0, 1) controls sliding-window stepping:
	// step = WindowSize * (1 - OverlapFraction).
	OverlapFraction float64
	// NumSimulations is the Monte Carlo trial count.
	NumSimulations int
	// ConfidenceLevels are the percentile levels, each in (0, 1).
	ConfidenceLevels []float64
	// Seed drives the Monte Carlo window sampling.
	Seed int64
	// Workers caps the Monte Carlo worker pool; 0 means GOMAXPROCS.
	Workers int
	// PeriodsPerDay sets the synthetic daily bucketing for risk metrics.
	PeriodsPerDay int
}

// DefaultConfig returns the standard backtest bounds.
func DefaultConfig() Config {
	return Config{
		WindowSize:       168,
		OverlapFraction:  0.5,
		NumSimulations:   500,
		ConfidenceLevels: []float64{0.05, 0.25, 0.5, 0.75, 0.95},
		Seed:             42,
		PeriodsPerDay:    24,
	}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.WindowSize <= 0 {
		return faults.Config("window size must be positive, got %d", c.WindowSize)
	}
	if c.OverlapFraction < 0 || c.OverlapFraction >= 1 {
		return faults.Config("overlap fraction must be in [0, 1), got %v", c.OverlapFraction)
	}
	if c.NumSimulations <= 0 {
		return faults.Config("simulation count must be positive, got %d", c.NumSimulations)
	}
	for _, level := range c.ConfidenceLevels {
		if level <= 0 || level >= 1 {
			return faults.Config("confidence level must be in (0, 1), got %v", level)
		}
	}
	return nil
}

// RevenueBreakdown splits a window's revenue by regulation direction.
// Sums are decimal so Total always equals Up + Down exactly.
type RevenueBreakdown struct {
	Up           decimal.Decimal `json:"up"`
	Down         decimal.Decimal `json:"down"`
	Total        decimal.Decimal `json:"total"`
	AvgPerPeriod float64         `json:"avg_per_period"`
}

// WindowResult is the outcome of decoding and pricing one window.
type WindowResult struct {
	Start       int              `json:"start"` // inclusive period index
	End         int              `json:"end"`   // exclusive period index
	Path        []market.State   `json:"path"`
	Revenue     RevenueBreakdown `json:"revenue"`
	ClearedUp   int              `json:"cleared_up"`   // periods where up capacity cleared
	ClearedDown int              `json:"cleared_down"` // periods where down capacity cleared

	// PeriodRevenue holds each period's contribution, used by the risk
	// metrics for synthetic daily bucketing.
	PeriodRevenue []float64 `json:"-"`
}

// Ensemble collects independent Monte Carlo window results. It is built once
// and only read afterwards; statistics are computed over the finished set.
type Ensemble struct {
	Results []WindowResult `json:"results"`
	Seed    int64          `json:"seed"`
}

// Engine evaluates windows of a dataset against a fixed model. The model,
// symbol mapper, and config are immutable after construction, so one engine
// may serve concurrent evaluations.
type Engine struct {
	model  hmm.Model
	mapper hmm.SymbolMapper
	cfg    Config
}

// New validates the model and configuration and builds an engine.
func New(model hmm.Model, mapper hmm.SymbolMapper, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	if mapper == nil {
		return nil, faults.Config("backtest engine needs a symbol mapper")
	}
	return &Engine{model: model, mapper: mapper, cfg: cfg}, nil
}

// RunWindow decodes the [start, end) sub-sequence and prices the decoded
// path: a period decoded UNDER earns the up clearing price, OVER earns the
// down clearing price, BALANCED earns nothing.
func (e *Engine) RunWindow(ds *market.Dataset, start, end int) (WindowResult, error) {
	if !ds.HasPrices() {
		return WindowResult{}, faults.Input("dataset has no clearing prices for revenue computation")
	}
	if start < 0 || end > ds.Len() || start >= end {
		return WindowResult{}, faults.Input("window [%d, %d) outside dataset of %d periods", start, end, ds.Len())
	}

	values := ds.Values()[start:end]
	symbols := hmm.Symbols(values, e.mapper)
	path := hmm.Decode(symbols, e.model)

	result := WindowResult{
		Start:         start,
		End:           end,
		Path:          path,
		PeriodRevenue: make([]float64, len(path)),
	}
	up := decimal.Zero
	down := decimal.Zero

	for t, state := range path {
		price := ds.Prices[start+t]
		switch state {
		case market.StateUnder:
			up = up.Add(price.Up)
			result.ClearedUp++
			result.PeriodRevenue[t] = price.Up.InexactFloat64()
		case market.StateOver:
			down = down.Add(price.Down)
			result.ClearedDown++
			result.PeriodRevenue[t] = price.Down.InexactFloat64()
		}
	}

	result.Revenue = RevenueBreakdown{
		Up:    up,
		Down:  down,
		Total: up.Add(down),
	}
	result.Revenue.AvgPerPeriod = result.Revenue.Total.InexactFloat64() / float64(len(path))
	return result, nil
}

// RunSlidingWindows evaluates consecutive windows stepped by
// WindowSize*(1-OverlapFraction), emitting one result per step until the
// window no longer fits.
func (e *Engine) RunSlidingWindows(ds *market.Dataset) ([]WindowResult, error) {
	if e.cfg.WindowSize > ds.Len() {
		return nil, faults.Input("window size %d exceeds dataset of %d periods", e.cfg.WindowSize, ds.Len())
	}

	step := int(float64(e.cfg.WindowSize) * (1 - e.cfg.OverlapFraction))
	if step < 1 {
		step = 1
	}

	var results []WindowResult
	for start := 0; start+e.cfg.WindowSize <= ds.Len(); start += step {
		r, err := e.RunWindow(ds, start, start+e.cfg.WindowSize)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}

	log.Info().
		Int("windows", len(results)).
		Int("window_size", e.cfg.WindowSize).
		Int("step", step).
		Msg("backtest: sliding windows complete")
	return results, nil
}

// RunMonteCarlo samples NumSimulations uniformly random window starts from
// the seeded generator and evaluates each window as an independent trial
// over a worker pool. All start indices are drawn up-front from the single
// generator, so the ensemble is identical for a given seed regardless of
// worker count or scheduling order.
func (e *Engine) RunMonteCarlo(ctx context.Context, ds *market.Dataset) (*Ensemble, error) {
	maxStart := ds.Len() - e.cfg.WindowSize
	if maxStart < 0 {
		return nil, faults.Input("window size %d exceeds dataset of %d periods", e.cfg.WindowSize, ds.Len())
	}

	rng := rand.New(rand.NewSource(e.cfg.Seed))
	starts := make([]int, e.cfg.NumSimulations)
	for i := range starts {
		starts[i] = rng.Intn(maxStart + 1)
	}

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(starts) {
		workers = len(starts)
	}

	results := make([]WindowResult, len(starts))
	errs := make([]error, len(starts))
	trials := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range trials {
				results[i], errs[i] = e.RunWindow(ds, starts[i], starts[i]+e.cfg.WindowSize)
			}
		}()
	}

feed:
	for i := range starts {
		select {
		case <-ctx.Done():
			break feed
		case trials <- i:
		}
	}
	close(trials)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	log.Info().
		Int("trials", len(results)).
		Int("workers", workers).
		Int64("seed", e.cfg.Seed).
		Msg("backtest: monte carlo ensemble complete")
	return &Ensemble{Results: results, Seed: e.cfg.Seed}, nil
}
