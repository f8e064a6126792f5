// Package config loads and validates the engine's YAML configuration.
package config

import (
	"fmt"
	"os"

	"github.com/gridstate-labs/gridstate/internal/backtest"
	"github.com/gridstate-labs/gridstate/internal/categorize"
	"github.com/gridstate-labs/gridstate/internal/faults"
	"github.com/gridstate-labs/gridstate/internal/hmm"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	General  GeneralConfig  `yaml:"general"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Training TrainingConfig `yaml:"training"`
	Backtest BacktestConfig `yaml:"backtest"`
}

type GeneralConfig struct {
	InstanceID string `yaml:"instance_id"`
	LogLevel   string `yaml:"log_level"`
}

type AnalysisConfig struct {
	CategorizationMethod string            `yaml:"categorization_method"`
	Quantile             QuantileOptions   `yaml:"quantile"`
	KMeans               KMeansOptions     `yaml:"kmeans"`
	Volatility           VolatilityOptions `yaml:"volatility"`
	Adaptive             AdaptiveOptions   `yaml:"adaptive"`
	ZScore               ZScoreOptions     `yaml:"zscore"`
	Threshold            ThresholdOptions  `yaml:"threshold"`
	MinDataPoints        int               `yaml:"min_data_points"`
}

type QuantileOptions struct {
	LowPercentile  float64 `yaml:"low_percentile"`
	HighPercentile float64 `yaml:"high_percentile"`
}

type KMeansOptions struct {
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
	Seed          int64   `yaml:"seed"`
}

type VolatilityOptions struct {
	Window      int     `yaml:"window"`
	CVThreshold float64 `yaml:"cv_threshold"`
	LocalBand   float64 `yaml:"local_band"`
	GlobalBand  float64 `yaml:"global_band"`
}

type AdaptiveOptions struct {
	MaxWindow   int     `yaml:"max_window"`
	Sensitivity float64 `yaml:"sensitivity"`
	MinSpread   float64 `yaml:"min_spread"`
}

type ZScoreOptions struct {
	LowThreshold  float64 `yaml:"low_threshold"`
	HighThreshold float64 `yaml:"high_threshold"`
}

type ThresholdOptions struct {
	LowValue  float64 `yaml:"low_value"`
	HighValue float64 `yaml:"high_value"`
}

type TrainingConfig struct {
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
}

type BacktestConfig struct {
	WindowSize       int       `yaml:"window_size"`
	OverlapFraction  float64   `yaml:"overlap_fraction"`
	NumSimulations   int       `yaml:"num_simulations"`
	ConfidenceLevels []float64 `yaml:"confidence_levels"`
	Seed             int64     `yaml:"seed"`
	Workers          int       `yaml:"workers"`
	PeriodsPerDay    int       `yaml:"periods_per_day"`
}

// Load reads and parses a YAML configuration file, expands environment
// variables, applies defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.General.InstanceID == "" {
		cfg.General.InstanceID = "gridstate-1"
	}
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.Analysis.CategorizationMethod == "" {
		cfg.Analysis.CategorizationMethod = "quantile"
	}
	if cfg.Analysis.Quantile.LowPercentile == 0 {
		cfg.Analysis.Quantile.LowPercentile = 33
	}
	if cfg.Analysis.Quantile.HighPercentile == 0 {
		cfg.Analysis.Quantile.HighPercentile = 67
	}
	if cfg.Analysis.KMeans.MaxIterations == 0 {
		cfg.Analysis.KMeans.MaxIterations = 100
	}
	if cfg.Analysis.KMeans.Tolerance == 0 {
		cfg.Analysis.KMeans.Tolerance = 1e-6
	}
	if cfg.Analysis.KMeans.Seed == 0 {
		cfg.Analysis.KMeans.Seed = 1
	}
	if cfg.Analysis.Volatility.Window == 0 {
		cfg.Analysis.Volatility.Window = 96
	}
	if cfg.Analysis.Volatility.CVThreshold == 0 {
		cfg.Analysis.Volatility.CVThreshold = 0.3
	}
	if cfg.Analysis.Volatility.LocalBand == 0 {
		cfg.Analysis.Volatility.LocalBand = 0.05
	}
	if cfg.Analysis.Volatility.GlobalBand == 0 {
		cfg.Analysis.Volatility.GlobalBand = 0.10
	}
	if cfg.Analysis.Adaptive.MaxWindow == 0 {
		cfg.Analysis.Adaptive.MaxWindow = 96
	}
	if cfg.Analysis.Adaptive.Sensitivity == 0 {
		cfg.Analysis.Adaptive.Sensitivity = 1.0
	}
	if cfg.Analysis.Adaptive.MinSpread == 0 {
		cfg.Analysis.Adaptive.MinSpread = 0.05
	}
	if cfg.Analysis.ZScore.LowThreshold == 0 {
		cfg.Analysis.ZScore.LowThreshold = -0.5
	}
	if cfg.Analysis.ZScore.HighThreshold == 0 {
		cfg.Analysis.ZScore.HighThreshold = 0.5
	}
	if cfg.Analysis.MinDataPoints == 0 {
		cfg.Analysis.MinDataPoints = 10
	}
	if cfg.Training.MaxIterations == 0 {
		cfg.Training.MaxIterations = 100
	}
	if cfg.Training.Tolerance == 0 {
		cfg.Training.Tolerance = 1e-6
	}
	if cfg.Backtest.WindowSize == 0 {
		cfg.Backtest.WindowSize = 168
	}
	if cfg.Backtest.OverlapFraction == 0 {
		cfg.Backtest.OverlapFraction = 0.5
	}
	if cfg.Backtest.NumSimulations == 0 {
		cfg.Backtest.NumSimulations = 500
	}
	if len(cfg.Backtest.ConfidenceLevels) == 0 {
		cfg.Backtest.ConfidenceLevels = []float64{0.05, 0.25, 0.5, 0.75, 0.95}
	}
	if cfg.Backtest.Seed == 0 {
		cfg.Backtest.Seed = 42
	}
	if cfg.Backtest.PeriodsPerDay == 0 {
		cfg.Backtest.PeriodsPerDay = 24
	}
}

// Validate checks option ranges across all sections.
func (c *Config) Validate() error {
	if _, err := categorize.ParseMethod(c.Analysis.CategorizationMethod); err != nil {
		return err
	}
	q := c.Analysis.Quantile
	if q.LowPercentile <= 0 || q.HighPercentile >= 100 || q.LowPercentile >= q.HighPercentile {
		return faults.Config("quantile percentiles must satisfy 0 < low < high < 100, got %.1f/%.1f",
			q.LowPercentile, q.HighPercentile)
	}
	z := c.Analysis.ZScore
	if z.LowThreshold >= z.HighThreshold {
		return faults.Config("zscore thresholds must satisfy low < high, got %v/%v",
			z.LowThreshold, z.HighThreshold)
	}
	if c.Analysis.MinDataPoints < 1 {
		return faults.Config("min data points must be at least 1, got %d", c.Analysis.MinDataPoints)
	}
	if c.Training.MaxIterations < 1 {
		return faults.Config("training max iterations must be at least 1, got %d", c.Training.MaxIterations)
	}
	if c.Training.Tolerance <= 0 {
		return faults.Config("training tolerance must be positive, got %v", c.Training.Tolerance)
	}
	return c.BacktestConfig().Validate()
}

// CategorizeConfig converts the analysis section to the categorizer's
// config. The method string has been validated, so the parse cannot fail
// here.
func (c *Config) CategorizeConfig() categorize.Config {
	method, _ := categorize.ParseMethod(c.Analysis.CategorizationMethod)
	return categorize.Config{
		Method: method,
		Quantile: categorize.QuantileOptions{
			LowPercentile:  c.Analysis.Quantile.LowPercentile,
			HighPercentile: c.Analysis.Quantile.HighPercentile,
		},
		KMeans: categorize.KMeansOptions{
			MaxIterations: c.Analysis.KMeans.MaxIterations,
			Tolerance:     c.Analysis.KMeans.Tolerance,
			Seed:          c.Analysis.KMeans.Seed,
		},
		Volatility: categorize.VolatilityOptions{
			Window:      c.Analysis.Volatility.Window,
			CVThreshold: c.Analysis.Volatility.CVThreshold,
			LocalBand:   c.Analysis.Volatility.LocalBand,
			GlobalBand:  c.Analysis.Volatility.GlobalBand,
		},
		Adaptive: categorize.AdaptiveOptions{
			MaxWindow:   c.Analysis.Adaptive.MaxWindow,
			Sensitivity: c.Analysis.Adaptive.Sensitivity,
			MinSpread:   c.Analysis.Adaptive.MinSpread,
		},
		ZScore: categorize.ZScoreOptions{
			LowThreshold:  c.Analysis.ZScore.LowThreshold,
			HighThreshold: c.Analysis.ZScore.HighThreshold,
		},
		Threshold: categorize.ThresholdOptions{
			LowValue:  c.Analysis.Threshold.LowValue,
			HighValue: c.Analysis.Threshold.HighValue,
		},
	}
}

// TrainConfig converts the training section.
func (c *Config) TrainConfig() hmm.TrainConfig {
	return hmm.TrainConfig{
		MaxIterations: c.Training.MaxIterations,
		Tolerance:     c.Training.Tolerance,
	}
}

// BacktestConfig converts the backtest section.
func (c *Config) BacktestConfig() backtest.Config {
	return backtest.Config{
		WindowSize:       c.Backtest.WindowSize,
		OverlapFraction:  c.Backtest.OverlapFraction,
		NumSimulations:   c.Backtest.NumSimulations,
		ConfidenceLevels: c.Backtest.ConfidenceLevels,
		Seed:             c.Backtest.Seed,
		Workers:          c.Backtest.Workers,
		PeriodsPerDay:    c.Backtest.PeriodsPerDay,
	}
}
