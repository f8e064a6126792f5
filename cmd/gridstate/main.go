package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gridstate-labs/gridstate/internal/analysis"
	"github.com/gridstate-labs/gridstate/internal/config"
	"github.com/gridstate-labs/gridstate/internal/market"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to YAML configuration")
	dataPath := flag.String("data", "", "path to CSV dataset (timestamp,value[,up_price,down_price])")
	flag.Parse()

	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro
	log.Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "gridstate").
		Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.General.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().
		Str("instance_id", cfg.General.InstanceID).
		Str("method", cfg.Analysis.CategorizationMethod).
		Msg("Configuration loaded")

	if *dataPath == "" {
		log.Fatal().Msg("No dataset given, use -data")
	}
	ds, err := market.LoadCSV(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *dataPath).Msg("Failed to load dataset")
	}
	log.Info().Int("points", ds.Len()).Bool("prices", ds.HasPrices()).Msg("Dataset loaded")

	// Setup context with cancellation on shutdown signals.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	result, err := analysis.Analyze(ctx, ds, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Analysis failed")
	}

	log.Info().
		Str("run_id", result.RunID).
		Interface("state_counts", result.StateCounts).
		Interface("viterbi_state_counts", result.ViterbiStateCounts).
		Bool("converged", result.Training.Converged).
		Msg("Analysis result")

	if !ds.HasPrices() {
		log.Info().Msg("Dataset has no clearing prices, skipping backtest")
		return
	}

	report, err := analysis.RunBacktest(ctx, ds, result, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Backtest failed")
	}

	log.Info().
		Str("run_id", report.RunID).
		Str("total_revenue", report.FullWindow.Revenue.Total.String()).
		Float64("daily_var_95", report.Risk.ValueAtRisk95).
		Float64("max_drawdown", report.Risk.MaxDrawdown).
		Msg(report.Summary.Text)
}
