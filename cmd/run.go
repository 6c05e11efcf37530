package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/amirphl/simple-backtest/internal/backtest"
	"github.com/amirphl/simple-backtest/internal/candle"
	"github.com/amirphl/simple-backtest/internal/config"
	"github.com/amirphl/simple-backtest/internal/db"
	"github.com/amirphl/simple-backtest/internal/sweep"
)

var (
	outputDir  string
	tradeLimit int
)

func buildRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one backtest with the configured strategy",
		RunE:  runBacktest,
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for report.json, trades.csv and equity.csv")
	cmd.Flags().IntVarP(&tradeLimit, "trades", "n", 20, "Trades to list (-1 for all)")
	return cmd
}

func buildSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run every configured strategy variant over the same bars",
		RunE:  runSweep,
	}
}

func loadBars(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (map[string][]candle.Candle, error) {
	store, release, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer release()

	bars, err := db.LoadBars(ctx, store, cfg.Data.Symbols, cfg.Data.Timeframe, cfg.Data.From.Time, cfg.Data.To.Time, logger)
	if err != nil {
		return nil, err
	}
	for sym, series := range bars {
		logger.Info().Str("symbol", sym).Int("bars", len(series)).Msg("loaded bars")
	}
	return bars, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	bars, err := loadBars(ctx, cfg, logger)
	if err != nil {
		return err
	}
	rep, err := backtest.Run(ctx, cfg.Input(bars), backtest.WithLogger(logger))
	if err != nil {
		return err
	}

	rep.Print(os.Stdout, tradeLimit)
	if outputDir != "" {
		if err := rep.Save(outputDir); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		logger.Info().Str("dir", outputDir).Msg("report saved")
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if len(cfg.Sweep.Variants) == 0 {
		return fmt.Errorf("%s: sweep.variants is empty", configPath)
	}
	ctx := cmd.Context()

	bars, err := loadBars(ctx, cfg, logger)
	if err != nil {
		return err
	}

	bar := progressbar.Default(int64(len(cfg.Sweep.Variants)), "variants")
	results, err := sweep.Run(ctx, cfg.Input(bars), cfg.Sweep.Variants,
		sweep.WithWorkers(cfg.Sweep.Workers),
		sweep.WithLogger(logger),
		sweep.WithProgress(func(done, total int) { _ = bar.Set(done) }),
	)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	printSweep(results)
	return nil
}

func printSweep(results []sweep.Result) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Rank", "Variant", "Trades", "Win %", "Raw Return", "Realistic Return", "Max DD %", "Haircut %"})
	for i, r := range results {
		rep := r.Report
		table.Append([]string{
			strconv.Itoa(i + 1),
			r.Variant.Name,
			strconv.Itoa(rep.Raw.TotalTrades),
			fmt.Sprintf("%.1f", rep.Raw.WinRate),
			fmt.Sprintf("%.2f %%", rep.Raw.TotalReturnPct),
			fmt.Sprintf("%.2f %%", rep.Realistic.TotalReturnPct),
			fmt.Sprintf("%.2f", rep.Realistic.MaxDrawdownPct),
			fmt.Sprintf("%.1f", rep.Haircut.CombinedHaircutPct),
		})
	}
	table.Render()
}
