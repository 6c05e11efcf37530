package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amirphl/simple-backtest/internal/db"
)

var (
	symbol    string
	timeframe string
	file      string
)

func buildMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the bar database and candles table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			return db.Migrate(cmd.Context(), cfg.Data.DBConnStr, logger)
		},
	}
}

func buildImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load bars from a CSV file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			bars, err := db.ReadCSV(f, symbol, timeframe)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			p, err := openPostgres(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.SaveCandles(cmd.Context(), bars); err != nil {
				return err
			}
			logger.Info().Str("symbol", strings.ToUpper(symbol)).Str("timeframe", timeframe).Int("bars", len(bars)).Msg("bars imported")
			return nil
		},
	}
	addSeriesFlags(cmd, "Input CSV file")
	return cmd
}

func buildExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write bars stored in Postgres to a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			p, err := openPostgres(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			bars, err := p.GetCandles(cmd.Context(), strings.ToUpper(symbol), timeframe, cfg.Data.From.Time, cfg.Data.To.Time)
			if err != nil {
				return err
			}
			f, err := os.Create(file)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := db.WriteCSV(f, bars); err != nil {
				return err
			}
			logger.Info().Str("file", file).Int("bars", len(bars)).Msg("bars exported")
			return f.Close()
		},
	}
	addSeriesFlags(cmd, "Output CSV file")
	return cmd
}

func addSeriesFlags(cmd *cobra.Command, fileUsage string) {
	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "Symbol (e.g. SPY)")
	cmd.Flags().StringVarP(&timeframe, "timeframe", "t", "1d", "Timeframe (e.g. 1d)")
	cmd.Flags().StringVarP(&file, "file", "f", "", fileUsage)
	cmd.MarkFlagRequired("symbol")
	cmd.MarkFlagRequired("file")
}
