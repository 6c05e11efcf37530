package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/amirphl/simple-backtest/internal/config"
	"github.com/amirphl/simple-backtest/internal/db"
	"github.com/amirphl/simple-backtest/internal/utils"
)

// Command line flags
var (
	configPath string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:           "backtest",
		Short:         "Replay equity strategies over historical bars",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config")

	rootCmd.AddCommand(buildRunCmd(), buildSweepCmd(), buildMigrateCmd(), buildImportCmd(), buildExportCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		utils.GetLogger().Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// setup loads the config and builds the logger it asks for.
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger, err := utils.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("log_level: %w", err)
	}
	return cfg, logger, nil
}

// openStorage returns the configured bar source and a function releasing it.
func openStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (db.Storage, func(), error) {
	switch cfg.Data.Source {
	case config.SourceCSV:
		return db.NewCSV(cfg.Data.CSVDir), func() {}, nil
	case config.SourcePostgres:
		p, err := openPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { p.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
}

func openPostgres(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*db.Postgres, error) {
	if cfg.Data.DBConnStr == "" {
		return nil, errors.New("data.db_conn_str is empty")
	}
	return db.Open(ctx, cfg.Data.DBConnStr, cfg.Data.DBMaxOpen, cfg.Data.DBMaxIdle, logger)
}
