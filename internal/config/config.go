// Package config loads run configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amirphl/simple-backtest/internal/backtest"
	"github.com/amirphl/simple-backtest/internal/candle"
	"github.com/amirphl/simple-backtest/internal/cost"
	"github.com/amirphl/simple-backtest/internal/haircut"
	"github.com/amirphl/simple-backtest/internal/risk"
	"github.com/amirphl/simple-backtest/internal/strategy"
	"github.com/amirphl/simple-backtest/internal/sweep"
	"github.com/amirphl/simple-backtest/internal/tfutils"
)

/*
YAML config example:
log_level: "info"
run:
  initial_capital: 100000
strategy:
  kind: "rsi"
  profit_target_percent: 4
  stop_loss_percent: 2
  rsi: { period: 14, oversold: 30, overbought: 70 }
risk:
  yearly_drawdown_halt_percent: 15
haircut:
  real_data_cutover: 2010-01-01
data:
  source: "postgres"
  symbols: ["SPY", "QQQ"]
  timeframe: "1d"
  from: "2015-01-01"
  to: "2024-01-01"
sweep:
  workers: 4
  variants:
    - name: "rsi-14"
      strategy: { kind: "rsi", profit_target_percent: 4, stop_loss_percent: 2 }
*/

// Environment overrides.
const (
	EnvLogLevel = "BACKTEST_LOG_LEVEL"
	EnvDBConn   = "BACKTEST_DB_CONN"
)

// Data sources.
const (
	SourcePostgres = "postgres"
	SourceCSV      = "csv"
)

type Config struct {
	LogLevel string             `yaml:"log_level"`
	LogJSON  bool               `yaml:"log_json"`
	Run      backtest.RunConfig `yaml:"run"`
	Strategy strategy.Config    `yaml:"strategy"`
	Risk     risk.Config        `yaml:"risk"`
	Cost     cost.Config        `yaml:"cost"`
	Haircut  haircut.Config     `yaml:"haircut"`
	Data     DataConfig         `yaml:"data"`
	Sweep    SweepConfig        `yaml:"sweep"`
}

// DataConfig says where bars come from and which window to load.
type DataConfig struct {
	Source    string   `yaml:"source"`
	DBConnStr string   `yaml:"db_conn_str"`
	DBMaxOpen int      `yaml:"db_max_open"`
	DBMaxIdle int      `yaml:"db_max_idle"`
	CSVDir    string   `yaml:"csv_dir"`
	Symbols   []string `yaml:"symbols"`
	Timeframe string   `yaml:"timeframe"`
	From      Date     `yaml:"from"`
	// To is exclusive.
	To Date `yaml:"to"`
}

type SweepConfig struct {
	Workers  int             `yaml:"workers"`
	Variants []sweep.Variant `yaml:"variants"`
}

// Date is a calendar day written as YYYY-MM-DD.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	if value.Value == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, value.Value)
	if err != nil {
		return fmt.Errorf("cannot unmarshal %q into Date: want YYYY-MM-DD", value.Value)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalYAML() (any, error) {
	if d.IsZero() {
		return "", nil
	}
	return d.Format(dateLayout), nil
}

// Default returns the stock configuration: an ORB run on daily bars read
// from Postgres.
func Default() Config {
	return Config{
		LogLevel: "info",
		Run:      backtest.RunConfig{InitialCapital: backtest.DefaultInitialCapital},
		Strategy: strategy.Default(strategy.KindORB),
		Risk:     risk.DefaultConfig(),
		Cost:     cost.DefaultConfig(),
		Haircut:  haircut.DefaultConfig(),
		Data: DataConfig{
			Source:    SourcePostgres,
			DBMaxOpen: 10,
			DBMaxIdle: 5,
			Timeframe: "1d",
		},
		Sweep: SweepConfig{Workers: 2},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	// A strategy section in the file replaces the default one wholesale so
	// that defaults for another kind do not leak in.
	var sections struct {
		Strategy *yaml.Node `yaml:"strategy"`
	}
	if err := yaml.Unmarshal(file, &sections); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if sections.Strategy != nil {
		cfg.Strategy = strategy.Config{}
	}
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.Strategy.ApplyDefaults()
	for i := range cfg.Sweep.Variants {
		cfg.Sweep.Variants[i].Strategy.ApplyDefaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.LogLevel = level
	}
	if conn := os.Getenv(EnvDBConn); conn != "" {
		c.Data.DBConnStr = conn
	}
}

// Validate checks every section. Errors are joined and prefixed with the
// section they belong to.
func (c Config) Validate() error {
	var errs []error
	add := func(section string, err error) {
		if err != nil {
			errs = append(errs, &backtest.ConfigError{Section: section, Err: err})
		}
	}
	add("run", c.Run.Validate())
	add("strategy", c.Strategy.Validate())
	add("risk", c.Risk.Validate())
	add("cost", c.Cost.Validate())
	add("haircut", c.Haircut.Validate())
	add("data", c.Data.Validate())
	for _, v := range c.Sweep.Variants {
		add("sweep."+v.Name, v.Strategy.Validate())
	}
	return errors.Join(errs...)
}

func (d DataConfig) Validate() error {
	var errs []error
	switch d.Source {
	case SourcePostgres:
		if d.DBConnStr == "" {
			errs = append(errs, fmt.Errorf("db_conn_str: required for postgres (or set %s)", EnvDBConn))
		}
	case SourceCSV:
		if d.CSVDir == "" {
			errs = append(errs, errors.New("csv_dir: required for csv"))
		}
	default:
		errs = append(errs, fmt.Errorf("source: unknown %q", d.Source))
	}
	if len(d.Symbols) == 0 {
		errs = append(errs, errors.New("symbols: at least one is required"))
	}
	if _, err := tfutils.ParseTimeframe(d.Timeframe); err != nil {
		errs = append(errs, fmt.Errorf("timeframe: %w", err))
	}
	if !d.From.IsZero() && !d.To.IsZero() && !d.From.Before(d.To.Time) {
		errs = append(errs, errors.New("from: must be before to"))
	}
	return errors.Join(errs...)
}

// Input assembles a backtest input from the configuration and loaded bars.
func (c Config) Input(bars map[string][]candle.Candle) backtest.Input {
	return backtest.Input{
		Bars:     bars,
		Strategy: c.Strategy,
		Risk:     c.Risk,
		Cost:     c.Cost,
		Haircut:  c.Haircut,
		Run:      c.Run,
	}
}
