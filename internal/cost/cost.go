// Package cost models transaction costs as volatility-scaled slippage.
package cost

import (
	"errors"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/amirphl/simple-backtest/internal/candle"
)

type Config struct {
	// BaseSlippagePercent is charged on the notional of both legs. 0.02 = 0.02%.
	BaseSlippagePercent float64 `yaml:"base_slippage_percent" json:"base_slippage_percent"`
	// Window is how many prior bars form the volatility baseline.
	Window int `yaml:"window" json:"window"`
	// Percentile of the baseline ranges the exit bar must exceed before the
	// multiplier kicks in.
	Percentile    float64 `yaml:"percentile" json:"percentile"`
	MaxMultiplier float64 `yaml:"max_multiplier" json:"max_multiplier"`
	// CommissionPerTrade is a flat fee per round trip; zero models
	// commission-free brokers.
	CommissionPerTrade float64 `yaml:"commission_per_trade" json:"commission_per_trade"`
}

func DefaultConfig() Config {
	return Config{
		BaseSlippagePercent: 0.02,
		Window:              20,
		Percentile:          80,
		MaxMultiplier:       3,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.BaseSlippagePercent < 0 {
		errs = append(errs, errors.New("base_slippage_percent: must not be negative"))
	}
	if c.Window < 2 {
		errs = append(errs, errors.New("window: must be at least 2"))
	}
	if c.Percentile <= 0 || c.Percentile >= 100 {
		errs = append(errs, errors.New("percentile: must be in (0, 100)"))
	}
	if c.MaxMultiplier < 1 {
		errs = append(errs, errors.New("max_multiplier: must be at least 1"))
	}
	if c.CommissionPerTrade < 0 {
		errs = append(errs, errors.New("commission_per_trade: must not be negative"))
	}
	return errors.Join(errs...)
}

type Model struct {
	cfg Config
}

func NewModel(cfg Config) *Model {
	return &Model{cfg: cfg}
}

// VolatilityMultiplier compares the exit bar's range with the trailing
// baseline. It is 1 in ordinary conditions and range/mean(baseline) when the
// bar is wider than the configured percentile, clamped to MaxMultiplier.
func (m *Model) VolatilityMultiplier(baseline []candle.Candle, bar candle.Candle) float64 {
	if len(baseline) > m.cfg.Window {
		baseline = baseline[len(baseline)-m.cfg.Window:]
	}
	ranges := lo.FilterMap(baseline, func(c candle.Candle, _ int) (float64, bool) {
		return c.GetRangePercent(), !c.IsMissing()
	})
	if len(ranges) < 2 {
		return 1
	}

	sort.Float64s(ranges)
	threshold := stat.Quantile(m.cfg.Percentile/100, stat.LinInterp, ranges, nil)
	r := bar.GetRangePercent()
	if r <= threshold {
		return 1
	}
	mean := stat.Mean(ranges, nil)
	if mean <= 0 {
		return m.cfg.MaxMultiplier
	}
	return max(1, min(r/mean, m.cfg.MaxMultiplier))
}

// Cost is charged once, at exit, on both legs' notional.
func (m *Model) Cost(baseline []candle.Candle, exitBar candle.Candle, entry, exit float64, shares int64) float64 {
	notional := (entry + exit) * float64(shares)
	return notional*m.cfg.BaseSlippagePercent/100*m.VolatilityMultiplier(baseline, exitBar) + m.cfg.CommissionPerTrade
}
