// Package risk decides whether an entry may be taken and how large it is.
// Everything here is a pure function of the config and a state snapshot.
package risk

import (
	"errors"
	"fmt"
	"math"
)

// Denial reasons, in the order they are checked.
const (
	DenyYearHalt   = "year-drawdown-halt"
	DenyGoal       = "goal-reached"
	DenyPDTCapital = "pdt-capital"
	DenyZeroSize   = "zero-size"
)

type Config struct {
	// MinCapitalForDayTrading is the pattern-day-trader equity floor for
	// day-trade entries. 0 disables it.
	MinCapitalForDayTrading float64 `yaml:"min_capital_for_day_trading" json:"min_capital_for_day_trading"`
	// YearlyDrawdownHaltPercent halts entries for the rest of the calendar
	// year once equity drops this far below the year's starting equity.
	YearlyDrawdownHaltPercent float64 `yaml:"yearly_drawdown_halt_percent" json:"yearly_drawdown_halt_percent"`
	RiskPerTradePercent       float64 `yaml:"risk_per_trade_percent" json:"risk_per_trade_percent"`
	MaxPositionPercent        float64 `yaml:"max_position_percent" json:"max_position_percent"`
	// Above ScalingThreshold equity, size is multiplied by ScalingFactor.
	ScalingThreshold float64 `yaml:"scaling_threshold" json:"scaling_threshold"`
	ScalingFactor    float64 `yaml:"scaling_factor" json:"scaling_factor"`
	// GoalCapital stops new day-trade entries for the run once reached. 0
	// disables it.
	GoalCapital float64 `yaml:"goal_capital" json:"goal_capital"`
}

func DefaultConfig() Config {
	return Config{
		MinCapitalForDayTrading:   25000,
		YearlyDrawdownHaltPercent: 15,
		RiskPerTradePercent:       1,
		MaxPositionPercent:        95,
		ScalingThreshold:          1_000_000,
		ScalingFactor:             0.5,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.MinCapitalForDayTrading < 0 {
		errs = append(errs, errors.New("min_capital_for_day_trading: must not be negative"))
	}
	if c.YearlyDrawdownHaltPercent <= 0 || c.YearlyDrawdownHaltPercent >= 100 {
		errs = append(errs, errors.New("yearly_drawdown_halt_percent: must be in (0, 100)"))
	}
	if c.RiskPerTradePercent <= 0 || c.RiskPerTradePercent > 100 {
		errs = append(errs, errors.New("risk_per_trade_percent: must be in (0, 100]"))
	}
	if c.MaxPositionPercent <= 0 || c.MaxPositionPercent > 100 {
		errs = append(errs, errors.New("max_position_percent: must be in (0, 100]"))
	}
	if c.ScalingThreshold < 0 {
		errs = append(errs, errors.New("scaling_threshold: must not be negative"))
	}
	if c.ScalingFactor <= 0 || c.ScalingFactor > 1 {
		errs = append(errs, errors.New("scaling_factor: must be in (0, 1]"))
	}
	if c.GoalCapital < 0 {
		errs = append(errs, errors.New("goal_capital: must not be negative"))
	}
	if c.GoalCapital > 0 && c.GoalCapital <= c.MinCapitalForDayTrading {
		errs = append(errs, fmt.Errorf("goal_capital: %.2f must exceed the day trading floor %.2f",
			c.GoalCapital, c.MinCapitalForDayTrading))
	}
	return errors.Join(errs...)
}

// Scaled returns a copy with every absolute capital threshold multiplied by
// share. Used to give each symbol's capital sleeve proportional limits.
func (c Config) Scaled(share float64) Config {
	c.MinCapitalForDayTrading *= share
	c.ScalingThreshold *= share
	c.GoalCapital *= share
	return c
}

// Snapshot is the portfolio state the decision looks at.
type Snapshot struct {
	Equity          float64
	YearStartEquity float64
	// YearHalted and GoalReached are latches kept by the caller.
	YearHalted  bool
	GoalReached bool
	DayTrade    bool
}

type Decision struct {
	Allowed bool
	Reason  string
	// The latches the caller should store after this decision.
	YearHalted  bool
	GoalReached bool
}

// HaltLevel is the equity under which the year halts.
func (c Config) HaltLevel(yearStartEquity float64) float64 {
	return yearStartEquity * (1 - c.YearlyDrawdownHaltPercent/100)
}

// Evaluate decides whether a new entry is permitted.
func Evaluate(cfg Config, s Snapshot) Decision {
	d := Decision{YearHalted: s.YearHalted, GoalReached: s.GoalReached}

	if !d.YearHalted && s.Equity < cfg.HaltLevel(s.YearStartEquity) {
		d.YearHalted = true
	}
	if d.YearHalted {
		d.Reason = DenyYearHalt
		return d
	}

	if s.DayTrade {
		if !d.GoalReached && cfg.GoalCapital > 0 && s.Equity >= cfg.GoalCapital {
			d.GoalReached = true
		}
		if d.GoalReached {
			d.Reason = DenyGoal
			return d
		}
		if s.Equity < cfg.MinCapitalForDayTrading {
			d.Reason = DenyPDTCapital
			return d
		}
	}

	d.Allowed = true
	return d
}

// PositionSize returns whole shares for an entry at price with the given stop
// distance in percent. Risk per trade sets the base size, the max position
// caps notional, and the scaling factor shrinks size above the threshold.
func PositionSize(cfg Config, equity, price, stopPercent float64) int64 {
	if equity <= 0 || price <= 0 || stopPercent <= 0 {
		return 0
	}
	riskAmount := equity * cfg.RiskPerTradePercent / 100
	lossPerShare := price * stopPercent / 100
	shares := riskAmount / lossPerShare

	maxShares := equity * cfg.MaxPositionPercent / 100 / price
	shares = math.Min(shares, maxShares)

	if cfg.ScalingThreshold > 0 && equity > cfg.ScalingThreshold {
		shares *= cfg.ScalingFactor
	}
	return int64(math.Floor(shares))
}
