// Package strategy
package strategy

import (
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/simple-backtest/internal/candle"
	"github.com/amirphl/simple-backtest/internal/pattern"
	"github.com/amirphl/simple-backtest/internal/position"
)

type Kind string

const (
	KindORB     Kind = "orb"
	KindRSI     Kind = "rsi"
	KindPattern Kind = "pattern"
	KindHybrid  Kind = "hybrid"
)

// Holding decides how open positions are force-closed.
type Holding string

const (
	// HoldingIntraday closes every position at the end of its session.
	HoldingIntraday Holding = "intraday"
	// HoldingSwing keeps positions overnight until stop, target or an exit signal.
	HoldingSwing Holding = "swing"
)

// Config selects and parameterizes a generator. It is immutable for a run.
type Config struct {
	Kind                Kind            `yaml:"kind" json:"kind"`
	ProfitTargetPercent float64         `yaml:"profit_target_percent" json:"profit_target_percent"`
	StopLossPercent     float64         `yaml:"stop_loss_percent" json:"stop_loss_percent"`
	Holding             Holding         `yaml:"holding" json:"holding"`
	AllowShort          bool            `yaml:"allow_short" json:"allow_short"`
	MaxHoldBars         int             `yaml:"max_hold_bars" json:"max_hold_bars"`
	RSI                 *RSIParams      `yaml:"rsi,omitempty" json:"rsi,omitempty"`
	Pattern             *PatternFilters `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Hybrid              *HybridParams   `yaml:"hybrid,omitempty" json:"hybrid,omitempty"`
	Trend               *TrendFilter    `yaml:"trend,omitempty" json:"trend,omitempty"`
}

type RSIParams struct {
	Period     int     `yaml:"period" json:"period"`
	Oversold   float64 `yaml:"oversold" json:"oversold"`
	Overbought float64 `yaml:"overbought" json:"overbought"`
}

type PatternFilters struct {
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`
	// Allowed restricts entries to these pattern names; empty allows all.
	Allowed []string `yaml:"allowed" json:"allowed"`
}

// HybridParams weights the voters by name: orb, rsi, pattern, macd, bollinger.
// A voter with zero or missing weight does not vote.
type HybridParams struct {
	Weights       map[string]float64 `yaml:"weights" json:"weights"`
	MinAgreement  int                `yaml:"min_agreement" json:"min_agreement"`
	Dominant      string             `yaml:"dominant" json:"dominant"`
	DominantFloor float64            `yaml:"dominant_floor" json:"dominant_floor"`
}

// TrendFilter gates entries on trend strength and direction.
type TrendFilter struct {
	MinADX    float64 `yaml:"min_adx" json:"min_adx"`
	ADXPeriod int     `yaml:"adx_period" json:"adx_period"`
	MAPeriod  int     `yaml:"ma_period" json:"ma_period"`
	MAType    string  `yaml:"ma_type" json:"ma_type"`
}

// Signal is an entry decision for one bar.
type Signal struct {
	Time         time.Time     `json:"time"`
	Side         position.Side `json:"side"`
	Confidence   float64       `json:"confidence"`
	Reason       string        `json:"reason"`
	StrategyName string        `json:"strategy_name"`
	TriggerPrice float64       `json:"trigger_price"`
}

// Generator evaluates entries and exits for one symbol.
//
// Evaluate sees only completed bars before t plus bar t's open. ShouldExit is
// asked after bar t has closed and receives history through t.
type Generator interface {
	Name() string
	WarmupPeriod() int
	Evaluate(history []candle.Candle, open float64) (Signal, bool)
	ShouldExit(history []candle.Candle, side position.Side) (string, bool)
}

// Voter names accepted in HybridParams.Weights.
const (
	VoterORB       = "orb"
	VoterRSI       = "rsi"
	VoterPattern   = "pattern"
	VoterMACD      = "macd"
	VoterBollinger = "bollinger"
)

// Default returns a config with the stock parameters for kind.
func Default(kind Kind) Config {
	cfg := Config{
		Kind:                kind,
		ProfitTargetPercent: 2,
		StopLossPercent:     1,
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset optional parameters in place.
func (c *Config) ApplyDefaults() {
	if c.Holding == "" {
		switch c.Kind {
		case KindRSI, KindPattern:
			c.Holding = HoldingSwing
		default:
			c.Holding = HoldingIntraday
		}
	}
	if c.RSI == nil && (c.Kind == KindRSI || c.Kind == KindHybrid) {
		c.RSI = &RSIParams{}
	}
	if c.RSI != nil {
		if c.RSI.Period == 0 {
			c.RSI.Period = 14
		}
		if c.RSI.Oversold == 0 {
			c.RSI.Oversold = 30
		}
		if c.RSI.Overbought == 0 {
			c.RSI.Overbought = 70
		}
	}
	if c.Pattern == nil && (c.Kind == KindPattern || c.Kind == KindHybrid) {
		c.Pattern = &PatternFilters{MinConfidence: 0.6}
	}
	if c.Kind == KindHybrid {
		if c.Hybrid == nil {
			c.Hybrid = &HybridParams{}
		}
		if len(c.Hybrid.Weights) == 0 {
			c.Hybrid.Weights = map[string]float64{VoterORB: 1, VoterRSI: 1, VoterPattern: 1}
		}
		if c.Hybrid.MinAgreement == 0 {
			c.Hybrid.MinAgreement = 2
		}
		if c.Hybrid.Dominant != "" && c.Hybrid.DominantFloor == 0 {
			c.Hybrid.DominantFloor = 0.9
		}
	}
	if c.Trend != nil {
		if c.Trend.ADXPeriod == 0 {
			c.Trend.ADXPeriod = 14
		}
		if c.Trend.MAType == "" {
			c.Trend.MAType = "sma"
		}
	}
}

// DayTrade reports whether positions are closed within the session.
func (c Config) DayTrade() bool {
	return c.Holding == HoldingIntraday
}

// Validate rejects contradictory or out-of-range parameters.
func (c Config) Validate() error {
	var errs []error
	switch c.Kind {
	case KindORB, KindRSI, KindPattern, KindHybrid:
	default:
		errs = append(errs, fmt.Errorf("kind: unknown strategy %q", c.Kind))
	}
	if c.ProfitTargetPercent <= 0 {
		errs = append(errs, errors.New("profit_target_percent: must be positive"))
	}
	if c.StopLossPercent <= 0 || c.StopLossPercent >= 100 {
		errs = append(errs, errors.New("stop_loss_percent: must be in (0, 100)"))
	}
	if c.StopLossPercent >= c.ProfitTargetPercent {
		errs = append(errs, fmt.Errorf("stop_loss_percent: %.2f must be below profit_target_percent %.2f",
			c.StopLossPercent, c.ProfitTargetPercent))
	}
	if c.AllowShort && c.ProfitTargetPercent >= 100 {
		errs = append(errs, errors.New("profit_target_percent: short target must be below 100"))
	}
	switch c.Holding {
	case HoldingIntraday, HoldingSwing, "":
	default:
		errs = append(errs, fmt.Errorf("holding: unknown mode %q", c.Holding))
	}
	if c.MaxHoldBars < 0 {
		errs = append(errs, errors.New("max_hold_bars: must not be negative"))
	}
	if r := c.RSI; r != nil {
		if r.Period < 2 {
			errs = append(errs, errors.New("rsi.period: must be at least 2"))
		}
		if r.Oversold <= 0 || r.Overbought >= 100 || r.Oversold >= r.Overbought {
			errs = append(errs, fmt.Errorf("rsi: need 0 < oversold (%.1f) < overbought (%.1f) < 100",
				r.Oversold, r.Overbought))
		}
	}
	if p := c.Pattern; p != nil && (p.MinConfidence < 0 || p.MinConfidence > 1) {
		errs = append(errs, errors.New("pattern.min_confidence: must be in [0, 1]"))
	}
	if h := c.Hybrid; h != nil {
		errs = append(errs, h.validate()...)
	}
	if tf := c.Trend; tf != nil {
		if tf.MinADX < 0 || tf.MAPeriod < 0 || tf.ADXPeriod < 2 {
			errs = append(errs, errors.New("trend: periods and thresholds must be positive"))
		}
	}
	return errors.Join(errs...)
}

func (h *HybridParams) validate() []error {
	var errs []error
	voters := 0
	for name, w := range h.Weights {
		switch name {
		case VoterORB, VoterRSI, VoterPattern, VoterMACD, VoterBollinger:
		default:
			errs = append(errs, fmt.Errorf("hybrid.weights: unknown voter %q", name))
		}
		if w < 0 {
			errs = append(errs, fmt.Errorf("hybrid.weights: %s must not be negative", name))
		}
		if w > 0 {
			voters++
		}
	}
	if voters == 0 {
		errs = append(errs, errors.New("hybrid.weights: at least one voter needs a positive weight"))
	}
	if h.MinAgreement < 1 {
		errs = append(errs, errors.New("hybrid.min_agreement: must be at least 1"))
	}
	if h.Dominant != "" {
		if h.Weights[h.Dominant] <= 0 {
			errs = append(errs, fmt.Errorf("hybrid.dominant: %q is not a weighted voter", h.Dominant))
		}
		if h.DominantFloor <= 0 || h.DominantFloor > 1 {
			errs = append(errs, errors.New("hybrid.dominant_floor: must be in (0, 1]"))
		}
	}
	return errs
}

// New builds the generator selected by cfg. Call ApplyDefaults and Validate
// first; New does not repeat those checks.
func New(cfg Config) (Generator, error) {
	var g Generator
	switch cfg.Kind {
	case KindORB:
		g = NewORB(cfg.AllowShort)
	case KindRSI:
		if cfg.RSI == nil {
			return nil, errors.New("rsi strategy without rsi parameters")
		}
		g = NewRSI(*cfg.RSI, cfg.AllowShort)
	case KindPattern:
		if cfg.Pattern == nil {
			return nil, errors.New("pattern strategy without pattern filters")
		}
		g = NewPattern(*cfg.Pattern, cfg.AllowShort)
	case KindHybrid:
		h, err := NewHybrid(cfg)
		if err != nil {
			return nil, err
		}
		g = h
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Kind)
	}
	if cfg.Trend != nil {
		g = WithTrendFilter(g, *cfg.Trend)
	}
	return g, nil
}

func lastBar(history []candle.Candle) candle.Candle {
	return history[len(history)-1]
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}

// tail bounds indicator input so per-bar cost stays flat on long series.
func tail(history []candle.Candle, n int) []candle.Candle {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func allowedPattern(f PatternFilters, m pattern.PatternMatch) bool {
	if m.Strength < f.MinConfidence {
		return false
	}
	if len(f.Allowed) == 0 {
		return true
	}
	for _, name := range f.Allowed {
		if name == m.Pattern {
			return true
		}
	}
	return false
}
