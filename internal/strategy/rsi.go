package strategy

import (
	"fmt"
	"math"

	"github.com/amirphl/simple-backtest/internal/candle"
	"github.com/amirphl/simple-backtest/internal/indicator"
	"github.com/amirphl/simple-backtest/internal/position"
)

// RSIStrategy implements a trading strategy based on the Relative Strength Index
type RSIStrategy struct {
	Period     int
	Overbought float64
	Oversold   float64
	allowShort bool
	// window bounds the closes fed to the indicator on every call.
	window int
}

// NewRSI creates a new RSI strategy with the given parameters
func NewRSI(p RSIParams, allowShort bool) *RSIStrategy {
	// 10x the period is enough for Wilder smoothing to settle.
	window := max(p.Period*10, 250)
	return &RSIStrategy{
		Period:     p.Period,
		Overbought: p.Overbought,
		Oversold:   p.Oversold,
		allowShort: allowShort,
		window:     window,
	}
}

func (s *RSIStrategy) Name() string { return "RSI" }

// WarmupPeriod is period+2: two settled readings are needed to see a cross.
func (s *RSIStrategy) WarmupPeriod() int { return s.Period + 2 }

// Evaluate buys when RSI crosses down through oversold and sells when it
// crosses up through overbought, both measured on completed bars.
func (s *RSIStrategy) Evaluate(history []candle.Candle, open float64) (Signal, bool) {
	prev, cur, ok := s.lastTwo(history)
	if !ok {
		return Signal{}, false
	}

	switch {
	case prev >= s.Oversold && cur < s.Oversold:
		return Signal{
			Side:         position.Long,
			Confidence:   clamp01(0.5 + (s.Oversold-cur)/s.Oversold),
			Reason:       fmt.Sprintf("rsi crossed below %.0f (%.1f)", s.Oversold, cur),
			StrategyName: s.Name(),
			TriggerPrice: open,
		}, true
	case s.allowShort && prev <= s.Overbought && cur > s.Overbought:
		return Signal{
			Side:         position.Short,
			Confidence:   clamp01(0.5 + (cur-s.Overbought)/(100-s.Overbought)),
			Reason:       fmt.Sprintf("rsi crossed above %.0f (%.1f)", s.Overbought, cur),
			StrategyName: s.Name(),
			TriggerPrice: open,
		}, true
	}
	return Signal{}, false
}

// ShouldExit closes a long once RSI reaches overbought and a short once it
// reaches oversold.
func (s *RSIStrategy) ShouldExit(history []candle.Candle, side position.Side) (string, bool) {
	_, cur, ok := s.lastTwo(history)
	if !ok {
		return "", false
	}
	if side == position.Long && cur >= s.Overbought {
		return "rsi-overbought", true
	}
	if side == position.Short && cur <= s.Oversold {
		return "rsi-oversold", true
	}
	return "", false
}

func (s *RSIStrategy) lastTwo(history []candle.Candle) (float64, float64, bool) {
	if len(history) < s.WarmupPeriod() {
		return 0, 0, false
	}
	rsi := indicator.CalculateRSI(indicator.Closes(tail(history, s.window)), s.Period)
	prev, cur := rsi[len(rsi)-2], rsi[len(rsi)-1]
	if math.IsNaN(prev) || math.IsNaN(cur) {
		return 0, 0, false
	}
	return prev, cur, true
}
