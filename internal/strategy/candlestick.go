package strategy

import (
	"fmt"

	"github.com/amirphl/simple-backtest/internal/candle"
	"github.com/amirphl/simple-backtest/internal/pattern"
	"github.com/amirphl/simple-backtest/internal/position"
)

// PatternStrategy trades candlestick patterns that complete on the last
// finished bar.
type PatternStrategy struct {
	filters    PatternFilters
	allowShort bool
}

func NewPattern(f PatternFilters, allowShort bool) *PatternStrategy {
	return &PatternStrategy{filters: f, allowShort: allowShort}
}

func (s *PatternStrategy) Name() string { return "Pattern" }

// WarmupPeriod covers the longest pattern (three bars).
func (s *PatternStrategy) WarmupPeriod() int { return 3 }

func (s *PatternStrategy) Evaluate(history []candle.Candle, open float64) (Signal, bool) {
	if len(history) == 0 {
		return Signal{}, false
	}
	m, ok := pattern.Classify(history)
	if !ok || !allowedPattern(s.filters, m) {
		return Signal{}, false
	}

	side := position.Long
	if m.Direction == pattern.PatternTypeBearish {
		if !s.allowShort {
			return Signal{}, false
		}
		side = position.Short
	}
	return Signal{
		Side:         side,
		Confidence:   m.Strength,
		Reason:       fmt.Sprintf("%s (%.2f)", m.Pattern, m.Strength),
		StrategyName: s.Name(),
		TriggerPrice: open,
	}, true
}

// ShouldExit fires when a pattern of the opposite polarity completes.
func (s *PatternStrategy) ShouldExit(history []candle.Candle, side position.Side) (string, bool) {
	m, ok := pattern.Classify(history)
	if !ok {
		return "", false
	}
	if side == position.Long && m.Direction == pattern.PatternTypeBearish {
		return "pattern-reversal: " + m.Pattern, true
	}
	if side == position.Short && m.Direction == pattern.PatternTypeBullish {
		return "pattern-reversal: " + m.Pattern, true
	}
	return "", false
}
