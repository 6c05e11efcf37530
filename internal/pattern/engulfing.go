package pattern

import (
	"fmt"
	"math"

	"github.com/amirphl/simple-backtest/internal/candle"
)

// EngulfingPattern detects two-bar engulfing reversals.
type EngulfingPattern struct {
	name        string
	description string
}

func NewEngulfingPattern() *EngulfingPattern {
	return &EngulfingPattern{
		name:        "Engulfing",
		description: "A candle whose body fully covers the opposite-colored body before it",
	}
}

func (e *EngulfingPattern) Name() string {
	return e.name
}

func (e *EngulfingPattern) Description() string {
	return e.description
}

func (e *EngulfingPattern) Bars() int {
	return 2
}

// Detect finds engulfing patterns in the given candles
func (e *EngulfingPattern) Detect(candles []candle.Candle) ([]PatternMatch, error) {
	if len(candles) < 2 {
		return nil, fmt.Errorf("need at least 2 candles to detect engulfing patterns")
	}

	var matches []PatternMatch
	for i := 1; i < len(candles); i++ {
		cur, prev := candles[i], candles[i-1]
		if ValidateCandle(cur) != nil || ValidateCandle(prev) != nil {
			continue
		}
		if !engulfs(cur, prev) {
			continue
		}

		strength := e.strength(cur, prev)
		switch {
		case cur.IsBullish() && prev.IsBearish():
			matches = append(matches, newMatch(i, NameBullishEngulfing, PatternTypeBullish, strength, cur))
		case cur.IsBearish() && prev.IsBullish():
			matches = append(matches, newMatch(i, NameBearishEngulfing, PatternTypeBearish, strength, cur))
		}
	}
	return matches, nil
}

func engulfs(cur, prev candle.Candle) bool {
	curHigh, curLow := math.Max(cur.Open, cur.Close), math.Min(cur.Open, cur.Close)
	prevHigh, prevLow := math.Max(prev.Open, prev.Close), math.Min(prev.Open, prev.Close)
	return curHigh >= prevHigh && curLow <= prevLow && cur.GetBodySize() > prev.GetBodySize()
}

// strength scales with how much larger the engulfing body is, boosted by
// expanding volume.
func (e *EngulfingPattern) strength(cur, prev candle.Candle) float64 {
	prevBody := prev.GetBodySize()
	if prevBody == 0 {
		return float64(StrengthWeak)
	}
	r := cur.GetBodySize() / prevBody
	s := min(r/2.0, 1.0)
	if prev.Volume > 0 && cur.Volume > prev.Volume*1.5 {
		s = boost(s, 1.2)
	}
	if r > 3.0 {
		s = boost(s, 1.3)
	}
	return max(s, float64(StrengthWeak))
}
