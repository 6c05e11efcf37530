package pattern

import (
	"fmt"

	"github.com/amirphl/simple-backtest/internal/candle"
)

// trendContext is how many prior bars decide whether a hammer-shaped candle
// follows a decline (hammer) or an advance (hanging man).
const trendContext = 3

// HammerPattern detects hammer (bullish) and hanging man (bearish) candles.
type HammerPattern struct {
	name        string
	description string
}

func NewHammerPattern() *HammerPattern {
	return &HammerPattern{
		name:        NameHammer,
		description: "Small body with a long lower shadow; hammer after a decline, hanging man after an advance",
	}
}

func (h *HammerPattern) Name() string {
	return h.name
}

func (h *HammerPattern) Description() string {
	return h.description
}

func (h *HammerPattern) Bars() int {
	return 1
}

// Detect finds hammer-shaped candles and labels each by the preceding trend.
// Without prior bars the close decides: up candles are hammers.
func (h *HammerPattern) Detect(candles []candle.Candle) ([]PatternMatch, error) {
	if len(candles) < 1 {
		return nil, fmt.Errorf("need at least 1 candle to detect hammer patterns")
	}

	var matches []PatternMatch
	for i, c := range candles {
		if ValidateCandle(c) != nil || !h.hasShape(c) {
			continue
		}

		trend := priorTrend(candles, i)
		bullish := trend < 0 || (trend == 0 && !c.IsBearish())
		strength := h.strength(c, trend != 0)
		if bullish {
			matches = append(matches, newMatch(i, NameHammer, PatternTypeBullish, strength, c))
		} else {
			matches = append(matches, newMatch(i, NameHangingMan, PatternTypeBearish, strength, c))
		}
	}
	return matches, nil
}

// hasShape: small body, lower shadow at least twice the body, almost no
// upper shadow.
func (h *HammerPattern) hasShape(c candle.Candle) bool {
	body := c.GetBodySize()
	if body == 0 || c.GetBodyRatio() > 0.3 {
		return false
	}
	if c.GetLowerShadow() < 2*body {
		return false
	}
	return c.GetUpperShadowRatio() <= 0.1
}

func (h *HammerPattern) strength(c candle.Candle, confirmed bool) float64 {
	var s float64
	switch lower := c.GetLowerShadowRatio(); {
	case lower > 0.6:
		s = float64(StrengthStrong)
	case lower > 0.4:
		s = float64(StrengthMedium)
	default:
		s = float64(StrengthWeak)
	}
	if c.GetBodyRatio() < 0.1 {
		s = boost(s, 1.2)
	}
	if c.GetUpperShadowRatio() < 0.05 {
		s = boost(s, 1.1)
	}
	if confirmed {
		s = boost(s, 1.1)
	}
	return s
}

// priorTrend compares the bar's open with the close trendContext bars back:
// -1 for a decline, +1 for an advance, 0 when there is no usable history.
func priorTrend(candles []candle.Candle, i int) int {
	if i == 0 {
		return 0
	}
	ref := candles[max(0, i-trendContext)]
	if ref.IsMissing() {
		return 0
	}
	open := candles[i].Open
	switch {
	case open < ref.Close:
		return -1
	case open > ref.Close:
		return 1
	}
	return 0
}
