package pattern

import (
	"fmt"
	"math"

	"github.com/amirphl/simple-backtest/internal/candle"
)

// DojiPattern detects doji candles. Dragonfly and gravestone variants carry a
// direction; standard and long-legged dojis are neutral.
type DojiPattern struct {
	name        string
	description string
}

func NewDojiPattern() *DojiPattern {
	return &DojiPattern{
		name:        NameDoji,
		description: "Open and close nearly equal; variants by shadow placement",
	}
}

func (d *DojiPattern) Name() string {
	return d.name
}

func (d *DojiPattern) Description() string {
	return d.description
}

func (d *DojiPattern) Bars() int {
	return 1
}

// Detect classifies each doji, most specific variant first.
func (d *DojiPattern) Detect(candles []candle.Candle) ([]PatternMatch, error) {
	if len(candles) < 1 {
		return nil, fmt.Errorf("need at least 1 candle to detect doji patterns")
	}

	var matches []PatternMatch
	for i, c := range candles {
		if ValidateCandle(c) != nil || !isDoji(c) {
			continue
		}
		upper, lower := c.GetUpperShadowRatio(), c.GetLowerShadowRatio()
		base := d.baseStrength(c)

		switch {
		case upper <= 0.05 && lower > 0.3:
			s := base
			if lower > 0.6 {
				s = boost(s, 1.3)
			}
			matches = append(matches, newMatch(i, NameDragonflyDoji, PatternTypeBullish, s, c))
		case lower <= 0.05 && upper > 0.3:
			s := base
			if upper > 0.6 {
				s = boost(s, 1.3)
			}
			matches = append(matches, newMatch(i, NameGravestoneDoji, PatternTypeBearish, s, c))
		case upper > 0.4 && lower > 0.4:
			matches = append(matches, newMatch(i, NameLongLeggedDoji, PatternTypeNeutral, boost(base, 1.2), c))
		default:
			s := base
			if 1-math.Abs(upper-lower) > 0.8 {
				s = boost(s, 1.2)
			}
			matches = append(matches, newMatch(i, NameDoji, PatternTypeNeutral, s, c))
		}
	}
	return matches, nil
}

// baseStrength grows as the body shrinks.
func (d *DojiPattern) baseStrength(c candle.Candle) float64 {
	switch r := c.GetBodyRatio(); {
	case r < 0.05:
		return float64(StrengthStrong)
	case r < 0.08:
		return float64(StrengthMedium)
	}
	return float64(StrengthWeak)
}
