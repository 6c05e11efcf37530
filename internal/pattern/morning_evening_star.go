package pattern

import (
	"fmt"

	"github.com/amirphl/simple-backtest/internal/candle"
)

// MorningEveningStarPattern detects three-bar star reversals.
type MorningEveningStarPattern struct {
	name        string
	description string
}

func NewMorningEveningStarPattern() *MorningEveningStarPattern {
	return &MorningEveningStarPattern{
		name:        "Star",
		description: "Long body, gapped small-bodied star, then a candle closing past the first body's midpoint",
	}
}

func (m *MorningEveningStarPattern) Name() string {
	return m.name
}

func (m *MorningEveningStarPattern) Description() string {
	return m.description
}

func (m *MorningEveningStarPattern) Bars() int {
	return 3
}

// Detect finds morning star and evening star patterns in the given candles
func (m *MorningEveningStarPattern) Detect(candles []candle.Candle) ([]PatternMatch, error) {
	if len(candles) < 3 {
		return nil, fmt.Errorf("need at least 3 candles to detect morning/evening star patterns")
	}

	var matches []PatternMatch
	for i := 2; i < len(candles); i++ {
		first, star, third := candles[i-2], candles[i-1], candles[i]
		if ValidateCandle(first) != nil || ValidateCandle(star) != nil || ValidateCandle(third) != nil {
			continue
		}
		if star.GetBodyRatio() > 0.3 {
			continue
		}

		mid := (first.Open + first.Close) / 2
		switch {
		case first.IsBearish() && star.High < first.Low && third.IsBullish() && third.Close > mid:
			gap := first.Low - star.High
			s := m.strength(first, star, third, gap, third.Close-mid)
			matches = append(matches, newMatch(i, NameMorningStar, PatternTypeBullish, s, third))
		case first.IsBullish() && star.Low > first.High && third.IsBearish() && third.Close < mid:
			gap := star.Low - first.High
			s := m.strength(first, star, third, gap, mid-third.Close)
			matches = append(matches, newMatch(i, NameEveningStar, PatternTypeBearish, s, third))
		}
	}
	return matches, nil
}

// strength rewards decisive outer bodies, a doji star, a wide gap and a deep
// third close. gap and penetration are positive distances.
func (m *MorningEveningStarPattern) strength(first, star, third candle.Candle, gap, penetration float64) float64 {
	s := float64(StrengthWeak)
	if first.GetBodyRatio() > 0.7 {
		s = boost(s, 1.2)
	}
	if isDoji(star) {
		s = boost(s, 1.3)
	}
	if mid := (first.High + first.Low) / 2; mid > 0 && gap/mid > 0.02 {
		s = boost(s, 1.2)
	}
	if third.GetBodyRatio() > 0.7 {
		s = boost(s, 1.2)
	}
	if r := first.GetTotalRange(); r > 0 && penetration/r > 0.5 {
		s = boost(s, 1.3)
	}
	if star.Volume > 0 && third.Volume > star.Volume*1.5 {
		s = boost(s, 1.1)
	}
	return s
}
