package pattern

import (
	"fmt"
	"time"

	"github.com/amirphl/simple-backtest/internal/candle"
)

// Pattern is the interface for all candlestick detectors.
type Pattern interface {
	Name() string
	Description() string
	// Bars is the number of candles the pattern spans.
	Bars() int
	Detect(candles []candle.Candle) ([]PatternMatch, error)
}

// PatternMatch represents a detected pattern ending at Index.
type PatternMatch struct {
	Index       int
	Pattern     string
	Description string
	Strength    float64 // 0.0 to 1.0
	Direction   PatternType
	Timestamp   time.Time
}

type PatternType string

const (
	PatternTypeBullish PatternType = "bullish"
	PatternTypeBearish PatternType = "bearish"
	PatternTypeNeutral PatternType = "neutral"
)

type PatternStrength float64

const (
	StrengthWeak   PatternStrength = 0.3
	StrengthMedium PatternStrength = 0.6
	StrengthStrong PatternStrength = 0.9
)

// Pattern names reported in PatternMatch.Pattern.
const (
	NameHammer           = "Hammer"
	NameHangingMan       = "Hanging Man"
	NameBullishEngulfing = "Bullish Engulfing"
	NameBearishEngulfing = "Bearish Engulfing"
	NameDoji             = "Doji"
	NameLongLeggedDoji   = "Long-Legged Doji"
	NameDragonflyDoji    = "Dragonfly Doji"
	NameGravestoneDoji   = "Gravestone Doji"
	NameMorningStar      = "Morning Star"
	NameEveningStar      = "Evening Star"
)

// classifyWindow bounds how much history Classify hands to detectors: the
// longest pattern plus the trend context used by hammer detection.
const classifyWindow = 3 + trendContext

// Detectors returns every built-in detector, multi-bar patterns first so that
// they win strength ties against the single-bar ones they contain.
func Detectors() []Pattern {
	return []Pattern{
		NewMorningEveningStarPattern(),
		NewEngulfingPattern(),
		NewHammerPattern(),
		NewDojiPattern(),
	}
}

// Classify returns the strongest directional pattern completing on the last
// candle of the window. Neutral patterns are never returned.
func Classify(candles []candle.Candle) (PatternMatch, bool) {
	var best PatternMatch
	found := false
	if len(candles) == 0 {
		return best, false
	}
	last := len(candles) - 1
	window := candles[max(0, len(candles)-classifyWindow):]
	for _, d := range Detectors() {
		if len(window) < d.Bars() {
			continue
		}
		matches, err := d.Detect(window)
		if err != nil {
			continue
		}
		for _, m := range matches {
			if m.Index != len(window)-1 || m.Direction == PatternTypeNeutral {
				continue
			}
			if !found || m.Strength > best.Strength {
				m.Index = last
				best = m
				found = true
			}
		}
	}
	return best, found
}

// ValidateCandle validates a candle's OHLC relationships
func ValidateCandle(c candle.Candle) error {
	if c.IsMissing() {
		return fmt.Errorf("candle has missing prices")
	}
	if c.High < c.Low {
		return fmt.Errorf("high cannot be less than low")
	}
	if c.Open < c.Low || c.Open > c.High {
		return fmt.Errorf("open must be between high and low")
	}
	if c.Close < c.Low || c.Close > c.High {
		return fmt.Errorf("close must be between high and low")
	}
	return nil
}

func isDoji(c candle.Candle) bool {
	return c.GetTotalRange() > 0 && c.GetBodyRatio() < 0.1
}

// boost multiplies strength by factor, capped at 1.
func boost(strength, factor float64) float64 {
	return min(strength*factor, 1.0)
}

func newMatch(i int, name string, dir PatternType, strength float64, c candle.Candle) PatternMatch {
	return PatternMatch{
		Index:       i,
		Pattern:     name,
		Description: fmt.Sprintf("%s at index %d", name, i),
		Strength:    strength,
		Direction:   dir,
		Timestamp:   c.Timestamp,
	}
}
