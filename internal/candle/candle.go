// Package candle
package candle

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// SourceSynthetic marks bars that were generated rather than quoted.
const SourceSynthetic = "synthetic"

type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Source    string    `json:"source"`
}

// IsMissing reports whether any OHLC field is absent (NaN).
func (c *Candle) IsMissing() bool {
	return math.IsNaN(c.Open) || math.IsNaN(c.High) || math.IsNaN(c.Low) || math.IsNaN(c.Close)
}

// IsSynthetic reports whether the bar was generated rather than quoted.
func (c *Candle) IsSynthetic() bool {
	return c.Source == SourceSynthetic
}

// Validate checks if a candle has valid data. Missing bars are not validated.
func (c *Candle) Validate() error {
	if c.Timestamp.IsZero() {
		return errors.New("candle timestamp is zero")
	}
	if c.IsMissing() {
		return nil
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return errors.New("candle prices must be positive")
	}
	if c.High < c.Low {
		return errors.New("candle high cannot be less than low")
	}
	if c.Open < c.Low || c.Open > c.High {
		return errors.New("candle open price must be between high and low")
	}
	if c.Close < c.Low || c.Close > c.High {
		return errors.New("candle close price must be between high and low")
	}
	if c.Volume < 0 {
		return errors.New("candle volume cannot be negative")
	}
	return nil
}

// GetBodySize returns the absolute size of the candle body
func (c *Candle) GetBodySize() float64 {
	return math.Abs(c.Close - c.Open)
}

func (c *Candle) GetUpperShadow() float64 {
	return c.High - math.Max(c.Open, c.Close)
}

func (c *Candle) GetLowerShadow() float64 {
	return math.Min(c.Open, c.Close) - c.Low
}

func (c *Candle) GetTotalRange() float64 {
	return c.High - c.Low
}

func (c *Candle) IsBullish() bool {
	return c.Close > c.Open
}

func (c *Candle) IsBearish() bool {
	return c.Close < c.Open
}

// GetBodyRatio returns body size over total range, 0 for a flat bar.
func (c *Candle) GetBodyRatio() float64 {
	return ratio(c.GetBodySize(), c.GetTotalRange())
}

func (c *Candle) GetUpperShadowRatio() float64 {
	return ratio(c.GetUpperShadow(), c.GetTotalRange())
}

func (c *Candle) GetLowerShadowRatio() float64 {
	return ratio(c.GetLowerShadow(), c.GetTotalRange())
}

// GetRangePercent returns (high-low)/close, the bar's range relative to price.
func (c *Candle) GetRangePercent() float64 {
	if c.Close == 0 {
		return 0
	}
	return c.GetTotalRange() / c.Close
}

// ValidateSeries checks that a series belongs to symbol, has strictly
// increasing timestamps and that every non-missing bar is well formed.
// It returns the index of the first offending bar together with the error.
func ValidateSeries(symbol string, candles []Candle) (int, error) {
	for i := range candles {
		c := &candles[i]
		if c.Symbol != "" && symbol != "" && c.Symbol != symbol {
			return i, fmt.Errorf("bar symbol %q does not match series %q", c.Symbol, symbol)
		}
		if err := c.Validate(); err != nil {
			return i, err
		}
		if i > 0 && !c.Timestamp.After(candles[i-1].Timestamp) {
			if c.Timestamp.Equal(candles[i-1].Timestamp) {
				return i, fmt.Errorf("duplicate timestamp %s", c.Timestamp.Format(time.RFC3339))
			}
			return i, fmt.Errorf("timestamp %s is before previous bar %s",
				c.Timestamp.Format(time.RFC3339), candles[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	return -1, nil
}

// CountMissing returns the number of bars with absent OHLC data.
func CountMissing(candles []Candle) int {
	n := 0
	for i := range candles {
		if candles[i].IsMissing() {
			n++
		}
	}
	return n
}

func ratio(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total
}
