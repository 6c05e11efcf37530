package candle

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create test candles
func createTestCandles(symbol string, start time.Time, step time.Duration, closes []float64) []Candle {
	candles := make([]Candle, len(closes))
	for i, c := range closes {
		candles[i] = Candle{
			Timestamp: start.Add(time.Duration(i) * step),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    100,
			Symbol:    symbol,
			Timeframe: "1d",
			Source:    "test",
		}
	}
	return candles
}

func TestCandle_Validate(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	t.Run("Valid candle", func(t *testing.T) {
		c := Candle{Timestamp: now, Open: 100, High: 105, Low: 95, Close: 102, Volume: 10}
		assert.NoError(t, c.Validate())
	})

	t.Run("High below low", func(t *testing.T) {
		c := Candle{Timestamp: now, Open: 100, High: 94, Low: 95, Close: 96}
		assert.Error(t, c.Validate())
	})

	t.Run("Open out of range", func(t *testing.T) {
		c := Candle{Timestamp: now, Open: 110, High: 105, Low: 95, Close: 100}
		assert.Error(t, c.Validate())
	})

	t.Run("Non-positive price", func(t *testing.T) {
		c := Candle{Timestamp: now, Open: 0, High: 105, Low: 0, Close: 100}
		assert.Error(t, c.Validate())
	})

	t.Run("Missing bar is not an error", func(t *testing.T) {
		c := Candle{Timestamp: now, Open: math.NaN(), High: math.NaN(), Low: math.NaN(), Close: math.NaN()}
		assert.True(t, c.IsMissing())
		assert.NoError(t, c.Validate())
	})

	t.Run("Zero timestamp", func(t *testing.T) {
		c := Candle{Open: 100, High: 105, Low: 95, Close: 102}
		assert.Error(t, c.Validate())
	})
}

func TestCandle_Shape(t *testing.T) {
	c := Candle{Open: 100, High: 110, Low: 90, Close: 105}

	assert.InDelta(t, 5.0, c.GetBodySize(), 1e-9)
	assert.InDelta(t, 5.0, c.GetUpperShadow(), 1e-9)
	assert.InDelta(t, 10.0, c.GetLowerShadow(), 1e-9)
	assert.InDelta(t, 20.0, c.GetTotalRange(), 1e-9)
	assert.InDelta(t, 0.25, c.GetBodyRatio(), 1e-9)
	assert.InDelta(t, 0.5, c.GetLowerShadowRatio(), 1e-9)
	assert.InDelta(t, 20.0/105.0, c.GetRangePercent(), 1e-9)
	assert.True(t, c.IsBullish())
	assert.False(t, c.IsBearish())

	flat := Candle{Open: 100, High: 100, Low: 100, Close: 100}
	assert.Zero(t, flat.GetBodyRatio())
}

func TestValidateSeries(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	t.Run("Valid series", func(t *testing.T) {
		candles := createTestCandles("AAPL", start, 24*time.Hour, []float64{100, 101, 102})
		idx, err := ValidateSeries("AAPL", candles)
		require.NoError(t, err)
		assert.Equal(t, -1, idx)
	})

	t.Run("Empty series", func(t *testing.T) {
		idx, err := ValidateSeries("AAPL", nil)
		require.NoError(t, err)
		assert.Equal(t, -1, idx)
	})

	t.Run("Duplicate timestamp", func(t *testing.T) {
		candles := createTestCandles("AAPL", start, 24*time.Hour, []float64{100, 101, 102})
		candles[2].Timestamp = candles[1].Timestamp
		idx, err := ValidateSeries("AAPL", candles)
		require.Error(t, err)
		assert.Equal(t, 2, idx)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("Out of order", func(t *testing.T) {
		candles := createTestCandles("AAPL", start, 24*time.Hour, []float64{100, 101, 102})
		candles[1].Timestamp = start.Add(-time.Hour)
		idx, err := ValidateSeries("AAPL", candles)
		require.Error(t, err)
		assert.Equal(t, 1, idx)
	})

	t.Run("Symbol mismatch", func(t *testing.T) {
		candles := createTestCandles("MSFT", start, 24*time.Hour, []float64{100})
		_, err := ValidateSeries("AAPL", candles)
		assert.Error(t, err)
	})

	t.Run("Missing bars counted", func(t *testing.T) {
		candles := createTestCandles("AAPL", start, 24*time.Hour, []float64{100, 101, 102})
		candles[1].Close = math.NaN()
		_, err := ValidateSeries("AAPL", candles)
		require.NoError(t, err)
		assert.Equal(t, 1, CountMissing(candles))
	})
}
