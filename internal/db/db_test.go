package db

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/simple-backtest/internal/candle"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func bars(symbol string, n int) []candle.Candle {
	out := make([]candle.Candle, n)
	for i := range out {
		p := 100 + float64(i)
		out[i] = candle.Candle{
			Timestamp: day0.AddDate(0, 0, i),
			Open:      p, High: p + 1, Low: p - 1, Close: p + 0.5,
			Volume: 1000, Symbol: symbol, Timeframe: "1d",
		}
	}
	return out
}

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	series := bars("SPY", 5)
	// saved out of order, with a later replacement of day 2
	require.NoError(t, m.SaveCandles(ctx, []candle.Candle{series[3], series[0], series[4], series[1], series[2]}))
	replaced := series[2]
	replaced.Close = 101.9
	require.NoError(t, m.SaveCandles(ctx, []candle.Candle{replaced}))

	got, err := m.GetCandles(ctx, "spy", "1d", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Timestamp.After(got[i-1].Timestamp))
	}
	assert.Equal(t, 101.9, got[2].Close)

	got, err = m.GetCandles(ctx, "SPY", "1d", day0.AddDate(0, 0, 1), day0.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Len(t, got, 2, "end is exclusive")
	assert.Equal(t, day0.AddDate(0, 0, 1), got[0].Timestamp)

	got, err = m.GetCandles(ctx, "SPY", "1h", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, got)

	bad := series[0]
	bad.High = bad.Low - 1
	assert.Error(t, m.SaveCandles(ctx, []candle.Candle{bad}))
}

func TestMemoryStorageKeepsMissingBars(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	gap := candle.Candle{Timestamp: day0, Open: math.NaN(), High: math.NaN(), Low: math.NaN(), Close: math.NaN(), Symbol: "QQQ", Timeframe: "1d"}
	require.NoError(t, m.SaveCandles(ctx, []candle.Candle{gap}))

	got, err := m.GetCandles(ctx, "QQQ", "1d", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsMissing())
}

func TestLoadBars(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.SaveCandles(ctx, bars("SPY", 4)))
	require.NoError(t, m.SaveCandles(ctx, bars("QQQ", 3)))

	got, err := LoadBars(ctx, m, []string{"spy", " QQQ", "SPY", "IWM"}, "1d", day0, time.Time{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Len(t, got["SPY"], 4)
	assert.Len(t, got["QQQ"], 3)
	assert.Empty(t, got["IWM"])
	for _, c := range got["QQQ"] {
		assert.Equal(t, "QQQ", c.Symbol)
		assert.Equal(t, "1d", c.Timeframe)
	}
}

func TestLoadBarsPropagatesErrors(t *testing.T) {
	s := NewCSV(t.TempDir())
	_, err := LoadBars(context.Background(), s, []string{"SPY"}, "1d", time.Time{}, time.Time{}, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorContains(t, err, "load SPY 1d")
}
