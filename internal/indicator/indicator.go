// Package indicator wraps go-talib with warmup handling: every output has the
// same length as its input and positions without enough history are NaN.
package indicator

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/amirphl/simple-backtest/internal/candle"
)

// MaType selects the moving average used by trend filters and bands.
type MaType = talib.MaType

const (
	TypeSMA = talib.SMA
	TypeEMA = talib.EMA
)

// ParseMaType maps a config string to a moving average type. Unknown names
// fall back to SMA.
func ParseMaType(s string) MaType {
	if s == "ema" || s == "EMA" {
		return TypeEMA
	}
	return TypeSMA
}

// SMA calculates the simple moving average.
func SMA(input []float64, period int) []float64 {
	if period <= 0 || len(input) < period {
		return nanSlice(len(input))
	}
	return warmup(talib.Sma(input, period), period-1)
}

// EMA calculates the exponential moving average.
func EMA(input []float64, period int) []float64 {
	if period <= 0 || len(input) < period {
		return nanSlice(len(input))
	}
	return warmup(talib.Ema(input, period), period-1)
}

// MA dispatches to SMA or EMA.
func MA(input []float64, period int, maType MaType) []float64 {
	if maType == TypeEMA {
		return EMA(input, period)
	}
	return SMA(input, period)
}

// MACD returns the macd line, its signal line and the histogram. The signal
// line is seeded from the macd line, so values are NaN until both are settled.
func MACD(input []float64, fast, slow, signal int) ([]float64, []float64, []float64) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		n := len(input)
		return nanSlice(n), nanSlice(n), nanSlice(n)
	}
	if slow < fast {
		fast, slow = slow, fast
	}
	lookback := (slow - 1) + 2*(signal-1)
	if len(input) <= lookback {
		n := len(input)
		return nanSlice(n), nanSlice(n), nanSlice(n)
	}
	m, s, h := talib.Macd(input, fast, slow, signal)
	return warmup(m, lookback), warmup(s, lookback), warmup(h, lookback)
}

// BollingerBands returns upper, middle and lower bands around an SMA.
func BollingerBands(input []float64, period int, deviation float64) ([]float64, []float64, []float64) {
	if period < 2 || len(input) < period {
		n := len(input)
		return nanSlice(n), nanSlice(n), nanSlice(n)
	}
	u, m, l := talib.BBands(input, period, deviation, deviation, talib.SMA)
	return warmup(u, period-1), warmup(m, period-1), warmup(l, period-1)
}

// ADX calculates the average directional index.
func ADX(high, low, closes []float64, period int) []float64 {
	lookback := 2*period - 1
	if period <= 1 || len(closes) <= lookback || len(high) != len(closes) || len(low) != len(closes) {
		return nanSlice(len(closes))
	}
	return warmup(talib.Adx(high, low, closes, period), lookback)
}

// Last returns the final value of a series, NaN when empty.
func Last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

// Closes extracts close prices.
func Closes(candles []candle.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}

func Highs(candles []candle.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].High
	}
	return out
}

func Lows(candles []candle.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Low
	}
	return out
}

func warmup(values []float64, lookback int) []float64 {
	for i := 0; i < lookback && i < len(values); i++ {
		values[i] = math.NaN()
	}
	return values
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
