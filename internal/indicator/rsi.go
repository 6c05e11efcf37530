package indicator

import "github.com/markcheno/go-talib"

// CalculateRSI computes Wilder's RSI. The first period values are NaN; input
// no longer than period yields an all-NaN series.
func CalculateRSI(prices []float64, period int) []float64 {
	if period < 2 || len(prices) <= period {
		return nanSlice(len(prices))
	}
	return warmup(talib.Rsi(prices, period), period)
}
