package strategy

import (
	"math"

	"github.com/amirphl/simple-backtest/internal/candle"
	"github.com/amirphl/simple-backtest/internal/indicator"
	"github.com/amirphl/simple-backtest/internal/position"
)

// macdVoter votes on a MACD/signal-line crossover on completed bars. It only
// serves the hybrid vote.
type macdVoter struct {
	fast, slow, signal int
}

func newMACDVoter() *macdVoter {
	return &macdVoter{fast: 12, slow: 26, signal: 9}
}

func (v *macdVoter) warmup() int {
	return v.slow + 2*v.signal
}

func (v *macdVoter) vote(history []candle.Candle) (position.Side, float64, bool) {
	if len(history) < v.warmup() {
		return 0, 0, false
	}
	_, _, hist := indicator.MACD(indicator.Closes(tail(history, v.warmup()*5)), v.fast, v.slow, v.signal)
	prev, cur := hist[len(hist)-2], hist[len(hist)-1]
	if math.IsNaN(prev) || math.IsNaN(cur) {
		return 0, 0, false
	}
	switch {
	case prev <= 0 && cur > 0:
		return position.Long, 0.6, true
	case prev >= 0 && cur < 0:
		return position.Short, 0.6, true
	}
	return 0, 0, false
}

// bollingerVoter votes for mean reversion when the last close sits outside
// the bands.
type bollingerVoter struct {
	period    int
	deviation float64
}

func newBollingerVoter() *bollingerVoter {
	return &bollingerVoter{period: 20, deviation: 2}
}

func (v *bollingerVoter) vote(history []candle.Candle) (position.Side, float64, bool) {
	if len(history) < v.period {
		return 0, 0, false
	}
	closes := indicator.Closes(tail(history, v.period))
	upper, mid, lower := indicator.BollingerBands(closes, v.period, v.deviation)
	u, m, l := indicator.Last(upper), indicator.Last(mid), indicator.Last(lower)
	c := closes[len(closes)-1]
	if math.IsNaN(u) || u == l {
		return 0, 0, false
	}
	half := u - m
	switch {
	case c < l:
		return position.Long, clamp01(0.5 + (l-c)/half), true
	case c > u:
		return position.Short, clamp01(0.5 + (c-u)/half), true
	}
	return 0, 0, false
}
