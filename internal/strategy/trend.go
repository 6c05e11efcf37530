package strategy

import (
	"fmt"
	"math"

	"github.com/amirphl/simple-backtest/internal/candle"
	"github.com/amirphl/simple-backtest/internal/indicator"
	"github.com/amirphl/simple-backtest/internal/position"
)

// trendFiltered drops entries that fight the prevailing trend or arrive in a
// trendless market.
type trendFiltered struct {
	Generator
	filter TrendFilter
	maType indicator.MaType
}

// WithTrendFilter wraps g so that entries need ADX >= MinADX (when set) and
// the open on the signal's side of the moving average (when MAPeriod is set).
func WithTrendFilter(g Generator, f TrendFilter) Generator {
	return &trendFiltered{Generator: g, filter: f, maType: indicator.ParseMaType(f.MAType)}
}

func (t *trendFiltered) WarmupPeriod() int {
	w := t.Generator.WarmupPeriod()
	if t.filter.MinADX > 0 {
		w = max(w, 2*t.filter.ADXPeriod)
	}
	return max(w, t.filter.MAPeriod)
}

func (t *trendFiltered) Evaluate(history []candle.Candle, open float64) (Signal, bool) {
	sig, ok := t.Generator.Evaluate(history, open)
	if !ok {
		return sig, false
	}

	if t.filter.MinADX > 0 {
		window := tail(history, t.filter.ADXPeriod*10)
		adx := indicator.Last(indicator.ADX(indicator.Highs(window), indicator.Lows(window), indicator.Closes(window), t.filter.ADXPeriod))
		if math.IsNaN(adx) || adx < t.filter.MinADX {
			return Signal{}, false
		}
		sig.Reason += fmt.Sprintf(", adx %.1f", adx)
	}

	if t.filter.MAPeriod > 0 {
		window := tail(history, t.filter.MAPeriod*5)
		ma := indicator.Last(indicator.MA(indicator.Closes(window), t.filter.MAPeriod, t.maType))
		if math.IsNaN(ma) {
			return Signal{}, false
		}
		if sig.Side == position.Long && open <= ma || sig.Side == position.Short && open >= ma {
			return Signal{}, false
		}
	}
	return sig, true
}
