// Package report reduces a trade log and equity curve into summary statistics
// and renders them as tables.
package report

import (
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/amirphl/simple-backtest/internal/position"
)

// Stats is one view (raw or realistic) of a run.
type Stats struct {
	InitialCapital float64 `json:"initial_capital"`
	EndingEquity   float64 `json:"ending_equity"`
	NetProfit      float64 `json:"net_profit"`
	TotalReturnPct float64 `json:"total_return_pct"`

	TotalTrades int `json:"total_trades"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
	// BreakEven trades closed at exactly zero P&L. They count toward
	// TotalTrades and WinRate's denominator but not toward either average,
	// and they end both streaks.
	BreakEven int     `json:"break_even"`
	Longs     int     `json:"longs"`
	Shorts    int     `json:"shorts"`
	WinRate   float64 `json:"win_rate"`
	// AvgWinPct and AvgLossPct average per-trade returns on entry notional.
	// AvgLossPct is negative or zero.
	AvgWinPct    float64 `json:"avg_win_pct"`
	AvgLossPct   float64 `json:"avg_loss_pct"`
	ProfitFactor float64 `json:"profit_factor"`

	MaxConsecutiveWins   int `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int `json:"max_consecutive_losses"`

	MaxDrawdown    float64 `json:"max_drawdown"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	TotalCosts     float64 `json:"total_costs"`
}

// Aggregate computes Stats. Trades are expected in exit order. An empty log
// yields a zero-activity result whose ending equity is the last curve point,
// or initialCapital when the curve is empty too.
func Aggregate(trades []position.Trade, curve []position.EquityPoint, initialCapital float64) Stats {
	s := Stats{
		InitialCapital: initialCapital,
		TotalTrades:    len(trades),
	}

	s.EndingEquity = initialCapital + lo.SumBy(trades, func(t position.Trade) float64 { return t.PnL })
	if len(curve) > 0 {
		s.EndingEquity = curve[len(curve)-1].Equity
	}
	s.NetProfit = position.RoundCents(s.EndingEquity - initialCapital)
	if initialCapital > 0 {
		s.TotalReturnPct = s.NetProfit / initialCapital * 100
	}

	wins := lo.Filter(trades, func(t position.Trade, _ int) bool { return t.PnL > 0 })
	losses := lo.Filter(trades, func(t position.Trade, _ int) bool { return t.PnL < 0 })
	s.Wins, s.Losses = len(wins), len(losses)
	s.BreakEven = s.TotalTrades - s.Wins - s.Losses
	s.Longs = lo.CountBy(trades, func(t position.Trade) bool { return t.Side == position.Long })
	s.Shorts = s.TotalTrades - s.Longs
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.TotalTrades) * 100
	}
	s.AvgWinPct = meanReturn(wins)
	s.AvgLossPct = meanReturn(losses)

	grossWin := lo.SumBy(wins, func(t position.Trade) float64 { return t.PnL })
	grossLoss := math.Abs(lo.SumBy(losses, func(t position.Trade) float64 { return t.PnL }))
	if grossLoss > 0 {
		s.ProfitFactor = grossWin / grossLoss
	}

	s.MaxConsecutiveWins, s.MaxConsecutiveLosses = streaks(trades)
	s.MaxDrawdown, s.MaxDrawdownPct = Drawdown(curve, initialCapital)
	s.TotalCosts = position.RoundCents(lo.SumBy(trades, func(t position.Trade) float64 { return t.Costs }))
	return s
}

// Drawdown returns the largest peak-to-trough decline of the curve, in money
// and as a percentage of the peak. initialCapital seeds the peak.
func Drawdown(curve []position.EquityPoint, initialCapital float64) (float64, float64) {
	peak := initialCapital
	var maxDD, maxPct float64
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		dd := peak - p.Equity
		if dd > maxDD {
			maxDD = dd
		}
		if peak > 0 && dd/peak*100 > maxPct {
			maxPct = dd / peak * 100
		}
	}
	return position.RoundCents(maxDD), maxPct
}

// Rescale maps a raw trade log and curve onto the realistic view. Winning
// trades shrink by multiplier and the rest deepen by (2 - multiplier), so no
// trade improves. The curve's excursion from initialCapital is multiplied by
// scale; equity never drops below zero.
func Rescale(trades []position.Trade, curve []position.EquityPoint, initialCapital, scale, multiplier float64) ([]position.Trade, []position.EquityPoint) {
	scaledTrades := lo.Map(trades, func(t position.Trade, _ int) position.Trade {
		if t.PnL > 0 {
			t.PnL = position.RoundCents(t.PnL * multiplier)
		} else {
			t.PnL = position.RoundCents(t.PnL * (2 - multiplier))
		}
		return t
	})
	scaledCurve := lo.Map(curve, func(p position.EquityPoint, _ int) position.EquityPoint {
		p.Equity = max(0, initialCapital+(p.Equity-initialCapital)*scale)
		return p
	})
	return scaledTrades, scaledCurve
}

func meanReturn(trades []position.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	return stat.Mean(lo.Map(trades, func(t position.Trade, _ int) float64 { return t.ReturnPct() }), nil)
}

func streaks(trades []position.Trade) (int, int) {
	var maxWins, maxLosses, wins, losses int
	for _, t := range trades {
		switch {
		case t.PnL > 0:
			wins++
			losses = 0
		case t.PnL < 0:
			losses++
			wins = 0
		default:
			wins, losses = 0, 0
		}
		maxWins = max(maxWins, wins)
		maxLosses = max(maxLosses, losses)
	}
	return maxWins, maxLosses
}
