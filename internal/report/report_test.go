package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/simple-backtest/internal/haircut"
	"github.com/amirphl/simple-backtest/internal/position"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func trade(i int, side position.Side, pnl, costs float64) position.Trade {
	return position.Trade{
		Symbol:     "X",
		Side:       side,
		EntryDate:  day0.AddDate(0, 0, i),
		ExitDate:   day0.AddDate(0, 0, i),
		EntryPrice: 100,
		ExitPrice:  100 + pnl/10,
		Shares:     10,
		PnL:        pnl,
		Costs:      costs,
	}
}

func curve(values ...float64) []position.EquityPoint {
	out := make([]position.EquityPoint, len(values))
	for i, v := range values {
		out[i] = position.EquityPoint{Date: day0.AddDate(0, 0, i), Equity: v}
	}
	return out
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil, nil, 10_000)
	assert.Equal(t, 10_000.0, s.EndingEquity)
	assert.Zero(t, s.TotalTrades)
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.TotalReturnPct)
	assert.Zero(t, s.MaxDrawdownPct)
	assert.Zero(t, s.ProfitFactor)
}

func TestAggregate(t *testing.T) {
	trades := []position.Trade{
		trade(0, position.Long, 50, 1),
		trade(1, position.Long, 30, 1),
		trade(2, position.Short, -20, 1),
		trade(3, position.Long, -10, 1),
		trade(4, position.Short, 40, 1),
	}
	eq := curve(10_050, 10_080, 10_060, 10_050, 10_090)

	s := Aggregate(trades, eq, 10_000)

	assert.Equal(t, 5, s.TotalTrades)
	assert.Equal(t, 3, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.Equal(t, 3, s.Longs)
	assert.Equal(t, 2, s.Shorts)
	assert.InDelta(t, 60.0, s.WinRate, 1e-9)
	assert.InDelta(t, 10_090.0, s.EndingEquity, 1e-9)
	assert.InDelta(t, 90.0, s.NetProfit, 1e-9)
	assert.InDelta(t, 0.9, s.TotalReturnPct, 1e-9)
	// notional is 1000 per trade
	assert.InDelta(t, 4.0, s.AvgWinPct, 1e-9)
	assert.InDelta(t, -1.5, s.AvgLossPct, 1e-9)
	assert.InDelta(t, 120.0/30.0, s.ProfitFactor, 1e-9)
	assert.Equal(t, 2, s.MaxConsecutiveWins)
	assert.Equal(t, 2, s.MaxConsecutiveLosses)
	assert.InDelta(t, 30.0, s.MaxDrawdown, 1e-9)
	assert.InDelta(t, 30.0/10_080*100, s.MaxDrawdownPct, 1e-9)
	assert.InDelta(t, 5.0, s.TotalCosts, 1e-9)
}

func TestDrawdownSeededByInitialCapital(t *testing.T) {
	dd, pct := Drawdown(curve(9_000, 9_500), 10_000)
	assert.InDelta(t, 1_000.0, dd, 1e-9)
	assert.InDelta(t, 10.0, pct, 1e-9)
}

func TestRescale(t *testing.T) {
	trades := []position.Trade{trade(0, position.Long, 100, 0), trade(1, position.Long, -40, 0)}
	eq := curve(10_100, 10_060)

	st, sc := Rescale(trades, eq, 10_000, 0.5, 0.8)
	assert.InDelta(t, 80.0, st[0].PnL, 1e-9, "gains shrink by the multiplier")
	assert.InDelta(t, -48.0, st[1].PnL, 1e-9, "losses deepen by 2 - multiplier")
	assert.Equal(t, 100.0, trades[0].PnL, "input must not be modified")
	assert.InDelta(t, 10_030.0, sc[1].Equity, 1e-9)

	_, deep := Rescale(nil, curve(1_000), 10_000, 2, 0.8)
	assert.Zero(t, deep[0].Equity)
}

// In a losing run the curve scale exceeds 1; winners must still shrink.
func TestRescaleLosingRunNeverImprovesWinners(t *testing.T) {
	trades := []position.Trade{
		trade(0, position.Long, 75, 0),
		trade(1, position.Long, -50, 0),
		trade(2, position.Long, -55, 0),
	}
	eq := curve(10_075, 10_025, 9_970)
	raw := Aggregate(trades, eq, 10_000)

	m := 0.88
	scale := (-0.3 * (2 - m)) / -0.3
	st, sc := Rescale(trades, eq, 10_000, scale, m)
	realistic := Aggregate(st, sc, 10_000)

	require.Greater(t, scale, 1.0)
	assert.LessOrEqual(t, realistic.AvgWinPct, raw.AvgWinPct)
	assert.LessOrEqual(t, realistic.AvgLossPct, raw.AvgLossPct)
	assert.LessOrEqual(t, realistic.TotalReturnPct, raw.TotalReturnPct)
	for i := range trades {
		assert.LessOrEqual(t, st[i].PnL, trades[i].PnL)
	}
}

func TestAggregateBreakEven(t *testing.T) {
	trades := []position.Trade{
		trade(0, position.Long, -10, 0),
		trade(1, position.Long, 0, 0),
		trade(2, position.Long, -20, 0),
		trade(3, position.Long, 30, 0),
	}
	s := Aggregate(trades, nil, 10_000)

	assert.Equal(t, 4, s.TotalTrades)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.Equal(t, 1, s.BreakEven)
	assert.InDelta(t, 25.0, s.WinRate, 1e-9)
	assert.InDelta(t, -1.5, s.AvgLossPct, 1e-9, "break-even stays out of the loss average")
	assert.Equal(t, 1, s.MaxConsecutiveLosses, "break-even ends the losing streak")
}

func TestPrint(t *testing.T) {
	trades := []position.Trade{trade(0, position.Long, 50, 1)}
	raw := Aggregate(trades, curve(10_050), 10_000)
	realistic := Aggregate(trades, curve(10_044), 10_000)
	b := haircut.Estimate(haircut.DefaultConfig(), haircut.Input{
		Trades:         trades,
		InitialCapital: 10_000,
		EndingEquity:   10_050,
	})

	var buf bytes.Buffer
	Print(&buf, raw, realistic, b)
	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, "Ending equity")
	assert.Contains(t, out, "10050.00")
	assert.Contains(t, out, "Execution slippage")
	assert.Contains(t, out, "COMBINED")

	buf.Reset()
	PrintTrades(&buf, append(trades, trade(1, position.Short, -5, 1)), 1)
	assert.Contains(t, buf.String(), "1 earlier trades omitted")
	assert.Contains(t, buf.String(), "short")
}
