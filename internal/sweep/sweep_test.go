package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/simple-backtest/internal/backtest"
	"github.com/amirphl/simple-backtest/internal/candle"
	"github.com/amirphl/simple-backtest/internal/strategy"
)

func series(n int) []candle.Candle {
	out := make([]candle.Candle, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := range out {
		o := price
		if i%2 == 1 {
			o = price * 1.02
		}
		c := o * 1.005
		out[i] = candle.Candle{Timestamp: start.AddDate(0, 0, i), Open: o, High: o * 1.01, Low: o * 0.995, Close: c, Symbol: "X"}
		price = c
	}
	return out
}

func variants() []Variant {
	orb := strategy.Default(strategy.KindORB)
	tight := orb
	tight.ProfitTargetPercent = 0.5
	tight.StopLossPercent = 0.2
	return []Variant{
		{Name: "orb", Strategy: orb},
		{Name: "orb-tight", Strategy: tight},
		{Name: "rsi", Strategy: strategy.Default(strategy.KindRSI)},
	}
}

func TestRun(t *testing.T) {
	base := backtest.DefaultInput(map[string][]candle.Candle{"X": series(40)}, strategy.KindORB)

	var calls []int
	results, err := Run(context.Background(), base, variants(),
		WithWorkers(2),
		WithProgress(func(done, total int) {
			assert.Equal(t, 3, total)
			calls = append(calls, done)
		}),
	)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []int{1, 2, 3}, calls)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t,
			results[i-1].Report.Realistic.TotalReturnPct,
			results[i].Report.Realistic.TotalReturnPct)
	}

	names := map[string]bool{}
	for _, r := range results {
		names[r.Variant.Name] = true
		assert.NotEmpty(t, r.Report.RunID)
	}
	assert.Len(t, names, 3)
	assert.NotEqual(t, results[0].Report.RunID, results[1].Report.RunID, "run ids follow the strategy")
}

func TestRunRejects(t *testing.T) {
	base := backtest.DefaultInput(nil, strategy.KindORB)

	_, err := Run(context.Background(), base, nil)
	assert.Error(t, err)

	dup := []Variant{{Name: "a", Strategy: strategy.Default(strategy.KindORB)}, {Name: "a", Strategy: strategy.Default(strategy.KindRSI)}}
	_, err = Run(context.Background(), base, dup)
	assert.ErrorContains(t, err, "duplicate")

	bad := strategy.Default(strategy.KindORB)
	bad.StopLossPercent = 5
	_, err = Run(context.Background(), base, []Variant{{Name: "bad", Strategy: bad}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, backtest.ErrConfiguration))
	assert.ErrorContains(t, err, `variant "bad"`)
}
