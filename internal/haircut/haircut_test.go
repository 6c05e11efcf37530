package haircut

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/simple-backtest/internal/candle"
	"github.com/amirphl/simple-backtest/internal/position"
)

func TestApply(t *testing.T) {
	assert.InDelta(t, 8.0, Apply(10, 0.8), 1e-9)
	assert.InDelta(t, -12.0, Apply(-10, 0.8), 1e-9)
	assert.Equal(t, 0.0, Apply(0, 0.8))
	assert.Equal(t, -100.0, Apply(-90, 0.5))
}

func TestFactors(t *testing.T) {
	f := Factors{ExecutionSlippagePct: 12, FrequencyPenaltyPct: 10, CrisisPenaltyPct: 0, SimulatedDataPenaltyPct: 15}
	m := f.Multipliers()
	assert.InDelta(t, 0.88, m[0], 1e-9)
	assert.InDelta(t, 0.90, m[1], 1e-9)
	assert.InDelta(t, 1.00, m[2], 1e-9)
	assert.InDelta(t, 0.85, m[3], 1e-9)
	assert.InDelta(t, 0.88*0.90*0.85, f.Combined(), 1e-9)

	extreme := Factors{ExecutionSlippagePct: 150, FrequencyPenaltyPct: -5}
	for _, v := range extreme.Multipliers() {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestFrequencyPenalty(t *testing.T) {
	cfg := DefaultConfig()
	assert.Zero(t, frequencyPenalty(cfg, 80))
	assert.InDelta(t, 2.5, frequencyPenalty(cfg, 150), 1e-9)
	assert.Equal(t, 10.0, frequencyPenalty(cfg, 1000))
}

// volatileMarch builds calm February bars followed by a March that swings 5%
// every day.
func volatileMarch() []candle.Candle {
	var out []candle.Candle
	day := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	for day.Month() == time.February {
		out = append(out, candle.Candle{Timestamp: day, Open: 100, High: 101, Low: 99, Close: 100, Symbol: "X"})
		day = day.AddDate(0, 0, 1)
	}
	for i := 0; day.Month() == time.March; i++ {
		c := 100.0
		if i%2 == 0 {
			c = 105
		}
		out = append(out, candle.Candle{Timestamp: day, Open: c, High: c + 1, Low: c - 1, Close: c, Symbol: "X"})
		day = day.AddDate(0, 0, 1)
	}
	return out
}

func TestCrisisMonths(t *testing.T) {
	crisis := CrisisMonths(map[string][]candle.Candle{"X": volatileMarch()}, 40)
	assert.True(t, crisis["X"]["2024-03"])
	assert.False(t, crisis["X"]["2024-02"])
	assert.Empty(t, crisis["Y"])
}

func TestEstimate(t *testing.T) {
	cfg := DefaultConfig()
	trades := []position.Trade{
		{Symbol: "X", EntryDate: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), PnL: -100},
		{Symbol: "X", EntryDate: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), PnL: 300, Simulated: true},
	}

	b := Estimate(cfg, Input{
		Trades:         trades,
		Bars:           map[string][]candle.Candle{"X": volatileMarch()},
		InitialCapital: 10_000,
		EndingEquity:   10_200,
	})

	assert.Equal(t, []string{"X 2024-03"}, b.CrisisMonths)
	assert.InDelta(t, 0.5, b.CrisisTradeShare, 1e-9)
	assert.InDelta(t, 12.5, b.Factors.CrisisPenaltyPct, 1e-9)
	assert.InDelta(t, 0.75, b.SimulatedPnLShare, 1e-9)
	assert.InDelta(t, 11.25, b.Factors.SimulatedDataPenaltyPct, 1e-9)
	assert.Zero(t, b.Factors.FrequencyPenaltyPct)

	want := 0.88 * 0.875 * 0.8875
	assert.InDelta(t, want, b.CombinedMultiplier, 1e-9)
	assert.InDelta(t, (1-want)*100, b.CombinedHaircutPct, 1e-9)
	assert.InDelta(t, 2.0, b.RawReturnPct, 1e-9)
	assert.InDelta(t, 2.0*want, b.RealisticReturnPct, 1e-9)
	assert.InDelta(t, want, b.Scale, 1e-9)
	assert.Less(t, b.RealisticReturnPct, b.RawReturnPct)
}

func TestEstimateEmpty(t *testing.T) {
	b := Estimate(DefaultConfig(), Input{InitialCapital: 10_000, EndingEquity: 10_000})
	assert.Zero(t, b.RawReturnPct)
	assert.Zero(t, b.RealisticReturnPct)
	assert.Equal(t, 1.0, b.Scale)
	assert.Zero(t, b.CrisisTradeShare)
	assert.InDelta(t, 0.88, b.CombinedMultiplier, 1e-9)
}

func TestIsSimulated(t *testing.T) {
	cfg := DefaultConfig()
	bar := candle.Candle{Timestamp: time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC)}
	assert.False(t, cfg.IsSimulated(bar))

	cfg.RealDataCutover = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, cfg.IsSimulated(bar))

	bar.Timestamp = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, cfg.IsSimulated(bar))
	bar.Source = candle.SourceSynthetic
	assert.True(t, cfg.IsSimulated(bar))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	bad := DefaultConfig()
	bad.ExecutionSlippagePercent = 120
	assert.ErrorContains(t, bad.Validate(), "execution_slippage_percent")
}
