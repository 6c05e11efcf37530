package position

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOpenLong(t *testing.T) {
	now := time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)
	p := Open("AAPL", Long, now, 100, 10, 1, 2)

	assert.InDelta(t, 99.0, p.StopPrice, 1e-9)
	assert.InDelta(t, 102.0, p.TargetPrice, 1e-9)
	assert.InDelta(t, 15.0, p.GrossPnL(101.5), 1e-9)
	assert.InDelta(t, 1015.0, p.MarketValue(101.5), 1e-9)

	assert.True(t, p.StopHit(101, 98.9))
	assert.False(t, p.StopHit(101, 99.5))
	assert.True(t, p.TargetHit(102.5, 100))

	assert.InDelta(t, 99.0, p.StopFill(100), 1e-9)
	assert.Equal(t, 97.0, p.StopFill(97), "gap below the stop fills at the open")
}

func TestOpenShort(t *testing.T) {
	now := time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)
	p := Open("AAPL", Short, now, 100, 10, 1, 2)

	assert.InDelta(t, 101.0, p.StopPrice, 1e-9)
	assert.InDelta(t, 98.0, p.TargetPrice, 1e-9)
	assert.InDelta(t, 20.0, p.GrossPnL(98), 1e-9)
	assert.True(t, p.StopHit(101.2, 99))
	assert.True(t, p.TargetHit(100, 97.5))
	assert.Equal(t, 103.0, p.StopFill(103))
}

func TestClose(t *testing.T) {
	entry := time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)
	exit := entry.Add(6 * time.Hour)
	p := Open("AAPL", Long, entry, 101, 100, 1, 2)
	p.Reason = "orb"

	tr := p.Close(exit, 102.5, ExitEndOfDay, 0.40666)

	assert.Equal(t, "AAPL", tr.Symbol)
	assert.Equal(t, ExitEndOfDay, tr.ExitReason)
	assert.Equal(t, "orb", tr.EntryReason)
	assert.Equal(t, 0.41, tr.Costs)
	assert.Equal(t, 149.59, tr.PnL)
	assert.InDelta(t, 149.59/10100*100, tr.ReturnPct(), 1e-9)
}

func TestRoundCents(t *testing.T) {
	assert.Equal(t, 1.24, RoundCents(1.235))
	assert.Equal(t, -1.24, RoundCents(-1.235))
	assert.Equal(t, 0.0, RoundCents(0.004))
}

func TestSideString(t *testing.T) {
	assert.Equal(t, "long", Long.String())
	assert.Equal(t, "short", Short.String())
	assert.Equal(t, "flat", Side(0).String())
}
