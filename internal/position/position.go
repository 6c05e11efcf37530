// Package position holds the simulator's ledger types: open positions,
// realized trades and equity points.
package position

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a position: +1 long, -1 short.
type Side int8

const (
	Long  Side = 1
	Short Side = -1
)

func (s Side) String() string {
	switch s {
	case Long:
		return "long"
	case Short:
		return "short"
	}
	return "flat"
}

// Exit reasons recorded on trades.
const (
	ExitStopLoss     = "stop-loss"
	ExitProfitTarget = "profit-target"
	ExitEndOfDay     = "end-of-day"
	ExitSignal       = "signal"
	ExitMaxHold      = "max-hold"
	ExitEndOfData    = "end-of-data"
)

// OpenPosition is a position that has been entered and not yet exited.
type OpenPosition struct {
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	EntryDate   time.Time `json:"entry_date"`
	EntryPrice  float64   `json:"entry_price"`
	Shares      int64     `json:"shares"`
	StopPrice   float64   `json:"stop_price"`
	TargetPrice float64   `json:"target_price"`
	Reason      string    `json:"reason"`
	// Simulated is set when the entry bar was synthetic or predates real data.
	Simulated bool `json:"simulated"`
	DayTrade  bool `json:"day_trade"`
	// BarsHeld counts completed bars since entry, including the entry bar.
	BarsHeld int `json:"bars_held"`
}

// Open builds a position with stop and target placed symmetrically around the
// entry according to side.
func Open(symbol string, side Side, date time.Time, entry float64, shares int64, stopPct, targetPct float64) *OpenPosition {
	sign := float64(side)
	return &OpenPosition{
		Symbol:      symbol,
		Side:        side,
		EntryDate:   date,
		EntryPrice:  entry,
		Shares:      shares,
		StopPrice:   entry * (1 - sign*stopPct/100),
		TargetPrice: entry * (1 + sign*targetPct/100),
	}
}

// GrossPnL is the profit before costs if the position were closed at price.
func (p *OpenPosition) GrossPnL(price float64) float64 {
	return (price - p.EntryPrice) * float64(p.Shares) * float64(p.Side)
}

// MarketValue is the capital tied up in the position valued at price: the
// entry notional plus unrealized profit.
func (p *OpenPosition) MarketValue(price float64) float64 {
	return p.EntryPrice*float64(p.Shares) + p.GrossPnL(price)
}

// StopHit reports whether the bar's range touched the stop.
func (p *OpenPosition) StopHit(high, low float64) bool {
	if p.Side == Long {
		return low <= p.StopPrice
	}
	return high >= p.StopPrice
}

// TargetHit reports whether the bar's range touched the target.
func (p *OpenPosition) TargetHit(high, low float64) bool {
	if p.Side == Long {
		return high >= p.TargetPrice
	}
	return low <= p.TargetPrice
}

// StopFill is the price a stop executes at: the stop itself, or the open
// when the bar gapped through it.
func (p *OpenPosition) StopFill(open float64) float64 {
	if p.Side == Long && open < p.StopPrice {
		return open
	}
	if p.Side == Short && open > p.StopPrice {
		return open
	}
	return p.StopPrice
}

// Close realizes the position. costs are deducted from the gross result.
func (p *OpenPosition) Close(date time.Time, price float64, reason string, costs float64) Trade {
	return Trade{
		Symbol:      p.Symbol,
		Side:        p.Side,
		EntryDate:   p.EntryDate,
		ExitDate:    date,
		EntryPrice:  p.EntryPrice,
		ExitPrice:   price,
		Shares:      p.Shares,
		PnL:         RoundCents(p.GrossPnL(price) - costs),
		Costs:       RoundCents(costs),
		ExitReason:  reason,
		EntryReason: p.Reason,
		Simulated:   p.Simulated,
	}
}

// Trade is a realized round trip.
type Trade struct {
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	EntryDate   time.Time `json:"entry_date"`
	ExitDate    time.Time `json:"exit_date"`
	EntryPrice  float64   `json:"entry_price"`
	ExitPrice   float64   `json:"exit_price"`
	Shares      int64     `json:"shares"`
	PnL         float64   `json:"pnl"`
	Costs       float64   `json:"costs"`
	ExitReason  string    `json:"exit_reason"`
	EntryReason string    `json:"entry_reason"`
	Simulated   bool      `json:"simulated"`
}

// ReturnPct is the trade's net result relative to its entry notional.
func (t Trade) ReturnPct() float64 {
	notional := t.EntryPrice * float64(t.Shares)
	if notional == 0 {
		return 0
	}
	return t.PnL / notional * 100
}

// EquityPoint is the account value at a bar's close.
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
}

// RoundCents rounds a money amount half away from zero to two decimals.
func RoundCents(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
