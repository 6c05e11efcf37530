package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/amirphl/simple-backtest/internal/candle"
	"github.com/amirphl/simple-backtest/internal/cost"
	"github.com/amirphl/simple-backtest/internal/haircut"
	"github.com/amirphl/simple-backtest/internal/position"
	"github.com/amirphl/simple-backtest/internal/risk"
	"github.com/amirphl/simple-backtest/internal/strategy"
	"github.com/amirphl/simple-backtest/internal/tfutils"
)

// Sleeve is one symbol's share of a run. Risk thresholds are expected to be
// scaled to Capital already.
type Sleeve struct {
	Symbol   string
	Bars     []candle.Candle
	Capital  float64
	Strategy strategy.Config
	Risk     risk.Config
	Cost     cost.Config
	Haircut  haircut.Config
	Logger   zerolog.Logger
}

// SleeveResult is what one symbol produced.
type SleeveResult struct {
	Trades  []position.Trade
	Equity  []position.EquityPoint
	Summary SymbolSummary
}

// SymbolSummary carries per-symbol counters for the report.
type SymbolSummary struct {
	Symbol          string         `json:"symbol"`
	Bars            int            `json:"bars"`
	DataGaps        int            `json:"data_gaps"`
	Trades          int            `json:"trades"`
	Wins            int            `json:"wins"`
	NetPnL          float64        `json:"net_pnl"`
	Denials         map[string]int `json:"denials"`
	EndOfDataCloses int            `json:"end_of_data_closes"`
	InitialCapital  float64        `json:"initial_capital"`
	EndingEquity    float64        `json:"ending_equity"`
}

// PortfolioState is the sleeve's mutable state. It is owned by one simulator
// and only changes between bar steps.
type PortfolioState struct {
	Cash            float64
	Open            *position.OpenPosition
	YearStartEquity float64
	YearStartDate   time.Time
	YearHalted      bool
	GoalReached     bool
	Stats           SymbolSummary
}

// Equity values the sleeve at price.
func (s *PortfolioState) Equity(price float64) float64 {
	if s.Open == nil {
		return s.Cash
	}
	return s.Cash + s.Open.MarketValue(price)
}

type simulator struct {
	sleeve Sleeve
	gen    strategy.Generator
	costs  *cost.Model
	log    zerolog.Logger

	state  PortfolioState
	valid  []candle.Candle
	trades []position.Trade
	equity []position.EquityPoint
}

// Simulate walks one symbol's bars in order. Entries are decided from
// completed bars plus the current open; stops, targets and forced exits are
// checked against the full bar afterwards.
func Simulate(ctx context.Context, sl Sleeve) (SleeveResult, error) {
	gen, err := strategy.New(sl.Strategy)
	if err != nil {
		return SleeveResult{}, &ConfigError{Section: "strategy", Err: err}
	}

	s := &simulator{
		sleeve: sl,
		gen:    gen,
		costs:  cost.NewModel(sl.Cost),
		log:    sl.Logger.With().Str("symbol", sl.Symbol).Logger(),
		state: PortfolioState{
			Cash:            sl.Capital,
			YearStartEquity: sl.Capital,
			Stats: SymbolSummary{
				Symbol:         sl.Symbol,
				Bars:           len(sl.Bars),
				Denials:        make(map[string]int),
				InitialCapital: sl.Capital,
			},
		},
		valid:  make([]candle.Candle, 0, len(sl.Bars)),
		equity: make([]position.EquityPoint, 0, len(sl.Bars)),
	}

	for i := range sl.Bars {
		if err := ctx.Err(); err != nil {
			return SleeveResult{}, err
		}
		s.step(i)
	}
	s.closeAtEndOfData()

	st := &s.state.Stats
	st.Trades = len(s.trades)
	st.EndingEquity = s.state.Cash
	st.NetPnL = position.RoundCents(s.state.Cash - sl.Capital)
	for _, t := range s.trades {
		if t.PnL > 0 {
			st.Wins++
		}
	}

	return SleeveResult{Trades: s.trades, Equity: s.equity, Summary: *st}, nil
}

func (s *simulator) step(i int) {
	bar := s.sleeve.Bars[i]
	if bar.IsMissing() {
		s.state.Stats.DataGaps++
		s.equity = append(s.equity, position.EquityPoint{Date: bar.Timestamp, Equity: s.lastEquity()})
		return
	}

	s.rollYear(bar)

	if s.state.Open == nil && len(s.valid) >= s.gen.WarmupPeriod() {
		n := len(s.valid)
		s.tryEnter(s.valid[:n:n], bar)
	}

	// The bar joins history before exits so ShouldExit sees bar t.
	s.valid = append(s.valid, bar)

	if s.state.Open != nil {
		s.checkExit(bar, s.nextValid(i))
	}

	eq := s.state.Equity(bar.Close)
	s.equity = append(s.equity, position.EquityPoint{Date: bar.Timestamp, Equity: eq})
	s.latch(eq, bar)
}

// nextValid returns the timestamp of the first quoted bar after i, or nil
// when only missing bars follow. Session ends are judged against it so a
// missing last bar does not carry a day trade overnight.
func (s *simulator) nextValid(i int) *time.Time {
	for j := i + 1; j < len(s.sleeve.Bars); j++ {
		if !s.sleeve.Bars[j].IsMissing() {
			return &s.sleeve.Bars[j].Timestamp
		}
	}
	return nil
}

// rollYear resets the drawdown baseline on the first valid bar of a year.
func (s *simulator) rollYear(bar candle.Candle) {
	if !s.state.YearStartDate.IsZero() && bar.Timestamp.Year() == s.state.YearStartDate.Year() {
		return
	}
	if s.state.YearHalted {
		s.log.Info().Int("year", bar.Timestamp.Year()).Msg("Drawdown halt lifted")
	}
	s.state.YearStartDate = bar.Timestamp
	s.state.YearStartEquity = s.lastEquity()
	s.state.YearHalted = false
}

// latch records the halt and goal the moment equity crosses them.
func (s *simulator) latch(equity float64, bar candle.Candle) {
	cfg := s.sleeve.Risk
	if !s.state.YearHalted && equity < cfg.HaltLevel(s.state.YearStartEquity) {
		s.state.YearHalted = true
		s.log.Warn().
			Time("time", bar.Timestamp).
			Float64("equity", equity).
			Float64("year_start_equity", s.state.YearStartEquity).
			Msg("Yearly drawdown halt")
	}
	if !s.state.GoalReached && cfg.GoalCapital > 0 && equity >= cfg.GoalCapital {
		s.state.GoalReached = true
		s.log.Info().Time("time", bar.Timestamp).Float64("equity", equity).Msg("Goal capital reached")
	}
}

func (s *simulator) tryEnter(history []candle.Candle, bar candle.Candle) {
	sig, ok := s.gen.Evaluate(history, bar.Open)
	if !ok {
		return
	}
	sig.Time = bar.Timestamp

	cfg := s.sleeve.Strategy
	equity := s.state.Cash
	d := risk.Evaluate(s.sleeve.Risk, risk.Snapshot{
		Equity:          equity,
		YearStartEquity: s.state.YearStartEquity,
		YearHalted:      s.state.YearHalted,
		GoalReached:     s.state.GoalReached,
		DayTrade:        cfg.DayTrade(),
	})
	s.state.YearHalted, s.state.GoalReached = d.YearHalted, d.GoalReached
	if !d.Allowed {
		s.deny(sig, d.Reason)
		return
	}

	shares := risk.PositionSize(s.sleeve.Risk, equity, bar.Open, cfg.StopLossPercent)
	if shares <= 0 {
		s.deny(sig, risk.DenyZeroSize)
		return
	}

	p := position.Open(s.sleeve.Symbol, sig.Side, bar.Timestamp, bar.Open, shares,
		cfg.StopLossPercent, cfg.ProfitTargetPercent)
	p.Reason = sig.StrategyName + ": " + sig.Reason
	p.Simulated = s.sleeve.Haircut.IsSimulated(bar)
	p.DayTrade = cfg.DayTrade()

	s.state.Cash -= p.EntryPrice * float64(p.Shares)
	s.state.Open = p

	s.log.Debug().
		Time("time", bar.Timestamp).
		Str("side", p.Side.String()).
		Float64("price", p.EntryPrice).
		Int64("shares", p.Shares).
		Float64("confidence", sig.Confidence).
		Str("reason", p.Reason).
		Msg("Entry")
}

func (s *simulator) deny(sig strategy.Signal, reason string) {
	s.state.Stats.Denials[reason]++
	s.log.Debug().
		Time("time", sig.Time).
		Str("side", sig.Side.String()).
		Str("reason", reason).
		Msg("Entry denied")
}

// checkExit applies, in order: stop, target, then forced exits at the close.
// A bar touching both stop and target is a stop.
func (s *simulator) checkExit(bar candle.Candle, next *time.Time) {
	p := s.state.Open
	p.BarsHeld++

	var (
		price  float64
		reason string
	)
	switch {
	case p.StopHit(bar.High, bar.Low):
		price, reason = p.StopFill(bar.Open), position.ExitStopLoss
	case p.TargetHit(bar.High, bar.Low):
		price, reason = p.TargetPrice, position.ExitProfitTarget
	default:
		var ok bool
		if reason, ok = s.forcedExit(bar, next); !ok {
			return
		}
		price = bar.Close
	}

	// Baseline is everything before the exit bar.
	n := len(s.valid) - 1
	s.close(bar, price, reason, s.valid[:n:n])
}

func (s *simulator) forcedExit(bar candle.Candle, next *time.Time) (string, bool) {
	p := s.state.Open
	if p.DayTrade && tfutils.IsSessionClose(bar.Timestamp, next) {
		return position.ExitEndOfDay, true
	}
	if !p.DayTrade {
		if r, ok := s.gen.ShouldExit(s.valid, p.Side); ok {
			return fmt.Sprintf("%s: %s", position.ExitSignal, r), true
		}
	}
	if limit := s.sleeve.Strategy.MaxHoldBars; limit > 0 && p.BarsHeld >= limit {
		return position.ExitMaxHold, true
	}
	return "", false
}

func (s *simulator) close(bar candle.Candle, price float64, reason string, baseline []candle.Candle) {
	p := s.state.Open
	c := s.costs.Cost(baseline, bar, p.EntryPrice, price, p.Shares)
	t := p.Close(bar.Timestamp, price, reason, c)

	s.state.Cash += p.EntryPrice*float64(p.Shares) + t.PnL
	s.state.Open = nil
	s.trades = append(s.trades, t)

	s.log.Debug().
		Time("time", bar.Timestamp).
		Str("side", t.Side.String()).
		Float64("price", price).
		Float64("pnl", t.PnL).
		Float64("costs", t.Costs).
		Str("reason", reason).
		Msg("Exit")
}

// closeAtEndOfData realizes a still-open position at the last valid close.
func (s *simulator) closeAtEndOfData() {
	if s.state.Open == nil {
		return
	}
	n := len(s.valid) - 1
	last := s.valid[n]
	s.close(last, last.Close, position.ExitEndOfData, s.valid[:n:n])
	s.state.Stats.EndOfDataCloses++

	// The final point now reflects the realized costs.
	s.equity[len(s.equity)-1].Equity = s.state.Cash
}

func (s *simulator) lastEquity() float64 {
	if len(s.equity) == 0 {
		return s.sleeve.Capital
	}
	return s.equity[len(s.equity)-1].Equity
}
