package backtest

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/amirphl/simple-backtest/internal/position"
)

// runSleeves splits capital evenly across symbols and simulates them
// concurrently. Results come back in symbol order.
func runSleeves(ctx context.Context, in Input, log zerolog.Logger) ([]SleeveResult, error) {
	syms := symbols(in.Bars)
	if len(syms) == 0 {
		return nil, nil
	}

	share := 1 / float64(len(syms))
	limit := in.Run.Parallelism
	if limit == 0 {
		limit = min(len(syms), maxDefaultParallelism)
	}

	results := make([]SleeveResult, len(syms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, symbol := range syms {
		i, symbol := i, symbol // per-iteration copies (go1.21 loop semantics)
		g.Go(func() error {
			res, err := Simulate(gctx, Sleeve{
				Symbol:   symbol,
				Bars:     in.Bars[symbol],
				Capital:  in.Run.InitialCapital * share,
				Strategy: in.Strategy,
				Risk:     in.Risk.Scaled(share),
				Cost:     in.Cost,
				Haircut:  in.Haircut,
				Logger:   log,
			})
			if err != nil {
				return err
			}
			log.Debug().
				Str("symbol", symbol).
				Int("trades", len(res.Trades)).
				Float64("ending_equity", res.Summary.EndingEquity).
				Msg("Symbol finished")
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// mergeTrades orders all trades by exit, then entry, then symbol.
func mergeTrades(sleeves []SleeveResult) []position.Trade {
	trades := lo.FlatMap(sleeves, func(s SleeveResult, _ int) []position.Trade { return s.Trades })
	sort.SliceStable(trades, func(i, j int) bool {
		a, b := trades[i], trades[j]
		if !a.ExitDate.Equal(b.ExitDate) {
			return a.ExitDate.Before(b.ExitDate)
		}
		if !a.EntryDate.Equal(b.EntryDate) {
			return a.EntryDate.Before(b.EntryDate)
		}
		return a.Symbol < b.Symbol
	})
	return trades
}

// mergeEquity sums every sleeve's latest equity at each distinct timestamp.
// A sleeve counts at its starting capital until its first point.
func mergeEquity(sleeves []SleeveResult) []position.EquityPoint {
	stamps := lo.UniqBy(
		lo.FlatMap(sleeves, func(s SleeveResult, _ int) []time.Time {
			return lo.Map(s.Equity, func(p position.EquityPoint, _ int) time.Time { return p.Date })
		}),
		func(t time.Time) int64 { return t.UnixNano() },
	)
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })

	latest := lo.Map(sleeves, func(s SleeveResult, _ int) float64 { return s.Summary.InitialCapital })
	cursor := make([]int, len(sleeves))
	out := make([]position.EquityPoint, 0, len(stamps))
	for _, ts := range stamps {
		total := 0.0
		for i, s := range sleeves {
			for cursor[i] < len(s.Equity) && !s.Equity[cursor[i]].Date.After(ts) {
				latest[i] = s.Equity[cursor[i]].Equity
				cursor[i]++
			}
			total += latest[i]
		}
		out = append(out, position.EquityPoint{Date: ts, Equity: total})
	}
	return out
}

func collectWarnings(sleeves []SleeveResult) Warnings {
	w := Warnings{
		DataGaps: make(map[string]int),
		Denials:  make(map[string]int),
	}
	for _, s := range sleeves {
		sum := s.Summary
		if sum.DataGaps > 0 {
			w.DataGaps[sum.Symbol] = sum.DataGaps
		}
		w.TotalDataGaps += sum.DataGaps
		for reason, n := range sum.Denials {
			w.Denials[reason] += n
		}
		w.EndOfDataCloses += sum.EndOfDataCloses
	}
	return w
}
