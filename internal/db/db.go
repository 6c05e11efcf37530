// Package db reads bar series for backtests from Postgres, CSV files or
// memory.
package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/amirphl/simple-backtest/internal/candle"
)

// Storage returns the bars of one symbol and timeframe with timestamps in
// [start, end), oldest first. A zero end means no upper bound.
type Storage interface {
	GetCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]candle.Candle, error)
}

// Writer stores bars, replacing any bar already stored under the same
// symbol, timeframe and timestamp.
type Writer interface {
	SaveCandles(ctx context.Context, candles []candle.Candle) error
}

const loadConcurrency = 4

// endOfTime stands in for an open upper bound in range queries.
var endOfTime = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

func window(start, end time.Time) (time.Time, time.Time) {
	if end.IsZero() {
		end = endOfTime
	}
	return start.UTC(), end.UTC()
}

// LoadBars fetches every symbol from s. Symbols are upper-cased and
// deduplicated; each series is tagged with its symbol and timeframe.
func LoadBars(ctx context.Context, s Storage, symbols []string, timeframe string, start, end time.Time, logger zerolog.Logger) (map[string][]candle.Candle, error) {
	names := lo.Uniq(lo.Map(symbols, func(sym string, _ int) string {
		return strings.ToUpper(strings.TrimSpace(sym))
	}))
	series := make([][]candle.Candle, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, sym := range names {
		i, sym := i, sym // per-iteration copies (go1.21 loop semantics)
		g.Go(func() error {
			bars, err := s.GetCandles(gctx, sym, timeframe, start, end)
			if err != nil {
				return fmt.Errorf("load %s %s: %w", sym, timeframe, err)
			}
			for j := range bars {
				bars[j].Symbol = sym
				bars[j].Timeframe = timeframe
			}
			logger.Debug().Str("symbol", sym).Str("timeframe", timeframe).
				Int("bars", len(bars)).Int("missing", candle.CountMissing(bars)).Msg("bars loaded")
			series[i] = bars
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]candle.Candle, len(names))
	for i, sym := range names {
		out[sym] = series[i]
	}
	return out, nil
}
