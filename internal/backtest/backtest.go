// Package backtest runs a strategy over historical bars and reports an
// idealized and a haircut view of the result.
package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/amirphl/simple-backtest/internal/candle"
	"github.com/amirphl/simple-backtest/internal/cost"
	"github.com/amirphl/simple-backtest/internal/haircut"
	"github.com/amirphl/simple-backtest/internal/position"
	"github.com/amirphl/simple-backtest/internal/report"
	"github.com/amirphl/simple-backtest/internal/risk"
	"github.com/amirphl/simple-backtest/internal/strategy"
)

const (
	DefaultInitialCapital = 100_000
	maxDefaultParallelism = 8
)

// RunConfig holds run-wide settings.
type RunConfig struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
	// Parallelism bounds how many symbols simulate at once. 0 means one per
	// symbol, up to 8.
	Parallelism int `yaml:"parallelism" json:"parallelism"`
}

func (c RunConfig) Validate() error {
	var errs []error
	if c.InitialCapital < 0 {
		errs = append(errs, errors.New("initial_capital: must not be negative"))
	}
	if c.Parallelism < 0 {
		errs = append(errs, errors.New("parallelism: must not be negative"))
	}
	return errors.Join(errs...)
}

// Input is everything a run needs. Bars are keyed by symbol.
type Input struct {
	Bars     map[string][]candle.Candle `json:"-"`
	Strategy strategy.Config            `json:"strategy"`
	Risk     risk.Config                `json:"risk"`
	Cost     cost.Config                `json:"cost"`
	Haircut  haircut.Config             `json:"haircut"`
	Run      RunConfig                  `json:"run"`
}

// DefaultInput pairs bars with the stock configuration for kind.
func DefaultInput(bars map[string][]candle.Candle, kind strategy.Kind) Input {
	return Input{
		Bars:     bars,
		Strategy: strategy.Default(kind),
		Risk:     risk.DefaultConfig(),
		Cost:     cost.DefaultConfig(),
		Haircut:  haircut.DefaultConfig(),
		Run:      RunConfig{InitialCapital: DefaultInitialCapital},
	}
}

// Warnings lists everything that changed the economics without failing the
// run.
type Warnings struct {
	DataGaps        map[string]int `json:"data_gaps"`
	TotalDataGaps   int            `json:"total_data_gaps"`
	Denials         map[string]int `json:"denials"`
	EndOfDataCloses int            `json:"end_of_data_closes"`
}

// Report is the run's only output.
type Report struct {
	RunID       string                 `json:"run_id"`
	Raw         report.Stats           `json:"raw"`
	Realistic   report.Stats           `json:"realistic"`
	Haircut     haircut.Breakdown      `json:"haircut"`
	Trades      []position.Trade       `json:"trades"`
	EquityCurve []position.EquityPoint `json:"equity_curve"`
	Warnings    Warnings               `json:"warnings"`
	Symbols     []SymbolSummary        `json:"symbols"`
}

type options struct {
	logger zerolog.Logger
}

type Option func(*options)

// WithLogger routes run logging to l. Runs are silent by default.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Run validates the input, simulates every symbol and aggregates the raw and
// realistic views. The same input always yields the same report.
func Run(ctx context.Context, in Input, opts ...Option) (*Report, error) {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	in, err := prepare(in)
	if err != nil {
		return nil, err
	}

	runID := RunID(in)
	log := o.logger.With().Str("run_id", runID).Logger()
	log.Info().
		Str("strategy", string(in.Strategy.Kind)).
		Int("symbols", len(in.Bars)).
		Float64("initial_capital", in.Run.InitialCapital).
		Msg("Backtest started")
	started := time.Now()

	sleeves, err := runSleeves(ctx, in, log)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	trades := mergeTrades(sleeves)
	curve := mergeEquity(sleeves)
	capital := in.Run.InitialCapital
	raw := report.Aggregate(trades, curve, capital)

	breakdown := haircut.Estimate(in.Haircut, haircut.Input{
		Trades:         trades,
		Bars:           in.Bars,
		InitialCapital: capital,
		EndingEquity:   raw.EndingEquity,
	})
	realTrades, realCurve := report.Rescale(trades, curve, capital, breakdown.Scale, breakdown.CombinedMultiplier)
	realistic := report.Aggregate(realTrades, realCurve, capital)

	rep := &Report{
		RunID:       runID,
		Raw:         raw,
		Realistic:   realistic,
		Haircut:     breakdown,
		Trades:      trades,
		EquityCurve: curve,
		Warnings:    collectWarnings(sleeves),
		Symbols:     make([]SymbolSummary, len(sleeves)),
	}
	for i, s := range sleeves {
		rep.Symbols[i] = s.Summary
	}

	log.Info().
		Int("trades", raw.TotalTrades).
		Float64("raw_return_pct", raw.TotalReturnPct).
		Float64("realistic_return_pct", realistic.TotalReturnPct).
		Int("data_gaps", rep.Warnings.TotalDataGaps).
		Dur("elapsed", time.Since(started)).
		Msg("Backtest finished")
	return rep, nil
}

// prepare fills defaults on a copy and rejects bad configs and bars before
// any simulation.
func prepare(in Input) (Input, error) {
	in.Strategy = cloneStrategy(in.Strategy)
	in.Strategy.ApplyDefaults()
	if in.Run.InitialCapital == 0 {
		in.Run.InitialCapital = DefaultInitialCapital
	}

	sections := []struct {
		name string
		err  error
	}{
		{"strategy", in.Strategy.Validate()},
		{"risk", in.Risk.Validate()},
		{"cost", in.Cost.Validate()},
		{"haircut", in.Haircut.Validate()},
		{"run", in.Run.Validate()},
	}
	for _, s := range sections {
		if s.err != nil {
			return in, &ConfigError{Section: s.name, Err: s.err}
		}
	}

	for _, symbol := range symbols(in.Bars) {
		if symbol == "" {
			return in, &InputError{Symbol: symbol, Index: -1, Reason: "empty symbol"}
		}
		if i, err := candle.ValidateSeries(symbol, in.Bars[symbol]); err != nil {
			return in, &InputError{Symbol: symbol, Index: i, Reason: err.Error()}
		}
	}
	return in, nil
}

// cloneStrategy copies the pointer sections so defaults never leak into the
// caller's config.
func cloneStrategy(c strategy.Config) strategy.Config {
	if c.RSI != nil {
		r := *c.RSI
		c.RSI = &r
	}
	if c.Pattern != nil {
		p := *c.Pattern
		p.Allowed = append([]string(nil), p.Allowed...)
		c.Pattern = &p
	}
	if c.Hybrid != nil {
		h := *c.Hybrid
		h.Weights = make(map[string]float64, len(c.Hybrid.Weights))
		for k, v := range c.Hybrid.Weights {
			h.Weights[k] = v
		}
		c.Hybrid = &h
	}
	if c.Trend != nil {
		t := *c.Trend
		c.Trend = &t
	}
	return c
}

// RunID derives a stable identifier from the configuration and the shape of
// the data, so repeated runs of the same input share an ID.
func RunID(in Input) string {
	type fingerprint struct {
		Symbol string
		Bars   int
		First  time.Time
		Last   time.Time
	}
	fps := make([]fingerprint, 0, len(in.Bars))
	for _, symbol := range symbols(in.Bars) {
		bars := in.Bars[symbol]
		fp := fingerprint{Symbol: symbol, Bars: len(bars)}
		if len(bars) > 0 {
			fp.First, fp.Last = bars[0].Timestamp, bars[len(bars)-1].Timestamp
		}
		fps = append(fps, fp)
	}

	payload, err := json.Marshal(struct {
		Input
		Data []fingerprint
	}{in, fps})
	if err != nil {
		return uuid.Nil.String()
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, payload).String()
}

func symbols(bars map[string][]candle.Candle) []string {
	out := make([]string, 0, len(bars))
	for s := range bars {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
