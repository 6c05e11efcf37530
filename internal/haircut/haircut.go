// Package haircut converts an idealized backtest result into a pessimistic
// one by applying independent multiplicative discounts.
package haircut

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/amirphl/simple-backtest/internal/candle"
	"github.com/amirphl/simple-backtest/internal/position"
)

type Config struct {
	ExecutionSlippagePercent float64 `yaml:"execution_slippage_percent" json:"execution_slippage_percent"`

	// Trades beyond FrequencyBaselineTrades cost FrequencyPerTradePercent
	// each, up to FrequencyCapPercent.
	FrequencyBaselineTrades  int     `yaml:"frequency_baseline_trades" json:"frequency_baseline_trades"`
	FrequencyPerTradePercent float64 `yaml:"frequency_per_trade_percent" json:"frequency_per_trade_percent"`
	FrequencyCapPercent      float64 `yaml:"frequency_cap_percent" json:"frequency_cap_percent"`

	// A month is a crisis month when its annualized realized volatility
	// exceeds CrisisVolatilityPercent. The penalty is the fraction of trades
	// entered in crisis months times CrisisRatePercent, capped.
	CrisisVolatilityPercent float64 `yaml:"crisis_volatility_percent" json:"crisis_volatility_percent"`
	CrisisRatePercent       float64 `yaml:"crisis_rate_percent" json:"crisis_rate_percent"`
	CrisisCapPercent        float64 `yaml:"crisis_cap_percent" json:"crisis_cap_percent"`

	// SimulatedDataPercent is charged in proportion to the share of P&L
	// coming from synthetic bars or bars before RealDataCutover.
	SimulatedDataPercent float64   `yaml:"simulated_data_percent" json:"simulated_data_percent"`
	RealDataCutover      time.Time `yaml:"real_data_cutover" json:"real_data_cutover"`
}

func DefaultConfig() Config {
	return Config{
		ExecutionSlippagePercent: 12,
		FrequencyBaselineTrades:  100,
		FrequencyPerTradePercent: 0.05,
		FrequencyCapPercent:      10,
		CrisisVolatilityPercent:  40,
		CrisisRatePercent:        25,
		CrisisCapPercent:         20,
		SimulatedDataPercent:     15,
	}
}

func (c Config) Validate() error {
	var errs []error
	pcts := map[string]float64{
		"execution_slippage_percent": c.ExecutionSlippagePercent,
		"frequency_cap_percent":      c.FrequencyCapPercent,
		"crisis_cap_percent":         c.CrisisCapPercent,
		"simulated_data_percent":     c.SimulatedDataPercent,
	}
	names := lo.Keys(pcts)
	sort.Strings(names)
	for _, name := range names {
		if v := pcts[name]; v < 0 || v > 100 {
			errs = append(errs, errors.New(name+": must be in [0, 100]"))
		}
	}
	if c.FrequencyBaselineTrades < 0 || c.FrequencyPerTradePercent < 0 {
		errs = append(errs, errors.New("frequency: baseline and rate must not be negative"))
	}
	if c.CrisisVolatilityPercent <= 0 || c.CrisisRatePercent < 0 {
		errs = append(errs, errors.New("crisis: volatility threshold must be positive and rate non-negative"))
	}
	return errors.Join(errs...)
}

// IsSimulated reports whether a bar counts as non-quoted data.
func (c Config) IsSimulated(bar candle.Candle) bool {
	if bar.IsSynthetic() {
		return true
	}
	return !c.RealDataCutover.IsZero() && bar.Timestamp.Before(c.RealDataCutover)
}

// Factors are the four discounts in percent.
type Factors struct {
	ExecutionSlippagePct    float64 `json:"execution_slippage_pct"`
	FrequencyPenaltyPct     float64 `json:"frequency_penalty_pct"`
	CrisisPenaltyPct        float64 `json:"crisis_penalty_pct"`
	SimulatedDataPenaltyPct float64 `json:"simulated_data_penalty_pct"`
}

// Multipliers returns each factor as a multiplier in [0, 1], in field order.
func (f Factors) Multipliers() [4]float64 {
	return [4]float64{
		toMultiplier(f.ExecutionSlippagePct),
		toMultiplier(f.FrequencyPenaltyPct),
		toMultiplier(f.CrisisPenaltyPct),
		toMultiplier(f.SimulatedDataPenaltyPct),
	}
}

// Combined is the product of the multipliers.
func (f Factors) Combined() float64 {
	m := 1.0
	for _, v := range f.Multipliers() {
		m *= v
	}
	return m
}

// Breakdown is the audit trail of one estimate.
type Breakdown struct {
	Factors            Factors  `json:"factors"`
	CombinedMultiplier float64  `json:"combined_multiplier"`
	CombinedHaircutPct float64  `json:"combined_haircut_pct"`
	CrisisMonths       []string `json:"crisis_months"`
	CrisisTradeShare   float64  `json:"crisis_trade_share"`
	SimulatedPnLShare  float64  `json:"simulated_pnl_share"`
	RawReturnPct       float64  `json:"raw_return_pct"`
	RealisticReturnPct float64  `json:"realistic_return_pct"`
	// Scale maps raw P&L onto the realistic view: realistic = raw * Scale.
	Scale float64 `json:"scale"`
}

type Input struct {
	Trades         []position.Trade
	Bars           map[string][]candle.Candle
	InitialCapital float64
	EndingEquity   float64
}

// Estimate computes the factors from the raw run and applies them.
func Estimate(cfg Config, in Input) Breakdown {
	crisis := CrisisMonths(in.Bars, cfg.CrisisVolatilityPercent)
	crisisShare := crisisTradeShare(in.Trades, crisis)
	simShare := simulatedPnLShare(in.Trades)

	f := Factors{
		ExecutionSlippagePct:    cfg.ExecutionSlippagePercent,
		FrequencyPenaltyPct:     frequencyPenalty(cfg, len(in.Trades)),
		CrisisPenaltyPct:        min(cfg.CrisisCapPercent, crisisShare*cfg.CrisisRatePercent),
		SimulatedDataPenaltyPct: cfg.SimulatedDataPercent * simShare,
	}
	combined := f.Combined()

	var raw float64
	if in.InitialCapital > 0 {
		raw = (in.EndingEquity - in.InitialCapital) / in.InitialCapital * 100
	}
	realistic := Apply(raw, combined)
	scale := 1.0
	if raw != 0 {
		scale = realistic / raw
	}

	return Breakdown{
		Factors:            f,
		CombinedMultiplier: combined,
		CombinedHaircutPct: (1 - combined) * 100,
		CrisisMonths:       flattenMonths(crisis),
		CrisisTradeShare:   crisisShare,
		SimulatedPnLShare:  simShare,
		RawReturnPct:       raw,
		RealisticReturnPct: realistic,
		Scale:              scale,
	}
}

// Apply discounts a raw return in percent. Gains shrink by the multiplier;
// losses deepen by the same proportion and never pass -100%.
func Apply(rawReturnPct, multiplier float64) float64 {
	if rawReturnPct > 0 {
		return rawReturnPct * multiplier
	}
	return math.Max(-100, rawReturnPct*(2-multiplier))
}

func frequencyPenalty(cfg Config, trades int) float64 {
	excess := trades - cfg.FrequencyBaselineTrades
	if excess <= 0 {
		return 0
	}
	return min(cfg.FrequencyCapPercent, float64(excess)*cfg.FrequencyPerTradePercent)
}

// CrisisMonths returns, per symbol, the months ("2006-01") whose annualized
// realized volatility of close-to-close log returns exceeds thresholdPct.
// Monthly volatility is std * sqrt(returns in month), annualized by sqrt(12).
func CrisisMonths(bars map[string][]candle.Candle, thresholdPct float64) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	for symbol, series := range bars {
		returns := make(map[string][]float64)
		var prev *candle.Candle
		for i := range series {
			c := &series[i]
			if c.IsMissing() {
				continue
			}
			if prev != nil && prev.Close > 0 {
				month := c.Timestamp.Format("2006-01")
				returns[month] = append(returns[month], math.Log(c.Close/prev.Close))
			}
			prev = c
		}
		for month, r := range returns {
			if len(r) < 2 {
				continue
			}
			vol := stat.StdDev(r, nil) * math.Sqrt(float64(len(r))) * math.Sqrt(12) * 100
			if vol > thresholdPct {
				if out[symbol] == nil {
					out[symbol] = make(map[string]bool)
				}
				out[symbol][month] = true
			}
		}
	}
	return out
}

func crisisTradeShare(trades []position.Trade, crisis map[string]map[string]bool) float64 {
	if len(trades) == 0 {
		return 0
	}
	n := lo.CountBy(trades, func(t position.Trade) bool {
		return crisis[t.Symbol][t.EntryDate.Format("2006-01")]
	})
	return float64(n) / float64(len(trades))
}

func simulatedPnLShare(trades []position.Trade) float64 {
	total := lo.SumBy(trades, func(t position.Trade) float64 { return math.Abs(t.PnL) })
	if total == 0 {
		return 0
	}
	sim := lo.SumBy(lo.Filter(trades, func(t position.Trade, _ int) bool { return t.Simulated }),
		func(t position.Trade) float64 { return math.Abs(t.PnL) })
	return sim / total
}

func flattenMonths(crisis map[string]map[string]bool) []string {
	var out []string
	for symbol, months := range crisis {
		for m := range months {
			out = append(out, symbol+" "+m)
		}
	}
	sort.Strings(out)
	return out
}

func toMultiplier(pct float64) float64 {
	return max(0, min(1, 1-pct/100))
}
