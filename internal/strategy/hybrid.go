package strategy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/amirphl/simple-backtest/internal/candle"
	"github.com/amirphl/simple-backtest/internal/position"
)

// voter is one participant of the hybrid vote.
type voter struct {
	name   string
	weight float64
	warmup int
	vote   func(history []candle.Candle, open float64) (position.Side, float64, bool)
	exit   Generator
}

// HybridStrategy accepts an entry only when enough weighted voters agree on
// a side, or when the dominant voter alone is confident enough.
type HybridStrategy struct {
	voters        []voter
	minAgreement  int
	dominant      string
	dominantFloor float64
}

// NewHybrid wires the voters with positive weight. Voter order is fixed by
// name so the outcome never depends on map iteration.
func NewHybrid(cfg Config) (*HybridStrategy, error) {
	if cfg.Hybrid == nil {
		return nil, fmt.Errorf("hybrid strategy without hybrid parameters")
	}
	h := &HybridStrategy{
		minAgreement:  cfg.Hybrid.MinAgreement,
		dominant:      cfg.Hybrid.Dominant,
		dominantFloor: cfg.Hybrid.DominantFloor,
	}

	names := make([]string, 0, len(cfg.Hybrid.Weights))
	for name, w := range cfg.Hybrid.Weights {
		if w > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		v := voter{name: name, weight: cfg.Hybrid.Weights[name]}
		switch name {
		case VoterORB:
			g := NewORB(cfg.AllowShort)
			v.warmup, v.vote = g.WarmupPeriod(), fromGenerator(g)
		case VoterRSI:
			if cfg.RSI == nil {
				return nil, fmt.Errorf("hybrid rsi voter without rsi parameters")
			}
			g := NewRSI(*cfg.RSI, cfg.AllowShort)
			v.warmup, v.vote, v.exit = g.WarmupPeriod(), fromGenerator(g), g
		case VoterPattern:
			f := PatternFilters{}
			if cfg.Pattern != nil {
				f = *cfg.Pattern
			}
			g := NewPattern(f, cfg.AllowShort)
			v.warmup, v.vote, v.exit = g.WarmupPeriod(), fromGenerator(g), g
		case VoterMACD:
			m := newMACDVoter()
			v.warmup, v.vote = m.warmup(), shortGate(m.vote, cfg.AllowShort)
		case VoterBollinger:
			b := newBollingerVoter()
			v.warmup, v.vote = b.period, shortGate(b.vote, cfg.AllowShort)
		default:
			return nil, fmt.Errorf("unknown hybrid voter %q", name)
		}
		h.voters = append(h.voters, v)
	}
	if len(h.voters) == 0 {
		return nil, fmt.Errorf("hybrid strategy without voters")
	}
	return h, nil
}

func (s *HybridStrategy) Name() string { return "Hybrid" }

// WarmupPeriod is the smallest voter warmup: voters that are not ready yet
// simply abstain.
func (s *HybridStrategy) WarmupPeriod() int {
	w := s.voters[0].warmup
	for _, v := range s.voters[1:] {
		w = min(w, v.warmup)
	}
	return w
}

type tally struct {
	score, weight float64
	names         []string
}

func (s *HybridStrategy) Evaluate(history []candle.Candle, open float64) (Signal, bool) {
	tallies := map[position.Side]*tally{position.Long: {}, position.Short: {}}
	var dominantSide position.Side
	var dominantConf float64

	for _, v := range s.voters {
		side, conf, ok := v.vote(history, open)
		if !ok {
			continue
		}
		t := tallies[side]
		t.score += v.weight * conf
		t.weight += v.weight
		t.names = append(t.names, v.name)
		if v.name == s.dominant {
			dominantSide, dominantConf = side, conf
		}
	}

	long, short := tallies[position.Long], tallies[position.Short]
	longOK := len(long.names) >= s.minAgreement
	shortOK := len(short.names) >= s.minAgreement

	var side position.Side
	switch {
	case longOK && shortOK:
		if long.score == short.score {
			return Signal{}, false
		}
		side = position.Long
		if short.score > long.score {
			side = position.Short
		}
	case longOK:
		side = position.Long
	case shortOK:
		side = position.Short
	case s.dominant != "" && dominantConf >= s.dominantFloor && dominantConf > 0:
		side = dominantSide
	default:
		return Signal{}, false
	}

	t := tallies[side]
	return Signal{
		Side:         side,
		Confidence:   clamp01(t.score / t.weight),
		Reason:       "hybrid: " + strings.Join(t.names, "+"),
		StrategyName: s.Name(),
		TriggerPrice: open,
	}, true
}

// ShouldExit defers to any voter that has its own exit rule.
func (s *HybridStrategy) ShouldExit(history []candle.Candle, side position.Side) (string, bool) {
	for _, v := range s.voters {
		if v.exit == nil {
			continue
		}
		if reason, ok := v.exit.ShouldExit(history, side); ok {
			return reason, true
		}
	}
	return "", false
}

func fromGenerator(g Generator) func([]candle.Candle, float64) (position.Side, float64, bool) {
	return func(history []candle.Candle, open float64) (position.Side, float64, bool) {
		sig, ok := g.Evaluate(history, open)
		if !ok {
			return 0, 0, false
		}
		return sig.Side, sig.Confidence, true
	}
}

func shortGate(vote func([]candle.Candle) (position.Side, float64, bool), allowShort bool) func([]candle.Candle, float64) (position.Side, float64, bool) {
	return func(history []candle.Candle, _ float64) (position.Side, float64, bool) {
		side, conf, ok := vote(history)
		if !ok || (side == position.Short && !allowShort) {
			return 0, 0, false
		}
		return side, conf, true
	}
}
