package strategy

import (
	"fmt"

	"github.com/amirphl/simple-backtest/internal/candle"
	"github.com/amirphl/simple-backtest/internal/position"
)

// ORBStrategy enters on an opening breakout past the previous bar's range.
type ORBStrategy struct {
	allowShort bool
}

func NewORB(allowShort bool) *ORBStrategy {
	return &ORBStrategy{allowShort: allowShort}
}

func (s *ORBStrategy) Name() string { return "ORB" }

func (s *ORBStrategy) WarmupPeriod() int { return 1 }

// Evaluate goes long when the open clears the prior high and, if shorts are
// allowed, short when it falls under the prior low. Confidence rises with the
// size of the gap and saturates at a 1% breakout.
func (s *ORBStrategy) Evaluate(history []candle.Candle, open float64) (Signal, bool) {
	if len(history) < s.WarmupPeriod() {
		return Signal{}, false
	}
	prev := lastBar(history)

	switch {
	case open > prev.High:
		gap := open/prev.High - 1
		return Signal{
			Side:         position.Long,
			Confidence:   clamp01(0.5 + gap*50),
			Reason:       fmt.Sprintf("open %.2f above prior high %.2f", open, prev.High),
			StrategyName: s.Name(),
			TriggerPrice: prev.High,
		}, true
	case s.allowShort && open < prev.Low:
		gap := 1 - open/prev.Low
		return Signal{
			Side:         position.Short,
			Confidence:   clamp01(0.5 + gap*50),
			Reason:       fmt.Sprintf("open %.2f below prior low %.2f", open, prev.Low),
			StrategyName: s.Name(),
			TriggerPrice: prev.Low,
		}, true
	}
	return Signal{}, false
}

// ShouldExit never fires: breakouts rely on stop, target and session close.
func (s *ORBStrategy) ShouldExit(history []candle.Candle, side position.Side) (string, bool) {
	return "", false
}
