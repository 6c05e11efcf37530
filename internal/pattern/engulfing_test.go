package pattern

import (
	"testing"
)

func TestEngulfingPattern(t *testing.T) {
	pattern := NewEngulfingPattern()

	t.Run("Detect with insufficient candles", func(t *testing.T) {
		if _, err := pattern.Detect(bars([4]float64{100, 101, 99, 100})); err == nil {
			t.Error("Expected error for insufficient candles")
		}
	})

	tests := []struct {
		name      string
		prev, cur [4]float64
		want      string
		direction PatternType
	}{
		{"Bullish engulfing", [4]float64{105, 106, 99, 100}, [4]float64{99, 108, 98, 107}, NameBullishEngulfing, PatternTypeBullish},
		{"Bearish engulfing", [4]float64{100, 106, 99, 105}, [4]float64{106, 107, 97, 98}, NameBearishEngulfing, PatternTypeBearish},
		{"Same color", [4]float64{100, 106, 99, 105}, [4]float64{99, 108, 98, 107}, "", ""},
		{"Body not covered", [4]float64{105, 106, 99, 100}, [4]float64{101, 108, 100.5, 107}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := pattern.Detect(bars(tt.prev, tt.cur))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.want == "" {
				if len(matches) != 0 {
					t.Errorf("Expected no matches, got %d", len(matches))
				}
				return
			}
			if len(matches) != 1 {
				t.Fatalf("Expected 1 match, got %d", len(matches))
			}
			m := matches[0]
			if m.Pattern != tt.want || m.Direction != tt.direction {
				t.Errorf("Expected %s/%s, got %s/%s", tt.want, tt.direction, m.Pattern, m.Direction)
			}
			if m.Index != 1 {
				t.Errorf("Expected index 1, got %d", m.Index)
			}
			if m.Strength < float64(StrengthWeak) || m.Strength > 1 {
				t.Errorf("Strength out of range: %.2f", m.Strength)
			}
		})
	}

	t.Run("Volume expansion boosts strength", func(t *testing.T) {
		quiet := bars([4]float64{105, 106, 99, 100}, [4]float64{99, 108, 98, 107})
		loud := bars([4]float64{105, 106, 99, 100}, [4]float64{99, 108, 98, 107})
		quiet[0].Volume, quiet[1].Volume = 100, 100
		loud[0].Volume, loud[1].Volume = 100, 200

		q, _ := pattern.Detect(quiet)
		l, _ := pattern.Detect(loud)
		if len(q) != 1 || len(l) != 1 {
			t.Fatal("Expected one match each")
		}
		if l[0].Strength <= q[0].Strength {
			t.Errorf("Expected boosted strength, got %.2f <= %.2f", l[0].Strength, q[0].Strength)
		}
	})
}
