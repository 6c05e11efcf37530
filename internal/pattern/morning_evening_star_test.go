package pattern

import (
	"testing"
)

func TestMorningEveningStarPattern(t *testing.T) {
	pattern := NewMorningEveningStarPattern()

	t.Run("Detect with insufficient candles", func(t *testing.T) {
		_, err := pattern.Detect(bars([4]float64{100, 101, 99, 100}, [4]float64{100, 101, 99, 100}))
		if err == nil {
			t.Error("Expected error for insufficient candles")
		}
	})

	t.Run("Morning star", func(t *testing.T) {
		matches, err := pattern.Detect(bars(
			[4]float64{110, 111, 99, 100},
			[4]float64{97, 98, 96, 97.2},
			[4]float64{98, 108, 97.5, 107},
		))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("Expected 1 match, got %d", len(matches))
		}
		if matches[0].Pattern != NameMorningStar || matches[0].Direction != PatternTypeBullish {
			t.Errorf("Expected bullish morning star, got %s/%s", matches[0].Pattern, matches[0].Direction)
		}
		if matches[0].Index != 2 {
			t.Errorf("Expected index 2, got %d", matches[0].Index)
		}
	})

	t.Run("Evening star", func(t *testing.T) {
		matches, err := pattern.Detect(bars(
			[4]float64{100, 111, 99, 110},
			[4]float64{113, 114, 112, 112.8},
			[4]float64{112, 112.5, 102, 103},
		))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("Expected 1 match, got %d", len(matches))
		}
		if matches[0].Pattern != NameEveningStar || matches[0].Direction != PatternTypeBearish {
			t.Errorf("Expected bearish evening star, got %s/%s", matches[0].Pattern, matches[0].Direction)
		}
	})

	t.Run("No gap means no star", func(t *testing.T) {
		matches, _ := pattern.Detect(bars(
			[4]float64{110, 111, 99, 100},
			[4]float64{99.5, 100, 98.5, 99.6},
			[4]float64{98, 108, 97.5, 107},
		))
		if len(matches) != 0 {
			t.Errorf("Expected no matches, got %d", len(matches))
		}
	})

	t.Run("Weak third candle", func(t *testing.T) {
		matches, _ := pattern.Detect(bars(
			[4]float64{110, 111, 99, 100},
			[4]float64{97, 98, 96, 97.2},
			[4]float64{98, 103, 97.5, 102},
		))
		if len(matches) != 0 {
			t.Errorf("Expected no matches, got %d", len(matches))
		}
	})
}
