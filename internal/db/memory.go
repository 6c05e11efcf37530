package db

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/simple-backtest/internal/candle"
)

// MemoryStorage keeps bars in process. It is safe for concurrent use.
type MemoryStorage struct {
	mu sync.RWMutex
	// series keyed by symbol|timeframe, each sorted by timestamp
	series map[string][]candle.Candle
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{series: make(map[string][]candle.Candle)}
}

func seriesKey(symbol, timeframe string) string {
	return strings.ToUpper(symbol) + "|" + timeframe
}

func (m *MemoryStorage) SaveCandles(ctx context.Context, candles []candle.Candle) error {
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid candle at index %d for %s %s at %s: %w",
				i, c.Symbol, c.Timeframe, c.Timestamp, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range candles {
		c.Timestamp = c.Timestamp.UTC()
		key := seriesKey(c.Symbol, c.Timeframe)
		s := m.series[key]
		i := sort.Search(len(s), func(i int) bool { return !s[i].Timestamp.Before(c.Timestamp) })
		if i < len(s) && s[i].Timestamp.Equal(c.Timestamp) {
			s[i] = c
			continue
		}
		m.series[key] = slices.Insert(s, i, c)
	}
	return nil
}

func (m *MemoryStorage) GetCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]candle.Candle, error) {
	start, end = window(start, end)

	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.series[seriesKey(symbol, timeframe)]
	lo := sort.Search(len(s), func(i int) bool { return !s[i].Timestamp.Before(start) })
	hi := sort.Search(len(s), func(i int) bool { return !s[i].Timestamp.Before(end) })
	if lo >= hi {
		return nil, nil
	}
	out := make([]candle.Candle, hi-lo)
	copy(out, s[lo:hi])
	return out, nil
}
