package tfutils

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

var timeframes = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// ParseTimeframe parses timeframe string (e.g., "5m", "1h") to time.Duration
func ParseTimeframe(timeframe string) (time.Duration, error) {
	d, ok := timeframes[timeframe]
	if !ok {
		return 0, fmt.Errorf("unsupported timeframe %q (want one of %s)", timeframe, strings.Join(GetSupportedTimeframes(), ", "))
	}
	return d, nil
}

// GetSupportedTimeframes returns all supported timeframes, shortest first.
func GetSupportedTimeframes() []string {
	out := make([]string, 0, len(timeframes))
	for tf := range timeframes {
		out = append(out, tf)
	}
	sort.Slice(out, func(i, j int) bool {
		return timeframes[out[i]] < timeframes[out[j]]
	})
	return out
}

// SessionKey identifies the trading session (calendar date) a bar belongs to.
func SessionKey(ts time.Time) string {
	return ts.Format("2006-01-02")
}

// IsSessionClose reports whether the bar at cur is the last one of its
// session given the timestamp of the following bar. A nil next means the
// series ends at cur.
func IsSessionClose(cur time.Time, next *time.Time) bool {
	if next == nil {
		return true
	}
	return SessionKey(cur) != SessionKey(*next)
}
