package db

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/simple-backtest/internal/candle"
)

// CSVStorage reads one file per series from Dir, named SYMBOL_TIMEFRAME.csv
// (for example SPY_1d.csv). The header row names the columns:
//
//	timestamp,open,high,low,close,volume[,source]
//
// Timestamps are RFC 3339 or YYYY-MM-DD. An empty price field marks a
// missing bar.
type CSVStorage struct {
	Dir string
}

func NewCSV(dir string) *CSVStorage {
	return &CSVStorage{Dir: dir}
}

// Path returns the file that holds symbol at timeframe.
func (s *CSVStorage) Path(symbol, timeframe string) string {
	return filepath.Join(s.Dir, strings.ToUpper(symbol)+"_"+timeframe+".csv")
}

func (s *CSVStorage) GetCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]candle.Candle, error) {
	f, err := os.Open(s.Path(symbol, timeframe))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := ReadCSV(f, symbol, timeframe)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name(), err)
	}
	start, end = window(start, end)
	out := all[:0]
	for _, c := range all {
		if !c.Timestamp.Before(start) && c.Timestamp.Before(end) {
			out = append(out, c)
		}
	}
	return out, nil
}

var csvColumns = []string{"timestamp", "open", "high", "low", "close", "volume"}

// ReadCSV parses bars in file order. It does not check ordering; series
// validation happens when a run starts.
func ReadCSV(r io.Reader, symbol, timeframe string) ([]candle.Candle, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range csvColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("header: missing column %q", name)
		}
	}
	sourceCol, hasSource := col["source"]

	var out []candle.Candle
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		field := func(name string) string {
			if i := col[name]; i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		c := candle.Candle{Symbol: strings.ToUpper(symbol), Timeframe: timeframe}
		if c.Timestamp, err = parseTimestamp(field("timestamp")); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for _, p := range []struct {
			name string
			dst  *float64
		}{{"open", &c.Open}, {"high", &c.High}, {"low", &c.Low}, {"close", &c.Close}} {
			if *p.dst, err = parsePrice(field(p.name)); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, p.name, err)
			}
		}
		if v := field("volume"); v != "" {
			if c.Volume, err = strconv.ParseFloat(v, 64); err != nil {
				return nil, fmt.Errorf("line %d: volume: %w", line, err)
			}
		}
		if hasSource && sourceCol < len(rec) {
			c.Source = strings.TrimSpace(rec[sourceCol])
		}
		out = append(out, c)
	}
	return out, nil
}

func parseTimestamp(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: want RFC 3339 or YYYY-MM-DD", v)
	}
	return t, nil
}

func parsePrice(v string) (float64, error) {
	if v == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(v, 64)
}

// WriteCSV writes candles in the layout ReadCSV accepts.
func WriteCSV(w io.Writer, candles []candle.Candle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(csvColumns, "source")); err != nil {
		return err
	}
	price := func(v float64) string {
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	for _, c := range candles {
		rec := []string{
			c.Timestamp.UTC().Format(time.RFC3339),
			price(c.Open), price(c.High), price(c.Low), price(c.Close),
			strconv.FormatFloat(c.Volume, 'f', -1, 64),
			c.Source,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
