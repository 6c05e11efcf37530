package backtest

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/simple-backtest/internal/candle"
	"github.com/amirphl/simple-backtest/internal/strategy"
)

func TestReportPrint(t *testing.T) {
	rep, err := Run(context.Background(), DefaultInput(map[string][]candle.Candle{"X": trendingBars("X", 40)}, strategy.KindORB))
	require.NoError(t, err)
	require.NotEmpty(t, rep.Trades)

	var buf bytes.Buffer
	rep.Print(&buf, 3)
	out := buf.String()
	assert.Contains(t, out, rep.RunID)
	assert.Contains(t, out, "COMBINED")
	assert.Contains(t, out, "Net profit")
	if len(rep.Trades) > 3 {
		assert.Contains(t, out, "earlier trades omitted")
	}

	buf.Reset()
	rep.Print(&buf, 0)
	assert.NotContains(t, buf.String(), "ENTRY PX")
}

func TestReportPrintWarnings(t *testing.T) {
	rep := &Report{Warnings: Warnings{
		TotalDataGaps:   2,
		Denials:         map[string]int{"year-drawdown-halt": 3},
		EndOfDataCloses: 1,
	}}
	var buf bytes.Buffer
	rep.PrintWarnings(&buf)
	assert.Contains(t, buf.String(), "2 missing bars")
	assert.Contains(t, buf.String(), "3 entries denied: year-drawdown-halt")
	assert.Contains(t, buf.String(), "1 positions closed at end of data")

	buf.Reset()
	(&Report{}).PrintWarnings(&buf)
	assert.Empty(t, buf.String())
}

func TestReportSave(t *testing.T) {
	rep, err := Run(context.Background(), DefaultInput(map[string][]candle.Candle{"X": trendingBars("X", 40)}, strategy.KindORB))
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, rep.Save(dir))

	data, err := os.ReadFile(filepath.Join(dir, "report.json"))
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rep.RunID, decoded.RunID)
	assert.Len(t, decoded.Trades, len(rep.Trades))

	f, err := os.Open(filepath.Join(dir, "trades.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, len(rep.Trades)+1)
	assert.Equal(t, "symbol", rows[0][0])

	g, err := os.Open(filepath.Join(dir, "equity.csv"))
	require.NoError(t, err)
	defer g.Close()
	rows, err = csv.NewReader(g).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, len(rep.EquityCurve)+1)
}
