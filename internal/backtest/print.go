package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/amirphl/simple-backtest/internal/report"
)

// Print writes the full human-readable report. At most tradeLimit trades
// are listed; zero lists none and a negative limit lists all.
func (r *Report) Print(w io.Writer, tradeLimit int) {
	fmt.Fprintf(w, "run %s\n\n", r.RunID)
	report.Print(w, r.Raw, r.Realistic, r.Haircut)
	fmt.Fprintln(w)
	r.PrintSymbols(w)
	r.PrintWarnings(w)
	if tradeLimit != 0 && len(r.Trades) > 0 {
		fmt.Fprintln(w)
		report.PrintTrades(w, r.Trades, max(tradeLimit, 0))
	}
}

func (r *Report) PrintSymbols(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Symbol", "Bars", "Gaps", "Trades", "Wins", "Net PnL", "Start", "End"})
	for _, s := range r.Symbols {
		table.Append([]string{
			s.Symbol,
			strconv.Itoa(s.Bars),
			strconv.Itoa(s.DataGaps),
			strconv.Itoa(s.Trades),
			strconv.Itoa(s.Wins),
			fmt.Sprintf("%.2f", s.NetPnL),
			fmt.Sprintf("%.2f", s.InitialCapital),
			fmt.Sprintf("%.2f", s.EndingEquity),
		})
	}
	table.Render()
}

func (r *Report) PrintWarnings(w io.Writer) {
	warn := r.Warnings
	if warn.TotalDataGaps == 0 && len(warn.Denials) == 0 && warn.EndOfDataCloses == 0 {
		return
	}
	fmt.Fprintln(w, "warnings:")
	if warn.TotalDataGaps > 0 {
		fmt.Fprintf(w, "  %d missing bars\n", warn.TotalDataGaps)
	}
	reasons := lo.Keys(warn.Denials)
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(w, "  %d entries denied: %s\n", warn.Denials[reason], reason)
	}
	if warn.EndOfDataCloses > 0 {
		fmt.Fprintf(w, "  %d positions closed at end of data\n", warn.EndOfDataCloses)
	}
}

// Save writes report.json, trades.csv and equity.csv into dir.
func (r *Report) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "report.json"), data, 0o644); err != nil {
		return err
	}

	tradeRows := [][]string{{"symbol", "side", "entry_time", "entry", "exit_time", "exit", "shares", "pnl", "costs", "entry_reason", "exit_reason", "simulated"}}
	for _, t := range r.Trades {
		tradeRows = append(tradeRows, []string{
			t.Symbol,
			t.Side.String(),
			t.EntryDate.Format(time.RFC3339),
			strconv.FormatFloat(t.EntryPrice, 'f', -1, 64),
			t.ExitDate.Format(time.RFC3339),
			strconv.FormatFloat(t.ExitPrice, 'f', -1, 64),
			strconv.FormatInt(t.Shares, 10),
			strconv.FormatFloat(t.PnL, 'f', 2, 64),
			strconv.FormatFloat(t.Costs, 'f', 2, 64),
			t.EntryReason,
			t.ExitReason,
			strconv.FormatBool(t.Simulated),
		})
	}
	if err := saveCSV(filepath.Join(dir, "trades.csv"), tradeRows); err != nil {
		return err
	}

	equityRows := [][]string{{"time", "equity"}}
	for _, p := range r.EquityCurve {
		equityRows = append(equityRows, []string{p.Date.Format(time.RFC3339), strconv.FormatFloat(p.Equity, 'f', 2, 64)})
	}
	return saveCSV(filepath.Join(dir, "equity.csv"), equityRows)
}

func saveCSV(filename string, rows [][]string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return f.Close()
}
