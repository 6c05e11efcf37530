package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/amirphl/simple-backtest/internal/haircut"
	"github.com/amirphl/simple-backtest/internal/position"
)

// Print writes the raw and realistic views side by side, followed by the
// haircut decomposition.
func Print(w io.Writer, raw, realistic Stats, b haircut.Breakdown) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Raw", "Realistic"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})

	money := func(v float64) string { return fmt.Sprintf("%.2f", v) }
	pct := func(v float64) string { return fmt.Sprintf("%.2f %%", v) }
	count := strconv.Itoa

	rows := []struct {
		name string
		f    func(Stats) string
	}{
		{"Initial capital", func(s Stats) string { return money(s.InitialCapital) }},
		{"Ending equity", func(s Stats) string { return money(s.EndingEquity) }},
		{"Net profit", func(s Stats) string { return money(s.NetProfit) }},
		{"Total return", func(s Stats) string { return pct(s.TotalReturnPct) }},
		{"Trades", func(s Stats) string { return count(s.TotalTrades) }},
		{"Long / Short", func(s Stats) string { return count(s.Longs) + " / " + count(s.Shorts) }},
		{"Win / Loss", func(s Stats) string { return count(s.Wins) + " / " + count(s.Losses) }},
		{"% Win", func(s Stats) string { return pct(s.WinRate) }},
		{"Avg win", func(s Stats) string { return pct(s.AvgWinPct) }},
		{"Avg loss", func(s Stats) string { return pct(s.AvgLossPct) }},
		{"Pr Fact.", func(s Stats) string { return fmt.Sprintf("%.3f", s.ProfitFactor) }},
		{"Max consec. wins", func(s Stats) string { return count(s.MaxConsecutiveWins) }},
		{"Max consec. losses", func(s Stats) string { return count(s.MaxConsecutiveLosses) }},
		{"Max drawdown", func(s Stats) string { return money(s.MaxDrawdown) + " (" + pct(s.MaxDrawdownPct) + ")" }},
		{"Costs", func(s Stats) string { return money(s.TotalCosts) }},
	}
	for _, r := range rows {
		table.Append([]string{r.name, r.f(raw), r.f(realistic)})
	}
	table.Render()

	fmt.Fprintln(w)
	PrintHaircut(w, b)
}

// PrintHaircut writes each factor with its multiplier and the combined result.
func PrintHaircut(w io.Writer, b haircut.Breakdown) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Haircut", "Penalty", "Multiplier"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
	table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)

	names := [4]string{"Execution slippage", "Trade frequency", "Crisis periods", "Simulated data"}
	pcts := [4]float64{
		b.Factors.ExecutionSlippagePct,
		b.Factors.FrequencyPenaltyPct,
		b.Factors.CrisisPenaltyPct,
		b.Factors.SimulatedDataPenaltyPct,
	}
	for i, m := range b.Factors.Multipliers() {
		table.Append([]string{names[i], fmt.Sprintf("%.2f %%", pcts[i]), fmt.Sprintf("%.4f", m)})
	}
	table.SetFooter([]string{
		"COMBINED",
		fmt.Sprintf("%.2f %%", b.CombinedHaircutPct),
		fmt.Sprintf("%.4f", b.CombinedMultiplier),
	})
	table.Render()

	if len(b.CrisisMonths) > 0 {
		fmt.Fprintf(w, "crisis months: %v (%.1f%% of trades)\n", b.CrisisMonths, b.CrisisTradeShare*100)
	}
	if b.SimulatedPnLShare > 0 {
		fmt.Fprintf(w, "simulated data share of |P&L|: %.1f%%\n", b.SimulatedPnLShare*100)
	}
}

// PrintTrades writes the last limit trades; limit <= 0 writes all of them.
func PrintTrades(w io.Writer, trades []position.Trade, limit int) {
	if limit > 0 && len(trades) > limit {
		fmt.Fprintf(w, "... %d earlier trades omitted\n", len(trades)-limit)
		trades = trades[len(trades)-limit:]
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Symbol", "Side", "Entry", "Exit", "Entry Px", "Exit Px", "Shares", "PnL", "Costs", "Reason"})
	for _, t := range trades {
		table.Append([]string{
			t.Symbol,
			t.Side.String(),
			t.EntryDate.Format("2006-01-02 15:04"),
			t.ExitDate.Format("2006-01-02 15:04"),
			fmt.Sprintf("%.2f", t.EntryPrice),
			fmt.Sprintf("%.2f", t.ExitPrice),
			strconv.FormatInt(t.Shares, 10),
			fmt.Sprintf("%.2f", t.PnL),
			fmt.Sprintf("%.2f", t.Costs),
			t.ExitReason,
		})
	}
	table.Render()
}
