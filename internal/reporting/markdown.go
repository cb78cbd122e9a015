package reporting

import (
	"fmt"
	"strings"
)

// Markdown renders the report as a markdown document with a summary
// block and a per-window table.
func (r *Report) Markdown() string {
	var b strings.Builder

	b.WriteString("# Walk-Forward Analysis Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))

	if r.Strategy != "" {
		fmt.Fprintf(&b, "- **Strategy**: %s\n", r.Strategy)
	}
	if len(r.Symbols) > 0 {
		fmt.Fprintf(&b, "- **Symbols**: %s\n", strings.Join(r.Symbols, ", "))
	}
	fmt.Fprintf(&b, "- **Windows**: %d evaluated of %d generated\n", r.WindowsEvaluated, r.WindowsGenerated)
	fmt.Fprintf(&b, "- **Robustness**: %s\n", r.Robustness.StringFixed(4))
	b.WriteString("\n")

	if r.Overall != nil {
		b.WriteString("## Pooled Out-of-Sample Performance\n\n")
		fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
		fmt.Fprintf(&b, "| Total return | %s |\n", formatPct(r.Overall.TotalReturn))
		fmt.Fprintf(&b, "| Max drawdown | %s |\n", formatPct(r.Overall.MaxDrawdown))
		fmt.Fprintf(&b, "| Sharpe ratio | %s |\n", r.Overall.SharpeRatio.StringFixed(2))
		fmt.Fprintf(&b, "| Profit factor | %s |\n", r.Overall.ProfitFactor.StringFixed(2))
		fmt.Fprintf(&b, "| Win rate | %s |\n", formatPct(r.Overall.WinRate))
		fmt.Fprintf(&b, "| Trades | %d |\n", r.Overall.TotalTrades)
		b.WriteString("\n")
	}

	b.WriteString("## Windows\n\n")
	if len(r.Rows) == 0 {
		b.WriteString("No windows were evaluated.\n")
		return b.String()
	}

	b.WriteString("| # | IS Start | IS End | OOS End | IS Return | OOS Return | IS MaxDD | OOS MaxDD |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, row := range r.Rows {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s | %s | %s |\n",
			row.Index,
			row.InSampleStart.Format(dateLayout),
			row.InSampleEnd.Format(dateLayout),
			row.OutSampleEnd.Format(dateLayout),
			formatPct(row.InSampleReturn),
			formatPct(row.OutSampleReturn),
			formatPct(row.InSampleMaxDD),
			formatPct(row.OutSampleMaxDD),
		)
	}
	return b.String()
}
