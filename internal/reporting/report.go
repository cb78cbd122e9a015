// Package reporting renders walk-forward analysis results for humans
// (markdown) and spreadsheets (CSV).
package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/domain"
)

// WindowRow is one walk-forward window flattened for rendering.
type WindowRow struct {
	Index           int
	InSampleStart   time.Time
	InSampleEnd     time.Time
	OutSampleStart  time.Time
	OutSampleEnd    time.Time
	InSampleReturn  decimal.Decimal
	OutSampleReturn decimal.Decimal
	InSampleMaxDD   decimal.Decimal
	OutSampleMaxDD  decimal.Decimal
}

// Report is the flattened view of one walk-forward analysis.
type Report struct {
	GeneratedAt time.Time
	Strategy    string
	Symbols     []string

	Robustness       decimal.Decimal
	WindowsGenerated int
	WindowsEvaluated int

	Overall *domain.PerformanceMetrics
	Rows    []WindowRow
}

// Build flattens a walk-forward result into a report. The generated
// and evaluated counts are carried separately so a reader can tell a
// score computed from a partial window set from a full one.
func Build(cfg *domain.BacktestConfig, res *domain.WalkForwardResult) *Report {
	r := &Report{
		GeneratedAt:      time.Now().UTC(),
		Robustness:       res.Robustness,
		WindowsGenerated: res.WindowsGenerated,
		WindowsEvaluated: res.WindowsEvaluated,
		Overall:          res.OverallMetrics,
	}
	if cfg != nil {
		r.Strategy = cfg.Strategy.Name
		r.Symbols = append([]string(nil), cfg.Symbols...)
	}

	for i, w := range res.Windows {
		row := WindowRow{
			Index:          i + 1,
			InSampleStart:  w.InSampleStart,
			InSampleEnd:    w.InSampleEnd,
			OutSampleStart: w.OutSampleStart,
			OutSampleEnd:   w.OutSampleEnd,
		}
		if w.InSampleMetrics != nil {
			row.InSampleReturn = w.InSampleMetrics.TotalReturn
			row.InSampleMaxDD = w.InSampleMetrics.MaxDrawdown
		}
		if w.OutSampleMetrics != nil {
			row.OutSampleReturn = w.OutSampleMetrics.TotalReturn
			row.OutSampleMaxDD = w.OutSampleMetrics.MaxDrawdown
		}
		r.Rows = append(r.Rows, row)
	}
	return r
}

const dateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// formatPct renders a fractional return as a percentage with two
// decimal places.
func formatPct(d decimal.Decimal) string {
	return d.Mul(hundred).StringFixed(2) + "%"
}
