// Package metrics reduces a trade list and equity curve to a
// performance record. Calculate is a pure function: the walk-forward
// analyzer invokes it exactly once on pooled out-of-sample data, and
// the engine invokes it once per run.
package metrics

import (
	"math"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/domain"
)

var (
	decimalOne     = decimal.NewFromInt(1)
	hoursPerYear   = 24.0 * 365.0
	secondsPerYear = hoursPerYear * 3600.0
)

// Calculate computes performance metrics from trades, an equity curve
// and the starting capital. Monetary and return values stay decimal
// end to end; float64 is used only inside the square roots of the
// risk-adjusted ratios, whose results are converted back.
func Calculate(trades []*domain.Trade, equityCurve []domain.EquityPoint, startingCapital decimal.Decimal) *domain.PerformanceMetrics {
	m := &domain.PerformanceMetrics{
		StartingCapital: startingCapital,
		FinalEquity:     startingCapital,
		TotalTrades:     len(trades),
	}

	if len(equityCurve) > 0 {
		m.FinalEquity = equityCurve[len(equityCurve)-1].Equity
	}

	if startingCapital.IsPositive() {
		m.TotalReturn = m.FinalEquity.Div(startingCapital).Sub(decimalOne)
	}

	tallyTrades(m, trades)
	m.MaxDrawdown = maxDrawdown(equityCurve)

	returns := periodReturns(equityCurve)
	factor := annualizationFactor(equityCurve)
	m.SharpeRatio = sharpe(returns, factor)
	m.SortinoRatio = sortino(returns, factor)
	m.AnnualizedReturn = annualizedReturn(m.TotalReturn, equityCurve)

	return m
}

// tallyTrades fills the win/loss counters and profit sums.
func tallyTrades(m *domain.PerformanceMetrics, trades []*domain.Trade) {
	for _, t := range trades {
		m.NetProfit = m.NetProfit.Add(t.PnL)
		if t.PnL.IsPositive() {
			m.WinningTrades++
			m.GrossProfit = m.GrossProfit.Add(t.PnL)
		} else {
			m.LosingTrades++
			m.GrossLoss = m.GrossLoss.Add(t.PnL.Abs())
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = decimal.NewFromInt(int64(m.WinningTrades)).
			Div(decimal.NewFromInt(int64(m.TotalTrades)))
	}
	if m.GrossLoss.IsPositive() {
		m.ProfitFactor = m.GrossProfit.Div(m.GrossLoss)
	}
}

// maxDrawdown returns the worst peak-to-trough equity fraction, >= 0.
func maxDrawdown(curve []domain.EquityPoint) decimal.Decimal {
	var peak, maxDD decimal.Decimal

	for _, p := range curve {
		if p.Equity.GreaterThan(peak) {
			peak = p.Equity
		}
		if !peak.IsPositive() {
			continue
		}
		dd := peak.Sub(p.Equity).Div(peak)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}
	return maxDD
}

// periodReturns converts the equity curve into per-period simple
// returns. Points with non-positive prior equity are skipped.
func periodReturns(curve []domain.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if !prev.IsPositive() {
			continue
		}
		r, _ := curve[i].Equity.Div(prev).Sub(decimalOne).Float64()
		returns = append(returns, r)
	}
	return returns
}

// annualizationFactor derives sqrt(periods per year) from the average
// spacing of the equity curve. Zero when the spacing cannot be inferred.
func annualizationFactor(curve []domain.EquityPoint) float64 {
	if len(curve) < 2 {
		return 0
	}
	span := curve[len(curve)-1].Timestamp.Sub(curve[0].Timestamp).Seconds()
	if span <= 0 {
		return 0
	}
	avgSpacing := span / float64(len(curve)-1)
	return math.Sqrt(secondsPerYear / avgSpacing)
}

func sharpe(returns []float64, annualFactor float64) decimal.Decimal {
	mean, std := meanStddev(returns)
	if std == 0 || annualFactor == 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(mean / std * annualFactor)
}

func sortino(returns []float64, annualFactor float64) decimal.Decimal {
	if len(returns) == 0 || annualFactor == 0 {
		return decimal.Zero
	}
	mean, _ := meanStddev(returns)

	// Downside deviation over negative returns only.
	sumSq := 0.0
	for _, r := range returns {
		if r < 0 {
			sumSq += r * r
		}
	}
	downside := math.Sqrt(sumSq / float64(len(returns)))
	if downside == 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(mean / downside * annualFactor)
}

// meanStddev returns the arithmetic mean and the sample standard
// deviation (n-1 denominator).
func meanStddev(xs []float64) (float64, float64) {
	n := len(xs)
	if n == 0 {
		return 0, 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(n)

	if n < 2 {
		return mean, 0
	}
	sumSq := 0.0
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return mean, math.Sqrt(sumSq / float64(n-1))
}

// annualizedReturn converts the total return into a yearly rate using
// the equity curve's span. Falls back to the total return when the
// span cannot be inferred.
func annualizedReturn(totalReturn decimal.Decimal, curve []domain.EquityPoint) decimal.Decimal {
	if len(curve) < 2 {
		return totalReturn
	}
	years := curve[len(curve)-1].Timestamp.Sub(curve[0].Timestamp).Seconds() / secondsPerYear
	if years <= 0 {
		return totalReturn
	}

	tr, _ := totalReturn.Float64()
	if tr <= -1 {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromFloat(math.Pow(1+tr, 1/years) - 1)
}
