package domain

import "github.com/shopspring/decimal"

// PerformanceMetrics summarizes a trade list and equity curve.
// All monetary and return values are decimals; binary floating point
// would drift over thousands of pooled trades and corrupt the
// robustness ratio computed from these fields.
type PerformanceMetrics struct {
	TotalReturn      decimal.Decimal // final equity / initial capital - 1
	AnnualizedReturn decimal.Decimal
	MaxDrawdown      decimal.Decimal // worst peak-to-trough fraction, >= 0
	SharpeRatio      decimal.Decimal
	SortinoRatio     decimal.Decimal
	ProfitFactor     decimal.Decimal // gross profit / gross loss
	WinRate          decimal.Decimal

	TotalTrades   int
	WinningTrades int
	LosingTrades  int

	GrossProfit decimal.Decimal
	GrossLoss   decimal.Decimal
	NetProfit   decimal.Decimal

	StartingCapital decimal.Decimal
	FinalEquity     decimal.Decimal
}
