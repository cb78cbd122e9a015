package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BacktestResult is the output of one engine run over one date range.
type BacktestResult struct {
	RunID           string
	Config          *BacktestConfig
	Metrics         *PerformanceMetrics
	Trades          []*Trade
	EquityCurve     []EquityPoint
	StartedAt       time.Time
	CompletedAt     time.Time
	EventsProcessed uint64
}

// WalkForwardWindow describes one in-sample/out-of-sample split.
// InSampleEnd always equals OutSampleStart: the legs are contiguous
// with no gap or overlap inside a window.
type WalkForwardWindow struct {
	InSampleStart  time.Time
	InSampleEnd    time.Time
	OutSampleStart time.Time
	OutSampleEnd   time.Time
}

// WindowResult records one fully evaluated window. It is created once
// after both legs complete and never mutated. Windows where either leg
// failed are omitted entirely; no partial entry is recorded.
type WindowResult struct {
	WalkForwardWindow
	InSampleMetrics  *PerformanceMetrics
	OutSampleMetrics *PerformanceMetrics
}

// WalkForwardResult bundles per-window detail, the metrics computed
// from pooled out-of-sample data, and the robustness score.
type WalkForwardResult struct {
	Windows        []*WindowResult
	OverallMetrics *PerformanceMetrics

	// Robustness is sum(out-of-sample returns) / sum(in-sample returns)
	// over windows where both legs succeeded, clamped to [0, 2].
	// Zero when no window qualifies or the in-sample sum is zero.
	Robustness decimal.Decimal

	// WindowsGenerated vs WindowsEvaluated lets callers tell a score
	// computed from a partial window set from a full one.
	WindowsGenerated int
	WindowsEvaluated int
}
