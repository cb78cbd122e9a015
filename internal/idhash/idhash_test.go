package idhash

import (
	"testing"
	"time"

	"backtest-lab/internal/domain"
)

func testConfig() *domain.BacktestConfig {
	return &domain.BacktestConfig{
		Strategy:  domain.StrategyConfig{Name: "sma_cross"},
		Symbols:   []string{"BTC-USD", "ETH-USD"},
		Timeframe: domain.Timeframe1h,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestComputeRunID_Deterministic(t *testing.T) {
	a := ComputeRunID(testConfig())
	b := ComputeRunID(testConfig())

	if a != b {
		t.Errorf("same config produced different run IDs: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64-char hex ID, got %d chars", len(a))
	}
}

func TestComputeRunID_SensitiveToRange(t *testing.T) {
	base := ComputeRunID(testConfig())

	shifted := testConfig()
	shifted.EndDate = shifted.EndDate.Add(24 * time.Hour)

	if ComputeRunID(shifted) == base {
		t.Error("changing the date range must change the run ID")
	}
}

func TestComputeOrderID_Deterministic(t *testing.T) {
	a := ComputeOrderID("run1", 1)
	b := ComputeOrderID("run1", 1)

	if a != b {
		t.Error("same inputs produced different order IDs")
	}
	if len(a) != 64 {
		t.Errorf("expected 64-char hex ID, got %d chars", len(a))
	}
	if ComputeOrderID("run1", 2) == a {
		t.Error("different sequence numbers produced the same order ID")
	}
	if ComputeOrderID("run2", 1) == a {
		t.Error("different runs produced the same order ID")
	}
}

func TestComputeTradeID_Deterministic(t *testing.T) {
	a := ComputeTradeID("run1", "order1", 1700000000000)
	b := ComputeTradeID("run1", "order1", 1700000000000)
	c := ComputeTradeID("run1", "order2", 1700000000000)

	if a != b {
		t.Error("same inputs produced different trade IDs")
	}
	if a == c {
		t.Error("different order IDs produced the same trade ID")
	}
}
