package backtest

import (
	"testing"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/events"
)

func mdEvent(open, volume string) *events.MarketDataEvent {
	return &events.MarketDataEvent{
		Symbol: "SOL/USDC",
		Bar: &domain.OHLCV{
			Open:   dec(open),
			Volume: dec(volume),
		},
	}
}

func TestFixedSlippage(t *testing.T) {
	model := &FixedSlippage{Bps: dec("10")}
	got := model.Calculate(&domain.Order{}, mdEvent("200", "1000"))
	// 10 bps of 200 = 0.2
	if !got.Equal(dec("0.2")) {
		t.Errorf("expected 0.2, got %s", got)
	}
}

func TestVolumeImpactSlippage(t *testing.T) {
	model := &VolumeImpactSlippage{
		ImpactFactor:   dec("0.1"),
		VolumeFraction: dec("0.5"),
	}
	order := &domain.Order{Quantity: dec("50")}
	// participation = 50 / (1000 * 0.5) = 0.1; impact = 100 * 0.1 * 0.1 = 1
	got := model.Calculate(order, mdEvent("100", "1000"))
	if !got.Equal(dec("1")) {
		t.Errorf("expected 1, got %s", got)
	}
}

func TestVolumeImpactSlippage_ZeroVolume(t *testing.T) {
	model := &VolumeImpactSlippage{
		ImpactFactor:   dec("0.1"),
		VolumeFraction: dec("0.5"),
	}
	got := model.Calculate(&domain.Order{Quantity: dec("50")}, mdEvent("100", "0"))
	if !got.IsZero() {
		t.Errorf("expected zero slippage on zero volume, got %s", got)
	}
}

func TestNewSlippageModel(t *testing.T) {
	if _, ok := NewSlippageModel(domain.SlippageConfig{Model: "volume_impact"}).(*VolumeImpactSlippage); !ok {
		t.Error("expected volume impact model")
	}
	if _, ok := NewSlippageModel(domain.SlippageConfig{}).(*FixedSlippage); !ok {
		t.Error("expected fixed model as default")
	}

	zero := NewSlippageModel(domain.SlippageConfig{})
	if got := zero.Calculate(&domain.Order{}, mdEvent("100", "1000")); !got.IsZero() {
		t.Errorf("expected zero slippage from empty config, got %s", got)
	}
}

func TestVolumeImpact_MissingBar(t *testing.T) {
	model := &VolumeImpactSlippage{ImpactFactor: dec("0.1"), VolumeFraction: dec("0.5")}
	got := model.Calculate(&domain.Order{Quantity: decimal.NewFromInt(1)}, &events.MarketDataEvent{})
	if !got.IsZero() {
		t.Errorf("expected zero slippage without a bar, got %s", got)
	}
}
