package backtest

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPortfolio_BuySellRealizesPnL(t *testing.T) {
	p := NewPortfolio(dec("10000"))

	p.Buy("SOL/USDC", dec("10"), dec("100"), decimal.Zero)
	if !p.Cash().Equal(dec("9000")) {
		t.Errorf("expected cash 9000 after buy, got %s", p.Cash())
	}
	if !p.Position("SOL/USDC").Equal(dec("10")) {
		t.Errorf("expected position 10, got %s", p.Position("SOL/USDC"))
	}

	pnl := p.Sell("SOL/USDC", dec("10"), dec("120"), decimal.Zero)
	if !pnl.Equal(dec("200")) {
		t.Errorf("expected PnL 200, got %s", pnl)
	}
	if !p.Cash().Equal(dec("10200")) {
		t.Errorf("expected cash 10200 after sell, got %s", p.Cash())
	}
	if !p.Position("SOL/USDC").IsZero() {
		t.Errorf("expected flat position, got %s", p.Position("SOL/USDC"))
	}
}

func TestPortfolio_AverageCostAcrossAdds(t *testing.T) {
	p := NewPortfolio(dec("10000"))

	p.Buy("SOL/USDC", dec("10"), dec("100"), decimal.Zero)
	p.Buy("SOL/USDC", dec("10"), dec("200"), decimal.Zero)

	// avg cost 150; selling 20 at 150 is break-even
	pnl := p.Sell("SOL/USDC", dec("20"), dec("150"), decimal.Zero)
	if !pnl.IsZero() {
		t.Errorf("expected break-even PnL, got %s", pnl)
	}
}

func TestPortfolio_CommissionInCostBasis(t *testing.T) {
	p := NewPortfolio(dec("10000"))

	p.Buy("SOL/USDC", dec("10"), dec("100"), dec("10"))
	pnl := p.Sell("SOL/USDC", dec("10"), dec("100"), dec("10"))

	// round trip at the same price loses both commissions
	if !pnl.Equal(dec("-20")) {
		t.Errorf("expected PnL -20, got %s", pnl)
	}
}

func TestPortfolio_SellClampsToHeld(t *testing.T) {
	p := NewPortfolio(dec("10000"))

	p.Buy("SOL/USDC", dec("5"), dec("100"), decimal.Zero)
	p.Sell("SOL/USDC", dec("50"), dec("100"), decimal.Zero)

	if !p.Position("SOL/USDC").IsZero() {
		t.Errorf("expected flat position, got %s", p.Position("SOL/USDC"))
	}
	if !p.Cash().Equal(dec("10000")) {
		t.Errorf("expected cash restored to 10000, got %s", p.Cash())
	}
}

func TestPortfolio_SellUnknownSymbol(t *testing.T) {
	p := NewPortfolio(dec("10000"))
	if pnl := p.Sell("BTC/USDC", dec("1"), dec("100"), decimal.Zero); !pnl.IsZero() {
		t.Errorf("expected zero PnL for unknown symbol, got %s", pnl)
	}
}

func TestPortfolio_EquityAndDrawdown(t *testing.T) {
	p := NewPortfolio(dec("10000"))

	p.Buy("SOL/USDC", dec("50"), dec("100"), decimal.Zero)
	p.MarkPrice("SOL/USDC", dec("120"))
	if !p.Equity().Equal(dec("11000")) {
		t.Errorf("expected equity 11000, got %s", p.Equity())
	}
	if !p.Drawdown().IsZero() {
		t.Errorf("expected zero drawdown at peak, got %s", p.Drawdown())
	}

	p.MarkPrice("SOL/USDC", dec("60"))
	// equity 8000 against peak 11000
	want := dec("3000").Div(dec("11000"))
	if !p.Drawdown().Equal(want) {
		t.Errorf("expected drawdown %s, got %s", want, p.Drawdown())
	}
}

func TestPortfolio_OpenSymbolsSorted(t *testing.T) {
	p := NewPortfolio(dec("100000"))

	for _, symbol := range []string{"SOL/USDC", "BTC/USDC", "ETH/USDC", "ADA/USDC"} {
		p.Buy(symbol, dec("1"), dec("10"), decimal.Zero)
	}

	want := []string{"ADA/USDC", "BTC/USDC", "ETH/USDC", "SOL/USDC"}
	got := p.OpenSymbols()
	if len(got) != len(want) {
		t.Fatalf("expected %d open symbols, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected sorted symbols %v, got %v", want, got)
		}
	}
}
