package strategy

import (
	"math"
	"testing"

	"github.com/tradecore/engine/internal/event"
	"github.com/tradecore/engine/internal/money"
)

func TestMomentumFirstObservationSeedsBothEMAsEqual(t *testing.T) {
	sym := money.NewSymbol("BTC-USD", "COINBASE")
	m := NewMomentum([]money.Symbol{sym}, NewParams(), noopSubmit)

	m.OnQuote(sym, event.Quote{BidPrice: 10000, AskPrice: 10010, PriceScale: money.Scale(100)})

	pair := m.pairFor(sym)
	if pair.short != pair.long {
		t.Fatalf("first observation should seed short == long, got short=%v long=%v", pair.short, pair.long)
	}
}

func TestMomentumSignalZeroedBelowThreshold(t *testing.T) {
	sym := money.NewSymbol("BTC-USD", "COINBASE")
	params := NewParams().Set("signal_threshold", "0.10")
	m := NewMomentum([]money.Symbol{sym}, params, noopSubmit)

	pair := &emaPair{short: 101, long: 100} // spread = 1%, below 10% threshold
	if got := m.signal(pair); got != 0 {
		t.Fatalf("signal = %v, want 0 below threshold", got)
	}
}

func TestMomentumSignalClippedToUnitRange(t *testing.T) {
	sym := money.NewSymbol("BTC-USD", "COINBASE")
	m := NewMomentum([]money.Symbol{sym}, NewParams(), noopSubmit)

	pair := &emaPair{short: 120, long: 100} // spread = 20%, raw = 20/5 = 4 -> clipped to 1
	got := m.signal(pair)
	if got != 1 {
		t.Fatalf("signal = %v, want clipped to 1", got)
	}
}

func TestMomentumUptrendDrivesPositiveTarget(t *testing.T) {
	sym := money.NewSymbol("BTC-USD", "COINBASE")
	var lastQty money.Scaled
	var lastSide Side
	submit := func(s money.Symbol, side Side, qty, price money.Scaled, scale money.Scale) (uint64, error) {
		lastQty, lastSide = qty, side
		return 1, nil
	}
	params := NewParams().Set("max_position_size", "1000").Set("signal_threshold", "0.01")
	m := NewMomentum([]money.Symbol{sym}, params, submit)

	// Feed a steadily rising series so the short EMA pulls above the long EMA.
	price := money.Scaled(10000)
	for i := 0; i < 30; i++ {
		price += 50
		m.OnQuote(sym, event.Quote{BidPrice: price - 5, AskPrice: price + 5, PriceScale: money.Scale(100)})
	}

	if lastQty == 0 {
		t.Fatalf("expected a reconciliation order for a clear uptrend")
	}
	if lastSide != SideBuy {
		t.Fatalf("side = %v, want buy for an uptrend signal", lastSide)
	}
}

func noopSubmit(sym money.Symbol, side Side, qty, price money.Scaled, scale money.Scale) (uint64, error) {
	return 1, nil
}

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}
