package strategy

import (
	"testing"

	"github.com/tradecore/engine/internal/event"
	"github.com/tradecore/engine/internal/money"
)

func TestParamsTypedAccessorsAndDefaults(t *testing.T) {
	p := NewParams().Set("max_order_size", "500").Set("enabled", "true").Set("ratio", "0.25")

	if got := p.GetLong("max_order_size", 1); got != 500 {
		t.Fatalf("GetLong = %d, want 500", got)
	}
	if got := p.GetInt("missing", 42); got != 42 {
		t.Fatalf("GetInt default = %d, want 42", got)
	}
	if got := p.GetBool("enabled", false); !got {
		t.Fatalf("GetBool = false, want true")
	}
	if got := p.GetDouble("ratio", 0); got != 0.25 {
		t.Fatalf("GetDouble = %v, want 0.25", got)
	}
	if got := p.GetString("missing", "fallback"); got != "fallback" {
		t.Fatalf("GetString default = %q, want fallback", got)
	}
}

func TestBaseReconcileSubmitsSizedAndCappedOrder(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	var submitted []struct {
		side  Side
		qty   money.Scaled
		price money.Scaled
	}
	submit := func(s money.Symbol, side Side, qty, price money.Scaled, scale money.Scale) (uint64, error) {
		submitted = append(submitted, struct {
			side  Side
			qty   money.Scaled
			price money.Scaled
		}{side, qty, price})
		return 1, nil
	}

	params := NewParams().Set("max_order_size", "10")
	b := NewBase("test", []money.Symbol{sym}, params, submit)
	b.cacheQuote(sym, event.Quote{BidPrice: 99, AskPrice: 101, PriceScale: money.ScaleEquityCents})

	b.reconcile(sym, 100) // current=0, delta=100, capped to max_order_size=10
	if len(submitted) != 1 {
		t.Fatalf("expected one submission, got %d", len(submitted))
	}
	if submitted[0].qty != 10 {
		t.Fatalf("qty = %d, want capped to 10", submitted[0].qty)
	}
	if submitted[0].side != SideBuy {
		t.Fatalf("side = %v, want buy (target above current)", submitted[0].side)
	}
	if submitted[0].price != 101 {
		t.Fatalf("price = %d, want ask price 101 for a buy", submitted[0].price)
	}
}

func TestBaseReconcileNoOpWhenAtTarget(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	calls := 0
	submit := func(s money.Symbol, side Side, qty, price money.Scaled, scale money.Scale) (uint64, error) {
		calls++
		return 1, nil
	}
	b := NewBase("test", []money.Symbol{sym}, NewParams(), submit)
	b.cacheQuote(sym, event.Quote{BidPrice: 99, AskPrice: 101, PriceScale: money.ScaleEquityCents})

	b.reconcile(sym, 0) // current already 0
	if calls != 0 {
		t.Fatalf("expected no submission when already at target, got %d", calls)
	}
}

func TestBaseReconcileSellsAtBidWhenTargetBelowCurrent(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	var gotSide Side
	var gotPrice money.Scaled
	submit := func(s money.Symbol, side Side, qty, price money.Scaled, scale money.Scale) (uint64, error) {
		gotSide = side
		gotPrice = price
		return 1, nil
	}
	params := NewParams().Set("max_order_size", "1000")
	b := NewBase("test", []money.Symbol{sym}, params, submit)
	b.cacheQuote(sym, event.Quote{BidPrice: 99, AskPrice: 101, PriceScale: money.ScaleEquityCents})
	b.ApplyFill(sym, SideBuy, 100, 50, money.ScaleEquityCents, 0) // current=50

	b.reconcile(sym, 0) // target below current -> sell
	if gotSide != SideSell {
		t.Fatalf("side = %v, want sell", gotSide)
	}
	if gotPrice != 99 {
		t.Fatalf("price = %d, want bid price 99 for a sell", gotPrice)
	}
}
