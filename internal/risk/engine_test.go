package risk

import (
	"testing"
	"time"

	"github.com/tradecore/engine/internal/money"
)

type fakePositions struct {
	qty            money.Scaled
	realizedCents  int64
	unrealizedCents int64
}

func (f fakePositions) CurrentQuantity(sym money.Symbol) money.Scaled { return f.qty }
func (f fakePositions) TotalRealizedPnLCents() int64                 { return f.realizedCents }
func (f fakePositions) TotalUnrealizedPnLCents() int64               { return f.unrealizedCents }

func testLimits() Limits {
	return Limits{
		MaxOrderSize:      100,
		MaxOrderNotional:  100_000,
		MaxPositionSize:   1_000,
		MaxOrdersPerDay:   10,
		MaxDailyNotional:  1_000_000,
		MaxDailyLossCents: 50_000,
		MaxNetExposureCents: 10_000_000,
	}
}

func TestS7OrderSizeRejectedBeforeNotional(t *testing.T) {
	// S7: qty=200, price=10, max_order_size=100, max_order_notional=100_000.
	// Notional = 200*10 = 2000, well under 100_000 -- so max-order-size must
	// fire first, deterministically, per the fixed rule order.
	sym := money.NewSymbol("AAPL", "NASDAQ")
	e := NewEngine(testLimits(), 3, time.Minute, fakePositions{})

	result := e.CheckPreTrade(OrderRequest{Symbol: sym, Quantity: 200, Price: 10, PriceScale: 1})
	if result.Approved() {
		t.Fatalf("expected rejection")
	}
	if result.RuleName != "max-order-size" {
		t.Fatalf("rule = %q, want max-order-size", result.RuleName)
	}
}

func TestRuleOrderEngineDisabledFirst(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	e := NewEngine(testLimits(), 3, time.Minute, fakePositions{})
	e.Disable()

	result := e.CheckPreTrade(OrderRequest{Symbol: sym, Quantity: 1, Price: 10, PriceScale: 1})
	if result.RuleName != "engine-enabled" {
		t.Fatalf("rule = %q, want engine-enabled", result.RuleName)
	}
}

func TestApprovedOrderIncrementsCounterAndBreakerSuccess(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	e := NewEngine(testLimits(), 3, time.Minute, fakePositions{})

	result := e.CheckPreTrade(OrderRequest{Symbol: sym, Quantity: 10, Price: 10, PriceScale: 1})
	if !result.Approved() {
		t.Fatalf("expected approval, got reject: %s/%s", result.RuleName, result.Reason)
	}
	if e.OrdersSubmittedToday() != 1 {
		t.Fatalf("orders today = %d, want 1", e.OrdersSubmittedToday())
	}
}

func TestDailyLossRuleRejectsWhenBreached(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	pos := fakePositions{realizedCents: -60_000}
	e := NewEngine(testLimits(), 3, time.Minute, pos)

	result := e.CheckPreTrade(OrderRequest{Symbol: sym, Quantity: 10, Price: 10, PriceScale: 1})
	if result.Approved() {
		t.Fatalf("expected rejection on daily loss breach")
	}
	if result.RuleName != "daily-loss" {
		t.Fatalf("rule = %q, want daily-loss", result.RuleName)
	}
}

func TestCircuitBreakerOpensAfterThresholdAndReopensOnHalfOpenFailure(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	// Force every check to be rejected via a position size already past the
	// cap, so every CheckPreTrade call records a circuit-breaker failure.
	pos := fakePositions{qty: 1001}
	e := NewEngine(testLimits(), 2, 10*time.Millisecond, pos)

	for i := 0; i < 2; i++ {
		e.CheckPreTrade(OrderRequest{Symbol: sym, Quantity: 10, Price: 10, PriceScale: 1})
	}

	state, _ := e.Breaker().State()
	if state != BreakerOpen {
		t.Fatalf("breaker state = %v, want OPEN after threshold failures", state)
	}

	result := e.CheckPreTrade(OrderRequest{Symbol: sym, Quantity: 10, Price: 10, PriceScale: 1})
	if result.RuleName != "circuit-breaker-closed" {
		t.Fatalf("expected rejection by breaker while OPEN, got %q", result.RuleName)
	}

	time.Sleep(20 * time.Millisecond)

	// A second engine whose position is also past the cap: trip it, wait
	// out the cooldown, and check that the failed half-open trial re-opens it.
	e2 := NewEngine(testLimits(), 2, 10*time.Millisecond, fakePositions{qty: 1001})
	for i := 0; i < 2; i++ {
		e2.CheckPreTrade(OrderRequest{Symbol: sym, Quantity: 10, Price: 10, PriceScale: 1})
	}
	time.Sleep(20 * time.Millisecond)
	// Half-open trial; the position rule still rejects it.
	result2 := e2.CheckPreTrade(OrderRequest{Symbol: sym, Quantity: 10, Price: 10, PriceScale: 1})
	// Position is still at cap so this trial also fails and the breaker
	// stays open (re-opens immediately on half-open failure).
	if result2.Approved() {
		t.Fatalf("expected rejection since position is still at the cap")
	}
	state2, _ := e2.Breaker().State()
	if state2 != BreakerOpen {
		t.Fatalf("breaker state = %v, want OPEN after half-open failure", state2)
	}
}

func TestPostTradeRecordFillAccumulatesDailyNotional(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	e := NewEngine(testLimits(), 3, time.Minute, fakePositions{})
	e.RecordFill(sym, 50, 100, 1)
	e.RecordFill(sym, 50, 100, 1)
	// Both fills total 10_000 notional; confirm accounting by forcing a
	// daily-notional limit just below that and observing rejection.
	e2 := NewEngine(Limits{
		MaxOrderSize: 1000, MaxOrderNotional: 1_000_000, MaxPositionSize: 1_000_000,
		MaxOrdersPerDay: 10, MaxDailyNotional: 9_999, MaxDailyLossCents: 1_000_000,
		MaxNetExposureCents: 1_000_000,
	}, 3, time.Minute, fakePositions{})
	e2.RecordFill(sym, 50, 100, 1)
	e2.RecordFill(sym, 50, 100, 1)
	result := e2.CheckPreTrade(OrderRequest{Symbol: sym, Quantity: 1, Price: 1, PriceScale: 1})
	if result.Approved() {
		t.Fatalf("expected daily-notional rejection")
	}
	if result.RuleName != "daily-notional" {
		t.Fatalf("rule = %q, want daily-notional", result.RuleName)
	}
}

func TestSnapshotReflectsCountersAndBreakerState(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	e := NewEngine(testLimits(), 2, time.Minute, fakePositions{})

	e.CheckPreTrade(OrderRequest{Symbol: sym, Quantity: 10, Price: 10, PriceScale: 1})
	e.RecordFill(sym, 10, 10, 1)

	snap := e.Snapshot()
	if !snap.Enabled {
		t.Fatal("expected engine to be enabled")
	}
	if snap.OrdersSubmittedToday != 1 {
		t.Fatalf("expected 1 order submitted, got %d", snap.OrdersSubmittedToday)
	}
	if snap.DailyNotional != 100 {
		t.Fatalf("expected daily notional 100, got %d", snap.DailyNotional)
	}
	if snap.Breaker.State != BreakerClosed {
		t.Fatalf("expected breaker closed, got %v", snap.Breaker.State)
	}
}

func TestBreakerSnapshotReflectsTripReason(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	cb.Trip("manual test trip")

	snap := cb.Snapshot()
	if snap.State != BreakerOpen {
		t.Fatalf("expected OPEN, got %v", snap.State)
	}
	if snap.Reason != "manual test trip" {
		t.Fatalf("expected reason to be recorded, got %q", snap.Reason)
	}
}
