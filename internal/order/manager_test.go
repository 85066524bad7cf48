package order

import (
	"testing"

	"github.com/tradecore/engine/internal/money"
)

func newTestOrder(t *testing.T, m *Manager) *Order {
	t.Helper()
	sym := money.NewSymbol("AAPL", "NASDAQ")
	o, err := m.Create(sym, SideBuy, TypeLimit, 100, 15000, money.ScaleEquityCents, 1000)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	m.Track(o)
	return o
}

func TestCreateRejectsBadOrders(t *testing.T) {
	m := NewManager()
	sym := money.NewSymbol("AAPL", "NASDAQ")

	if _, err := m.Create(sym, SideBuy, TypeLimit, 0, 15000, money.ScaleEquityCents, 1); err == nil {
		t.Fatalf("expected error for zero quantity")
	}
	if _, err := m.Create(money.Symbol{}, SideBuy, TypeLimit, 100, 15000, money.ScaleEquityCents, 1); err == nil {
		t.Fatalf("expected error for zero symbol")
	}
}

func TestLegalTransitionTable(t *testing.T) {
	m := NewManager()
	o := newTestOrder(t, m)

	if err := m.MarkSubmitted(o.ClientOrderID, 2000); err != nil {
		t.Fatalf("PENDING->SUBMITTED should be legal: %v", err)
	}
	if err := m.MarkAccepted(o.ClientOrderID, "EXC-1", 3000); err != nil {
		t.Fatalf("SUBMITTED->ACCEPTED should be legal: %v", err)
	}
	if err := m.MarkPartiallyFilled(o.ClientOrderID, 15000, 40, 4000); err != nil {
		t.Fatalf("ACCEPTED->PARTIALLY_FILLED should be legal: %v", err)
	}
	if err := m.MarkFilled(o.ClientOrderID, 15000, 60, 5000); err != nil {
		t.Fatalf("PARTIALLY_FILLED->FILLED should be legal: %v", err)
	}

	got, _ := m.Get(o.ClientOrderID)
	if got.Status != StatusFilled {
		t.Fatalf("status = %v, want FILLED", got.Status)
	}
	if got.FilledQuantity != 100 || got.RemainingQuantity != 0 {
		t.Fatalf("filled=%d remaining=%d, want 100/0", got.FilledQuantity, got.RemainingQuantity)
	}
}

func TestIllegalTransitionLeavesOrderUnchanged(t *testing.T) {
	m := NewManager()
	o := newTestOrder(t, m)

	// PENDING -> ACCEPTED is not in the table.
	err := m.MarkAccepted(o.ClientOrderID, "EXC-1", 2000)
	if err == nil {
		t.Fatalf("expected ErrIllegalTransition")
	}
	if _, ok := err.(*ErrIllegalTransition); !ok {
		t.Fatalf("expected *ErrIllegalTransition, got %T", err)
	}

	got, _ := m.Get(o.ClientOrderID)
	if got.Status != StatusPending {
		t.Fatalf("status mutated on illegal transition: %v", got.Status)
	}
}

func TestFillAveragePriceWeighting(t *testing.T) {
	m := NewManager()
	o := newTestOrder(t, m)
	m.MarkSubmitted(o.ClientOrderID, 10)
	m.MarkAccepted(o.ClientOrderID, "EXC-1", 20)

	// First partial: 40 units @ 150.00 (scale 100 -> 15000).
	if err := m.MarkPartiallyFilled(o.ClientOrderID, 15000, 40, 30); err != nil {
		t.Fatalf("first partial fill: %v", err)
	}
	got, _ := m.Get(o.ClientOrderID)
	if got.AverageFilledPrice != 15000 {
		t.Fatalf("avg after first fill = %d, want 15000", got.AverageFilledPrice)
	}

	// Second partial: 60 units @ 151.00 (15100). Weighted avg:
	// (15000*40 + 15100*60) / 100 = (600000+906000)/100 = 15060.
	if err := m.MarkFilled(o.ClientOrderID, 15100, 60, 40); err != nil {
		t.Fatalf("final fill: %v", err)
	}
	got, _ = m.Get(o.ClientOrderID)
	if got.AverageFilledPrice != 15060 {
		t.Fatalf("avg after second fill = %d, want 15060", got.AverageFilledPrice)
	}
	if got.FilledQuantity+got.RemainingQuantity != got.Quantity {
		t.Fatalf("invariant filled+remaining==quantity violated: %d+%d != %d",
			got.FilledQuantity, got.RemainingQuantity, got.Quantity)
	}
}

func TestListenerPanicDoesNotStopOthers(t *testing.T) {
	m := NewManager()
	var secondCalled bool
	m.AddListener(func(o *Order) { panic("boom") })
	m.AddListener(func(o *Order) { secondCalled = true })

	newTestOrder(t, m)

	if !secondCalled {
		t.Fatalf("second listener should still run after first panics")
	}
}

func TestPurgeTerminalReturnsCountAndFreesSlot(t *testing.T) {
	m := NewManager()
	o := newTestOrder(t, m)
	m.MarkSubmitted(o.ClientOrderID, 10)
	m.MarkCancelled(o.ClientOrderID, 20)

	newTestOrder(t, m) // a second, still-pending order should not be purged

	n := m.PurgeTerminal()
	if n != 1 {
		t.Fatalf("purged = %d, want 1", n)
	}
	if _, ok := m.Get(o.ClientOrderID); ok {
		t.Fatalf("purged order should no longer be tracked")
	}
}
