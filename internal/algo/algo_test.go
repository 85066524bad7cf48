package algo

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tradecore/engine/internal/event"
	"github.com/tradecore/engine/internal/money"
)

type fakeCtx struct {
	quote event.Quote
	have  bool
	subs  []ChildOrderRequest
	nextID uint64
}

func (f *fakeCtx) Quote(sym money.Symbol) (event.Quote, bool) { return f.quote, f.have }
func (f *fakeCtx) CurrentTimeNs() int64                       { return f.quote.ReceivedTSNs }
func (f *fakeCtx) SubmitOrder(req ChildOrderRequest) (uint64, error) {
	f.nextID++
	f.subs = append(f.subs, req)
	return f.nextID, nil
}
func (f *fakeCtx) CancelOrder(id uint64) error               { return nil }
func (f *fakeCtx) RegisterFillCallback(fn func(event.Trade)) {}
func (f *fakeCtx) HistoricalVolume(sym money.Symbol, buckets int) ([]float64, bool) {
	return nil, false
}

func TestLifecycleIllegalReentryIntoInitialized(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	b := NewBase(sym, SideBuy, 1000, 0, money.ScaleEquityCents, 0, 10_000_000_000)
	ctx := &fakeCtx{quote: event.Quote{BidPrice: 100, AskPrice: 101}, have: true}

	if err := b.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if b.State() != StateRunning {
		t.Fatalf("state = %v, want RUNNING", b.State())
	}
	// There is no legal transition back to INITIALIZED from anywhere.
	if canTransitionState(StateRunning, StateInitialized) {
		t.Fatalf("RUNNING -> INITIALIZED should never be legal")
	}
}

func TestPauseResumeCancel(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	b := NewBase(sym, SideBuy, 1000, 0, money.ScaleEquityCents, 0, 10_000_000_000)
	ctx := &fakeCtx{quote: event.Quote{BidPrice: 100, AskPrice: 101}, have: true}
	b.Initialize(ctx)

	if err := b.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := b.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if err := b.Cancel(5); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if b.State() != StateCancelled {
		t.Fatalf("state = %v, want CANCELLED", b.State())
	}
	// Cancel again should fail: terminal state has no outgoing transitions.
	if err := b.Cancel(6); err == nil {
		t.Fatalf("expected error cancelling an already-terminal algorithm")
	}
}

func TestVWAPScheduleSumsToTarget(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	v := NewVWAP(sym, SideBuy, 1000, 0, money.ScaleEquityCents, 0, 10_000_000_000, nil, decimal.NewFromFloat(0.5))

	var sum int64
	for _, s := range v.scheduled {
		sum += int64(s)
	}
	if sum != 1000 {
		t.Fatalf("scheduled sum = %d, want 1000", sum)
	}
}

func TestVWAPSubmitsChildRespectingParticipationCap(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	v := NewVWAP(sym, SideBuy, 1000, 0, money.ScaleEquityCents, 0, 10_000_000_000, nil, decimal.NewFromFloat(0.1))
	ctx := &fakeCtx{quote: event.Quote{BidPrice: 100, AskPrice: 101, AskSize: 50, BidSize: 50, ReceivedTSNs: 0}, have: true}
	v.Initialize(ctx)

	v.OnQuote(ctx, 0, 50, 50)
	if len(ctx.subs) != 1 {
		t.Fatalf("expected one child order, got %d", len(ctx.subs))
	}
	// cap = 0.1 * 50 = 5
	if int64(ctx.subs[0].Quantity) > 5 {
		t.Fatalf("child quantity %d exceeds participation cap of 5", ctx.subs[0].Quantity)
	}
}

func TestVWAPCompletesAtEndRegardlessOfFill(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	v := NewVWAP(sym, SideBuy, 1000, 0, money.ScaleEquityCents, 0, 100, nil, decimal.NewFromFloat(1))
	ctx := &fakeCtx{quote: event.Quote{BidPrice: 100, AskPrice: 101}, have: true}
	v.Initialize(ctx)

	v.OnTimer(200) // now >= end(100)
	if v.State() != StateCompleted {
		t.Fatalf("state = %v, want COMPLETED", v.State())
	}
}

func TestTWAPBucketCountAndRemainderDistribution(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	// duration 100ns, slice interval 30ns -> 3 buckets; target 10 -> 3,3,4? base=3 rem=1 -> first bucket gets +1: 4,3,3
	twap := NewTWAP(sym, SideBuy, 10, 0, money.ScaleEquityCents, 0, 100, 30, decimal.NewFromFloat(1))
	if twap.buckets != 3 {
		t.Fatalf("buckets = %d, want 3", twap.buckets)
	}
	var sum int64
	for _, s := range twap.scheduled {
		sum += int64(s)
	}
	if sum != 10 {
		t.Fatalf("scheduled sum = %d, want 10", sum)
	}
	if twap.scheduled[0] != 4 {
		t.Fatalf("first bucket = %d, want 4 (remainder distributed to front)", twap.scheduled[0])
	}
}

func TestSlippageBpsSignFlipForSell(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	b := NewBase(sym, SideSell, 100, 0, money.ScaleEquityCents, 0, 1000)
	ctx := &fakeCtx{quote: event.Quote{BidPrice: 10000, AskPrice: 10010}, have: true}
	b.Initialize(ctx) // benchmark = mid = 10005
	b.OnFill(9900, 100) // sold below benchmark: adverse for a sell

	bps := b.SlippageBps()
	if bps <= 0 {
		t.Fatalf("expected positive (adverse) slippage bps for a sell filled below benchmark, got %d", bps)
	}
}

func TestTWAPCatchupExcludesCurrentBucketS5(t *testing.T) {
	// S5: duration=600s, interval=60s -> 10 buckets of 60, target=600, zero
	// fills, entering bucket index 2 (120ns elapsed, ns standing in for s).
	// expected = scheduled[0]+scheduled[1] = 120 (work due before the
	// current bucket); behind = 120; bucketsRemaining = 10-2 = 8;
	// catchup = 120/8 = 15; bucketRemaining = scheduled[2] = 60;
	// child = min(remaining, 60+15) = 75.
	sym := money.NewSymbol("AAPL", "NASDAQ")
	twap := NewTWAP(sym, SideBuy, 600, 0, money.ScaleEquityCents, 0, 600, 60, decimal.NewFromFloat(1))
	ctx := &fakeCtx{quote: event.Quote{BidPrice: 100, AskPrice: 101, AskSize: 1000, BidSize: 1000}, have: true}
	twap.Initialize(ctx)

	twap.OnQuote(ctx, 120, 1000, 1000)
	if len(ctx.subs) != 1 {
		t.Fatalf("expected one child order, got %d", len(ctx.subs))
	}
	if int64(ctx.subs[0].Quantity) != 75 {
		t.Fatalf("child quantity = %d, want 75", ctx.subs[0].Quantity)
	}
}

func TestSnapshotReflectsProgressAndRemaining(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	b := NewBase(sym, SideBuy, 1000, 0, money.ScaleEquityCents, 0, 10_000_000_000)
	ctx := &fakeCtx{quote: event.Quote{BidPrice: 100, AskPrice: 101}, have: true}
	b.Initialize(ctx)
	b.SubmitChild(ctx, 400, 101)
	b.OnFill(101, 400)

	snap := b.Snapshot()
	if snap.State != StateRunning {
		t.Fatalf("state = %v, want RUNNING", snap.State)
	}
	if snap.FilledQty != 400 {
		t.Fatalf("filled = %d, want 400", snap.FilledQty)
	}
	if snap.RemainingQty != 600 {
		t.Fatalf("remaining = %d, want 600", snap.RemainingQty)
	}
	if snap.OrdersSubmitted != 1 {
		t.Fatalf("orders submitted = %d, want 1", snap.OrdersSubmitted)
	}
}
