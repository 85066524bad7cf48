// Package algo implements the execution-algorithm lifecycle state machine
// and the VWAP/TWAP scheduling algorithms that work a parent order down to
// a sequence of child orders against the event ring. Grounded on the
// Strategy interface shape in strategy/interface.go and the orchestration
// loop in core/engine.go, generalized from the teacher's single always-on
// momentum bot to a pluggable, stateful algorithm with an explicit
// INITIALIZED/RUNNING/PAUSED/COMPLETED/CANCELLED/FAILED lifecycle.
package algo

import (
	"sync"

	"github.com/tradecore/engine/internal/event"
	"github.com/tradecore/engine/internal/money"
)

// State is a node in the algorithm lifecycle state machine (spec.md §4.7).
type State uint8

const (
	StateInitialized State = iota
	StateRunning
	StatePaused
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "INITIALIZED"
	case StateRunning:
		return "RUNNING"
	case StatePaused:
		return "PAUSED"
	case StateCompleted:
		return "COMPLETED"
	case StateCancelled:
		return "CANCELLED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// legalLifecycle mirrors spec.md §4.7's transition diagram.
var legalLifecycle = map[State][]State{
	StateInitialized: {StateRunning},
	StateRunning:      {StatePaused, StateCompleted, StateCancelled, StateFailed},
	StatePaused:       {StateRunning, StateCancelled},
}

func canTransitionState(from, to State) bool {
	for _, s := range legalLifecycle[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ErrIllegalLifecycleTransition is returned when a lifecycle method is
// invoked from a state that forbids it.
type ErrIllegalLifecycleTransition struct {
	From State
	To   State
}

func (e *ErrIllegalLifecycleTransition) Error() string {
	return "algo: illegal lifecycle transition " + e.From.String() + " -> " + e.To.String()
}

// Side is an alias of event.Side, so algorithm sides and ring events share
// one type.
type Side = event.Side

const (
	SideBuy  = event.SideBuy
	SideSell = event.SideSell
)

// ChildOrderRequest is what submit_child hands to the context to place a
// child order against a venue.
type ChildOrderRequest struct {
	Symbol   money.Symbol
	Side     Side
	Quantity money.Scaled
	Price    money.Scaled
	Scale    money.Scale
}

// Context is the dependency surface every algorithm receives (spec.md
// §4.8): the latest quote, current time, order submission/cancellation,
// fill callback registration, historical volume for VWAP, and logging
// (logging itself happens via zerolog calls directly in the algorithms).
type Context interface {
	Quote(sym money.Symbol) (event.Quote, bool)
	CurrentTimeNs() int64
	SubmitOrder(req ChildOrderRequest) (clientOrderID uint64, err error)
	CancelOrder(clientOrderID uint64) error
	RegisterFillCallback(fn func(event.Trade))
	HistoricalVolume(sym money.Symbol, buckets int) ([]float64, bool)
}

// Base implements the common execution-algorithm contract (spec.md §4.5):
// construction inputs, lifecycle transitions, benchmark capture, and child
// order submission respecting the limit price and RUNNING-only guard.
// VWAP/TWAP embed Base and add their own scheduling on top.
type Base struct {
	mu sync.Mutex

	Symbol     money.Symbol
	Side       Side
	TargetQty  money.Scaled
	LimitPrice money.Scaled // 0 = none
	Scale      money.Scale
	StartNs    int64
	EndNs      int64

	state State

	BenchmarkPrice money.Scaled
	FilledQty      money.Scaled
	FilledNotional int64 // Σ price*qty/scale, used to compute avg fill price
	OrdersSubmitted int

	FailReason string
	EndedAtNs  int64
}

// NewBase constructs a Base in state INITIALIZED.
func NewBase(sym money.Symbol, side Side, targetQty, limitPrice money.Scaled, scale money.Scale, startNs, endNs int64) Base {
	return Base{
		Symbol:     sym,
		Side:       side,
		TargetQty:  targetQty,
		LimitPrice: limitPrice,
		Scale:      scale,
		StartNs:    startNs,
		EndNs:      endNs,
		state:      StateInitialized,
	}
}

// State returns the current lifecycle state.
func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Initialize captures the benchmark price (mid at init) and transitions
// INITIALIZED -> RUNNING. Re-entering INITIALIZED is forbidden by the
// transition table itself (no state transitions back into it).
func (b *Base) Initialize(ctx Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !canTransitionState(b.state, StateRunning) {
		return &ErrIllegalLifecycleTransition{From: b.state, To: StateRunning}
	}
	if q, ok := ctx.Quote(b.Symbol); ok {
		b.BenchmarkPrice = q.Mid()
	}
	b.state = StateRunning
	return nil
}

// Pause transitions RUNNING -> PAUSED.
func (b *Base) Pause() error { return b.transition(StatePaused) }

// Resume transitions PAUSED -> RUNNING.
func (b *Base) Resume() error { return b.transition(StateRunning) }

// Cancel transitions RUNNING|PAUSED -> CANCELLED.
func (b *Base) Cancel(nowNs int64) error {
	if err := b.transition(StateCancelled); err != nil {
		return err
	}
	b.mu.Lock()
	b.EndedAtNs = nowNs
	b.mu.Unlock()
	return nil
}

// Complete transitions RUNNING -> COMPLETED, recording the end timestamp.
func (b *Base) Complete(nowNs int64) error {
	if err := b.transition(StateCompleted); err != nil {
		return err
	}
	b.mu.Lock()
	b.EndedAtNs = nowNs
	b.mu.Unlock()
	return nil
}

// Fail transitions RUNNING -> FAILED, recording reason and end timestamp.
func (b *Base) Fail(reason string, nowNs int64) error {
	if err := b.transition(StateFailed); err != nil {
		return err
	}
	b.mu.Lock()
	b.FailReason = reason
	b.EndedAtNs = nowNs
	b.mu.Unlock()
	return nil
}

func (b *Base) transition(to State) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !canTransitionState(b.state, to) {
		return &ErrIllegalLifecycleTransition{From: b.state, To: to}
	}
	b.state = to
	return nil
}

// isRunning reports whether the algorithm currently processes quotes/timers.
func (b *Base) isRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateRunning
}

// remaining returns TargetQty - FilledQty, floored at zero.
func (b *Base) remaining() money.Scaled {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.TargetQty - b.FilledQty
	if r < 0 {
		return 0
	}
	return r
}

// SubmitChild places a child order of size qty at price via ctx, respecting
// the limit price (no BUY above / no SELL below) and the RUNNING guard.
// Zero-qty is a no-op. Increments OrdersSubmitted on an actual submission.
func (b *Base) SubmitChild(ctx Context, qty, price money.Scaled) (uint64, error) {
	if qty <= 0 {
		return 0, nil
	}
	if !b.isRunning() {
		return 0, nil
	}
	if b.LimitPrice != 0 {
		if b.Side == SideBuy && price > b.LimitPrice {
			price = b.LimitPrice
		}
		if b.Side == SideSell && price < b.LimitPrice {
			price = b.LimitPrice
		}
	}

	id, err := ctx.SubmitOrder(ChildOrderRequest{
		Symbol: b.Symbol, Side: b.Side, Quantity: qty, Price: price, Scale: b.Scale,
	})
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	b.OrdersSubmitted++
	b.mu.Unlock()
	return id, nil
}

// OnFill always updates filled_quantity and metrics, in any state
// (spec.md §4.7: "Fills may arrive in any state").
func (b *Base) OnFill(price, qty money.Scaled) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.FilledQty += qty
	b.FilledNotional += money.Notional(price, qty, b.Scale)
}

// AverageFillPrice returns the qty-weighted mean fill price, 0 if nothing
// has filled yet.
func (b *Base) AverageFillPrice() money.Scaled {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FilledQty == 0 {
		return 0
	}
	return money.Scaled(b.FilledNotional * int64(b.Scale) / int64(b.FilledQty))
}

// SlippageBps returns ((avg_fill - benchmark) * 10000 / benchmark),
// sign-flipped for sells so positive always means adverse execution
// (spec.md §4.5).
func (b *Base) SlippageBps() int64 {
	b.mu.Lock()
	benchmark := int64(b.BenchmarkPrice)
	b.mu.Unlock()
	if benchmark == 0 {
		return 0
	}
	avg := int64(b.AverageFillPrice())
	bps := (avg - benchmark) * 10000 / benchmark
	if b.Side == SideSell {
		bps = -bps
	}
	return bps
}

// Snapshot is a point-in-time read of an algorithm's progress for the
// management surface (spec.md §11's supplemented algorithm stats),
// generalized from the teacher's Engine.GetStats/PositionInfo read-model
// pattern (core/engine.go) to the per-algorithm fields this execution core
// tracks instead of the teacher's account-wide trade counters.
type Snapshot struct {
	Symbol           money.Symbol
	Side             Side
	State            State
	TargetQty        money.Scaled
	FilledQty        money.Scaled
	RemainingQty     money.Scaled
	OrdersSubmitted  int
	AverageFillPrice money.Scaled
	SlippageBps      int64
	FailReason       string
}

// Snapshot returns b's current progress.
func (b *Base) Snapshot() Snapshot {
	b.mu.Lock()
	snap := Snapshot{
		Symbol:          b.Symbol,
		Side:            b.Side,
		State:           b.state,
		TargetQty:       b.TargetQty,
		FilledQty:       b.FilledQty,
		OrdersSubmitted: b.OrdersSubmitted,
		FailReason:      b.FailReason,
	}
	b.mu.Unlock()

	snap.RemainingQty = b.remaining()
	snap.AverageFillPrice = b.AverageFillPrice()
	snap.SlippageBps = b.SlippageBps()
	return snap
}
