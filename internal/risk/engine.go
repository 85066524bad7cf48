// Package risk implements the pre-trade rule chain, post-trade accounting,
// and three-state circuit breaker that gate every order before it reaches a
// venue. Grounded on risk/gate.go's TradeRequest/TradeApproval shape and
// risk/manager.go's daily counters, tightened to the fixed eight-rule order
// of spec.md §4.4 in place of the teacher's single ad-hoc approval method.
package risk

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradecore/engine/internal/money"
)

// Verdict is the outcome of a pre-trade check.
type Verdict uint8

const (
	VerdictApproved Verdict = iota
	VerdictRejected
)

// CheckResult is the return value of CheckPreTrade.
type CheckResult struct {
	Verdict  Verdict
	RuleName string
	Reason   string
}

// Approved reports whether the order passed every rule.
func (r CheckResult) Approved() bool { return r.Verdict == VerdictApproved }

func approved() CheckResult { return CheckResult{Verdict: VerdictApproved} }

func rejected(rule, reason string) CheckResult {
	return CheckResult{Verdict: VerdictRejected, RuleName: rule, Reason: reason}
}

// OrderRequest is the minimal shape CheckPreTrade needs from an order,
// decoupled from internal/order's concrete Order type so this package has
// no import-cycle risk and can be exercised with synthetic requests in
// tests.
type OrderRequest struct {
	Symbol     money.Symbol
	Quantity   money.Scaled
	Price      money.Scaled
	PriceScale money.Scale
	SignedDelta money.Scaled // the position-quantity delta this order would apply if filled
}

// PositionView answers the projected-position-size rule without importing
// internal/position directly.
type PositionView interface {
	CurrentQuantity(sym money.Symbol) money.Scaled
	TotalRealizedPnLCents() int64
	TotalUnrealizedPnLCents() int64
}

// Engine holds RiskLimits, daily counters, and the circuit breaker, and
// evaluates every order against the fixed rule chain of spec.md §4.4.
type Engine struct {
	mu     sync.Mutex
	limits Limits

	enabled atomic.Bool

	ordersSubmittedToday int
	dailyNotional        int64

	breaker *CircuitBreaker
	pos     PositionView
}

// NewEngine builds a risk Engine, enabled by default, wired to pos for
// position-size and P&L lookups.
func NewEngine(limits Limits, breakerThreshold int, breakerCooldown time.Duration, pos PositionView) *Engine {
	e := &Engine{
		limits:  limits,
		breaker: NewCircuitBreaker(breakerThreshold, breakerCooldown),
		pos:     pos,
	}
	e.enabled.Store(true)
	return e
}

// Disable turns off order submission entirely (rule 1: engine-enabled).
func (e *Engine) Disable() { e.enabled.Store(false) }

// Enable turns order submission back on.
func (e *Engine) Enable() { e.enabled.Store(true) }

// Breaker exposes the underlying circuit breaker for administrative use
// (manual trip/reset, state inspection).
func (e *Engine) Breaker() *CircuitBreaker { return e.breaker }

// CheckPreTrade evaluates req against the fixed rule chain, stopping at the
// first rejection. On Approved, increments the daily order counter and
// records a circuit-breaker success; on Rejected, records a failure.
func (e *Engine) CheckPreTrade(req OrderRequest) CheckResult {
	result := e.evaluate(req)

	if result.Approved() {
		e.mu.Lock()
		e.ordersSubmittedToday++
		e.mu.Unlock()
		e.breaker.RecordSuccess()
	} else {
		e.breaker.RecordFailure(result.Reason)
	}
	return result
}

func (e *Engine) evaluate(req OrderRequest) CheckResult {
	if !e.enabled.Load() {
		return rejected("engine-enabled", "risk engine is disabled")
	}

	if allowed, state := e.breaker.CheckAllowed(); !allowed {
		return rejected("circuit-breaker-closed", "circuit breaker is "+state.String())
	}

	e.mu.Lock()
	ordersToday := e.ordersSubmittedToday
	notionalToday := e.dailyNotional
	e.mu.Unlock()

	if ordersToday >= e.limits.MaxOrdersPerDay {
		return rejected("max-orders-per-day", "daily order count limit reached")
	}

	if int64(req.Quantity) > e.limits.MaxOrderSize {
		return rejected("max-order-size", "order quantity exceeds max order size")
	}

	orderNotional := money.Notional(req.Price, req.Quantity, req.PriceScale)
	if orderNotional > e.limits.MaxOrderNotional {
		return rejected("max-order-notional", "order notional exceeds max order notional")
	}

	if e.pos != nil {
		current := e.pos.CurrentQuantity(req.Symbol)
		projected := money.AbsScaled(current + req.SignedDelta)
		if int64(projected) > e.limits.MaxPositionSize {
			return rejected("projected-position-size", "projected position size exceeds limit")
		}
	}

	if notionalToday+orderNotional > e.limits.MaxDailyNotional {
		return rejected("daily-notional", "daily traded notional would exceed limit")
	}

	if e.pos != nil {
		totalPnLCents := e.pos.TotalRealizedPnLCents() + e.pos.TotalUnrealizedPnLCents()
		if totalPnLCents < -e.limits.MaxDailyLossCents {
			return rejected("daily-loss", "total pnl breaches max daily loss")
		}
	}

	return approved()
}

// RecordFill adds qty*price/scale to the day's traded notional (post-trade
// accounting, spec.md §4.4).
func (e *Engine) RecordFill(sym money.Symbol, qty, price money.Scaled, scale money.Scale) {
	notional := money.Notional(price, qty, scale)
	e.mu.Lock()
	e.dailyNotional += notional
	e.mu.Unlock()
}

// CheckGlobalLimits re-evaluates daily-loss and net-exposure and disables
// trading if either is breached, logging the reason.
func (e *Engine) CheckGlobalLimits(netExposureCents int64) {
	if e.pos == nil {
		return
	}
	totalPnLCents := e.pos.TotalRealizedPnLCents() + e.pos.TotalUnrealizedPnLCents()
	if totalPnLCents < -e.limits.MaxDailyLossCents {
		log.Warn().Int64("total_pnl_cents", totalPnLCents).Msg("risk: global daily loss limit breached, disabling trading")
		e.Disable()
		return
	}
	if money.AbsScaled(money.Scaled(netExposureCents)) > money.Scaled(e.limits.MaxNetExposureCents) {
		log.Warn().Int64("net_exposure_cents", netExposureCents).Msg("risk: global net exposure limit breached, disabling trading")
		e.Disable()
	}
}

// ResetDailyCounters zeros the orders/day and notional/day counters, called
// at market open.
func (e *Engine) ResetDailyCounters() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ordersSubmittedToday = 0
	e.dailyNotional = 0
}

// OrdersSubmittedToday returns the current day's approved-order count.
func (e *Engine) OrdersSubmittedToday() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ordersSubmittedToday
}

// Snapshot is a point-in-time read of the engine's daily counters, enabled
// flag, limits, and breaker state for the management surface, generalized
// from the teacher's CircuitBreaker.GetStats (a single consecutive-losses/
// daily-loss/tripped tuple) to the full Limits rule set this engine
// evaluates.
type Snapshot struct {
	Enabled              bool
	OrdersSubmittedToday int
	DailyNotional        int64
	Limits               Limits
	Breaker              BreakerSnapshot
}

// Snapshot returns the engine's current state for display/export.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	ordersToday := e.ordersSubmittedToday
	notionalToday := e.dailyNotional
	e.mu.Unlock()

	return Snapshot{
		Enabled:              e.enabled.Load(),
		OrdersSubmittedToday: ordersToday,
		DailyNotional:        notionalToday,
		Limits:               e.limits,
		Breaker:              e.breaker.Snapshot(),
	}
}
