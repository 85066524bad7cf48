// Package position implements the position manager: one position per
// symbol, trade application across the opening/add/reduce/reverse cases,
// mark-to-market, and cents-normalized aggregate P&L across symbols of
// differing scale. Grounded on the teacher's types.Position record and the
// exitPosition realized-P&L math in core/engine.go, generalized from a
// single always-long-or-flat position per asset to the full signed-quantity
// state machine of spec.md §4.3.
package position

import (
	"fmt"

	"github.com/tradecore/engine/internal/money"
)

// ErrScaleMismatch is returned when a trade's price scale disagrees with a
// non-flat position's existing scale.
type ErrScaleMismatch struct {
	Symbol   money.Symbol
	Existing money.Scale
	Incoming money.Scale
}

func (e *ErrScaleMismatch) Error() string {
	return fmt.Sprintf("position: scale mismatch for %s: existing=%d incoming=%d", e.Symbol, e.Existing, e.Incoming)
}

// Position is one symbol's net holding, carried entirely in that symbol's
// own price scale; aggregation across symbols only ever happens in cents
// (TotalRealizedPnLCents / TotalUnrealizedPnLCents in manager.go).
type Position struct {
	Symbol money.Symbol
	Scale  money.Scale

	Quantity     money.Scaled // signed: + long, - short, 0 flat
	AverageEntry money.Scaled
	TotalCost    int64 // average_entry * |quantity| / scale, native scale units... kept as raw accumulator

	RealizedPnL   money.Scaled
	UnrealizedPnL money.Scaled
	MarketValue   money.Scaled

	OpenedAtTSNs int64
}

// IsFlat reports whether the position currently carries no quantity.
func (p *Position) IsFlat() bool { return p.Quantity == 0 }

// Trade is the minimal information Apply needs about an executed fill.
// Symbol/Side are the caller's responsibility to have already matched
// against p.Symbol before calling Apply.
type Trade struct {
	Price       money.Scaled
	Quantity    money.Scaled // unsigned magnitude
	Scale       money.Scale
	Side        Side
	ExecutedTSNs int64
}

// Side is the trade direction.
type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

// signedQuantity returns the trade's quantity with + for BUY, - for SELL.
func (t Trade) signedQuantity() money.Scaled {
	if t.Side == SideSell {
		return -t.Quantity
	}
	return t.Quantity
}

// Apply folds a trade into the position per the four cases of spec.md §4.3:
// opening, same-sign add, opposite-sign reduce, and opposite-sign reverse.
// Returns ErrScaleMismatch if the trade's scale disagrees with an existing
// non-flat position's scale.
func (p *Position) Apply(t Trade) error {
	if !p.IsFlat() && p.Scale != 0 && t.Scale != p.Scale {
		return &ErrScaleMismatch{Symbol: p.Symbol, Existing: p.Scale, Incoming: t.Scale}
	}
	p.Scale = t.Scale

	tq := t.signedQuantity()
	q := p.Quantity

	switch {
	case q == 0:
		p.applyOpen(t, tq)
	case sameSign(q, tq):
		p.applyAdd(t, tq)
	default:
		p.applyOppositeSign(t, tq)
	}
	return nil
}

func sameSign(a, b money.Scaled) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

// applyOpen handles case A: the position was flat.
func (p *Position) applyOpen(t Trade, tq money.Scaled) {
	p.Quantity = tq
	p.AverageEntry = t.Price
	p.TotalCost = money.Notional(t.Price, money.AbsScaled(tq), t.Scale)
	p.OpenedAtTSNs = t.ExecutedTSNs
}

// applyAdd handles case B: same-sign add, weighted average entry price.
func (p *Position) applyAdd(t Trade, tq money.Scaled) {
	absQ := int64(money.AbsScaled(p.Quantity))
	absTQ := int64(money.AbsScaled(tq))
	newAbs := absQ + absTQ
	if newAbs > 0 {
		weighted := int64(p.AverageEntry)*absQ + int64(t.Price)*absTQ
		p.AverageEntry = money.Scaled(weighted / newAbs)
	}
	p.TotalCost += money.Notional(t.Price, money.AbsScaled(tq), t.Scale)
	p.Quantity += tq
}

// applyOppositeSign handles cases C (reduce) and D (reverse): the trade's
// sign opposes the current position's sign.
func (p *Position) applyOppositeSign(t Trade, tq money.Scaled) {
	q := p.Quantity
	absQ := money.AbsScaled(q)
	absTQ := money.AbsScaled(tq)

	closing := absTQ
	if absQ < closing {
		closing = absQ
	}

	sign := money.SignScaled(q)
	priceDelta := int64(t.Price) - int64(p.AverageEntry)
	realized := priceDelta * int64(closing) * int64(sign)
	p.RealizedPnL += money.Scaled(realized)

	p.Quantity += tq

	if p.Quantity == 0 {
		p.AverageEntry = 0
		p.TotalCost = 0
		return
	}

	if absTQ > absQ {
		// Case D: reverse. Realize full close above already accounted for
		// `closing == absQ`; the remainder opens a new opposite position.
		p.AverageEntry = t.Price
		remainder := absTQ - absQ
		p.TotalCost = money.Notional(t.Price, remainder, t.Scale)
		p.OpenedAtTSNs = t.ExecutedTSNs
	}
}

// MarkToMarket recomputes MarketValue and UnrealizedPnL against the current
// price, in the position's native scale.
func (p *Position) MarkToMarket(currentPrice money.Scaled) {
	p.MarketValue = money.Scaled(money.Notional(currentPrice, money.AbsScaled(p.Quantity), p.Scale))
	if money.SignScaled(p.Quantity) < 0 {
		p.MarketValue = -p.MarketValue
	}
	if p.Quantity == 0 {
		p.UnrealizedPnL = 0
		return
	}
	priceDelta := int64(currentPrice) - int64(p.AverageEntry)
	p.UnrealizedPnL = money.Scaled(priceDelta * int64(money.AbsScaled(p.Quantity)) * int64(money.SignScaled(p.Quantity)))
}
