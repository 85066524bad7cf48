// Package strategy implements the trading-strategy plug-in interface and
// the Momentum/MeanReversion signal generators, grounded on the Strategy
// interface shape in strategy/interface.go (Name/OnTick/Enabled/Config) and
// the rolling-window odds scanner in internal/arbitrage/mean_reversion.go.
package strategy

import (
	"sync"

	"github.com/tradecore/engine/internal/event"
	"github.com/tradecore/engine/internal/money"
	"github.com/tradecore/engine/internal/position"
)

// Side is an alias of event.Side, so strategy sides and ring events share
// one type.
type Side = event.Side

const (
	SideBuy  = event.SideBuy
	SideSell = event.SideSell
)

// SubmitFunc places a reconciliation order; wired by whatever owns the
// strategy (the algorithm dispatcher's context, or a thin adapter to the
// order manager) rather than imported directly, avoiding a dependency
// cycle back into algo/order.
type SubmitFunc func(sym money.Symbol, side Side, qty, price money.Scaled, scale money.Scale) (uint64, error)

// Strategy is the plug-in interface every trading strategy implements
// (spec.md §4.6): cached quotes, a signal in [-1,1], a target position, and
// reconciliation against current holdings.
type Strategy interface {
	Name() string
	Symbols() []money.Symbol
	Enabled() bool
	OnQuote(sym money.Symbol, q event.Quote)
}

// Base implements the common abstract-strategy contract: per-symbol quote
// caching, a locally-cached Position for strategy-level P&L stats (the
// same accounting rules as the position manager, per spec.md §4.6), and
// reconcile() which sizes an order by target-current capped at
// max_order_size and priced at the opposite-side best.
type Base struct {
	mu sync.Mutex

	name    string
	symbols []money.Symbol
	params  *Params
	submit  SubmitFunc
	enabled bool

	quotes       map[string]event.Quote
	localPnL     map[string]*position.Position
	maxOrderSize money.Scaled
}

// NewBase builds a Base strategy scaffold.
func NewBase(name string, symbols []money.Symbol, params *Params, submit SubmitFunc) *Base {
	return &Base{
		name:         name,
		symbols:      symbols,
		params:       params,
		submit:       submit,
		enabled:      true,
		quotes:       make(map[string]event.Quote),
		localPnL:     make(map[string]*position.Position),
		maxOrderSize: money.Scaled(params.GetLong("max_order_size", 1000)),
	}
}

func (b *Base) Name() string            { return b.name }
func (b *Base) Symbols() []money.Symbol { return b.symbols }
func (b *Base) Enabled() bool           { b.mu.Lock(); defer b.mu.Unlock(); return b.enabled }
func (b *Base) SetEnabled(v bool)       { b.mu.Lock(); b.enabled = v; b.mu.Unlock() }

// cacheQuote stores the latest quote for sym.
func (b *Base) cacheQuote(sym money.Symbol, q event.Quote) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quotes[sym.String()] = q
}

func (b *Base) latestQuote(sym money.Symbol) (event.Quote, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.quotes[sym.String()]
	return q, ok
}

func (b *Base) currentQuantity(sym money.Symbol) money.Scaled {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.localPnL[sym.String()]
	if !ok {
		return 0
	}
	return p.Quantity
}

// ApplyFill folds a fill into the strategy's locally-cached position, using
// the identical trade-application rules as the position manager.
func (b *Base) ApplyFill(sym money.Symbol, side Side, price, qty money.Scaled, scale money.Scale, nowNs int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.localPnL[sym.String()]
	if !ok {
		p = &position.Position{Symbol: sym}
		b.localPnL[sym.String()] = p
	}
	posSide := position.SideBuy
	if side == SideSell {
		posSide = position.SideSell
	}
	p.Apply(position.Trade{Price: price, Quantity: qty, Scale: scale, Side: posSide, ExecutedTSNs: nowNs})
}

// reconcile sizes and submits an order moving current quantity toward
// target, capped to maxOrderSize, priced at the opposite-side best from the
// latest cached quote for sym.
func (b *Base) reconcile(sym money.Symbol, target money.Scaled) {
	if !b.Enabled() {
		return
	}
	q, ok := b.latestQuote(sym)
	if !ok {
		return
	}

	current := b.currentQuantity(sym)
	delta := target - current
	if delta == 0 {
		return
	}

	side := SideBuy
	price := q.AskPrice
	if delta < 0 {
		side = SideSell
		price = q.BidPrice
	}

	qty := money.AbsScaled(delta)
	if qty > b.maxOrderSize {
		qty = b.maxOrderSize
	}
	if qty <= 0 {
		return
	}

	b.submit(sym, side, qty, price, q.PriceScale)
}

// clip bounds v to [-limit, limit].
func clip(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

func sign(v float64) float64 {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}
