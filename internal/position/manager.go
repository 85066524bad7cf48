package position

import (
	"sync"

	"github.com/tradecore/engine/internal/money"
)

// entry pairs a Position with its own fine-grained lock, so two different
// symbols never contend (spec.md §5: "Position Manager map uses per-symbol
// fine-grained locking").
type entry struct {
	mu  sync.Mutex
	pos *Position
}

// Manager holds one Position per symbol in a concurrent map.
type Manager struct {
	mu       sync.RWMutex // guards the map itself, not individual positions
	entries  map[string]*entry
}

// NewManager builds an empty position Manager.
func NewManager() *Manager {
	return &Manager{entries: make(map[string]*entry)}
}

func (m *Manager) entryFor(sym money.Symbol) *entry {
	key := sym.String()

	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if ok {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok = m.entries[key]; ok {
		return e
	}
	e = &entry{pos: &Position{Symbol: sym}}
	m.entries[key] = e
	return e
}

// Apply folds a trade into sym's position and marks it to market at the
// trade's own price, returning a snapshot of the resulting position state.
func (m *Manager) Apply(sym money.Symbol, t Trade) (Position, error) {
	e := m.entryFor(sym)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.pos.Apply(t); err != nil {
		return Position{}, err
	}
	e.pos.MarkToMarket(t.Price)
	return *e.pos, nil
}

// MarkToMarket updates sym's position against currentPrice without applying
// a trade (used on quote updates).
func (m *Manager) MarkToMarket(sym money.Symbol, currentPrice money.Scaled) (Position, bool) {
	m.mu.RLock()
	e, ok := m.entries[sym.String()]
	m.mu.RUnlock()
	if !ok {
		return Position{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pos.MarkToMarket(currentPrice)
	return *e.pos, true
}

// CurrentQuantity returns sym's signed quantity (0 if untracked or flat),
// satisfying risk.PositionView.
func (m *Manager) CurrentQuantity(sym money.Symbol) money.Scaled {
	p, ok := m.Get(sym)
	if !ok {
		return 0
	}
	return p.Quantity
}

// Get returns a snapshot of sym's position, if tracked.
func (m *Manager) Get(sym money.Symbol) (Position, bool) {
	m.mu.RLock()
	e, ok := m.entries[sym.String()]
	m.mu.RUnlock()
	if !ok {
		return Position{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.pos, true
}

// All returns a snapshot of every tracked position.
func (m *Manager) All() []Position {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	out := make([]Position, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, *e.pos)
		e.mu.Unlock()
	}
	return out
}

// TotalRealizedPnLCents sums realized P&L across every symbol, normalizing
// each to cents via pnl*100/scale before summing (spec.md §4.3): summing
// raw per-symbol P&L would be meaningless since scales differ.
func (m *Manager) TotalRealizedPnLCents() int64 {
	var total int64
	for _, p := range m.All() {
		total += p.RealizedPnL.ToCents(p.Scale)
	}
	return total
}

// TotalUnrealizedPnLCents sums unrealized P&L across every symbol in cents.
func (m *Manager) TotalUnrealizedPnLCents() int64 {
	var total int64
	for _, p := range m.All() {
		total += p.UnrealizedPnL.ToCents(p.Scale)
	}
	return total
}

// NetExposureCents returns Σ(long market value) − Σ(short market value), in
// cents.
func (m *Manager) NetExposureCents() int64 {
	var net int64
	for _, p := range m.All() {
		net += p.MarketValue.ToCents(p.Scale)
	}
	return net
}

// GrossExposureCents returns (long_sum, short_sum) in cents.
func (m *Manager) GrossExposureCents() (longSum, shortSum int64) {
	for _, p := range m.All() {
		mv := p.MarketValue.ToCents(p.Scale)
		if mv >= 0 {
			longSum += mv
		} else {
			shortSum += -mv
		}
	}
	return longSum, shortSum
}
