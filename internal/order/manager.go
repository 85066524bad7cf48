package order

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/tradecore/engine/internal/money"
	"github.com/tradecore/engine/internal/pool"
)

// Listener is notified synchronously, in registration order, whenever an
// order is tracked, updated, or transitions status. A panic inside a
// listener is recovered and logged; it never stops subsequent listeners
// from running (spec.md §4.2).
type Listener func(o *Order)

const shardCount = 16

type shard struct {
	mu     sync.RWMutex
	orders map[uint64]*Order
}

// Manager stores active and recent orders keyed by client-order-id across
// fixed shards (fine-grained locking per spec.md §4.2), secondarily indexed
// by exchange-order-id via linear scan, acceptable at the scale this engine
// targets per the spec. Grounded on execution.Executor's orders map and
// lifecycle methods in execution/executor.go, generalized to the full
// PENDING..EXPIRED transition table instead of the teacher's paper/live
// fill-immediately shortcut.
type Manager struct {
	shards [shardCount]*shard
	pool   *pool.Pool[*Order]

	nextClientOrderID atomic.Uint64

	listenersMu sync.Mutex
	listeners   []Listener // copy-on-write
}

// NewManager builds an order Manager with its own bounded pool of reusable
// Order records.
func NewManager() *Manager {
	m := &Manager{}
	for i := range m.shards {
		m.shards[i] = &shard{orders: make(map[uint64]*Order)}
	}
	m.pool = pool.New(pool.DefaultConfig(), func() *Order { return &Order{} })
	return m
}

func (m *Manager) shardFor(id uint64) *shard {
	return m.shards[id%shardCount]
}

// AddListener registers a listener, copy-on-write so readers never see a
// partially-built slice.
func (m *Manager) AddListener(l Listener) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	next := make([]Listener, len(m.listeners)+1)
	copy(next, m.listeners)
	next[len(m.listeners)] = l
	m.listeners = next
}

func (m *Manager) notify(o *Order) {
	m.listenersMu.Lock()
	ls := m.listeners
	m.listenersMu.Unlock()
	for _, l := range ls {
		m.invokeListener(l, o)
	}
}

func (m *Manager) invokeListener(l Listener, o *Order) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("order: listener panicked, recovered")
		}
	}()
	l(o)
}

// Create allocates an Order from the pool, assigns the next process-unique
// client-order-id, and sets status PENDING. Fails with ErrInvalidOrder when
// qty<=0 or symbol is the zero value.
func (m *Manager) Create(sym money.Symbol, side Side, typ Type, qty, price money.Scaled, scale money.Scale, nowNs int64) (*Order, error) {
	if qty <= 0 {
		return nil, &ErrInvalidOrder{Reason: "quantity must be positive"}
	}
	if sym.IsZero() {
		return nil, &ErrInvalidOrder{Reason: "symbol is required"}
	}

	o := m.pool.Acquire()
	o.ClientOrderID = m.nextClientOrderID.Add(1)
	o.Symbol = sym
	o.Side = side
	o.Type = typ
	o.Price = price
	o.PriceScale = scale
	o.Quantity = qty
	o.RemainingQuantity = qty
	o.Status = StatusPending
	o.CreatedTSNs = nowNs
	o.LastUpdatedTSNs = nowNs
	return o, nil
}

// Track inserts a newly created order into its shard and notifies listeners.
func (m *Manager) Track(o *Order) {
	sh := m.shardFor(o.ClientOrderID)
	sh.mu.Lock()
	sh.orders[o.ClientOrderID] = o
	sh.mu.Unlock()
	m.notify(o)
}

// Get returns the tracked order for id, if any.
func (m *Manager) Get(id uint64) (*Order, bool) {
	sh := m.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	o, ok := sh.orders[id]
	return o, ok
}

// GetByExchangeOrderID linearly scans all shards; acceptable at the scale
// targeted (spec.md §4.2).
func (m *Manager) GetByExchangeOrderID(exchangeOrderID string) (*Order, bool) {
	for _, sh := range m.shards {
		sh.mu.RLock()
		for _, o := range sh.orders {
			if o.ExchangeOrderID == exchangeOrderID {
				sh.mu.RUnlock()
				return o, true
			}
		}
		sh.mu.RUnlock()
	}
	return nil, false
}

// Update merges field mutations into the stored order atomically (under
// that order's shard lock), stamps LastUpdatedTSNs, and notifies listeners.
func (m *Manager) Update(id uint64, nowNs int64, apply func(o *Order)) bool {
	sh := m.shardFor(id)
	sh.mu.Lock()
	o, ok := sh.orders[id]
	if !ok {
		sh.mu.Unlock()
		return false
	}
	apply(o)
	o.LastUpdatedTSNs = nowNs
	sh.mu.Unlock()
	m.notify(o)
	return true
}

// Reject transitions an order to REJECTED, recording reason, and notifies.
// Legal from PENDING or SUBMITTED.
func (m *Manager) Reject(id uint64, reason string, nowNs int64) error {
	return m.transition(id, StatusRejected, nowNs, func(o *Order) {
		o.RejectReason = reason
	})
}

// MarkSubmitted transitions PENDING -> SUBMITTED.
func (m *Manager) MarkSubmitted(id uint64, nowNs int64) error {
	return m.transition(id, StatusSubmitted, nowNs, func(o *Order) {
		o.SubmittedTSNs = nowNs
	})
}

// MarkAccepted transitions SUBMITTED -> ACCEPTED.
func (m *Manager) MarkAccepted(id uint64, exchangeOrderID string, nowNs int64) error {
	return m.transition(id, StatusAccepted, nowNs, func(o *Order) {
		o.ExchangeOrderID = exchangeOrderID
		o.AcceptedTSNs = nowNs
	})
}

// MarkCancelled transitions SUBMITTED/ACCEPTED/PARTIALLY_FILLED -> CANCELLED.
func (m *Manager) MarkCancelled(id uint64, nowNs int64) error {
	return m.transition(id, StatusCancelled, nowNs, nil)
}

// MarkExpired transitions ACCEPTED/PARTIALLY_FILLED -> EXPIRED.
func (m *Manager) MarkExpired(id uint64, nowNs int64) error {
	return m.transition(id, StatusExpired, nowNs, nil)
}

// MarkPartiallyFilled applies a fill of (price, qty) and transitions
// ACCEPTED/PARTIALLY_FILLED -> PARTIALLY_FILLED, updating the qty-weighted
// average fill price (spec.md §4.2 fill semantics).
func (m *Manager) MarkPartiallyFilled(id uint64, price, qty money.Scaled, nowNs int64) error {
	return m.transition(id, StatusPartiallyFilled, nowNs, func(o *Order) {
		applyFill(o, price, qty)
	})
}

// MarkFilled applies a final fill of (price, qty) and transitions to FILLED.
func (m *Manager) MarkFilled(id uint64, price, qty money.Scaled, nowNs int64) error {
	return m.transition(id, StatusFilled, nowNs, func(o *Order) {
		applyFill(o, price, qty)
	})
}

// applyFill updates filled/remaining/average-fill-price for a fill of
// (price, qty): filled += qty; average = (prevAvg*prevFilled + price*qty) /
// filled; remaining = quantity - filled (spec.md §4.2).
func applyFill(o *Order, price, qty money.Scaled) {
	prevFilled := o.FilledQuantity
	prevAvg := o.AverageFilledPrice

	newFilled := prevFilled + qty
	if newFilled > 0 {
		weighted := int64(prevAvg)*int64(prevFilled) + int64(price)*int64(qty)
		o.AverageFilledPrice = money.Scaled(weighted / int64(newFilled))
	}
	o.FilledQuantity = newFilled
	o.RemainingQuantity = o.Quantity - newFilled
	o.LastFillPrice = price
	o.LastFillQuantity = qty
}

// transition validates the status-transition table, applies field mutations
// under the order's shard lock, and notifies listeners on success. On an
// illegal transition the order is left unmutated, the attempt is logged, and
// ErrIllegalTransition is returned.
func (m *Manager) transition(id uint64, to Status, nowNs int64, mutate func(o *Order)) error {
	sh := m.shardFor(id)
	sh.mu.Lock()
	o, ok := sh.orders[id]
	if !ok {
		sh.mu.Unlock()
		return &ErrInvalidOrder{Reason: "unknown client order id"}
	}
	from := o.Status
	if !canTransition(from, to) {
		sh.mu.Unlock()
		log.Warn().
			Uint64("client_order_id", id).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("order: illegal status transition rejected")
		return &ErrIllegalTransition{From: from, To: to}
	}
	o.Status = to
	o.LastUpdatedTSNs = nowNs
	if mutate != nil {
		mutate(o)
	}
	sh.mu.Unlock()
	m.notify(o)
	return nil
}

// PurgeTerminal removes and returns to the pool every order currently in a
// terminal status, returning the count purged.
func (m *Manager) PurgeTerminal() int {
	purged := 0
	for _, sh := range m.shards {
		sh.mu.Lock()
		for id, o := range sh.orders {
			if o.Status.IsTerminal() {
				delete(sh.orders, id)
				m.pool.Release(o)
				purged++
			}
		}
		sh.mu.Unlock()
	}
	return purged
}
