package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrBufferFull is returned by Publish for a blocking source when the
// bounded wait for a free slot expires.
var ErrBufferFull = errors.New("event: ring buffer full, slowest consumer not keeping up")

// BackpressurePolicy controls what Publish does when the producer would lap
// the slowest consumer, configurable per Source (spec.md §4.1: "quotes:
// drop-oldest; orders: block").
type BackpressurePolicy uint8

const (
	PolicyBlock BackpressurePolicy = iota
	PolicyDropOldest
)

// ringSlot is cache-line padded to avoid false sharing between producer and
// consumer goroutines touching adjacent slots, mirroring the disruptor
// RingBufferSlot in order-matching-engine/internal/disruptor/ring_buffer.go.
type ringSlot struct {
	sequence uint64 // atomically published; 0 means "not yet written"
	event    TradingEvent
	_        [24]byte // pad to a 64-byte cache line alongside sequence+event header
}

// HandlerFunc processes one event. A panic inside a handler is recovered at
// the ring boundary (spec.md §9) and logged with the offending handler name;
// it never unwinds into the next handler in the chain.
type HandlerFunc func(*TradingEvent)

type handlerEntry struct {
	name   string
	fn     HandlerFunc
	cursor atomic.Uint64 // highest sequence this handler has fully consumed
	skipTo atomic.Uint64 // producer-forced: sequences <= this are dropped, never invoked
}

// Ring is the bounded, pre-allocated, single-producer/multi-consumer event
// sequence. Handlers are invoked in strict registration order per event;
// register_handler must be called before Start.
type Ring struct {
	slots []ringSlot
	mask  uint64

	producerCursor atomic.Uint64 // highest published sequence

	mu       sync.Mutex
	handlers []*handlerEntry
	started  atomic.Bool

	quotePolicy BackpressurePolicy
	orderPolicy BackpressurePolicy

	droppedQuotes atomic.Uint64
	droppedOrders atomic.Uint64

	blockWait time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Config configures a new Ring.
type Config struct {
	// Size must be a power of two; it bounds the number of unconsumed
	// events the ring can hold before back-pressure kicks in.
	Size uint64
	// BlockWait bounds how long Publish spins/sleeps for a blocking source
	// before returning ErrBufferFull.
	BlockWait time.Duration
}

// DefaultConfig returns a reasonable ring size for a single trading core
// instance.
func DefaultConfig() Config {
	return Config{Size: 16384, BlockWait: 50 * time.Millisecond}
}

// NewRing builds a Ring with quotes configured to drop-oldest and orders
// configured to block, per spec.md §4.1.
func NewRing(cfg Config) *Ring {
	if cfg.Size == 0 || cfg.Size&(cfg.Size-1) != 0 {
		panic("event: ring size must be a power of two")
	}
	if cfg.BlockWait <= 0 {
		cfg.BlockWait = 50 * time.Millisecond
	}
	r := &Ring{
		slots:       make([]ringSlot, cfg.Size),
		mask:        cfg.Size - 1,
		quotePolicy: PolicyDropOldest,
		orderPolicy: PolicyBlock,
		blockWait:   cfg.BlockWait,
		stopCh:      make(chan struct{}),
	}
	return r
}

// RegisterHandler adds a named consumer to the fixed dependency chain. Call
// order is dependency order: the canonical chain is risk-audit, order,
// position, metrics, algorithm-dispatcher (spec.md §4.1). Must be called
// before Start.
func (r *Ring) RegisterHandler(name string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started.Load() {
		panic("event: cannot register handler after Start")
	}
	r.handlers = append(r.handlers, &handlerEntry{name: name, fn: fn})
}

// Start spawns one goroutine per registered handler. Each handler only
// processes sequence N once every handler before it in the chain has
// already consumed N (and the producer has published it), which is what
// realizes the fixed per-event dependency order while still letting each
// handler run on its own goroutine.
func (r *Ring) Start(ctx context.Context) {
	if r.started.Swap(true) {
		return
	}
	for i, h := range r.handlers {
		r.wg.Add(1)
		go r.consumeLoop(ctx, i, h)
	}
}

func (r *Ring) consumeLoop(ctx context.Context, idx int, h *handlerEntry) {
	defer r.wg.Done()
	next := uint64(1)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			// Drain remaining published events before exiting.
			if r.drainOne(idx, h, &next) {
				continue
			}
			return
		default:
		}

		if target := h.skipTo.Load(); next <= target {
			// The producer dropped this slot out from under us (drop-oldest
			// back-pressure): treat it as consumed without invoking fn.
			h.cursor.Store(target)
			next = target + 1
			continue
		}

		if !r.awaitReady(ctx, idx, h, next) {
			return
		}

		slot := &r.slots[next&r.mask]
		r.invoke(h, &slot.event)
		h.cursor.Store(next)
		next++
	}
}

// awaitReady blocks until sequence `next` has been published and every
// upstream handler has already consumed it, or the context/stop signal
// fires. Returns false if the caller should exit.
func (r *Ring) awaitReady(ctx context.Context, idx int, h *handlerEntry, next uint64) bool {
	for {
		gate := r.producerCursor.Load()
		if idx > 0 {
			upstream := r.handlers[idx-1].cursor.Load()
			if upstream < gate {
				gate = upstream
			}
		}
		if gate >= next {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-r.stopCh:
			// One more check: if it became ready exactly at shutdown, let
			// the caller's drain loop pick it up.
			gate = r.producerCursor.Load()
			if idx > 0 {
				upstream := r.handlers[idx-1].cursor.Load()
				if upstream < gate {
					gate = upstream
				}
			}
			return gate >= next
		case <-time.After(time.Microsecond * 50):
		}
	}
}

// drainOne processes exactly one more already-published event, if any
// remain, during shutdown drain.
func (r *Ring) drainOne(idx int, h *handlerEntry, next *uint64) bool {
	if target := h.skipTo.Load(); *next <= target {
		h.cursor.Store(target)
		*next = target + 1
		return true
	}
	gate := r.producerCursor.Load()
	if idx > 0 {
		upstream := r.handlers[idx-1].cursor.Load()
		if upstream < gate {
			gate = upstream
		}
	}
	if gate < *next {
		return false
	}
	slot := &r.slots[*next&r.mask]
	r.invoke(h, &slot.event)
	h.cursor.Store(*next)
	*next++
	return true
}

func (r *Ring) invoke(h *handlerEntry, e *TradingEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Str("handler", h.name).
				Interface("panic", rec).
				Str("event_kind", e.Kind.String()).
				Msg("event handler panicked, recovered at ring boundary")
		}
	}()
	h.fn(e)
}

// Publish writes an event into the next ring slot and advances the producer
// cursor, applying the configured back-pressure policy for src. Returns the
// assigned sequence number and whether the event was actually published.
// A blocking source (orders) can return false if the bounded wait for a
// free slot expires; a drop-oldest source (quotes) always publishes the new
// event, forcing the oldest unconsumed slot out instead.
func (r *Ring) Publish(src Source, kind Kind, ingestTS int64, fill func(*TradingEvent)) (uint64, bool) {
	policy := r.quotePolicy
	if src == SourceOrder {
		policy = r.orderPolicy
	}

	next := r.producerCursor.Load() + 1
	if !r.reserve(next, policy) {
		r.droppedOrders.Add(1)
		return 0, false
	}

	slot := &r.slots[next&r.mask]
	slot.event.reset()
	slot.event.Sequence = next
	slot.event.Kind = kind
	slot.event.IngestTS = ingestTS
	if fill != nil {
		fill(&slot.event)
	}
	atomic.StoreUint64(&slot.sequence, next)
	r.producerCursor.Store(next)
	return next, true
}

// reserve waits (for PolicyBlock) or evicts the oldest unconsumed slot (for
// PolicyDropOldest) until slot `next` is free, i.e. the slowest handler has
// already consumed (or had forcibly dropped) the event currently occupying
// it.
func (r *Ring) reserve(next uint64, policy BackpressurePolicy) bool {
	capacity := r.mask + 1
	deadline := time.Now().Add(r.blockWait)
	for {
		slowest := r.slowestConsumed()
		if next-slowest <= capacity {
			return true
		}
		if policy == PolicyDropOldest {
			r.dropOldest(slowest)
			continue
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Microsecond * 50)
	}
}

// dropOldest forces every handler still sitting at the slowest-consumed
// cursor to skip the slot at slowest+1 without invoking it, freeing capacity
// for the producer at the cost of that one event never reaching any handler
// (spec.md §4.1: quotes are drop-oldest). Handlers already past that
// sequence are untouched since they already consumed it for real.
func (r *Ring) dropOldest(slowest uint64) {
	target := slowest + 1
	r.mu.Lock()
	handlers := r.handlers
	r.mu.Unlock()
	for _, h := range handlers {
		if effectiveCursor(h) <= slowest {
			h.skipTo.Store(target)
		}
	}
	r.droppedQuotes.Add(1)
}

// effectiveCursor is the position a handler is consumed through for capacity
// purposes: the max of what it has actually invoked and what the producer
// has already forced it to skip, so a handler stuck mid-invoke still frees
// ring capacity the instant it is marked for a drop rather than only once
// its goroutine resumes and notices skipTo.
func effectiveCursor(h *handlerEntry) uint64 {
	c := h.cursor.Load()
	if s := h.skipTo.Load(); s > c {
		return s
	}
	return c
}

// slowestConsumed returns the lowest effective cursor among all registered
// handlers, or the producer cursor if there are none yet (ring effectively
// unbounded until consumers attach).
func (r *Ring) slowestConsumed() uint64 {
	if len(r.handlers) == 0 {
		return r.producerCursor.Load()
	}
	min := effectiveCursor(r.handlers[0])
	for _, h := range r.handlers[1:] {
		if c := effectiveCursor(h); c < min {
			min = c
		}
	}
	return min
}

// DroppedQuotes returns the count of quote events dropped due to
// back-pressure.
func (r *Ring) DroppedQuotes() uint64 { return r.droppedQuotes.Load() }

// DroppedOrders returns the count of order events that hit the bounded wait
// and were dropped (should be rare; orders block by default).
func (r *Ring) DroppedOrders() uint64 { return r.droppedOrders.Load() }

// Drain signals all consumer goroutines to finish processing already
// published events and then stop, and blocks until they have.
func (r *Ring) Drain() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}
