// Package pool implements bounded per-goroutine object arenas for hot-path
// record types (orders, positions), with a cross-goroutine reclaim queue so
// a release from a foreign goroutine doesn't contend on another goroutine's
// free-list. This generalizes the redesign noted in spec.md's object-pool
// alternatives ("per-worker arena with fixed-capacity free-lists; releases
// across threads go via an MPMC reclaim queue drained at pool acquire") —
// the teacher repo does not pool its Order/Position records at all, so the
// structural shape here is grounded on the disruptor's pre-allocated ring
// slots in order-matching-engine/internal/disruptor/ring_buffer.go, applied
// to a classic get/put arena instead of a fixed ring.
package pool

import "sync"

// Resettable is implemented by pooled record types; Reset clears a record
// back to its zero value so a reused instance never leaks stale field data.
type Resettable interface {
	Reset()
}

// arena is a single goroutine-local free-list, bounded at capacity.
type arena[T Resettable] struct {
	mu    sync.Mutex
	free  []T
	cap   int
	newFn func() T
}

// Pool is a sharded set of bounded arenas plus one shared reclaim queue.
// Acquire picks a shard with a round-robin counter advanced on every call
// (Go has no cheap goroutine-local storage), takes from that shard's
// free-list if it holds anything, and otherwise drains the reclaim queue.
// Release always pushes to the reclaim queue; no Pool method refills the
// per-shard free-lists.
type Pool[T Resettable] struct {
	shards []*arena[T]

	mu      sync.Mutex
	reclaim []T

	next uint64 // round-robin shard selector, guarded by nmu
	nmu  sync.Mutex
}

// Config bounds a Pool's capacity.
type Config struct {
	Shards       int // number of per-goroutine arenas
	PerShardCap  int // max free items retained per arena
	ReclaimCap   int // max items retained in the cross-goroutine reclaim queue
}

// DefaultConfig returns a pool sized for a handful of concurrent hot-path
// goroutines (risk-audit, order, position, metrics, algo-dispatcher handlers).
func DefaultConfig() Config {
	return Config{Shards: 8, PerShardCap: 256, ReclaimCap: 1024}
}

// New builds a Pool whose items are constructed with newFn when a shard and
// the reclaim queue are both empty.
func New[T Resettable](cfg Config, newFn func() T) *Pool[T] {
	if cfg.Shards <= 0 {
		cfg.Shards = 1
	}
	p := &Pool[T]{shards: make([]*arena[T], cfg.Shards)}
	for i := range p.shards {
		p.shards[i] = &arena[T]{cap: cfg.PerShardCap, newFn: newFn}
	}
	p.reclaim = make([]T, 0, cfg.ReclaimCap)
	return p
}

func (p *Pool[T]) shardFor() *arena[T] {
	p.nmu.Lock()
	idx := p.next % uint64(len(p.shards))
	p.next++
	p.nmu.Unlock()
	return p.shards[idx]
}

// Acquire returns a reset, ready-to-use record: from the selected shard's
// free-list, else from the reclaim queue, else newly constructed.
func (p *Pool[T]) Acquire() T {
	a := p.shardFor()

	a.mu.Lock()
	if n := len(a.free); n > 0 {
		v := a.free[n-1]
		a.free = a.free[:n-1]
		a.mu.Unlock()
		return v
	}
	a.mu.Unlock()

	p.mu.Lock()
	if n := len(p.reclaim); n > 0 {
		v := p.reclaim[n-1]
		p.reclaim = p.reclaim[:n-1]
		p.mu.Unlock()
		return v
	}
	p.mu.Unlock()

	return a.newFn()
}

// Release resets v and returns it to the pool. Release is safe from any
// goroutine: it always targets the cross-goroutine reclaim queue, which
// avoids requiring the caller to identify which shard originally produced
// the value.
func (p *Pool[T]) Release(v T) {
	v.Reset()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.reclaim) >= cap(p.reclaim) {
		return // pool full, let v be garbage collected
	}
	p.reclaim = append(p.reclaim, v)
}
