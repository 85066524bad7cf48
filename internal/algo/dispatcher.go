package algo

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradecore/engine/internal/event"
	"github.com/tradecore/engine/internal/money"
)

// Algorithm is the minimal interface the dispatcher needs: any symbol an
// algorithm cares about, its current lifecycle state, and the three
// guarded callbacks. VWAP and TWAP satisfy this through the thin adapters
// VWAPAlgorithm and TWAPAlgorithm (adapter.go), since their On* signatures
// carry algorithm-specific extra parameters (bucket sizing needs ask/bid
// size).
type Algorithm interface {
	AlgoSymbol() money.Symbol
	AlgoState() State
	HandleQuote(ctx Context, q event.Quote)
	HandleFill(ctx Context, tr event.Trade)
	HandleTimer(ctx Context, nowNs int64)
}

// Dispatcher holds the active algorithm registry and forwards inbound
// quotes/fills/timer ticks to every algorithm whose symbol set contains the
// event's symbol and whose state is RUNNING (spec.md §4.8).
type Dispatcher struct {
	mu    sync.RWMutex
	algos map[uint64]Algorithm
	next  uint64

	ctx Context

	timerInterval time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// NewDispatcher builds a Dispatcher driving algorithms against ctx, with a
// 1-second on_timer cadence per spec.md §4.8.
func NewDispatcher(ctx Context) *Dispatcher {
	return &Dispatcher{
		algos:         make(map[uint64]Algorithm),
		ctx:           ctx,
		timerInterval: time.Second,
		stopCh:        make(chan struct{}),
	}
}

// Register adds an algorithm to the active registry and returns its handle.
func (d *Dispatcher) Register(a Algorithm) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	id := d.next
	d.algos[id] = a
	return id
}

// Unregister removes an algorithm from the registry (e.g. once terminal).
func (d *Dispatcher) Unregister(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.algos, id)
}

// DispatchQuote forwards q to every RUNNING algorithm tracking q.Symbol.
func (d *Dispatcher) DispatchQuote(q event.Quote) {
	for _, a := range d.runningFor(q.Symbol) {
		d.safeHandle(func() { a.HandleQuote(d.ctx, q) })
	}
}

// DispatchFill forwards tr to every registered algorithm tracking
// tr.Symbol, whatever its lifecycle state: per spec.md §4.7, fills update
// filled quantity and metrics in any state. Algorithms that have been
// unregistered no longer receive fills.
func (d *Dispatcher) DispatchFill(tr event.Trade) {
	d.mu.RLock()
	algos := make([]Algorithm, 0, len(d.algos))
	for _, a := range d.algos {
		if a.AlgoSymbol().Equal(tr.Symbol) {
			algos = append(algos, a)
		}
	}
	d.mu.RUnlock()
	for _, a := range algos {
		a := a
		d.safeHandle(func() { a.HandleFill(d.ctx, tr) })
	}
}

func (d *Dispatcher) runningFor(sym money.Symbol) []Algorithm {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Algorithm, 0, len(d.algos))
	for _, a := range d.algos {
		if a.AlgoState() == StateRunning && a.AlgoSymbol().Equal(sym) {
			out = append(out, a)
		}
	}
	return out
}

func (d *Dispatcher) safeHandle(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("algo: dispatcher handler panicked, recovered")
		}
	}()
	fn()
}

// StartTimer spawns the 1-second timer thread that invokes on_timer on
// every RUNNING algorithm.
func (d *Dispatcher) StartTimer() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.timerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-d.stopCh:
				return
			case now := <-ticker.C:
				nowNs := now.UnixNano()
				d.mu.RLock()
				algos := make([]Algorithm, 0, len(d.algos))
				for _, a := range d.algos {
					if a.AlgoState() == StateRunning {
						algos = append(algos, a)
					}
				}
				d.mu.RUnlock()
				for _, a := range algos {
					a := a
					d.safeHandle(func() { a.HandleTimer(d.ctx, nowNs) })
				}
			}
		}
	}()
}

// Stop halts the timer thread.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
	d.wg.Wait()
}
