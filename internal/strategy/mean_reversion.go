package strategy

import (
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tradecore/engine/internal/event"
	"github.com/tradecore/engine/internal/money"
)

// MeanReversion tracks a rolling price window per symbol and trades
// deviations from the population mean back toward it (spec.md §4.6.2):
// entry on |z| crossing the entry threshold, exit on reversion past the
// exit threshold, and a double-down on a further adverse extension, capped
// at 2*max_position_size. Grounded on the rolling odds-history window and
// per-asset mutex-guarded map of internal/arbitrage/mean_reversion.go,
// swapping the decimal odds series for a fixed-point price series.
type MeanReversion struct {
	*Base

	mu      sync.Mutex
	history map[string][]float64

	lookback    int
	entryZ      float64
	exitZ       float64
	doubleDownZ float64
	maxPosition money.Scaled
	inPosition  map[string]bool
	doubledDown map[string]bool
	entrySign   map[string]float64
}

// NewMeanReversion builds a MeanReversion strategy over symbols, reading
// lookback/entry_z/exit_z/double_down_z/max_position_size from params.
func NewMeanReversion(symbols []money.Symbol, params *Params, submit SubmitFunc) *MeanReversion {
	return &MeanReversion{
		Base:        NewBase("mean_reversion", symbols, params, submit),
		history:     make(map[string][]float64),
		lookback:    params.GetInt("lookback", 60),
		entryZ:      params.GetDouble("entry_z", 2.0),
		exitZ:       params.GetDouble("exit_z", 0.5),
		doubleDownZ: params.GetDouble("double_down_z", 3.0),
		maxPosition: money.Scaled(params.GetLong("max_position_size", 1000)),
		inPosition:  make(map[string]bool),
		doubledDown: make(map[string]bool),
		entrySign:   make(map[string]float64),
	}
}

// OnQuote folds the quote midpoint into sym's rolling window, computes the
// z-score against the window's population mean/stddev, and reconciles the
// position per the entry/exit/double-down state machine.
func (r *MeanReversion) OnQuote(sym money.Symbol, q event.Quote) {
	r.cacheQuote(sym, q)
	if !r.Enabled() {
		return
	}

	key := sym.String()
	mid := float64(q.Mid())

	r.mu.Lock()
	window := append(r.history[key], mid)
	if len(window) > r.lookback {
		window = window[len(window)-r.lookback:]
	}
	r.history[key] = window
	r.mu.Unlock()

	if len(window) < r.lookback {
		return
	}

	mean, stddev := populationStats(window)
	if stddev < 1e-4 {
		return
	}
	z := (mid - mean) / stddev

	target := r.nextTarget(key, z, sym)

	log.Debug().
		Str("strategy", r.Name()).
		Str("symbol", sym.String()).
		Float64("z", z).
		Int64("target", int64(target)).
		Msg("mean_reversion: z-score computed")

	r.reconcile(sym, target)
}

// nextTarget implements the entry/exit/double-down decisions. Entry opens a
// position against the deviation (buy when price is abnormally low, sell
// when abnormally high); exit flattens once price has reverted past exitZ;
// a further adverse extension past doubleDownZ doubles the position size,
// capped at 2*maxPosition.
func (r *MeanReversion) nextTarget(key string, z float64, sym money.Symbol) money.Scaled {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.currentQuantity(sym)
	absZ := math.Abs(z)

	switch {
	case absZ < r.exitZ:
		r.inPosition[key] = false
		r.doubledDown[key] = false
		delete(r.entrySign, key)
		return 0

	case r.inPosition[key] && !r.doubledDown[key] && absZ >= r.doubleDownZ && sign(z) == r.entrySign[key]:
		r.doubledDown[key] = true
		return money.Scaled(-sign(z) * float64(2*r.maxPosition))

	case absZ >= r.entryZ:
		r.inPosition[key] = true
		r.entrySign[key] = sign(z)
		return money.Scaled(-sign(z) * float64(r.maxPosition))

	default:
		return current
	}
}

// populationStats returns the population mean and standard deviation
// (divisor N, not N-1) of samples.
func populationStats(samples []float64) (mean, stddev float64) {
	n := float64(len(samples))
	var sum float64
	for _, s := range samples {
		sum += s
	}
	mean = sum / n

	var sqDiff float64
	for _, s := range samples {
		d := s - mean
		sqDiff += d * d
	}
	stddev = math.Sqrt(sqDiff / n)
	return mean, stddev
}
