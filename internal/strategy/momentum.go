package strategy

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/tradecore/engine/internal/event"
	"github.com/tradecore/engine/internal/money"
)

// Momentum is an EMA-crossover strategy (spec.md §4.6.1): maintains a short
// and long exponential moving average per symbol, derives a signal in
// [-1, 1] from their normalized spread, and reconciles the position toward
// sign(signal) * max_position_size * |signal|. Grounded on the multi-symbol
// per-asset scoring shape of the teacher's weighted-indicator strategy,
// reduced to the single EMA-spread indicator the spec calls for.
type Momentum struct {
	*Base

	shortPeriod int
	longPeriod  int
	threshold   float64
	maxPosition money.Scaled

	emas map[string]*emaPair
}

type emaPair struct {
	short, long float64
	alphaShort  float64
	alphaLong   float64
	seeded      bool
}

// NewMomentum builds a Momentum strategy over symbols, reading
// short_period/long_period/signal_threshold/max_position_size from params.
func NewMomentum(symbols []money.Symbol, params *Params, submit SubmitFunc) *Momentum {
	shortPeriod := params.GetInt("short_period", 12)
	longPeriod := params.GetInt("long_period", 26)

	m := &Momentum{
		Base:        NewBase("momentum", symbols, params, submit),
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
		threshold:   params.GetDouble("signal_threshold", 0.05),
		maxPosition: money.Scaled(params.GetLong("max_position_size", 1000)),
		emas:        make(map[string]*emaPair),
	}
	return m
}

// OnQuote updates the EMA pair for sym from the quote midpoint, computes the
// crossover signal, and reconciles the strategy's position toward the
// resulting target.
func (m *Momentum) OnQuote(sym money.Symbol, q event.Quote) {
	m.cacheQuote(sym, q)
	if !m.Enabled() {
		return
	}

	mid := float64(q.Mid())
	pair := m.pairFor(sym)
	pair.update(mid)

	signal := m.signal(pair)
	target := money.Scaled(sign(signal) * float64(m.maxPosition) * math.Abs(signal))

	log.Debug().
		Str("strategy", m.Name()).
		Str("symbol", sym.String()).
		Float64("signal", signal).
		Int64("target", int64(target)).
		Msg("momentum: signal computed")

	m.reconcile(sym, target)
}

func (m *Momentum) pairFor(sym money.Symbol) *emaPair {
	key := sym.String()
	p, ok := m.emas[key]
	if !ok {
		p = &emaPair{
			alphaShort: 2.0 / float64(m.shortPeriod+1),
			alphaLong:  2.0 / float64(m.longPeriod+1),
		}
		m.emas[key] = p
	}
	return p
}

// update folds a new midpoint observation into both EMAs. The first
// observation seeds both EMAs to the same value per spec.md §4.6.1.
func (p *emaPair) update(mid float64) {
	if !p.seeded {
		p.short = mid
		p.long = mid
		p.seeded = true
		return
	}
	p.short = p.alphaShort*mid + (1-p.alphaShort)*p.short
	p.long = p.alphaLong*mid + (1-p.alphaLong)*p.long
}

// signal computes clip((short-long)/long / 0.05, -1, 1), zeroed below the
// configured threshold.
func (m *Momentum) signal(p *emaPair) float64 {
	if p.long == 0 {
		return 0
	}
	spread := (p.short - p.long) / p.long
	if math.Abs(spread) < m.threshold {
		return 0
	}
	return clip(spread/0.05, 1)
}
