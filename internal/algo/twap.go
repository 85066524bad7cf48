package algo

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tradecore/engine/internal/money"
)

// TWAP schedules a parent order into uniform time slices, distributing any
// remainder across the first buckets. Catch-up and participation capping
// are identical to VWAP (spec.md §4.5.2).
type TWAP struct {
	Base

	buckets          int
	scheduled        []money.Scaled
	executedInBucket []money.Scaled
	currentBucket    int
	bucketDurationNs int64

	participationCap decimal.Decimal
}

// NewTWAP builds a TWAP algorithm with bucket count = max(1, totalDuration
// / sliceInterval).
func NewTWAP(sym money.Symbol, side Side, targetQty, limitPrice money.Scaled, scale money.Scale, startNs, endNs, sliceIntervalNs int64, participationCap decimal.Decimal) *TWAP {
	totalDuration := endNs - startNs
	buckets := 1
	if sliceIntervalNs > 0 {
		if n := int(totalDuration / sliceIntervalNs); n > 1 {
			buckets = n
		}
	}

	t := &TWAP{
		Base:             NewBase(sym, side, targetQty, limitPrice, scale, startNs, endNs),
		buckets:          buckets,
		scheduled:        make([]money.Scaled, buckets),
		executedInBucket: make([]money.Scaled, buckets),
		bucketDurationNs: totalDuration / int64(buckets),
		participationCap: participationCap,
	}
	t.scheduleBuckets()
	return t
}

func (t *TWAP) scheduleBuckets() {
	target := int64(t.TargetQty)
	base := target / int64(t.buckets)
	rem := target % int64(t.buckets)
	for i := 0; i < t.buckets; i++ {
		q := base
		if int64(i) < rem {
			q++
		}
		t.scheduled[i] = money.Scaled(q)
	}
}

func (t *TWAP) bucketForTime(nowNs int64) int {
	if t.bucketDurationNs <= 0 {
		return t.buckets - 1
	}
	elapsed := nowNs - t.StartNs
	b := int(elapsed / t.bucketDurationNs)
	if b < 0 {
		b = 0
	}
	if b >= t.buckets {
		b = t.buckets - 1
	}
	return b
}

// Initialize captures the benchmark price via Base.
func (t *TWAP) Initialize(ctx Context) error {
	if err := t.Base.Initialize(ctx); err != nil {
		return err
	}
	log.Info().
		Str("symbol", t.Symbol.String()).
		Int("buckets", t.buckets).
		Msg("twap: initialized")
	return nil
}

// OnQuote mirrors VWAP.OnQuote with TWAP's uniform schedule.
func (t *TWAP) OnQuote(ctx Context, nowNs int64, askSize, bidSize money.Scaled) {
	if !t.isRunning() {
		return
	}

	cur := t.bucketForTime(nowNs)
	t.advanceBucket(cur)

	var expected money.Scaled
	for i := 0; i < cur; i++ {
		expected += t.scheduled[i]
	}
	filled := t.filledSnapshot()
	behind := expected - filled
	if behind < 0 {
		behind = 0
	}

	bucketRemaining := t.scheduled[cur] - t.executedInBucket[cur]
	if bucketRemaining < 0 {
		bucketRemaining = 0
	}

	bucketsRemaining := int64(t.buckets - cur)
	var catchup money.Scaled
	if bucketsRemaining > 0 {
		catchup = money.Scaled(int64(behind) / bucketsRemaining)
	}

	childSize := bucketRemaining + catchup
	if rem := t.remaining(); childSize > rem {
		childSize = rem
	}

	oppositeSize := askSize
	if t.Side == SideSell {
		oppositeSize = bidSize
	}
	childSize = capByParticipation(childSize, oppositeSize, t.participationCap)

	q, _ := ctx.Quote(t.Symbol)
	price := q.AskPrice
	if t.Side == SideSell {
		price = q.BidPrice
	}

	if _, err := t.SubmitChild(ctx, childSize, price); err != nil {
		log.Warn().Err(err).Msg("twap: child order submission failed")
	}
}

func (t *TWAP) advanceBucket(cur int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur > t.currentBucket {
		log.Info().Int("from", t.currentBucket).Int("to", cur).Msg("twap: bucket transition")
		t.currentBucket = cur
	}
}

func (t *TWAP) filledSnapshot() money.Scaled {
	t.Base.mu.Lock()
	defer t.Base.mu.Unlock()
	return t.FilledQty
}

// OnFill allocates the fill to its arrival bucket, then updates common
// accounting via Base.
func (t *TWAP) OnFill(nowNs int64, price, qty money.Scaled) {
	bucket := t.bucketForTime(nowNs)
	t.mu.Lock()
	t.executedInBucket[bucket] += qty
	t.mu.Unlock()
	t.Base.OnFill(price, qty)
}

// OnTimer completes once now >= end regardless of fill state, per
// spec.md §4.5.2 (same rule as VWAP).
func (t *TWAP) OnTimer(nowNs int64) {
	if nowNs >= t.EndNs {
		if t.isRunning() {
			_ = t.Complete(nowNs)
		}
		return
	}
	if !t.isRunning() {
		return
	}
	t.advanceBucket(t.bucketForTime(nowNs))
}
