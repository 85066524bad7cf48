package algo

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tradecore/engine/internal/money"
)

const vwapBuckets = 10

// VWAP schedules a parent order across vwapBuckets time buckets weighted by
// historical volume (uniform if unavailable), catching up when behind
// schedule and capping child size to a participation rate of the opposite
// side's displayed size (spec.md §4.5.1).
type VWAP struct {
	Base

	scheduled       [vwapBuckets]money.Scaled
	executedInBucket [vwapBuckets]money.Scaled
	currentBucket   int
	bucketDurationNs int64

	participationCap decimal.Decimal
}

// NewVWAP builds a VWAP algorithm. volumeProfile is the historical per-
// bucket volume weights (length vwapBuckets); pass nil for uniform weights.
func NewVWAP(sym money.Symbol, side Side, targetQty, limitPrice money.Scaled, scale money.Scale, startNs, endNs int64, volumeProfile []float64, participationCap decimal.Decimal) *VWAP {
	v := &VWAP{
		Base:             NewBase(sym, side, targetQty, limitPrice, scale, startNs, endNs),
		bucketDurationNs: (endNs - startNs) / vwapBuckets,
		participationCap: participationCap,
	}
	v.scheduleBuckets(volumeProfile)
	return v
}

// scheduleBuckets computes scheduled[i] = target * v_i / Σv_j, with the
// last bucket absorbing the rounding remainder so Σ scheduled == target.
func (v *VWAP) scheduleBuckets(volumeProfile []float64) {
	weights := volumeProfile
	if len(weights) != vwapBuckets {
		weights = make([]float64, vwapBuckets)
		for i := range weights {
			weights[i] = 1.0
		}
	}
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		sum = vwapBuckets
		for i := range weights {
			weights[i] = 1.0
		}
	}

	target := int64(v.TargetQty)
	var allocated int64
	for i := 0; i < vwapBuckets-1; i++ {
		q := int64(float64(target) * weights[i] / sum)
		v.scheduled[i] = money.Scaled(q)
		allocated += q
	}
	v.scheduled[vwapBuckets-1] = money.Scaled(target - allocated)
}

// Initialize captures the benchmark price via Base and logs the computed
// schedule.
func (v *VWAP) Initialize(ctx Context) error {
	if err := v.Base.Initialize(ctx); err != nil {
		return err
	}
	log.Info().
		Str("symbol", v.Symbol.String()).
		Int64("target_qty", int64(v.TargetQty)).
		Msg("vwap: initialized")
	return nil
}

func (v *VWAP) bucketForTime(nowNs int64) int {
	if v.bucketDurationNs <= 0 {
		return vwapBuckets - 1
	}
	elapsed := nowNs - v.StartNs
	b := int(elapsed / v.bucketDurationNs)
	if b < 0 {
		b = 0
	}
	if b >= vwapBuckets {
		b = vwapBuckets - 1
	}
	return b
}

// OnQuote computes the target child size per spec.md §4.5.1 and submits a
// child order priced at the opposite-side best.
func (v *VWAP) OnQuote(ctx Context, nowNs int64, askSize, bidSize money.Scaled) {
	if !v.isRunning() {
		return
	}

	cur := v.bucketForTime(nowNs)
	v.advanceBucket(cur)

	var expected money.Scaled
	for i := 0; i < cur; i++ {
		expected += v.scheduled[i]
	}
	filled := v.filledSnapshot()
	behind := expected - filled
	if behind < 0 {
		behind = 0
	}

	bucketRemaining := v.scheduled[cur] - v.executedInBucket[cur]
	if bucketRemaining < 0 {
		bucketRemaining = 0
	}

	bucketsRemaining := int64(vwapBuckets - cur)
	var catchup money.Scaled
	if bucketsRemaining > 0 {
		catchup = money.Scaled(int64(behind) / bucketsRemaining)
	}

	childSize := bucketRemaining + catchup
	if rem := v.remaining(); childSize > rem {
		childSize = rem
	}

	oppositeSize := askSize
	if v.Side == SideSell {
		oppositeSize = bidSize
	}
	childSize = capByParticipation(childSize, oppositeSize, v.participationCap)

	q, _ := ctx.Quote(v.Symbol)
	price := q.AskPrice
	if v.Side == SideSell {
		price = q.BidPrice
	}

	if _, err := v.SubmitChild(ctx, childSize, price); err != nil {
		log.Warn().Err(err).Msg("vwap: child order submission failed")
	}
}

// advanceBucket logs and advances currentBucket on a bucket transition.
func (v *VWAP) advanceBucket(cur int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if cur > v.currentBucket {
		log.Info().Int("from", v.currentBucket).Int("to", cur).Msg("vwap: bucket transition")
		v.currentBucket = cur
	}
}

func (v *VWAP) filledSnapshot() money.Scaled {
	v.Base.mu.Lock()
	defer v.Base.mu.Unlock()
	return v.FilledQty
}

// OnFill allocates the fill to the bucket it arrived in, then updates the
// common filled/notional accounting via Base.
func (v *VWAP) OnFill(nowNs int64, price, qty money.Scaled) {
	bucket := v.bucketForTime(nowNs)
	v.mu.Lock()
	v.executedInBucket[bucket] += qty
	v.mu.Unlock()
	v.Base.OnFill(price, qty)
}

// OnTimer completes the algorithm once now >= end, regardless of fill
// state, per spec.md §4.5.1. Otherwise it advances the bucket if needed.
func (v *VWAP) OnTimer(nowNs int64) {
	if nowNs >= v.EndNs {
		if v.isRunning() {
			_ = v.Complete(nowNs)
		}
		return
	}
	if !v.isRunning() {
		return
	}
	v.advanceBucket(v.bucketForTime(nowNs))
}

// capByParticipation caps size to cap*opposite (floored at 1 when opposite
// is positive), per spec.md §4.5.1.
func capByParticipation(size, opposite money.Scaled, cap decimal.Decimal) money.Scaled {
	if opposite <= 0 || cap.IsZero() {
		return size
	}
	capped := cap.Mul(decimal.NewFromInt(int64(opposite))).IntPart()
	if capped < 1 {
		capped = 1
	}
	if int64(size) > capped {
		return money.Scaled(capped)
	}
	return size
}
