// Package event implements the single-producer/multi-consumer event ring
// that sequences quote, trade, fill, and order-command events across the
// order manager, position manager, risk engine, metrics, and algorithm
// dispatcher.
//
// The ring buffer design (cache-padded slots, atomic sequence cursors,
// gating against the slowest consumer) is adapted from the LMAX-style
// disruptor in rishavpaul-system-design/order-matching-engine/internal/disruptor
// and the bit-masked circular buffer in other_examples' events_ring.go,
// generalized from a single consumer to a fixed chain of named handlers.
package event

import "github.com/tradecore/engine/internal/money"

// Kind is the tagged-variant discriminator for TradingEvent.
type Kind uint8

const (
	KindNewOrder Kind = iota
	KindCancelOrder
	KindModifyOrder
	KindOrderAccepted
	KindOrderFilled
	KindOrderRejected
	KindOrderCancelled
	KindQuoteUpdate
	KindTradeUpdate
	KindHeartbeat
	KindTimer
)

func (k Kind) String() string {
	switch k {
	case KindNewOrder:
		return "NEW_ORDER"
	case KindCancelOrder:
		return "CANCEL_ORDER"
	case KindModifyOrder:
		return "MODIFY_ORDER"
	case KindOrderAccepted:
		return "ORDER_ACCEPTED"
	case KindOrderFilled:
		return "ORDER_FILLED"
	case KindOrderRejected:
		return "ORDER_REJECTED"
	case KindOrderCancelled:
		return "ORDER_CANCELLED"
	case KindQuoteUpdate:
		return "QUOTE_UPDATE"
	case KindTradeUpdate:
		return "TRADE_UPDATE"
	case KindHeartbeat:
		return "HEARTBEAT"
	case KindTimer:
		return "TIMER"
	default:
		return "UNKNOWN"
	}
}

// Source identifies the producer class for per-source back-pressure policy.
type Source uint8

const (
	SourceQuote Source = iota
	SourceOrder
)

// Quote is an inbound top-of-book update. Invariant: AskPrice >= BidPrice;
// producers must filter venue updates that transiently violate this before
// publishing.
type Quote struct {
	Symbol        money.Symbol
	BidPrice      money.Scaled
	AskPrice      money.Scaled
	BidSize       money.Scaled
	AskSize       money.Scaled
	ExchangeTSNs  int64
	ReceivedTSNs  int64
	Sequence      uint64
	PriceScale    money.Scale
}

// Mid returns the integer-division midpoint of bid/ask.
func (q Quote) Mid() money.Scaled { return money.Mid(q.BidPrice, q.AskPrice) }

// Valid reports whether the quote respects ask >= bid.
func (q Quote) Valid() bool { return q.AskPrice >= q.BidPrice }

// Trade is a fill report from a venue.
type Trade struct {
	TradeID         string
	ExchangeTradeID string
	ClientOrderID   uint64
	ExchangeOrderID string
	Symbol          money.Symbol
	Side            Side
	Price           money.Scaled
	Quantity        money.Scaled
	PriceScale      money.Scale
	Commission      money.Scaled
	ExecutedTSNs    int64
	ReceivedTSNs    int64
	IsMaker         bool
}

// Notional returns price*quantity/scale.
func (t Trade) Notional() int64 { return money.Notional(t.Price, t.Quantity, t.PriceScale) }

// Side is BUY or SELL.
type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideSell {
		return "SELL"
	}
	return "BUY"
}

// SignedQuantity returns qty with a sign convention of + for BUY, - for SELL.
func (s Side) SignedQuantity(qty money.Scaled) money.Scaled {
	if s == SideSell {
		return -qty
	}
	return qty
}

// OrderRef is the lightweight order-event payload carried on the ring.
// It intentionally does not embed the full order.Order record: handlers
// that need the complete order look it up from the order manager by
// ClientOrderID, keeping the event package free of a dependency on the
// order package (the ring is the synchronization point; it is not where
// order state itself lives).
type OrderRef struct {
	ClientOrderID   uint64
	ExchangeOrderID string
	Symbol          money.Symbol
	Side            Side
	PrevStatus      string
	NewStatus       string
	FilledQty       money.Scaled
	RemainingQty    money.Scaled
	LastFillPrice   money.Scaled
	LastFillQty     money.Scaled
	RejectReason    string
	StrategyID      string
}

// TradingEvent is a pre-allocated ring slot. Fields are overwritten on
// publish, never reallocated; readers rely on Sequence to detect freshness.
type TradingEvent struct {
	Sequence  uint64
	Kind      Kind
	IngestTS  int64 // producer-ingest timestamp, monotonic nanos
	Symbol    money.Symbol
	Quote     Quote
	Trade     Trade
	Order     OrderRef
	TimerNowNs int64
}

// reset clears a slot's payload between publishes without deallocating it.
func (e *TradingEvent) reset() {
	e.Kind = 0
	e.IngestTS = 0
	e.Symbol = money.Symbol{}
	e.Quote = Quote{}
	e.Trade = Trade{}
	e.Order = OrderRef{}
	e.TimerNowNs = 0
}
