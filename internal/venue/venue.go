// Package venue defines the VenueAdapter capability the execution core
// consumes (spec.md §6) plus a simulated adapter for tests and the demo
// binary, grounded on the teacher's exec/client.go method shapes
// (PlaceOrder/CancelOrder/GetBalance) generalized into a venue-agnostic
// interface, and execution/reconciler.go's open-orders reconciliation.
package venue

import (
	"context"

	"github.com/tradecore/engine/internal/money"
	"github.com/tradecore/engine/internal/order"
)

// OrderUpdate is delivered to OnOrderUpdate whenever a venue-side status
// change occurs outside of the direct Submit/Cancel/Modify call path
// (e.g. an async fill or a venue-initiated cancel).
type OrderUpdate struct {
	Order      *order.Order
	PrevStatus order.Status
	NewStatus  order.Status
	TSNs       int64
}

// QuoteHandler and TradeHandler are the streaming callbacks a VenueAdapter
// invokes for subscribed symbols.
type QuoteHandler func(sym money.Symbol, bidPrice, askPrice, bidSize, askSize money.Scaled, scale money.Scale, tsNs int64)
type TradeHandler func(tr TradeReport)

// TradeReport is a fill report pushed by the venue outside the
// direct SubmitOrder call path.
type TradeReport struct {
	TradeID         string
	ExchangeTradeID string
	ClientOrderID   uint64
	ExchangeOrderID string
	Symbol          money.Symbol
	Side            order.Side
	Price           money.Scaled
	Quantity        money.Scaled
	PriceScale      money.Scale
	ExecutedTSNs    int64
}

// OrderUpdateHandler is invoked on any venue-side order status change.
type OrderUpdateHandler func(u OrderUpdate)

// Adapter is the capability the core consumes from any execution venue
// (spec.md §6): submit/cancel/modify, open-order and cancel-all queries,
// and quote/trade subscription with streaming callbacks. Every method
// that talks to the venue takes a context so callers can bound latency
// with a deadline, matching the teacher's http.Client-based calls in
// exec/client.go which all accept a context today via the stdlib client.
type Adapter interface {
	SubmitOrder(ctx context.Context, o *order.Order) error
	CancelOrder(ctx context.Context, o *order.Order) error
	ModifyOrder(ctx context.Context, o *order.Order, newPrice, newQuantity money.Scaled) error
	GetOpenOrders(ctx context.Context) ([]*order.Order, error)
	CancelAll(ctx context.Context, sym *money.Symbol) error

	SubscribeQuotes(symbols []money.Symbol, handler QuoteHandler) error
	UnsubscribeQuotes(symbols []money.Symbol) error
	SubscribeTrades(symbols []money.Symbol, handler TradeHandler) error
	UnsubscribeTrades(symbols []money.Symbol) error

	OnOrderUpdate(handler OrderUpdateHandler)
}
