package venue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tradecore/engine/internal/money"
	"github.com/tradecore/engine/internal/order"
	"github.com/tradecore/engine/internal/xerrors"
)

// Sim is an in-process simulated VenueAdapter for tests and the demo
// binary: SubmitOrder tracks the order as open, and fills reach subscribers
// only when the caller invokes PushFill; Sim does no matching of its own.
// Grounded on the teacher's
// PlaceOrder (exec/client.go) reduced to a no-network simulator and the
// subscriber-broadcast shape of feeds/polymarket_ws.go's PolymarketFeed.
type Sim struct {
	mu sync.Mutex

	nextExchangeID atomic.Uint64

	quoteHandler QuoteHandler
	tradeHandler TradeHandler
	updateFn     OrderUpdateHandler

	subscribedQuotes map[string]bool
	subscribedTrades map[string]bool

	openOrders map[string]*order.Order // exchangeOrderID -> order

	// FillLatencyNs is not read by any Sim method; SubmitOrder always
	// returns without delay.
	FillLatencyNs int64
}

// NewSim builds an empty simulated venue.
func NewSim() *Sim {
	return &Sim{
		subscribedQuotes: make(map[string]bool),
		subscribedTrades: make(map[string]bool),
		openOrders:       make(map[string]*order.Order),
	}
}

// SubmitOrder assigns o a synthetic SIM-n exchange order ID and records it
// as open. It neither fills the order nor changes its status; fills come
// only from PushFill.
func (s *Sim) SubmitOrder(ctx context.Context, o *order.Order) error {
	if o.Quantity <= 0 {
		return &xerrors.InvalidInput{Field: "quantity", Reason: "must be positive"}
	}
	s.mu.Lock()
	o.ExchangeOrderID = fmt.Sprintf("SIM-%d", s.nextExchangeID.Add(1))
	s.openOrders[o.ExchangeOrderID] = o
	s.mu.Unlock()

	log.Debug().
		Str("symbol", o.Symbol.String()).
		Str("exchange_order_id", o.ExchangeOrderID).
		Msg("sim venue: order accepted")
	return nil
}

// CancelOrder removes the order from the open book.
func (s *Sim) CancelOrder(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.openOrders[o.ExchangeOrderID]; !ok {
		return &xerrors.VenueError{Kind: xerrors.VenueNotFound, Code: "not_found", Message: "order not open", Retryable: false}
	}
	delete(s.openOrders, o.ExchangeOrderID)
	return nil
}

// ModifyOrder updates the resting order's price/quantity in place.
func (s *Sim) ModifyOrder(ctx context.Context, o *order.Order, newPrice, newQuantity money.Scaled) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	resting, ok := s.openOrders[o.ExchangeOrderID]
	if !ok {
		return &xerrors.VenueError{Kind: xerrors.VenueNotFound, Code: "not_found", Message: "order not open", Retryable: false}
	}
	resting.Price = newPrice
	resting.Quantity = newQuantity
	return nil
}

// GetOpenOrders returns a snapshot of the simulated open-order book.
func (s *Sim) GetOpenOrders(ctx context.Context) ([]*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*order.Order, 0, len(s.openOrders))
	for _, o := range s.openOrders {
		out = append(out, o)
	}
	return out, nil
}

// CancelAll cancels every open order, optionally filtered by symbol.
func (s *Sim) CancelAll(ctx context.Context, sym *money.Symbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, o := range s.openOrders {
		if sym != nil && !o.Symbol.Equal(*sym) {
			continue
		}
		delete(s.openOrders, id)
	}
	return nil
}

// SubscribeQuotes/SubscribeTrades register the single active handler the
// simulator will invoke on PushQuote/PushFill; the teacher's feed supports
// many fan-out subscriber channels, but one in-process handler is all the
// ring's ingestion goroutine needs.
func (s *Sim) SubscribeQuotes(symbols []money.Symbol, handler QuoteHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quoteHandler = handler
	for _, sym := range symbols {
		s.subscribedQuotes[sym.String()] = true
	}
	return nil
}

func (s *Sim) UnsubscribeQuotes(symbols []money.Symbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sym := range symbols {
		delete(s.subscribedQuotes, sym.String())
	}
	return nil
}

func (s *Sim) SubscribeTrades(symbols []money.Symbol, handler TradeHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tradeHandler = handler
	for _, sym := range symbols {
		s.subscribedTrades[sym.String()] = true
	}
	return nil
}

func (s *Sim) UnsubscribeTrades(symbols []money.Symbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sym := range symbols {
		delete(s.subscribedTrades, sym.String())
	}
	return nil
}

func (s *Sim) OnOrderUpdate(handler OrderUpdateHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateFn = handler
}

// PushQuote feeds a synthetic top-of-book update to the subscribed quote
// handler, standing in for a real venue's market-data stream.
func (s *Sim) PushQuote(sym money.Symbol, bidPrice, askPrice, bidSize, askSize money.Scaled, scale money.Scale, tsNs int64) {
	s.mu.Lock()
	handler := s.quoteHandler
	subscribed := s.subscribedQuotes[sym.String()]
	s.mu.Unlock()
	if handler == nil || !subscribed {
		return
	}
	handler(sym, bidPrice, askPrice, bidSize, askSize, scale, tsNs)
}

// PushFill simulates a (possibly partial) fill against an open order,
// generating a UUID trade ID exactly as the teacher's scalper does for its
// own trade records (internal/arbitrage/scalper.go).
func (s *Sim) PushFill(exchangeOrderID string, price, qty money.Scaled, tsNs int64) error {
	s.mu.Lock()
	o, ok := s.openOrders[exchangeOrderID]
	handler := s.tradeHandler
	s.mu.Unlock()
	if !ok {
		return &xerrors.VenueError{Kind: xerrors.VenueNotFound, Code: "not_found", Message: "order not open", Retryable: false}
	}
	if handler == nil {
		return nil
	}
	handler(TradeReport{
		TradeID:         uuid.NewString(),
		ExchangeTradeID: uuid.NewString(),
		ClientOrderID:   o.ClientOrderID,
		ExchangeOrderID: exchangeOrderID,
		Symbol:          o.Symbol,
		Side:            o.Side,
		Price:           price,
		Quantity:        qty,
		PriceScale:      o.PriceScale,
		ExecutedTSNs:    tsNs,
	})
	return nil
}
