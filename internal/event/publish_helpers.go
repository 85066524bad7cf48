package event

import "github.com/tradecore/engine/internal/money"

// PublishQuote publishes a QUOTE_UPDATE event, subject to the quote
// back-pressure policy (drop-oldest).
func (r *Ring) PublishQuote(ingestTS int64, q Quote) (uint64, bool) {
	return r.Publish(SourceQuote, KindQuoteUpdate, ingestTS, func(e *TradingEvent) {
		e.Symbol = q.Symbol
		e.Quote = q
	})
}

// PublishTrade publishes an ORDER_FILLED/TRADE_UPDATE event carrying a fill.
func (r *Ring) PublishTrade(ingestTS int64, kind Kind, tr Trade) (uint64, bool) {
	return r.Publish(SourceOrder, kind, ingestTS, func(e *TradingEvent) {
		e.Symbol = tr.Symbol
		e.Trade = tr
	})
}

// PublishOrderEvent publishes one of the order command/lifecycle events
// (NEW_ORDER, CANCEL_ORDER, MODIFY_ORDER, ORDER_ACCEPTED, ORDER_REJECTED,
// ORDER_CANCELLED); orders always block rather than drop.
func (r *Ring) PublishOrderEvent(ingestTS int64, kind Kind, sym money.Symbol, ref OrderRef) (uint64, bool) {
	return r.Publish(SourceOrder, kind, ingestTS, func(e *TradingEvent) {
		e.Symbol = sym
		e.Order = ref
	})
}

// PublishTimer publishes a TIMER tick, used to drive algorithm on_timer
// callbacks at a fixed cadence.
func (r *Ring) PublishTimer(nowNs int64) (uint64, bool) {
	return r.Publish(SourceOrder, KindTimer, nowNs, func(e *TradingEvent) {
		e.TimerNowNs = nowNs
	})
}

// PublishHeartbeat publishes a HEARTBEAT event.
func (r *Ring) PublishHeartbeat(ingestTS int64) (uint64, bool) {
	return r.Publish(SourceQuote, KindHeartbeat, ingestTS, nil)
}
