package algo

import (
	"github.com/tradecore/engine/internal/event"
	"github.com/tradecore/engine/internal/money"
)

// VWAPAlgorithm adapts *VWAP to the Dispatcher's Algorithm interface.
type VWAPAlgorithm struct{ *VWAP }

func (a VWAPAlgorithm) AlgoSymbol() money.Symbol { return a.Symbol }
func (a VWAPAlgorithm) AlgoState() State         { return a.State() }
func (a VWAPAlgorithm) HandleQuote(ctx Context, q event.Quote) {
	a.OnQuote(ctx, q.ReceivedTSNs, q.AskSize, q.BidSize)
}
func (a VWAPAlgorithm) HandleFill(ctx Context, tr event.Trade) {
	a.OnFill(tr.ExecutedTSNs, tr.Price, tr.Quantity)
}
func (a VWAPAlgorithm) HandleTimer(ctx Context, nowNs int64) { a.OnTimer(nowNs) }

// TWAPAlgorithm adapts *TWAP to the Dispatcher's Algorithm interface.
type TWAPAlgorithm struct{ *TWAP }

func (a TWAPAlgorithm) AlgoSymbol() money.Symbol { return a.Symbol }
func (a TWAPAlgorithm) AlgoState() State         { return a.State() }
func (a TWAPAlgorithm) HandleQuote(ctx Context, q event.Quote) {
	a.OnQuote(ctx, q.ReceivedTSNs, q.AskSize, q.BidSize)
}
func (a TWAPAlgorithm) HandleFill(ctx Context, tr event.Trade) {
	a.OnFill(tr.ExecutedTSNs, tr.Price, tr.Quantity)
}
func (a TWAPAlgorithm) HandleTimer(ctx Context, nowNs int64) { a.OnTimer(nowNs) }
