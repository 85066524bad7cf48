// Command engine boots the trading core end to end: config, journal,
// a simulated venue, the event ring, the order/position/risk managers, the
// algorithm dispatcher, and a pair of demo strategies. It runs a short
// in-process demo tick through the full pipeline and then blocks for a
// shutdown signal, mirroring the composition-root shape of the teacher's
// cmd/polybot/main.go (zerolog setup, config.Load, graceful SIGINT/SIGTERM
// shutdown) but wiring this engine's subsystems in place of the teacher's
// BTC-prediction bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tradecore/engine/internal/algo"
	"github.com/tradecore/engine/internal/config"
	"github.com/tradecore/engine/internal/event"
	"github.com/tradecore/engine/internal/journal"
	"github.com/tradecore/engine/internal/metrics"
	"github.com/tradecore/engine/internal/money"
	"github.com/tradecore/engine/internal/notify"
	"github.com/tradecore/engine/internal/order"
	"github.com/tradecore/engine/internal/position"
	"github.com/tradecore/engine/internal/risk"
	"github.com/tradecore/engine/internal/strategy"
	"github.com/tradecore/engine/internal/venue"
)

const version = "1.0.0"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Info().Str("version", version).Str("mode", cfg.Mode).Msg("engine starting")

	dsn := cfg.DatabasePath
	if cfg.DatabaseDriver == "postgres" {
		dsn = cfg.DatabaseURL
	}
	j, err := journal.Open(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open journal")
	}
	defer j.Close()

	notifier, err := notify.New(cfg.TelegramToken, cfg.TelegramChatID, cfg.AlertCooldown)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init telegram notifier")
	}

	core := newEngineCore(cfg, j, notifier, venue.NewSim())
	core.dispatcher = algo.NewDispatcher(core)

	ring := event.NewRing(event.Config{Size: cfg.RingSize, BlockWait: cfg.RingBlockWait})
	ring.RegisterHandler("risk-audit", core.handleRiskAudit)
	ring.RegisterHandler("order", core.handleOrderEvent)
	ring.RegisterHandler("position", core.handlePositionEvent)
	ring.RegisterHandler("metrics", core.handleMetricsEvent)
	ring.RegisterHandler("algorithm-dispatcher", core.handleDispatch)
	core.ring = ring

	runCtx, cancel := context.WithCancel(context.Background())
	core.ctx = runCtx

	ring.Start(runCtx)
	core.dispatcher.StartTimer()

	sim := core.venueAdapter.(*venue.Sim)
	sim.OnOrderUpdate(core.onVenueOrderUpdate)

	demoSymbol := money.NewSymbol("AAPL", "NASDAQ")
	if err := sim.SubscribeQuotes([]money.Symbol{demoSymbol}, core.onVenueQuote); err != nil {
		log.Error().Err(err).Msg("failed to subscribe demo quotes")
	}
	if err := sim.SubscribeTrades([]money.Symbol{demoSymbol}, core.onVenueTrade); err != nil {
		log.Error().Err(err).Msg("failed to subscribe demo trades")
	}

	params := strategy.NewParams().Set("max_order_size", "500").Set("signal_threshold", "0.3")
	momentum := strategy.NewMomentum([]money.Symbol{demoSymbol}, params, core.submitFuncFor("momentum"))
	meanRev := strategy.NewMeanReversion([]money.Symbol{demoSymbol}, params, core.submitFuncFor("mean-reversion"))
	core.strategies = []strategy.Strategy{momentum, meanRev}

	nowNs := time.Now().UnixNano()
	vwap := algo.NewVWAP(demoSymbol, algo.SideBuy, 1000, 0, money.ScaleEquityCents,
		nowNs, nowNs+int64(time.Minute), nil, decimal.NewFromFloat(0.25))
	if err := vwap.Initialize(core); err != nil {
		log.Error().Err(err).Msg("failed to initialize demo vwap")
	} else {
		core.dispatcher.Register(algo.VWAPAlgorithm{VWAP: vwap})
	}

	notifier.Startup(cfg.Mode)
	runDemoTick(core, sim, demoSymbol)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Info().Msg("shutdown signal received")
	case <-time.After(3 * time.Second):
		log.Info().Msg("demo window elapsed")
	}

	snap := core.riskEngine.Snapshot()
	log.Info().
		Bool("enabled", snap.Enabled).
		Int("orders_today", snap.OrdersSubmittedToday).
		Int64("daily_notional", snap.DailyNotional).
		Str("breaker_state", snap.Breaker.State.String()).
		Msg("risk engine snapshot")

	for _, p := range core.positions.All() {
		log.Info().
			Str("symbol", p.Symbol.String()).
			Int64("quantity", int64(p.Quantity)).
			Int64("realized_pnl", int64(p.RealizedPnL)).
			Int64("unrealized_pnl", int64(p.UnrealizedPnL)).
			Msg("position snapshot")
	}

	cancel()
	ring.Drain()
	core.dispatcher.Stop()
	log.Info().Msg("engine stopped")
}

// runDemoTick pushes one synthetic quote, submits one demo order through
// the full risk-checked path, and pushes a matching fill, so the wired
// pipeline (risk -> venue -> ring -> position -> strategies/algorithms)
// exercises at least once per run.
func runDemoTick(core *engineCore, sim *venue.Sim, sym money.Symbol) {
	sim.PushQuote(sym, 10000, 10010, 500, 500, money.ScaleEquityCents, time.Now().UnixNano())
	time.Sleep(10 * time.Millisecond)

	submit := core.submitFuncFor("demo")
	id, err := submit(sym, event.SideBuy, 100, 10005, money.ScaleEquityCents)
	if err != nil {
		log.Warn().Err(err).Msg("demo order submission failed")
		return
	}

	o, ok := core.orders.Get(id)
	if !ok {
		return
	}
	time.Sleep(10 * time.Millisecond)
	if err := sim.PushFill(o.ExchangeOrderID, 10005, 100, time.Now().UnixNano()); err != nil {
		log.Warn().Err(err).Msg("demo fill push failed")
	}
}

// engineCore implements algo.Context and bundles every manager the demo
// wires together; it is the composition root's single dependency-carrying
// value, grounded on the teacher's Engine struct in core/engine.go which
// plays the same "everything a strategy needs" role.
type engineCore struct {
	cfg          *config.Config
	journal      *journal.Journal
	notifier     *notify.Notifier
	metrics      *metrics.Registry
	orders       *order.Manager
	positions    *position.Manager
	riskEngine   *risk.Engine
	venueAdapter venue.Adapter
	ring         *event.Ring
	dispatcher   *algo.Dispatcher
	strategies   []strategy.Strategy
	ctx          context.Context

	quotesMu     sync.RWMutex
	latestQuotes map[string]event.Quote

	fillCallbacksMu sync.Mutex
	fillCallbacks   []func(event.Trade)
}

func newEngineCore(cfg *config.Config, j *journal.Journal, n *notify.Notifier, adapter venue.Adapter) *engineCore {
	positions := position.NewManager()
	return &engineCore{
		cfg:          cfg,
		journal:      j,
		notifier:     n,
		metrics:      metrics.New(),
		orders:       order.NewManager(),
		positions:    positions,
		riskEngine:   risk.NewEngine(cfg.Risk, 5, time.Minute, positions),
		venueAdapter: adapter,
		ctx:          context.Background(),
		latestQuotes: make(map[string]event.Quote),
	}
}

// Quote satisfies algo.Context.
func (c *engineCore) Quote(sym money.Symbol) (event.Quote, bool) {
	c.quotesMu.RLock()
	defer c.quotesMu.RUnlock()
	q, ok := c.latestQuotes[sym.String()]
	return q, ok
}

// CurrentTimeNs satisfies algo.Context.
func (c *engineCore) CurrentTimeNs() int64 { return time.Now().UnixNano() }

// SubmitOrder satisfies algo.Context, routing an algorithm's child order
// through the same risk-checked submission path as strategy orders.
func (c *engineCore) SubmitOrder(req algo.ChildOrderRequest) (uint64, error) {
	return c.submitOrder(req.Symbol, req.Side, order.TypeLimit, req.Quantity, req.Price, req.Scale, "algo")
}

// CancelOrder satisfies algo.Context.
func (c *engineCore) CancelOrder(clientOrderID uint64) error {
	o, ok := c.orders.Get(clientOrderID)
	if !ok {
		return fmt.Errorf("engine: unknown client order id %d", clientOrderID)
	}
	if err := c.venueAdapter.CancelOrder(c.ctx, o); err != nil {
		return err
	}
	return c.orders.MarkCancelled(clientOrderID, time.Now().UnixNano())
}

// RegisterFillCallback satisfies algo.Context; VWAP/TWAP register through
// this when they need fills delivered outside the dispatcher's own
// HandleFill routing (unused by the demo strategies but kept wired since
// the Context interface requires it).
func (c *engineCore) RegisterFillCallback(fn func(event.Trade)) {
	c.fillCallbacksMu.Lock()
	c.fillCallbacks = append(c.fillCallbacks, fn)
	c.fillCallbacksMu.Unlock()
}

// HistoricalVolume satisfies algo.Context. The demo wiring has no volume
// history source, so VWAP falls back to its uniform-weight schedule.
func (c *engineCore) HistoricalVolume(sym money.Symbol, buckets int) ([]float64, bool) {
	return nil, false
}

// submitFuncFor builds a strategy.SubmitFunc tagging every order it places
// with strategyID, so journal rows and audit records attribute fills back
// to the strategy that requested them.
func (c *engineCore) submitFuncFor(strategyID string) strategy.SubmitFunc {
	return func(sym money.Symbol, side strategy.Side, qty, price money.Scaled, scale money.Scale) (uint64, error) {
		return c.submitOrder(sym, side, order.TypeLimit, qty, price, scale, strategyID)
	}
}

// submitOrder creates, tracks, risk-checks, and submits an order, journaling
// every transition (spec.md §4.2/§4.4's combined create -> check -> submit
// path), shared by both the algorithm dispatcher and every strategy.
func (c *engineCore) submitOrder(sym money.Symbol, side event.Side, typ order.Type, qty, price money.Scaled, scale money.Scale, strategyID string) (uint64, error) {
	nowNs := time.Now().UnixNano()
	o, err := c.orders.Create(sym, order.Side(side), typ, qty, price, scale, nowNs)
	if err != nil {
		return 0, err
	}
	o.StrategyID = strategyID
	c.orders.Track(o)
	_ = c.journal.AppendOrder(orderRecord(o))

	result := c.riskEngine.CheckPreTrade(risk.OrderRequest{
		Symbol: sym, Quantity: qty, Price: price, PriceScale: scale,
		SignedDelta: side.SignedQuantity(qty),
	})
	if !result.Approved() {
		_ = c.orders.Reject(o.ClientOrderID, result.Reason, time.Now().UnixNano())
		c.metrics.OrdersRejected.Inc()
		c.metrics.RiskRejections.Inc()
		c.notifier.RiskRejected(result.RuleName, result.Reason, sym.String())
		_ = c.journal.AppendAudit(journal.AuditRecord{
			Category: "risk_rejected", Detail: result.RuleName + ": " + result.Reason, TSNs: time.Now().UnixNano(),
		})
		return o.ClientOrderID, fmt.Errorf("engine: order rejected by %s: %s", result.RuleName, result.Reason)
	}
	c.metrics.RiskApprovals.Inc()

	if err := c.venueAdapter.SubmitOrder(c.ctx, o); err != nil {
		_ = c.orders.Reject(o.ClientOrderID, err.Error(), time.Now().UnixNano())
		c.metrics.OrdersRejected.Inc()
		return o.ClientOrderID, err
	}
	_ = c.orders.MarkSubmitted(o.ClientOrderID, time.Now().UnixNano())
	c.metrics.OrdersCreated.Inc()
	return o.ClientOrderID, nil
}

// onVenueQuote is the venue.QuoteHandler callback; it publishes the quote
// onto the ring rather than mutating state directly, so every downstream
// consumer sees it through the same fixed dependency chain.
func (c *engineCore) onVenueQuote(sym money.Symbol, bidPrice, askPrice, bidSize, askSize money.Scaled, scale money.Scale, tsNs int64) {
	q := event.Quote{
		Symbol: sym, BidPrice: bidPrice, AskPrice: askPrice,
		BidSize: bidSize, AskSize: askSize, PriceScale: scale,
		ExchangeTSNs: tsNs, ReceivedTSNs: time.Now().UnixNano(),
	}
	if !q.Valid() {
		log.Warn().Str("symbol", sym.String()).Msg("engine: dropping crossed quote")
		return
	}
	c.ring.Publish(event.SourceQuote, event.KindQuoteUpdate, tsNs, func(e *event.TradingEvent) {
		e.Symbol = sym
		e.Quote = q
	})
}

// onVenueTrade is the venue.TradeHandler callback for async fills pushed
// outside the direct SubmitOrder call path.
func (c *engineCore) onVenueTrade(tr venue.TradeReport) {
	c.publishTrade(event.Trade{
		TradeID: tr.TradeID, ExchangeTradeID: tr.ExchangeTradeID, ClientOrderID: tr.ClientOrderID,
		ExchangeOrderID: tr.ExchangeOrderID, Symbol: tr.Symbol, Side: event.Side(tr.Side),
		Price: tr.Price, Quantity: tr.Quantity, PriceScale: tr.PriceScale, ExecutedTSNs: tr.ExecutedTSNs,
	})
}

// onVenueOrderUpdate is the venue.OrderUpdateHandler callback for async
// status changes (fills delivered this way carry the filled quantity on
// the order itself rather than as a separate TradeReport).
func (c *engineCore) onVenueOrderUpdate(u venue.OrderUpdate) {
	if u.NewStatus != order.StatusFilled && u.NewStatus != order.StatusPartiallyFilled {
		return
	}
	c.publishTrade(event.Trade{
		ClientOrderID: u.Order.ClientOrderID, ExchangeOrderID: u.Order.ExchangeOrderID,
		Symbol: u.Order.Symbol, Side: event.Side(u.Order.Side),
		Price: u.Order.LastFillPrice, Quantity: u.Order.LastFillQuantity,
		PriceScale: u.Order.PriceScale, ExecutedTSNs: u.TSNs,
	})
}

func (c *engineCore) publishTrade(tr event.Trade) {
	c.ring.Publish(event.SourceOrder, event.KindTradeUpdate, tr.ExecutedTSNs, func(e *event.TradingEvent) {
		e.Symbol = tr.Symbol
		e.Trade = tr
	})
}

// handleRiskAudit is the ring's first handler stage: re-evaluate the global
// daily-loss/net-exposure gates on every quote or fill (spec.md §4.4's
// post-trade global checks).
func (c *engineCore) handleRiskAudit(e *event.TradingEvent) {
	switch e.Kind {
	case event.KindQuoteUpdate, event.KindTradeUpdate:
		c.riskEngine.CheckGlobalLimits(c.positions.NetExposureCents())
	}
}

// handleOrderEvent is the ring's second stage: cache the latest quote per
// symbol so algo.Context.Quote and strategy.Base's quote cache both read a
// consistent, ring-ordered view.
func (c *engineCore) handleOrderEvent(e *event.TradingEvent) {
	if e.Kind == event.KindQuoteUpdate {
		c.quotesMu.Lock()
		c.latestQuotes[e.Quote.Symbol.String()] = e.Quote
		c.quotesMu.Unlock()
	}
}

// handlePositionEvent is the ring's third stage: fold fills into the
// position manager and mark positions to market on quote updates.
func (c *engineCore) handlePositionEvent(e *event.TradingEvent) {
	switch e.Kind {
	case event.KindTradeUpdate:
		tr := e.Trade
		if _, err := c.positions.Apply(tr.Symbol, position.Trade{
			Price: tr.Price, Quantity: tr.Quantity, Scale: tr.PriceScale,
			Side: position.Side(tr.Side), ExecutedTSNs: tr.ExecutedTSNs,
		}); err != nil {
			log.Error().Err(err).Str("symbol", tr.Symbol.String()).Msg("engine: failed to apply fill to position")
			return
		}
		c.riskEngine.RecordFill(tr.Symbol, tr.Quantity, tr.Price, tr.PriceScale)
		if tr.ClientOrderID != 0 {
			_ = c.orders.MarkFilled(tr.ClientOrderID, tr.Price, tr.Quantity, tr.ExecutedTSNs)
		}
		_ = c.journal.AppendTrade(journal.TradeRecord{
			TradeID: tr.TradeID, ExchangeTradeID: tr.ExchangeTradeID, ClientOrderID: tr.ClientOrderID,
			Symbol: tr.Symbol.String(), Side: tr.Side.String(), PriceScaled: int64(tr.Price),
			QuantityScaled: int64(tr.Quantity), PriceScale: int64(tr.PriceScale), ExecutedTSNs: tr.ExecutedTSNs,
		})
	case event.KindQuoteUpdate:
		c.positions.MarkToMarket(e.Quote.Symbol, e.Quote.Mid())
	}
}

// handleMetricsEvent is the ring's fourth stage: update the lock-free
// counters/gauges the management surface exports.
func (c *engineCore) handleMetricsEvent(e *event.TradingEvent) {
	switch e.Kind {
	case event.KindQuoteUpdate:
		c.metrics.NetExposureCents.Set(c.positions.NetExposureCents())
	case event.KindTradeUpdate:
		c.metrics.OrdersFilled.Inc()
		c.metrics.FillLatencyNs.Record(time.Now().UnixNano() - e.Trade.ExecutedTSNs)
		c.metrics.DailyRealizedCents.Set(c.positions.TotalRealizedPnLCents())
	}
}

// handleDispatch is the ring's final stage: fan the event out to every
// registered algorithm and every enabled strategy tracking the symbol.
func (c *engineCore) handleDispatch(e *event.TradingEvent) {
	switch e.Kind {
	case event.KindQuoteUpdate:
		c.dispatcher.DispatchQuote(e.Quote)
		for _, s := range c.strategies {
			if !s.Enabled() {
				continue
			}
			for _, sym := range s.Symbols() {
				if sym.Equal(e.Quote.Symbol) {
					s.OnQuote(sym, e.Quote)
					break
				}
			}
		}
	case event.KindTradeUpdate:
		c.dispatcher.DispatchFill(e.Trade)
		c.fillCallbacksMu.Lock()
		cbs := append([]func(event.Trade){}, c.fillCallbacks...)
		c.fillCallbacksMu.Unlock()
		for _, fn := range cbs {
			fn(e.Trade)
		}
	}
}

func orderRecord(o *order.Order) journal.OrderRecord {
	return journal.OrderRecord{
		ClientOrderID: o.ClientOrderID, ExchangeOrderID: o.ExchangeOrderID,
		Symbol: o.Symbol.String(), Side: o.Side.String(), Type: o.Type.String(),
		Status: o.Status.String(), PriceScaled: int64(o.Price), PriceScale: int64(o.PriceScale),
		QuantityScaled: int64(o.Quantity), FilledScaled: int64(o.FilledQuantity),
		StrategyID: o.StrategyID, TSNs: o.CreatedTSNs,
	}
}
