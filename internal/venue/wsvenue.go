package venue

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tradecore/engine/internal/money"
	"github.com/tradecore/engine/internal/xerrors"
)

const (
	wsReconnectDelay = 5 * time.Second
	wsPingInterval   = 30 * time.Second
)

// wsTick is the wire shape this demo adapter expects over the socket: a
// flat JSON quote update, deliberately simpler than the teacher's
// bids/asks orderbook payload since this adapter streams only top-of-book.
type wsTick struct {
	Ticker   string `json:"ticker"`
	Venue    string `json:"venue"`
	BidPrice int64  `json:"bid_price"`
	AskPrice int64  `json:"ask_price"`
	BidSize  int64  `json:"bid_size"`
	AskSize  int64  `json:"ask_size"`
	Scale    int64  `json:"scale"`
	TSNs     int64  `json:"ts_ns"`
}

// WSAdapter is a demo VenueAdapter that submits/cancels orders against an
// embedded Sim (order management has no network counterpart to simulate
// here) while streaming quotes over a real websocket connection with the
// teacher's reconnect-with-backoff shape, grounded on
// feeds/polymarket_ws.go's connectionLoop/connect/pingLoop/readLoop.
// Intended for the demo binary against a loopback test server, not a
// production venue.
type WSAdapter struct {
	*Sim

	mu        sync.RWMutex
	url       string
	conn      *websocket.Conn
	connected bool
	running   bool
	stopCh    chan struct{}
}

// NewWSAdapter builds a WSAdapter that will dial url once Start is called.
func NewWSAdapter(url string) *WSAdapter {
	return &WSAdapter{
		Sim:    NewSim(),
		url:    url,
		stopCh: make(chan struct{}),
	}
}

// Start begins the reconnect loop in the background; quotes received over
// the socket are forwarded to whatever QuoteHandler was registered via
// SubscribeQuotes on the embedded Sim.
func (w *WSAdapter) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.connectionLoop()
}

// Stop closes the connection and halts reconnection.
func (w *WSAdapter) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
	if w.conn != nil {
		w.conn.Close()
	}
}

func (w *WSAdapter) connectionLoop() {
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		if err := w.connect(); err != nil {
			log.Error().Err(err).Str("url", w.url).Msg("wsvenue: connection failed, retrying")
			time.Sleep(wsReconnectDelay)
			continue
		}

		w.readLoop()
		time.Sleep(wsReconnectDelay)
	}
}

func (w *WSAdapter) connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(w.url, nil)
	if err != nil {
		return &xerrors.VenueError{Kind: xerrors.VenueTransport, Code: "dial_failed", Message: err.Error(), Retryable: true}
	}

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()

	log.Info().Str("url", w.url).Msg("wsvenue: connected")
	go w.pingLoop()
	return nil
}

func (w *WSAdapter) pingLoop() {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.mu.RLock()
			conn, connected := w.conn, w.connected
			w.mu.RUnlock()
			if connected && conn != nil {
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

func (w *WSAdapter) readLoop() {
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			w.connected = false
			w.mu.Unlock()
			return
		}
		w.processMessage(message)
	}
}

func (w *WSAdapter) processMessage(data []byte) {
	var ticks []wsTick
	if err := json.Unmarshal(data, &ticks); err != nil {
		var single wsTick
		if err := json.Unmarshal(data, &single); err != nil {
			return
		}
		ticks = []wsTick{single}
	}

	for _, tick := range ticks {
		sym := money.NewSymbol(tick.Ticker, tick.Venue)
		w.Sim.PushQuote(sym,
			money.Scaled(tick.BidPrice), money.Scaled(tick.AskPrice),
			money.Scaled(tick.BidSize), money.Scaled(tick.AskSize),
			money.Scale(tick.Scale), tick.TSNs)
	}
}

var _ Adapter = (*WSAdapter)(nil)
