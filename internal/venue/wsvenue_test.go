package venue

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tradecore/engine/internal/money"
)

func newLoopbackServer(t *testing.T, onConnect func(*websocket.Conn)) (*httptest.Server, string) {
	t.Helper()
	var upgrader websocket.Upgrader
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		onConnect(conn)
	}))
	t.Cleanup(srv.Close)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return srv, wsURL
}

func TestWSAdapterProcessMessageDeliversQuoteToSubscriber(t *testing.T) {
	_, wsURL := newLoopbackServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON([]map[string]interface{}{
			{"ticker": "AAPL", "venue": "NASDAQ", "bid_price": 10000, "ask_price": 10010, "bid_size": 100, "ask_size": 100, "scale": 100, "ts_ns": 1},
		})
	})

	adapter := NewWSAdapter(wsURL)
	received := make(chan money.Symbol, 1)
	_ = adapter.SubscribeQuotes([]money.Symbol{money.NewSymbol("AAPL", "NASDAQ")}, func(sym money.Symbol, bid, ask, bidSz, askSz money.Scaled, scale money.Scale, tsNs int64) {
		received <- sym
	})

	adapter.Start()
	defer adapter.Stop()

	select {
	case sym := <-received:
		if sym.Ticker() != "AAPL" {
			t.Fatalf("expected AAPL, got %s", sym.Ticker())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a quote to be delivered over the websocket")
	}
}

func TestWSAdapterProcessMessageIgnoresMalformedPayload(t *testing.T) {
	adapter := NewWSAdapter("ws://unused")
	// Must not panic on garbage input.
	adapter.processMessage([]byte("not json"))
}

func TestWSAdapterEmbedsSimForOrderManagement(t *testing.T) {
	adapter := NewWSAdapter("ws://unused")
	var _ Adapter = adapter
	if adapter.Sim == nil {
		t.Fatal("expected an embedded Sim instance")
	}
}
