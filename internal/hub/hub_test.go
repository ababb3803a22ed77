package hub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marketbridge/gateway/internal/model"
)

type fakeSubs struct {
	mu            sync.Mutex
	subscribed    []model.Instrument
	duplicate     bool
	disconnected  []string
	unsubscribed  []string
}

func (f *fakeSubs) Subscribe(clientID string, instrument model.Instrument, kind model.StreamKind) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.duplicate {
		return "", duplicateErr{}
	}
	f.subscribed = append(f.subscribed, instrument)
	return "sub-1", nil
}

func (f *fakeSubs) UnsubscribeSymbol(clientID, symbol string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, symbol)
}

func (f *fakeSubs) RequestContractDetails(clientID string, instrument model.Instrument) (int64, error) {
	return 1, nil
}

func (f *fakeSubs) ClientDisconnected(clientID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, clientID)
}

type duplicateErr struct{}

func (duplicateErr) Error() string { return "duplicate subscription" }
func (duplicateErr) Code() string  { return ErrCodeDuplicateSubscription }

type fakeOrders struct{}

func (fakeOrders) PlaceOrder(clientID string, instrument model.Instrument, side model.OrderSide, qty int, kind model.OrderKind, price float64) (int64, error) {
	return 1001, nil
}

func (fakeOrders) CancelOrder(clientID string, orderID int64) error { return nil }

func newTestHub(t *testing.T, subs Subscriptions) (*Hub, *httptest.Server) {
	t.Helper()
	h := New(Config{QueueCapacity: 4, PingInterval: time.Hour}, subs, fakeOrders{}, nil)
	srv := httptest.NewServer(http.HandlerFunc(h.serveWS))
	return h, srv
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestSubscribeDispatchesToManager(t *testing.T) {
	subs := &fakeSubs{}
	_, srv := newTestHub(t, subs)
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	// Drain the initial connection_status message.
	var first map[string]any
	_ = conn.ReadJSON(&first)

	_ = conn.WriteJSON(Command{Command: CmdSubscribeMarketData, Symbol: "aapl", InstrumentType: "stock"})
	time.Sleep(50 * time.Millisecond)

	subs.mu.Lock()
	defer subs.mu.Unlock()
	if len(subs.subscribed) != 1 || subs.subscribed[0].Symbol != "AAPL" {
		t.Fatalf("subscribed = %+v", subs.subscribed)
	}
}

func TestDuplicateSubscribeReturnsError(t *testing.T) {
	subs := &fakeSubs{duplicate: true}
	_, srv := newTestHub(t, subs)
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	var first map[string]any
	_ = conn.ReadJSON(&first)

	_ = conn.WriteJSON(Command{Command: CmdSubscribeMarketData, Symbol: "AAPL", InstrumentType: "stock"})

	var got map[string]any
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got["type"] != "error" || got["error_code"] != ErrCodeDuplicateSubscription {
		t.Fatalf("got = %+v", got)
	}
}

func TestUnknownCommandIsBadRequest(t *testing.T) {
	subs := &fakeSubs{}
	_, srv := newTestHub(t, subs)
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	var first map[string]any
	_ = conn.ReadJSON(&first)

	_ = conn.WriteJSON(Command{Command: "nonsense"})

	var got map[string]any
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got["type"] != "error" || got["error_code"] != ErrCodeBadRequest {
		t.Fatalf("got = %+v", got)
	}
}

func TestClientDisconnectCascadesToSubscriptions(t *testing.T) {
	subs := &fakeSubs{}
	h, srv := newTestHub(t, subs)
	defer srv.Close()

	conn := dialWS(t, srv)
	var first map[string]any
	_ = conn.ReadJSON(&first)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		subs.mu.Lock()
		n := len(subs.disconnected)
		subs.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	subs.mu.Lock()
	defer subs.mu.Unlock()
	if len(subs.disconnected) != 1 {
		t.Fatalf("disconnected = %v", subs.disconnected)
	}
	if len(h.Snapshot()) != 0 {
		t.Fatalf("expected no clients left in hub snapshot")
	}
}
