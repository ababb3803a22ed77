package subscription

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/marketbridge/gateway/internal/hub"
	"github.com/marketbridge/gateway/internal/idgen"
	"github.com/marketbridge/gateway/internal/model"
	"github.com/marketbridge/gateway/internal/routing"
	"github.com/marketbridge/gateway/internal/upstream"
	"github.com/marketbridge/gateway/internal/vendorwire"
)

type fakeUpstream struct {
	mu           sync.Mutex
	sent         []vendorwire.Request
	failNext     bool
	notReadyNext bool
}

func (f *fakeUpstream) Send(ctx context.Context, req vendorwire.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return errors.New("send failed")
	}
	if f.notReadyNext {
		f.notReadyNext = false
		return upstream.ErrNotReady
	}
	f.sent = append(f.sent, req)
	return nil
}

type fakeRouter struct {
	mu    sync.Mutex
	byReq map[int64]string
}

func newFakeRouter() *fakeRouter { return &fakeRouter{byReq: make(map[int64]string)} }

func (f *fakeRouter) RegisterContractRequest(reqID int64, clientID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byReq[reqID] = clientID
}

func newTestManager() (*Manager, *fakeUpstream, *routing.Tables) {
	tables := routing.New()
	up := &fakeUpstream{}
	m := New(Config{}, idgen.New(), tables, up, newFakeRouter(), nil)
	return m, up, tables
}

func aaplStock() model.Instrument {
	return model.Instrument{Symbol: "aapl", Kind: model.KindStock}
}

func TestSubscribeRegistersRoutingBeforeSend(t *testing.T) {
	m, up, tables := newTestManager()

	subID, err := m.Subscribe("client-1", aaplStock(), model.StreamLevel1)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if len(up.sent) != 1 {
		t.Fatalf("sent = %d requests, want 1", len(up.sent))
	}
	if _, ok := tables.ReqBySubID(subID); !ok {
		t.Fatalf("subID not registered in routing tables")
	}

	clientID, symbol, ok := m.LookupSub(subID)
	if !ok || clientID != "client-1" || symbol != "AAPL" {
		t.Fatalf("LookupSub = %q %q %v", clientID, symbol, ok)
	}
}

func TestDuplicateSubscriptionRejected(t *testing.T) {
	m, _, _ := newTestManager()

	if _, err := m.Subscribe("client-1", aaplStock(), model.StreamLevel1); err != nil {
		t.Fatalf("first Subscribe: %v", err)
	}
	_, err := m.Subscribe("client-1", aaplStock(), model.StreamLevel1)
	if err == nil {
		t.Fatal("expected duplicate subscription error")
	}
	var ce hub.CodedError
	if !errors.As(err, &ce) || ce.Code() != hub.ErrCodeDuplicateSubscription {
		t.Fatalf("err = %v, want duplicate_subscription code", err)
	}
}

func TestSubscribeRollsBackOnSendFailure(t *testing.T) {
	m, up, tables := newTestManager()
	up.failNext = true

	_, err := m.Subscribe("client-1", aaplStock(), model.StreamLevel1)
	if err == nil {
		t.Fatal("expected send failure to propagate")
	}
	if len(tables.SubsForClient("client-1")) != 0 {
		t.Fatalf("expected routing rolled back after failed send")
	}
	// A later Subscribe with the same instrument must succeed since nothing
	// should remain registered from the failed attempt.
	if _, err := m.Subscribe("client-1", aaplStock(), model.StreamLevel1); err != nil {
		t.Fatalf("Subscribe after rollback: %v", err)
	}
}

func TestSubscribeStaysPendingWhenUpstreamNotReady(t *testing.T) {
	m, up, tables := newTestManager()
	up.notReadyNext = true

	subID, err := m.Subscribe("client-1", aaplStock(), model.StreamLevel1)
	if err != nil {
		t.Fatalf("Subscribe while not ready should not error, got %v", err)
	}
	if len(tables.SubsForClient("client-1")) != 1 {
		t.Fatalf("expected routing to survive a NotReady send, got %d entries", len(tables.SubsForClient("client-1")))
	}

	m.mu.RLock()
	sub, ok := m.subs[subID]
	m.mu.RUnlock()
	if !ok {
		t.Fatal("subscription record missing after NotReady send")
	}
	if sub.State != model.SubPending {
		t.Fatalf("state = %v, want Pending", sub.State)
	}

	// A second Subscribe attempt for the same instrument must still be
	// rejected as a duplicate: the Pending subscription is still owed a
	// resubscribe, not abandoned.
	if _, err := m.Subscribe("client-1", aaplStock(), model.StreamLevel1); err == nil {
		t.Fatal("expected duplicate rejection while the Pending subscription is outstanding")
	}
}

func TestUnsubscribeSymbolCancelsAllStreamKinds(t *testing.T) {
	m, up, tables := newTestManager()

	subA, _ := m.Subscribe("client-1", aaplStock(), model.StreamLevel1)
	subB, _ := m.Subscribe("client-1", aaplStock(), model.StreamTrades)

	m.UnsubscribeSymbol("client-1", "aapl")

	if len(tables.SubsForClient("client-1")) != 0 {
		t.Fatalf("expected all subscriptions forgotten")
	}
	if _, _, ok := m.LookupSub(subA); ok {
		t.Fatalf("subA should no longer be routable")
	}
	if _, _, ok := m.LookupSub(subB); ok {
		t.Fatalf("subB should no longer be routable")
	}
	// One subscribe each for level1/trades plus two unsubscribe sends.
	if len(up.sent) != 4 {
		t.Fatalf("sent = %d, want 4", len(up.sent))
	}
}

func TestClientDisconnectedCancelsOwnedSubscriptions(t *testing.T) {
	m, _, tables := newTestManager()

	m.Subscribe("client-1", aaplStock(), model.StreamLevel1)
	m.ClientDisconnected("client-1")

	if len(tables.SubsForClient("client-1")) != 0 {
		t.Fatalf("expected subscriptions forgotten after disconnect")
	}
}

func TestHandleReadyResubscribesWithFreshReqID(t *testing.T) {
	m, up, tables := newTestManager()

	subID, _ := m.Subscribe("client-1", aaplStock(), model.StreamLevel1)
	oldReqID, _ := tables.ReqBySubID(subID)

	m.HandleReady()

	newReqID, ok := tables.ReqBySubID(subID)
	if !ok {
		t.Fatalf("subscription lost its routing entry across resubscribe")
	}
	if newReqID == oldReqID {
		t.Fatalf("expected a fresh req_id, got the same one")
	}
	if len(up.sent) != 2 {
		t.Fatalf("sent = %d, want 2 (initial subscribe + resubscribe)", len(up.sent))
	}
}

func TestHandleConnectionLostMarksActivePending(t *testing.T) {
	m, _, _ := newTestManager()

	subID, _ := m.Subscribe("client-1", aaplStock(), model.StreamLevel1)
	m.HandleConnectionLost()

	m.mu.RLock()
	state := m.subs[subID].State
	m.mu.RUnlock()
	if state != model.SubPending {
		t.Fatalf("state = %v, want Pending", state)
	}
}

func TestFailTransitionsAndForgets(t *testing.T) {
	m, _, tables := newTestManager()

	subID, _ := m.Subscribe("client-1", aaplStock(), model.StreamLevel1)
	m.Fail(subID, "rejected by vendor")

	if _, ok := tables.ReqBySubID(subID); ok {
		t.Fatalf("expected routing entry forgotten after Fail")
	}
	if _, _, ok := m.LookupSub(subID); ok {
		t.Fatalf("failed subscription should not be routable")
	}
}

func TestRequestContractDetailsRegistersWithRouter(t *testing.T) {
	m, up, _ := newTestManager()

	reqID, err := m.RequestContractDetails("client-1", aaplStock())
	if err != nil {
		t.Fatalf("RequestContractDetails: %v", err)
	}
	if reqID == 0 {
		t.Fatal("expected non-zero req_id")
	}
	if len(up.sent) != 1 || up.sent[0].Tag != vendorwire.TagRequestContractDetails {
		t.Fatalf("sent = %+v", up.sent)
	}
}
