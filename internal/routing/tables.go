package routing

import (
	"sync"
)

// Tables is the routing-table component (C2). It holds every mapping the
// rest of the bridge needs to turn an upstream req_id or order_id, or a
// client's instrument, into the right destination — without ever
// broadcasting to find out.
//
// One RWMutex guards all five maps. Reads (lookups from the Event Router's
// hot path) take the read lock; writes (subscribe/unsubscribe/place/cancel)
// take the write lock. forget removes a subscription's presence from every
// map in one critical section so no reader ever observes it half-gone.
type Tables struct {
	mu sync.RWMutex

	reqToSub         map[int64]string               // req_id -> sub_id
	subToReq         map[string]int64               // sub_id -> req_id
	orderToClient    map[int64]string               // order_id -> client_id
	clientToSubs     map[string]map[string]struct{} // client_id -> set of sub_id
	instrumentToSubs map[string]map[string]struct{} // instrument.Canonical() -> set of sub_id
}

// New returns an empty Tables.
func New() *Tables {
	return &Tables{
		reqToSub:         make(map[int64]string),
		subToReq:         make(map[string]int64),
		orderToClient:    make(map[int64]string),
		clientToSubs:     make(map[string]map[string]struct{}),
		instrumentToSubs: make(map[string]map[string]struct{}),
	}
}

// AddSubscription registers a new subscription's routing before the
// corresponding request is sent upstream. Callers must roll back with
// Forget if the send subsequently fails.
func (t *Tables) AddSubscription(reqID int64, subID, clientID, instrumentKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.reqToSub[reqID] = subID
	t.subToReq[subID] = reqID

	if t.clientToSubs[clientID] == nil {
		t.clientToSubs[clientID] = make(map[string]struct{})
	}
	t.clientToSubs[clientID][subID] = struct{}{}

	if t.instrumentToSubs[instrumentKey] == nil {
		t.instrumentToSubs[instrumentKey] = make(map[string]struct{})
	}
	t.instrumentToSubs[instrumentKey][subID] = struct{}{}
}

// SubByReqID resolves an inbound event's req_id to the owning sub_id.
func (t *Tables) SubByReqID(reqID int64) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	subID, ok := t.reqToSub[reqID]
	return subID, ok
}

// ReqBySubID resolves a sub_id back to its upstream req_id, used when
// sending an unsubscribe/cancel request.
func (t *Tables) ReqBySubID(subID string) (int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	reqID, ok := t.subToReq[subID]
	return reqID, ok
}

// SubsForClient returns a snapshot of the sub_ids owned by a client.
func (t *Tables) SubsForClient(clientID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	subs := t.clientToSubs[clientID]
	out := make([]string, 0, len(subs))
	for subID := range subs {
		out = append(out, subID)
	}
	return out
}

// SubsForInstrument returns a snapshot of every sub_id currently tracking
// the given canonical instrument key, used for the at-most-one-subscription
// invariant check and for diagnostics.
func (t *Tables) SubsForInstrument(instrumentKey string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	subs := t.instrumentToSubs[instrumentKey]
	out := make([]string, 0, len(subs))
	for subID := range subs {
		out = append(out, subID)
	}
	return out
}

// Forget removes a subscription from every map. It is idempotent: calling
// it twice, or calling it for a sub_id that was never added, is a no-op.
func (t *Tables) Forget(subID, clientID, instrumentKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if reqID, ok := t.subToReq[subID]; ok {
		delete(t.reqToSub, reqID)
	}
	delete(t.subToReq, subID)

	if subs, ok := t.clientToSubs[clientID]; ok {
		delete(subs, subID)
		if len(subs) == 0 {
			delete(t.clientToSubs, clientID)
		}
	}

	if subs, ok := t.instrumentToSubs[instrumentKey]; ok {
		delete(subs, subID)
		if len(subs) == 0 {
			delete(t.instrumentToSubs, instrumentKey)
		}
	}
}

// AddOrder registers an order's owning client before the order is sent
// upstream. Callers must roll back with ForgetOrder if the send fails.
func (t *Tables) AddOrder(orderID int64, clientID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.orderToClient[orderID] = clientID
}

// ClientForOrder resolves an order_id to its owning client, used both for
// routing OrderStatus events and for cancel_order ownership checks.
func (t *Tables) ClientForOrder(orderID int64) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	clientID, ok := t.orderToClient[orderID]
	return clientID, ok
}

// ForgetOrder removes an order's routing entry, called once the Order
// Manager's retention GC evicts the order record itself.
func (t *Tables) ForgetOrder(orderID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.orderToClient, orderID)
}
