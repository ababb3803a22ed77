package subscription

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marketbridge/gateway/internal/idgen"
	"github.com/marketbridge/gateway/internal/model"
	"github.com/marketbridge/gateway/internal/routing"
	"github.com/marketbridge/gateway/internal/upstream"
	"github.com/marketbridge/gateway/internal/vendorwire"
)

// Manager is the Subscription Manager component (C6).
type Manager struct {
	cfg      Config
	ids      *idgen.Allocator
	tables   *routing.Tables
	upstream Upstream
	router   ContractRegistrar
	logger   *slog.Logger

	mu   sync.RWMutex
	subs map[string]*model.Subscription // sub_id -> record
}

// New creates a Manager.
func New(cfg Config, ids *idgen.Allocator, tables *routing.Tables, upstream Upstream, router ContractRegistrar, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:      cfg,
		ids:      ids,
		tables:   tables,
		upstream: upstream,
		router:   router,
		logger:   logger,
		subs:     make(map[string]*model.Subscription),
	}
}

// Subscribe registers a new subscription for (clientID, instrument, kind),
// rejecting a duplicate, then sends the upstream subscribe request. Routing
// is added to the tables before the send so the Event Router can resolve
// the req_id the moment the first event arrives. If the upstream session is
// not currently Ready, the subscription is left Pending rather than rolled
// back: HandleReady resends it with a fresh req_id once the session
// reconnects. Any other send failure rolls the registration back.
func (m *Manager) Subscribe(clientID string, instrument model.Instrument, kind model.StreamKind) (string, error) {
	instrument = instrument.Canonicalize()
	canonical := instrument.Canonical()

	if m.hasActiveSubscription(clientID, canonical, kind) {
		return "", errDuplicate(instrument.Symbol)
	}

	reqID := m.ids.NextReqID()
	subID := uuid.NewString()
	now := time.Now()

	m.tables.AddSubscription(reqID, subID, clientID, canonical)

	sub := &model.Subscription{
		SubID:       subID,
		ClientID:    clientID,
		Instrument:  instrument,
		StreamKind:  kind,
		ReqID:       reqID,
		State:       model.SubPending,
		CreatedAt:   now,
		LastEventAt: now,
	}
	m.mu.Lock()
	m.subs[subID] = sub
	m.mu.Unlock()

	if err := m.sendSubscribe(reqID, instrument, kind); err != nil {
		if errors.Is(err, upstream.ErrNotReady) {
			// Leave the subscription Pending: routing stays intact and
			// HandleReady resends it with a fresh req_id once the upstream
			// session reaches Ready, instead of dropping it on the floor.
			m.logger.Info("upstream not ready, subscription queued", "sub_id", subID, "symbol", instrument.Symbol)
			return subID, nil
		}
		m.tables.Forget(subID, clientID, canonical)
		m.mu.Lock()
		delete(m.subs, subID)
		m.mu.Unlock()
		return "", err
	}

	m.mu.Lock()
	sub.State = model.SubActive
	m.mu.Unlock()

	return subID, nil
}

// UnsubscribeSymbol cancels every non-terminal subscription clientID holds
// for symbol, across all stream kinds.
func (m *Manager) UnsubscribeSymbol(clientID, symbol string) {
	for _, subID := range m.tables.SubsForClient(clientID) {
		m.mu.RLock()
		sub, ok := m.subs[subID]
		m.mu.RUnlock()
		if !ok || sub.Instrument.Symbol != symbolUpper(symbol) || sub.State.Terminal() {
			continue
		}
		m.cancel(sub)
	}
}

// ClientDisconnected cancels every subscription owned by clientID. Per the
// data model, a client session owns its subscriptions: when the session
// ends they transition to Cancelling then Cancelled.
func (m *Manager) ClientDisconnected(clientID string) {
	for _, subID := range m.tables.SubsForClient(clientID) {
		m.mu.RLock()
		sub, ok := m.subs[subID]
		m.mu.RUnlock()
		if !ok || sub.State.Terminal() {
			continue
		}
		m.cancel(sub)
	}
}

func (m *Manager) cancel(sub *model.Subscription) {
	m.mu.Lock()
	sub.State = model.SubCancelling
	reqID := sub.ReqID
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.sendTimeoutOrDefault())
	err := m.upstream.Send(ctx, vendorwire.Request{Tag: vendorwire.TagUnsubscribe, Unsubscribe: &vendorwire.Unsubscribe{ReqID: reqID}})
	cancel()
	if err != nil {
		m.logger.Warn("unsubscribe send failed, forgetting routing anyway", "sub_id", sub.SubID, "error", err)
	}

	m.mu.Lock()
	sub.State = model.SubCancelled
	m.mu.Unlock()

	m.tables.Forget(sub.SubID, sub.ClientID, sub.Instrument.Canonical())
}

// RequestContractDetails issues a one-shot contract-details lookup. Unlike a
// market-data subscription this is not tracked in the routing tables (it
// never produces more than one ContractDetailsEnd); the Event Router is
// told directly which client to route the reply to.
func (m *Manager) RequestContractDetails(clientID string, instrument model.Instrument) (int64, error) {
	instrument = instrument.Canonicalize()
	reqID := m.ids.NextReqID()
	m.router.RegisterContractRequest(reqID, clientID)

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.sendTimeoutOrDefault())
	defer cancel()
	req := vendorwire.Request{Tag: vendorwire.TagRequestContractDetails, RequestContractDetails: &vendorwire.RequestContractDetails{
		ReqID:      reqID,
		Instrument: toInstrumentRef(instrument),
	}}
	if err := m.upstream.Send(ctx, req); err != nil {
		return 0, errNotConnected()
	}
	return reqID, nil
}

// HandleReady resubscribes every Active or Pending subscription with a fresh
// req_id after a successful (re)connect.
func (m *Manager) HandleReady() {
	m.mu.RLock()
	active := make([]*model.Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		if sub.State == model.SubActive || sub.State == model.SubPending {
			active = append(active, sub)
		}
	}
	m.mu.RUnlock()

	for _, sub := range active {
		oldReqID := sub.ReqID
		canonical := sub.Instrument.Canonical()
		newReqID := m.ids.NextReqID()

		m.tables.Forget(sub.SubID, sub.ClientID, canonical)
		m.tables.AddSubscription(newReqID, sub.SubID, sub.ClientID, canonical)

		if err := m.sendSubscribe(newReqID, sub.Instrument, sub.StreamKind); err != nil {
			m.logger.Warn("resubscribe failed", "sub_id", sub.SubID, "old_req_id", oldReqID, "error", err)
			m.mu.Lock()
			sub.State = model.SubFailed
			m.mu.Unlock()
			m.tables.Forget(sub.SubID, sub.ClientID, canonical)
			continue
		}

		m.mu.Lock()
		sub.ReqID = newReqID
		sub.State = model.SubActive
		m.mu.Unlock()
	}
}

// HandleConnectionLost marks every Active subscription Pending; it stays
// routable (the routing table entry is untouched) so events arriving during
// a brief blip still resolve, but HandleReady will replace it with a fresh
// req_id on reconnect regardless.
func (m *Manager) HandleConnectionLost() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subs {
		if sub.State == model.SubActive {
			sub.State = model.SubPending
		}
	}
}

// Fail transitions subID to Failed and forgets its routing entry, called by
// the Event Router when a fatal VendorError names this subscription.
func (m *Manager) Fail(subID, reason string) {
	m.mu.Lock()
	sub, ok := m.subs[subID]
	if ok {
		sub.State = model.SubFailed
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	m.logger.Warn("subscription failed", "sub_id", subID, "reason", reason)
	m.tables.Forget(sub.SubID, sub.ClientID, sub.Instrument.Canonical())
}

// LookupSub resolves a sub_id to its owning client_id and instrument
// symbol for the Event Router. A subscription in Cancelling state reports
// ok=false so its in-flight events are dropped silently; so does one that
// is already Cancelled or Failed.
func (m *Manager) LookupSub(subID string) (string, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.subs[subID]
	if !ok || sub.State == model.SubCancelling || sub.State.Terminal() {
		return "", "", false
	}
	sub.LastEventAt = time.Now()
	return sub.ClientID, sub.Instrument.Symbol, true
}

// Count returns the number of subscriptions currently in a non-terminal
// state, for metrics reporting.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, sub := range m.subs {
		if !sub.State.Terminal() {
			n++
		}
	}
	return n
}

func (m *Manager) hasActiveSubscription(clientID, canonical string, kind model.StreamKind) bool {
	for _, subID := range m.tables.SubsForInstrument(canonical) {
		m.mu.RLock()
		sub, ok := m.subs[subID]
		m.mu.RUnlock()
		if ok && sub.ClientID == clientID && sub.StreamKind == kind && !sub.State.Terminal() {
			return true
		}
	}
	return false
}

func (m *Manager) sendSubscribe(reqID int64, instrument model.Instrument, kind model.StreamKind) error {
	ref := toInstrumentRef(instrument)
	var req vendorwire.Request
	switch kind {
	case model.StreamLevel1:
		req = vendorwire.Request{Tag: vendorwire.TagSubscribeMarketData, SubscribeMarketData: &vendorwire.SubscribeMarketData{ReqID: reqID, Instrument: ref}}
	case model.StreamTrades:
		req = vendorwire.Request{Tag: vendorwire.TagSubscribeTimeAndSales, SubscribeTimeAndSales: &vendorwire.SubscribeTimeAndSales{ReqID: reqID, Instrument: ref}}
	case model.StreamQuotes:
		req = vendorwire.Request{Tag: vendorwire.TagSubscribeBidAsk, SubscribeBidAsk: &vendorwire.SubscribeBidAsk{ReqID: reqID, Instrument: ref}}
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.sendTimeoutOrDefault())
	defer cancel()
	if err := m.upstream.Send(ctx, req); err != nil {
		if errors.Is(err, upstream.ErrNotReady) {
			return err
		}
		return errNotConnected()
	}
	return nil
}

func toInstrumentRef(i model.Instrument) vendorwire.InstrumentRef {
	return vendorwire.InstrumentRef{
		Symbol:        i.Symbol,
		Kind:          string(i.Kind),
		Exchange:      i.Exchange,
		Currency:      i.Currency,
		ContractMonth: i.ContractMonth,
		LastTradeDate: i.LastTradeDate,
	}
}

func symbolUpper(s string) string {
	return model.Instrument{Symbol: s}.Canonicalize().Symbol
}
