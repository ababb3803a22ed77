package order

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/marketbridge/gateway/internal/idgen"
	"github.com/marketbridge/gateway/internal/model"
	"github.com/marketbridge/gateway/internal/routing"
	"github.com/marketbridge/gateway/internal/vendorwire"
)

// Manager is the Order Manager component (C7).
type Manager struct {
	cfg      Config
	ids      *idgen.Allocator
	tables   *routing.Tables
	upstream Upstream
	logger   *slog.Logger

	mu     sync.RWMutex
	orders map[int64]*model.Order
}

// New creates a Manager.
func New(cfg Config, ids *idgen.Allocator, tables *routing.Tables, upstream Upstream, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:      cfg,
		ids:      ids,
		tables:   tables,
		upstream: upstream,
		logger:   logger,
		orders:   make(map[int64]*model.Order),
	}
}

// PlaceOrder allocates an order_id, records the order as PendingSubmit, and
// sends it upstream. The order is never queued across a reconnect: a send
// failure rolls back the allocation's routing entry and returns
// not_connected rather than retrying later.
func (m *Manager) PlaceOrder(clientID string, instrument model.Instrument, side model.OrderSide, qty int, kind model.OrderKind, price float64) (int64, error) {
	instrument = instrument.Canonicalize()
	orderID := m.ids.NextOrderID()
	now := time.Now()

	ord := &model.Order{
		OrderID:      orderID,
		ClientID:     clientID,
		Instrument:   instrument,
		Side:         side,
		Qty:          qty,
		Kind:         kind,
		Price:        price,
		State:        model.OrderPendingSubmit,
		RemainingQty: qty,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	m.tables.AddOrder(orderID, clientID)
	m.mu.Lock()
	m.orders[orderID] = ord
	m.mu.Unlock()

	req := vendorwire.Request{Tag: vendorwire.TagPlaceOrder, PlaceOrder: &vendorwire.PlaceOrder{
		OrderID:    orderID,
		Instrument: toInstrumentRef(instrument),
		Side:       string(side),
		Qty:        qty,
		Kind:       string(kind),
		Price:      price,
	}}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.sendTimeoutOrDefault())
	err := m.upstream.Send(ctx, req)
	cancel()
	if err != nil {
		m.tables.ForgetOrder(orderID)
		m.mu.Lock()
		delete(m.orders, orderID)
		m.mu.Unlock()
		return 0, errNotConnected()
	}

	return orderID, nil
}

// CancelOrder sends a cancel request for orderID, owned by clientID.
func (m *Manager) CancelOrder(clientID string, orderID int64) error {
	m.mu.RLock()
	ord, ok := m.orders[orderID]
	m.mu.RUnlock()
	if !ok {
		return errNotFound()
	}
	if ord.ClientID != clientID {
		return errNotOwned()
	}

	m.mu.RLock()
	terminal := ord.State.Terminal()
	m.mu.RUnlock()
	if terminal {
		return errTerminal()
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.sendTimeoutOrDefault())
	defer cancel()
	req := vendorwire.Request{Tag: vendorwire.TagCancelOrder, CancelOrder: &vendorwire.CancelOrder{OrderID: orderID}}
	if err := m.upstream.Send(ctx, req); err != nil {
		return errNotConnected()
	}
	return nil
}

// ApplyStatus folds an upstream OrderStatus event into its Order record,
// called by the Event Router once it has resolved order_to_client.
func (m *Manager) ApplyStatus(orderID int64, ev vendorwire.OrderStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ord, ok := m.orders[orderID]
	if !ok {
		m.logger.Warn("order status for unknown order_id, dropping", "order_id", orderID)
		return
	}
	ord.MergeStatus(model.OrderState(ev.State), ev.FilledQty, ev.RemainingQty, ev.AvgFillPrice, ev.LastFillPrice, time.Now())
}

// Snapshot returns a copy of orderID's current record, for diagnostics and
// tests.
func (m *Manager) Snapshot(orderID int64) (model.Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ord, ok := m.orders[orderID]
	if !ok {
		return model.Order{}, false
	}
	return *ord, true
}

// Count returns the number of orders currently in a non-terminal state, for
// metrics reporting.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, ord := range m.orders {
		if !ord.State.Terminal() {
			n++
		}
	}
	return n
}

// Run drives the periodic retention sweep until ctx is canceled.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.gcIntervalOrDefault())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.gc()
		}
	}
}

func (m *Manager) gc() {
	retention := m.cfg.retentionOrDefault()
	cutoff := time.Now().Add(-retention)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ord := range m.orders {
		if ord.State.Terminal() && ord.UpdatedAt.Before(cutoff) {
			delete(m.orders, id)
			m.tables.ForgetOrder(id)
		}
	}
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
