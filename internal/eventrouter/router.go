package eventrouter

import (
	"context"
	"log/slog"
	"sync"

	"github.com/marketbridge/gateway/internal/hub"
	"github.com/marketbridge/gateway/internal/idgen"
	"github.com/marketbridge/gateway/internal/routing"
	"github.com/marketbridge/gateway/internal/vendorwire"
)

// Stats is a point-in-time snapshot of the router's lifetime counters.
type Stats struct {
	Received          int64
	Routed            int64
	UnknownDropped    int64
	CancellingDropped int64
}

// Router is the single consumer of the Upstream Session's event stream. It
// never blocks on delivery: Forwarder.Deliver/Broadcast are expected to be
// non-blocking (the Hub enqueues onto a per-client bounded queue).
type Router struct {
	ids    *idgen.Allocator
	tables *routing.Tables
	out    Forwarder
	subs   Subscriptions
	orders Orders
	logger *slog.Logger

	mu                  sync.Mutex
	contractReqToClient map[int64]string

	statsMu sync.Mutex
	stats   Stats
}

// New creates a Router. subs and orders may be nil at construction time and
// set afterward with SetSubscriptions/SetOrders, since the Subscription and
// Order Managers themselves take a ContractRegistrar/Router reference at
// construction — the composition root builds the Router first, then the
// managers, then closes the loop before starting anything. logger defaults
// to slog.Default() if nil.
func New(ids *idgen.Allocator, tables *routing.Tables, out Forwarder, subs Subscriptions, orders Orders, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		ids:                 ids,
		tables:              tables,
		out:                 out,
		subs:                subs,
		orders:              orders,
		logger:              logger,
		contractReqToClient: make(map[int64]string),
	}
}

// SetSubscriptions binds the Subscription Manager after construction, for
// breaking the Router/Subscription-Manager construction cycle.
func (r *Router) SetSubscriptions(subs Subscriptions) {
	r.subs = subs
}

// SetOrders binds the Order Manager after construction, for breaking the
// Router/Order-Manager construction cycle.
func (r *Router) SetOrders(orders Orders) {
	r.orders = orders
}

// SetForwarder binds the Client Hub after construction, for breaking the
// Router/Hub construction cycle (the Hub itself depends on the Subscription
// and Order Managers, which depend on the Router).
func (r *Router) SetForwarder(out Forwarder) {
	r.out = out
}

// RegisterContractRequest records which client a one-shot
// request_contract_details req_id belongs to, so the router can forward the
// eventual ContractDetails/ContractDetailsEnd events. The Subscription
// Manager calls this at the same time it sends the upstream request.
func (r *Router) RegisterContractRequest(reqID int64, clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contractReqToClient[reqID] = clientID
}

// Run consumes events until ctx is canceled or the channel closes; either
// way it returns nil.
func (r *Router) Run(ctx context.Context, events <-chan vendorwire.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.route(ev)
		}
	}
}

// Stats returns a snapshot of the router's lifetime counters.
func (r *Router) Stats() Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return r.stats
}

func (r *Router) route(ev vendorwire.Event) {
	r.statsMu.Lock()
	r.stats.Received++
	r.statsMu.Unlock()

	switch ev.Tag {
	case vendorwire.EventConnectionReady:
		r.routeConnectionReady(ev.ConnectionReady)
	case vendorwire.EventConnectionLost:
		r.routeConnectionLost()
	case vendorwire.EventTick:
		r.routeMarketData(ev.Tick.ReqID, func(symbol string) hub.Message {
			dataType, tickType, price, size := classifyTick(ev.Tick)
			return hub.Message{Type: hub.MsgMarketData, MarketData: &hub.MarketDataMsg{
				Symbol:    symbol,
				ReqID:     ev.Tick.ReqID,
				DataType:  dataType,
				TickType:  tickType,
				Price:     price,
				Size:      size,
				Timestamp: msToSeconds(ev.Tick.TimestampMs),
			}}
		})
	case vendorwire.EventTrade:
		r.routeMarketData(ev.Trade.ReqID, func(symbol string) hub.Message {
			return hub.Message{Type: hub.MsgTimeAndSales, TimeAndSales: &hub.TimeAndSalesMsg{
				Symbol:    symbol,
				ReqID:     ev.Trade.ReqID,
				Price:     ev.Trade.Price,
				Size:      ev.Trade.Size,
				Timestamp: msToSeconds(ev.Trade.TimestampMs),
			}}
		})
	case vendorwire.EventBidAsk:
		r.routeMarketData(ev.BidAsk.ReqID, func(symbol string) hub.Message {
			return hub.Message{Type: hub.MsgBidAskTick, BidAskTick: &hub.BidAskTickMsg{
				Symbol:    symbol,
				ReqID:     ev.BidAsk.ReqID,
				BidPrice:  ev.BidAsk.BidPrice,
				BidSize:   ev.BidAsk.BidSize,
				AskPrice:  ev.BidAsk.AskPrice,
				AskSize:   ev.BidAsk.AskSize,
				Timestamp: msToSeconds(ev.BidAsk.TimestampMs),
			}}
		})
	case vendorwire.EventContractDetails:
		r.routeContractDetails(ev.ContractDetails)
	case vendorwire.EventContractDetailsEnd:
		r.routeContractDetailsEnd(ev.ContractDetailsEnd)
	case vendorwire.EventOrderStatus:
		r.routeOrderStatus(ev.OrderStatus)
	case vendorwire.EventVendorError:
		r.routeVendorError(ev.VendorError)
	default:
		r.statsMu.Lock()
		r.stats.UnknownDropped++
		r.statsMu.Unlock()
		r.logger.Warn("unknown event tag, dropping", "tag", ev.Tag)
	}
}

func (r *Router) routeConnectionReady(ev *vendorwire.ConnectionReady) {
	if ev == nil {
		return
	}
	r.ids.AdvanceOrderFloor(ev.NextOrderID)
	r.out.Broadcast(hub.Message{Type: hub.MsgConnectionStatus, ConnectionStatus: &hub.ConnectionStatusMsg{
		Status:      hub.StatusConnected,
		NextOrderID: ev.NextOrderID,
	}})
	r.subs.HandleReady()
	r.markRouted()
}

func (r *Router) routeConnectionLost() {
	r.out.Broadcast(hub.Message{Type: hub.MsgConnectionStatus, ConnectionStatus: &hub.ConnectionStatusMsg{
		Status: hub.StatusDisconnected,
	}})
	r.subs.HandleConnectionLost()
	r.markRouted()
}

// routeMarketData forwards any of the three market-data event kinds to the
// client owning reqID via req_to_sub -> sub -> client_id. An unknown req_id
// is logged at warning level and dropped; an event whose subscription is
// Cancelling is dropped silently.
func (r *Router) routeMarketData(reqID int64, build func(symbol string) hub.Message) {
	subID, ok := r.tables.SubByReqID(reqID)
	if !ok {
		r.dropUnknown(reqID)
		return
	}
	clientID, symbol, ok := r.subs.LookupSub(subID)
	if !ok {
		r.statsMu.Lock()
		r.stats.CancellingDropped++
		r.statsMu.Unlock()
		return
	}
	r.out.Deliver(clientID, build(symbol))
	r.markRouted()
}

func (r *Router) routeContractDetails(ev *vendorwire.ContractDetails) {
	if ev == nil {
		return
	}
	clientID, ok := r.clientForContractReq(ev.ReqID)
	if !ok {
		r.dropUnknown(ev.ReqID)
		return
	}
	r.out.Deliver(clientID, hub.Message{Type: hub.MsgContractDetails, ContractDetails: &hub.ContractDetailsMsg{
		ReqID: ev.ReqID,
		Contract: hub.ContractRef{
			Symbol:   ev.Instrument.Symbol,
			Exchange: ev.Instrument.Exchange,
			Currency: ev.Instrument.Currency,
		},
		MarketName: ev.LongName,
	}})
	r.markRouted()
}

func (r *Router) routeContractDetailsEnd(ev *vendorwire.ContractDetailsEnd) {
	if ev == nil {
		return
	}
	clientID, ok := r.clientForContractReq(ev.ReqID)
	if !ok {
		r.dropUnknown(ev.ReqID)
		return
	}
	r.out.Deliver(clientID, hub.Message{Type: hub.MsgContractDetailsEnd, ContractDetailsEnd: &hub.ContractDetailsEndMsg{ReqID: ev.ReqID}})

	r.mu.Lock()
	delete(r.contractReqToClient, ev.ReqID)
	r.mu.Unlock()
	r.markRouted()
}

func (r *Router) routeOrderStatus(ev *vendorwire.OrderStatus) {
	if ev == nil {
		return
	}
	clientID, ok := r.tables.ClientForOrder(ev.OrderID)
	if !ok {
		r.dropUnknown(ev.OrderID)
		return
	}
	r.orders.ApplyStatus(ev.OrderID, *ev)
	r.out.Deliver(clientID, hub.Message{Type: hub.MsgOrderStatus, OrderStatus: &hub.OrderStatusMsg{
		OrderID:       ev.OrderID,
		Status:        ev.State,
		Filled:        ev.FilledQty,
		Remaining:     ev.RemainingQty,
		AvgFillPrice:  ev.AvgFillPrice,
		LastFillPrice: ev.LastFillPrice,
		Timestamp:     msToSeconds(ev.TimestampMs),
	}})
	r.markRouted()
}

// routeVendorError forwards the error to whichever of req_id/order_id is
// set. A fatal error with a known req_id additionally fails that
// subscription.
func (r *Router) routeVendorError(ev *vendorwire.VendorError) {
	if ev == nil {
		return
	}

	errMsg := hub.Message{Type: hub.MsgError, Error: &hub.ErrorMsg{
		Severity:    severityLabel(ev.Severity),
		ErrorCode:   ev.Code,
		ErrorString: ev.Message,
		ReqID:       ev.ReqID,
		OrderID:     ev.OrderID,
	}}

	switch {
	case ev.OrderID != 0:
		if clientID, ok := r.tables.ClientForOrder(ev.OrderID); ok {
			r.out.Deliver(clientID, errMsg)
			r.markRouted()
			return
		}
		r.dropUnknown(ev.OrderID)
	case ev.ReqID != 0:
		subID, ok := r.tables.SubByReqID(ev.ReqID)
		if !ok {
			if clientID, ok := r.clientForContractReq(ev.ReqID); ok {
				r.out.Deliver(clientID, errMsg)
				r.markRouted()
			} else {
				r.dropUnknown(ev.ReqID)
			}
			return
		}
		clientID, _, ok := r.subs.LookupSub(subID)
		if ok {
			r.out.Deliver(clientID, errMsg)
			r.markRouted()
		}
		if ev.Severity == vendorwire.SeverityFatal {
			r.subs.Fail(subID, ev.Message)
		}
	default:
		r.out.Broadcast(errMsg)
		r.markRouted()
	}
}

func (r *Router) clientForContractReq(reqID int64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clientID, ok := r.contractReqToClient[reqID]
	return clientID, ok
}

func (r *Router) dropUnknown(id int64) {
	r.statsMu.Lock()
	r.stats.UnknownDropped++
	r.statsMu.Unlock()
	r.logger.Warn("unknown id in upstream event, dropping", "id", id)
}

func (r *Router) markRouted() {
	r.statsMu.Lock()
	r.stats.Routed++
	r.statsMu.Unlock()
}

func severityLabel(s string) string {
	if s == vendorwire.SeverityFatal {
		return hub.SeverityError
	}
	return hub.SeverityWarning
}

func msToSeconds(ms int64) float64 {
	return float64(ms) / 1000.0
}

// classifyTick maps a vendor Tick onto the market_data data_type/tick_type
// enum (§6: data_type ∈ {price,size}, tick_type ∈ {last,bid,ask,bid_size,
// ask_size,volume}). A volume update is a size tick; everything else this
// module currently receives over EventTick is a last-price tick.
func classifyTick(t *vendorwire.Tick) (dataType, tickType string, price float64, size int64) {
	if t.Volume != 0 {
		return "size", "volume", 0, t.Volume
	}
	return "price", "last", t.Last, 0
}
