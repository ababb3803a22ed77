package model

import (
	"fmt"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Instrument
// -----------------------------------------------------------------------------

// InstrumentKind identifies the asset class of an Instrument.
type InstrumentKind string

const (
	KindStock  InstrumentKind = "stock"
	KindOption InstrumentKind = "option"
	KindFuture InstrumentKind = "future"
	KindForex  InstrumentKind = "forex"
	KindIndex  InstrumentKind = "index"
	KindCrypto InstrumentKind = "crypto"
)

// Instrument is an immutable descriptor of a tradeable symbol.
//
// For futures, (Symbol, Exchange, ContractMonth|LastTradeDate) is the
// contract identity; for stocks, Symbol alone suffices with a default
// routing exchange.
type Instrument struct {
	Symbol         string
	Kind           InstrumentKind
	Exchange       string
	Currency       string
	ContractMonth  string
	LastTradeDate  string
}

// DefaultExchange returns the routing exchange used when a client omits
// one. Futures and options have no safe default and must supply an
// exchange explicitly.
func DefaultExchange(kind InstrumentKind) string {
	switch kind {
	case KindStock:
		return "SMART"
	case KindForex:
		return "IDEALPRO"
	case KindCrypto:
		return "PAXOS"
	case KindIndex:
		return "CBOE"
	default:
		return ""
	}
}

// Canonicalize normalizes symbol case and fills in the default exchange when
// omitted. It does not mutate its receiver; it returns a new Instrument.
func (i Instrument) Canonicalize() Instrument {
	out := i
	out.Symbol = strings.ToUpper(strings.TrimSpace(i.Symbol))
	if out.Exchange == "" {
		out.Exchange = DefaultExchange(i.Kind)
	} else {
		out.Exchange = strings.ToUpper(strings.TrimSpace(out.Exchange))
	}
	out.Currency = strings.ToUpper(strings.TrimSpace(i.Currency))
	return out
}

// Canonical returns the routing key used for the at-most-one-subscription
// invariant and for instrument_to_subs diagnostic aggregation. Two
// instruments that canonicalize to the same key are the same contract.
func (i Instrument) Canonical() string {
	c := i.Canonicalize()
	switch c.Kind {
	case KindFuture:
		month := c.ContractMonth
		if month == "" {
			month = c.LastTradeDate
		}
		return fmt.Sprintf("%s|%s|%s|%s", c.Kind, c.Symbol, c.Exchange, month)
	default:
		return fmt.Sprintf("%s|%s|%s", c.Kind, c.Symbol, c.Exchange)
	}
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

// StreamKind is the flavor of market-data stream a Subscription carries.
type StreamKind string

const (
	StreamLevel1 StreamKind = "level1" // market_data
	StreamTrades StreamKind = "trades" // time_and_sales
	StreamQuotes StreamKind = "quotes" // bid_ask
)

// SubState is the lifecycle state of a Subscription.
type SubState string

const (
	SubPending    SubState = "Pending"
	SubActive     SubState = "Active"
	SubFailed     SubState = "Failed"
	SubCancelling SubState = "Cancelling"
	SubCancelled  SubState = "Cancelled"
)

// Terminal reports whether the state admits no further transitions.
func (s SubState) Terminal() bool {
	switch s {
	case SubFailed, SubCancelled:
		return true
	default:
		return false
	}
}

// Subscription tracks one (client, instrument, stream kind) market-data feed.
type Subscription struct {
	SubID       string
	ClientID    string
	Instrument  Instrument
	StreamKind  StreamKind
	ReqID       int64
	State       SubState
	CreatedAt   time.Time
	LastEventAt time.Time
}

// -----------------------------------------------------------------------------
// Order
// -----------------------------------------------------------------------------

// OrderSide is the direction of an order.
type OrderSide string

const (
	Buy  OrderSide = "Buy"
	Sell OrderSide = "Sell"
)

// OrderKind is the order type.
type OrderKind string

const (
	OrderMarket OrderKind = "Market"
	OrderLimit  OrderKind = "Limit"
	OrderStop   OrderKind = "Stop"
)

// RequiresPrice reports whether this order kind must carry a positive price.
func (k OrderKind) RequiresPrice() bool {
	return k == OrderLimit || k == OrderStop
}

// OrderState is the lifecycle state of an Order.
type OrderState string

const (
	OrderPendingSubmit   OrderState = "PendingSubmit"
	OrderSubmitted       OrderState = "Submitted"
	OrderPartiallyFilled OrderState = "PartiallyFilled"
	OrderFilled          OrderState = "Filled"
	OrderCancelled       OrderState = "Cancelled"
	OrderRejected        OrderState = "Rejected"
)

// Terminal reports whether the state admits no further transitions.
func (s OrderState) Terminal() bool {
	switch s {
	case OrderFilled, OrderCancelled, OrderRejected:
		return true
	default:
		return false
	}
}

// Order is a single order's full lifecycle record, kept for in-process audit
// until garbage collected (see order.Manager's retention GC).
type Order struct {
	OrderID       int64
	ClientID      string
	Instrument    Instrument
	Side          OrderSide
	Qty           int
	Kind          OrderKind
	Price         float64 // required iff Kind.RequiresPrice(), must be >0
	State         OrderState
	FilledQty     int
	RemainingQty  int
	AvgFillPrice  float64
	LastFillPrice float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MergeStatus folds an inbound status update into the Order with a
// monotone rule: state <- latest, filled_qty <- max(prev, new),
// remaining_qty <- new, avg_fill_price <- new if provided.
func (o *Order) MergeStatus(state OrderState, filledQty, remainingQty int, avgFillPrice, lastFillPrice float64, at time.Time) {
	o.State = state
	if filledQty > o.FilledQty {
		o.FilledQty = filledQty
	}
	o.RemainingQty = remainingQty
	if avgFillPrice > 0 {
		o.AvgFillPrice = avgFillPrice
	}
	if lastFillPrice > 0 {
		o.LastFillPrice = lastFillPrice
	}
	o.UpdatedAt = at
}

// -----------------------------------------------------------------------------
// Client session
// -----------------------------------------------------------------------------

// ClientSession is a point-in-time snapshot of a connected WebSocket client,
// copied out of the Hub's internal client struct for diagnostics. It is not
// itself a concurrency primitive.
type ClientSession struct {
	ClientID       string
	RemoteAddr     string
	Subscriptions  []string // sub_id set
	ConnectedAt    time.Time
	LastPongAt     time.Time
	OutboundQueued int
}

// -----------------------------------------------------------------------------
// Upstream session state
// -----------------------------------------------------------------------------

// Phase is the Upstream Session's connection state machine position.
type Phase string

const (
	PhaseDisconnected Phase = "Disconnected"
	PhaseConnecting   Phase = "Connecting"
	PhaseHandshaking  Phase = "Handshaking"
	PhaseReady        Phase = "Ready"
	PhaseReconnecting Phase = "Reconnecting"
	PhaseFailed       Phase = "Failed"
)
