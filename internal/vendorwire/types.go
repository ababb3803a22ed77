package vendorwire

// Request is the outbound sum type sent from the bridge to the vendor.
// Exactly one of the embedded payload fields is set; Tag says which.
type Request struct {
	Tag RequestTag `json:"tag"`

	SubscribeMarketData   *SubscribeMarketData   `json:"subscribe_market_data,omitempty"`
	SubscribeTimeAndSales *SubscribeTimeAndSales `json:"subscribe_time_and_sales,omitempty"`
	SubscribeBidAsk       *SubscribeBidAsk       `json:"subscribe_bid_ask,omitempty"`
	Unsubscribe           *Unsubscribe           `json:"unsubscribe,omitempty"`
	PlaceOrder            *PlaceOrder            `json:"place_order,omitempty"`
	CancelOrder           *CancelOrder           `json:"cancel_order,omitempty"`
	RequestContractDetails *RequestContractDetails `json:"request_contract_details,omitempty"`
	Ping                   *Ping                  `json:"ping,omitempty"`
}

// RequestTag names which payload field of a Request is populated.
type RequestTag string

const (
	TagSubscribeMarketData    RequestTag = "subscribe_market_data"
	TagSubscribeTimeAndSales  RequestTag = "subscribe_time_and_sales"
	TagSubscribeBidAsk        RequestTag = "subscribe_bid_ask"
	TagUnsubscribe            RequestTag = "unsubscribe"
	TagPlaceOrder             RequestTag = "place_order"
	TagCancelOrder            RequestTag = "cancel_order"
	TagRequestContractDetails RequestTag = "request_contract_details"
	TagPing                   RequestTag = "ping"
)

// Ping is an empty keepalive request; the vendor does not ack it.
type Ping struct{}

// InstrumentRef identifies the contract a request applies to, mirroring
// model.Instrument's identity fields without importing the model package
// (vendorwire must stay independent of bridge-internal types).
type InstrumentRef struct {
	Symbol        string `json:"symbol"`
	Kind          string `json:"kind"`
	Exchange      string `json:"exchange"`
	Currency      string `json:"currency,omitempty"`
	ContractMonth string `json:"contract_month,omitempty"`
	LastTradeDate string `json:"last_trade_date,omitempty"`
}

type SubscribeMarketData struct {
	ReqID      int64         `json:"req_id"`
	Instrument InstrumentRef `json:"instrument"`
}

type SubscribeTimeAndSales struct {
	ReqID      int64         `json:"req_id"`
	Instrument InstrumentRef `json:"instrument"`
}

type SubscribeBidAsk struct {
	ReqID      int64         `json:"req_id"`
	Instrument InstrumentRef `json:"instrument"`
}

type Unsubscribe struct {
	ReqID int64 `json:"req_id"`
}

type RequestContractDetails struct {
	ReqID      int64         `json:"req_id"`
	Instrument InstrumentRef `json:"instrument"`
}

type PlaceOrder struct {
	OrderID    int64         `json:"order_id"`
	Instrument InstrumentRef `json:"instrument"`
	Side       string        `json:"side"`
	Qty        int           `json:"qty"`
	Kind       string        `json:"kind"`
	Price      float64       `json:"price,omitempty"`
}

type CancelOrder struct {
	OrderID int64 `json:"order_id"`
}

// Event is the inbound sum type received from the vendor. Exactly one of
// the embedded payload fields is set; Tag says which.
type Event struct {
	Tag EventTag `json:"tag"`

	ConnectionReady    *ConnectionReady    `json:"connection_ready,omitempty"`
	Tick               *Tick               `json:"tick,omitempty"`
	Trade              *Trade              `json:"trade,omitempty"`
	BidAsk             *BidAsk             `json:"bid_ask,omitempty"`
	ContractDetails    *ContractDetails    `json:"contract_details,omitempty"`
	ContractDetailsEnd *ContractDetailsEnd `json:"contract_details_end,omitempty"`
	OrderStatus        *OrderStatus        `json:"order_status,omitempty"`
	VendorError        *VendorError        `json:"vendor_error,omitempty"`
}

// EventTag names which payload field of an Event is populated.
type EventTag string

const (
	EventConnectionReady    EventTag = "connection_ready"
	EventTick               EventTag = "tick"
	EventTrade              EventTag = "trade"
	EventBidAsk             EventTag = "bid_ask"
	EventContractDetails    EventTag = "contract_details"
	EventContractDetailsEnd EventTag = "contract_details_end"
	EventOrderStatus        EventTag = "order_status"
	EventVendorError        EventTag = "vendor_error"

	// EventConnectionLost is synthesized locally by internal/upstream, not
	// received over the wire, when the connection drops.
	EventConnectionLost EventTag = "connection_lost"
)

// ConnectionReady is the server's handshake acceptance. NextOrderID is the
// floor the bridge must advance its local order_id counter to.
type ConnectionReady struct {
	NextOrderID int64 `json:"next_order_id"`
}

type Tick struct {
	ReqID     int64   `json:"req_id"`
	Last      float64 `json:"last,omitempty"`
	High      float64 `json:"high,omitempty"`
	Low       float64 `json:"low,omitempty"`
	Close     float64 `json:"close,omitempty"`
	Volume    int64   `json:"volume,omitempty"`
	TimestampMs int64 `json:"timestamp_ms"`
}

type Trade struct {
	ReqID       int64   `json:"req_id"`
	Price       float64 `json:"price"`
	Size        int64   `json:"size"`
	TimestampMs int64   `json:"timestamp_ms"`
}

type BidAsk struct {
	ReqID       int64   `json:"req_id"`
	BidPrice    float64 `json:"bid_price"`
	BidSize     int64   `json:"bid_size"`
	AskPrice    float64 `json:"ask_price"`
	AskSize     int64   `json:"ask_size"`
	TimestampMs int64   `json:"timestamp_ms"`
}

type ContractDetails struct {
	ReqID      int64         `json:"req_id"`
	Instrument InstrumentRef `json:"instrument"`
	LongName   string        `json:"long_name,omitempty"`
}

type ContractDetailsEnd struct {
	ReqID int64 `json:"req_id"`
}

type OrderStatus struct {
	OrderID       int64   `json:"order_id"`
	State         string  `json:"state"`
	FilledQty     int     `json:"filled_qty"`
	RemainingQty  int     `json:"remaining_qty"`
	AvgFillPrice  float64 `json:"avg_fill_price,omitempty"`
	LastFillPrice float64 `json:"last_fill_price,omitempty"`
	TimestampMs   int64   `json:"timestamp_ms"`
}

// VendorError carries a req_id or order_id-scoped failure (whichever
// applies is non-zero) as well as connection-scoped errors (both zero).
type VendorError struct {
	ReqID    int64  `json:"req_id,omitempty"`
	OrderID  int64  `json:"order_id,omitempty"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

const (
	SeverityFatal   = "fatal"
	SeverityWarning = "warning"
)
