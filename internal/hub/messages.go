package hub

// Command is the inbound JSON sum type a client sends, discriminated by the
// command field. Only the fields relevant to Command are populated; the
// rest are the zero value, matching design note "tagged-union of
// inbound/outbound message variants with exhaustive handling."
type Command struct {
	Command string `json:"command"`

	// subscribe_market_data / subscribe_time_and_sales / subscribe_bid_ask
	Symbol         string `json:"symbol,omitempty"`
	InstrumentType string `json:"instrument_type,omitempty"`
	Exchange       string `json:"exchange,omitempty"`
	Currency       string `json:"currency,omitempty"`
	ContractMonth  string `json:"contract_month,omitempty"`
	LastTradeDate  string `json:"last_trade_date,omitempty"`

	// place_order
	Action    string  `json:"action,omitempty"`
	Quantity  int     `json:"quantity,omitempty"`
	OrderType string  `json:"order_type,omitempty"`
	Price     float64 `json:"price,omitempty"`

	// cancel_order
	OrderID int64 `json:"order_id,omitempty"`
}

const (
	CmdSubscribeMarketData   = "subscribe_market_data"
	CmdSubscribeTimeAndSales = "subscribe_time_and_sales"
	CmdSubscribeBidAsk       = "subscribe_bid_ask"
	CmdUnsubscribeMarketData = "unsubscribe_market_data"
	CmdPlaceOrder            = "place_order"
	CmdCancelOrder           = "cancel_order"
	CmdGetContractDetails    = "get_contract_details"
)

// Message is the outbound JSON sum type sent to a client. Exactly one of
// the embedded payload fields is set, matching the type discriminator.
// Critical message types (see IsCritical) are never dropped by the
// outbound-queue backpressure policy.
type Message struct {
	Type string `json:"type"`

	ConnectionStatus   *ConnectionStatusMsg   `json:"-"`
	MarketData         *MarketDataMsg         `json:"-"`
	TimeAndSales       *TimeAndSalesMsg       `json:"-"`
	BidAskTick         *BidAskTickMsg         `json:"-"`
	OrderStatus        *OrderStatusMsg        `json:"-"`
	ContractDetails    *ContractDetailsMsg    `json:"-"`
	ContractDetailsEnd *ContractDetailsEndMsg `json:"-"`
	Error              *ErrorMsg              `json:"-"`
}

const (
	MsgConnectionStatus   = "connection_status"
	MsgMarketData         = "market_data"
	MsgTimeAndSales       = "time_and_sales"
	MsgBidAskTick         = "bid_ask_tick"
	MsgOrderStatus        = "order_status"
	MsgContractDetails    = "contract_details"
	MsgContractDetailsEnd = "contract_details_end"
	MsgError              = "error"
)

// IsCritical reports whether msgType must never be dropped by the
// backpressure policy; the hub disconnects a client as slow_consumer rather
// than drop one of these.
func IsCritical(msgType string) bool {
	switch msgType {
	case MsgOrderStatus, MsgConnectionStatus, MsgError:
		return true
	default:
		return false
	}
}

type ConnectionStatusMsg struct {
	Status      string `json:"status"`
	NextOrderID int64  `json:"next_order_id,omitempty"`
}

type MarketDataMsg struct {
	Symbol    string  `json:"symbol"`
	ReqID     int64   `json:"req_id"`
	DataType  string  `json:"data_type"`
	TickType  string  `json:"tick_type"`
	Price     float64 `json:"price,omitempty"`
	Size      int64   `json:"size,omitempty"`
	Timestamp float64 `json:"timestamp"`
}

type TimeAndSalesMsg struct {
	Symbol    string  `json:"symbol"`
	ReqID     int64   `json:"req_id"`
	Price     float64 `json:"price"`
	Size      int64   `json:"size"`
	Timestamp float64 `json:"timestamp"`
}

type BidAskTickMsg struct {
	Symbol    string  `json:"symbol"`
	ReqID     int64   `json:"req_id"`
	BidPrice  float64 `json:"bid_price"`
	AskPrice  float64 `json:"ask_price"`
	BidSize   int64   `json:"bid_size"`
	AskSize   int64   `json:"ask_size"`
	Timestamp float64 `json:"timestamp"`
}

type OrderStatusMsg struct {
	OrderID       int64   `json:"order_id"`
	Status        string  `json:"status"`
	Filled        int     `json:"filled"`
	Remaining     int     `json:"remaining"`
	AvgFillPrice  float64 `json:"avg_fill_price,omitempty"`
	LastFillPrice float64 `json:"last_fill_price,omitempty"`
	Timestamp     float64 `json:"timestamp"`
}

type ContractDetailsMsg struct {
	ReqID      int64       `json:"req_id"`
	Contract   ContractRef `json:"contract"`
	MarketName string      `json:"market_name,omitempty"`
	MinTick    float64     `json:"min_tick,omitempty"`
}

// ContractRef is the contract descriptor nested inside a contract_details
// message.
type ContractRef struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency,omitempty"`
}

type ContractDetailsEndMsg struct {
	ReqID int64 `json:"req_id"`
}

type ErrorMsg struct {
	Severity    string `json:"severity"`
	ErrorCode   string `json:"error_code"`
	ErrorString string `json:"error_string"`
	ReqID       int64  `json:"req_id,omitempty"`
	OrderID     int64  `json:"order_id,omitempty"`
}

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusConnecting   = "connecting"
	StatusShuttingDown = "shutting_down"
)

const (
	ErrCodeBadRequest            = "bad_request"
	ErrCodeNotConnected          = "not_connected"
	ErrCodeDuplicateSubscription = "duplicate_subscription"
	ErrCodeNotFound              = "not_found"
	ErrCodeNotOwned              = "not_owned"
	ErrCodeTerminal              = "terminal"
)

const (
	SeverityError   = "ERROR"
	SeverityWarning = "WARNING"
	SeverityInfo    = "INFO"
)
