package hub

import "github.com/marketbridge/gateway/internal/model"

// Subscriptions is the subset of the Subscription Manager (C6) the hub
// dispatches client commands to.
type Subscriptions interface {
	Subscribe(clientID string, instrument model.Instrument, kind model.StreamKind) (subID string, err error)
	UnsubscribeSymbol(clientID, symbol string)
	RequestContractDetails(clientID string, instrument model.Instrument) (reqID int64, err error)
	ClientDisconnected(clientID string)
}

// Orders is the subset of the Order Manager (C7) the hub dispatches client
// commands to.
type Orders interface {
	PlaceOrder(clientID string, instrument model.Instrument, side model.OrderSide, qty int, kind model.OrderKind, price float64) (orderID int64, err error)
	CancelOrder(clientID string, orderID int64) error
}

// CodedError is implemented by sentinel errors from Subscriptions and
// Orders that map directly to one of the ErrCode* values.
type CodedError interface {
	error
	Code() string
}
