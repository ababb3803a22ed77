package eventrouter

import (
	"github.com/marketbridge/gateway/internal/hub"
	"github.com/marketbridge/gateway/internal/vendorwire"
)

// Forwarder is the subset of the Client Hub (C5) the router delivers
// outbound messages through.
type Forwarder interface {
	Deliver(clientID string, msg hub.Message)
	Broadcast(msg hub.Message)
}

// Subscriptions is the subset of the Subscription Manager (C6) the router
// notifies of upstream connection transitions and queries for ownership.
type Subscriptions interface {
	// HandleReady is called once after every successful handshake; the
	// Subscription Manager resubscribes every Active or Pending
	// subscription with a fresh req_id.
	HandleReady()
	// HandleConnectionLost marks every Active subscription Pending.
	HandleConnectionLost()
	// Fail transitions subID to Failed and forgets its routing entry.
	Fail(subID, reason string)
	// LookupSub resolves a sub_id to its owning client_id and instrument
	// symbol. Returns false if subID is unknown or its subscription is
	// Cancelling, Cancelled or Failed.
	LookupSub(subID string) (clientID, symbol string, ok bool)
}

// Orders is the subset of the Order Manager (C7) the router forwards
// upstream order_status events to.
type Orders interface {
	ApplyStatus(orderID int64, ev vendorwire.OrderStatus)
}
