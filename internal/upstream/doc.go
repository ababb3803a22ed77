// Package upstream implements the Upstream Session component (C3): the
// single connection to the brokerage, its state machine, reconnect with
// backoff, heartbeat liveness, and the rate-limited send path.
//
// Session owns the net.Conn and the vendorwire framing; it does not
// interpret events beyond ConnectionReady/ConnectionLost — routing inbound
// events to subscriptions and orders is the Event Router's job (C4), and
// deciding what to resubscribe after a reconnect is the Subscription
// Manager's job (C6).
package upstream
