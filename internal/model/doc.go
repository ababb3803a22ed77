// Package model defines the shared data types that flow between every
// component of the bridge: instruments, subscriptions, orders, client
// sessions, and upstream session phase.
//
// Conventions:
//   - Timestamps: time.Time in-process; UNIX seconds (fractional allowed) on
//     the wire to WebSocket clients.
//   - IDs: req_id and order_id are int64 (63-bit signed, process lifetime
//     unique); sub_id and client_id are strings (UUIDs).
package model
