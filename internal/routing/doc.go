// Package routing implements the Routing Tables component (C2): the single
// piece of shared mutable state that lets the Event Router (C4) turn an
// inbound upstream event into a destination client, and lets the
// Subscription Manager (C6) and Order Manager (C7) turn an ownership check
// into a map lookup instead of a broadcast.
//
// All five maps are guarded by one RWMutex. forget(subID) removes a
// subscription from every map atomically so a reader never observes a
// subscription present in instrument_to_subs but already gone from
// sub_to_req.
package routing
