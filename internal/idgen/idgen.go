package idgen

import "sync/atomic"

// Allocator hands out req_ids and order_ids. req_id starts at 1 and
// increments per subscription or contract-details lookup. order_id's floor
// is advanced to the upstream's next_order_id on every handshake and only
// ever moves forward, so order-id monotonicity is preserved across
// reconnects.
type Allocator struct {
	reqID   atomic.Int64
	orderID atomic.Int64
}

// New creates an Allocator with both counters at zero; the first NextReqID
// call returns 1. Until AdvanceOrderFloor is first called (on a successful
// upstream handshake), NextOrderID likewise counts up from 1.
func New() *Allocator {
	return &Allocator{}
}

// NextReqID returns the next request id, starting at 1.
func (a *Allocator) NextReqID() int64 {
	return a.reqID.Add(1)
}

// AdvanceOrderFloor raises the order_id floor to max(current, next-1) so
// that the following NextOrderID call returns at least next. It never moves
// the floor backward, so a stale or out-of-order handshake cannot regress
// already-allocated order ids.
func (a *Allocator) AdvanceOrderFloor(next int64) {
	want := next - 1
	for {
		cur := a.orderID.Load()
		if want <= cur {
			return
		}
		if a.orderID.CompareAndSwap(cur, want) {
			return
		}
	}
}

// NextOrderID returns the next order id, strictly greater than any id
// returned before and greater than or equal to the last handshake's
// next_order_id.
func (a *Allocator) NextOrderID() int64 {
	return a.orderID.Add(1)
}
