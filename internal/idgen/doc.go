// Package idgen implements the ID Allocator component (C1): two independent
// monotonic 63-bit counters, one for req_id and one for order_id, safe under
// concurrent access. Neither counter recycles values.
package idgen
