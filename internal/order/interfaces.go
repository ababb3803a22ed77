package order

import (
	"context"

	"github.com/marketbridge/gateway/internal/vendorwire"
)

// Upstream is the subset of the Upstream Session (C3) the manager sends
// requests through.
type Upstream interface {
	Send(ctx context.Context, req vendorwire.Request) error
}
