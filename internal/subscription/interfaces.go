package subscription

import (
	"context"

	"github.com/marketbridge/gateway/internal/vendorwire"
)

// Upstream is the subset of the Upstream Session (C3) the manager sends
// requests through.
type Upstream interface {
	Send(ctx context.Context, req vendorwire.Request) error
}

// ContractRegistrar is the subset of the Event Router (C4) the manager
// registers one-shot contract-details lookups with, so the router knows
// which client the eventual ContractDetails/ContractDetailsEnd events
// belong to.
type ContractRegistrar interface {
	RegisterContractRequest(reqID int64, clientID string)
}
