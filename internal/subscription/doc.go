// Package subscription implements the Subscription Manager component (C6):
// it owns every client's market-data Subscriptions, enforces the
// at-most-one-subscription-per-(client,instrument,stream) invariant,
// allocates req_ids before sending upstream, and resubscribes everything
// Active or Pending after a reconnect.
package subscription
