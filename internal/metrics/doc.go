// Package metrics exposes Prometheus collectors and a /health endpoint for
// the running gateway.
//
// Key metrics:
//   - upstream connection phase (disconnected/connecting/ready)
//   - active subscriptions and orders
//   - connected WebSocket clients
//   - dropped-message counters per reason
package metrics
