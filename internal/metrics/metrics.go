package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marketbridge/gateway/internal/model"
)

// phaseValue maps an upstream phase onto the gauge value reported to
// Prometheus, in connection-progress order.
var phaseValue = map[model.Phase]float64{
	model.PhaseDisconnected: 0,
	model.PhaseConnecting:   1,
	model.PhaseHandshaking:  2,
	model.PhaseReady:        3,
	model.PhaseReconnecting: 4,
	model.PhaseFailed:       5,
}

// Collector holds the Prometheus instruments the gateway reports against.
// It is a thin registry wrapper; callers push values in rather than the
// collector pulling them, since the components it observes (Upstream
// Session, Subscription Manager, Order Manager, Hub) are not themselves
// Prometheus collectors.
type Collector struct {
	registry *prometheus.Registry

	upstreamPhase     prometheus.Gauge
	activeSubs        prometheus.Gauge
	activeOrders      prometheus.Gauge
	connectedClients  prometheus.Gauge
	droppedMessages   *prometheus.CounterVec
	eventsRouted      prometheus.Counter
	unknownEventsSeen prometheus.Counter
}

// New builds a Collector registered against a fresh Prometheus registry.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		upstreamPhase: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marketbridge",
			Subsystem: "upstream",
			Name:      "phase",
			Help:      "Current upstream connection phase (0=Disconnected..5=Failed).",
		}),
		activeSubs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marketbridge",
			Subsystem: "subscriptions",
			Name:      "active",
			Help:      "Number of subscriptions not in a terminal state.",
		}),
		activeOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marketbridge",
			Subsystem: "orders",
			Name:      "active",
			Help:      "Number of orders not in a terminal state.",
		}),
		connectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marketbridge",
			Subsystem: "hub",
			Name:      "connected_clients",
			Help:      "Number of currently connected WebSocket clients.",
		}),
		droppedMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketbridge",
			Subsystem: "hub",
			Name:      "dropped_messages_total",
			Help:      "Outbound messages dropped, by reason.",
		}, []string{"reason"}),
		eventsRouted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketbridge",
			Subsystem: "eventrouter",
			Name:      "events_routed_total",
			Help:      "Upstream events successfully routed to a client.",
		}),
		unknownEventsSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketbridge",
			Subsystem: "eventrouter",
			Name:      "unknown_events_total",
			Help:      "Upstream events with an unrecognized tag, dropped.",
		}),
	}

	reg.MustRegister(
		c.upstreamPhase,
		c.activeSubs,
		c.activeOrders,
		c.connectedClients,
		c.droppedMessages,
		c.eventsRouted,
		c.unknownEventsSeen,
	)

	return c
}

// SetUpstreamPhase records the Upstream Session's current phase.
func (c *Collector) SetUpstreamPhase(p model.Phase) {
	c.upstreamPhase.Set(phaseValue[p])
}

// SetActiveSubscriptions records the Subscription Manager's live count.
func (c *Collector) SetActiveSubscriptions(n int) {
	c.activeSubs.Set(float64(n))
}

// SetActiveOrders records the Order Manager's live count.
func (c *Collector) SetActiveOrders(n int) {
	c.activeOrders.Set(float64(n))
}

// SetConnectedClients records the Hub's current client count.
func (c *Collector) SetConnectedClients(n int) {
	c.connectedClients.Set(float64(n))
}

// IncDroppedMessage records one outbound message dropped for reason (e.g.
// "slow_consumer", "queue_full").
func (c *Collector) IncDroppedMessage(reason string) {
	c.droppedMessages.WithLabelValues(reason).Inc()
}

// IncEventsRouted records one upstream event successfully routed.
func (c *Collector) IncEventsRouted() {
	c.eventsRouted.Inc()
}

// IncUnknownEvents records one upstream event dropped for an unrecognized
// tag.
func (c *Collector) IncUnknownEvents() {
	c.unknownEventsSeen.Inc()
}

// Sampler reports the live gauges a Collector polls periodically. Each
// return value mirrors the corresponding component's own counting method
// (Hub.Snapshot length, Subscription Manager/Order Manager Count), kept
// here as a narrow interface so metrics does not import those packages.
type Sampler struct {
	UpstreamPhase func() model.Phase
	Subscriptions func() int
	Orders        func() int
	Clients       func() int
}

// Run polls sample at interval and pushes the results into the collector
// until ctx is canceled.
func (c *Collector) Run(ctx context.Context, sample Sampler, interval time.Duration) error {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	poll := func() {
		if sample.UpstreamPhase != nil {
			c.SetUpstreamPhase(sample.UpstreamPhase())
		}
		if sample.Subscriptions != nil {
			c.SetActiveSubscriptions(sample.Subscriptions())
		}
		if sample.Orders != nil {
			c.SetActiveOrders(sample.Orders())
		}
		if sample.Clients != nil {
			c.SetConnectedClients(sample.Clients())
		}
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			poll()
		}
	}
}

// healthStatus is the /health response body: an overall status plus a
// per-component map.
type healthStatus struct {
	Status     string                 `json:"status"`
	Components map[string]interface{} `json:"components"`
}

// Handler builds the combined /health and Prometheus metrics mux. path is
// the Prometheus scrape path (e.g. "/metrics").
func (c *Collector) Handler(path string, upstreamPhase func() model.Phase) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health := healthStatus{Status: "healthy", Components: make(map[string]interface{})}

		phase := model.PhaseDisconnected
		if upstreamPhase != nil {
			phase = upstreamPhase()
		}
		health.Components["upstream"] = map[string]string{"phase": string(phase)}
		if phase != model.PhaseReady {
			health.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
