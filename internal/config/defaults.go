package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultUpstreamIdleTimeout  = 30 * time.Second
	DefaultUpstreamPongTimeout  = 10 * time.Second
	DefaultReconnectBase        = 1 * time.Second
	DefaultReconnectCap         = 30 * time.Second
	DefaultMaxReconnectAttempts = 0
	DefaultSendDeadline         = 5 * time.Second

	DefaultHubListenHost          = "0.0.0.0"
	DefaultHubListenPort          = 8765
	DefaultHubClientQueueCapacity = 1024
	DefaultHubMaxMessageBytes     = 262144
	DefaultHubPingInterval        = 30 * time.Second
	DefaultHubPongMisses          = 3

	DefaultOrdersRetention  = 24 * time.Hour
	DefaultOrdersGCInterval = 60 * time.Second

	DefaultMetricsPort = 9090
	DefaultMetricsPath = "/metrics"
)

func (c *Config) applyDefaults() {
	if c.Upstream.IdleTimeout == 0 {
		c.Upstream.IdleTimeout = DefaultUpstreamIdleTimeout
	}
	if c.Upstream.PongTimeout == 0 {
		c.Upstream.PongTimeout = DefaultUpstreamPongTimeout
	}
	if c.Upstream.ReconnectBase == 0 {
		c.Upstream.ReconnectBase = DefaultReconnectBase
	}
	if c.Upstream.ReconnectCap == 0 {
		c.Upstream.ReconnectCap = DefaultReconnectCap
	}
	if c.Upstream.SendDeadline == 0 {
		c.Upstream.SendDeadline = DefaultSendDeadline
	}

	if c.Hub.ListenHost == "" {
		c.Hub.ListenHost = DefaultHubListenHost
	}
	if c.Hub.ListenPort == 0 {
		c.Hub.ListenPort = DefaultHubListenPort
	}
	if c.Hub.ClientQueueCapacity == 0 {
		c.Hub.ClientQueueCapacity = DefaultHubClientQueueCapacity
	}
	if c.Hub.MaxMessageBytes == 0 {
		c.Hub.MaxMessageBytes = DefaultHubMaxMessageBytes
	}
	if c.Hub.PingInterval == 0 {
		c.Hub.PingInterval = DefaultHubPingInterval
	}
	if c.Hub.PongMisses == 0 {
		c.Hub.PongMisses = DefaultHubPongMisses
	}

	if c.Orders.Retention == 0 {
		c.Orders.Retention = DefaultOrdersRetention
	}
	if c.Orders.GCInterval == 0 {
		c.Orders.GCInterval = DefaultOrdersGCInterval
	}

	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
