package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Upstream.Host == "" {
		return errors.New("upstream.host is required")
	}
	if c.Upstream.Port < 1 || c.Upstream.Port > 65535 {
		return fmt.Errorf("upstream.port must be between 1 and 65535, got %d", c.Upstream.Port)
	}
	if c.Upstream.KeyID == "" {
		return errors.New("upstream.key_id is required")
	}
	if c.Upstream.PrivateKeyPath == "" {
		return errors.New("upstream.private_key_path is required")
	}
	if c.Upstream.MaxReconnectAttempts < 0 {
		return errors.New("upstream.max_reconnect_attempts must be >= 0")
	}
	if c.Upstream.ReconnectCap < c.Upstream.ReconnectBase {
		return errors.New("upstream.reconnect_cap cannot be less than reconnect_base")
	}

	if c.Hub.ListenPort < 1 || c.Hub.ListenPort > 65535 {
		return fmt.Errorf("hub.listen_port must be between 1 and 65535, got %d", c.Hub.ListenPort)
	}
	if c.Hub.ClientQueueCapacity < 1 {
		return errors.New("hub.client_queue_capacity must be >= 1")
	}
	if c.Hub.MaxMessageBytes < 1 {
		return errors.New("hub.max_message_bytes must be >= 1")
	}
	if c.Hub.PongMisses < 1 {
		return errors.New("hub.pong_misses must be >= 1")
	}

	if c.Orders.Retention <= 0 {
		return errors.New("orders.retention must be > 0")
	}
	if c.Orders.GCInterval <= 0 {
		return errors.New("orders.gc_interval must be > 0")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}
