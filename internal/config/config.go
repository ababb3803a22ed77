package config

import "time"

// Config is the root configuration for a marketbridge instance.
type Config struct {
	Upstream UpstreamConfig `yaml:"upstream"`
	Hub      HubConfig      `yaml:"hub"`
	Orders   OrdersConfig   `yaml:"orders"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// UpstreamConfig holds the vendor session settings (C3).
type UpstreamConfig struct {
	Host                 string        `yaml:"host"`
	Port                 int           `yaml:"port"`
	KeyID                string        `yaml:"key_id"`
	PrivateKeyPath       string        `yaml:"private_key_path"`
	IdleTimeout          time.Duration `yaml:"idle_timeout"`
	PongTimeout          time.Duration `yaml:"pong_timeout"`
	ReconnectBase        time.Duration `yaml:"reconnect_base"`
	ReconnectCap         time.Duration `yaml:"reconnect_cap"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	SendDeadline         time.Duration `yaml:"send_deadline"`
}

// HubConfig holds the Client Hub's WebSocket server settings (C5).
type HubConfig struct {
	ListenHost          string        `yaml:"listen_host"`
	ListenPort          int           `yaml:"listen_port"`
	ClientQueueCapacity int           `yaml:"client_queue_capacity"`
	MaxMessageBytes     int           `yaml:"max_message_bytes"`
	PingInterval        time.Duration `yaml:"ping_interval"`
	PongMisses          int           `yaml:"pong_misses"`
}

// OrdersConfig holds the Order Manager's retention sweep settings (C7).
type OrdersConfig struct {
	Retention  time.Duration `yaml:"retention"`
	GCInterval time.Duration `yaml:"gc_interval"`
}

// MetricsConfig holds the Prometheus/health endpoint settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
