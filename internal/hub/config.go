package hub

import "time"

// Config configures the Client Hub's listener and per-client liveness/
// backpressure policy.
type Config struct {
	ListenAddr string // default 0.0.0.0:8765
	Path       string // default "/"

	MaxMessageBytes  int64 // default 256 KiB
	QueueCapacity    int   // default 1024
	PingInterval     time.Duration
	PongGracePeriods int // missed pongs before disconnect, default 3

	ShutdownGrace time.Duration // default 2s
}
