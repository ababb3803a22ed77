package order

import "time"

// Config tunes the Order Manager.
type Config struct {
	// SendTimeout bounds how long an upstream send may take.
	SendTimeout time.Duration
	// GCInterval is how often the retention sweep runs.
	GCInterval time.Duration
	// Retention is how long a terminal order is kept after UpdatedAt before
	// the sweep evicts it.
	Retention time.Duration
}

func (c Config) sendTimeoutOrDefault() time.Duration {
	if c.SendTimeout > 0 {
		return c.SendTimeout
	}
	return 5 * time.Second
}

func (c Config) gcIntervalOrDefault() time.Duration {
	if c.GCInterval > 0 {
		return c.GCInterval
	}
	return 60 * time.Second
}

func (c Config) retentionOrDefault() time.Duration {
	if c.Retention > 0 {
		return c.Retention
	}
	return 24 * time.Hour
}
