package subscription

import "time"

// Config tunes the Subscription Manager.
type Config struct {
	// SendTimeout bounds how long an upstream send may take before Subscribe,
	// UnsubscribeSymbol, or RequestContractDetails gives up. Only Subscribe
	// rolls its registration back on a failed send.
	SendTimeout time.Duration
}

func (c Config) sendTimeoutOrDefault() time.Duration {
	if c.SendTimeout > 0 {
		return c.SendTimeout
	}
	return 5 * time.Second
}
