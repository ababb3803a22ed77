package upstream

import "errors"

var (
	// ErrNotReady is returned by Send when the session is not in PhaseReady.
	ErrNotReady = errors.New("upstream: not ready")
	// ErrTimeout is returned by Send when the rate limiter or the write
	// deadline expires before the frame goes out.
	ErrTimeout = errors.New("upstream: send timeout")
	// ErrClosed is returned by Send after Close has been called.
	ErrClosed = errors.New("upstream: session closed")
)
