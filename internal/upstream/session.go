package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/marketbridge/gateway/internal/auth"
	"github.com/marketbridge/gateway/internal/model"
	"github.com/marketbridge/gateway/internal/vendorwire"
)

// dialFunc abstracts the transport dial so tests can substitute an in-memory
// net.Pipe instead of a real TCP socket.
type dialFunc func(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error)

func dialTCP(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, "tcp", addr)
}

// Session is the Upstream Session component (C3): one connection to the
// brokerage, its state machine, and the rate-limited send path.
type Session struct {
	cfg    Config
	creds  *auth.Credentials
	logger *slog.Logger
	dial   dialFunc

	limiter *rate.Limiter

	mu    sync.RWMutex
	phase model.Phase
	conn  net.Conn

	writeMu sync.Mutex

	events chan vendorwire.Event

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a Session. creds may be nil, in which case the handshake frame
// is skipped (useful against a test fixture that does not check auth).
func New(cfg Config, creds *auth.Credentials, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	rps := cfg.MaxRequestsPerSecond
	if rps <= 0 {
		rps = 50
	}
	return &Session{
		cfg:     cfg,
		creds:   creds,
		logger:  logger,
		dial:    dialTCP,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		phase:   model.PhaseDisconnected,
		events:  make(chan vendorwire.Event, eventBufferOrDefault(cfg.EventBuffer)),
		done:    make(chan struct{}),
	}
}

func eventBufferOrDefault(n int) int {
	if n <= 0 {
		return 256
	}
	return n
}

// Events returns the channel of inbound vendor events, including the
// synthetic ConnectionReady/ConnectionLost events the Session itself emits
// on phase transitions.
func (s *Session) Events() <-chan vendorwire.Event {
	return s.events
}

// Status returns the current connection phase.
func (s *Session) Status() model.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

func (s *Session) setPhase(p model.Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

// Run drives the connect/handshake/read/reconnect lifecycle until ctx is
// canceled or Close is called. It is meant to run in its own goroutine,
// typically supervised by an errgroup in the Supervisor (C8).
func (s *Session) Run(ctx context.Context) error {
	defer close(s.events)

	wait := s.cfg.ReconnectBaseWait
	if wait <= 0 {
		wait = time.Second
	}
	maxWait := s.cfg.ReconnectMaxWait
	if maxWait <= 0 {
		maxWait = 30 * time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		default:
		}

		reachedReady, err := s.connectAndServe(ctx)
		if reachedReady {
			wait = s.cfg.ReconnectBaseWait
			if wait <= 0 {
				wait = time.Second
			}
		}
		if err == nil {
			return nil // ctx canceled or Close called cleanly
		}

		s.logger.Warn("upstream connection lost", "error", err)
		s.setPhase(model.PhaseReconnecting)
		s.emit(vendorwire.Event{Tag: vendorwire.EventConnectionLost})

		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case <-time.After(wait):
		}

		wait *= 2
		if wait > maxWait {
			wait = maxWait
		}
	}
}

// connectAndServe dials once, performs the handshake, and blocks reading
// events until the connection drops or ctx/done fires. The returned bool
// reports whether the handshake completed and PhaseReady was reached, so
// Run can reset its backoff even when the subsequent read loop fails. A nil
// error means a clean shutdown was requested; any other error means the
// connection was lost and Run should back off and retry.
func (s *Session) connectAndServe(ctx context.Context) (bool, error) {
	s.setPhase(model.PhaseConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeoutOrDefault(s.cfg.DialTimeout))
	conn, err := s.dial(dialCtx, s.cfg.Addr, dialTimeoutOrDefault(s.cfg.DialTimeout))
	cancel()
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.setPhase(model.PhaseHandshaking)
	if err := s.handshake(conn); err != nil {
		conn.Close()
		return false, fmt.Errorf("handshake: %w", err)
	}

	s.setPhase(model.PhaseReady)

	readErrCh := make(chan error, 1)
	s.wg.Add(1)
	go s.readLoop(conn, readErrCh)

	heartbeatDone := make(chan struct{})
	s.wg.Add(1)
	go s.heartbeatLoop(conn, heartbeatDone)

	select {
	case <-ctx.Done():
		conn.Close()
		close(heartbeatDone)
		s.wg.Wait()
		return true, nil
	case <-s.done:
		conn.Close()
		close(heartbeatDone)
		s.wg.Wait()
		return true, nil
	case err := <-readErrCh:
		close(heartbeatDone)
		conn.Close()
		s.wg.Wait()
		return true, err
	}
}

func dialTimeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

// handshake sends the signed CONNECT frame and waits for ConnectionReady.
func (s *Session) handshake(conn net.Conn) error {
	if s.creds != nil {
		frame, err := s.creds.SignHandshake(s.cfg.ClientID)
		if err != nil {
			return fmt.Errorf("sign handshake: %w", err)
		}
		if err := writeHandshake(conn, frame); err != nil {
			return fmt.Errorf("write handshake: %w", err)
		}
	}

	conn.SetReadDeadline(time.Now().Add(dialTimeoutOrDefault(s.cfg.DialTimeout)))
	ev, err := vendorwire.ReadEvent(conn)
	conn.SetReadDeadline(time.Time{})
	if err != nil {
		return fmt.Errorf("read connection_ready: %w", err)
	}
	if ev.Tag != vendorwire.EventConnectionReady || ev.ConnectionReady == nil {
		return fmt.Errorf("expected connection_ready, got %s", ev.Tag)
	}

	s.setPhase(model.PhaseReady)
	s.emit(ev)
	return nil
}

func (s *Session) readLoop(conn net.Conn, errCh chan<- error) {
	defer s.wg.Done()
	for {
		conn.SetReadDeadline(time.Now().Add(idleTimeoutOrDefault(s.cfg.IdleTimeout)))
		ev, err := vendorwire.ReadEvent(conn)
		if err != nil {
			errCh <- err
			return
		}
		s.emit(ev)
	}
}

func idleTimeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 60 * time.Second
	}
	return d
}

func (s *Session) heartbeatLoop(conn net.Conn, done <-chan struct{}) {
	defer s.wg.Done()
	interval := s.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeoutOrDefault(s.cfg.WriteTimeout)))
			err := vendorwire.WriteRequest(conn, vendorwire.Request{Tag: vendorwire.TagPing, Ping: &vendorwire.Ping{}})
			s.writeMu.Unlock()
			if err != nil {
				s.logger.Debug("heartbeat write failed", "error", err)
				return
			}
		}
	}
}

func writeTimeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Second
	}
	return d
}

func (s *Session) emit(ev vendorwire.Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("upstream event buffer full, dropping event", "tag", ev.Tag)
	}
}

// Send submits req to the vendor, subject to the outbound rate limiter and
// ctx's deadline. It returns ErrNotReady if the session is not currently
// connected, and ErrTimeout if the rate limiter could not grant a token (or
// the write itself timed out) before ctx expired.
func (s *Session) Send(ctx context.Context, req vendorwire.Request) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	s.mu.RLock()
	phase := s.phase
	conn := s.conn
	s.mu.RUnlock()

	if phase != model.PhaseReady || conn == nil {
		return ErrNotReady
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return ErrTimeout
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeTimeoutOrDefault(s.cfg.WriteTimeout)))
	if err := vendorwire.WriteRequest(conn, req); err != nil {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return nil
}

// Close shuts the session down; Run returns once any in-flight connection
// is closed and the goroutines it started have exited.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn != nil {
			conn.Close()
		}
	})
	s.setPhase(model.PhaseDisconnected)
	return nil
}

func writeHandshake(conn net.Conn, frame auth.HandshakeFrame) error {
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	defer conn.SetWriteDeadline(time.Time{})
	return vendorwire.WriteHandshake(conn, vendorwire.Handshake{
		KeyID:       frame.KeyID,
		ClientID:    frame.ClientID,
		TimestampMs: frame.TimestampMs,
		Signature:   frame.Signature,
	})
}
