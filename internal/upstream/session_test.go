package upstream

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/marketbridge/gateway/internal/auth"
	"github.com/marketbridge/gateway/internal/model"
	"github.com/marketbridge/gateway/internal/vendorwire"
)

var errDial = errors.New("dial refused")

// fakeVendor serves one connection: it reads and discards the handshake
// frame, replies with ConnectionReady, then reads and discards everything
// the Session sends afterwards.
func fakeVendor(t *testing.T, server net.Conn, nextOrderID int64) {
	t.Helper()
	go func() {
		if _, err := vendorwire.ReadHandshake(server); err != nil {
			return
		}
		_ = vendorwire.WriteEvent(server, vendorwire.Event{
			Tag:             vendorwire.EventConnectionReady,
			ConnectionReady: &vendorwire.ConnectionReady{NextOrderID: nextOrderID},
		})
		// Keep reading so heartbeat pings don't pile up as unread bytes.
		buf := make([]byte, 4096)
		for {
			if _, err := server.Read(buf); err != nil {
				return
			}
		}
	}()
}

func newTestSession(t *testing.T, client, server net.Conn) *Session {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate test key: %v", err)
	}
	s := New(Config{
		ClientID:          "client-1",
		DialTimeout:       time.Second,
		WriteTimeout:      time.Second,
		IdleTimeout:       time.Second,
		HeartbeatInterval: 50 * time.Millisecond,
		ReconnectBaseWait: 10 * time.Millisecond,
		ReconnectMaxWait:  20 * time.Millisecond,
	}, &auth.Credentials{KeyID: "test-key", PrivateKey: key}, nil)
	s.dial = func(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
		return client, nil
	}
	return s
}

func TestSessionReachesReadyOnHandshake(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	fakeVendor(t, server, 500)
	s := newTestSession(t, client, server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	var ev vendorwire.Event
	select {
	case ev = <-s.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connection_ready event")
	}

	if ev.Tag != vendorwire.EventConnectionReady || ev.ConnectionReady == nil || ev.ConnectionReady.NextOrderID != 500 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if got := s.Status(); got != model.PhaseReady {
		t.Fatalf("Status() = %s, want Ready", got)
	}

	s.Close()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestSendFailsWhenNotReady(t *testing.T) {
	s := New(Config{}, nil, nil)
	err := s.Send(context.Background(), vendorwire.Request{Tag: vendorwire.TagUnsubscribe})
	if err != ErrNotReady {
		t.Fatalf("Send() = %v, want ErrNotReady", err)
	}
}

func TestConnectAndServeReportsReachedReadyOnDropAfterHandshake(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	go func() {
		if _, err := vendorwire.ReadHandshake(server); err != nil {
			return
		}
		_ = vendorwire.WriteEvent(server, vendorwire.Event{
			Tag:             vendorwire.EventConnectionReady,
			ConnectionReady: &vendorwire.ConnectionReady{NextOrderID: 1},
		})
		server.Close() // drop the connection right after handshake completes
	}()

	s := newTestSession(t, client, server)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reachedReady, err := s.connectAndServe(ctx)
	if !reachedReady {
		t.Fatal("expected reachedReady=true once PhaseReady was reached, even though the read loop then failed")
	}
	if err == nil {
		t.Fatal("expected a read error after the vendor dropped the connection")
	}
}

func TestConnectAndServeReportsNotReadyOnDialFailure(t *testing.T) {
	s := New(Config{DialTimeout: time.Second}, nil, nil)
	s.dial = func(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
		return nil, errDial
	}

	reachedReady, err := s.connectAndServe(context.Background())
	if reachedReady {
		t.Fatal("expected reachedReady=false when the dial itself fails")
	}
	if err == nil {
		t.Fatal("expected dial failure to propagate")
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	s := New(Config{}, nil, nil)
	s.Close()
	err := s.Send(context.Background(), vendorwire.Request{Tag: vendorwire.TagUnsubscribe})
	if err != ErrClosed {
		t.Fatalf("Send() after Close = %v, want ErrClosed", err)
	}
}
