package hub

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/marketbridge/gateway/internal/model"
)

// Hub is the Client Hub component (C5): it accepts WebSocket upgrades,
// spawns a reader/writer goroutine pair per client, and owns each client's
// bounded outbound queue.
type Hub struct {
	cfg    Config
	logger *slog.Logger
	subs   Subscriptions
	orders Orders

	upgrader websocket.Upgrader

	mu           sync.RWMutex
	clients      map[string]*clientConn
	shuttingDown atomic.Bool

	server *http.Server
}

// New creates a Hub. subs and orders receive dispatched client commands.
func New(cfg Config, subs Subscriptions, orders Orders, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "0.0.0.0:8765"
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 256 * 1024
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 1024
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.PongGracePeriods <= 0 {
		cfg.PongGracePeriods = 3
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 2 * time.Second
	}

	return &Hub{
		cfg:    cfg,
		logger: logger,
		subs:   subs,
		orders: orders,
		clients: make(map[string]*clientConn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run starts the HTTP listener and blocks until ctx is canceled, at which
// point it broadcasts shutting_down, gives clients cfg.ShutdownGrace to
// drain, then closes every connection.
func (h *Hub) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(h.cfg.Path, h.serveWS)

	h.server = &http.Server{Addr: h.cfg.ListenAddr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	h.shuttingDown.Store(true)
	h.Broadcast(Message{Type: MsgConnectionStatus, ConnectionStatus: &ConnectionStatusMsg{Status: StatusShuttingDown}})

	time.Sleep(h.cfg.ShutdownGrace)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = h.server.Shutdown(shutdownCtx)

	h.mu.Lock()
	for _, c := range h.clients {
		c.close(websocket.CloseNormalClosure, "server shutting down")
	}
	h.mu.Unlock()

	return nil
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	if h.shuttingDown.Load() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	c := newClientConn(uuid.NewString(), r.RemoteAddr, conn, h.cfg)
	h.register(c)

	go h.writerLoop(c)
	h.readerLoop(c) // blocks until the client disconnects

	h.unregister(c)
}

func (h *Hub) register(c *clientConn) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.logger.Info("client connected", "client_id", c.id, "remote", c.remoteAddr)

	status := StatusConnected
	c.push(Message{Type: MsgConnectionStatus, ConnectionStatus: &ConnectionStatusMsg{Status: status}})
}

func (h *Hub) unregister(c *clientConn) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()
	if !ok {
		return
	}

	c.close(websocket.CloseNormalClosure, "")
	h.subs.ClientDisconnected(c.id)
	h.logger.Info("client disconnected", "client_id", c.id)
}

// Broadcast enqueues msg for delivery to every connected client.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.deliver(c, msg)
	}
}

// Deliver enqueues msg for a single client, identified by client_id. It is a
// no-op if the client is no longer connected — the Event Router calls this
// without first checking liveness.
func (h *Hub) Deliver(clientID string, msg Message) {
	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.deliver(c, msg)
}

func (h *Hub) deliver(c *clientConn, msg Message) {
	if !c.push(msg) {
		h.logger.Warn("client outbound queue overflowed with a critical message, disconnecting", "client_id", c.id)
		c.close(websocket.CloseInternalServerErr, "slow_consumer")
		go func() {
			h.mu.Lock()
			delete(h.clients, c.id)
			h.mu.Unlock()
			h.subs.ClientDisconnected(c.id)
		}()
	}
}

// Snapshot returns a diagnostic copy of every connected client's session.
func (h *Hub) Snapshot() []model.ClientSession {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]model.ClientSession, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c.snapshot())
	}
	return out
}
