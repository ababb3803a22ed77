package hub

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marketbridge/gateway/internal/model"
)

// clientConn is one connected WebSocket client: its socket, its bounded
// outbound queue, and its liveness bookkeeping.
type clientConn struct {
	id         string
	remoteAddr string
	conn       *websocket.Conn
	cfg        Config

	queue *outboundQueue
	wake  chan struct{} // buffered 1; signals the writer a message was pushed

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}

	connectedAt time.Time
	mu          sync.RWMutex
	lastPongAt  time.Time
	missedPings atomic.Int32
}

func newClientConn(id, remoteAddr string, conn *websocket.Conn, cfg Config) *clientConn {
	now := time.Now()
	return &clientConn{
		id:          id,
		remoteAddr:  remoteAddr,
		conn:        conn,
		cfg:         cfg,
		queue:       newOutboundQueue(cfg.QueueCapacity),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
		connectedAt: now,
		lastPongAt:  now,
	}
}

// push enqueues msg for this client, returning false if the queue
// overflowed with a critical message (the caller must disconnect as
// slow_consumer).
func (c *clientConn) push(msg Message) bool {
	ok := c.queue.Push(msg)
	select {
	case c.wake <- struct{}{}:
	default:
	}
	return ok
}

func (c *clientConn) snapshot() model.ClientSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return model.ClientSession{
		ClientID:       c.id,
		RemoteAddr:     c.remoteAddr,
		ConnectedAt:    c.connectedAt,
		LastPongAt:     c.lastPongAt,
		OutboundQueued: c.queue.Len(),
	}
}

func (c *clientConn) close(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		c.conn.Close()
	})
}

// readerLoop parses inbound commands and dispatches them to C6/C7. It
// returns when the socket errors or closes, which signals the caller
// (Hub.serveWS) to unregister the client.
func (h *Hub) readerLoop(c *clientConn) {
	c.conn.SetReadLimit(h.cfg.MaxMessageBytes)
	c.conn.SetPongHandler(func(string) error {
		c.mu.Lock()
		c.lastPongAt = time.Now()
		c.missedPings.Store(0)
		c.mu.Unlock()
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.badRequest(c, "invalid JSON: "+err.Error())
			continue
		}
		h.dispatch(c, cmd)
	}
}

// writerLoop drains the outbound queue to the socket and drives the
// application-level ping/pong liveness check: every PingInterval it sends a
// ping; after PongGracePeriods consecutive missed pongs it closes the
// connection.
func (h *Hub) writerLoop(c *clientConn) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
			for {
				msg, ok := c.queue.Pop()
				if !ok {
					break
				}
				c.writeMu.Lock()
				c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				err := c.conn.WriteJSON(msg)
				c.writeMu.Unlock()
				if err != nil {
					h.logger.Debug("write failed, closing client", "client_id", c.id, "error", err)
					c.close(websocket.CloseInternalServerErr, "write_error")
					return
				}
			}
		case <-ticker.C:
			if c.missedPings.Add(1) > int32(h.cfg.PongGracePeriods) {
				h.logger.Warn("client missed too many pongs, disconnecting", "client_id", c.id)
				c.close(websocket.CloseInternalServerErr, "ping_timeout")
				return
			}
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			c.writeMu.Unlock()
			if err != nil {
				c.close(websocket.CloseInternalServerErr, "ping_failed")
				return
			}
		}
	}
}
