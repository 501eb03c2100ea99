package alerts

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/xbklairith/aubit-poly/internal/arbitrage"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

type broadcastEnvelope struct {
	Type    string                 `json:"type"`
	Payload *arbitrage.Opportunity `json:"payload"`
}

type broadcastClient struct {
	conn *websocket.Conn
	send chan []byte
}

// BroadcastChannel pushes opportunities to connected WebSocket clients. It
// doubles as the http.Handler for the upgrade endpoint.
type BroadcastChannel struct {
	mu      sync.Mutex
	clients map[*broadcastClient]struct{}
	closed  bool
	logger  *zap.Logger
}

// NewBroadcastChannel creates an empty broadcast hub.
func NewBroadcastChannel(logger *zap.Logger) *BroadcastChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BroadcastChannel{
		clients: make(map[*broadcastClient]struct{}),
		logger:  logger,
	}
}

// Name implements Channel.
func (b *BroadcastChannel) Name() string { return "websocket" }

// Send queues the opportunity for every client. Slow clients whose buffer is
// full miss the message. With no clients connected the send still succeeds.
func (b *BroadcastChannel) Send(_ context.Context, opp *arbitrage.Opportunity) bool {
	msg, err := json.Marshal(broadcastEnvelope{Type: "opportunity", Payload: opp})
	if err != nil {
		b.logger.Error("broadcast-marshal-failed",
			zap.String("opportunity-id", opp.ID),
			zap.Error(err))
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	for c := range b.clients {
		select {
		case c.send <- msg:
		default:
			b.logger.Warn("broadcast-client-slow", zap.String("opportunity-id", opp.ID))
		}
	}
	return true
}

// SendBatch sends each opportunity in order.
func (b *BroadcastChannel) SendBatch(ctx context.Context, opps []*arbitrage.Opportunity) int {
	sent := 0
	for _, opp := range opps {
		if b.Send(ctx, opp) {
			sent++
		}
	}
	return sent
}

// ClientCount returns the number of connected clients.
func (b *BroadcastChannel) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// ServeHTTP upgrades the request and registers the client.
func (b *BroadcastChannel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("broadcast-upgrade-failed", zap.Error(err))
		return
	}

	c := &broadcastClient{conn: conn, send: make(chan []byte, sendBufferSize)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = conn.Close()
		return
	}
	b.clients[c] = struct{}{}
	count := len(b.clients)
	b.mu.Unlock()

	BroadcastClients.Inc()
	b.logger.Info("broadcast-client-connected",
		zap.String("remote-addr", r.RemoteAddr),
		zap.Int("clients", count))

	go b.writePump(c)
	go b.readPump(c)
}

// Close disconnects every client and rejects further sends.
func (b *BroadcastChannel) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for c := range b.clients {
		b.remove(c)
	}
	return nil
}

// remove must be called with b.mu held.
func (b *BroadcastChannel) remove(c *broadcastClient) {
	if _, ok := b.clients[c]; !ok {
		return
	}
	delete(b.clients, c)
	close(c.send)
	BroadcastClients.Dec()
}

func (b *BroadcastChannel) unregister(c *broadcastClient) {
	b.mu.Lock()
	b.remove(c)
	count := len(b.clients)
	b.mu.Unlock()

	b.logger.Info("broadcast-client-disconnected", zap.Int("clients", count))
}

// readPump drains client frames so pongs and close frames are processed.
func (b *BroadcastChannel) readPump(c *broadcastClient) {
	defer func() {
		b.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.Warn("broadcast-client-closed-unexpectedly", zap.Error(err))
			}
			return
		}
	}
}

func (b *BroadcastChannel) writePump(c *broadcastClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			err := c.conn.WriteMessage(websocket.TextMessage, msg)
			if err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			if err != nil {
				return
			}
		}
	}
}
