package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/heapoverflow/internal/metrics"
)

const (
	hubQueueSize      = 1024
	statsInterval     = 30 * time.Second
	defaultSendBuffer = 256
)

// HubConfig tunes per-connection behaviour.
type HubConfig struct {
	SendBuffer   int           // outbound messages queued per client
	PingInterval time.Duration // websocket ping period
}

// Hub owns the set of connected clients. Membership changes and fan-out all
// happen on the Run goroutine; mu only guards reads from other goroutines.
type Hub struct {
	clients map[*Client]struct{}
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	cfg     HubConfig
	logger  *slog.Logger
	metrics *metrics.Collector
}

func NewHub(cfg HubConfig, logger *slog.Logger, m *metrics.Collector) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client, 64),
		broadcast:  make(chan []byte, hubQueueSize),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
	}
}

// Run is the hub's event loop. It returns after Stop, once every client has
// been closed.
func (h *Hub) Run() {
	defer close(h.done)

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case c := <-h.register:
			h.addClient(c)

		case c := <-h.unregister:
			h.removeClient(c)

		case msg := <-h.broadcast:
			h.fanOut(msg)

		case <-ticker.C:
			h.logger.Debug("push hub stats", slog.Int("clients", h.ClientCount()))
		}
	}
}

// Stop shuts the loop down and waits for it to finish.
func (h *Hub) Stop() {
	h.cancel()
	<-h.done
}

// Deliver queues an encoded envelope for every local client. It never
// blocks: when the queue is full the message is dropped.
func (h *Hub) Deliver(msg []byte) {
	select {
	case h.broadcast <- msg:
	case <-h.ctx.Done():
	default:
		h.logger.Warn("push hub queue full, dropping message", slog.Int("queue", hubQueueSize))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) stopped() bool {
	return h.ctx.Err() != nil
}

// join hands a client to the Run loop. It reports false if the hub is
// already shutting down.
//
// register is unbuffered, so a true result means Run itself took the
// client and closeAll will close it.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// leave is called by a client's read pump when its connection ends.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.ConnOpened()
	h.logger.Info("push client connected",
		slog.String("connection_id", c.id),
		slog.String("username", c.username),
		slog.Int("clients", n),
	)
}

// removeClient closes the client's send channel, which makes its write
// pump send a close frame and shut the connection. Safe to call twice.
func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.ConnClosed()
	h.logger.Info("push client disconnected",
		slog.String("connection_id", c.id),
		slog.Int("clients", n),
	)
}

// fanOut copies msg into every client's buffer. A client whose buffer is
// full is disconnected rather than allowed to stall everyone else.
func (h *Hub) fanOut(msg []byte) {
	h.mu.RLock()
	var slow []*Client
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow push client",
			slog.String("connection_id", c.id),
			slog.String("username", c.username),
		)
		h.metrics.IncDropped()
		h.removeClient(c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
		h.metrics.ConnClosed()
	}
	h.mu.Unlock()
	h.logger.Info("push hub stopped")
}
