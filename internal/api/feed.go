package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"token-presale/internal/observability"
)

// FeedConfig configures the live presale feed.
type FeedConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long a client may stay silent (pongs included).
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SendBuffer is the per-client queue length; a full queue drops the client.
	SendBuffer int
}

// DefaultFeedConfig returns default feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		SendBuffer:   16,
	}
}

// FeedMessage is the envelope pushed to feed clients.
type FeedMessage struct {
	Type string `json:"type"` // "presale"
	Data any    `json:"data"`
}

// Feed fans presale updates out to WebSocket clients.
type Feed struct {
	cfg      FeedConfig
	upgrader websocket.Upgrader
	log      *logrus.Entry

	mu      sync.Mutex
	clients map[*feedClient]struct{}
	closed  bool
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewFeed creates a feed. checkOrigin gates the upgrade handshake.
func NewFeed(cfg FeedConfig, log *logrus.Entry, checkOrigin func(*http.Request) bool) *Feed {
	if cfg.SendBuffer < 1 {
		cfg.SendBuffer = 1
	}
	return &Feed{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		log:     log,
		clients: make(map[*feedClient]struct{}),
	}
}

// Serve upgrades the request and registers the client. initial is sent
// before any broadcast.
func (f *Feed) Serve(w http.ResponseWriter, r *http.Request, initial FeedMessage) error {
	payload, err := json.Marshal(initial)
	if err != nil {
		return err
	}

	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return err
	}

	c := &feedClient{
		conn: conn,
		send: make(chan []byte, f.cfg.SendBuffer),
		done: make(chan struct{}),
	}
	c.send <- payload

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		conn.Close()
		return nil
	}
	f.clients[c] = struct{}{}
	n := len(f.clients)
	f.mu.Unlock()
	observability.UpdateFeedClients(n)

	go f.writeLoop(c)
	go f.readLoop(c)
	return nil
}

// Broadcast queues msg for every client. Clients whose queue is full are dropped.
func (f *Feed) Broadcast(msg FeedMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		f.log.WithError(err).Error("marshal feed message")
		return
	}

	var slow []*feedClient
	f.mu.Lock()
	for c := range f.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	f.mu.Unlock()

	for _, c := range slow {
		observability.RecordFeedClientDropped()
		f.remove(c)
	}
}

// Len returns the number of connected clients.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Close disconnects every client and rejects new ones.
func (f *Feed) Close() {
	f.mu.Lock()
	f.closed = true
	clients := make([]*feedClient, 0, len(f.clients))
	for c := range f.clients {
		clients = append(clients, c)
	}
	f.mu.Unlock()

	for _, c := range clients {
		f.remove(c)
	}
}

func (f *Feed) remove(c *feedClient) {
	c.once.Do(func() {
		f.mu.Lock()
		delete(f.clients, c)
		n := len(f.clients)
		f.mu.Unlock()
		observability.UpdateFeedClients(n)

		close(c.done)
		c.conn.Close()
	})
}

func (f *Feed) writeLoop(c *feedClient) {
	ticker := time.NewTicker(f.cfg.PingInterval)
	defer ticker.Stop()
	defer f.remove(c)

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(f.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(f.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop discards client frames; it exists to process pongs and
// notice disconnects.
func (f *Feed) readLoop(c *feedClient) {
	defer f.remove(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
