package devserver

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"

	"github.com/conneroisu/unobtrusive/internal/logging"
	"github.com/conneroisu/unobtrusive/internal/validation"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBuffer     = 64
)

// Message types sent to preview clients.
const (
	MessageUpdate = "update"
	MessageReload = "reload"
	MessageError  = "error"
)

// Message is a hot update notification. Update messages carry the compiled
// template and whether the client should rerender or reload the component.
type Message struct {
	Type      string    `json:"type"`
	Component string    `json:"component,omitempty"`
	Mode      string    `json:"mode,omitempty"`
	Template  string    `json:"template,omitempty"`
	Version   int       `json:"version,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// hub fans messages out to connected clients.
type hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}

	origins []string
	metrics *metrics
	logger  logging.Logger
}

func newHub(origins []string, m *metrics, logger logging.Logger) *hub {
	return &hub{
		clients: make(map[*client]struct{}),
		origins: origins,
		metrics: m,
		logger:  logger,
	}
}

// count returns the number of connected clients.
func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	if err := validation.ValidateOrigin(r.Header.Get("Origin"), h.origins); err != nil {
		h.logger.Warn(r.Context(), err, "websocket origin rejected", "remote", r.RemoteAddr)
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(h.origins),
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(c)

	ctx, cancel := context.WithCancel(context.Background())
	go h.writePump(ctx, c)
	h.readPump(ctx, c)
	cancel()
	h.remove(c)
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.clients.Set(float64(n))
	h.logger.Debug(context.Background(), "client connected", "clients", n)
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.conn.Close(websocket.StatusNormalClosure, "")
		h.metrics.clients.Set(float64(n))
		h.logger.Debug(context.Background(), "client disconnected", "clients", n)
	}
}

// broadcast queues msg for every client. Clients whose queue is full are
// disconnected.
func (h *hub) broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(context.Background(), err, "encode message", "type", msg.Type)
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.metrics.dropped.Inc()
		h.remove(c)
	}
}

// closeAll disconnects every client.
func (h *hub) closeAll() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.remove(c)
	}
}

// readPump discards client frames until the connection fails. Reading also
// delivers the pongs writePump waits for.
func (h *hub) readPump(ctx context.Context, c *client) {
	for {
		_, _, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				h.logger.Debug(ctx, "websocket closed", "error", err.Error())
			}
			return
		}
	}
}

func (h *hub) writePump(ctx context.Context, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// allowedOrigin reports whether origin is an http(s) origin in allowed. A
// "*" entry allows any http(s) origin.
func allowedOrigin(origin string, allowed []string) bool {
	return validation.ValidateOrigin(origin, allowed) == nil
}

// originPatterns returns the host patterns the websocket library checks
// cross origin requests against.
func originPatterns(allowed []string) []string {
	patterns := make([]string, 0, len(allowed))
	for _, a := range allowed {
		if a == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(a); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}
