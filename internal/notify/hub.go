package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

type hubClient struct {
	out chan []byte
}

// Hub broadcasts events as JSON text frames to every connected websocket client.
// A client whose queue is full misses the event rather than stalling the round.
type Hub struct {
	mu      sync.Mutex
	clients map[*hubClient]struct{}
	buffer  int
	origins []string
	logger  *zap.Logger
}

// NewHub creates a Hub with a per-client queue of buffer events. Cross-origin
// upgrades are refused unless the Origin host matches one of originPatterns
// (path.Match syntax).
//
// Precondition: buffer >= 1; logger must be non-nil.
func NewHub(buffer int, originPatterns []string, logger *zap.Logger) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	if logger == nil {
		panic("notify: NewHub requires a non-nil logger")
	}
	return &Hub{
		clients: make(map[*hubClient]struct{}),
		buffer:  buffer,
		origins: originPatterns,
		logger:  logger,
	}
}

// Notify queues ev for every connected client.
func (h *Hub) Notify(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encoding notification", zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.out <- data:
		default:
			h.logger.Warn("notification dropped for slow client", zap.String("event_id", ev.ID.String()))
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket and streams events until the
// client disconnects or the request context ends. Client messages are ignored.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c := &hubClient{out: make(chan []byte, h.buffer)}
	h.add(c)
	defer h.remove(c)
	h.logger.Debug("notification client connected", zap.String("remote", r.RemoteAddr))

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.out:
			if err := h.write(ctx, conn, data); err != nil {
				h.logger.Debug("notification client write failed", zap.Error(err))
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

func (h *Hub) add(c *hubClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}
