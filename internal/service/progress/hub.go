package progress

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"FinCast/internal/forecast"
	applogger "FinCast/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// Event is one training progress notification.
type Event struct {
	Symbol    string  `json:"symbol"`
	Epoch     int     `json:"epoch"`
	MaxEpochs int     `json:"max_epochs"`
	Loss      float64 `json:"loss"`
	BestLoss  float64 `json:"best_loss"`
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	symbol string // empty means all symbols
}

// Hub fans progress events out to websocket subscribers. Slow clients lose
// events instead of blocking training.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	origins  []string
	l        *applogger.Logger
}

type HubOption func(*Hub)

// WithAllowedOrigins limits websocket upgrades to the listed origins; "*"
// admits any. Without it only same-host origins are accepted.
func WithAllowedOrigins(origins []string) HubOption {
	return func(h *Hub) { h.origins = origins }
}

func NewHub(l *applogger.Logger, opts ...HubOption) *Hub {
	if l == nil {
		l = applogger.Nop()
	}
	h := &Hub{
		clients: make(map[*client]struct{}),
		l:       l.Component("progress"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.origins) == 0 {
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
	for _, o := range h.origins {
		if o == "*" || strings.EqualFold(strings.TrimRight(o, "/"), origin) {
			return true
		}
	}
	return false
}

// Observer returns a trainer observer that tags events with symbol.
func (h *Hub) Observer(symbol string) forecast.Observer {
	return forecast.ObserverFunc(func(p forecast.Progress) {
		h.Publish(Event{
			Symbol:    symbol,
			Epoch:     p.Epoch,
			MaxEpochs: p.MaxEpochs,
			Loss:      p.Loss,
			BestLoss:  p.BestLoss,
		})
	})
}

func (h *Hub) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.symbol != "" && c.symbol != ev.Symbol {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.l.Debug("dropping progress event for slow client", applogger.String("symbol", ev.Symbol))
		}
	}
}

// Clients reports the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request; ?symbol=XYZ narrows the stream to one symbol.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Warn("websocket upgrade failed", applogger.Error(err))
		return
	}
	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		symbol: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol"))),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only drains control frames; clients never send data.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.l.Debug("websocket closed", applogger.Error(err))
			}
			return
		}
	}
}
