// Package livewriter streams ReportItems to connected browsers over a
// websocket, as a demo-only Writer alongside the durable CSV/Postgres
// outputs. Grounded on the teacher's cmd/server/handlers.WebSocketHub
// (register/unregister/broadcast channels, per-client send goroutine,
// ping/pong keepalive) generalized from silence events to trace items.
package livewriter

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/vitaliisemenov/methodtrace/internal/report"
	"github.com/vitaliisemenov/methodtrace/internal/reporter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Event is the wire message pushed to every connected client.
type Event struct {
	Kind string      `json:"kind"` // "start", "item", "summary", "error"
	Item *report.Item `json:"item,omitempty"`
	Line string      `json:"line,omitempty"`
}

// Hub manages websocket clients and broadcasts Events to them, rate
// limited so a bursty trace can't overwhelm a slow browser tab.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan Event
	register   chan *websocket.Conn
	unregister chan *websocket.Conn

	mu     sync.RWMutex
	limit  *rate.Limiter
	wto    time.Duration
	logger *slog.Logger
}

// NewHub constructs a Hub. ratePerSecond/burst bound how many Events per
// second are forwarded to clients; excess events are dropped, not
// queued, so the live view degrades gracefully under load.
func NewHub(ratePerSecond float64, burst int, writeTimeout time.Duration, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		limit:      rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		wto:        writeTimeout,
		logger:     logger.With("component", "live_hub"),
	}
}

// Run drives the hub's register/unregister/broadcast loop until ctx is
// canceled.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("live hub starting")
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()
		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()
		case evt := <-h.broadcast:
			if !h.limit.Allow() {
				continue
			}
			h.mu.RLock()
			for conn := range h.clients {
				go h.send(conn, evt)
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) send(conn *websocket.Conn, evt Event) {
	conn.SetWriteDeadline(time.Now().Add(h.wto))
	if err := conn.WriteJSON(evt); err != nil {
		h.logger.Debug("live client write failed, unregistering", "error", err)
		h.unregister <- conn
	}
}

// ServeHTTP upgrades the request to a websocket and registers the
// connection for broadcast; it never expects inbound client messages
// beyond close/ping.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	h.register <- conn
	go h.readPump(conn)
}

func (h *Hub) readPump(conn *websocket.Conn) {
	defer func() { h.unregister <- conn }()
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
}

func (h *Hub) publish(evt Event) {
	select {
	case h.broadcast <- evt:
	default:
		h.logger.Warn("live hub broadcast channel full, dropping event", "kind", evt.Kind)
	}
}

// Writer adapts a Hub into a reporter.Writer: every lifecycle call is
// forwarded to connected browsers and nothing is buffered or persisted.
type Writer struct {
	hub *Hub
}

// NewWriter wraps hub as a Writer registrable via Reporter.AddOutput.
func NewWriter(hub *Hub) *Writer {
	return &Writer{hub: hub}
}

func (w *Writer) SetParameters(reporter.Params) error { return nil }
func (w *Writer) Initialize(string) error              { return nil }

func (w *Writer) WriteStart(item report.Item) error {
	w.hub.publish(Event{Kind: "start", Item: cloneItem(item)})
	return nil
}

func (w *Writer) WriteItem(item report.Item) error {
	w.hub.publish(Event{Kind: "item", Item: cloneItem(item)})
	return nil
}

func (w *Writer) WriteSummary(line string) error {
	w.hub.publish(Event{Kind: "summary", Line: line})
	return nil
}

func (w *Writer) WriteError(err error) error {
	w.hub.publish(Event{Kind: "error", Line: err.Error()})
	return nil
}

func (w *Writer) SetLimitOptions(reporter.LimitOptions) {}
func (w *Writer) GetLimitOptions() reporter.LimitOptions { return reporter.LimitOptions{} }
func (w *Writer) Flush() error                           { return nil }
func (w *Writer) Close() error                           { return nil }

// cloneItem returns a pointer copy so the JSON encoder in the
// broadcasting goroutine never races the reporter's own use of item.
func cloneItem(item report.Item) *report.Item {
	cp := item
	return &cp
}
