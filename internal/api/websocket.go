package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/winstonhome/winston/internal/infrastructure/config"
	"github.com/winstonhome/winston/internal/infrastructure/logging"
)

// Feed message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// feedBuffer is how many events may queue for one slow client before
// further events to it are dropped.
const feedBuffer = 256

var errBadPattern = errors.New("event pattern must be a name, a prefix ending in \".*\", or \"*\"")

// WSMessage is one frame in either direction. Events names the patterns
// of a subscribe or unsubscribe request.
type WSMessage struct {
	Type      string   `json:"type"`
	ID        string   `json:"id,omitempty"`
	Events    []string `json:"events,omitempty"`
	EventType string   `json:"event_type,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
	Payload   any      `json:"payload,omitempty"`
}

// Hub fans Winston events out to WebSocket clients. A client only gets
// events matching one of its patterns: an exact name such as
// "trigger.fired", a prefix such as "channel.*", or "*".
type Hub struct {
	logger *logging.Logger
	timing feedTiming

	mu      sync.RWMutex
	clients map[*subscriber]struct{}

	dropped atomic.Uint64
}

type feedTiming struct {
	readLimit int64
	pingEvery time.Duration
	pongWait  time.Duration
}

// subscriber is one connected client. send is closed exactly once, by
// shutdown, and never written after that.
type subscriber struct {
	hub  *Hub
	conn *websocket.Conn

	mu       sync.Mutex
	send     chan []byte
	patterns map[string]struct{}
	closed   bool
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// NewHub creates a hub. Zero timing values in cfg get defaults.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	t := feedTiming{
		readLimit: 8192,
		pingEvery: 30 * time.Second,
		pongWait:  10 * time.Second,
	}
	if cfg.MaxMessageSize > 0 {
		t.readLimit = int64(cfg.MaxMessageSize)
	}
	if cfg.PingInterval > 0 {
		t.pingEvery = time.Duration(cfg.PingInterval) * time.Second
	}
	if cfg.PongTimeout > 0 {
		t.pongWait = time.Duration(cfg.PongTimeout) * time.Second
	}
	return &Hub{
		logger:  logger,
		timing:  t,
		clients: make(map[*subscriber]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*subscriber]struct{})
	h.mu.Unlock()

	for s := range clients {
		s.shutdown()
		if s.conn != nil {
			s.conn.Close()
		}
	}
}

func (h *Hub) register(s *subscriber) {
	h.mu.Lock()
	h.clients[s] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	delete(h.clients, s)
	n := len(h.clients)
	h.mu.Unlock()
	s.shutdown()
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// Broadcast sends an event to every client with a matching pattern.
// Clients whose buffer is full miss the event; see Dropped.
func (h *Hub) Broadcast(event string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to encode websocket event", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*subscriber, 0, len(h.clients))
	for s := range h.clients {
		clients = append(clients, s)
	}
	h.mu.RUnlock()

	for _, s := range clients {
		if s.wants(event) && !s.deliver(data) {
			h.dropped.Add(1)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many events were not delivered to slow clients.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// handleWebSocket upgrades the connection. The optional events query
// parameter subscribes up front, e.g. ?events=channel.*,trigger.fired.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	var initial []string
	if q := r.URL.Query().Get("events"); q != "" {
		initial = strings.Split(q, ",")
	}
	for i, p := range initial {
		initial[i] = strings.TrimSpace(p)
		if err := checkPattern(initial[i]); err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("events: %q: %v", initial[i], err))
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := newSubscriber(s.hub, conn)
	sub.subscribe(initial)
	s.hub.register(sub)

	go sub.writeLoop()
	go sub.readLoop()
}

func newSubscriber(h *Hub, conn *websocket.Conn) *subscriber {
	return &subscriber{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, feedBuffer),
		patterns: make(map[string]struct{}),
	}
}

// checkPattern accepts "*", "prefix.*" or a plain event name.
func checkPattern(p string) error {
	switch {
	case p == "", strings.Count(p, "*") > 1:
		return errBadPattern
	case p == "*":
		return nil
	case strings.Contains(p, "*") && (!strings.HasSuffix(p, ".*") || len(p) < 3):
		return errBadPattern
	}
	return nil
}

func matchPattern(pattern, event string) bool {
	if pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(event, prefix)
	}
	return pattern == event
}

func (s *subscriber) wants(event string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := range s.patterns {
		if matchPattern(p, event) {
			return true
		}
	}
	return false
}

func (s *subscriber) subscribe(patterns []string) {
	s.mu.Lock()
	for _, p := range patterns {
		s.patterns[p] = struct{}{}
	}
	s.mu.Unlock()
}

func (s *subscriber) unsubscribe(patterns []string) {
	s.mu.Lock()
	for _, p := range patterns {
		delete(s.patterns, p)
	}
	s.mu.Unlock()
}

// deliver queues data without blocking. It reports false if the client
// is gone or its buffer is full.
func (s *subscriber) deliver(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *subscriber) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

func (s *subscriber) readLoop() {
	defer func() {
		s.hub.unregister(s)
		s.conn.Close()
	}()

	t := s.hub.timing
	extend := func() error {
		return s.conn.SetReadDeadline(time.Now().Add(t.pingEvery + t.pongWait))
	}
	s.conn.SetReadLimit(t.readLimit)
	extend() //nolint:errcheck // a failed deadline surfaces on the next read
	s.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Browsers that ignore protocol pings keep the feed open by talking.
		extend() //nolint:errcheck // as above
		s.handle(data)
	}
}

func (s *subscriber) writeLoop() {
	t := s.hub.timing
	ticker := time.NewTicker(t.pingEvery)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck // closing anyway
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(t.pongWait)) //nolint:errcheck // write fails instead
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(t.pongWait)) //nolint:errcheck // write fails instead
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle answers one client frame.
func (s *subscriber) handle(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.reply("", WSTypeError, map[string]string{"message": "invalid JSON message"})
		return
	}

	switch msg.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		for _, p := range msg.Events {
			if err := checkPattern(p); err != nil {
				s.reply(msg.ID, WSTypeError, map[string]string{"message": fmt.Sprintf("%q: %v", p, err)})
				return
			}
		}
		if msg.Type == WSTypeSubscribe {
			s.subscribe(msg.Events)
			s.reply(msg.ID, WSTypeResponse, map[string]any{"subscribed": msg.Events})
		} else {
			s.unsubscribe(msg.Events)
			s.reply(msg.ID, WSTypeResponse, map[string]any{"unsubscribed": msg.Events})
		}
	case WSTypePing:
		s.reply(msg.ID, WSTypePong, nil)
	default:
		s.reply(msg.ID, WSTypeError, map[string]string{"message": "unknown message type: " + msg.Type})
	}
}

func (s *subscriber) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	s.deliver(data)
}
