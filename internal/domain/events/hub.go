package events

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"phonestorage/internal/pkg/clock"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
	sendBuffer = 64
)

const (
	PairingCreated   = "pairing_created"
	PairingConfirmed = "pairing_confirmed"
	PairingRevoked   = "pairing_revoked"
	DeviceSynced     = "device_synced"
	DevicesCleaned   = "devices_cleaned"
	FileUploaded     = "file_uploaded"
	SessionGranted   = "session_granted"
)

// Event is pushed to every connected admin page. Events never carry pairing
// or session tokens; devices are identified by their public device id.
type Event struct {
	Type     string    `json:"type"`
	DeviceID string    `json:"device_id,omitempty"`
	Payload  any       `json:"payload,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher is what domain handlers depend on.
type Publisher interface {
	Publish(Event)
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to websocket subscribers. It has no goroutine of its
// own: each subscriber's pumps run inside the request that opened it.
type Hub struct {
	mu       sync.RWMutex
	subs     map[*subscriber]struct{}
	origins  map[string]bool
	upgrader websocket.Upgrader
	clock    clock.Clock
	log      zerolog.Logger
}

// NewHub accepts websocket upgrades from pages served by this host (any
// scheme) and from the listed origins.
func NewHub(clk clock.Clock, allowedOrigins []string, log zerolog.Logger) *Hub {
	if clk == nil {
		clk = clock.Real()
	}
	h := &Hub{
		subs:    make(map[*subscriber]struct{}),
		origins: make(map[string]bool, len(allowedOrigins)),
		clock:   clk,
		log:     log.With().Str("component", "events").Logger(),
	}
	for _, o := range allowedOrigins {
		if o != "" {
			h.origins[o] = true
		}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin lets non-browser clients (no Origin header) through.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if h.origins[origin] {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) register(s *subscriber) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.send)
	}
}

// Publish never blocks: a subscriber whose buffer is full misses the event.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = h.clock.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn().Err(err).Str("type", ev.Type).Msg("event marshal failed")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		select {
		case s.send <- data:
		default:
		}
	}
}

// Serve upgrades the request and blocks until the client disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("origin", r.Header.Get("Origin")).Msg("websocket upgrade failed")
		return
	}

	s := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(s)
	h.log.Debug().Str("remote", r.RemoteAddr).Msg("admin feed connected")

	done := make(chan struct{})
	go func() {
		h.writePump(s)
		close(done)
	}()
	h.readPump(s)
	<-done
	h.log.Debug().Str("remote", r.RemoteAddr).Msg("admin feed disconnected")
}

// readPump only drains control frames; clients do not send commands.
func (h *Hub) readPump(s *subscriber) {
	defer func() {
		h.unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMsgSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Msg("admin feed read error")
			}
			return
		}
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
