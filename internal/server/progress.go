package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ProgressEvent is pushed to the session's websocket subscribers once per
// completed variation, in index order.
type ProgressEvent struct {
	Type      string  `json:"type"`
	Index     int     `json:"index"`
	Total     int     `json:"total"`
	Fraction  float64 `json:"fraction"`
	OK        bool    `json:"ok"`
	Seed      int64   `json:"seed"`
	ElapsedMS int64   `json:"elapsed_ms"`
}

type progressClient struct {
	conn *websocket.Conn
	send chan []byte
}

// progressHub fans generation progress out to the websocket subscribers of
// each session. Events for sessions with no subscribers are dropped; the
// batch result itself still carries every outcome.
type progressHub struct {
	mu       sync.RWMutex
	clients  map[string]map[*progressClient]bool
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func newProgressHub(logger *zap.Logger) *progressHub {
	return &progressHub{
		clients: make(map[string]map[*progressClient]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.Named("progress"),
	}
}

func (h *progressHub) add(sessionID string, c *progressClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = make(map[*progressClient]bool)
	}
	h.clients[sessionID][c] = true
}

func (h *progressHub) remove(sessionID string, c *progressClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[sessionID]; ok {
		if set[c] {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, sessionID)
		}
	}
}

// publish sends an event to every subscriber of the session. Slow
// subscribers are skipped rather than blocking the generation loop.
func (h *progressHub) publish(sessionID string, event ProgressEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal progress event", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[sessionID] {
		select {
		case c.send <- data:
		default:
		}
	}
}

// handleProgress upgrades the connection and streams the session's progress
// events until the peer disconnects.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	sid, cookie := s.sessionFromRequest(r)
	// Upgrade hijacks the connection and writes the 101 response itself,
	// so a freshly minted session cookie must ride on the handshake
	// headers rather than on w.
	var header http.Header
	if cookie != nil {
		header = http.Header{"Set-Cookie": {cookie.String()}}
	}
	conn, err := s.hub.upgrader.Upgrade(w, r, header)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &progressClient{conn: conn, send: make(chan []byte, 16)}
	s.hub.add(sid, client)
	s.logger.Debug("progress subscriber connected", zap.String("session_id", sid))

	// Writer: pump queued events to the peer.
	go func() {
		for data := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				break
			}
		}
		_ = conn.Close()
	}()

	// Reader: only to detect disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.remove(sid, client)
	_ = conn.Close()
	s.logger.Debug("progress subscriber disconnected", zap.String("session_id", sid))
}
