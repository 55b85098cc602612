package http

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"speech-dictation-service/internal/observability/logging"
	"speech-dictation-service/internal/service/session"
)

// hub fans session snapshots out to every connected WebSocket client. A
// client that fails a write is dropped; it can reconnect and receive the
// current state again.
type hub struct {
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}

	// Serializes writes; snapshots may arrive from several goroutines and
	// gorilla connections allow one concurrent writer.
	wmu sync.Mutex
}

func newHub() *hub {
	return &hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The service fronts a local dictation UI; origin checks are
			// the deployment proxy's job.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:   logging.WithComponent("events"),
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (h *hub) upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	h.log.Info().Int("clients", n).Msg("event subscriber connected")
	return conn, nil
}

// serve blocks reading the connection until the peer goes away. Incoming
// frames are discarded; the stream is one-way.
func (h *hub) serve(conn *websocket.Conn) {
	defer h.drop(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	n := len(h.conns)
	h.mu.Unlock()
	_ = conn.Close()
	h.log.Info().Int("clients", n).Msg("event subscriber disconnected")
}

func (h *hub) send(conn *websocket.Conn, snap session.Snapshot) {
	h.wmu.Lock()
	err := conn.WriteJSON(snap)
	h.wmu.Unlock()
	if err != nil {
		h.drop(conn)
	}
}

// broadcast is registered as the controller's observer.
func (h *hub) broadcast(snap session.Snapshot) {
	h.mu.Lock()
	targets := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	for _, conn := range targets {
		h.send(conn, snap)
	}
}
