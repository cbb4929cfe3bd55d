package dashboard

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const streamWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // read-only public data
	},
}

// handleEventStream upgrades to a websocket and writes each newly indexed
// event as one JSON text frame until the client goes away.
func (h *Handler) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if h.stream == nil {
		h.writeError(w, http.StatusNotFound, "event stream is not enabled")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[Stream] WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events := h.stream.Subscribe()
	defer h.stream.Unsubscribe(events)

	// Reads only detect the client closing the connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, event.Raw); err != nil {
				h.logger.Printf("[Stream] Write error: %v", err)
				return
			}
		}
	}
}
