package eventbus

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haasonsaas/agentrt/pkg/models"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 20 * time.Second
	wsPongWait   = 45 * time.Second
)

// WSFirehoseHandler serves the /events/stream/ws alias named in spec §6:
// a websocket transport over the same firehose topic the SSE endpoint
// uses. Grounded on the teacher's ws_control_plane.go (gorilla/websocket
// Upgrader, buffered send channel drained by a dedicated write loop,
// ping/pong keepalive), trimmed to a read-only event feed — this alias
// has no client->server request frames.
type WSFirehoseHandler struct {
	Hub      *Hub
	Logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewWSFirehoseHandler builds a handler bound to hub.
func NewWSFirehoseHandler(hub *Hub, logger *slog.Logger) *WSFirehoseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSFirehoseHandler{
		Hub:    hub,
		Logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *WSFirehoseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancel := h.Hub.SubscribeFirehose()
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go h.discardReads(conn)

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := h.writeEvent(conn, evt); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// discardReads keeps the read pump alive so pong control frames are
// processed; this alias accepts no client requests.
func (h *WSFirehoseHandler) discardReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WSFirehoseHandler) writeEvent(conn *websocket.Conn, evt models.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		h.Logger.Warn("eventbus: dropping ws event after serialisation failure", "error", err, "type", evt.Type)
		return nil
	}
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
