package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kwv/roomplan/plan"
)

// Send/receive timing and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 16 // replace commands carry a full furniture list
)

// wsEnvelope wraps every message sent to websocket clients
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConnect streams session snapshots to the client and applies the
// commands it sends (same JSON shape as the MQTT command topic)
func (h *Handler) wsConnect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorw("ws_upgrade_failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	updates, unsubscribe := h.session.Subscribe()
	defer unsubscribe()

	// Command errors are answered from the writer loop; the connection
	// allows only one concurrent writer.
	replies := make(chan wsEnvelope, 4)
	done := make(chan struct{})
	go h.startReader(conn, replies, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := writeEnvelope(conn, wsEnvelope{Type: "snapshot", Data: h.session.Snapshot()}); err != nil {
		h.log.Infow("ws_write_failed_initial", "err", err)
		return
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEnvelope(conn, wsEnvelope{Type: "snapshot", Data: snap}); err != nil {
				h.log.Infow("ws_write_failed", "err", err)
				return
			}
		case reply := <-replies:
			if err := writeEnvelope(conn, reply); err != nil {
				h.log.Infow("ws_write_failed", "err", err)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.Infow("ws_ping_failed", "err", err)
				return
			}
		}
	}
}

// startReader applies incoming commands until the connection closes
func (h *Handler) startReader(conn *websocket.Conn, replies chan<- wsEnvelope, done chan<- struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			h.log.Debugw("ws_read_closed", "err", err)
			return
		}

		cmd, err := plan.ParseCommand(data)
		if err == nil {
			err = cmd.Apply(h.session)
		}
		if err != nil {
			select {
			case replies <- wsEnvelope{Type: "error", Error: err.Error()}:
			default:
				h.log.Debugw("ws_reply_dropped", "err", err)
			}
		}
	}
}

func writeEnvelope(conn *websocket.Conn, env wsEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}
