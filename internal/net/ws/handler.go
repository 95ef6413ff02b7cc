package ws

import (
	"errors"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"arena/server/internal/hub"
	"arena/server/internal/net/proto"
	"arena/server/internal/telemetry"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	maxMessageSize = 4096
)

type HandlerConfig struct {
	Logger telemetry.Logger
}

// Handler upgrades requests to websocket sessions attached to the hub.
type Handler struct {
	hub      *hub.Hub
	logger   telemetry.Logger
	upgrader websocket.Upgrader
}

func NewHandler(h *hub.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NopLogger()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:      h,
		logger:   logger,
		upgrader: upgrader,
	}
}

// Handle accepts a connection. The optional codec query parameter selects
// the wire codec; json is the default.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	codec, err := proto.CodecByName(r.URL.Query().Get("codec"))
	if err != nil {
		nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[ws] upgrade failed: %v", err)
		return
	}

	session, err := h.hub.Join(codec)
	if err != nil {
		h.logger.Printf("[ws] %v", err)
		message := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy")
		conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
		conn.Close()
		return
	}

	h.Serve(session, conn)
}

// Serve pumps frames in both directions until the connection fails or the
// session is closed.
func (h *Handler) Serve(session *hub.Session, conn *websocket.Conn) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(session, conn)
	}()

	reason := h.readLoop(session, conn)
	h.hub.Leave(session, reason)
	<-done
	conn.Close()
}

func (h *Handler) readLoop(session *hub.Session, conn *websocket.Conn) string {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	codec := session.Codec()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "closed"
			}
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				return "timeout"
			}
			return "read error"
		}

		msg, err := codec.Decode(payload)
		if err != nil {
			h.logger.Printf("[ws] discarding malformed message from %s: %v", session.ID(), err)
			continue
		}
		h.hub.HandleMessage(session, msg)
	}
}

func (h *Handler) writeLoop(session *hub.Session, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-session.Frames():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			kind := websocket.TextMessage
			if frame.Binary {
				kind = websocket.BinaryMessage
			}
			if err := conn.WriteMessage(kind, frame.Data); err != nil {
				h.logger.Printf("[ws] failed to send update to %s: %v", session.ID(), err)
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
