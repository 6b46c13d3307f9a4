package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"yuchat/internal/auth"
	"yuchat/internal/hub"
	"yuchat/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// PresenceStore persists the online flag; the handler is its only writer.
type PresenceStore interface {
	SetOnline(ctx context.Context, id int64) error
	SetOffline(ctx context.Context, id int64, lastSeen time.Time) error
}

type Handler struct {
	Hub      *hub.Hub
	Presence PresenceStore
	Log      *zap.Logger

	WriteTimeout time.Duration
	PongWait     time.Duration
	SendQueue    int
}

// ServeHTTP upgrades the connection and registers it against the
// authenticated user. The first open connection marks the user online; the
// last closed one marks it offline with a last-seen timestamp.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	uid := auth.UIDFromContext(r.Context())
	if uid <= 0 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := hub.NewConn(uid, ws, h.SendQueue)
	first := h.Hub.Add(c)
	metrics.OnlineConns.Inc()
	if first {
		metrics.OnlineUsers.Inc()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := h.Presence.SetOnline(ctx, uid); err != nil {
			h.Log.Warn("mark online failed", zap.Int64("uid", uid), zap.Error(err))
		}
		cancel()
	}
	h.Log.Info("connection open", zap.Int64("uid", uid))

	c.TrySend([]byte(`{"ok":true}`))
	go h.writePump(c)
	go h.readPump(c)
}

func (h *Handler) onClose(c *hub.Conn) {
	last := h.Hub.Remove(c)
	metrics.OnlineConns.Dec()
	if last {
		metrics.OnlineUsers.Dec()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := h.Presence.SetOffline(ctx, c.UserID, time.Now().UTC()); err != nil {
			h.Log.Warn("mark offline failed", zap.Int64("uid", c.UserID), zap.Error(err))
		}
		cancel()
	}
	h.Log.Info("connection closed", zap.Int64("uid", c.UserID))
}

// writePump drains the bounded outbound queue; a write failure closes the
// connection, never the server.
func (h *Handler) writePump(c *hub.Conn) {
	pingPeriod := h.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.WS.Close()
	}()
	for {
		select {
		case b, ok := <-c.Out:
			_ = c.WS.SetWriteDeadline(time.Now().Add(h.WriteTimeout))
			if !ok {
				_ = c.WS.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.WS.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.WS.SetWriteDeadline(time.Now().Add(h.WriteTimeout))
			if err := c.WS.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only services pings and close frames; clients mutate state over
// the HTTP API, not the socket.
func (h *Handler) readPump(c *hub.Conn) {
	defer func() {
		h.onClose(c)
		_ = c.WS.Close()
	}()
	c.WS.SetReadLimit(16 * 1024)
	_ = c.WS.SetReadDeadline(time.Now().Add(h.PongWait))
	c.WS.SetPongHandler(func(string) error {
		return c.WS.SetReadDeadline(time.Now().Add(h.PongWait))
	})
	for {
		if _, _, err := c.WS.ReadMessage(); err != nil {
			return
		}
	}
}
