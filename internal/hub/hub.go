package hub

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is one live connection. Out is a bounded outbound queue; a full queue
// means the reader is too slow and the payload is dropped rather than
// blocking the broadcaster.
type Conn struct {
	UserID int64
	WS     *websocket.Conn
	Out    chan []byte
}

func NewConn(userID int64, ws *websocket.Conn, queue int) *Conn {
	if queue <= 0 {
		queue = 256
	}
	return &Conn{UserID: userID, WS: ws, Out: make(chan []byte, queue)}
}

// TrySend queues the payload without blocking. Returns false when dropped.
func (c *Conn) TrySend(b []byte) bool {
	select {
	case c.Out <- b:
		return true
	default:
		return false
	}
}

// Hub maps users to their live connections. A user may hold several
// connections at once; every one of them receives that user's events.
type Hub struct {
	mu    sync.RWMutex
	conns map[int64]map[*Conn]struct{}
}

func New() *Hub {
	return &Hub{conns: make(map[int64]map[*Conn]struct{})}
}

// Add registers the connection. Returns true when this is the user's first
// live connection, i.e. the user just came online.
func (h *Hub) Add(c *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[c.UserID]
	if !ok {
		set = make(map[*Conn]struct{})
		h.conns[c.UserID] = set
	}
	set[c] = struct{}{}
	return len(set) == 1
}

// Remove unregisters the connection. Returns true when the user has no live
// connections left, i.e. the user just went offline.
func (h *Hub) Remove(c *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[c.UserID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.conns, c.UserID)
		return true
	}
	return false
}

// SendToUser queues the payload on every live connection of the user.
// Returns queued and dropped counts; zero/zero means the user is offline.
func (h *Hub) SendToUser(uid int64, b []byte) (sent, dropped int) {
	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.conns[uid]))
	for c := range h.conns[uid] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		if c.TrySend(b) {
			sent++
		} else {
			dropped++
		}
	}
	return sent, dropped
}

// Online reports whether the user has at least one live connection.
func (h *Hub) Online(uid int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[uid]) > 0
}

// Len is the total number of live connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.conns {
		n += len(set)
	}
	return n
}
