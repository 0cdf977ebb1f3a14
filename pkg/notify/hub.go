package notify

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raids-lab/teamspace/pkg/logutils"
)

const writeTimeout = 10 * time.Second

// Hub tracks open websocket connections per user. Emission is best-effort:
// a failed write drops the connection and nothing else.
type Hub struct {
	mu    sync.RWMutex
	conns map[uint]map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[uint]map[*websocket.Conn]struct{})}
}

func (h *Hub) Register(userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[userID][conn] = struct{}{}
}

func (h *Hub) Unregister(userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[userID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, userID)
		}
	}
}

// Event is the payload pushed over the websocket.
type Event struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

// EmitToUser pushes an event to every open connection of the user. No
// delivery guarantee; dead connections are dropped on write failure.
func (h *Hub) EmitToUser(userID uint, event Event) {
	h.mu.RLock()
	set := h.conns[userID]
	conns := make([]*websocket.Conn, 0, len(set))
	for conn := range set {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			h.drop(userID, conn)
			continue
		}
		if err := conn.WriteJSON(event); err != nil {
			logutils.Log.Debugf("drop dead websocket for user %d: %v", userID, err)
			h.drop(userID, conn)
		}
	}
}

func (h *Hub) EmitToUsers(userIDs []uint, event Event) {
	for _, userID := range userIDs {
		h.EmitToUser(userID, event)
	}
}

func (h *Hub) drop(userID uint, conn *websocket.Conn) {
	h.Unregister(userID, conn)
	_ = conn.Close()
}
