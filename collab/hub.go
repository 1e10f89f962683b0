package collab

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Conn is one live client connection as seen by the hub. The socket.io
// binding satisfies it in production; tests use in-memory fakes.
type Conn interface {
	ID() string
	Emit(event string, args ...any) error
}

// Hub is the broadcast dispatcher: it translates inbound client events into
// registry/cache mutations and outbound fan-outs. A single mutex serializes
// event handling, so each event's mutation plus its broadcasts complete
// before the next event is processed. That total ordering by arrival is what
// the last-write-wins content semantics rest on.
type Hub struct {
	mu       sync.Mutex
	registry *Registry
	cache    *ContentCache
	conns    map[string]Conn
	sessions map[string]string // connection ID -> joined workspace ID
}

func NewHub() *Hub {
	return &Hub{
		registry: NewRegistry(),
		cache:    NewContentCache(),
		conns:    make(map[string]Conn),
		sessions: make(map[string]string),
	}
}

// Connect registers a live transport connection with the hub.
func (h *Hub) Connect(c Conn) {
	h.mu.Lock()
	h.conns[c.ID()] = c
	h.mu.Unlock()
	logrus.WithField("conn_id", c.ID()).Debug("connection registered")
}

// HandleJoin processes a join-workspace event. The caller is seeded with the
// cached document body (if any edit has been seen), then the full room,
// caller included, receives the updated member list. Connections are
// single-room: joining while already in another workspace leaves it first.
func (h *Hub) HandleJoin(connID string, datas ...any) {
	var p joinPayload
	if err := decodePayload(firstArg(datas), &p); err != nil || p.WorkspaceID == "" || p.UserID == "" {
		logrus.WithField("conn_id", connID).Debug("discarding malformed join-workspace event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var dead []string
	if prev, ok := h.sessions[connID]; ok && prev != p.WorkspaceID {
		h.registry.Leave(prev, connID)
		dead = append(dead, h.broadcastLocked(prev, "", EventUsersUpdate, h.registry.Members(prev))...)
	}

	h.registry.Join(p.WorkspaceID, connID, Participant{UserID: p.UserID, Username: p.Username})
	h.sessions[connID] = p.WorkspaceID

	logrus.WithFields(logrus.Fields{
		"conn_id":      connID,
		"workspace_id": p.WorkspaceID,
		"username":     p.Username,
	}).Info("participant joined workspace")

	if body, ok := h.cache.Get(p.WorkspaceID); ok {
		if conn, live := h.conns[connID]; live {
			if err := conn.Emit(EventContentUpdate, body); err != nil {
				dead = append(dead, connID)
			}
		}
	}

	dead = append(dead, h.broadcastLocked(p.WorkspaceID, "", EventUsersUpdate, h.registry.Members(p.WorkspaceID))...)
	h.reapLocked(dead)
}

// HandleCodeChange processes a code-change event: cache the new body, then
// rebroadcast it to every other room member. The sender is excluded to avoid
// echoing its own edit back into its editor.
func (h *Hub) HandleCodeChange(connID string, datas ...any) {
	var p struct {
		WorkspaceID string  `mapstructure:"workspaceId"`
		Content     *string `mapstructure:"content"`
	}
	if err := decodePayload(firstArg(datas), &p); err != nil || p.WorkspaceID == "" || p.Content == nil {
		logrus.WithField("conn_id", connID).Debug("discarding malformed code-change event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.cache.Set(p.WorkspaceID, *p.Content)
	dead := h.broadcastLocked(p.WorkspaceID, connID, EventContentUpdate, *p.Content)
	h.reapLocked(dead)
}

// HandleCursorMove rebroadcasts a cursor position to every other room
// member. Nothing is cached; cursor state is ephemeral.
func (h *Hub) HandleCursorMove(connID string, datas ...any) {
	var p cursorMovePayload
	if err := decodePayload(firstArg(datas), &p); err != nil || p.WorkspaceID == "" {
		logrus.WithField("conn_id", connID).Debug("discarding malformed cursor-move event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	dead := h.broadcastLocked(p.WorkspaceID, connID, EventCursorUpdate, cursorUpdate{
		Position: p.Position,
		UserID:   p.UserID,
	})
	h.reapLocked(dead)
}

// HandleLeave processes an explicit leave-workspace event. The remaining
// members receive the updated member list. The transport stays connected.
func (h *Hub) HandleLeave(connID string, datas ...any) {
	var p leavePayload
	if err := decodePayload(firstArg(datas), &p); err != nil || p.WorkspaceID == "" {
		logrus.WithField("conn_id", connID).Debug("discarding malformed leave-workspace event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.registry.Leave(p.WorkspaceID, connID)
	if h.sessions[connID] == p.WorkspaceID {
		delete(h.sessions, connID)
	}

	logrus.WithFields(logrus.Fields{
		"conn_id":      connID,
		"workspace_id": p.WorkspaceID,
	}).Info("participant left workspace")

	dead := h.broadcastLocked(p.WorkspaceID, "", EventUsersUpdate, h.registry.Members(p.WorkspaceID))
	h.reapLocked(dead)
}

// Disconnect handles a transport drop: the connection is removed from every
// room it belonged to, and each affected room's remaining members receive
// one membership update.
func (h *Hub) Disconnect(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reapLocked([]string{connID})
}

// Rooms returns the live rooms and their member counts, for the HTTP layer.
func (h *Hub) Rooms() map[string]int {
	return h.registry.Rooms()
}

// disconnectLocked removes the connection and broadcasts membership updates
// to the rooms it left. Connections whose updates could not be delivered are
// returned so the caller can clean them up in turn.
func (h *Hub) disconnectLocked(connID string) []string {
	delete(h.conns, connID)
	delete(h.sessions, connID)

	affected := h.registry.LeaveAll(connID)
	if len(affected) == 0 {
		return nil
	}
	logrus.WithFields(logrus.Fields{
		"conn_id":    connID,
		"workspaces": affected,
	}).Info("connection disconnected")

	var dead []string
	for _, workspaceID := range affected {
		dead = append(dead, h.broadcastLocked(workspaceID, "", EventUsersUpdate, h.registry.Members(workspaceID))...)
	}
	return dead
}

// broadcastLocked fans an event out to the room, skipping the excluded
// connection ID (empty string excludes nobody). A failed emit marks that
// connection dead but never aborts delivery to the rest of the room; the
// dead connection IDs are returned for cleanup once the fan-out is done.
func (h *Hub) broadcastLocked(workspaceID, except, event string, args ...any) []string {
	var dead []string
	for _, connID := range h.registry.Connections(workspaceID) {
		if connID == except {
			continue
		}
		conn, ok := h.conns[connID]
		if !ok {
			dead = append(dead, connID)
			continue
		}
		if err := conn.Emit(event, args...); err != nil {
			logrus.WithFields(logrus.Fields{
				"conn_id":      connID,
				"workspace_id": workspaceID,
				"event":        event,
			}).WithError(err).Warn("emit failed, dropping connection")
			dead = append(dead, connID)
		}
	}
	return dead
}

// reapLocked runs the disconnect path for connections whose sends failed.
// Cleanup broadcasts can themselves surface more dead connections, so this
// drains a queue until the set is stable.
func (h *Hub) reapLocked(dead []string) {
	seen := make(map[string]bool, len(dead))
	for len(dead) > 0 {
		connID := dead[0]
		dead = dead[1:]
		if seen[connID] {
			continue
		}
		seen[connID] = true
		dead = append(dead, h.disconnectLocked(connID)...)
	}
}
