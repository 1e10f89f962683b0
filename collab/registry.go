package collab

import "sync"

// Participant is the identity a client asserts when joining a workspace.
// It is not authenticated here; authorization happens at the HTTP boundary
// before a client ever has a workspace ID to join with.
type Participant struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// room tracks the connections currently joined to one workspace. Order
// preserves join time so membership broadcasts are stable.
type room struct {
	members map[string]Participant
	order   []string
}

// Registry maps workspace IDs to their live members. Rooms exist from the
// first join and are pruned as soon as the last member leaves, so the map
// does not grow across workspace churn.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

// Join adds the connection to the workspace's room, creating the room if
// needed. Rejoining with the same connection ID replaces the participant
// record in place rather than duplicating it.
func (r *Registry) Join(workspaceID, connID string, p Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[workspaceID]
	if !ok {
		rm = &room{members: make(map[string]Participant)}
		r.rooms[workspaceID] = rm
	}
	if _, exists := rm.members[connID]; !exists {
		rm.order = append(rm.order, connID)
	}
	rm.members[connID] = p
}

// Leave removes the connection from the workspace's room. Leaving a room or
// workspace the connection never joined is a no-op. Emptied rooms are pruned.
func (r *Registry) Leave(workspaceID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(workspaceID, connID)
}

// LeaveAll removes the connection from every room it belongs to and returns
// the affected workspace IDs. Used on transport disconnect, where the
// dropping client cannot name its workspace.
func (r *Registry) LeaveAll(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var affected []string
	for workspaceID, rm := range r.rooms {
		if _, ok := rm.members[connID]; ok {
			affected = append(affected, workspaceID)
		}
	}
	for _, workspaceID := range affected {
		r.leaveLocked(workspaceID, connID)
	}
	return affected
}

func (r *Registry) leaveLocked(workspaceID, connID string) bool {
	rm, ok := r.rooms[workspaceID]
	if !ok {
		return false
	}
	if _, ok := rm.members[connID]; !ok {
		return false
	}
	delete(rm.members, connID)
	for i, id := range rm.order {
		if id == connID {
			rm.order = append(rm.order[:i], rm.order[i+1:]...)
			break
		}
	}
	if len(rm.members) == 0 {
		delete(r.rooms, workspaceID)
	}
	return true
}

// Members returns the room's participants in join order. Unknown workspaces
// yield an empty slice, not an error.
func (r *Registry) Members(workspaceID string) []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[workspaceID]
	if !ok {
		return []Participant{}
	}
	members := make([]Participant, 0, len(rm.order))
	for _, connID := range rm.order {
		members = append(members, rm.members[connID])
	}
	return members
}

// Connections returns the connection IDs in the room, in join order.
func (r *Registry) Connections(workspaceID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[workspaceID]
	if !ok {
		return nil
	}
	conns := make([]string, len(rm.order))
	copy(conns, rm.order)
	return conns
}

// Rooms returns every live room and its member count.
func (r *Registry) Rooms() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make(map[string]int, len(r.rooms))
	for workspaceID, rm := range r.rooms {
		rooms[workspaceID] = len(rm.members)
	}
	return rooms
}
