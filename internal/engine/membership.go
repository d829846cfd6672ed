package engine

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/studio3d/scenesync/internal/identity"
	"github.com/studio3d/scenesync/internal/models"
)

// State is the per-room membership lifecycle.
type State int

const (
	StateNotJoined State = iota
	StateJoining
	StateJoined
	StateLeaving
)

func (s State) String() string {
	switch s {
	case StateJoining:
		return "joining"
	case StateJoined:
		return "joined"
	case StateLeaving:
		return "leaving"
	default:
		return "not-joined"
	}
}

// Membership drives the client side of the room protocol: it joins when
// connection, identity and a requested room line up, guards against
// duplicate joins per (room, connection id), re-joins exactly once
// after a reconnect, and keeps a local presence cache per room.
//
// Leave is idempotent and is expected to be attempted from multiple
// independent triggers (teardown and unload paths), since any single
// trigger may fail to fire depending on how the session ends.
type Membership struct {
	mu    sync.Mutex
	conn  Connection
	ident identity.Provider

	requestedRoom string
	state         State
	joinedRoom    string
	joinedConnID  string
	selfID        string

	roster map[string][]models.RoomUser // roomID -> occupants excluding self

	// OnRosterChange, when set, is invoked after every presence update.
	OnRosterChange func(roomID string, users []models.RoomUser)
}

func NewMembership(conn Connection, ident identity.Provider) *Membership {
	return &Membership{
		conn:   conn,
		ident:  ident,
		roster: make(map[string][]models.RoomUser),
	}
}

// Bind wires the membership manager into the connection's presence
// events and connectivity signal.
func (m *Membership) Bind(conn *Manager) {
	conn.OnStatus(m.HandleConnectionStatus)
	conn.On(models.EventRoomUsers, func(data json.RawMessage) {
		var payload models.RoomUsersPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return
		}
		m.HandleRoomUsers(payload)
	})
	conn.On(models.EventUserJoined, func(data json.RawMessage) {
		var payload models.PresencePayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return
		}
		m.HandleUserJoined(payload)
	})
	conn.On(models.EventUserLeft, func(data json.RawMessage) {
		var payload models.PresencePayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return
		}
		m.HandleUserLeft(payload)
	})
}

func (m *Membership) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Roster returns the cached presence list for a room, self excluded.
func (m *Membership) Roster(roomID string) []models.RoomUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.RoomUser(nil), m.roster[roomID]...)
}

// RequestRoom records the room the route/UI wants and attempts to join.
// Switching rooms leaves the previous one first and clears its presence
// cache immediately, so stale occupants never leak into the new room.
func (m *Membership) RequestRoom(roomID string) {
	m.mu.Lock()
	if m.requestedRoom != "" && m.requestedRoom != roomID {
		if m.state == StateJoined || m.state == StateJoining {
			m.leaveLocked()
		}
		delete(m.roster, m.requestedRoom)
	}
	m.requestedRoom = roomID
	m.mu.Unlock()

	m.TryJoin()
}

// TryJoin emits joinRoom when all preconditions hold: a requested room,
// available identity, a live connection, and no prior join for the same
// (room, connection id). Safe to call repeatedly; at most one join is
// emitted per connection id.
func (m *Membership) TryJoin() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.requestedRoom == "" {
		return
	}
	id, ok := m.ident.Identity()
	if !ok {
		log.Printf("[Membership] Identity not ready, deferring join for room %s", m.requestedRoom)
		return
	}
	if !m.conn.Connected() {
		log.Printf("[Membership] Connection not ready, deferring join for room %s", m.requestedRoom)
		return
	}

	connID := m.conn.ConnectionID()
	if (m.state == StateJoined || m.state == StateJoining) &&
		m.joinedRoom == m.requestedRoom && m.joinedConnID == connID {
		return
	}

	m.state = StateJoining
	payload := models.JoinRoomPayload{
		RoomID:   m.requestedRoom,
		UserID:   id.UserID,
		UserName: id.UserName,
	}
	if err := m.conn.Emit(models.EventJoinRoom, payload); err != nil {
		log.Printf("[Membership] joinRoom emit failed for room %s: %v", m.requestedRoom, err)
		m.state = StateNotJoined
		return
	}

	// Fire-and-forget: no transport ack. The server's roomUsers reply
	// confirms the join when it arrives.
	m.state = StateJoined
	m.joinedRoom = m.requestedRoom
	m.joinedConnID = connID
	m.selfID = id.UserID
	log.Printf("[Membership] Joined room %s as %s", m.joinedRoom, id.UserName)
}

// Leave emits leaveRoom for the current room. Idempotent: extra calls
// after the first are no-ops, so both the unload path and component
// teardown may invoke it safely.
func (m *Membership) Leave() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked()
}

func (m *Membership) leaveLocked() {
	if m.state != StateJoined && m.state != StateJoining {
		return
	}
	m.state = StateLeaving

	id, ok := m.ident.Identity()
	if ok {
		payload := models.JoinRoomPayload{
			RoomID:   m.joinedRoom,
			UserID:   id.UserID,
			UserName: id.UserName,
		}
		// Attempted even when the transport looks down; leave is
		// idempotent server-side.
		if err := m.conn.Emit(models.EventLeaveRoom, payload); err != nil {
			log.Printf("[Membership] leaveRoom emit failed for room %s: %v", m.joinedRoom, err)
		}
	}

	delete(m.roster, m.joinedRoom)
	log.Printf("[Membership] Left room %s", m.joinedRoom)
	m.state = StateNotJoined
	m.joinedRoom = ""
	m.joinedConnID = ""
}

// HandleConnectionStatus reacts to connectivity changes. A reconnect
// carries a fresh connection id, which clears the duplicate-join guard
// so exactly one new joinRoom goes out.
func (m *Membership) HandleConnectionStatus(connected bool) {
	m.mu.Lock()
	if m.state == StateJoined || m.state == StateJoining {
		m.state = StateNotJoined
		m.joinedConnID = ""
		m.joinedRoom = ""
	}
	m.mu.Unlock()

	if connected {
		m.TryJoin()
	}
}

// HandleRoomUsers ingests the private snapshot sent to the joining
// client.
func (m *Membership) HandleRoomUsers(payload models.RoomUsersPayload) {
	m.mu.Lock()
	roomID := m.joinedRoom
	if roomID == "" {
		roomID = m.requestedRoom
	}
	m.setRosterLocked(roomID, payload.Users)
	m.mu.Unlock()
	m.notifyRoster(roomID)
}

// HandleUserJoined ingests a join broadcast; the attached snapshot wins
// over incremental bookkeeping when present.
func (m *Membership) HandleUserJoined(payload models.PresencePayload) {
	m.mu.Lock()
	roomID := m.joinedRoom
	if len(payload.Users) > 0 {
		m.setRosterLocked(roomID, payload.Users)
	} else if payload.UserID != m.selfID {
		m.roster[roomID] = append(m.roster[roomID],
			models.RoomUser{UserID: payload.UserID, UserName: payload.UserName})
	}
	m.mu.Unlock()
	m.notifyRoster(roomID)
}

// HandleUserLeft ingests a leave broadcast.
func (m *Membership) HandleUserLeft(payload models.PresencePayload) {
	m.mu.Lock()
	roomID := m.joinedRoom
	if payload.Users != nil {
		m.setRosterLocked(roomID, payload.Users)
	} else {
		users := m.roster[roomID]
		for i, u := range users {
			if u.UserID == payload.UserID {
				m.roster[roomID] = append(users[:i], users[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()
	m.notifyRoster(roomID)
}

func (m *Membership) setRosterLocked(roomID string, users []models.RoomUser) {
	filtered := make([]models.RoomUser, 0, len(users))
	for _, u := range users {
		if u.UserID == m.selfID {
			continue
		}
		filtered = append(filtered, u)
	}
	m.roster[roomID] = filtered
}

func (m *Membership) notifyRoster(roomID string) {
	if m.OnRosterChange == nil {
		return
	}
	m.OnRosterChange(roomID, m.Roster(roomID))
}
