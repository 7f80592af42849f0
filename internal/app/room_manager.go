package app

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/beatroom/beatroom/internal/core"
	"github.com/beatroom/beatroom/internal/domain"
)

// RoomManager owns the registry of live rooms. Creation is explicit: a join
// on an unknown id fails instead of squatting a fresh room on that id. Both
// joins and departures run under the manager lock, so a join racing the
// teardown of an emptied room either lands on a live room or observes
// ErrRoomNotFound, never a half-destroyed one.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService
}

func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[domain.RoomID]core.RoomService)}
}

func (m *RoomManager) CreateRoom(owner domain.UserID) core.RoomService {
	room := core.NewRoomService(&domain.Room{
		ID:        domain.RoomID(uuid.NewString()),
		OwnerID:   owner,
		CreatedAt: time.Now(),
	})
	m.mu.Lock()
	m.rooms[room.ID()] = room
	m.mu.Unlock()
	log.Info().Str("module", "app.rooms").Str("room", string(room.ID())).
		Str("owner", string(owner)).Msg("room created")
	return room
}

func (m *RoomManager) GetRoom(id domain.RoomID) (core.RoomService, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[id]
	return room, ok
}

// JoinRoom adds the session to the room, atomically with respect to room
// teardown.
func (m *RoomManager) JoinRoom(id domain.RoomID, sid core.SessionID, ms core.MemberSession) (core.RoomService, domain.Collaborator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, domain.Collaborator{}, ErrRoomNotFound
	}
	collab := room.AddMember(sid, ms)
	return room, collab, nil
}

// LeaveRoom removes the session and destroys the room when it empties. The
// empty-room sweep here is the only GC mechanism; there is no idle timeout.
func (m *RoomManager) LeaveRoom(id domain.RoomID, sid core.SessionID) (collab domain.Collaborator, removed, destroyed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return domain.Collaborator{}, false, false
	}
	collab, remaining, removed := room.RemoveMember(sid)
	if removed && remaining == 0 {
		delete(m.rooms, id)
		destroyed = true
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room destroyed (empty)")
	}
	return collab, removed, destroyed
}

func (m *RoomManager) List() []core.RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(m.rooms))
	for id, r := range m.rooms {
		out = append(out, core.RoomInfo{ID: id, MemberCount: r.MemberCount(), CreatedAt: r.CreatedAt()})
	}
	return out
}

func (m *RoomManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
