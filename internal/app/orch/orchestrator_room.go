package orch

import (
	"github.com/rs/zerolog/log"

	"github.com/beatroom/beatroom/internal/core"
	"github.com/beatroom/beatroom/internal/domain"
	"github.com/beatroom/beatroom/internal/metrics"
)

// CreateRoom creates a room owned by the caller and joins it. Creation is
// always explicit; join never creates.
func (o *Orchestrator) CreateRoom(sid core.SessionID) (core.RoomState, domain.Collaborator, error) {
	user, ok := o.Registry.User(sid)
	if !ok {
		return core.RoomState{}, domain.Collaborator{}, ErrUnauthorized
	}
	room := o.Rooms.CreateRoom(user.ID)
	metrics.ActiveRooms.Set(float64(o.Rooms.Count()))
	return o.Join(sid, room.ID())
}

// Join adds the caller to the room and returns the full room state for the
// joiner. A session already in another room leaves it first; one room per
// connection is the steady state.
func (o *Orchestrator) Join(sid core.SessionID, roomID domain.RoomID) (core.RoomState, domain.Collaborator, error) {
	sess, ok := o.Registry.Session(sid)
	if !ok {
		return core.RoomState{}, domain.Collaborator{}, ErrUnauthorized
	}
	if prev, ok := o.Registry.RoomOf(sid); ok && prev != roomID {
		if left, _, destroyed, lerr := o.Leave(sid, prev); lerr == nil && !destroyed {
			o.notifyLeave(prev, left)
		}
	}
	room, collab, err := o.Rooms.JoinRoom(roomID, sid, sess)
	if err != nil {
		return core.RoomState{}, domain.Collaborator{}, err
	}
	o.Registry.SetRoom(sid, roomID)
	log.Info().Str("module", "orch").Str("sid", string(sid)).
		Str("room", string(roomID)).Msg("joined room")
	return room.State(), collab, nil
}

// Leave removes the caller; the emptied room is destroyed atomically with
// the removal. The caller broadcasts the leave event with the returned
// collaborator when the room survives.
func (o *Orchestrator) Leave(sid core.SessionID, roomID domain.RoomID) (domain.Collaborator, core.RoomService, bool, error) {
	if _, err := o.roomFor(sid, roomID); err != nil {
		return domain.Collaborator{}, nil, false, err
	}
	collab, removed, destroyed := o.Rooms.LeaveRoom(roomID, sid)
	if !removed {
		return domain.Collaborator{}, nil, false, ErrUnauthorized
	}
	o.Registry.ClearRoom(sid)
	metrics.ActiveRooms.Set(float64(o.Rooms.Count()))
	room, _ := o.Rooms.GetRoom(roomID)
	return collab, room, destroyed, nil
}

// DisconnectResult carries what the transport needs to announce a
// departure after the connection is gone.
type DisconnectResult struct {
	RoomID    domain.RoomID
	Collab    domain.Collaborator
	Destroyed bool
	WasInRoom bool
}

// Disconnect performs leave for every room the session belongs to (at most
// one outside of reconnection windows) and unbinds the session.
func (o *Orchestrator) Disconnect(sid core.SessionID) DisconnectResult {
	res := DisconnectResult{}
	if roomID, ok := o.Registry.RoomOf(sid); ok {
		collab, _, destroyed := o.Rooms.LeaveRoom(roomID, sid)
		res = DisconnectResult{RoomID: roomID, Collab: collab, Destroyed: destroyed, WasInRoom: true}
		metrics.ActiveRooms.Set(float64(o.Rooms.Count()))
	}
	o.Registry.Unbind(sid)
	metrics.ActiveConnections.Set(float64(o.Registry.Count()))
	log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("disconnected")
	return res
}

// SetActive toggles the caller's presence flag; idle detection itself
// lives outside this core.
func (o *Orchestrator) SetActive(sid core.SessionID, roomID domain.RoomID, active bool) (domain.Collaborator, error) {
	room, err := o.roomFor(sid, roomID)
	if err != nil {
		return domain.Collaborator{}, err
	}
	collab, ok := room.SetActive(sid, active)
	if !ok {
		return domain.Collaborator{}, ErrUnauthorized
	}
	return collab, nil
}

func (o *Orchestrator) notifyLeave(roomID domain.RoomID, collab domain.Collaborator) {
	// Marshaling lives in the transport adapter; this internal path reuses
	// the same event shape for implicit leaves on room switch.
	frame, err := core.MarshalEvent("collaborator:leave", map[string]any{"userId": collab.UserID})
	if err != nil {
		return
	}
	o.BroadcastRoom(roomID, "collaborator:leave", frame)
}
