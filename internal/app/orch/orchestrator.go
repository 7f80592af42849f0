// Package orch wires connected identities to the room registry, validates
// inbound events against the caller's membership, and fans validated
// events out through the room's broadcast path.
package orch

import (
	"errors"
	"time"

	"github.com/beatroom/beatroom/internal/app"
	"github.com/beatroom/beatroom/internal/core"
	"github.com/beatroom/beatroom/internal/domain"
	"github.com/beatroom/beatroom/internal/metrics"
	"github.com/beatroom/beatroom/internal/store"
)

// ErrUnauthorized marks an event referencing a room the caller has not
// joined. Reported to the originating caller only, never broadcast.
var ErrUnauthorized = errors.New("not a member of this room")

const DefaultStoreTimeout = 3 * time.Second

type Orchestrator struct {
	Registry  *app.Registry
	Rooms     *app.RoomManager
	Snapshots store.SnapshotStore
	Policy    app.Policy

	// StoreTimeout bounds every snapshot store call so a slow backend
	// surfaces failure instead of hanging the room.
	StoreTimeout time.Duration
}

func (o *Orchestrator) storeTimeout() time.Duration {
	if o.StoreTimeout > 0 {
		return o.StoreTimeout
	}
	return DefaultStoreTimeout
}

// roomFor resolves the target room and checks the caller's membership.
func (o *Orchestrator) roomFor(sid core.SessionID, roomID domain.RoomID) (core.RoomService, error) {
	room, ok := o.Rooms.GetRoom(roomID)
	if !ok {
		return nil, app.ErrRoomNotFound
	}
	if !room.HasMember(sid) {
		return nil, ErrUnauthorized
	}
	return room, nil
}

// BroadcastOthers fans a frame to everyone in the room except the sender.
func (o *Orchestrator) BroadcastOthers(roomID domain.RoomID, from core.SessionID, kind string, data core.Frame) {
	room, ok := o.Rooms.GetRoom(roomID)
	if !ok {
		return
	}
	o.handleDrops(room, room.Broadcast(from, data))
	metrics.EventsBroadcast.WithLabelValues(kind).Inc()
}

// BroadcastRoom fans a frame to every member including the sender, used
// where full-room consistency matters (chat, snapshot loads).
func (o *Orchestrator) BroadcastRoom(roomID domain.RoomID, kind string, data core.Frame) {
	room, ok := o.Rooms.GetRoom(roomID)
	if !ok {
		return
	}
	o.handleDrops(room, room.BroadcastAll(data))
	metrics.EventsBroadcast.WithLabelValues(kind).Inc()
}

func (o *Orchestrator) handleDrops(room core.RoomService, res core.PublishResult) {
	for _, sid := range res.Dropped {
		metrics.DroppedSends.Inc()
		if o.Policy == nil {
			continue
		}
		if o.Policy.OnBackpressure(room, sid) == app.KickMember {
			o.Registry.Cancel(sid)
		}
	}
}
