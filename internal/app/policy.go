package app

import "github.com/beatroom/beatroom/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a recipient whose send buffer overflowed
// during a broadcast.
type Policy interface {
	OnBackpressure(room core.RoomService, sid core.SessionID) BackpressureAction
}

// DropPolicy sheds the frame and keeps the member: a collaborator who
// misses an event resyncs with full room state on the next join.
type DropPolicy struct{}

func (DropPolicy) OnBackpressure(core.RoomService, core.SessionID) BackpressureAction {
	return DropFrame
}

// KickPolicy disconnects slow consumers instead of letting them lag.
type KickPolicy struct{}

func (KickPolicy) OnBackpressure(core.RoomService, core.SessionID) BackpressureAction {
	return KickMember
}
