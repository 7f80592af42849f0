package orch

import (
	"time"

	"github.com/beatroom/beatroom/internal/core"
	"github.com/beatroom/beatroom/internal/domain"
)

// CreatePattern adds an empty grid to the room's pattern store. The
// resolution is validated once here and immutable afterwards.
func (o *Orchestrator) CreatePattern(sid core.SessionID, roomID domain.RoomID, tracks []string, resolution int) (domain.Pattern, error) {
	room, err := o.roomFor(sid, roomID)
	if err != nil {
		return domain.Pattern{}, err
	}
	user, _ := o.Registry.User(sid)
	return room.CreatePattern(tracks, resolution, user.ID)
}

// UpdatePattern replaces the pattern's whole grid. Last writer wins at
// pattern granularity; repeated application of the same payload is
// idempotent.
func (o *Orchestrator) UpdatePattern(sid core.SessionID, roomID domain.RoomID, patternID string, tracks []domain.TrackSteps) (domain.Pattern, error) {
	room, err := o.roomFor(sid, roomID)
	if err != nil {
		return domain.Pattern{}, err
	}
	user, _ := o.Registry.User(sid)
	return room.ReplacePattern(patternID, tracks, user.ID)
}

// UpdateMixer merges only the keys present in partial into the room's
// mixer state.
func (o *Orchestrator) UpdateMixer(sid core.SessionID, roomID domain.RoomID, partial map[string]float64) (domain.MixerState, error) {
	room, err := o.roomFor(sid, roomID)
	if err != nil {
		return domain.MixerState{}, err
	}
	user, _ := o.Registry.User(sid)
	return room.MergeMixer(partial, user.ID), nil
}

// Chat stamps the sender and appends to the room's ordered log. The caller
// broadcasts the returned message to every member including the sender, so
// ordering is identical for everyone.
func (o *Orchestrator) Chat(sid core.SessionID, roomID domain.RoomID, text string) (domain.ChatMessage, error) {
	room, err := o.roomFor(sid, roomID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	user, _ := o.Registry.User(sid)
	msg := domain.ChatMessage{
		SenderID:   user.ID,
		SenderName: user.Username,
		Text:       text,
		Timestamp:  time.Now(),
	}
	room.AppendChat(msg)
	return msg, nil
}

// Authorize is the membership check for ephemeral relays (cursor moves,
// preview sync) that mutate nothing.
func (o *Orchestrator) Authorize(sid core.SessionID, roomID domain.RoomID) error {
	_, err := o.roomFor(sid, roomID)
	return err
}
