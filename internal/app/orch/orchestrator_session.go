package orch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/beatroom/beatroom/internal/core"
	"github.com/beatroom/beatroom/internal/domain"
	"github.com/beatroom/beatroom/internal/metrics"
)

// Save serializes the room's current patterns and mixer state under a
// fresh snapshot id. It reads state first and mutates nothing: a store
// failure leaves the room exactly as it was.
func (o *Orchestrator) Save(ctx context.Context, sid core.SessionID, roomID domain.RoomID) (string, error) {
	room, err := o.roomFor(sid, roomID)
	if err != nil {
		return "", err
	}
	user, _ := o.Registry.User(sid)
	state := room.State()
	snap := &domain.Snapshot{
		Patterns:   state.Patterns,
		MixerState: state.MixerState.Params,
		CreatedAt:  time.Now(),
		CreatedBy:  user.ID,
	}

	ctx, cancel := context.WithTimeout(ctx, o.storeTimeout())
	defer cancel()
	id, err := o.Snapshots.Save(ctx, snap)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("room", string(roomID)).Msg("snapshot save failed")
		return "", err
	}
	metrics.SnapshotsSaved.Inc()
	log.Info().Str("module", "orch").Str("room", string(roomID)).
		Str("snapshot", id).Msg("snapshot saved")
	return id, nil
}

// Load restores a snapshot into the live room, replacing patterns and
// mixer state wholesale. The caller broadcasts the returned snapshot to
// every member including the requester: a load is a room-wide state reset,
// not a personal action. Store errors reach the requester only and leave
// room state untouched.
func (o *Orchestrator) Load(ctx context.Context, sid core.SessionID, roomID domain.RoomID, snapshotID string) (*domain.Snapshot, error) {
	room, err := o.roomFor(sid, roomID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.storeTimeout())
	defer cancel()
	snap, err := o.Snapshots.Load(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	room.ApplySnapshot(snap)
	metrics.SnapshotsLoaded.Inc()
	log.Info().Str("module", "orch").Str("room", string(roomID)).
		Str("snapshot", snapshotID).Msg("snapshot loaded")
	return snap, nil
}
