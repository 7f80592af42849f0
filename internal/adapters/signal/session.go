package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/beatroom/beatroom/internal/core"
	"github.com/beatroom/beatroom/internal/domain"
)

func (ctl *SignalWSController) handleSessionSave(sid core.SessionID, conn *WsSignalConn, data []byte) {
	type savePayload struct {
		Type string `json:"type"`
		Room string `json:"room" validate:"required"`
	}
	var p savePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad save payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(conn, "bad_payload")
		return
	}

	id, err := ctl.Orch.Save(context.Background(), sid, domain.RoomID(p.Room))
	if err != nil {
		ctl.sendFailure(conn, err)
		return
	}
	ctl.sendJSON(conn, struct {
		Type       string `json:"type"`
		SnapshotID string `json:"snapshotId"`
	}{"session:saved", id})
}

func (ctl *SignalWSController) handleSessionLoad(sid core.SessionID, conn *WsSignalConn, data []byte) {
	type loadPayload struct {
		Type     string `json:"type"`
		Room     string `json:"room" validate:"required"`
		Snapshot string `json:"snapshot" validate:"required"`
	}
	var p loadPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad load payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(conn, "bad_payload")
		return
	}

	snap, err := ctl.Orch.Load(context.Background(), sid, domain.RoomID(p.Room), p.Snapshot)
	if err != nil {
		ctl.sendFailure(conn, err)
		return
	}

	// A load resets the whole room, so the requester hears it too.
	ctl.broadcastAll(domain.RoomID(p.Room), "session:loaded", struct {
		Type string `json:"type"`
		Room string `json:"room"`
		domain.Snapshot
	}{Type: "session:loaded", Room: p.Room, Snapshot: *snap})
}
