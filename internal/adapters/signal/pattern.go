package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/beatroom/beatroom/internal/core"
	"github.com/beatroom/beatroom/internal/domain"
)

func (ctl *SignalWSController) handlePatternCreate(sid core.SessionID, conn *WsSignalConn, data []byte) {
	type createPayload struct {
		Type       string   `json:"type"`
		Room       string   `json:"room" validate:"required"`
		Tracks     []string `json:"tracks" validate:"required,min=1"`
		Resolution int      `json:"resolution" validate:"required"`
	}
	var p createPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad pattern create payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(conn, "bad_payload")
		return
	}

	pattern, err := ctl.Orch.CreatePattern(sid, domain.RoomID(p.Room), p.Tracks, p.Resolution)
	if err != nil {
		ctl.sendFailure(conn, err)
		return
	}

	resp := struct {
		Type    string         `json:"type"`
		Room    string         `json:"room"`
		Pattern domain.Pattern `json:"pattern"`
	}{"pattern:created", p.Room, pattern}
	ctl.sendJSON(conn, resp)
	ctl.broadcastOthers(domain.RoomID(p.Room), sid, "pattern:created", resp)
}

func (ctl *SignalWSController) handlePatternUpdate(sid core.SessionID, conn *WsSignalConn, data []byte) {
	type updatePayload struct {
		Type    string              `json:"type"`
		Room    string              `json:"room" validate:"required"`
		Pattern string              `json:"pattern" validate:"required"`
		Tracks  []domain.TrackSteps `json:"tracks" validate:"required"`
	}
	var p updatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad pattern update payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(conn, "bad_payload")
		return
	}

	pattern, err := ctl.Orch.UpdatePattern(sid, domain.RoomID(p.Room), p.Pattern, p.Tracks)
	if err != nil {
		ctl.sendFailure(conn, err)
		return
	}

	// Originator already holds local truth; only the others need it.
	ctl.broadcastOthers(domain.RoomID(p.Room), sid, "pattern:update", struct {
		Type    string         `json:"type"`
		Room    string         `json:"room"`
		Pattern domain.Pattern `json:"pattern"`
	}{"pattern:update", p.Room, pattern})
}
