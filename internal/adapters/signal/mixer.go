package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/beatroom/beatroom/internal/core"
	"github.com/beatroom/beatroom/internal/domain"
)

func (ctl *SignalWSController) handleMixerUpdate(sid core.SessionID, conn *WsSignalConn, data []byte) {
	type mixerPayload struct {
		Type   string             `json:"type"`
		Room   string             `json:"room" validate:"required"`
		Params map[string]float64 `json:"params" validate:"required,min=1"`
	}
	var p mixerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad mixer payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(conn, "bad_payload")
		return
	}

	state, err := ctl.Orch.UpdateMixer(sid, domain.RoomID(p.Room), p.Params)
	if err != nil {
		ctl.sendFailure(conn, err)
		return
	}

	// The partial update travels as-is; receivers merge field by field.
	ctl.broadcastOthers(domain.RoomID(p.Room), sid, "mixer:update", struct {
		Type      string             `json:"type"`
		Room      string             `json:"room"`
		Params    map[string]float64 `json:"params"`
		UpdatedBy domain.UserID      `json:"updatedBy"`
	}{"mixer:update", p.Room, p.Params, state.UpdatedBy})
}
