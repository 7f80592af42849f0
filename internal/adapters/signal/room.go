package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/beatroom/beatroom/internal/core"
	"github.com/beatroom/beatroom/internal/domain"
)

func (ctl *SignalWSController) handleRoomCreate(sid core.SessionID, conn *WsSignalConn) {
	// Creator is alone at this point; nobody to announce the join to.
	state, _, err := ctl.Orch.CreateRoom(sid)
	if err != nil {
		ctl.sendFailure(conn, err)
		return
	}
	ctl.sendJSON(conn, struct {
		Type string        `json:"type"`
		Room domain.RoomID `json:"room"`
	}{"room:created", state.Room})
	ctl.sendRoomState(conn, state)
}

func (ctl *SignalWSController) handleRoomJoin(sid core.SessionID, conn *WsSignalConn, data []byte) {
	type joinPayload struct {
		Type string `json:"type"`
		Room string `json:"room" validate:"required"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(conn, "bad_payload")
		return
	}

	state, collab, err := ctl.Orch.Join(sid, domain.RoomID(p.Room))
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("room", p.Room).Msg("join failed")
		ctl.sendFailure(conn, err)
		return
	}

	// Joiner gets full room state; everyone else gets the presence event.
	ctl.sendRoomState(conn, state)
	ctl.broadcastOthers(state.Room, sid, "collaborator:join", struct {
		Type         string              `json:"type"`
		Collaborator domain.Collaborator `json:"collaborator"`
	}{"collaborator:join", collab})
}

func (ctl *SignalWSController) handleRoomLeave(sid core.SessionID, conn *WsSignalConn, data []byte) {
	type leavePayload struct {
		Type string `json:"type"`
		Room string `json:"room" validate:"required"`
	}
	var p leavePayload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(conn, "bad_payload")
		return
	}

	collab, _, destroyed, err := ctl.Orch.Leave(sid, domain.RoomID(p.Room))
	if err != nil {
		ctl.sendFailure(conn, err)
		return
	}
	ctl.sendJSON(conn, map[string]any{"type": "room:left", "room": p.Room})
	if !destroyed {
		ctl.broadcastAll(domain.RoomID(p.Room), "collaborator:leave", struct {
			Type   string        `json:"type"`
			UserID domain.UserID `json:"userId"`
		}{"collaborator:leave", collab.UserID})
	}
}

func (ctl *SignalWSController) handleDisconnect(sid core.SessionID) {
	res := ctl.Orch.Disconnect(sid)
	if res.WasInRoom && !res.Destroyed {
		ctl.broadcastAll(res.RoomID, "collaborator:leave", struct {
			Type   string        `json:"type"`
			UserID domain.UserID `json:"userId"`
		}{"collaborator:leave", res.Collab.UserID})
	}
}

func (ctl *SignalWSController) sendRoomState(conn *WsSignalConn, state core.RoomState) {
	ctl.sendJSON(conn, struct {
		Type string `json:"type"`
		core.RoomState
	}{Type: "room:state", RoomState: state})
}
