package signal

import (
	"encoding/json"

	"github.com/beatroom/beatroom/internal/core"
	"github.com/beatroom/beatroom/internal/domain"
)

// Cursor positions and preview sync are ephemeral: validated, relayed to
// the others with the sender's identity attached, never persisted.

func (ctl *SignalWSController) handleCursorUpdate(sid core.SessionID, conn *WsSignalConn, data []byte) {
	type cursorPayload struct {
		Type     string          `json:"type"`
		Room     string          `json:"room" validate:"required"`
		Position json.RawMessage `json:"position" validate:"required"`
	}
	var p cursorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.Orch.Authorize(sid, domain.RoomID(p.Room)); err != nil {
		ctl.sendFailure(conn, err)
		return
	}

	user, _ := ctl.Orch.Registry.User(sid)
	ctl.broadcastOthers(domain.RoomID(p.Room), sid, "cursor:update", struct {
		Type     string          `json:"type"`
		Room     string          `json:"room"`
		UserID   domain.UserID   `json:"userId"`
		Position json.RawMessage `json:"position"`
	}{"cursor:update", p.Room, user.ID, p.Position})
}

func (ctl *SignalWSController) handlePreviewSync(sid core.SessionID, conn *WsSignalConn, data []byte) {
	type previewPayload struct {
		Type    string          `json:"type"`
		Room    string          `json:"room" validate:"required"`
		Preview json.RawMessage `json:"preview" validate:"required"`
	}
	var p previewPayload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.Orch.Authorize(sid, domain.RoomID(p.Room)); err != nil {
		ctl.sendFailure(conn, err)
		return
	}

	user, _ := ctl.Orch.Registry.User(sid)
	ctl.broadcastOthers(domain.RoomID(p.Room), sid, "preview:sync", struct {
		Type    string          `json:"type"`
		Room    string          `json:"room"`
		UserID  domain.UserID   `json:"userId"`
		Preview json.RawMessage `json:"preview"`
	}{"preview:sync", p.Room, user.ID, p.Preview})
}

func (ctl *SignalWSController) handlePresenceActive(sid core.SessionID, conn *WsSignalConn, data []byte) {
	type activePayload struct {
		Type   string `json:"type"`
		Room   string `json:"room" validate:"required"`
		Active *bool  `json:"active" validate:"required"`
	}
	var p activePayload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(conn, "bad_payload")
		return
	}

	collab, err := ctl.Orch.SetActive(sid, domain.RoomID(p.Room), *p.Active)
	if err != nil {
		ctl.sendFailure(conn, err)
		return
	}
	ctl.broadcastOthers(domain.RoomID(p.Room), sid, "presence:active", struct {
		Type         string              `json:"type"`
		Room         string              `json:"room"`
		Collaborator domain.Collaborator `json:"collaborator"`
	}{"presence:active", p.Room, collab})
}
