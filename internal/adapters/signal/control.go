package signal

import (
	"github.com/beatroom/beatroom/internal/core"
	"github.com/beatroom/beatroom/internal/domain"
)

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.sendJSON(conn, struct {
		Type string `json:"type"`
	}{"pong"})
}

func (ctl *SignalWSController) handleWhoAmI(sid core.SessionID, conn *WsSignalConn) {
	user, ok := ctl.Orch.Registry.User(sid)
	if !ok {
		ctl.sendError(conn, "unauthorized")
		return
	}
	resp := struct {
		Type     string        `json:"type"`
		UserID   domain.UserID `json:"userId"`
		Username string        `json:"username"`
		Room     domain.RoomID `json:"room,omitempty"`
	}{
		Type:     "whoami",
		UserID:   user.ID,
		Username: user.Username,
	}
	if roomID, ok := ctl.Orch.Registry.RoomOf(sid); ok {
		resp.Room = roomID
	}
	ctl.sendJSON(conn, resp)
}
