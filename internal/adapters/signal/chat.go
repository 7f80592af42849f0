package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/beatroom/beatroom/internal/core"
	"github.com/beatroom/beatroom/internal/domain"
	"github.com/beatroom/beatroom/internal/metrics"
)

func (ctl *SignalWSController) handleChatMessage(sid core.SessionID, conn *WsSignalConn, data []byte) {
	type chatPayload struct {
		Type string `json:"type"`
		Room string `json:"room" validate:"required"`
		Text string `json:"text" validate:"required,max=1000"`
	}
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(conn, "bad_payload")
		return
	}

	user, ok := ctl.Orch.Registry.User(sid)
	if !ok {
		ctl.sendError(conn, "unauthorized")
		return
	}
	if !ctl.chatLimiter.Allow(user.ID) {
		metrics.ChatRateLimited.Inc()
		ctl.sendError(conn, "rate_limited")
		return
	}

	msg, err := ctl.Orch.Chat(sid, domain.RoomID(p.Room), p.Text)
	if err != nil {
		ctl.sendFailure(conn, err)
		return
	}

	// Chat goes to everyone including the sender, so every collaborator
	// observes the same ordering; the sender does not locally echo.
	ctl.broadcastAll(domain.RoomID(p.Room), "chat:message", struct {
		Type string `json:"type"`
		Room string `json:"room"`
		domain.ChatMessage
	}{Type: "chat:message", Room: p.Room, ChatMessage: msg})
}
