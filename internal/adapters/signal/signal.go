// Package signal carries all collaboration messages over websocket: room
// lifecycle, pattern and mixer edits, chat, cursor presence and session
// snapshots.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/beatroom/beatroom/internal/app"
	"github.com/beatroom/beatroom/internal/app/orch"
	"github.com/beatroom/beatroom/internal/core"
	"github.com/beatroom/beatroom/internal/domain"
	"github.com/beatroom/beatroom/internal/metrics"
	"github.com/beatroom/beatroom/internal/store"
)

const (
	writeWait = 5 * time.Second
	pongWait  = 60 * time.Second

	chatRateLimit  = 10
	chatRateWindow = 10 * time.Second
)

type SignalWSController struct {
	Orch *orch.Orchestrator

	ReadLimit  int64
	PingPeriod time.Duration

	chatLimiter *RoomRateLimiter
	validate    *validator.Validate
}

func NewSignalWSController(o *orch.Orchestrator, readLimit int64, pingPeriod time.Duration) *SignalWSController {
	return &SignalWSController{
		Orch:        o,
		ReadLimit:   readLimit,
		PingPeriod:  pingPeriod,
		chatLimiter: NewRoomRateLimiter(chatRateLimit, chatRateWindow),
		validate:    validator.New(),
	}
}

// WsSignalConn wraps the websocket with a buffered send channel so room
// fan-out never blocks on a slow peer.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal authenticates and upgrades one connection. A caller without
// both identity and display name is refused before any room logic runs.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	user, err := domain.NewUser(c.Query("identity"), c.Query("name"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sid := core.SessionID(c.GetString("client_token"))
	if sid == "" {
		sid = core.SessionID(uuid.NewString())
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).
		Str("user", string(user.ID)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	sess := core.NewMemberSession(user, conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.Bind(sid, user, sess, cancel)
	metrics.ActiveConnections.Set(float64(ctl.Orch.Registry.Count()))

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}

func (ctl *SignalWSController) sendJSON(conn *WsSignalConn, v any) {
	frame, err := core.MarshalFrame(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = conn.TrySend(frame)
}

func (ctl *SignalWSController) sendError(conn *WsSignalConn, code string) {
	ctl.sendJSON(conn, map[string]any{"type": "error", "error": code})
}

// sendFailure maps core errors onto wire codes, delivered to the caller
// only.
func (ctl *SignalWSController) sendFailure(conn *WsSignalConn, err error) {
	switch {
	case errors.Is(err, app.ErrRoomNotFound),
		errors.Is(err, core.ErrPatternNotFound),
		errors.Is(err, store.ErrSnapshotNotFound):
		ctl.sendError(conn, "not_found")
	case errors.Is(err, orch.ErrUnauthorized):
		ctl.sendError(conn, "unauthorized")
	case errors.Is(err, store.ErrSnapshotExpired):
		ctl.sendError(conn, "expired")
	case errors.Is(err, store.ErrUnavailable):
		ctl.sendError(conn, "persistence_unavailable")
	case errors.Is(err, domain.ErrInvalidResolution),
		errors.Is(err, domain.ErrStepCountMismatch):
		ctl.sendError(conn, "invalid_state")
	default:
		ctl.sendError(conn, "internal")
	}
}

// broadcastOthers marshals once and fans out to everyone but the sender.
func (ctl *SignalWSController) broadcastOthers(roomID domain.RoomID, sid core.SessionID, kind string, v any) {
	frame, err := core.MarshalFrame(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("broadcast marshal")
		return
	}
	ctl.Orch.BroadcastOthers(roomID, sid, kind, frame)
}

// broadcastAll delivers to every member including the sender.
func (ctl *SignalWSController) broadcastAll(roomID domain.RoomID, kind string, v any) {
	frame, err := core.MarshalFrame(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("broadcast marshal")
		return
	}
	ctl.Orch.BroadcastRoom(roomID, kind, frame)
}
