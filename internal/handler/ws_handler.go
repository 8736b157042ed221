package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/qiyas-mock/internal/engine"
	"github.com/stemsi/qiyas-mock/internal/middleware"
	"github.com/stemsi/qiyas-mock/internal/response"
	"github.com/stemsi/qiyas-mock/internal/service"
	ws "github.com/stemsi/qiyas-mock/internal/websocket"
)

const maxMessageSize = 4096

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the live exam session over WebSocket.
type WSHandler struct {
	sessions *service.ExamSessionService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *service.ExamSessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/session/stream?token=
// Pushes a snapshot after every change of the caller's session (including
// countdown ticks) and accepts the same actions as the HTTP session routes.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	uid := claims.UserID

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	snaps, unsubscribe, err := h.sessions.Subscribe(uid)
	if err != nil {
		_, code := sessionError(err)
		ws.WriteError(conn, string(code), response.GetMessage(code))
		return
	}
	defer unsubscribe()

	wsLog := h.log.With().Int("user_id", uid).Logger()
	wsLog.Info().Msg("Session stream connected")

	ctx := c.Request.Context()
	out := make(chan any, 16)
	writerDone := make(chan struct{})
	stop := make(chan struct{})
	var stopOnce sync.Once
	defer stopOnce.Do(func() { close(stop) })

	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, uid, snaps, out, stop, wsLog)
	}()

	if snap, err := h.sessions.Snapshot(ctx, uid); err == nil {
		out <- ws.SnapshotResponse{Event: ws.EventSnapshot, Data: snap}
	}

	ws.PrepareRead(conn, maxMessageSize)
	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		reply := h.handleAction(ctx, uid, msg)
		if reply == nil {
			continue
		}
		select {
		case out <- reply:
		case <-writerDone:
			return
		}
	}
}

// handleAction applies one client action. The resulting snapshot reaches the
// client through the subscription; only pongs and errors are returned here.
func (h *WSHandler) handleAction(ctx context.Context, uid int, msg ws.RequestEnvelope) any {
	var ev engine.Event
	switch msg.Action {
	case ws.ActionPing:
		return ws.PongResponse{Event: ws.EventPong}
	case ws.ActionAnswer:
		var d ws.AnswerData
		if err := json.Unmarshal(msg.Data, &d); err != nil || d.QuestionID == "" || d.Option == nil {
			return invalidPayload()
		}
		ev = engine.Answer{QuestionID: d.QuestionID, Option: *d.Option}
	case ws.ActionNavigate:
		var d ws.NavigateData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			return invalidPayload()
		}
		ev = engine.Navigate{Direction: engine.Direction(d.Direction), Index: d.Index}
	case ws.ActionReviewChoice:
		var d ws.ReviewChoiceData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			return invalidPayload()
		}
		ev = engine.ReviewChoice{Choice: engine.Choice(d.Choice)}
	case ws.ActionFinishSection:
		ev = engine.FinishSection{}
	case ws.ActionPrayerBreak:
		ev = engine.StartPrayerBreak{}
	case ws.ActionResume:
		ev = engine.ResumeFromBreak{}
	default:
		return ws.ErrorResponse{
			Event:   ws.EventError,
			Code:    string(response.ErrInvalidPayload),
			Message: "unknown action: " + string(msg.Action),
		}
	}

	if _, err := h.sessions.Dispatch(ctx, uid, ev); err != nil {
		_, code := sessionError(err)
		return ws.ErrorResponse{Event: ws.EventError, Code: string(code), Message: response.GetMessage(code)}
	}
	return nil
}

func invalidPayload() ws.ErrorResponse {
	return ws.ErrorResponse{
		Event:   ws.EventError,
		Code:    string(response.ErrInvalidPayload),
		Message: response.GetMessage(response.ErrInvalidPayload),
	}
}

// writeLoop owns all writes to conn: snapshots, replies and keepalive pings.
// It closes the connection when the session goes away.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, uid int, snaps <-chan engine.Snapshot, out <-chan any, stop <-chan struct{}, wsLog zerolog.Logger) {
	ping := time.NewTicker(ws.PingPeriod)
	defer ping.Stop()
	sentResults := false

	for {
		var err error
		select {
		case <-stop:
			return
		case snap, ok := <-snaps:
			if !ok {
				ws.WriteTyped(conn, ws.SnapshotResponse{Event: ws.EventClosed})
				conn.Close()
				return
			}
			err = ws.WriteTyped(conn, ws.SnapshotResponse{Event: ws.EventSnapshot, Data: snap})
			if err == nil && snap.State == engine.StateResults && !sentResults {
				if res, rerr := h.sessions.Results(ctx, uid); rerr == nil {
					sentResults = true
					err = ws.WriteTyped(conn, ws.SnapshotResponse{Event: ws.EventResults, Data: res})
				}
			}
		case msg := <-out:
			err = ws.WriteTyped(conn, msg)
		case <-ping.C:
			err = ws.WritePing(conn)
		}
		if err != nil {
			wsLog.Debug().Err(err).Msg("Write failed")
			conn.Close()
			return
		}
	}
}
