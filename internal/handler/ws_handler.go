package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/placehub/placement-backend/internal/middleware"
	"github.com/placehub/placement-backend/internal/model"
	"github.com/placehub/placement-backend/internal/service"
	ws "github.com/placehub/placement-backend/internal/websocket"
	"github.com/rs/zerolog"
)

const timePushInterval = 5 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
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

// WSHandler streams one attempt's state over a WebSocket: the client sends
// answer/mark/navigate/submit actions, the server pushes snapshots and the
// authoritative countdown.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/attempts/:attempt_id/stream
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	studentID := claims.UserID

	attempt, err := h.sessionService.Snapshot(c.Request.Context(), attemptID, studentID)
	if err != nil {
		conn.WriteError("no such attempt")
		return
	}

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("attempt_id", attemptID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	conn.WriteTyped(ws.StateResponse{Event: ws.EventState, Attempt: attempt})

	stop := make(chan struct{})
	defer close(stop)
	go h.pushTime(conn, attemptID, studentID, stop)

	for {
		var msg ws.Request
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		ctx := context.Background()

		switch msg.Action {
		case ws.ActionSelect:
			err = h.sessionService.SelectAnswer(ctx, attemptID, studentID, msg.QuestionIndex, msg.OptionIndex)
		case ws.ActionMark:
			err = h.sessionService.ToggleMark(ctx, attemptID, studentID, msg.QuestionIndex)
		case ws.ActionNavigate:
			err = h.sessionService.Navigate(ctx, attemptID, studentID, msg.QuestionIndex)
		case ws.ActionSubmit:
			report, serr := h.sessionService.Submit(ctx, attemptID, studentID)
			if serr != nil {
				conn.WriteError(serr.Error())
				continue
			}
			conn.WriteTyped(ws.SubmittedResponse{
				Event:      ws.EventSubmitted,
				TotalScore: report.TotalScore,
				Percentage: report.Percentage,
				Passed:     report.Passed,
			})
			wsLog.Info().Int("score", report.TotalScore).Msg("Submitted over stream")
			continue
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
			continue
		default:
			conn.WriteError("unknown action: " + string(msg.Action))
			continue
		}

		if err != nil {
			conn.WriteError(err.Error())
			continue
		}

		snapshot, serr := h.sessionService.Snapshot(ctx, attemptID, studentID)
		if serr != nil {
			conn.WriteError(serr.Error())
			continue
		}
		conn.WriteTyped(ws.StateResponse{Event: ws.EventState, Attempt: snapshot})
	}
}

// pushTime streams the countdown until the attempt turns terminal, then
// announces the submission (covers expiry-driven auto-submit).
func (h *WSHandler) pushTime(conn *ws.Conn, attemptID uuid.UUID, studentID int, stop <-chan struct{}) {
	ticker := time.NewTicker(timePushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			attempt, err := h.sessionService.Snapshot(context.Background(), attemptID, studentID)
			if err != nil {
				return
			}

			if attempt.Status == model.AttemptStatusSubmitted {
				report, err := h.sessionService.Report(context.Background(), attemptID, studentID)
				if err == nil {
					conn.WriteTyped(ws.SubmittedResponse{
						Event:      ws.EventSubmitted,
						TotalScore: report.TotalScore,
						Percentage: report.Percentage,
						Passed:     report.Passed,
					})
				}
				return
			}

			if err := conn.WriteTyped(ws.TimeResponse{
				Event:         ws.EventTime,
				TimeRemaining: attempt.TimeRemaining,
			}); err != nil {
				return
			}
		}
	}
}
