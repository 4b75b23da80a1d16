package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/middleware"
	"github.com/stemsi/exstem-session/internal/model"
	"github.com/stemsi/exstem-session/internal/response"
	"github.com/stemsi/exstem-session/internal/service"
	"github.com/stemsi/exstem-session/internal/validator"
	ws "github.com/stemsi/exstem-session/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
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

// WSHandler streams autosaves, violations and the final submit of one attempt.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/attempts/:attempt_id/stream?token=...
// Upgrades to WebSocket once the attempt is verified to be the student's own
// and still open.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	ctx := c.Request.Context()
	studentID := claims.UserID

	attempt, err := h.attemptService.GetResult(ctx, studentID, attemptID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	if attempt.Status != model.AttemptStatusInProgress {
		failWith(c, h.log, service.ErrSessionNotActive)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	reqLog := response.RequestLogger(c, h.log)
	wsLog := reqLog.With().
		Int("student_id", studentID).
		Str("attempt_id", attemptID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	for {
		action, data, err := ws.ReadMessage(conn)
		if err != nil {
			if errors.Is(err, ws.ErrMalformed) {
				writeWSError(conn, response.ErrInvalidPayload, nil)
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var open bool
		switch action {
		case ws.ActionAutosave:
			open = h.handleAutosave(ctx, conn, wsLog, studentID, attemptID, data)
		case ws.ActionViolation:
			open = h.handleViolation(ctx, conn, wsLog, studentID, attemptID, data)
		case ws.ActionSubmit:
			open = h.handleSubmit(ctx, conn, wsLog, studentID, attemptID, data)
		case ws.ActionPing:
			open = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong, AttemptID: attemptID}) == nil
		default:
			wsLog.Warn().Str("action", string(action)).Msg("Unknown action")
			writeWSError(conn, response.ErrInvalidPayload, map[string]string{"action": "unknown action: " + string(action)})
			open = true
		}

		if !open {
			closeNormally(conn)
			return
		}
	}
}

// Each handler reports whether the stream should stay open.

func (h *WSHandler) handleAutosave(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, studentID int, attemptID uuid.UUID, data []byte) bool {
	var req ws.AutosaveRequest
	if fields := validator.Decode(data, &req); fields != nil {
		writeWSError(conn, response.ErrValidation, fields)
		return true
	}

	ack, err := h.attemptService.SaveProgress(ctx, studentID, attemptID, req.Answers)
	if err != nil {
		return h.serviceError(conn, wsLog, err)
	}
	return ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, Data: *ack}) == nil
}

func (h *WSHandler) handleViolation(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, studentID int, attemptID uuid.UUID, data []byte) bool {
	var req ws.ViolationRequest
	if fields := validator.Decode(data, &req); fields != nil {
		writeWSError(conn, response.ErrValidation, fields)
		return true
	}

	ack, err := h.attemptService.RecordViolation(ctx, studentID, attemptID, req.Violation)
	if err != nil {
		return h.serviceError(conn, wsLog, err)
	}
	return ws.WriteTyped(conn, ws.ViolationResponse{Event: ws.EventViolation, Data: *ack}) == nil
}

// handleSubmit closes the attempt; the stream ends either way once a close
// has been attempted.
func (h *WSHandler) handleSubmit(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, studentID int, attemptID uuid.UUID, data []byte) bool {
	var req ws.SubmitRequest
	if fields := validator.Decode(data, &req); fields != nil {
		writeWSError(conn, response.ErrValidation, fields)
		return true
	}

	result, err := h.attemptService.Submit(ctx, studentID, attemptID, req.Answers)
	if err != nil {
		return h.serviceError(conn, wsLog, err)
	}

	wsLog.Info().
		Str("status", string(result.Status)).
		Float64("percentage", result.Percentage).
		Msg("Attempt submitted over WebSocket")

	_ = ws.WriteTyped(conn, ws.SubmittedResponse{Event: ws.EventSubmitted, Data: *result})
	return false
}

// serviceError reports a service error to the client. The stream stays open
// unless the attempt can no longer accept messages.
func (h *WSHandler) serviceError(conn *websocket.Conn, wsLog zerolog.Logger, err error) bool {
	_, code := errorStatus(err)
	if code == response.ErrInternal {
		wsLog.Error().Err(err).Msg("Attempt stream action failed")
	}
	if writeWSError(conn, code, nil) != nil {
		return false
	}

	switch code {
	case response.ErrSessionNotActive, response.ErrAlreadySubmitted, response.ErrNotFound, response.ErrInvalidSession:
		return false
	}
	return true
}

func writeWSError(conn *websocket.Conn, code response.ErrCode, fields map[string]string) error {
	return ws.WriteError(conn, string(code), response.GetMessage(code), fields)
}

func closeNormally(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
}
