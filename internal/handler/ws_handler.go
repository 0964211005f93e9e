package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prepdesk/prepdesk-backend/internal/middleware"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/service"
	ws "github.com/prepdesk/prepdesk-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
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

// WSHandler handles the per-session WebSocket exam stream.
type WSHandler struct {
	sessionService *service.SessionService
	proctorService *service.ProctorService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	sessionService *service.SessionService,
	proctorService *service.ProctorService,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		proctorService: proctorService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/student/sessions/:session_id/stream
// Bidirectional stream: client sends answers, focus-loss signals, section
// completes and submits; server pushes timer warnings, forced section
// advances, grading and termination.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(rawConn)
	defer conn.Close()

	studentID := claims.UserID

	// Ownership check before streaming anything.
	if _, err := h.sessionService.State(c.Request.Context(), sessionID, studentID); err != nil {
		conn.WriteError("no session for this student")
		return
	}

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("session_id", sessionID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	// Forward server-side events (warnings, advances, grading) until the
	// reader loop ends.
	events, unsubscribe := h.sessionService.Subscribe(sessionID)
	defer unsubscribe()

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case ev := <-events:
				if err := conn.WriteEvent(ws.Event(ev.Type), ev.Payload); err != nil {
					return
				}
			}
		}
	}()

	for {
		var msg ws.RequestPayload
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(conn, sessionID, studentID, &msg)
		case ws.ActionFocusLoss:
			h.handleFocusLoss(conn, wsLog, sessionID, studentID, &msg)
		case ws.ActionSectionComplete:
			h.handleSectionComplete(conn, sessionID, studentID)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, sessionID)
		case ws.ActionPing:
			conn.WriteEvent(ws.EventPong, nil)
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(msg.Action))
		}
	}
}

func (h *WSHandler) handleAnswer(conn *ws.Conn, sessionID uuid.UUID, studentID int, msg *ws.RequestPayload) {
	if msg.QuestionID == "" || msg.SelectedIndex == nil {
		conn.WriteError("question_id and selected_index are required")
		return
	}
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.WriteError("invalid question_id format")
		return
	}

	req := &model.SaveAnswerRequest{QuestionID: questionID, SelectedIndex: msg.SelectedIndex}
	if err := h.sessionService.SaveAnswer(context.Background(), sessionID, studentID, req); err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.WriteEvent(ws.EventSaved, map[string]string{"question_id": msg.QuestionID})
}

func (h *WSHandler) handleFocusLoss(conn *ws.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, studentID int, msg *ws.RequestPayload) {
	res, err := h.proctorService.RecordFocusLoss(context.Background(), sessionID, studentID, msg.Signal)
	if err != nil {
		wsLog.Warn().Err(err).Str("signal", msg.Signal).Msg("Focus loss rejected")
		conn.WriteError(err.Error())
		return
	}

	// Termination reaches the client through the subscription; the direct
	// reply carries the warning budget.
	if !res.Terminated {
		conn.WriteEvent(ws.EventProctor, res)
	}
}

func (h *WSHandler) handleSectionComplete(conn *ws.Conn, sessionID uuid.UUID, studentID int) {
	session, err := h.sessionService.CompleteSection(context.Background(), sessionID, studentID)
	if err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.WriteEvent(ws.EventSection, session)
}

func (h *WSHandler) handleSubmit(conn *ws.Conn, wsLog zerolog.Logger, sessionID uuid.UUID) {
	session, err := h.sessionService.Finalize(context.Background(), sessionID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Submit failed")
		conn.WriteError("submit failed, please retry")
		return
	}

	wsLog.Info().Msg("Exam submitted and graded")
	conn.WriteEvent(ws.EventGraded, session)
}
