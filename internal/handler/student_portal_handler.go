package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepdesk/prepdesk-backend/internal/middleware"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/response"
	"github.com/prepdesk/prepdesk-backend/internal/service"
	"github.com/prepdesk/prepdesk-backend/internal/validator"
)

// StudentPortalHandler handles the student-facing exam session endpoints.
type StudentPortalHandler struct {
	sessionService *service.SessionService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(sessionService *service.SessionService) *StudentPortalHandler {
	return &StudentPortalHandler{sessionService: sessionService}
}

// GetLobby godoc
// GET /api/v1/student/lobby
// Lists every exam type with the student's own attempt overlaid.
func (h *StudentPortalHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	lobby, err := h.sessionService.Lobby(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exams": lobby})
}

// StartSession godoc
// POST /api/v1/student/exams/:exam_id/start
// Creates the session or resumes the existing one. Idempotent.
func (h *StudentPortalHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), claims.UserID, c.Param("exam_id"))
	if err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// GetPaper godoc
// GET /api/v1/student/sessions/:session_id/paper
// Returns the current section's questions without grading data.
func (h *StudentPortalHandler) GetPaper(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	paper, err := h.sessionService.Paper(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": paper})
}

// GetState godoc
// GET /api/v1/student/sessions/:session_id/state
// The reload/resume endpoint: session row, remaining section seconds and
// the full answer map.
func (h *StudentPortalHandler) GetState(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	state, err := h.sessionService.State(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}

// SaveAnswer godoc
// POST /api/v1/student/sessions/:session_id/answers
func (h *StudentPortalHandler) SaveAnswer(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.SaveAnswer(c.Request.Context(), sessionID, claims.UserID, &req); err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// GetSectionSummary godoc
// GET /api/v1/student/sessions/:session_id/section-summary
// The confirmation ticket shown before the irreversible advance.
func (h *StudentPortalHandler) GetSectionSummary(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	summary, err := h.sessionService.SectionSummary(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

// CompleteSection godoc
// POST /api/v1/student/sessions/:session_id/complete-section
// Irreversibly closes the current section; finalizes on the last one.
func (h *StudentPortalHandler) CompleteSection(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	session, err := h.sessionService.CompleteSection(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// Submit godoc
// POST /api/v1/student/sessions/:session_id/submit
// Finalizes the whole exam. Idempotent: repeated submits return the same
// persisted result.
func (h *StudentPortalHandler) Submit(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	// Ownership check before the ownerless finalize path.
	if _, err := h.sessionService.State(c.Request.Context(), sessionID, claims.UserID); err != nil {
		failSessionError(c, err)
		return
	}

	session, err := h.sessionService.Finalize(c.Request.Context(), sessionID)
	if err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// GetMySessions godoc
// GET /api/v1/student/sessions
func (h *StudentPortalHandler) GetMySessions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessions, err := h.sessionService.MySessions(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// sessionParams extracts claims and the session_id path param, failing the
// request on any problem.
func (h *StudentPortalHandler) sessionParams(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}
	return claims, sessionID, true
}

// failSessionError maps session service errors onto typed API error codes.
func failSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownExam):
		response.Fail(c, http.StatusNotFound, response.ErrUnknownExamType)
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotSessionOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrSessionCompleted):
		response.Fail(c, http.StatusConflict, response.ErrSessionCompleted)
	case errors.Is(err, service.ErrSectionLocked):
		response.Fail(c, http.StatusConflict, response.ErrSectionLocked)
	case errors.Is(err, service.ErrSectionMismatch):
		response.Fail(c, http.StatusConflict, response.ErrSectionMismatch)
	case errors.Is(err, service.ErrQuestionNotInExam):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrQuestionNotInExam)
	case errors.Is(err, service.ErrFinalizeInProgress):
		response.Fail(c, http.StatusConflict, response.ErrFinalizeFailed)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
