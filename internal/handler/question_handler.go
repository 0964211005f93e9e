package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prepdesk/prepdesk-backend/internal/examcfg"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/repository"
	"github.com/prepdesk/prepdesk-backend/internal/response"
	"github.com/prepdesk/prepdesk-backend/internal/service"
	"github.com/prepdesk/prepdesk-backend/internal/validator"
)

// QuestionHandler handles the admin authoring and results endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
	sessionService  *service.SessionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService, sessionService *service.SessionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService, sessionService: sessionService}
}

// ListExams godoc
// GET /api/v1/admin/exams
// Lists every registered exam type with its section layout.
func (h *QuestionHandler) ListExams(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"exams": examcfg.All()})
}

// ListQuestions godoc
// GET /api/v1/admin/exams/:exam_id/questions
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	questions, err := h.questionService.ListByExam(c.Request.Context(), c.Param("exam_id"))
	if err != nil {
		failQuestionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// GetCoverage godoc
// GET /api/v1/admin/exams/:exam_id/coverage
// Reports authored-vs-required question counts.
func (h *QuestionHandler) GetCoverage(c *gin.Context) {
	coverage, err := h.questionService.CoverageByExam(c.Request.Context(), c.Param("exam_id"))
	if err != nil {
		failQuestionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, coverage)
}

// CreateQuestion godoc
// POST /api/v1/admin/exams/:exam_id/questions
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), c.Param("exam_id"), &req)
	if err != nil {
		failQuestionError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// UpdateQuestion godoc
// PUT /api/v1/admin/questions/:id
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Update(c.Request.Context(), id, &req)
	if err != nil {
		failQuestionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question": question})
}

// DeleteQuestion godoc
// DELETE /api/v1/admin/questions/:id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), id); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// GetResults godoc
// GET /api/v1/admin/exams/:exam_id/results?page=&per_page=
// Paginated per-student results for one exam type.
func (h *QuestionHandler) GetResults(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "25"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 25
	}

	results, total, err := h.sessionService.Results(c.Request.Context(), c.Param("exam_id"), page, perPage)
	if err != nil {
		failQuestionError(c, err)
		return
	}

	if results == nil {
		results = []repository.SessionResult{}
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	})
}

func failQuestionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownExam):
		response.Fail(c, http.StatusNotFound, response.ErrUnknownExamType)
	case errors.Is(err, service.ErrSectionNotInExam):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrSectionNotInExam)
	case errors.Is(err, service.ErrInvalidOptionIndex):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidOptionIndex)
	case errors.Is(err, repository.ErrDuplicateQuestionNumber):
		response.Fail(c, http.StatusConflict, response.ErrDuplicateQuestion)
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
