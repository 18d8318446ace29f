package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prepsala/examhall-backend/internal/model"
	"github.com/prepsala/examhall-backend/internal/repository"
	"github.com/prepsala/examhall-backend/internal/response"
	"github.com/prepsala/examhall-backend/internal/service"
	"github.com/prepsala/examhall-backend/internal/validator"
)

// ExamHandler handles the candidate-facing exam endpoints: schema, paper,
// submission and result lookup.
type ExamHandler struct {
	bankService    *service.BankService
	attemptService *service.AttemptService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(bankService *service.BankService, attemptService *service.AttemptService) *ExamHandler {
	return &ExamHandler{
		bankService:    bankService,
		attemptService: attemptService,
	}
}

// GetSchema godoc
// GET /api/v1/exam/schema
// Returns the per-section question counts, the declared total and the
// exam duration, without any question content.
func (h *ExamHandler) GetSchema(c *gin.Context) {
	schema := h.bankService.Schema()

	response.Success(c, http.StatusOK, gin.H{
		"sections":         schema.Sections,
		"total_questions":  schema.TotalQuestions(),
		"duration_minutes": schema.DurationMinutes,
	})
}

// GetPaper godoc
// GET /api/v1/exam/paper
// Returns a freshly shuffled exam paper with correct answers stripped.
func (h *ExamHandler) GetPaper(c *gin.Context) {
	paper := h.bankService.Paper()
	if len(paper.Sections) == 0 {
		response.Fail(c, http.StatusNotFound, response.ErrNoQuestions)
		return
	}

	response.Success(c, http.StatusOK, paper)
}

// Submit godoc
// POST /api/v1/exam/attempts/:attempt_id/submit
// Grades the submitted answers against the authoritative answer key and
// persists the result. Exactly one submission per attempt is accepted.
func (h *ExamHandler) Submit(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), attemptID, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAttemptNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrRegistrationRequired)
		case errors.Is(err, service.ErrAlreadySubmitted):
			response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrPersistence)
		}
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetAttempt godoc
// GET /api/v1/exam/attempts/:attempt_id
// Returns the attempt's profile, status and score (if submitted).
func (h *ExamHandler) GetAttempt(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.Get(c.Request.Context(), attemptID)
	if err != nil {
		if errors.Is(err, repository.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, attempt)
}
