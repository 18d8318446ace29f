package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepsala/examhall-backend/internal/model"
	"github.com/prepsala/examhall-backend/internal/response"
	"github.com/prepsala/examhall-backend/internal/service"
	"github.com/prepsala/examhall-backend/internal/validator"
)

// RegistrationHandler handles candidate registration.
type RegistrationHandler struct {
	attemptService *service.AttemptService
}

// NewRegistrationHandler creates a new RegistrationHandler.
func NewRegistrationHandler(attemptService *service.AttemptService) *RegistrationHandler {
	return &RegistrationHandler{attemptService: attemptService}
}

// Register godoc
// POST /api/v1/exam/register
// Creates an exam attempt for the candidate and freezes the section totals
// in effect at this moment.
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attemptService.Register(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrPersistence)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"attempt_id":      attempt.ID.String(),
		"name":            attempt.Name,
		"section_totals":  attempt.SectionTotals,
		"total_questions": attempt.TotalQuestions,
		"registered_at":   attempt.RegisteredAt,
	})
}
