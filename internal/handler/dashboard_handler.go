package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepsala/examhall-backend/internal/response"
	"github.com/prepsala/examhall-backend/internal/service"
)

// DashboardHandler handles the admin dashboard endpoints.
type DashboardHandler struct {
	dashboardService *service.DashboardService
	bankService      *service.BankService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService, bankService *service.BankService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		bankService:      bankService,
	}
}

// GetDashboard godoc
// GET /api/v1/admin/dashboard
// Returns the aggregate stat cards plus the per-student listing.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	stats, err := h.dashboardService.Stats(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	students, err := h.dashboardService.Students(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"stats":    stats,
		"students": students,
	})
}

// GetResults godoc
// GET /api/v1/admin/results
// Returns the per-student listing only, for exports and polling clients.
func (h *DashboardHandler) GetResults(c *gin.Context) {
	students, err := h.dashboardService.Students(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"students": students})
}

// RefreshBank godoc
// POST /api/v1/admin/bank/refresh
// Force-reloads the answer key cache after a workbook edit.
func (h *DashboardHandler) RefreshBank(c *gin.Context) {
	sections := h.bankService.RefreshAnswerKey(c.Request.Context())

	response.Success(c, http.StatusOK, gin.H{"sections": sections})
}
