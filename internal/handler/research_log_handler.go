package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-ops-api/internal/dto"
	"github.com/noah-isme/lab-ops-api/internal/models"
	"github.com/noah-isme/lab-ops-api/pkg/response"
)

type researchLogService interface {
	Create(ctx context.Context, req dto.CreateResearchLogRequest, claims *models.JWTClaims) (*models.ResearchLog, error)
	List(ctx context.Context, query dto.ResearchLogQuery, claims *models.JWTClaims) ([]models.ResearchLog, *models.Pagination, error)
	Endorse(ctx context.Context, id string, req dto.EndorseResearchLogRequest, claims *models.JWTClaims) (*models.ResearchLog, error)
}

// ResearchLogHandler exposes research log endpoints.
type ResearchLogHandler struct {
	service researchLogService
}

// NewResearchLogHandler constructs the handler.
func NewResearchLogHandler(svc researchLogService) *ResearchLogHandler {
	return &ResearchLogHandler{service: svc}
}

// Create godoc
// @Summary Create research log
// @Tags ResearchLogs
// @Accept json
// @Produce json
// @Param payload body dto.CreateResearchLogRequest true "Log payload"
// @Success 201 {object} response.Envelope
// @Router /research-logs [post]
func (h *ResearchLogHandler) Create(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	var req dto.CreateResearchLogRequest
	if !bindJSON(c, &req) {
		return
	}
	log, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, log)
}

// List godoc
// @Summary List research logs
// @Tags ResearchLogs
// @Produce json
// @Param student_id query string false "Student (ignored for students)"
// @Param endorsement query string false "pending, endorsed or declined"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /research-logs [get]
func (h *ResearchLogHandler) List(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	var query dto.ResearchLogQuery
	if !bindQuery(c, &query) {
		return
	}
	logs, pagination, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}

// Endorse godoc
// @Summary Endorse research log
// @Description Supervisors set or revise the endorsement.
// @Tags ResearchLogs
// @Accept json
// @Produce json
// @Param id path string true "Research log ID"
// @Param payload body dto.EndorseResearchLogRequest true "Verdict"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /research-logs/{id} [put]
func (h *ResearchLogHandler) Endorse(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	var req dto.EndorseResearchLogRequest
	if !bindJSON(c, &req) {
		return
	}
	log, err := h.service.Endorse(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, log)
}
