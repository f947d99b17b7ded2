package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-ops-api/internal/dto"
	"github.com/noah-isme/lab-ops-api/internal/models"
	"github.com/noah-isme/lab-ops-api/pkg/response"
)

type grantService interface {
	Create(ctx context.Context, req dto.CreateGrantRequest, claims *models.JWTClaims) (*models.Grant, error)
	Get(ctx context.Context, id string) (*models.Grant, error)
	List(ctx context.Context, query dto.GrantQuery) ([]models.Grant, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.UpdateGrantRequest, claims *models.JWTClaims) (*models.Grant, error)
	SetStatus(ctx context.Context, id string, req dto.GrantStatusRequest, claims *models.JWTClaims) (*models.Grant, error)
	Register(ctx context.Context, grantID string, claims *models.JWTClaims) (*models.GrantRegistration, error)
	Registrations(ctx context.Context, grantID string) ([]models.GrantRegistration, error)
	RecordExpenditure(ctx context.Context, grantID string, req dto.RecordExpenditureRequest, claims *models.JWTClaims) (*models.Grant, error)
	Expenditures(ctx context.Context, grantID string) ([]models.GrantExpenditure, error)
	Summary(ctx context.Context) (*models.GrantSummary, error)
}

// GrantHandler exposes the grant ledger.
type GrantHandler struct {
	service grantService
}

// NewGrantHandler constructs the handler.
func NewGrantHandler(svc grantService) *GrantHandler {
	return &GrantHandler{service: svc}
}

// Create godoc
// @Summary Create grant
// @Tags Grants
// @Accept json
// @Produce json
// @Param payload body dto.CreateGrantRequest true "Grant payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grants [post]
func (h *GrantHandler) Create(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	var req dto.CreateGrantRequest
	if !bindJSON(c, &req) {
		return
	}
	grant, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grant)
}

// List godoc
// @Summary List grants
// @Tags Grants
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /grants [get]
func (h *GrantHandler) List(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	var query dto.GrantQuery
	if !bindQuery(c, &query) {
		return
	}
	grants, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grants, pagination)
}

// Get godoc
// @Summary Get grant
// @Tags Grants
// @Produce json
// @Param id path string true "Grant ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grants/{id} [get]
func (h *GrantHandler) Get(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	grant, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, grant)
}

// Update godoc
// @Summary Edit grant
// @Description Changing total_amount shifts remaining_balance by the same delta.
// @Tags Grants
// @Accept json
// @Produce json
// @Param id path string true "Grant ID"
// @Param payload body dto.UpdateGrantRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grants/{id} [put]
func (h *GrantHandler) Update(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	var req dto.UpdateGrantRequest
	if !bindJSON(c, &req) {
		return
	}
	grant, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, grant)
}

// SetStatus godoc
// @Summary Change grant status
// @Tags Grants
// @Accept json
// @Produce json
// @Param id path string true "Grant ID"
// @Param payload body dto.GrantStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grants/{id}/status [post]
func (h *GrantHandler) SetStatus(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	var req dto.GrantStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	grant, err := h.service.SetStatus(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, grant)
}

// Register godoc
// @Summary Register for grant
// @Description Students register on active grants once.
// @Tags Grants
// @Produce json
// @Param id path string true "Grant ID"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grants/{id}/register [post]
func (h *GrantHandler) Register(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	registration, err := h.service.Register(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, registration)
}

// Registrations godoc
// @Summary List grant registrations
// @Tags Grants
// @Produce json
// @Param id path string true "Grant ID"
// @Success 200 {object} response.Envelope
// @Router /grants/{id}/registrations [get]
func (h *GrantHandler) Registrations(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	items, err := h.service.Registrations(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// RecordExpenditure godoc
// @Summary Record expenditure
// @Description Debits the remaining balance of an active grant.
// @Tags Grants
// @Accept json
// @Produce json
// @Param id path string true "Grant ID"
// @Param payload body dto.RecordExpenditureRequest true "Expenditure"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grants/{id}/expenditures [post]
func (h *GrantHandler) RecordExpenditure(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	var req dto.RecordExpenditureRequest
	if !bindJSON(c, &req) {
		return
	}
	grant, err := h.service.RecordExpenditure(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grant)
}

// Expenditures godoc
// @Summary List expenditures
// @Tags Grants
// @Produce json
// @Param id path string true "Grant ID"
// @Success 200 {object} response.Envelope
// @Router /grants/{id}/expenditures [get]
func (h *GrantHandler) Expenditures(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	items, err := h.service.Expenditures(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}
