package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-ops-api/internal/dto"
	"github.com/noah-isme/lab-ops-api/internal/models"
	appErrors "github.com/noah-isme/lab-ops-api/pkg/errors"
	"github.com/noah-isme/lab-ops-api/pkg/response"
)

type bulletinService interface {
	Create(ctx context.Context, req dto.CreateBulletinRequest, claims *models.JWTClaims) (*models.Bulletin, error)
	List(ctx context.Context, query dto.BulletinQuery, claims *models.JWTClaims) ([]models.Bulletin, *models.Pagination, error)
	Highlights(ctx context.Context, page, pageSize int) ([]models.Bulletin, *models.Pagination, error)
	Decide(ctx context.Context, id string, approved bool, claims *models.JWTClaims) (*models.Bulletin, error)
}

// BulletinHandler exposes bulletin submission and moderation.
type BulletinHandler struct {
	service bulletinService
}

// NewBulletinHandler constructs the handler.
func NewBulletinHandler(svc bulletinService) *BulletinHandler {
	return &BulletinHandler{service: svc}
}

// Create godoc
// @Summary Submit bulletin
// @Description Submit a bulletin for moderation. New bulletins start pending.
// @Tags Bulletins
// @Accept json
// @Produce json
// @Param payload body dto.CreateBulletinRequest true "Bulletin payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /bulletins [post]
func (h *BulletinHandler) Create(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	var req dto.CreateBulletinRequest
	if !bindJSON(c, &req) {
		return
	}
	bulletin, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, bulletin)
}

// List godoc
// @Summary List bulletins
// @Description Approved bulletins for everyone; moderators may filter by status.
// @Tags Bulletins
// @Produce json
// @Param status query string false "pending, approved, rejected or all (moderators only)"
// @Param author_id query string false "Author"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /bulletins [get]
func (h *BulletinHandler) List(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	var query dto.BulletinQuery
	if !bindQuery(c, &query) {
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Highlights godoc
// @Summary Highlighted bulletins
// @Tags Bulletins
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /bulletins/highlights [get]
func (h *BulletinHandler) Highlights(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	items, pagination, err := h.service.Highlights(c.Request.Context(), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Moderate godoc
// @Summary Approve or reject bulletin
// @Description Moves a pending bulletin to approved or rejected. Decided bulletins return 409.
// @Tags Bulletins
// @Accept json
// @Produce json
// @Param id path string true "Bulletin ID"
// @Param payload body dto.ModerateBulletinRequest true "Verdict"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bulletins/{id}/approve [post]
func (h *BulletinHandler) Moderate(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	var req dto.ModerateBulletinRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Approved == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "approved is required"))
		return
	}
	bulletin, err := h.service.Decide(c.Request.Context(), c.Param("id"), *req.Approved, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, bulletin)
}
