package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-ops-api/internal/dto"
	"github.com/noah-isme/lab-ops-api/internal/models"
	"github.com/noah-isme/lab-ops-api/pkg/response"
)

type userService interface {
	Roster(ctx context.Context, query dto.RosterQuery, claims *models.JWTClaims) ([]models.User, *models.Pagination, error)
	ChangeRole(ctx context.Context, targetID string, req dto.ChangeRoleRequest, claims *models.JWTClaims, meta models.RequestMeta) (*models.User, error)
}

// UserHandler handles roster and role change endpoints.
type UserHandler struct {
	service userService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// Students godoc
// @Summary Student roster
// @Tags Users
// @Produce json
// @Param search query string false "Search by name or email"
// @Param supervisor_email query string false "Supervisor email"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users/students [get]
func (h *UserHandler) Students(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	var query dto.RosterQuery
	if !bindQuery(c, &query) {
		return
	}
	users, pagination, err := h.service.Roster(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// Promote godoc
// @Summary Promote user
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body dto.ChangeRoleRequest true "New role"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users/{id}/promote [post]
func (h *UserHandler) Promote(c *gin.Context) {
	h.changeRole(c, models.RolePromote)
}

// Demote godoc
// @Summary Demote user
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body dto.ChangeRoleRequest true "New role"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users/{id}/demote [post]
func (h *UserHandler) Demote(c *gin.Context) {
	h.changeRole(c, models.RoleDemote)
}

func (h *UserHandler) changeRole(c *gin.Context, direction models.RoleChange) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	var req dto.ChangeRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Direction = direction
	user, err := h.service.ChangeRole(c.Request.Context(), c.Param("id"), req, claimsFromContext(c), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}
