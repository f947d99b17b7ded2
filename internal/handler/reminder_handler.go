package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-ops-api/internal/dto"
	"github.com/noah-isme/lab-ops-api/internal/models"
	"github.com/noah-isme/lab-ops-api/pkg/response"
)

type reminderService interface {
	Create(ctx context.Context, req dto.CreateReminderRequest, claims *models.JWTClaims) (*models.Reminder, error)
	List(ctx context.Context, includeCompleted bool, claims *models.JWTClaims) ([]models.Reminder, error)
	Complete(ctx context.Context, id string, claims *models.JWTClaims) (*models.Reminder, error)
}

// ReminderHandler exposes personal reminders.
type ReminderHandler struct {
	service reminderService
}

// NewReminderHandler constructs the handler.
func NewReminderHandler(svc reminderService) *ReminderHandler {
	return &ReminderHandler{service: svc}
}

// Create godoc
// @Summary Create reminder
// @Tags Reminders
// @Accept json
// @Produce json
// @Param payload body dto.CreateReminderRequest true "Reminder payload"
// @Success 201 {object} response.Envelope
// @Router /reminders [post]
func (h *ReminderHandler) Create(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	var req dto.CreateReminderRequest
	if !bindJSON(c, &req) {
		return
	}
	reminder, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reminder)
}

// List godoc
// @Summary List reminders
// @Tags Reminders
// @Produce json
// @Param include_completed query bool false "Include completed reminders"
// @Success 200 {object} response.Envelope
// @Router /reminders [get]
func (h *ReminderHandler) List(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	includeCompleted, _ := strconv.ParseBool(c.DefaultQuery("include_completed", "false"))
	reminders, err := h.service.List(c.Request.Context(), includeCompleted, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reminders)
}

// Complete godoc
// @Summary Complete reminder
// @Tags Reminders
// @Produce json
// @Param id path string true "Reminder ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reminders/{id}/complete [put]
func (h *ReminderHandler) Complete(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	reminder, err := h.service.Complete(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reminder)
}
