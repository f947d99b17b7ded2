package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-ops-api/internal/dto"
	"github.com/noah-isme/lab-ops-api/internal/models"
	"github.com/noah-isme/lab-ops-api/pkg/response"
)

type meetingService interface {
	Create(ctx context.Context, req dto.CreateMeetingRequest, claims *models.JWTClaims) (*models.Meeting, error)
	Upcoming(ctx context.Context, claims *models.JWTClaims) ([]models.Meeting, error)
}

// MeetingHandler exposes meeting scheduling.
type MeetingHandler struct {
	service meetingService
}

// NewMeetingHandler constructs the handler.
func NewMeetingHandler(svc meetingService) *MeetingHandler {
	return &MeetingHandler{service: svc}
}

// Create godoc
// @Summary Schedule meeting
// @Tags Meetings
// @Accept json
// @Produce json
// @Param payload body dto.CreateMeetingRequest true "Meeting payload"
// @Success 201 {object} response.Envelope
// @Router /meetings [post]
func (h *MeetingHandler) Create(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	var req dto.CreateMeetingRequest
	if !bindJSON(c, &req) {
		return
	}
	meeting, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, meeting)
}

// List godoc
// @Summary Upcoming meetings
// @Tags Meetings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /meetings [get]
func (h *MeetingHandler) List(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	meetings, err := h.service.Upcoming(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, meetings)
}
