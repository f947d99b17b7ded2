package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-ops-api/internal/dto"
	"github.com/noah-isme/lab-ops-api/internal/models"
	"github.com/noah-isme/lab-ops-api/pkg/response"
)

type noteService interface {
	Create(ctx context.Context, req dto.CreateNoteRequest, claims *models.JWTClaims) (*models.Note, error)
	List(ctx context.Context, query dto.NoteQuery, claims *models.JWTClaims) ([]models.Note, error)
}

// NoteHandler exposes supervisor notes.
type NoteHandler struct {
	service noteService
}

// NewNoteHandler constructs the handler.
func NewNoteHandler(svc noteService) *NoteHandler {
	return &NoteHandler{service: svc}
}

// Create godoc
// @Summary Create note
// @Tags Notes
// @Accept json
// @Produce json
// @Param payload body dto.CreateNoteRequest true "Note payload"
// @Success 201 {object} response.Envelope
// @Router /notes [post]
func (h *NoteHandler) Create(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	var req dto.CreateNoteRequest
	if !bindJSON(c, &req) {
		return
	}
	note, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, note)
}

// List godoc
// @Summary List notes
// @Description Students only see notes that are not private.
// @Tags Notes
// @Produce json
// @Param student_id query string false "Student filter"
// @Param note_type query string false "Note type"
// @Success 200 {object} response.Envelope
// @Router /notes [get]
func (h *NoteHandler) List(c *gin.Context) {
	if h.service == nil {
		serviceUnavailable(c)
		return
	}
	var query dto.NoteQuery
	if !bindQuery(c, &query) {
		return
	}
	notes, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, notes)
}
