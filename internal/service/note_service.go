package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-ops-api/internal/authz"
	"github.com/noah-isme/lab-ops-api/internal/dto"
	"github.com/noah-isme/lab-ops-api/internal/models"
	appErrors "github.com/noah-isme/lab-ops-api/pkg/errors"
)

type noteStore interface {
	Create(ctx context.Context, note *models.Note) error
	List(ctx context.Context, filter models.NoteFilter) ([]models.Note, error)
}

// NoteService stores supervisor notes. Private notes are hidden from students.
type NoteService struct {
	repo      noteStore
	gate      authorizer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNoteService constructs the service.
func NewNoteService(repo noteStore, gate authorizer, validate *validator.Validate, logger *zap.Logger) *NoteService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoteService{repo: repo, gate: gate, validator: validate, logger: logger}
}

// Create stores a note authored by the caller.
func (s *NoteService) Create(ctx context.Context, req dto.CreateNoteRequest, claims *models.JWTClaims) (*models.Note, error) {
	actor, err := authorize(s.gate, claims, authz.ActionNoteCreate, authz.Target{})
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload")
	}
	note := &models.Note{
		AuthorID:  actor.UserID,
		StudentID: req.StudentID,
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
		NoteType:  strings.TrimSpace(req.NoteType),
		IsPrivate: req.IsPrivate,
	}
	if err := s.repo.Create(ctx, note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create note")
	}
	return note, nil
}

// List returns notes visible to the caller.
func (s *NoteService) List(ctx context.Context, query dto.NoteQuery, claims *models.JWTClaims) ([]models.Note, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	actor := authz.ActorFromClaims(claims)
	filter := models.NoteFilter{
		StudentID:      query.StudentID,
		NoteType:       query.NoteType,
		IncludePrivate: s.gate.Authorize(actor, authz.ActionNoteViewPrivate, authz.Target{}).Allowed,
	}
	notes, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notes")
	}
	return notes, nil
}
