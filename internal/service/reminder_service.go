package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-ops-api/internal/authz"
	"github.com/noah-isme/lab-ops-api/internal/dto"
	"github.com/noah-isme/lab-ops-api/internal/models"
	appErrors "github.com/noah-isme/lab-ops-api/pkg/errors"
)

type reminderStore interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	GetByID(ctx context.Context, id string) (*models.Reminder, error)
	ListByUser(ctx context.Context, userID string, includeCompleted bool) ([]models.Reminder, error)
	Complete(ctx context.Context, id string) (*models.Reminder, error)
}

// ReminderService manages personal reminders. Only the owner may touch one.
type ReminderService struct {
	repo      reminderStore
	gate      authorizer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReminderService constructs the service.
func NewReminderService(repo reminderStore, gate authorizer, validate *validator.Validate, logger *zap.Logger) *ReminderService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{repo: repo, gate: gate, validator: validate, logger: logger}
}

// Create stores a reminder for the caller.
func (s *ReminderService) Create(ctx context.Context, req dto.CreateReminderRequest, claims *models.JWTClaims) (*models.Reminder, error) {
	actor := authz.ActorFromClaims(claims)
	if _, err := authorize(s.gate, claims, authz.ActionReminderManage, authz.Target{OwnerID: actor.UserID}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reminder payload")
	}
	priority := models.Priority(strings.ToLower(req.Priority))
	if priority == "" {
		priority = models.PriorityMedium
	}
	reminder := &models.Reminder{UserID: actor.UserID, Title: strings.TrimSpace(req.Title), DueAt: req.DueAt, Priority: priority}
	if err := s.repo.Create(ctx, reminder); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reminder")
	}
	return reminder, nil
}

// List returns the caller's reminders.
func (s *ReminderService) List(ctx context.Context, includeCompleted bool, claims *models.JWTClaims) ([]models.Reminder, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	reminders, err := s.repo.ListByUser(ctx, claims.UserID, includeCompleted)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reminders")
	}
	return reminders, nil
}

// Complete marks one of the caller's reminders done.
func (s *ReminderService) Complete(ctx context.Context, id string, claims *models.JWTClaims) (*models.Reminder, error) {
	reminder, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reminder not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reminder")
	}
	if _, err := authorize(s.gate, claims, authz.ActionReminderManage, authz.Target{OwnerID: reminder.UserID}); err != nil {
		return nil, err
	}
	if reminder.IsCompleted {
		return reminder, nil
	}
	updated, err := s.repo.Complete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reminder not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete reminder")
	}
	return updated, nil
}
