package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-ops-api/internal/authz"
	"github.com/noah-isme/lab-ops-api/internal/dto"
	"github.com/noah-isme/lab-ops-api/internal/models"
	appErrors "github.com/noah-isme/lab-ops-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	UpdateRole(ctx context.Context, id string, expected, next models.UserRole) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService reads lab members and changes their role. Accounts themselves are
// provisioned by the auth service.
type UserService struct {
	repo      userRepository
	gate      authorizer
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, gate authorizer, notifier notifier, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &UserService{repo: repo, gate: gate, notifier: notifier, validator: validate, logger: logger}
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get user")
	}
	return user, nil
}

// Roster lists active students, optionally narrowed to one supervisor.
func (s *UserService) Roster(ctx context.Context, query dto.RosterQuery, claims *models.JWTClaims) ([]models.User, *models.Pagination, error) {
	if _, err := authorize(s.gate, claims, authz.ActionRosterView, authz.Target{}); err != nil {
		return nil, nil, err
	}
	role := models.RoleStudent
	filter := models.UserFilter{
		Role:            &role,
		SupervisorEmail: strings.TrimSpace(query.SupervisorEmail),
		Search:          strings.TrimSpace(query.Search),
		Page:            query.Page,
		PageSize:        query.PageSize,
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, paginationOf(filter.Page, filter.PageSize, total), nil
}

// ChangeRole promotes or demotes another user. The stored role is swapped only
// if nobody changed it since it was read; a lost race yields CONFLICT.
func (s *UserService) ChangeRole(ctx context.Context, targetID string, req dto.ChangeRoleRequest, claims *models.JWTClaims, meta models.RequestMeta) (*models.User, error) {
	actor, err := authorize(s.gate, claims, authz.ActionUserChangeRole, authz.Target{SubjectID: targetID})
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	next := models.UserRole(strings.ToLower(req.NewRole))
	if !next.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}

	user, err := s.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if user.Role == next {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("user already has role %s", next))
	}
	if !req.Direction.Permits(user.Role, next) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot %s %s to %s", req.Direction, user.Role, next))
	}
	previous := user.Role

	if err := s.repo.UpdateRole(ctx, targetID, previous, next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "role was changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change role")
	}
	user.Role = next

	s.recordAudit(ctx, actor.UserID, user, previous, meta)
	s.notifier.Notify(ctx, models.NewEvent(models.EventRoleChanged, map[string]interface{}{
		"user_id":       user.ID,
		"previous_role": previous,
		"role":          next,
		"changed_by":    actor.UserID,
	}, user.ID))
	return user, nil
}

func (s *UserService) recordAudit(ctx context.Context, actorID string, user *models.User, previous models.UserRole, meta models.RequestMeta) {
	oldValues, _ := json.Marshal(map[string]interface{}{"role": previous})
	newValues, _ := json.Marshal(map[string]interface{}{"role": user.Role})
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionRoleChange,
		Resource:   "user",
		ResourceID: &user.ID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
	}
	if err := s.repo.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record role change audit", zap.String("user_id", user.ID), zap.Error(err))
	}
}
