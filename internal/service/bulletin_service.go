package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-ops-api/internal/authz"
	"github.com/noah-isme/lab-ops-api/internal/dto"
	"github.com/noah-isme/lab-ops-api/internal/models"
	appErrors "github.com/noah-isme/lab-ops-api/pkg/errors"
)

type bulletinStore interface {
	Create(ctx context.Context, bulletin *models.Bulletin) error
	GetByID(ctx context.Context, id string) (*models.Bulletin, error)
	List(ctx context.Context, filter models.BulletinFilter) ([]models.Bulletin, int, error)
	TransitionStatus(ctx context.Context, id string, next models.BulletinStatus, moderatorID string, at time.Time) (*models.Bulletin, error)
}

// BulletinService runs the bulletin moderation workflow:
// pending moves to approved or rejected exactly once.
type BulletinService struct {
	repo      bulletinStore
	gate      authorizer
	notifier  notifier
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBulletinService constructs the service.
func NewBulletinService(repo bulletinStore, gate authorizer, notifier notifier, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *BulletinService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &BulletinService{repo: repo, gate: gate, notifier: notifier, audit: audit, validator: validate, logger: logger}
}

// Create submits a bulletin for moderation. The highlight flag can only be set here.
func (s *BulletinService) Create(ctx context.Context, req dto.CreateBulletinRequest, claims *models.JWTClaims) (*models.Bulletin, error) {
	actor, err := authorize(s.gate, claims, authz.ActionBulletinCreate, authz.Target{})
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulletin payload")
	}
	bulletin := &models.Bulletin{
		Title:       strings.TrimSpace(req.Title),
		Content:     req.Content,
		AuthorID:    actor.UserID,
		Status:      models.BulletinStatusPending,
		IsHighlight: req.IsHighlight,
	}
	if err := s.repo.Create(ctx, bulletin); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create bulletin")
	}
	return bulletin, nil
}

// List returns bulletins visible to the caller. Only moderators see pending or
// rejected bulletins; everyone else sees approved ones.
func (s *BulletinService) List(ctx context.Context, query dto.BulletinQuery, claims *models.JWTClaims) ([]models.Bulletin, *models.Pagination, error) {
	if claims == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter := models.BulletinFilter{Status: models.BulletinStatusApproved, AuthorID: query.AuthorID, Page: query.Page, PageSize: query.PageSize}
	if claims.Role.IsModerator() {
		switch status := models.BulletinStatus(strings.ToLower(query.Status)); status {
		case models.BulletinStatusPending, models.BulletinStatusApproved, models.BulletinStatusRejected:
			filter.Status = status
		case "", "all":
			filter.Status = ""
		default:
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be pending, approved or rejected")
		}
	}
	return s.list(ctx, filter)
}

// Highlights returns approved bulletins flagged as highlights. Unapproved
// highlights are never surfaced.
func (s *BulletinService) Highlights(ctx context.Context, page, pageSize int) ([]models.Bulletin, *models.Pagination, error) {
	return s.list(ctx, models.BulletinFilter{Status: models.BulletinStatusApproved, HighlightOnly: true, Page: page, PageSize: pageSize})
}

func (s *BulletinService) list(ctx context.Context, filter models.BulletinFilter) ([]models.Bulletin, *models.Pagination, error) {
	bulletins, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bulletins")
	}
	return bulletins, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Approve moves a pending bulletin to approved.
func (s *BulletinService) Approve(ctx context.Context, id string, claims *models.JWTClaims) (*models.Bulletin, error) {
	return s.Decide(ctx, id, true, claims)
}

// Reject moves a pending bulletin to rejected.
func (s *BulletinService) Reject(ctx context.Context, id string, claims *models.JWTClaims) (*models.Bulletin, error) {
	return s.Decide(ctx, id, false, claims)
}

// Decide applies a moderation verdict. A bulletin that is already approved or
// rejected, or that another moderator decided concurrently, yields
// INVALID_TRANSITION and is left unchanged.
func (s *BulletinService) Decide(ctx context.Context, id string, approved bool, claims *models.JWTClaims) (*models.Bulletin, error) {
	actor, err := authorize(s.gate, claims, authz.ActionBulletinModerate, authz.Target{})
	if err != nil {
		return nil, err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "bulletin not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bulletin")
	}
	if current.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("bulletin is already %s", current.Status))
	}

	next := models.BulletinStatusRejected
	if approved {
		next = models.BulletinStatusApproved
	}
	updated, err := s.repo.TransitionStatus(ctx, id, next, actor.UserID, utcNow())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "bulletin was moderated concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to moderate bulletin")
	}

	s.emitAudit(ctx, actor.UserID, updated, current.Status)
	s.notifier.Notify(ctx, models.NewEvent(models.EventBulletinDecided, updated, updated.AuthorID))
	return updated, nil
}

func (s *BulletinService) emitAudit(ctx context.Context, moderatorID string, bulletin *models.Bulletin, previous models.BulletinStatus) {
	if s.audit == nil {
		return
	}
	oldValues, _ := json.Marshal(map[string]interface{}{"status": previous})
	newValues, _ := json.Marshal(map[string]interface{}{"status": bulletin.Status})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &moderatorID,
		Action:     models.AuditActionBulletinModerate,
		Resource:   "bulletin",
		ResourceID: &bulletin.ID,
		OldValues:  oldValues,
		NewValues:  newValues,
	}); err != nil {
		s.logger.Warn("failed to record bulletin audit log", zap.String("bulletin_id", bulletin.ID), zap.Error(err))
	}
}
