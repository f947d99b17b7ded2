package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-ops-api/internal/authz"
	"github.com/noah-isme/lab-ops-api/internal/dto"
	"github.com/noah-isme/lab-ops-api/internal/models"
	"github.com/noah-isme/lab-ops-api/internal/repository"
	appErrors "github.com/noah-isme/lab-ops-api/pkg/errors"
)

type researchLogStore interface {
	Create(ctx context.Context, log *models.ResearchLog) error
	GetByID(ctx context.Context, id string) (*models.ResearchLog, error)
	List(ctx context.Context, filter models.ResearchLogFilter) ([]models.ResearchLog, int, error)
	Endorse(ctx context.Context, params repository.EndorsementParams) (*models.ResearchLog, error)
}

// ResearchLogService records student activity and supervisor endorsements.
// An endorsement can be revised any number of times.
type ResearchLogService struct {
	repo      researchLogStore
	gate      authorizer
	notifier  notifier
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResearchLogService constructs the service.
func NewResearchLogService(repo researchLogStore, gate authorizer, notifier notifier, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *ResearchLogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &ResearchLogService{repo: repo, gate: gate, notifier: notifier, audit: audit, validator: validate, logger: logger}
}

// Create stores a research log owned by the calling student.
func (s *ResearchLogService) Create(ctx context.Context, req dto.CreateResearchLogRequest, claims *models.JWTClaims) (*models.ResearchLog, error) {
	actor := authz.ActorFromClaims(claims)
	if _, err := authorize(s.gate, claims, authz.ActionResearchLogCreate, authz.Target{OwnerID: actor.UserID}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid research log payload")
	}
	activity := utcNow()
	if req.ActivityDate != nil {
		activity = req.ActivityDate.UTC()
	}
	log := &models.ResearchLog{
		StudentID:    actor.UserID,
		Title:        strings.TrimSpace(req.Title),
		Content:      req.Content,
		ActivityDate: activity,
	}
	if err := s.repo.Create(ctx, log); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create research log")
	}
	return log, nil
}

// List returns research logs. Students only see their own.
func (s *ResearchLogService) List(ctx context.Context, query dto.ResearchLogQuery, claims *models.JWTClaims) ([]models.ResearchLog, *models.Pagination, error) {
	if claims == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter := models.ResearchLogFilter{StudentID: query.StudentID, Page: query.Page, PageSize: query.PageSize}
	if claims.Role == models.RoleStudent {
		filter.StudentID = claims.UserID
	}
	switch endorsement := strings.ToLower(query.Endorsement); endorsement {
	case "", "pending", "endorsed", "declined":
		filter.Endorsement = endorsement
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "endorsement must be pending, endorsed or declined")
	}
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list research logs")
	}
	return logs, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Endorse records or revises a supervisor verdict on a log.
func (s *ResearchLogService) Endorse(ctx context.Context, id string, req dto.EndorseResearchLogRequest, claims *models.JWTClaims) (*models.ResearchLog, error) {
	actor, err := authorize(s.gate, claims, authz.ActionResearchLogEndorse, authz.Target{})
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid endorsement payload")
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "research log not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load research log")
	}

	updated, err := s.repo.Endorse(ctx, repository.EndorsementParams{
		ID:         id,
		Endorsed:   *req.SupervisorEndorsement,
		Rating:     req.SupervisorRating,
		Comment:    req.SupervisorComment,
		EndorsedBy: actor.UserID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "research log not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to endorse research log")
	}

	if s.audit != nil {
		oldValues, _ := json.Marshal(map[string]interface{}{"supervisor_endorsement": current.SupervisorEndorsement})
		newValues, _ := json.Marshal(map[string]interface{}{"supervisor_endorsement": updated.SupervisorEndorsement, "supervisor_rating": updated.SupervisorRating})
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionResearchLogReview,
			Resource:   "research_log",
			ResourceID: &updated.ID,
			OldValues:  oldValues,
			NewValues:  newValues,
		}); err != nil {
			s.logger.Warn("failed to record research log audit", zap.String("research_log_id", id), zap.Error(err))
		}
	}
	s.notifier.Notify(ctx, models.NewEvent(models.EventResearchLogReviewed, updated, updated.StudentID))
	return updated, nil
}
