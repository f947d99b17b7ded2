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
	"github.com/noah-isme/lab-ops-api/internal/repository"
	appErrors "github.com/noah-isme/lab-ops-api/pkg/errors"
)

type grantStore interface {
	Create(ctx context.Context, grant *models.Grant) error
	GetByID(ctx context.Context, id string) (*models.Grant, error)
	List(ctx context.Context, filter models.GrantFilter) ([]models.Grant, int, error)
	ListAll(ctx context.Context) ([]models.Grant, error)
	Update(ctx context.Context, params repository.GrantUpdateParams) (*models.Grant, error)
	TransitionStatus(ctx context.Context, id string, from, to models.GrantStatus) (*models.Grant, error)
	Register(ctx context.Context, registration *models.GrantRegistration) (bool, error)
	RegistrationExists(ctx context.Context, grantID, studentID string) (bool, error)
	ListRegistrations(ctx context.Context, grantID string) ([]models.GrantRegistration, error)
	RegisteredStudentIDs(ctx context.Context, grantID string) ([]string, error)
	RecordExpenditure(ctx context.Context, expenditure *models.GrantExpenditure) (*models.Grant, error)
	ListExpenditures(ctx context.Context, grantID string) ([]models.GrantExpenditure, error)
}

// GrantService maintains the grant ledger. Every balance change goes through a
// guarded statement in the store so remaining_balance never leaves [0, total_amount].
type GrantService struct {
	repo      grantStore
	gate      authorizer
	notifier  notifier
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGrantService constructs the service.
func NewGrantService(repo grantStore, gate authorizer, notifier notifier, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *GrantService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &GrantService{repo: repo, gate: gate, notifier: notifier, audit: audit, validator: validate, logger: logger}
}

// Create registers a grant with its full amount available.
func (s *GrantService) Create(ctx context.Context, req dto.CreateGrantRequest, claims *models.JWTClaims) (*models.Grant, error) {
	actor, err := authorize(s.gate, claims, authz.ActionGrantCreate, authz.Target{})
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grant payload")
	}
	if err := validateGrantDates(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	status := models.GrantStatus(strings.ToLower(req.Status))
	if status == "" {
		status = models.GrantStatusPending
	}
	grant := &models.Grant{
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		TotalAmount:    req.TotalAmount,
		Status:         status,
		PersonInCharge: req.PersonInCharge,
		DurationMonths: req.DurationMonths,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		CreatedBy:      actor.UserID,
	}
	if err := s.repo.Create(ctx, grant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grant")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionGrantCreate, grant.ID, nil, grant)
	return grant, nil
}

// Get returns a grant by id.
func (s *GrantService) Get(ctx context.Context, id string) (*models.Grant, error) {
	grant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grant")
	}
	return grant, nil
}

// List returns grants matching the query.
func (s *GrantService) List(ctx context.Context, query dto.GrantQuery) ([]models.Grant, *models.Pagination, error) {
	filter := models.GrantFilter{Page: query.Page, PageSize: query.PageSize}
	if query.Status != "" {
		filter.Status = models.GrantStatus(strings.ToLower(query.Status))
		if !filter.Status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown grant status")
		}
	}
	grants, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grants")
	}
	return grants, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Update edits grant details. A new total shifts the remaining balance by the
// same delta; an edit that would drive the balance negative is refused.
func (s *GrantService) Update(ctx context.Context, id string, req dto.UpdateGrantRequest, claims *models.JWTClaims) (*models.Grant, error) {
	actor, err := authorize(s.gate, claims, authz.ActionGrantEdit, authz.Target{})
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grant payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	params := repository.GrantUpdateParams{
		ID:             id,
		ExpectedTotal:  current.TotalAmount,
		TotalAmount:    current.TotalAmount,
		Title:          current.Title,
		Description:    current.Description,
		PersonInCharge: current.PersonInCharge,
		DurationMonths: current.DurationMonths,
		StartDate:      current.StartDate,
		EndDate:        current.EndDate,
	}
	if req.Title != nil {
		params.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		params.Description = *req.Description
	}
	if req.TotalAmount != nil {
		params.TotalAmount = *req.TotalAmount
	}
	if req.PersonInCharge != nil {
		params.PersonInCharge = req.PersonInCharge
	}
	if req.DurationMonths != nil {
		params.DurationMonths = *req.DurationMonths
	}
	if req.StartDate != nil {
		params.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		params.EndDate = req.EndDate
	}
	if err := validateGrantDates(params.StartDate, params.EndDate); err != nil {
		return nil, err
	}
	spent := current.TotalAmount - current.RemainingBalance
	if params.TotalAmount < spent {
		return nil, appErrors.Clone(appErrors.ErrInsufficientBalance, fmt.Sprintf("total amount cannot be lower than the %d already spent", spent))
	}

	updated, err := s.repo.Update(ctx, params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.explainFailedUpdate(ctx, id, current.TotalAmount)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grant")
	}

	s.emitAudit(ctx, actor.UserID, models.AuditActionGrantUpdate, id, current, updated)
	s.notifyGrantUpdated(ctx, updated)
	return updated, nil
}

func (s *GrantService) explainFailedUpdate(ctx context.Context, id string, expectedTotal int64) error {
	latest, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if latest.TotalAmount != expectedTotal {
		return appErrors.Clone(appErrors.ErrConflict, "grant was modified concurrently")
	}
	return appErrors.Clone(appErrors.ErrInsufficientBalance, "edit would make the remaining balance negative")
}

// SetStatus moves a grant along pending -> active -> suspended|completed.
func (s *GrantService) SetStatus(ctx context.Context, id string, req dto.GrantStatusRequest, claims *models.JWTClaims) (*models.Grant, error) {
	actor, err := authorize(s.gate, claims, authz.ActionGrantSetStatus, authz.Target{})
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := models.GrantStatus(strings.ToLower(req.Status))
	if !current.Status.CanTransitionTo(next) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("grant cannot move from %s to %s", current.Status, next))
	}
	updated, err := s.repo.TransitionStatus(ctx, id, current.Status, next)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "grant status changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change grant status")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionGrantStatus, id,
		map[string]interface{}{"status": current.Status}, map[string]interface{}{"status": updated.Status})
	s.notifyGrantUpdated(ctx, updated)
	return updated, nil
}

// Register enrolls the calling student on an active grant. A second
// registration by the same student fails with ALREADY_REGISTERED.
func (s *GrantService) Register(ctx context.Context, grantID string, claims *models.JWTClaims) (*models.GrantRegistration, error) {
	actor, err := authorize(s.gate, claims, authz.ActionGrantRegister, authz.Target{})
	if err != nil {
		return nil, err
	}
	grant, err := s.Get(ctx, grantID)
	if err != nil {
		return nil, err
	}
	registration := &models.GrantRegistration{GrantID: grantID, StudentID: actor.UserID}
	inserted, err := s.repo.Register(ctx, registration)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register for grant")
	}
	if !inserted {
		exists, err := s.repo.RegistrationExists(ctx, grantID, actor.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check grant registration")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrAlreadyRegistered, "already registered for this grant")
		}
		return nil, appErrors.Clone(appErrors.ErrGrantNotActive, "grant is not accepting registrations")
	}

	if grant.PersonInCharge != nil {
		s.notifier.Notify(ctx, models.NewEvent(models.EventGrantRegistered, registration, *grant.PersonInCharge))
	}
	return registration, nil
}

// Registrations lists students registered on a grant.
func (s *GrantService) Registrations(ctx context.Context, grantID string) ([]models.GrantRegistration, error) {
	if _, err := s.Get(ctx, grantID); err != nil {
		return nil, err
	}
	registrations, err := s.repo.ListRegistrations(ctx, grantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grant registrations")
	}
	return registrations, nil
}

// RecordExpenditure debits an active grant. Amounts above the remaining balance
// are refused and leave the grant untouched.
func (s *GrantService) RecordExpenditure(ctx context.Context, grantID string, req dto.RecordExpenditureRequest, claims *models.JWTClaims) (*models.Grant, error) {
	actor, err := authorize(s.gate, claims, authz.ActionGrantRecordExpenditure, authz.Target{})
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "amount must be positive")
	}
	before, err := s.Get(ctx, grantID)
	if err != nil {
		return nil, err
	}

	expenditure := &models.GrantExpenditure{
		GrantID:     grantID,
		Amount:      req.Amount,
		Description: req.Description,
		RecordedBy:  actor.UserID,
	}
	updated, err := s.repo.RecordExpenditure(ctx, expenditure)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.explainFailedDebit(ctx, grantID, req.Amount)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record expenditure")
	}

	s.emitAudit(ctx, actor.UserID, models.AuditActionGrantExpenditure, grantID,
		map[string]interface{}{"remaining_balance": before.RemainingBalance},
		map[string]interface{}{"remaining_balance": updated.RemainingBalance, "amount": req.Amount})
	s.notifyGrantUpdated(ctx, updated)
	return updated, nil
}

func (s *GrantService) explainFailedDebit(ctx context.Context, grantID string, amount int64) error {
	latest, err := s.Get(ctx, grantID)
	if err != nil {
		return err
	}
	if latest.Status != models.GrantStatusActive {
		return appErrors.Clone(appErrors.ErrGrantNotActive, "expenditures can only be recorded on active grants")
	}
	return appErrors.Clone(appErrors.ErrInsufficientBalance, fmt.Sprintf("remaining balance %d does not cover %d", latest.RemainingBalance, amount))
}

// Expenditures lists the ledger entries of a grant.
func (s *GrantService) Expenditures(ctx context.Context, grantID string) ([]models.GrantExpenditure, error) {
	if _, err := s.Get(ctx, grantID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListExpenditures(ctx, grantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expenditures")
	}
	return items, nil
}

// Summary aggregates the grant dashboard from stored rows on every call.
func (s *GrantService) Summary(ctx context.Context) (*models.GrantSummary, error) {
	grants, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise grants")
	}
	summary := models.SummarizeGrants(grants)
	return &summary, nil
}

func (s *GrantService) notifyGrantUpdated(ctx context.Context, grant *models.Grant) {
	targets, err := s.repo.RegisteredStudentIDs(ctx, grant.ID)
	if err != nil {
		s.logger.Warn("failed to resolve grant audience", zap.String("grant_id", grant.ID), zap.Error(err))
	}
	if grant.PersonInCharge != nil {
		targets = append(targets, *grant.PersonInCharge)
	}
	s.notifier.Notify(ctx, models.NewEvent(models.EventGrantUpdated, grant, targets...))
}

func (s *GrantService) emitAudit(ctx context.Context, userID, action, grantID string, oldValue, newValue interface{}) {
	if s.audit == nil {
		return
	}
	var oldValues, newValues []byte
	if oldValue != nil {
		oldValues, _ = json.Marshal(oldValue)
	}
	if newValue != nil {
		newValues, _ = json.Marshal(newValue)
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "grant",
		ResourceID: &grantID,
		OldValues:  oldValues,
		NewValues:  newValues,
	}); err != nil {
		s.logger.Warn("failed to record grant audit log", zap.String("grant_id", grantID), zap.String("action", action), zap.Error(err))
	}
}

func validateGrantDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	return nil
}
