package service

import (
	"context"
	"database/sql"
	"errors"
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

type taskStore interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error)
	Update(ctx context.Context, params repository.TaskUpdateParams) (*models.Task, error)
}

type dueDaysResolver interface {
	TaskDefaultDueDays(ctx context.Context, labID string) int
}

// TaskService manages task assignment, progress reporting and supervisor review.
// The overdue state is derived on every read and never stored.
type TaskService struct {
	repo      taskStore
	gate      authorizer
	notifier  notifier
	settings  dueDaysResolver
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewTaskService constructs the service. settings may be nil, in which case
// tasks without a due date are due after seven days.
func NewTaskService(repo taskStore, gate authorizer, notifier notifier, settings dueDaysResolver, validate *validator.Validate, logger *zap.Logger) *TaskService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &TaskService{repo: repo, gate: gate, notifier: notifier, settings: settings, validator: validate, logger: logger, now: utcNow}
}

// Create assigns a task. Students may only create tasks for themselves.
func (s *TaskService) Create(ctx context.Context, req dto.CreateTaskRequest, claims *models.JWTClaims) (*models.Task, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	assignee := strings.TrimSpace(req.AssignedTo)
	if assignee == "" {
		assignee = claims.UserID
	}
	actor, err := authorize(s.gate, claims, authz.ActionTaskCreate, authz.Target{OwnerID: assignee})
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}

	priority := models.Priority(strings.ToLower(req.Priority))
	if priority == "" {
		priority = models.PriorityMedium
	}
	now := s.now()
	var due time.Time
	if req.DueDate != nil {
		due = req.DueDate.UTC()
	} else {
		due = now.AddDate(0, 0, s.defaultDueDays(ctx, claims.LabID))
	}

	task := &models.Task{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		AssignedTo:  assignee,
		CreatedBy:   actor.UserID,
		Status:      models.TaskStatusPending,
		Priority:    priority,
		DueDate:     due,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create task")
	}
	task.Derive(now)
	s.notifier.Notify(ctx, models.NewEvent(models.EventTaskAssigned, task, task.AssignedTo))
	return task, nil
}

func (s *TaskService) defaultDueDays(ctx context.Context, labID string) int {
	if s.settings == nil {
		return 7
	}
	return s.settings.TaskDefaultDueDays(ctx, labID)
}

// Get returns a task with its derived display status. Students may only read
// tasks they own or created.
func (s *TaskService) Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.Task, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if claims.Role == models.RoleStudent && task.AssignedTo != claims.UserID && task.CreatedBy != claims.UserID {
		return nil, authz.Decision{Reason: authz.ReasonNotOwner}.Err()
	}
	task.Derive(s.now())
	return task, nil
}

// List returns tasks. Students only see tasks assigned to them.
func (s *TaskService) List(ctx context.Context, query dto.TaskQuery, claims *models.JWTClaims) ([]models.Task, *models.Pagination, error) {
	if claims == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter := models.TaskFilter{AssignedTo: query.AssignedTo, CreatedBy: query.CreatedBy, Page: query.Page, PageSize: query.PageSize}
	if claims.Role == models.RoleStudent {
		filter.AssignedTo = claims.UserID
	}
	if query.Status != "" {
		filter.Status = models.TaskStatus(strings.ToLower(query.Status))
		if !filter.Status.Storable() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be pending, in_progress or completed")
		}
	}
	tasks, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}
	now := s.now()
	for i := range tasks {
		tasks[i].Derive(now)
	}
	return tasks, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Update applies progress, review and status changes. Each field group is
// gated separately: progress by the assignee, rating and feedback by a
// supervisor, status by grant staff. Progress is clamped to [0, 100] and never
// changes the status by itself.
func (s *TaskService) Update(ctx context.Context, id string, req dto.UpdateTaskRequest, claims *models.JWTClaims) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}
	if req.ProgressPercentage == nil && req.Status == nil && req.SupervisorRating == nil && req.SupervisorFeedback == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no changes supplied")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	params := repository.TaskUpdateParams{ID: id}
	if req.ProgressPercentage != nil {
		if _, err := authorize(s.gate, claims, authz.ActionTaskUpdateProgress, authz.Target{OwnerID: current.AssignedTo}); err != nil {
			return nil, err
		}
		progress := models.ClampProgress(*req.ProgressPercentage)
		params.ProgressPercentage = &progress
	}
	if req.SupervisorRating != nil || req.SupervisorFeedback != nil {
		if _, err := authorize(s.gate, claims, authz.ActionTaskReview, authz.Target{OwnerID: current.AssignedTo}); err != nil {
			return nil, err
		}
		params.SupervisorRating = req.SupervisorRating
		params.SupervisorFeedback = req.SupervisorFeedback
	}
	if req.Status != nil {
		if _, err := authorize(s.gate, claims, authz.ActionTaskSetStatus, authz.Target{OwnerID: current.AssignedTo}); err != nil {
			return nil, err
		}
		status := models.TaskStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		if !status.Storable() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "status must be pending, in_progress or completed")
		}
		params.Status = &status
	}

	updated, err := s.repo.Update(ctx, params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update task")
	}
	updated.Derive(s.now())

	if params.ProgressPercentage != nil {
		s.notifier.Notify(ctx, models.NewEvent(models.EventTaskUpdated, updated, updated.CreatedBy))
	}
	if params.SupervisorRating != nil || params.SupervisorFeedback != nil || params.Status != nil {
		s.notifier.Notify(ctx, models.NewEvent(models.EventTaskUpdated, updated, updated.AssignedTo))
	}
	return updated, nil
}

func (s *TaskService) load(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	return task, nil
}
