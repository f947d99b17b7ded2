package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-ops-api/internal/models"
)

const taskColumns = `id, title, description, assigned_to, created_by, status, priority, progress_percentage,
	due_date, supervisor_rating, supervisor_feedback, created_at, updated_at`

// TaskRepository persists tasks. Tasks are never deleted.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository constructs the repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	const query = `INSERT INTO tasks
	(id, title, description, assigned_to, created_by, status, priority, progress_percentage, due_date, created_at, updated_at)
	VALUES (:id, :title, :description, :assigned_to, :created_by, :status, :priority, :progress_percentage, :due_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// GetByID fetches a task by identifier.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

// List returns tasks matching the filter ordered by due date.
func (r *TaskRepository) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if filter.AssignedTo != "" {
		args = append(args, filter.AssignedTo)
		conditions = append(conditions, fmt.Sprintf("assigned_to = $%d", len(args)))
	}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	limit, offset, _ := pageWindow(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s FROM tasks%s ORDER BY due_date ASC LIMIT %d OFFSET %d", taskColumns, where, limit, offset)

	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM tasks"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}
	return tasks, total, nil
}

// TaskUpdateParams lists the columns a single update may touch; nil fields are left as stored.
type TaskUpdateParams struct {
	ID                 string
	ProgressPercentage *int
	Status             *models.TaskStatus
	SupervisorRating   *int
	SupervisorFeedback *string
}

// Update applies the non-nil fields in one statement and returns the stored row.
func (r *TaskRepository) Update(ctx context.Context, params TaskUpdateParams) (*models.Task, error) {
	setParts := []string{"updated_at = :updated_at"}
	if params.ProgressPercentage != nil {
		setParts = append(setParts, "progress_percentage = :progress_percentage")
	}
	if params.Status != nil {
		setParts = append(setParts, "status = :status")
	}
	if params.SupervisorRating != nil {
		setParts = append(setParts, "supervisor_rating = :supervisor_rating")
	}
	if params.SupervisorFeedback != nil {
		setParts = append(setParts, "supervisor_feedback = :supervisor_feedback")
	}
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = :id RETURNING %s", strings.Join(setParts, ", "), taskColumns)
	named, args, err := r.db.BindNamed(query, map[string]interface{}{
		"id":                  params.ID,
		"updated_at":          time.Now().UTC(),
		"progress_percentage": params.ProgressPercentage,
		"status":              params.Status,
		"supervisor_rating":   params.SupervisorRating,
		"supervisor_feedback": params.SupervisorFeedback,
	})
	if err != nil {
		return nil, fmt.Errorf("bind task update: %w", err)
	}
	var task models.Task
	if err := r.db.GetContext(ctx, &task, named, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return &task, nil
}
