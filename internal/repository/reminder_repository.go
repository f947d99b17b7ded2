package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-ops-api/internal/models"
)

// ReminderRepository persists personal reminders.
type ReminderRepository struct {
	db *sqlx.DB
}

// NewReminderRepository constructs the repository.
func NewReminderRepository(db *sqlx.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Create inserts a reminder.
func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}
	reminder.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO reminders (id, user_id, title, due_at, priority, is_completed, created_at)
	VALUES (:id, :user_id, :title, :due_at, :priority, :is_completed, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, reminder); err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

// GetByID fetches a reminder.
func (r *ReminderRepository) GetByID(ctx context.Context, id string) (*models.Reminder, error) {
	const query = `SELECT id, user_id, title, due_at, priority, is_completed, created_at FROM reminders WHERE id = $1`
	var reminder models.Reminder
	if err := r.db.GetContext(ctx, &reminder, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	return &reminder, nil
}

// ListByUser returns a user's reminders, open ones first.
func (r *ReminderRepository) ListByUser(ctx context.Context, userID string, includeCompleted bool) ([]models.Reminder, error) {
	query := `SELECT id, user_id, title, due_at, priority, is_completed, created_at FROM reminders WHERE user_id = $1`
	if !includeCompleted {
		query += ` AND is_completed = FALSE`
	}
	query += ` ORDER BY is_completed ASC, due_at ASC NULLS LAST`
	var reminders []models.Reminder
	if err := r.db.SelectContext(ctx, &reminders, query, userID); err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return reminders, nil
}

// Complete marks a reminder done.
func (r *ReminderRepository) Complete(ctx context.Context, id string) (*models.Reminder, error) {
	const query = `UPDATE reminders SET is_completed = TRUE WHERE id = $1
	RETURNING id, user_id, title, due_at, priority, is_completed, created_at`
	var reminder models.Reminder
	if err := r.db.GetContext(ctx, &reminder, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("complete reminder: %w", err)
	}
	return &reminder, nil
}
