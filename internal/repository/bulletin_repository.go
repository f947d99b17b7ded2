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

const bulletinColumns = `id, title, content, author_id, status, is_highlight, moderated_by, moderated_at, created_at`

// BulletinRepository persists lab bulletins and their moderation state.
type BulletinRepository struct {
	db *sqlx.DB
}

// NewBulletinRepository constructs the repository.
func NewBulletinRepository(db *sqlx.DB) *BulletinRepository {
	return &BulletinRepository{db: db}
}

// Create inserts a new bulletin in pending state.
func (r *BulletinRepository) Create(ctx context.Context, bulletin *models.Bulletin) error {
	if bulletin.ID == "" {
		bulletin.ID = uuid.NewString()
	}
	if bulletin.Status == "" {
		bulletin.Status = models.BulletinStatusPending
	}
	if bulletin.CreatedAt.IsZero() {
		bulletin.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO bulletins (id, title, content, author_id, status, is_highlight, created_at)
	VALUES (:id, :title, :content, :author_id, :status, :is_highlight, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, bulletin); err != nil {
		return fmt.Errorf("create bulletin: %w", err)
	}
	return nil
}

// GetByID fetches a bulletin by identifier.
func (r *BulletinRepository) GetByID(ctx context.Context, id string) (*models.Bulletin, error) {
	query := `SELECT ` + bulletinColumns + ` FROM bulletins WHERE id = $1`
	var bulletin models.Bulletin
	if err := r.db.GetContext(ctx, &bulletin, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get bulletin: %w", err)
	}
	return &bulletin, nil
}

// List returns bulletins matching the filter, newest first, with the total count.
func (r *BulletinRepository) List(ctx context.Context, filter models.BulletinFilter) ([]models.Bulletin, int, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.HighlightOnly {
		conditions = append(conditions, "is_highlight = TRUE")
	}
	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		conditions = append(conditions, fmt.Sprintf("author_id = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit, offset, _ := pageWindow(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s FROM bulletins%s ORDER BY created_at DESC LIMIT %d OFFSET %d", bulletinColumns, where, limit, offset)

	var bulletins []models.Bulletin
	if err := r.db.SelectContext(ctx, &bulletins, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list bulletins: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM bulletins"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count bulletins: %w", err)
	}
	return bulletins, total, nil
}

// TransitionStatus moves a bulletin out of pending. The update only applies while
// the stored status is still pending; sql.ErrNoRows means another moderator won.
func (r *BulletinRepository) TransitionStatus(ctx context.Context, id string, next models.BulletinStatus, moderatorID string, at time.Time) (*models.Bulletin, error) {
	query := `UPDATE bulletins SET status = $2, moderated_by = $3, moderated_at = $4
	WHERE id = $1 AND status = '` + string(models.BulletinStatusPending) + `'
	RETURNING ` + bulletinColumns
	var bulletin models.Bulletin
	if err := r.db.GetContext(ctx, &bulletin, query, id, next, moderatorID, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("transition bulletin: %w", err)
	}
	return &bulletin, nil
}
