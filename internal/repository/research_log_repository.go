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

const researchLogColumns = `id, student_id, title, content, activity_date, supervisor_endorsement, supervisor_rating,
	supervisor_comment, endorsed_by, endorsed_at, created_at, updated_at`

// ResearchLogRepository persists student research logs.
type ResearchLogRepository struct {
	db *sqlx.DB
}

// NewResearchLogRepository constructs the repository.
func NewResearchLogRepository(db *sqlx.DB) *ResearchLogRepository {
	return &ResearchLogRepository{db: db}
}

// Create inserts a new research log with no endorsement.
func (r *ResearchLogRepository) Create(ctx context.Context, log *models.ResearchLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	log.CreatedAt = now
	log.UpdatedAt = now
	log.SupervisorEndorsement = nil
	const query = `INSERT INTO research_logs (id, student_id, title, content, activity_date, created_at, updated_at)
	VALUES (:id, :student_id, :title, :content, :activity_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create research log: %w", err)
	}
	return nil
}

// GetByID fetches a research log by identifier.
func (r *ResearchLogRepository) GetByID(ctx context.Context, id string) (*models.ResearchLog, error) {
	query := `SELECT ` + researchLogColumns + ` FROM research_logs WHERE id = $1`
	var log models.ResearchLog
	if err := r.db.GetContext(ctx, &log, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get research log: %w", err)
	}
	return &log, nil
}

// List returns research logs matching the filter, most recent activity first.
func (r *ResearchLogRepository) List(ctx context.Context, filter models.ResearchLogFilter) ([]models.ResearchLog, int, error) {
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 1)
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	switch filter.Endorsement {
	case "pending":
		conditions = append(conditions, "supervisor_endorsement IS NULL")
	case "endorsed":
		conditions = append(conditions, "supervisor_endorsement = TRUE")
	case "declined":
		conditions = append(conditions, "supervisor_endorsement = FALSE")
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	limit, offset, _ := pageWindow(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s FROM research_logs%s ORDER BY activity_date DESC, created_at DESC LIMIT %d OFFSET %d", researchLogColumns, where, limit, offset)

	var logs []models.ResearchLog
	if err := r.db.SelectContext(ctx, &logs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list research logs: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM research_logs"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count research logs: %w", err)
	}
	return logs, total, nil
}

// EndorsementParams carries a supervisor verdict.
type EndorsementParams struct {
	ID         string
	Endorsed   bool
	Rating     *int
	Comment    *string
	EndorsedBy string
}

// Endorse sets or revises the supervisor verdict. The endorsement is not
// terminal, so no precondition on the previous value is applied.
func (r *ResearchLogRepository) Endorse(ctx context.Context, params EndorsementParams) (*models.ResearchLog, error) {
	now := time.Now().UTC()
	query := `UPDATE research_logs SET supervisor_endorsement = $2, supervisor_rating = $3, supervisor_comment = $4,
		endorsed_by = $5, endorsed_at = $6, updated_at = $6
	WHERE id = $1 RETURNING ` + researchLogColumns
	var log models.ResearchLog
	if err := r.db.GetContext(ctx, &log, query, params.ID, params.Endorsed, params.Rating, params.Comment, params.EndorsedBy, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("endorse research log: %w", err)
	}
	return &log, nil
}
