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

const grantColumns = `id, title, description, total_amount, remaining_balance, status, person_in_charge,
	duration_months, start_date, end_date, created_by, created_at, updated_at`

// GrantRepository persists grants, registrations and the expenditure ledger.
// Every balance mutation is a single guarded statement so the
// 0 <= remaining_balance <= total_amount bound holds under concurrency.
type GrantRepository struct {
	db *sqlx.DB
}

// NewGrantRepository constructs the repository.
func NewGrantRepository(db *sqlx.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// Create inserts a grant with remaining_balance equal to total_amount.
func (r *GrantRepository) Create(ctx context.Context, grant *models.Grant) error {
	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}
	if grant.Status == "" {
		grant.Status = models.GrantStatusPending
	}
	now := time.Now().UTC()
	grant.RemainingBalance = grant.TotalAmount
	grant.CreatedAt = now
	grant.UpdatedAt = now

	const query = `INSERT INTO grants
	(id, title, description, total_amount, remaining_balance, status, person_in_charge, duration_months, start_date, end_date, created_by, created_at, updated_at)
	VALUES (:id, :title, :description, :total_amount, :remaining_balance, :status, :person_in_charge, :duration_months, :start_date, :end_date, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grant); err != nil {
		return fmt.Errorf("create grant: %w", err)
	}
	return nil
}

// GetByID fetches a grant by identifier.
func (r *GrantRepository) GetByID(ctx context.Context, id string) (*models.Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM grants WHERE id = $1`
	var grant models.Grant
	if err := r.db.GetContext(ctx, &grant, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get grant: %w", err)
	}
	return &grant, nil
}

// List returns grants matching the filter with the total count.
func (r *GrantRepository) List(ctx context.Context, filter models.GrantFilter) ([]models.Grant, int, error) {
	where := ""
	args := make([]interface{}, 0, 1)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = " WHERE status = $1"
	}
	limit, offset, _ := pageWindow(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s FROM grants%s ORDER BY created_at DESC LIMIT %d OFFSET %d", grantColumns, where, limit, offset)

	var grants []models.Grant
	if err := r.db.SelectContext(ctx, &grants, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list grants: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM grants"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count grants: %w", err)
	}
	return grants, total, nil
}

// ListAll returns every grant; used for read-time dashboard reductions.
func (r *GrantRepository) ListAll(ctx context.Context) ([]models.Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM grants ORDER BY created_at DESC`
	var grants []models.Grant
	if err := r.db.SelectContext(ctx, &grants, query); err != nil {
		return nil, fmt.Errorf("list all grants: %w", err)
	}
	return grants, nil
}

// GrantUpdateParams groups editable grant columns. ExpectedTotal is the
// total_amount the caller read; the update is refused if it changed since.
type GrantUpdateParams struct {
	ID             string
	ExpectedTotal  int64
	TotalAmount    int64
	Title          string
	Description    string
	PersonInCharge *string
	DurationMonths int
	StartDate      *time.Time
	EndDate        *time.Time
}

// Update applies an edit. Changing total_amount shifts remaining_balance by the
// same delta and is refused when the new balance would be negative. Zero
// affected rows are reported as sql.ErrNoRows.
func (r *GrantRepository) Update(ctx context.Context, params GrantUpdateParams) (*models.Grant, error) {
	query := `UPDATE grants SET
		title = $3, description = $4, person_in_charge = $5, duration_months = $6,
		start_date = $7, end_date = $8,
		remaining_balance = remaining_balance + ($9 - total_amount),
		total_amount = $9, updated_at = $10
	WHERE id = $1 AND total_amount = $2 AND remaining_balance + ($9 - total_amount) >= 0
	RETURNING ` + grantColumns
	var grant models.Grant
	err := r.db.GetContext(ctx, &grant, query,
		params.ID, params.ExpectedTotal, params.Title, params.Description, params.PersonInCharge,
		params.DurationMonths, params.StartDate, params.EndDate, params.TotalAmount, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update grant: %w", err)
	}
	return &grant, nil
}

// TransitionStatus moves a grant from one status to another only while the
// stored status still equals from.
func (r *GrantRepository) TransitionStatus(ctx context.Context, id string, from, to models.GrantStatus) (*models.Grant, error) {
	query := `UPDATE grants SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2 RETURNING ` + grantColumns
	var grant models.Grant
	if err := r.db.GetContext(ctx, &grant, query, id, from, to, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("transition grant status: %w", err)
	}
	return &grant, nil
}

// Register creates the (grant, student) registration in one statement that only
// inserts while the grant is active and the pair is new. It reports whether a
// row was inserted.
func (r *GrantRepository) Register(ctx context.Context, registration *models.GrantRegistration) (bool, error) {
	if registration.ID == "" {
		registration.ID = uuid.NewString()
	}
	if registration.RegisteredAt.IsZero() {
		registration.RegisteredAt = time.Now().UTC()
	}
	query := `INSERT INTO grant_registrations (id, grant_id, student_id, registered_at)
	SELECT $1, g.id, $3, $4 FROM grants g WHERE g.id = $2 AND g.status = '` + string(models.GrantStatusActive) + `'
	ON CONFLICT (grant_id, student_id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, registration.ID, registration.GrantID, registration.StudentID, registration.RegisteredAt)
	if err != nil {
		return false, fmt.Errorf("register grant: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check grant registration rows: %w", err)
	}
	return rows == 1, nil
}

// RegistrationExists reports whether student is registered on grant.
func (r *GrantRepository) RegistrationExists(ctx context.Context, grantID, studentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM grant_registrations WHERE grant_id = $1 AND student_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, grantID, studentID); err != nil {
		return false, fmt.Errorf("check grant registration: %w", err)
	}
	return exists, nil
}

// ListRegistrations returns registrations for a grant, oldest first.
func (r *GrantRepository) ListRegistrations(ctx context.Context, grantID string) ([]models.GrantRegistration, error) {
	const query = `SELECT id, grant_id, student_id, registered_at FROM grant_registrations WHERE grant_id = $1 ORDER BY registered_at ASC`
	var registrations []models.GrantRegistration
	if err := r.db.SelectContext(ctx, &registrations, query, grantID); err != nil {
		return nil, fmt.Errorf("list grant registrations: %w", err)
	}
	return registrations, nil
}

// RegisteredStudentIDs returns the ids of students registered on a grant.
func (r *GrantRepository) RegisteredStudentIDs(ctx context.Context, grantID string) ([]string, error) {
	const query = `SELECT student_id FROM grant_registrations WHERE grant_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, grantID); err != nil {
		return nil, fmt.Errorf("list registered students: %w", err)
	}
	return ids, nil
}

// RecordExpenditure debits an active grant and stores the expenditure row in one
// transaction. The debit only applies while the balance covers the amount;
// otherwise sql.ErrNoRows is returned and nothing is written.
func (r *GrantRepository) RecordExpenditure(ctx context.Context, expenditure *models.GrantExpenditure) (*models.Grant, error) {
	if expenditure.ID == "" {
		expenditure.ID = uuid.NewString()
	}
	if expenditure.RecordedAt.IsZero() {
		expenditure.RecordedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin expenditure tx: %w", err)
	}

	debit := `UPDATE grants SET remaining_balance = remaining_balance - $2, updated_at = $3
	WHERE id = $1 AND status = '` + string(models.GrantStatusActive) + `' AND remaining_balance >= $2
	RETURNING ` + grantColumns
	var grant models.Grant
	if err := tx.GetContext(ctx, &grant, debit, expenditure.GrantID, expenditure.Amount, expenditure.RecordedAt); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("debit grant: %w", err)
	}

	const insert = `INSERT INTO grant_expenditures (id, grant_id, amount, description, recorded_by, recorded_at)
	VALUES (:id, :grant_id, :amount, :description, :recorded_by, :recorded_at)`
	if _, err := tx.NamedExecContext(ctx, insert, expenditure); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("insert expenditure: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit expenditure tx: %w", err)
	}
	return &grant, nil
}

// ListExpenditures returns recorded expenditures for a grant, newest first.
func (r *GrantRepository) ListExpenditures(ctx context.Context, grantID string) ([]models.GrantExpenditure, error) {
	const query = `SELECT id, grant_id, amount, description, recorded_by, recorded_at FROM grant_expenditures WHERE grant_id = $1 ORDER BY recorded_at DESC`
	var expenditures []models.GrantExpenditure
	if err := r.db.SelectContext(ctx, &expenditures, query, grantID); err != nil {
		return nil, fmt.Errorf("list expenditures: %w", err)
	}
	return expenditures, nil
}
