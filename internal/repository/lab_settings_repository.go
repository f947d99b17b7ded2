package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-ops-api/internal/models"
)

// LabSettingsRepository reads per-lab policy overrides.
type LabSettingsRepository struct {
	db *sqlx.DB
}

// NewLabSettingsRepository constructs the repository.
func NewLabSettingsRepository(db *sqlx.DB) *LabSettingsRepository {
	return &LabSettingsRepository{db: db}
}

// Get returns the settings row for a lab.
func (r *LabSettingsRepository) Get(ctx context.Context, labID string) (*models.LabSettings, error) {
	const query = `SELECT lab_id, name, task_default_due_days, meeting_reminder_minutes, updated_at FROM lab_settings WHERE lab_id = $1`
	var settings models.LabSettings
	if err := r.db.GetContext(ctx, &settings, query, labID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get lab settings: %w", err)
	}
	return &settings, nil
}
