package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/lab-ops-api/internal/models"
	appErrors "github.com/noah-isme/lab-ops-api/pkg/errors"
)

const labSettingsCachePrefix = "lab_settings:"

type labSettingsStore interface {
	Get(ctx context.Context, labID string) (*models.LabSettings, error)
}

// LabSettingsService resolves per-lab policy, falling back to process defaults
// when a lab has no settings row.
type LabSettingsService struct {
	repo     labSettingsStore
	cache    *CacheService
	defaults models.LabSettings
	logger   *zap.Logger
}

// NewLabSettingsService constructs the service. A nil or disabled cache reads the store every time.
func NewLabSettingsService(repo labSettingsStore, cache *CacheService, defaultDueDays int, logger *zap.Logger) *LabSettingsService {
	if defaultDueDays <= 0 {
		defaultDueDays = 7
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LabSettingsService{
		repo:     repo,
		cache:    cache,
		defaults: models.LabSettings{TaskDefaultDueDays: defaultDueDays, MeetingReminderMinutes: 15},
		logger:   logger,
	}
}

// Get returns the effective settings for a lab.
func (s *LabSettingsService) Get(ctx context.Context, labID string) (*models.LabSettings, error) {
	if labID == "" || s.repo == nil {
		return s.fallback(labID), nil
	}
	settings, _, err := ReadThrough(ctx, s.cache, labSettingsCachePrefix+labID, 0, func(ctx context.Context) (*models.LabSettings, error) {
		return s.repo.Get(ctx, labID)
	})
	if errors.Is(err, sql.ErrNoRows) || (err == nil && settings == nil) {
		return s.fallback(labID), nil
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lab settings")
	}
	effective := *settings
	if effective.TaskDefaultDueDays <= 0 {
		effective.TaskDefaultDueDays = s.defaults.TaskDefaultDueDays
	}
	return &effective, nil
}

// TaskDefaultDueDays returns how many days after creation a task is due when
// no due date is given. Lookup failures fall back to the process default.
func (s *LabSettingsService) TaskDefaultDueDays(ctx context.Context, labID string) int {
	settings, err := s.Get(ctx, labID)
	if err != nil {
		s.logger.Warn("lab settings unavailable, using default due days", zap.String("lab_id", labID), zap.Error(err))
		return s.defaults.TaskDefaultDueDays
	}
	return settings.TaskDefaultDueDays
}

func (s *LabSettingsService) fallback(labID string) *models.LabSettings {
	settings := s.defaults
	settings.LabID = labID
	return &settings
}
