package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-ops-api/internal/authz"
	"github.com/noah-isme/lab-ops-api/internal/dto"
	"github.com/noah-isme/lab-ops-api/internal/models"
	appErrors "github.com/noah-isme/lab-ops-api/pkg/errors"
)

type meetingStore interface {
	Create(ctx context.Context, meeting *models.Meeting) error
	ListForUser(ctx context.Context, userID string, from time.Time) ([]models.Meeting, error)
	ClaimDueReminders(ctx context.Context, now time.Time, defaultLead time.Duration) ([]models.Meeting, error)
}

// MeetingService schedules lab meetings and sends their reminders.
type MeetingService struct {
	repo      meetingStore
	gate      authorizer
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
	leadTime  time.Duration
	now       func() time.Time
}

// NewMeetingService constructs the service. leadTime is how long before a
// meeting its reminder goes out when the organizer's lab sets no lead time.
func NewMeetingService(repo meetingStore, gate authorizer, notifier notifier, validate *validator.Validate, logger *zap.Logger, leadTime time.Duration) *MeetingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if leadTime <= 0 {
		leadTime = 15 * time.Minute
	}
	return &MeetingService{repo: repo, gate: gate, notifier: notifier, validator: validate, logger: logger, leadTime: leadTime, now: utcNow}
}

// Create schedules a meeting organised by the caller.
func (s *MeetingService) Create(ctx context.Context, req dto.CreateMeetingRequest, claims *models.JWTClaims) (*models.Meeting, error) {
	actor, err := authorize(s.gate, claims, authz.ActionMeetingCreate, authz.Target{})
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid meeting payload")
	}
	if !req.ScheduledAt.After(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scheduled_at must be in the future")
	}
	meeting := &models.Meeting{
		Title:       strings.TrimSpace(req.Title),
		Agenda:      req.Agenda,
		Location:    req.Location,
		ScheduledAt: req.ScheduledAt.UTC(),
		OrganizerID: actor.UserID,
		AttendeeIDs: req.AttendeeIDs,
	}
	if err := s.repo.Create(ctx, meeting); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create meeting")
	}
	s.notifier.Notify(ctx, models.NewEvent(models.EventMeetingScheduled, meeting, meeting.AttendeeIDs...))
	return meeting, nil
}

// Upcoming lists meetings the caller organises or attends that have not started.
func (s *MeetingService) Upcoming(ctx context.Context, claims *models.JWTClaims) ([]models.Meeting, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	meetings, err := s.repo.ListForUser(ctx, claims.UserID, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list meetings")
	}
	return meetings, nil
}

// SendDueReminders claims every meeting starting within its lab's lead time whose
// reminder has not gone out and notifies its participants. Claiming is a
// single guarded update, so concurrent scans never send a reminder twice.
func (s *MeetingService) SendDueReminders(ctx context.Context) error {
	now := s.now()
	meetings, err := s.repo.ClaimDueReminders(ctx, now, s.leadTime)
	if err != nil {
		return fmt.Errorf("claim meeting reminders: %w", err)
	}
	for i := range meetings {
		meeting := meetings[i]
		s.notifier.Notify(ctx, models.NewEvent(models.EventMeetingReminder, meeting, meeting.Participants()...))
	}
	if len(meetings) > 0 {
		s.logger.Info("meeting reminders sent", zap.Int("count", len(meetings)))
	}
	return nil
}
