package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lab-ops-api/internal/models"
)

const meetingColumns = `id, title, agenda, location, scheduled_at, organizer_id, attendee_ids, reminder_sent_at, created_at`

// MeetingRepository persists lab meetings.
type MeetingRepository struct {
	db *sqlx.DB
}

// NewMeetingRepository constructs the repository.
func NewMeetingRepository(db *sqlx.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// Create inserts a meeting.
func (r *MeetingRepository) Create(ctx context.Context, meeting *models.Meeting) error {
	if meeting.ID == "" {
		meeting.ID = uuid.NewString()
	}
	if meeting.AttendeeIDs == nil {
		meeting.AttendeeIDs = pq.StringArray{}
	}
	meeting.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO meetings (id, title, agenda, location, scheduled_at, organizer_id, attendee_ids, created_at)
	VALUES (:id, :title, :agenda, :location, :scheduled_at, :organizer_id, :attendee_ids, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, meeting); err != nil {
		return fmt.Errorf("create meeting: %w", err)
	}
	return nil
}

// ListForUser returns meetings the user organizes or attends, from a point in time onward.
func (r *MeetingRepository) ListForUser(ctx context.Context, userID string, from time.Time) ([]models.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings
	WHERE (organizer_id = $1 OR $1 = ANY(attendee_ids)) AND scheduled_at >= $2
	ORDER BY scheduled_at ASC`
	var meetings []models.Meeting
	if err := r.db.SelectContext(ctx, &meetings, query, userID, from); err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	return meetings, nil
}

// ClaimDueReminders marks meetings starting within their lead time whose
// reminder has not been sent and returns them. The lead time is the organizer's
// lab meeting_reminder_minutes, or defaultLead when the lab has no settings row.
// Each meeting is claimed by exactly one caller even when several instances
// scan concurrently.
func (r *MeetingRepository) ClaimDueReminders(ctx context.Context, now time.Time, defaultLead time.Duration) ([]models.Meeting, error) {
	query := `UPDATE meetings m SET reminder_sent_at = $1
	FROM users u LEFT JOIN lab_settings ls ON ls.lab_id = u.lab_id
	WHERE u.id = m.organizer_id
		AND m.reminder_sent_at IS NULL
		AND m.scheduled_at > $1
		AND m.scheduled_at <= $1 + make_interval(mins => COALESCE(ls.meeting_reminder_minutes, $2))
	RETURNING ` + prefixed("m", meetingColumns)
	var meetings []models.Meeting
	if err := r.db.SelectContext(ctx, &meetings, query, now, int(defaultLead/time.Minute)); err != nil {
		return nil, fmt.Errorf("claim meeting reminders: %w", err)
	}
	return meetings, nil
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, col := range parts {
		parts[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(parts, ", ")
}
