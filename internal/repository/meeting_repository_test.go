package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-ops-api/internal/models"
)

var meetingRowColumns = []string{"id", "title", "agenda", "location", "scheduled_at", "organizer_id", "attendee_ids", "reminder_sent_at", "created_at"}

func TestMeetingRepositoryClaimDueReminders(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE meetings m SET reminder_sent_at = $1")).
		WithArgs(now, 15).
		WillReturnRows(sqlmock.NewRows(meetingRowColumns).
			AddRow("m1", "Weekly sync", "", "Lab 2", now.Add(10*time.Minute), "sup1", "{s1,s2}", now, now))

	meetings, err := repo.ClaimDueReminders(context.Background(), now, 15*time.Minute)
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, []string{"sup1", "s1", "s2"}, meetings[0].Participants())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingRepositoryClaimUsesLabLeadTime(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(ls.meeting_reminder_minutes, $2)) RETURNING m.id, m.title")).
		WithArgs(now, 30).
		WillReturnRows(sqlmock.NewRows(meetingRowColumns))

	meetings, err := repo.ClaimDueReminders(context.Background(), now, 30*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, meetings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingRepositoryCreateAndList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO meetings")).WillReturnResult(sqlmock.NewResult(1, 1))
	meeting := &models.Meeting{Title: "Weekly sync", ScheduledAt: time.Now().Add(time.Hour), OrganizerID: "sup1"}
	require.NoError(t, repo.Create(context.Background(), meeting))
	assert.NotNil(t, meeting.AttendeeIDs)

	from := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE (organizer_id = $1 OR $1 = ANY(attendee_ids)) AND scheduled_at >= $2")).
		WithArgs("s1", from).
		WillReturnRows(sqlmock.NewRows(meetingRowColumns))
	meetings, err := repo.ListForUser(context.Background(), "s1", from)
	require.NoError(t, err)
	assert.Empty(t, meetings)
	assert.NoError(t, mock.ExpectationsWereMet())
}
