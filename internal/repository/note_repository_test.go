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

func TestNoteRepositoryListHidesPrivateByDefault(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNoteRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM notes WHERE is_private = FALSE AND student_id = $1 ORDER BY created_at DESC")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "student_id", "title", "content", "note_type", "is_private", "created_at"}).
			AddRow("n1", "sup1", "s1", "Progress", "", "general", false, now))

	notes, err := repo.List(context.Background(), models.NoteFilter{StudentID: "s1"})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.False(t, notes[0].IsPrivate)

	mock.ExpectQuery(regexp.QuoteMeta("FROM notes ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = repo.List(context.Background(), models.NoteFilter{IncludePrivate: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReminderRepositoryComplete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReminderRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE reminders SET is_completed = TRUE WHERE id = $1")).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "due_at", "priority", "is_completed", "created_at"}).
			AddRow("r1", "s1", "Submit draft", now, "high", true, now))

	reminder, err := repo.Complete(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, reminder.IsCompleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
