package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-ops-api/internal/models"
)

// NoteRepository persists supervisor notes.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository constructs the repository.
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create inserts a note.
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.NoteType == "" {
		note.NoteType = "general"
	}
	note.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO notes (id, author_id, student_id, title, content, note_type, is_private, created_at)
	VALUES (:id, :author_id, :student_id, :title, :content, :note_type, :is_private, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

// List returns notes matching the filter, newest first. Private notes are
// excluded unless the filter asks for them.
func (r *NoteRepository) List(ctx context.Context, filter models.NoteFilter) ([]models.Note, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 2)
	if !filter.IncludePrivate {
		conditions = append(conditions, "is_private = FALSE")
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.NoteType != "" {
		args = append(args, filter.NoteType)
		conditions = append(conditions, fmt.Sprintf("note_type = $%d", len(args)))
	}
	query := `SELECT id, author_id, student_id, title, content, note_type, is_private, created_at FROM notes`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	var notes []models.Note
	if err := r.db.SelectContext(ctx, &notes, query, args...); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}
