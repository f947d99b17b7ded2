package models

import (
	"time"

	"github.com/lib/pq"
)

// Meeting is a scheduled lab meeting.
type Meeting struct {
	ID             string         `db:"id" json:"id"`
	Title          string         `db:"title" json:"title"`
	Agenda         string         `db:"agenda" json:"agenda"`
	Location       string         `db:"location" json:"location"`
	ScheduledAt    time.Time      `db:"scheduled_at" json:"scheduled_at"`
	OrganizerID    string         `db:"organizer_id" json:"organizer_id"`
	AttendeeIDs    pq.StringArray `db:"attendee_ids" json:"attendee_ids"`
	ReminderSentAt *time.Time     `db:"reminder_sent_at" json:"reminder_sent_at,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// Participants returns the organizer and attendees without duplicates.
func (m *Meeting) Participants() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(m.AttendeeIDs)+1)
	for _, id := range append([]string{m.OrganizerID}, m.AttendeeIDs...) {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Reminder is a personal to-do item.
type Reminder struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	Title       string     `db:"title" json:"title"`
	DueAt       *time.Time `db:"due_at" json:"due_at,omitempty"`
	Priority    Priority   `db:"priority" json:"priority"`
	IsCompleted bool       `db:"is_completed" json:"is_completed"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Note is a supervisor-authored note, optionally about one student.
type Note struct {
	ID        string    `db:"id" json:"id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	StudentID *string   `db:"student_id" json:"student_id,omitempty"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	NoteType  string    `db:"note_type" json:"note_type"`
	IsPrivate bool      `db:"is_private" json:"is_private"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NoteFilter constrains note listings.
type NoteFilter struct {
	StudentID      string
	IncludePrivate bool
	NoteType       string
}

// LabSettings holds per-lab policy overrides.
type LabSettings struct {
	LabID                  string    `db:"lab_id" json:"lab_id"`
	Name                   string    `db:"name" json:"name"`
	TaskDefaultDueDays     int       `db:"task_default_due_days" json:"task_default_due_days"`
	MeetingReminderMinutes int       `db:"meeting_reminder_minutes" json:"meeting_reminder_minutes"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`
}
