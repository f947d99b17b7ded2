package dto

import "time"

// CreateMeetingRequest schedules a lab meeting.
type CreateMeetingRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Agenda      string    `json:"agenda"`
	Location    string    `json:"location" validate:"max=200"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	AttendeeIDs []string  `json:"attendee_ids" validate:"dive,required"`
}

// CreateReminderRequest adds a personal reminder.
type CreateReminderRequest struct {
	Title    string     `json:"title" validate:"required,max=200"`
	DueAt    *time.Time `json:"due_at"`
	Priority string     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// CreateNoteRequest stores a supervisor note.
type CreateNoteRequest struct {
	StudentID *string `json:"student_id"`
	Title     string  `json:"title" validate:"required,max=200"`
	Content   string  `json:"content"`
	NoteType  string  `json:"note_type" validate:"omitempty,max=50"`
	IsPrivate bool    `json:"is_private"`
}

// NoteQuery filters note listings.
type NoteQuery struct {
	StudentID string `form:"student_id"`
	NoteType  string `form:"note_type"`
}
