package models

import "time"

// TaskStatus is the stored workflow status of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	// TaskStatusOverdue is only ever derived at read time.
	TaskStatusOverdue TaskStatus = "overdue"
)

// Storable reports whether s may be persisted.
func (s TaskStatus) Storable() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// Priority is shared by tasks and reminders.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task is a unit of work assigned to a lab member.
type Task struct {
	ID                 string     `db:"id" json:"id"`
	Title              string     `db:"title" json:"title"`
	Description        string     `db:"description" json:"description"`
	AssignedTo         string     `db:"assigned_to" json:"assigned_to"`
	CreatedBy          string     `db:"created_by" json:"created_by"`
	Status             TaskStatus `db:"status" json:"status"`
	Priority           Priority   `db:"priority" json:"priority"`
	ProgressPercentage int        `db:"progress_percentage" json:"progress_percentage"`
	DueDate            time.Time  `db:"due_date" json:"due_date"`
	SupervisorRating   *int       `db:"supervisor_rating" json:"supervisor_rating,omitempty"`
	SupervisorFeedback *string    `db:"supervisor_feedback" json:"supervisor_feedback,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`

	DisplayStatus TaskStatus `db:"-" json:"display_status"`
	IsOverdue     bool       `db:"-" json:"is_overdue"`
}

// IsOverdueAt derives the overdue state; it is never stored.
func (t *Task) IsOverdueAt(now time.Time) bool {
	return t.Status != TaskStatusCompleted && t.DueDate.Before(now)
}

// Derive fills the read-time fields from the stored ones.
func (t *Task) Derive(now time.Time) {
	t.IsOverdue = t.IsOverdueAt(now)
	t.DisplayStatus = t.Status
	if t.IsOverdue {
		t.DisplayStatus = TaskStatusOverdue
	}
}

// ClampProgress bounds a requested progress value to [0, 100].
func ClampProgress(value int) int {
	switch {
	case value < 0:
		return 0
	case value > 100:
		return 100
	default:
		return value
	}
}

// TaskFilter constrains task listings.
type TaskFilter struct {
	AssignedTo string
	CreatedBy  string
	Status     TaskStatus
	Page       int
	PageSize   int
}
