package dto

import "time"

// CreateTaskRequest assigns work. An empty assigned_to means the caller.
type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description"`
	AssignedTo  string     `json:"assigned_to"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate     *time.Time `json:"due_date"`
}

// UpdateTaskRequest carries owner progress and supervisor review fields.
// Progress outside 0..100 is clamped rather than rejected.
type UpdateTaskRequest struct {
	ProgressPercentage *int    `json:"progress_percentage"`
	Status             *string `json:"status"`
	SupervisorRating   *int    `json:"supervisor_rating" validate:"omitempty,min=1,max=5"`
	SupervisorFeedback *string `json:"supervisor_feedback" validate:"omitempty,max=2000"`
}

// TaskQuery mirrors supported listing filters.
type TaskQuery struct {
	AssignedTo string `form:"assigned_to"`
	CreatedBy  string `form:"created_by"`
	Status     string `form:"status"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}
