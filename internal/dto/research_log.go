package dto

import "time"

// CreateResearchLogRequest records a student's activity.
type CreateResearchLogRequest struct {
	Title        string     `json:"title" validate:"required,max=200"`
	Content      string     `json:"content"`
	ActivityDate *time.Time `json:"activity_date"`
}

// EndorseResearchLogRequest sets or revises a supervisor verdict.
type EndorseResearchLogRequest struct {
	SupervisorEndorsement *bool   `json:"supervisor_endorsement" validate:"required"`
	SupervisorRating      *int    `json:"supervisor_rating" validate:"omitempty,min=1,max=5"`
	SupervisorComment     *string `json:"supervisor_comment" validate:"omitempty,max=2000"`
}

// ResearchLogQuery mirrors supported listing filters.
type ResearchLogQuery struct {
	StudentID   string `form:"student_id"`
	Endorsement string `form:"endorsement"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}
