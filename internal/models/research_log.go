package models

import "time"

// ResearchLog is a student's activity record that supervisors may endorse.
type ResearchLog struct {
	ID                    string     `db:"id" json:"id"`
	StudentID             string     `db:"student_id" json:"student_id"`
	Title                 string     `db:"title" json:"title"`
	Content               string     `db:"content" json:"content"`
	ActivityDate          time.Time  `db:"activity_date" json:"activity_date"`
	SupervisorEndorsement *bool      `db:"supervisor_endorsement" json:"supervisor_endorsement"`
	SupervisorRating      *int       `db:"supervisor_rating" json:"supervisor_rating,omitempty"`
	SupervisorComment     *string    `db:"supervisor_comment" json:"supervisor_comment,omitempty"`
	EndorsedBy            *string    `db:"endorsed_by" json:"endorsed_by,omitempty"`
	EndorsedAt            *time.Time `db:"endorsed_at" json:"endorsed_at,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// ResearchLogFilter constrains research log listings.
type ResearchLogFilter struct {
	StudentID string
	// Endorsement: "pending" for null, "endorsed", "declined" or empty for all.
	Endorsement string
	Page        int
	PageSize    int
}
