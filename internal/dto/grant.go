package dto

import "time"

// CreateGrantRequest registers a funded project. Amounts are in the smallest currency unit.
type CreateGrantRequest struct {
	Title          string     `json:"title" validate:"required,max=200"`
	Description    string     `json:"description"`
	TotalAmount    int64      `json:"total_amount" validate:"required,gt=0"`
	Status         string     `json:"status" validate:"omitempty,oneof=pending active"`
	PersonInCharge *string    `json:"person_in_charge"`
	DurationMonths int        `json:"duration_months" validate:"min=0,max=120"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
}

// UpdateGrantRequest edits grant details. Omitted fields keep their stored values.
type UpdateGrantRequest struct {
	Title          *string    `json:"title" validate:"omitempty,max=200"`
	Description    *string    `json:"description"`
	TotalAmount    *int64     `json:"total_amount" validate:"omitempty,gt=0"`
	PersonInCharge *string    `json:"person_in_charge"`
	DurationMonths *int       `json:"duration_months" validate:"omitempty,min=0,max=120"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
}

// GrantStatusRequest moves a grant through its lifecycle.
type GrantStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending active completed suspended"`
}

// RecordExpenditureRequest debits a grant balance.
type RecordExpenditureRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description" validate:"max=500"`
}

// GrantQuery mirrors supported listing filters.
type GrantQuery struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}
