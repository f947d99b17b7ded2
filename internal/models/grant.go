package models

import "time"

// GrantStatus captures the grant lifecycle.
type GrantStatus string

const (
	GrantStatusPending   GrantStatus = "pending"
	GrantStatusActive    GrantStatus = "active"
	GrantStatusCompleted GrantStatus = "completed"
	GrantStatusSuspended GrantStatus = "suspended"
)

var grantTransitions = map[GrantStatus][]GrantStatus{
	GrantStatusPending:   {GrantStatusActive},
	GrantStatusActive:    {GrantStatusSuspended, GrantStatusCompleted},
	GrantStatusSuspended: {GrantStatusActive, GrantStatusCompleted},
}

// Valid reports whether s is a known grant status.
func (s GrantStatus) Valid() bool {
	switch s {
	case GrantStatusPending, GrantStatusActive, GrantStatusCompleted, GrantStatusSuspended:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s GrantStatus) CanTransitionTo(next GrantStatus) bool {
	for _, allowed := range grantTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Grant is a funded project whose balance is tracked by the ledger.
// Amounts are in the smallest currency unit.
type Grant struct {
	ID               string      `db:"id" json:"id"`
	Title            string      `db:"title" json:"title"`
	Description      string      `db:"description" json:"description"`
	TotalAmount      int64       `db:"total_amount" json:"total_amount"`
	RemainingBalance int64       `db:"remaining_balance" json:"remaining_balance"`
	Status           GrantStatus `db:"status" json:"status"`
	PersonInCharge   *string     `db:"person_in_charge" json:"person_in_charge,omitempty"`
	DurationMonths   int         `db:"duration_months" json:"duration_months"`
	StartDate        *time.Time  `db:"start_date" json:"start_date,omitempty"`
	EndDate          *time.Time  `db:"end_date" json:"end_date,omitempty"`
	CreatedBy        string      `db:"created_by" json:"created_by"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
}

// BalanceWithinBounds checks 0 <= remaining_balance <= total_amount.
func (g *Grant) BalanceWithinBounds() bool {
	return g.RemainingBalance >= 0 && g.RemainingBalance <= g.TotalAmount
}

// GrantRegistration links a student to a grant.
type GrantRegistration struct {
	ID           string    `db:"id" json:"id"`
	GrantID      string    `db:"grant_id" json:"grant_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

// GrantExpenditure is a recorded spend against a grant balance.
type GrantExpenditure struct {
	ID          string    `db:"id" json:"id"`
	GrantID     string    `db:"grant_id" json:"grant_id"`
	Amount      int64     `db:"amount" json:"amount"`
	Description string    `db:"description" json:"description"`
	RecordedBy  string    `db:"recorded_by" json:"recorded_by"`
	RecordedAt  time.Time `db:"recorded_at" json:"recorded_at"`
}

// GrantFilter constrains grant listings.
type GrantFilter struct {
	Status   GrantStatus
	Page     int
	PageSize int
}

// GrantSummary is the read-time dashboard aggregate.
type GrantSummary struct {
	ActiveCount    int   `json:"active_count"`
	TotalValue     int64 `json:"total_value"`
	TotalRemaining int64 `json:"total_remaining"`
	GrantCount     int   `json:"grant_count"`
}

// SummarizeGrants reduces a grant set into dashboard aggregates.
func SummarizeGrants(grants []Grant) GrantSummary {
	summary := GrantSummary{GrantCount: len(grants)}
	for _, g := range grants {
		if g.Status == GrantStatusActive {
			summary.ActiveCount++
		}
		summary.TotalValue += g.TotalAmount
		summary.TotalRemaining += g.RemainingBalance
	}
	return summary
}
