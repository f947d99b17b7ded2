package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleStudent    UserRole = "student"
	RoleSupervisor UserRole = "supervisor"
	RoleLabManager UserRole = "lab_manager"
	RoleAdmin      UserRole = "admin"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleSupervisor, RoleLabManager, RoleAdmin:
		return true
	}
	return false
}

// Rank orders roles from least to most privileged. Unknown roles rank below student.
func (r UserRole) Rank() int {
	switch r {
	case RoleStudent:
		return 1
	case RoleSupervisor:
		return 2
	case RoleLabManager:
		return 3
	case RoleAdmin:
		return 4
	}
	return 0
}

// RoleChange is the direction of a role update.
type RoleChange string

const (
	RolePromote RoleChange = "promote"
	RoleDemote  RoleChange = "demote"
)

// Permits reports whether moving from prev to next goes in direction d.
func (d RoleChange) Permits(prev, next UserRole) bool {
	switch d {
	case RolePromote:
		return next.Rank() > prev.Rank()
	case RoleDemote:
		return next.Rank() < prev.Rank()
	}
	return false
}

// IsModerator reports whether the role may moderate bulletins.
func (r UserRole) IsModerator() bool {
	return r == RoleSupervisor || r == RoleLabManager || r == RoleAdmin
}

// User represents an application user stored in the users table.
type User struct {
	ID              string    `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"`
	FullName        string    `db:"full_name" json:"full_name"`
	Role            UserRole  `db:"role" json:"role"`
	LabID           *string   `db:"lab_id" json:"lab_id,omitempty"`
	SupervisorEmail *string   `db:"supervisor_email" json:"supervisor_email,omitempty"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role            *UserRole
	SupervisorEmail string
	Search          string
	Page            int
	PageSize        int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
