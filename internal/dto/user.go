package dto

import "github.com/noah-isme/lab-ops-api/internal/models"

// ChangeRoleRequest promotes or demotes a lab member.
// Direction comes from the route, never the body.
type ChangeRoleRequest struct {
	NewRole   string            `json:"new_role" validate:"required,oneof=student supervisor lab_manager admin"`
	Direction models.RoleChange `json:"-" validate:"required,oneof=promote demote"`
}

// RosterQuery filters the student roster.
type RosterQuery struct {
	Search          string `form:"search"`
	SupervisorEmail string `form:"supervisor_email"`
	Page            int    `form:"page"`
	PageSize        int    `form:"page_size"`
}
