// Package authz decides whether an actor may perform an action on a target.
//
// Every rule lives in one table keyed by action. A rule lists the roles that may
// attempt the action and, optionally, a predicate over the concrete target. The
// gate never panics and never returns a plain error for a denial: callers get a
// Decision carrying a stable Reason they can render or map to HTTP.
package authz

import (
	"github.com/noah-isme/lab-ops-api/internal/models"
	appErrors "github.com/noah-isme/lab-ops-api/pkg/errors"
)

// Action names a guarded operation.
type Action string

const (
	ActionUserChangeRole         Action = "user.change_role"
	ActionRosterView             Action = "roster.view"
	ActionBulletinCreate         Action = "bulletin.create"
	ActionBulletinModerate       Action = "bulletin.moderate"
	ActionTaskCreate             Action = "task.create"
	ActionTaskUpdateProgress     Action = "task.update_progress"
	ActionTaskReview             Action = "task.review"
	ActionTaskSetStatus          Action = "task.set_status"
	ActionResearchLogCreate      Action = "research_log.create"
	ActionResearchLogEndorse     Action = "research_log.endorse"
	ActionGrantCreate            Action = "grant.create"
	ActionGrantEdit              Action = "grant.edit"
	ActionGrantSetStatus         Action = "grant.set_status"
	ActionGrantRecordExpenditure Action = "grant.record_expenditure"
	ActionGrantRegister          Action = "grant.register"
	ActionMeetingCreate          Action = "meeting.create"
	ActionNoteCreate             Action = "note.create"
	ActionNoteViewPrivate        Action = "note.view_private"
	ActionReminderManage         Action = "reminder.manage"
)

// Reason is a stable denial code.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonUnauthenticated  Reason = "unauthenticated"
	ReasonUnknownAction    Reason = "unknown_action"
	ReasonRoleNotPermitted Reason = "role_not_permitted"
	ReasonSelfRoleChange   Reason = "self_role_change"
	ReasonNotOwner         Reason = "not_owner"
)

// Actor is the authenticated caller.
type Actor struct {
	UserID string
	Role   models.UserRole
}

// ActorFromClaims adapts verified token claims.
func ActorFromClaims(claims *models.JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role}
}

// Target describes the entity an action applies to. OwnerID is the user the
// entity belongs to (task assignee, log author, reminder owner); SubjectID is
// the user an action is about (role changes).
type Target struct {
	OwnerID   string
	SubjectID string
}

// Decision is the result of an authorization check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Err converts a denial into the API error shape; nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == ReasonUnauthenticated {
		return appErrors.ErrUnauthorized
	}
	return appErrors.Denied(string(d.Reason), denialMessages[d.Reason])
}

var denialMessages = map[Reason]string{
	ReasonUnknownAction:    "action is not recognised",
	ReasonRoleNotPermitted: "your role is not permitted to perform this action",
	ReasonSelfRoleChange:   "users cannot change their own role",
	ReasonNotOwner:         "only the owner may perform this action",
}

type predicate func(actor Actor, target Target) Reason

type rule struct {
	roles map[models.UserRole]predicate
}

func allow(roles ...models.UserRole) map[models.UserRole]predicate {
	out := make(map[models.UserRole]predicate, len(roles))
	for _, r := range roles {
		out[r] = nil
	}
	return out
}

func with(base map[models.UserRole]predicate, role models.UserRole, p predicate) map[models.UserRole]predicate {
	base[role] = p
	return base
}

func ownerOnly(actor Actor, target Target) Reason {
	if target.OwnerID == "" || target.OwnerID != actor.UserID {
		return ReasonNotOwner
	}
	return ReasonNone
}

func notSelf(actor Actor, target Target) Reason {
	if target.SubjectID == actor.UserID {
		return ReasonSelfRoleChange
	}
	return ReasonNone
}

var (
	everyone   = []models.UserRole{models.RoleStudent, models.RoleSupervisor, models.RoleLabManager, models.RoleAdmin}
	moderators = []models.UserRole{models.RoleSupervisor, models.RoleLabManager, models.RoleAdmin}
	grantStaff = []models.UserRole{models.RoleSupervisor, models.RoleLabManager}
)

func defaultTable() map[Action]rule {
	ownerForAll := func() map[models.UserRole]predicate {
		m := allow()
		for _, r := range everyone {
			m[r] = ownerOnly
		}
		return m
	}
	return map[Action]rule{
		ActionUserChangeRole:         {roles: with(allow(), models.RoleSupervisor, notSelf)},
		ActionRosterView:             {roles: allow(moderators...)},
		ActionBulletinCreate:         {roles: allow(everyone...)},
		ActionBulletinModerate:       {roles: allow(moderators...)},
		ActionTaskCreate:             {roles: with(allow(grantStaff...), models.RoleStudent, ownerOnly)},
		ActionTaskUpdateProgress:     {roles: ownerForAll()},
		ActionTaskReview:             {roles: allow(models.RoleSupervisor)},
		ActionTaskSetStatus:          {roles: allow(grantStaff...)},
		ActionResearchLogCreate:      {roles: with(allow(), models.RoleStudent, ownerOnly)},
		ActionResearchLogEndorse:     {roles: allow(models.RoleSupervisor)},
		ActionGrantCreate:            {roles: allow(grantStaff...)},
		ActionGrantEdit:              {roles: allow(grantStaff...)},
		ActionGrantSetStatus:         {roles: allow(grantStaff...)},
		ActionGrantRecordExpenditure: {roles: allow(grantStaff...)},
		ActionGrantRegister:          {roles: allow(models.RoleStudent)},
		ActionMeetingCreate:          {roles: allow(moderators...)},
		ActionNoteCreate:             {roles: allow(moderators...)},
		ActionNoteViewPrivate:        {roles: allow(moderators...)},
		ActionReminderManage:         {roles: ownerForAll()},
	}
}

// Gate evaluates the authorization table. It is immutable and safe for concurrent use.
type Gate struct {
	table map[Action]rule
}

// NewGate returns a gate loaded with the lab's rules.
func NewGate() *Gate {
	return &Gate{table: defaultTable()}
}

// Authorize checks actor against the rule for action and the concrete target.
func (g *Gate) Authorize(actor Actor, action Action, target Target) Decision {
	if actor.UserID == "" || !actor.Role.Valid() {
		return Decision{Reason: ReasonUnauthenticated}
	}
	r, ok := g.table[action]
	if !ok {
		return Decision{Reason: ReasonUnknownAction}
	}
	check, ok := r.roles[actor.Role]
	if !ok {
		return Decision{Reason: ReasonRoleNotPermitted}
	}
	if check != nil {
		if reason := check(actor, target); reason != ReasonNone {
			return Decision{Reason: reason}
		}
	}
	return Decision{Allowed: true}
}

// RoleMayAttempt reports whether role appears in the rule for action, ignoring
// target predicates. Route middleware uses it before the target is loaded.
func (g *Gate) RoleMayAttempt(role models.UserRole, action Action) bool {
	r, ok := g.table[action]
	if !ok {
		return false
	}
	_, ok = r.roles[role]
	return ok
}
