package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampProgress(t *testing.T) {
	assert.Equal(t, 100, ClampProgress(150))
	assert.Equal(t, 0, ClampProgress(-5))
	assert.Equal(t, 42, ClampProgress(42))
	assert.Equal(t, 100, ClampProgress(100))
}

func TestTaskDeriveOverdue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	late := Task{Status: TaskStatusInProgress, DueDate: now.Add(-time.Hour)}
	late.Derive(now)
	assert.True(t, late.IsOverdue)
	assert.Equal(t, TaskStatusOverdue, late.DisplayStatus)
	assert.Equal(t, TaskStatusInProgress, late.Status)

	done := Task{Status: TaskStatusCompleted, DueDate: now.Add(-time.Hour)}
	done.Derive(now)
	assert.False(t, done.IsOverdue)
	assert.Equal(t, TaskStatusCompleted, done.DisplayStatus)

	upcoming := Task{Status: TaskStatusPending, DueDate: now.Add(time.Hour)}
	upcoming.Derive(now)
	assert.False(t, upcoming.IsOverdue)
}

func TestTaskStatusStorable(t *testing.T) {
	assert.True(t, TaskStatusPending.Storable())
	assert.True(t, TaskStatusCompleted.Storable())
	assert.False(t, TaskStatusOverdue.Storable())
	assert.False(t, TaskStatus("archived").Storable())
}

func TestGrantStatusTransitions(t *testing.T) {
	assert.True(t, GrantStatusPending.CanTransitionTo(GrantStatusActive))
	assert.True(t, GrantStatusActive.CanTransitionTo(GrantStatusSuspended))
	assert.True(t, GrantStatusSuspended.CanTransitionTo(GrantStatusActive))
	assert.False(t, GrantStatusCompleted.CanTransitionTo(GrantStatusActive))
	assert.False(t, GrantStatusPending.CanTransitionTo(GrantStatusCompleted))
	assert.False(t, GrantStatusActive.CanTransitionTo(GrantStatusActive))
}

func TestSummarizeGrants(t *testing.T) {
	summary := SummarizeGrants([]Grant{
		{Status: GrantStatusActive, TotalAmount: 10000, RemainingBalance: 7500},
		{Status: GrantStatusPending, TotalAmount: 5000, RemainingBalance: 5000},
		{Status: GrantStatusActive, TotalAmount: 2000, RemainingBalance: 0},
	})
	assert.Equal(t, 2, summary.ActiveCount)
	assert.Equal(t, int64(17000), summary.TotalValue)
	assert.Equal(t, int64(12500), summary.TotalRemaining)
	assert.Equal(t, 3, summary.GrantCount)

	assert.Equal(t, GrantSummary{}, SummarizeGrants(nil))
}

func TestNewEventDedupesTargets(t *testing.T) {
	evt := NewEvent(EventGrantUpdated, map[string]string{"id": "g1"}, "s1", "", "s2", "s1")
	assert.Equal(t, []string{"s1", "s2"}, evt.TargetUserIDs)
	assert.False(t, evt.CreatedAt.IsZero())
}

func TestMeetingParticipants(t *testing.T) {
	m := Meeting{OrganizerID: "sup", AttendeeIDs: []string{"s1", "sup", "s2"}}
	assert.Equal(t, []string{"sup", "s1", "s2"}, m.Participants())
}

func TestRoleHelpers(t *testing.T) {
	assert.True(t, RoleLabManager.IsModerator())
	assert.False(t, RoleStudent.IsModerator())
	assert.False(t, UserRole("SUPERADMIN").Valid())
}

func TestRoleChangePermits(t *testing.T) {
	assert.True(t, RolePromote.Permits(RoleStudent, RoleSupervisor))
	assert.False(t, RolePromote.Permits(RoleAdmin, RoleStudent))
	assert.True(t, RoleDemote.Permits(RoleLabManager, RoleStudent))
	assert.False(t, RoleDemote.Permits(RoleStudent, RoleAdmin))
	assert.False(t, RoleChange("").Permits(RoleStudent, RoleAdmin))
}
