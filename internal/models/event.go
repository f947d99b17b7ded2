package models

import "time"

// EventType names a realtime notification.
type EventType string

const (
	EventTaskAssigned        EventType = "task_assigned"
	EventTaskUpdated         EventType = "task_updated"
	EventResearchLogReviewed EventType = "research_log_reviewed"
	EventBulletinDecided     EventType = "bulletin_decided"
	EventGrantUpdated        EventType = "grant_updated"
	EventGrantRegistered     EventType = "grant_registered"
	EventRoleChanged         EventType = "role_changed"
	EventMeetingScheduled    EventType = "meeting_scheduled"
	EventMeetingReminder     EventType = "meeting_reminder"
)

// Event is an ephemeral notification fanned out to the live connections of its targets.
type Event struct {
	Type          EventType   `json:"type"`
	Payload       interface{} `json:"payload"`
	TargetUserIDs []string    `json:"target_user_ids,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// NewEvent builds an event for the given targets, dropping empty and duplicate ids.
func NewEvent(eventType EventType, payload interface{}, targets ...string) Event {
	seen := make(map[string]struct{}, len(targets))
	ids := make([]string, 0, len(targets))
	for _, id := range targets {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return Event{Type: eventType, Payload: payload, TargetUserIDs: ids, CreatedAt: time.Now().UTC()}
}
