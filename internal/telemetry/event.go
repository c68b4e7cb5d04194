package telemetry

import "time"

type EventType string

const (
	EventSessionLogged EventType = "session_logged"
	EventLevelUp       EventType = "level_up"
	EventBadgeUnlocked EventType = "badge_unlocked"
	EventFocusStarted  EventType = "focus_started"
	EventFocusStopped  EventType = "focus_stopped"
	EventFocusFinished EventType = "focus_finished"
	EventEntryLiked    EventType = "entry_liked"
	EventProfileEdited EventType = "profile_edited"
	EventStoreReset    EventType = "store_reset"
)

type Event struct {
	ID        int       `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  string    `json:"metadata"`
}

type EventMetadata map[string]interface{}
