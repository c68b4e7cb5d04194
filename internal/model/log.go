package model

import "time"

type LogID string

// LogEntry is one completed (or early-finished) study session. Author
// fields are a snapshot taken at write time and intentionally drift from
// later profile edits. Immutable except Likes, which only grows.
type LogEntry struct {
	ID         LogID     `json:"id"`
	UserID     ProfileID `json:"userId"`
	UserName   string    `json:"userName"`
	UserAvatar string    `json:"userAvatar"`
	Action     string    `json:"action"`
	Subject    string    `json:"subject"`
	Duration   int       `json:"duration"`
	Note       string    `json:"note"`
	Likes      int       `json:"likes"`

	// Server-assigned; zero until the store acknowledges the append.
	Timestamp time.Time `json:"timestamp"`
}

// Session is the just-logged session handed to badge predicates.
type Session struct {
	Subject  string
	Duration int
}
