package model

type ProfileID string

type BadgeID string

// Subject progress is a 0..100 percentage bumped on every logged session.
type Subject struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Progress int    `json:"progress"`
}

type Goal struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// FocusStatus is the only profile field another process (the focus
// controller) mutates, and the only one meant to be read cross-user.
// EndTime is epoch milliseconds; readers treat a past EndTime as idle.
type FocusStatus struct {
	IsActive bool   `json:"isActive"`
	EndTime  *int64 `json:"endTime"`
	Subject  string `json:"subject"`
}

// Profile is one participant's persisted gamification state. Field names
// are the wire contract shared with existing stored data; do not rename.
type Profile struct {
	ID     ProfileID `json:"id"`
	Name   string    `json:"name"`
	Role   string    `json:"role"`
	Avatar string    `json:"avatar"`

	Level int `json:"level"`
	XP    int `json:"xp"`
	MaxXP int `json:"maxXp"`

	Streak        int     `json:"streak"`
	LastStudyDate *string `json:"lastStudyDate,omitempty"` // YYYY-MM-DD, local date

	Badges []BadgeID `json:"badges"`

	FocusStatus FocusStatus `json:"focusStatus"`

	Subjects []Subject `json:"subjects"`
	Goals    []Goal    `json:"goals"`

	// Optional password-equivalent checked at login; opaque equality only.
	Credential string `json:"credential,omitempty"`
}
