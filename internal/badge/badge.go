package badge

import (
	"time"

	"github.com/Avenger11764/duo-learning/internal/model"
)

// Predicate decides whether a badge unlocks. It reads the hypothetical
// post-session profile, the session just logged, and the evaluation time,
// and never mutates anything.
type Predicate func(p model.Profile, s model.Session, now time.Time) bool

// Badge serializes without its predicate: clients only ever see the
// display fields.
type Badge struct {
	ID          model.BadgeID `json:"id"`
	Name        string        `json:"name"`
	Icon        string        `json:"icon"`
	Description string        `json:"description"`
	Condition   Predicate     `json:"-"`
}

// Catalog returns the fixed, global badge set in display order. It is
// read-only configuration, not user data.
func Catalog() []Badge {
	return []Badge{
		{
			ID:          "b1",
			Name:        "First Steps",
			Icon:        "🌱",
			Description: "Logged your first session",
			Condition: func(p model.Profile, _ model.Session, _ time.Time) bool {
				return p.XP > 0
			},
		},
		{
			ID:          "b2",
			Name:        "On Fire",
			Icon:        "🔥",
			Description: "Reached a 3-day streak",
			Condition: func(p model.Profile, _ model.Session, _ time.Time) bool {
				return p.Streak >= 3
			},
		},
		{
			ID:          "b3",
			Name:        "Deep Diver",
			Icon:        "🤿",
			Description: "Logged a session over 60m",
			Condition: func(_ model.Profile, s model.Session, _ time.Time) bool {
				return s.Duration >= 60
			},
		},
		{
			ID:          "b4",
			Name:        "Scholar",
			Icon:        "🎓",
			Description: "Reached Level 5",
			Condition: func(p model.Profile, _ model.Session, _ time.Time) bool {
				return p.Level >= 5
			},
		},
		{
			// Night Owl reads the evaluation wall clock, not the session's
			// own timestamp, so a late-evaluated session counts against the
			// hour it is processed at.
			ID:          "b5",
			Name:        "Night Owl",
			Icon:        "🦉",
			Description: "Studied after 10 PM",
			Condition: func(_ model.Profile, _ model.Session, now time.Time) bool {
				hour := now.Hour()
				return hour >= 22 || hour < 4
			},
		},
	}
}
