package feed

import (
	"time"

	"github.com/Avenger11764/duo-learning/internal/model"
)

// Stats summarizes one participant's logged activity.
type Stats struct {
	TotalMinutes int            `json:"totalMinutes"`
	Sessions     int            `json:"sessions"`
	MinutesByDay map[string]int `json:"minutesByDay"`
}

// StatsFor aggregates a profile's entries for the analytics view: total
// minutes, session count, and per-day minutes for the consistency heatmap.
// Entries without an acknowledged timestamp count toward today.
func StatsFor(entries []model.LogEntry, id model.ProfileID, now time.Time) Stats {
	s := Stats{MinutesByDay: map[string]int{}}
	for _, e := range entries {
		if e.UserID != id {
			continue
		}
		s.Sessions++
		s.TotalMinutes += e.Duration

		day := e.Timestamp
		if day.IsZero() {
			day = now
		}
		s.MinutesByDay[day.In(time.Local).Format("2006-01-02")] += e.Duration
	}
	return s
}
