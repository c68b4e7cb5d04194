package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Avenger11764/duo-learning/internal/badge"
	"github.com/Avenger11764/duo-learning/internal/clock"
	"github.com/Avenger11764/duo-learning/internal/feed"
	"github.com/Avenger11764/duo-learning/internal/model"
	"github.com/Avenger11764/duo-learning/internal/profile"
	"github.com/Avenger11764/duo-learning/internal/progress"
	"github.com/Avenger11764/duo-learning/internal/store"
	"github.com/Avenger11764/duo-learning/internal/telemetry"
)

var (
	ErrNoSubject   = errors.New("no subject selected")
	ErrBadDuration = errors.New("duration must be positive")
)

// WriteError reports which of the two writes failed. There is no
// compensating rollback: whichever write succeeded stays in place.
type WriteError struct {
	Stage string // "profile" or "log"
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s write not acknowledged: %v", e.Stage, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Result carries the transient outcome signals back to the caller; none of
// it is persisted beyond the profile and log writes themselves.
type Result struct {
	Profile   model.Profile
	EntryID   model.LogID
	LeveledUp bool
	NewBadges []badge.Badge
}

// Logger orchestrates the log-a-study-session transaction: read the local
// profile snapshot, run the pure streak/leveling/badge rules, then issue
// one profile update and one feed append. No cross-client lock is taken;
// concurrent writers race under last-write-wins semantics.
type Logger struct {
	Profiles    *profile.Repo
	Feed        *feed.Repo
	Leveling    progress.Leveling
	Catalog     []badge.Badge
	Clock       clock.Clock
	Telemetry   telemetry.Repository
	SubjectBump int
}

func (l *Logger) now() clock.Clock {
	if l.Clock == nil {
		return clock.RealClock{}
	}
	return l.Clock
}

func (l *Logger) subjectBump() int {
	if l.SubjectBump <= 0 {
		return 5
	}
	return l.SubjectBump
}

func (l *Logger) record(t telemetry.EventType, md telemetry.EventMetadata) {
	if l.Telemetry != nil {
		_ = l.Telemetry.RecordEvent(t, md)
	}
}

// Log runs the full transaction for one session. Success is signalled only
// after both writes are acknowledged; a failed second write surfaces a
// WriteError while the first write stays in place.
func (l *Logger) Log(ctx context.Context, profileID model.ProfileID, subjectID string, minutes int, note string) (Result, error) {
	if minutes <= 0 {
		return Result{}, ErrBadDuration
	}
	if strings.TrimSpace(subjectID) == "" {
		return Result{}, ErrNoSubject
	}

	p, err := l.Profiles.Get(ctx, profileID)
	if err != nil {
		return Result{}, err
	}

	var subject *model.Subject
	for i := range p.Subjects {
		if p.Subjects[i].ID == subjectID {
			subject = &p.Subjects[i]
			break
		}
	}
	if subject == nil {
		return Result{}, ErrNoSubject
	}

	now := l.now().Now()
	newStreak := progress.ComputeStreak(p.Streak, p.LastStudyDate, now)

	state, leveledUp := l.Leveling.ApplySession(progress.State{
		XP:    p.XP,
		Level: p.Level,
		MaxXP: p.MaxXP,
	}, minutes)

	// Badges see the raw post-session xp (pre-settlement) so a session that
	// lands exactly on a threshold still counts as having earned xp.
	hyp := p
	hyp.XP = p.XP + l.Leveling.XPForMinutes(minutes)
	hyp.Level = state.Level
	hyp.Streak = newStreak
	sess := model.Session{Subject: subject.Name, Duration: minutes}
	newBadges := badge.Evaluate(l.Catalog, p.Badges, hyp, sess, now)

	subjects := make([]model.Subject, len(p.Subjects))
	copy(subjects, p.Subjects)
	for i := range subjects {
		if subjects[i].ID == subjectID {
			subjects[i].Progress += l.subjectBump()
			if subjects[i].Progress > 100 {
				subjects[i].Progress = 100
			}
		}
	}

	today := progress.DateString(now)
	err = l.Profiles.UpdateFields(ctx, profileID, store.Fields{
		"xp":            state.XP,
		"level":         state.Level,
		"maxXp":         state.MaxXP,
		"streak":        newStreak,
		"lastStudyDate": today,
		"badges":        badge.Merge(p.Badges, newBadges),
		"subjects":      subjects,
	})
	if err != nil {
		return Result{}, &WriteError{Stage: "profile", Err: err}
	}

	entryID, err := l.Feed.Append(ctx, model.LogEntry{
		UserID:     p.ID,
		UserName:   p.Name,
		UserAvatar: p.Avatar,
		Action:     "studied",
		Subject:    subject.Name,
		Duration:   minutes,
		Note:       note,
	})
	if err != nil {
		// The profile update above is already in place and stays.
		return Result{}, &WriteError{Stage: "log", Err: err}
	}

	l.record(telemetry.EventSessionLogged, telemetry.EventMetadata{
		"profile": string(profileID), "subject": subject.Name, "minutes": minutes,
	})
	if leveledUp {
		l.record(telemetry.EventLevelUp, telemetry.EventMetadata{
			"profile": string(profileID), "level": state.Level,
		})
	}
	for _, b := range newBadges {
		l.record(telemetry.EventBadgeUnlocked, telemetry.EventMetadata{
			"profile": string(profileID), "badge": string(b.ID),
		})
	}

	updated, err := l.Profiles.Get(ctx, profileID)
	if err != nil {
		updated = p
	}

	return Result{
		Profile:   updated,
		EntryID:   entryID,
		LeveledUp: leveledUp,
		NewBadges: newBadges,
	}, nil
}
