package badge

import (
	"time"

	"github.com/Avenger11764/duo-learning/internal/model"
)

// Evaluate scans the catalog against the hypothetical post-session profile
// and the session just logged, returning badges newly earned this time in
// catalog order. Already-earned badges are never returned again, so the
// cumulative earned set only grows and repeated evaluation with the merged
// set is idempotent.
func Evaluate(catalog []Badge, earned []model.BadgeID, p model.Profile, s model.Session, now time.Time) []Badge {
	have := make(map[model.BadgeID]bool, len(earned))
	for _, id := range earned {
		have[id] = true
	}

	var newly []Badge
	for _, b := range catalog {
		if have[b.ID] {
			continue
		}
		if b.Condition != nil && b.Condition(p, s, now) {
			newly = append(newly, b)
		}
	}
	return newly
}

// Merge appends newly earned badge ids to the earned set, preserving order
// and skipping duplicates.
func Merge(earned []model.BadgeID, newly []Badge) []model.BadgeID {
	out := append([]model.BadgeID{}, earned...)
	have := make(map[model.BadgeID]bool, len(out))
	for _, id := range out {
		have[id] = true
	}
	for _, b := range newly {
		if !have[b.ID] {
			out = append(out, b.ID)
			have[b.ID] = true
		}
	}
	return out
}
