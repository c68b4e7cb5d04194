package progress

import "time"

const dateLayout = "2006-01-02"

// DateString formats a moment as the local calendar date streaks are
// counted in.
func DateString(t time.Time) string {
	return t.In(time.Local).Format(dateLayout)
}

// ComputeStreak folds one study day into the consecutive-day streak.
// lastDate is the stored YYYY-MM-DD of the previous study day, nil when the
// profile has never logged a session.
//
//	no prior date        -> 1
//	same day (or future) -> prev unchanged
//	exactly yesterday    -> prev + 1
//	two or more days ago -> 1
//
// A future lastDate (clock skew, backdated entries) is deliberately treated
// like "already studied today" so the streak never goes negative or resets
// from a skewed clock.
func ComputeStreak(prev int, lastDate *string, today time.Time) int {
	if lastDate == nil || *lastDate == "" {
		return 1
	}
	last, err := time.ParseInLocation(dateLayout, *lastDate, time.Local)
	if err != nil {
		return 1
	}
	diff := dayNumber(today.In(time.Local)) - dayNumber(last)

	switch {
	case diff <= 0:
		return prev
	case diff == 1:
		return prev + 1
	default:
		return 1
	}
}

// dayNumber counts whole days on a DST-free axis so that consecutive
// calendar dates always differ by exactly 1, even across a 23h or 25h
// local day.
func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
