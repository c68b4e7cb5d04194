package progress

const (
	// DefaultXPPerMinute is the documented minutes-to-experience rate.
	DefaultXPPerMinute = 2

	// DefaultBaseMaxXP is the level-1 threshold for new profiles.
	DefaultBaseMaxXP = 500

	// thresholdGrowthNum/Den grow the threshold 20% per level, floored.
	thresholdGrowthNum = 12
	thresholdGrowthDen = 10
)

// State is the leveling triple carried on a profile. Invariant after
// ApplySession: 0 <= XP < MaxXP.
type State struct {
	XP    int
	Level int
	MaxXP int
}

// Leveling converts studied minutes into experience and levels. The zero
// value uses the documented defaults.
type Leveling struct {
	XPPerMinute int
}

func (l Leveling) rate() int {
	if l.XPPerMinute <= 0 {
		return DefaultXPPerMinute
	}
	return l.XPPerMinute
}

// XPForMinutes is the raw experience a session of the given length earns,
// before any threshold crossing settles it.
func (l Leveling) XPForMinutes(minutes int) int {
	if minutes < 0 {
		return 0
	}
	return minutes * l.rate()
}

// ApplySession folds a session's minutes into the leveling state. The
// threshold loop runs until xp fits under the current threshold, so a
// single long session can cross several levels at once.
func (l Leveling) ApplySession(s State, minutes int) (State, bool) {
	if s.Level < 1 {
		s.Level = 1
	}
	if s.MaxXP <= 0 {
		s.MaxXP = DefaultBaseMaxXP
	}
	if minutes < 0 {
		minutes = 0
	}

	xp := s.XP + minutes*l.rate()
	level := s.Level
	max := s.MaxXP
	leveledUp := false

	for xp >= max {
		xp -= max
		level++
		max = max * thresholdGrowthNum / thresholdGrowthDen
		leveledUp = true
	}

	return State{XP: xp, Level: level, MaxXP: max}, leveledUp
}
