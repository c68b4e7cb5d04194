package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeStreak_FirstSessionStartsAtOne(t *testing.T) {
	today := time.Date(2026, 3, 10, 14, 30, 0, 0, time.Local)

	assert.Equal(t, 1, ComputeStreak(0, nil, today))

	empty := ""
	assert.Equal(t, 1, ComputeStreak(5, &empty, today))
}

func TestComputeStreak_SameDayLeavesStreakUnchanged(t *testing.T) {
	today := time.Date(2026, 3, 10, 23, 59, 0, 0, time.Local)
	d := "2026-03-10"

	for _, prev := range []int{0, 1, 7, 42} {
		assert.Equal(t, prev, ComputeStreak(prev, &d, today))
	}
}

func TestComputeStreak_YesterdayExtends(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 5, 0, 0, time.Local)
	d := "2026-03-09"

	assert.Equal(t, 3, ComputeStreak(2, &d, today))
	assert.Equal(t, 1, ComputeStreak(0, &d, today))
}

func TestComputeStreak_GapResets(t *testing.T) {
	today := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)

	twoDays := "2026-03-08"
	assert.Equal(t, 1, ComputeStreak(9, &twoDays, today))

	lastMonth := "2026-02-01"
	assert.Equal(t, 1, ComputeStreak(30, &lastMonth, today))
}

func TestComputeStreak_ExtendsAcrossSpringForward(t *testing.T) {
	// US DST starts 2026-03-08: the local day Mar 8 -> Mar 9 is only 23
	// hours long, which must still count as exactly one day.
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	saved := time.Local
	time.Local = loc
	defer func() { time.Local = saved }()

	d := "2026-03-08"
	today := time.Date(2026, 3, 9, 14, 0, 0, 0, loc)
	assert.Equal(t, 3, ComputeStreak(2, &d, today))
}

func TestComputeStreak_FutureDateTreatedAsToday(t *testing.T) {
	// Clock skew or a backdated entry must not produce a negative or
	// reset streak.
	today := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	future := "2026-03-12"

	assert.Equal(t, 4, ComputeStreak(4, &future, today))
}
