package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplySession_NoLevelUp(t *testing.T) {
	var l Leveling

	out, leveled := l.ApplySession(State{XP: 0, Level: 1, MaxXP: 500}, 30)

	assert.False(t, leveled)
	assert.Equal(t, State{XP: 60, Level: 1, MaxXP: 500}, out)
}

func TestApplySession_SingleLevelUp(t *testing.T) {
	var l Leveling

	out, leveled := l.ApplySession(State{XP: 480, Level: 1, MaxXP: 500}, 20)

	assert.True(t, leveled)
	assert.Equal(t, State{XP: 20, Level: 2, MaxXP: 600}, out)
}

func TestApplySession_MultiLevelCrossing(t *testing.T) {
	// 490 + 1000*2 = 2490 raw xp crosses three thresholds:
	// 500 -> 600 -> 720, landing at 670 under a threshold of 864.
	var l Leveling

	out, leveled := l.ApplySession(State{XP: 490, Level: 1, MaxXP: 500}, 1000)

	assert.True(t, leveled)
	assert.Equal(t, State{XP: 670, Level: 4, MaxXP: 864}, out)
}

func TestApplySession_InvariantHolds(t *testing.T) {
	var l Leveling

	cases := []struct {
		s       State
		minutes int
	}{
		{State{XP: 0, Level: 1, MaxXP: 500}, 0},
		{State{XP: 499, Level: 1, MaxXP: 500}, 1},
		{State{XP: 0, Level: 3, MaxXP: 720}, 5000},
		{State{XP: 123, Level: 2, MaxXP: 600}, 37},
		{State{}, 90}, // zero state falls back to defaults
	}

	for _, tc := range cases {
		out, _ := l.ApplySession(tc.s, tc.minutes)
		assert.GreaterOrEqual(t, out.XP, 0)
		assert.Less(t, out.XP, out.MaxXP)
		if tc.s.Level >= 1 {
			assert.GreaterOrEqual(t, out.Level, tc.s.Level)
		}
	}
}

func TestApplySession_CustomRate(t *testing.T) {
	l := Leveling{XPPerMinute: 3}

	out, _ := l.ApplySession(State{XP: 0, Level: 1, MaxXP: 500}, 10)

	assert.Equal(t, 30, out.XP)
}
