package badge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avenger11764/duo-learning/internal/model"
)

var daytime = time.Date(2026, 3, 10, 14, 0, 0, 0, time.Local)

func TestEvaluate_FirstSessionEarnsFirstSteps(t *testing.T) {
	p := model.Profile{XP: 60, Level: 1, Streak: 1}
	s := model.Session{Subject: "React", Duration: 30}

	newly := Evaluate(Catalog(), nil, p, s, daytime)

	if assert.Len(t, newly, 1) {
		assert.Equal(t, model.BadgeID("b1"), newly[0].ID)
		assert.Equal(t, "First Steps", newly[0].Name)
	}
}

func TestEvaluate_ThreeDayStreakEarnsOnFire(t *testing.T) {
	p := model.Profile{XP: 200, Level: 1, Streak: 3}
	s := model.Session{Subject: "Calculus", Duration: 20}

	newly := Evaluate(Catalog(), []model.BadgeID{"b1"}, p, s, daytime)

	if assert.Len(t, newly, 1) {
		assert.Equal(t, model.BadgeID("b2"), newly[0].ID)
	}
}

func TestEvaluate_CatalogOrderAndMultipleUnlocks(t *testing.T) {
	p := model.Profile{XP: 10, Level: 5, Streak: 3}
	s := model.Session{Subject: "History", Duration: 90}

	newly := Evaluate(Catalog(), nil, p, s, daytime)

	ids := make([]model.BadgeID, 0, len(newly))
	for _, b := range newly {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []model.BadgeID{"b1", "b2", "b3", "b4"}, ids)
}

func TestEvaluate_Idempotent(t *testing.T) {
	p := model.Profile{XP: 60, Level: 1, Streak: 3}
	s := model.Session{Subject: "React", Duration: 30}

	first := Evaluate(Catalog(), nil, p, s, daytime)
	earned := Merge(nil, first)

	// Same inputs, merged earned set: nothing previously earned comes back.
	second := Evaluate(Catalog(), earned, p, s, daytime)
	assert.Empty(t, second)

	// The cumulative set holds each badge once.
	again := Merge(earned, first)
	assert.Equal(t, earned, again)
}

func TestBadgeMarshalCarriesOnlyDisplayFields(t *testing.T) {
	b, err := json.Marshal(Catalog())
	require.NoError(t, err, "badges must serialize despite the predicate field")

	s := string(b)
	assert.Contains(t, s, `"id":"b1"`)
	assert.Contains(t, s, `"name":"First Steps"`)
	assert.NotContains(t, s, "Condition")
}

func TestEvaluate_NightOwlUsesEvaluationClock(t *testing.T) {
	p := model.Profile{XP: 60, Level: 1, Streak: 1}
	s := model.Session{Subject: "React", Duration: 10}
	earned := []model.BadgeID{"b1"}

	lateNight := time.Date(2026, 3, 10, 22, 30, 0, 0, time.Local)
	newly := Evaluate(Catalog(), earned, p, s, lateNight)
	if assert.Len(t, newly, 1) {
		assert.Equal(t, model.BadgeID("b5"), newly[0].ID)
	}

	earlyMorning := time.Date(2026, 3, 10, 3, 59, 0, 0, time.Local)
	assert.Len(t, Evaluate(Catalog(), earned, p, s, earlyMorning), 1)

	assert.Empty(t, Evaluate(Catalog(), earned, p, s, daytime))
}
