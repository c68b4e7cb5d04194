package focus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avenger11764/duo-learning/internal/badge"
	"github.com/Avenger11764/duo-learning/internal/clock"
	"github.com/Avenger11764/duo-learning/internal/feed"
	"github.com/Avenger11764/duo-learning/internal/model"
	"github.com/Avenger11764/duo-learning/internal/profile"
	"github.com/Avenger11764/duo-learning/internal/session"
	"github.com/Avenger11764/duo-learning/internal/store"
)

func newControllerForTests(t *testing.T) (*Controller, *clock.FakeClock, *profile.Repo, *feed.Repo) {
	t.Helper()
	fake := clock.NewFakeClock(time.Date(2026, 3, 10, 14, 0, 0, 0, time.Local))
	st := store.NewMemory(fake)
	profiles := profile.NewRepo(st)
	require.NoError(t, profiles.SeedIfEmpty(context.Background()))
	logs := feed.NewRepo(st)
	logger := &session.Logger{
		Profiles: profiles,
		Feed:     logs,
		Catalog:  badge.Catalog(),
		Clock:    fake,
	}
	ctrl := NewController(Options{
		Clock:     fake,
		Profiles:  profiles,
		Logger:    logger,
		ProfileID: "user1",
	})
	return ctrl, fake, profiles, logs
}

func reactSubject() model.Subject {
	return model.Subject{ID: "s1", Name: "React"}
}

func TestController_StartPublishesStatus(t *testing.T) {
	ctrl, fake, profiles, _ := newControllerForTests(t)
	ctx := context.Background()

	require.NoError(t, ctrl.Start(ctx, reactSubject(), 25))
	assert.Equal(t, StateRunning, ctrl.State())

	p, err := profiles.Get(ctx, "user1")
	require.NoError(t, err)
	assert.True(t, p.FocusStatus.IsActive)
	assert.Equal(t, "React", p.FocusStatus.Subject)
	require.NotNil(t, p.FocusStatus.EndTime)
	assert.Equal(t, fake.Now().Add(25*time.Minute).UnixMilli(), *p.FocusStatus.EndTime)

	assert.ErrorIs(t, ctrl.Start(ctx, reactSubject(), 25), ErrAlreadyRunning)
}

func TestController_StopClearsWithoutLogging(t *testing.T) {
	ctrl, _, profiles, logs := newControllerForTests(t)
	ctx := context.Background()

	require.NoError(t, ctrl.Start(ctx, reactSubject(), 25))
	require.NoError(t, ctrl.Stop(ctx))
	assert.Equal(t, StateIdle, ctrl.State())

	p, err := profiles.Get(ctx, "user1")
	require.NoError(t, err)
	assert.False(t, p.FocusStatus.IsActive)

	entries, err := logs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestController_NaturalCompletionLogsFullDuration(t *testing.T) {
	ctrl, fake, profiles, logs := newControllerForTests(t)
	ctx := context.Background()

	require.NoError(t, ctrl.Start(ctx, reactSubject(), 25))

	fake.Advance(10 * time.Minute)
	remaining, st, err := ctrl.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, st)
	assert.Equal(t, 15*time.Minute, remaining)

	fake.Advance(15 * time.Minute)
	_, st, err = ctrl.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateFinished, st)

	entries, err := logs.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 25, entries[0].Duration)
	assert.Equal(t, CompletionNote, entries[0].Note)

	p, err := profiles.Get(ctx, "user1")
	require.NoError(t, err)
	assert.False(t, p.FocusStatus.IsActive)
	assert.Equal(t, 50, p.XP)
}

func TestController_EarlyFinishLogsElapsedMinutes(t *testing.T) {
	ctrl, fake, _, logs := newControllerForTests(t)
	ctx := context.Background()

	require.NoError(t, ctrl.Start(ctx, reactSubject(), 25))

	// 10m30s in: 14m30s remain, which rounds up to 15, so 10 minutes count.
	fake.Advance(10*time.Minute + 30*time.Second)
	minutes, err := ctrl.FinishEarly(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, minutes)

	entries, err := logs.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 10, entries[0].Duration)
}

func TestController_ImmediateEarlyFinishLogsNothing(t *testing.T) {
	ctrl, _, _, logs := newControllerForTests(t)
	ctx := context.Background()

	require.NoError(t, ctrl.Start(ctx, reactSubject(), 25))
	minutes, err := ctrl.FinishEarly(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, minutes)

	entries, err := logs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEffective_StaleStatusReadsAsIdle(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.Local)

	past := now.Add(-time.Minute).UnixMilli()
	got := Effective(model.FocusStatus{IsActive: true, EndTime: &past, Subject: "React"}, now)
	assert.False(t, got.IsActive)

	future := now.Add(time.Minute).UnixMilli()
	got = Effective(model.FocusStatus{IsActive: true, EndTime: &future, Subject: "React"}, now)
	assert.True(t, got.IsActive)
	assert.Equal(t, "React", got.Subject)

	got = Effective(model.FocusStatus{IsActive: true, Subject: "React"}, now)
	assert.False(t, got.IsActive, "active status without an end time is treated as abandoned")
}
