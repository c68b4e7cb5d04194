package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avenger11764/duo-learning/internal/clock"
	"github.com/Avenger11764/duo-learning/internal/model"
	"github.com/Avenger11764/duo-learning/internal/store"
)

func newRepoForTests(t *testing.T) *Repo {
	t.Helper()
	fake := clock.NewFakeClock(time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC))
	r := NewRepo(store.NewMemory(fake))
	require.NoError(t, r.SeedIfEmpty(context.Background()))
	return r
}

func TestSeedIfEmpty_IsIdempotent(t *testing.T) {
	r := newRepoForTests(t)
	ctx := context.Background()

	require.NoError(t, r.UpdateFields(ctx, "user1", store.Fields{"xp": 250}))
	require.NoError(t, r.SeedIfEmpty(ctx))

	p, err := r.Get(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 250, p.XP, "reseeding a populated store must not clobber data")

	ps, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, model.ProfileID("user1"), ps[0].ID)
	assert.Equal(t, model.ProfileID("user2"), ps[1].ID)
}

func TestGet_NormalizesSparseDocuments(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC))
	st := store.NewMemory(fake)
	r := NewRepo(st)
	ctx := context.Background()

	// A document written by an older client: only a name.
	require.NoError(t, st.Set(ctx, Collection, "user9", store.Fields{"name": "Robin"}))

	p, err := r.Get(ctx, "user9")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 500, p.MaxXP)
	assert.NotNil(t, p.Badges)
	assert.NotNil(t, p.Subjects)
	assert.NotNil(t, p.Goals)
}

func TestUpdateFields_UnknownProfile(t *testing.T) {
	r := newRepoForTests(t)
	err := r.UpdateFields(context.Background(), "ghost", store.Fields{"xp": 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubjectLifecycle(t *testing.T) {
	r := newRepoForTests(t)
	ctx := context.Background()

	sub, err := r.AddSubject(ctx, "user1", "  Rust  ")
	require.NoError(t, err)
	assert.Equal(t, "Rust", sub.Name)
	assert.NotEmpty(t, sub.ID)
	assert.NotEmpty(t, sub.Color)
	assert.Equal(t, 0, sub.Progress)

	p, err := r.Get(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, p.Subjects, 4)

	require.NoError(t, r.DeleteSubject(ctx, "user1", sub.ID))
	assert.ErrorIs(t, r.DeleteSubject(ctx, "user1", sub.ID), ErrSubjectNotFound)
}

func TestGoalLifecycle(t *testing.T) {
	r := newRepoForTests(t)
	ctx := context.Background()

	g, err := r.AddGoal(ctx, "user1", "Finish chapter 4")
	require.NoError(t, err)
	assert.False(t, g.Completed)

	toggled, err := r.ToggleGoal(ctx, "user1", g.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	toggled, err = r.ToggleGoal(ctx, "user1", g.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Completed)

	_, err = r.ToggleGoal(ctx, "user1", "g_missing")
	assert.ErrorIs(t, err, ErrGoalNotFound)
}

func TestCheckCredential(t *testing.T) {
	r := newRepoForTests(t)
	ctx := context.Background()

	// Seeded profiles carry no credential and are open.
	assert.NoError(t, r.CheckCredential(ctx, "user1", ""))
	assert.NoError(t, r.CheckCredential(ctx, "user1", "anything"))

	require.NoError(t, r.UpdateFields(ctx, "user1", store.Fields{"credential": "s3cret"}))
	assert.NoError(t, r.CheckCredential(ctx, "user1", "s3cret"))
	assert.ErrorIs(t, r.CheckCredential(ctx, "user1", "wrong"), ErrCredentialMismatch)
	assert.ErrorIs(t, r.CheckCredential(ctx, "ghost", ""), ErrNotFound)
}

func TestWatch_DeliversDecodedSnapshots(t *testing.T) {
	r := newRepoForTests(t)
	ctx := context.Background()

	ch, stop := r.Watch(ctx)
	defer stop()

	ps := <-ch
	require.Len(t, ps, 2)

	require.NoError(t, r.UpdateFields(ctx, "user2", store.Fields{"streak": 7}))
	ps = <-ch
	require.Len(t, ps, 2)
	assert.Equal(t, 7, ps[1].Streak)
}
