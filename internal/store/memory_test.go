package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avenger11764/duo-learning/internal/clock"
)

func TestMemory_SetGetRoundTrip(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "duo_users", "user1", Fields{"name": "Alex", "xp": 60}))

	got, err := m.Get(ctx, "duo_users", "user1")
	require.NoError(t, err)
	assert.Equal(t, "Alex", got["name"])
	assert.Equal(t, 60, Int(got, "xp"))

	_, err = m.Get(ctx, "duo_users", "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_GetReturnsClone(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "duo_users", "user1", Fields{"name": "Alex"}))

	got, err := m.Get(ctx, "duo_users", "user1")
	require.NoError(t, err)
	got["name"] = "Mallory"

	again, err := m.Get(ctx, "duo_users", "user1")
	require.NoError(t, err)
	assert.Equal(t, "Alex", again["name"])
}

func TestMemory_UpdateFieldsMerges(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "duo_users", "user1", Fields{"name": "Alex", "xp": 60, "streak": 2}))
	require.NoError(t, m.UpdateFields(ctx, "duo_users", "user1", Fields{"xp": 90}))

	got, err := m.Get(ctx, "duo_users", "user1")
	require.NoError(t, err)
	assert.Equal(t, 90, Int(got, "xp"))
	assert.Equal(t, "Alex", got["name"], "untouched fields survive the merge")
	assert.Equal(t, 2, Int(got, "streak"))

	assert.ErrorIs(t, m.UpdateFields(ctx, "duo_users", "ghost", Fields{"xp": 1}), ErrNotFound)
}

func TestMemory_ServerTimestampResolution(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC))
	m := NewMemory(fake)
	ctx := context.Background()

	id, err := m.Append(ctx, "duo_logs", Fields{"action": "studied", "timestamp": ServerTimestamp})
	require.NoError(t, err)

	got, err := m.Get(ctx, "duo_logs", id)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10T14:00:00Z", got["timestamp"], "sentinel replaced with store time, not client time")
}

func TestMemory_SubscribeDeliversAfterEveryMutation(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	ch, stop := m.Subscribe(ctx, "duo_users")
	defer stop()

	// Initial snapshot arrives immediately, even when empty.
	snap := <-ch
	assert.Empty(t, snap)

	require.NoError(t, m.Set(ctx, "duo_users", "user1", Fields{"name": "Alex"}))
	snap = <-ch
	require.Contains(t, snap, "user1")
	assert.Equal(t, "Alex", snap["user1"]["name"])

	require.NoError(t, m.Delete(ctx, "duo_users", "user1"))
	snap = <-ch
	assert.Empty(t, snap)
}

func TestMemory_SubscribeIsLatestWins(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	ch, stop := m.Subscribe(ctx, "duo_users")
	defer stop()
	<-ch // initial

	// Nobody reads while three writes land; only the newest survives.
	require.NoError(t, m.Set(ctx, "duo_users", "user1", Fields{"xp": 1}))
	require.NoError(t, m.Set(ctx, "duo_users", "user1", Fields{"xp": 2}))
	require.NoError(t, m.Set(ctx, "duo_users", "user1", Fields{"xp": 3}))

	snap := <-ch
	assert.Equal(t, 3, Int(snap["user1"], "xp"))
	select {
	case extra := <-ch:
		t.Fatalf("unexpected queued snapshot: %v", extra)
	default:
	}
}

func TestMemory_StopClosesChannel(t *testing.T) {
	m := NewMemory(nil)
	ch, stop := m.Subscribe(context.Background(), "duo_users")
	<-ch
	stop()
	_, ok := <-ch
	assert.False(t, ok)

	// Writes after stop must not panic or block.
	require.NoError(t, m.Set(context.Background(), "duo_users", "user1", Fields{"name": "Alex"}))
}
