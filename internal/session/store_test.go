package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(id string, now time.Time, ttl time.Duration) *Session {
	return &Session{ID: id, UserID: 1, Fresh: true, CreatedAt: now, ExpiresAt: now.Add(ttl)}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Create(ctx, newSession("live", now, time.Hour)))
	require.NoError(t, store.Create(ctx, newSession("dead", now, -time.Minute)))

	got, err := store.Get(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UserID)

	_, err = store.Get(ctx, "dead")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Delete(ctx, "live"))
	assert.Equal(t, 0, store.Len())
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	store, err := NewRedisStore(ctx, "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer store.Close()

	now := time.Now()
	require.NoError(t, store.Create(ctx, newSession("abc", now, time.Hour)))
	assert.True(t, mr.Exists("session:abc"))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL("session:abc").Seconds(), 5)

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.ID)
	assert.True(t, got.Fresh)

	mr.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisStore_Delete(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	store, err := NewRedisStore(ctx, mr.Addr())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Create(ctx, newSession("gone", time.Now(), time.Minute)))
	require.NoError(t, store.Delete(ctx, "gone"))

	_, err = store.Get(ctx, "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_RejectsExpired(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), mr.Addr())
	require.NoError(t, err)
	defer store.Close()

	assert.Error(t, store.Create(context.Background(), newSession("old", time.Now(), -time.Second)))
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "127.0.0.1:1")
	assert.Error(t, err)
}
