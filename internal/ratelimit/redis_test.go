package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ethanvx/authguard/internal/clock"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisStore(rdb, "agl"), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()
	now := time.Now()

	entry := &Entry{
		Identifier:   "alice@example.com",
		Attempts:     3,
		FirstAttempt: now.Add(-time.Minute),
		LastAttempt:  now,
		ResetTime:    now.Add(10 * time.Minute),
	}
	require.NoError(t, store.Put(ctx, entry))

	got, err := store.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 3, got.Attempts)
	require.False(t, got.Blocked)
	require.WithinDuration(t, entry.ResetTime, got.ResetTime, time.Millisecond)
}

func TestRedisStoreMissingIdentifier(t *testing.T) {
	store, _ := newRedisStore(t)

	got, err := store.Get(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisStoreTTLTracksResetTime(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	entry := &Entry{
		Identifier: "bob@example.com",
		Attempts:   1,
		ResetTime:  time.Now().Add(30 * time.Second),
	}
	require.NoError(t, store.Put(ctx, entry))

	mr.FastForward(31 * time.Second)

	got, err := store.Get(ctx, "bob@example.com")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisStorePutExpiredDeletes(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	live := &Entry{Identifier: "x", Attempts: 1, ResetTime: time.Now().Add(time.Minute)}
	require.NoError(t, store.Put(ctx, live))

	stale := &Entry{Identifier: "x", Attempts: 2, ResetTime: time.Now().Add(-time.Second)}
	require.NoError(t, store.Put(ctx, stale))

	got, err := store.Get(ctx, "x")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisStoreEntries(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Put(ctx, &Entry{
			Identifier: id,
			Attempts:   1,
			ResetTime:  time.Now().Add(time.Minute),
		}))
	}

	entries, err := store.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
}

func TestLimiterOnRedisStoreEscalates(t *testing.T) {
	store, _ := newRedisStore(t)
	l := New(store, clock.System(), testConfig())
	ctx := context.Background()

	recordFailures(t, l, "alice@example.com", 5)

	d, err := l.Check(ctx, "alice@example.com")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, 60*time.Second, d.RetryAfter)

	recordFailures(t, l, "alice@example.com", 1)

	d, err = l.Check(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, 300*time.Second, d.RetryAfter)
}
