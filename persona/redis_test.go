package persona

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/rankgate/rankgate/transport"
)

// newRedisStore spins up an in-process Redis and connects a store to it.
func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), RedisConfig{
		Address:   mr.Addr(),
		KeyPrefix: "test:persona:",
	}, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		store, _ := newRedisStore(t, time.Hour)

		require.NoError(t, store.Set(ctx, 1, "alice"))

		name, err := store.Get(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, "alice", name)
	})

	t.Run("missing id", func(t *testing.T) {
		store, _ := newRedisStore(t, time.Hour)

		_, err := store.Get(ctx, 404)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("placeholder names read as absent", func(t *testing.T) {
		store, _ := newRedisStore(t, time.Hour)

		require.NoError(t, store.Set(ctx, 2, UnknownName))

		_, err := store.Get(ctx, 2)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("pipelined batch round trip", func(t *testing.T) {
		store, _ := newRedisStore(t, time.Hour)

		require.NoError(t, store.SetMultiple(ctx, map[transport.SteamID]string{
			10: "alice",
			11: "bob",
		}))

		names, err := store.GetMultiple(ctx, []transport.SteamID{10, 11, 12})
		require.NoError(t, err)
		require.Equal(t, map[transport.SteamID]string{10: "alice", 11: "bob"}, names)
	})

	t.Run("keys carry the configured prefix", func(t *testing.T) {
		store, mr := newRedisStore(t, time.Hour)

		require.NoError(t, store.Set(ctx, 7, "carol"))
		require.True(t, mr.Exists("test:persona:7"))
	})

	t.Run("entries expire with the ttl", func(t *testing.T) {
		store, mr := newRedisStore(t, time.Minute)

		require.NoError(t, store.Set(ctx, 1, "alice"))
		mr.FastForward(2 * time.Minute)

		_, err := store.Get(ctx, 1)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("connection failure surfaces at construction", func(t *testing.T) {
		_, err := NewRedisStore(ctx, RedisConfig{
			Address:     "127.0.0.1:1",
			DialTimeout: 100 * time.Millisecond,
		}, time.Hour)
		require.Error(t, err)
	})
}
