package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/pokt-network/poktroll/pkg/polylog/polyzero"
	"github.com/stretchr/testify/require"

	"github.com/rankgate/rankgate/persona"
	"github.com/rankgate/rankgate/transport"
)

func newRouterHarness(t *testing.T) (*CallbackRouter, *Registries, *persona.MemoryStore) {
	t.Helper()
	store := persona.NewMemoryStore(0, time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	registries := NewRegistries()
	return NewCallbackRouter(polyzero.NewLogger(), registries, store), registries, store
}

func TestCallbackRouter(t *testing.T) {
	t.Run("routes find result to waiter", func(t *testing.T) {
		router, registries, _ := newRouterHarness(t)

		ticket := registries.Find.Enqueue()
		router.OnFindResult(transport.FindResult{Status: transport.StatusOK, ID: 7})

		result, err := ticket.Await(context.Background(), time.Second)
		require.NoError(t, err)
		require.Equal(t, transport.LeaderboardID(7), result.ID)
	})

	t.Run("drops callbacks with no waiter", func(t *testing.T) {
		router, registries, _ := newRouterHarness(t)

		router.OnFindResult(transport.FindResult{Status: transport.StatusOK})
		router.OnEntriesResult(transport.EntriesResult{Status: transport.StatusOK})
		router.OnLobbyList(transport.LobbyListResult{Status: transport.StatusOK})
		router.OnPersonaState(transport.PersonaState{ID: 5, Name: "nobody-waiting"})

		require.Zero(t, registries.Find.Len())
		require.Zero(t, registries.Entries.Len())
		require.Zero(t, registries.Lobbies.Len())
		require.Zero(t, registries.Identities.Len())
	})

	t.Run("persona callback caches name before resolving waiter", func(t *testing.T) {
		router, registries, store := newRouterHarness(t)

		ticket, created := registries.Identities.Claim(33)
		require.True(t, created)

		router.OnPersonaState(transport.PersonaState{ID: 33, Name: "alice"})

		_, err := ticket.Await(context.Background(), time.Second)
		require.NoError(t, err)

		// The waiter's post-resolution cache read must observe the name.
		name, err := store.Get(context.Background(), 33)
		require.NoError(t, err)
		require.Equal(t, "alice", name)
	})

	t.Run("placeholder persona names are not cached", func(t *testing.T) {
		router, registries, store := newRouterHarness(t)

		registries.Identities.Claim(44)
		router.OnPersonaState(transport.PersonaState{ID: 44, Name: persona.UnknownName})

		_, err := store.Get(context.Background(), 44)
		require.ErrorIs(t, err, persona.ErrNotFound)
		// The waiter is still resolved; the remote has nothing better.
		require.Zero(t, registries.Identities.Len())
	})
}
