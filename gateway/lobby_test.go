package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pokt-network/poktroll/pkg/polylog/polyzero"
	"github.com/stretchr/testify/require"

	"github.com/rankgate/rankgate/persona"
	"github.com/rankgate/rankgate/transport"
	"github.com/rankgate/rankgate/transport/fake"
)

type lobbyHarness struct {
	fake    *fake.Transport
	store   *persona.MemoryStore
	service *LobbyService
}

// newLobbyHarness builds a lobby service over the fake transport. A single
// fetch worker keeps filter set requests sequential, so queued answers pair
// with filter sets in submission order.
func newLobbyHarness(t *testing.T, config LobbyServiceConfig) *lobbyHarness {
	t.Helper()
	logger := polyzero.NewLogger()

	ft := fake.New()
	store := persona.NewMemoryStore(0, time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	registries := NewRegistries()
	resolver := persona.NewResolver(logger, ft, store, registries.Identities)
	ft.Subscribe(NewCallbackRouter(logger, registries, store))

	config.FetchWorkers = 1
	service := NewLobbyService(logger, ft, registries, resolver, store, config)
	t.Cleanup(service.Close)

	return &lobbyHarness{fake: ft, store: store, service: service}
}

func TestLobbyList(t *testing.T) {
	config := LobbyServiceConfig{
		AppID:       730,
		StepTimeout: 2 * time.Second,
		NameWait:    time.Second,
	}

	t.Run("merges filter sets deduplicated and sorted by id", func(t *testing.T) {
		h := newLobbyHarness(t, config)
		h.fake.QueueLobbyList(transport.LobbyListResult{
			Status: transport.StatusOK,
			Lobbies: []transport.Lobby{
				{ID: 30, NumMembers: 4},
				{ID: 10, NumMembers: 2},
			},
		})
		h.fake.QueueLobbyList(transport.LobbyListResult{
			Status: transport.StatusOK,
			Lobbies: []transport.Lobby{
				{ID: 10, NumMembers: 9}, // duplicate, first sighting wins
				{ID: 20, NumMembers: 3},
			},
		})

		snapshot, err := h.service.List(context.Background(), []map[string]string{
			{"mode": "coop"},
			{"mode": "pvp"},
		}, 200)
		require.NoError(t, err)

		require.Len(t, snapshot.Lobbies, 3)
		require.Equal(t, transport.SteamID(10), snapshot.Lobbies[0].ID)
		require.Equal(t, transport.SteamID(20), snapshot.Lobbies[1].ID)
		require.Equal(t, transport.SteamID(30), snapshot.Lobbies[2].ID)
		require.Equal(t, int32(2), snapshot.Lobbies[0].NumMembers)

		require.Len(t, h.fake.LobbyRequests(), 2)
	})

	t.Run("failing filter set yields partial results", func(t *testing.T) {
		h := newLobbyHarness(t, config)
		h.fake.QueueLobbyList(transport.LobbyListResult{
			Status:  transport.StatusOK,
			Lobbies: []transport.Lobby{{ID: 1}},
		})
		h.fake.QueueLobbyList(transport.LobbyListResult{Status: transport.StatusFail})
		h.fake.QueueLobbyList(transport.LobbyListResult{
			Status:  transport.StatusOK,
			Lobbies: []transport.Lobby{{ID: 3}},
		})

		snapshot, err := h.service.List(context.Background(), []map[string]string{
			{"set": "1"},
			{"set": "2"},
			{"set": "3"},
		}, 200)
		require.NoError(t, err)

		require.Len(t, snapshot.Lobbies, 2)
		require.Equal(t, transport.SteamID(1), snapshot.Lobbies[0].ID)
		require.Equal(t, transport.SteamID(3), snapshot.Lobbies[1].ID)
	})

	t.Run("empty filter sets issue one unfiltered request", func(t *testing.T) {
		h := newLobbyHarness(t, config)
		h.fake.QueueLobbyList(transport.LobbyListResult{Status: transport.StatusOK})

		snapshot, err := h.service.List(context.Background(), nil, 200)
		require.NoError(t, err)
		require.Empty(t, snapshot.Lobbies)

		requests := h.fake.LobbyRequests()
		require.Len(t, requests, 1)
		require.Empty(t, requests[0])
	})

	t.Run("session down fails fast", func(t *testing.T) {
		h := newLobbyHarness(t, config)
		h.fake.SetSessionDown(true)

		_, err := h.service.List(context.Background(), nil, 200)
		require.True(t, errors.Is(err, transport.ErrNoSession))
	})

	t.Run("owner names from metadata with cache fallback", func(t *testing.T) {
		h := newLobbyHarness(t, config)
		h.fake.SetPersona(77, "bob")
		h.fake.QueueLobbyList(transport.LobbyListResult{
			Status: transport.StatusOK,
			Lobbies: []transport.Lobby{
				{ID: 1, Metadata: map[string]string{"owner": "Alice"}},
				{ID: 2, OwnerID: 77},
				{ID: 3},
			},
		})

		snapshot, err := h.service.List(context.Background(), nil, 200)
		require.NoError(t, err)

		require.Equal(t, "Alice", snapshot.Lobbies[0].OwnerName)
		require.Equal(t, "bob", snapshot.Lobbies[1].OwnerName)
		require.Equal(t, unknownOwnerName, snapshot.Lobbies[2].OwnerName)

		// Only the lobby without a metadata name costs a lookup.
		require.Equal(t, 1, h.fake.NameLookupCount())
	})

	t.Run("cache mode ignores metadata owner names", func(t *testing.T) {
		h := newLobbyHarness(t, LobbyServiceConfig{
			AppID:           730,
			StepTimeout:     2 * time.Second,
			NameWait:        time.Second,
			OwnerNameSource: OwnerNameFromCache,
		})
		h.fake.SetPersona(77, "bob")
		h.fake.QueueLobbyList(transport.LobbyListResult{
			Status: transport.StatusOK,
			Lobbies: []transport.Lobby{
				{ID: 1, OwnerID: 77, Metadata: map[string]string{"owner": "Spoofed"}},
			},
		})

		snapshot, err := h.service.List(context.Background(), nil, 200)
		require.NoError(t, err)
		require.Equal(t, "bob", snapshot.Lobbies[0].OwnerName)
	})

	t.Run("owner id recovered from metadata", func(t *testing.T) {
		h := newLobbyHarness(t, config)
		h.fake.SetPersona(99, "carol")
		h.fake.QueueLobbyList(transport.LobbyListResult{
			Status: transport.StatusOK,
			Lobbies: []transport.Lobby{
				{ID: 1, Metadata: map[string]string{"ownerId": "99"}},
			},
		})

		snapshot, err := h.service.List(context.Background(), nil, 200)
		require.NoError(t, err)
		require.Equal(t, "carol", snapshot.Lobbies[0].OwnerName)
	})

	t.Run("unparseable owner id metadata keeps placeholder", func(t *testing.T) {
		h := newLobbyHarness(t, config)
		h.fake.QueueLobbyList(transport.LobbyListResult{
			Status: transport.StatusOK,
			Lobbies: []transport.Lobby{
				{ID: 1, Metadata: map[string]string{"ownerId": "not-a-number"}},
			},
		})

		snapshot, err := h.service.List(context.Background(), nil, 200)
		require.NoError(t, err)
		require.Equal(t, unknownOwnerName, snapshot.Lobbies[0].OwnerName)
		require.Zero(t, h.fake.NameLookupCount())
	})
}
