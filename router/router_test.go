package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pokt-network/poktroll/pkg/polylog/polyzero"
	"github.com/stretchr/testify/require"

	"github.com/rankgate/rankgate/gateway"
	"github.com/rankgate/rankgate/health"
	"github.com/rankgate/rankgate/persona"
	"github.com/rankgate/rankgate/request"
	"github.com/rankgate/rankgate/transport"
	"github.com/rankgate/rankgate/transport/fake"
)

// routerHarness wires the full query stack over the fake transport, the way
// main does in production.
type routerHarness struct {
	fake    *fake.Transport
	handler http.Handler
}

func newRouterHarness(t *testing.T, predefined map[string][]map[string]string) *routerHarness {
	t.Helper()
	logger := polyzero.NewLogger()

	ft := fake.New()
	store := persona.NewMemoryStore(0, time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	registries := gateway.NewRegistries()
	resolver := persona.NewResolver(logger, ft, store, registries.Identities)
	ft.Subscribe(gateway.NewCallbackRouter(logger, registries, store))

	leaderboards := gateway.NewLeaderboardService(logger, ft, registries, resolver, store, gateway.LeaderboardServiceConfig{
		AppID:       730,
		StepTimeout: 2 * time.Second,
		NameWait:    500 * time.Millisecond,
	})
	lobbies := gateway.NewLobbyService(logger, ft, registries, resolver, store, gateway.LobbyServiceConfig{
		AppID:        730,
		StepTimeout:  2 * time.Second,
		NameWait:     500 * time.Millisecond,
		FetchWorkers: 1,
	})
	t.Cleanup(lobbies.Close)

	checker := health.NewChecker(health.CheckFunc{CheckName: "transport", Fn: ft.SessionReady})

	r := NewRouter(
		logger,
		Config{},
		leaderboards,
		lobbies,
		&request.FilterParser{Logger: logger, Predefined: predefined},
		"default_board",
		checker,
	)
	return &routerHarness{fake: ft, handler: r.Handler()}
}

func (h *routerHarness) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRouterGetLeaderboard(t *testing.T) {
	t.Run("serves leaderboard xml", func(t *testing.T) {
		h := newRouterHarness(t, nil)
		h.fake.QueueFindResult(transport.FindResult{Status: transport.StatusOK, ID: 42, EntryCount: 10})
		h.fake.QueueEntriesResult(transport.EntriesResult{
			Status:  transport.StatusOK,
			Entries: []transport.Entry{{SteamID: 101, Rank: 1, Score: 9000}},
		})
		h.fake.SetPersona(101, "alice")

		rec := h.get(t, "/GetLeaderboard?name=survival&count=50")

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "text/xml", rec.Header().Get("Content-Type"))
		require.Contains(t, rec.Body.String(), "<leaderboardID>42</leaderboardID>")
		require.Contains(t, rec.Body.String(), `<entry name="alice">`)

		require.Equal(t, []string{"survival"}, h.fake.FindRequests())
	})

	t.Run("missing name falls back to configured board", func(t *testing.T) {
		h := newRouterHarness(t, nil)
		h.fake.QueueFindResult(transport.FindResult{Status: transport.StatusOK, ID: 1})
		h.fake.QueueEntriesResult(transport.EntriesResult{Status: transport.StatusOK})

		rec := h.get(t, "/GetLeaderboard")

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, []string{"default_board"}, h.fake.FindRequests())
	})

	t.Run("query failure yields error document", func(t *testing.T) {
		h := newRouterHarness(t, nil)
		h.fake.QueueFindResult(transport.FindResult{Status: transport.StatusOK, ID: 0})

		rec := h.get(t, "/GetLeaderboard?name=missing")

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Equal(t, "text/xml", rec.Header().Get("Content-Type"))
		require.Contains(t, rec.Body.String(), "<error>")
		require.Contains(t, rec.Body.String(), "not found")
	})
}

func TestRouterGetLobbies(t *testing.T) {
	t.Run("serves lobby xml with parsed filters", func(t *testing.T) {
		h := newRouterHarness(t, nil)
		h.fake.QueueLobbyList(transport.LobbyListResult{
			Status:  transport.StatusOK,
			Lobbies: []transport.Lobby{{ID: 5, NumMembers: 2, MaxMembers: 4}},
		})

		rec := h.get(t, `/GetLobbies?filters=filters{["mode"="coop"]}&count=100`)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `<lobby id="5">`)

		requests := h.fake.LobbyRequests()
		require.Len(t, requests, 1)
		require.Equal(t, map[string]string{"mode": "coop"}, requests[0])
	})

	t.Run("predefined filter group expands", func(t *testing.T) {
		h := newRouterHarness(t, map[string][]map[string]string{
			"ranked": {{"mode": "ranked"}, {"mode": "ranked_hc"}},
		})
		h.fake.QueueLobbyList(transport.LobbyListResult{Status: transport.StatusOK})
		h.fake.QueueLobbyList(transport.LobbyListResult{Status: transport.StatusOK})

		rec := h.get(t, "/GetLobbies?filters=filters{ranked}")

		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, h.fake.LobbyRequests(), 2)
	})

	t.Run("no filters issues unfiltered request", func(t *testing.T) {
		h := newRouterHarness(t, nil)
		h.fake.QueueLobbyList(transport.LobbyListResult{Status: transport.StatusOK})

		rec := h.get(t, "/GetLobbies")

		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, h.fake.LobbyRequests(), 1)
		require.Empty(t, h.fake.LobbyRequests()[0])
	})

	t.Run("session down yields error document", func(t *testing.T) {
		h := newRouterHarness(t, nil)
		h.fake.SetSessionDown(true)

		rec := h.get(t, "/GetLobbies")

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Contains(t, rec.Body.String(), "<error>")
	})
}

func TestRouterOperational(t *testing.T) {
	t.Run("unknown endpoint", func(t *testing.T) {
		h := newRouterHarness(t, nil)

		rec := h.get(t, "/nope")

		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "<error>Unknown Endpoint</error>", rec.Body.String())
	})

	t.Run("healthz ready", func(t *testing.T) {
		h := newRouterHarness(t, nil)

		rec := h.get(t, "/healthz")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Ready      bool            `json:"ready"`
			Components map[string]bool `json:"components"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.True(t, resp.Ready)
		require.True(t, resp.Components["transport"])
	})

	t.Run("healthz not ready while session down", func(t *testing.T) {
		h := newRouterHarness(t, nil)
		h.fake.SetSessionDown(true)

		rec := h.get(t, "/healthz")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
