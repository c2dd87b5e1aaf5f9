package main

import (
	"github.com/pokt-network/poktroll/pkg/polylog"

	configpkg "github.com/rankgate/rankgate/config"
	"github.com/rankgate/rankgate/transport"
	"github.com/rankgate/rankgate/transport/fake"
	"github.com/rankgate/rankgate/transport/noop"
)

// buildTransport selects the platform transport. With dev_mode the fake
// transport serves canned data so downstream scrapers can be developed
// without a platform session; otherwise requests fail until a real
// transport.Source implementation is wired in by the embedding deployment.
func buildTransport(logger polylog.Logger, config configpkg.Config) transport.Source {
	if config.DevMode {
		logger.Warn().Msg("dev_mode enabled: serving canned data from the in-memory transport")
		return devTransport(config.App.AppID)
	}

	logger.Warn().Msg("No platform transport configured: queries will report no session")
	return noop.NoSessionTransport{}
}

// devTransport seeds a sticky fake with a small, stable data set.
func devTransport(appID uint32) *fake.Transport {
	ft := fake.New()
	ft.Sticky = true

	ft.SetPersona(76561197960265731, "dev-alice")
	ft.SetPersona(76561197960265732, "dev-bob")
	ft.SetPersona(76561197960265733, "dev-carol")

	ft.QueueFindResult(transport.FindResult{
		Status:     transport.StatusOK,
		ID:         transport.LeaderboardID(appID)*10 + 1,
		EntryCount: 3,
	})
	ft.QueueEntriesResult(transport.EntriesResult{
		Status:          transport.StatusOK,
		TotalEntryCount: 3,
		Entries: []transport.Entry{
			{SteamID: 76561197960265731, Rank: 1, Score: 1250, Details: []int32{1, 42}},
			{SteamID: 76561197960265732, Rank: 2, Score: 990},
			{SteamID: 76561197960265733, Rank: 3, Score: 740},
		},
	})
	ft.QueueLobbyList(transport.LobbyListResult{
		Status: transport.StatusOK,
		Lobbies: []transport.Lobby{
			{
				ID:         109775240000001,
				NumMembers: 2,
				MaxMembers: 4,
				Type:       2,
				OwnerID:    76561197960265731,
				Metadata:   map[string]string{"mode": "coop", "version": "1.0"},
			},
			{
				ID:         109775240000002,
				NumMembers: 4,
				MaxMembers: 4,
				Type:       2,
				Metadata:   map[string]string{"mode": "pvp", "owner": "dev-host"},
			},
		},
	})
	return ft
}
