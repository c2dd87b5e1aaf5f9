// Package noop provides a Transport for deployments where no platform
// session has been configured. Every request fails fast with ErrNoSession,
// which the HTTP layer surfaces verbatim.
package noop

import (
	"context"

	"github.com/rankgate/rankgate/transport"
)

var _ transport.Source = NoSessionTransport{}

// NoSessionTransport rejects every request with transport.ErrNoSession.
type NoSessionTransport struct{}

func (NoSessionTransport) FindLeaderboard(context.Context, string) error {
	return transport.ErrNoSession
}

func (NoSessionTransport) FetchEntries(context.Context, transport.LeaderboardID, int32, int32) error {
	return transport.ErrNoSession
}

func (NoSessionTransport) ListLobbies(context.Context, map[string]string, int32) error {
	return transport.ErrNoSession
}

func (NoSessionTransport) RequestPersonaNames(context.Context, []transport.SteamID) error {
	return transport.ErrNoSession
}

func (NoSessionTransport) SessionReady() bool { return false }

func (NoSessionTransport) Subscribe(transport.Subscriber) {}
