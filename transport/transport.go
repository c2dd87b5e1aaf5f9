// Package transport defines the contract between rankgate and the platform
// session that actually speaks the matchmaking network protocol.
//
// The protocol is push-style: every outbound request is fire-and-forget, and
// answers arrive later as callbacks on an arbitrary goroutine, unordered
// across kinds. Within one kind, the remote answers requests in issue order;
// that ordering is the correlation contract the gateway package relies on.
package transport

import (
	"context"
	"errors"
	"fmt"
)

// SteamID is the opaque 64-bit identifier for accounts and lobbies.
type SteamID uint64

// LeaderboardID identifies a leaderboard on the remote service.
type LeaderboardID uint64

// Status is the remote service's result code for a request.
type Status int32

const (
	StatusOK           Status = 1
	StatusFail         Status = 2
	StatusTimeout      Status = 16
	StatusAccessDenied Status = 15
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusFail:
		return "Fail"
	case StatusTimeout:
		return "Timeout"
	case StatusAccessDenied:
		return "AccessDenied"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// OK reports whether the status indicates success.
func (s Status) OK() bool { return s == StatusOK }

var (
	// ErrNoSession indicates no usable platform session exists at all.
	// Surfaced before any protocol step begins.
	ErrNoSession = errors.New("no active platform session")

	// ErrHandlerUnavailable indicates the session is up but lacks the
	// capability a request needs (e.g. the stats handler never registered).
	ErrHandlerUnavailable = errors.New("required protocol handler unavailable")
)

// FindResult answers FindLeaderboard. ID is zero when the named leaderboard
// does not exist, even with an OK status.
type FindResult struct {
	Status     Status
	ID         LeaderboardID
	EntryCount int32
}

// Entry is one leaderboard row as reported by the remote service.
type Entry struct {
	SteamID SteamID
	Rank    int32
	Score   int32
	UGCID   uint64
	// Details is the game-defined per-entry payload, 32-bit words.
	Details []int32
}

// EntriesResult answers FetchEntries.
type EntriesResult struct {
	Status          Status
	TotalEntryCount int32
	Entries         []Entry
}

// LobbyType mirrors the remote's lobby visibility classification.
type LobbyType int32

// Lobby is one matchmaking lobby descriptor. OwnerID is zero when the remote
// did not disclose the owner; some games stash it in Metadata instead.
type Lobby struct {
	ID         SteamID
	NumMembers int32
	MaxMembers int32
	Type       LobbyType
	OwnerID    SteamID
	Metadata   map[string]string
}

// LobbyListResult answers ListLobbies.
type LobbyListResult struct {
	Status  Status
	Lobbies []Lobby
}

// PersonaState is the identifier-keyed name resolution callback. Unlike the
// other kinds it carries its own correlation key (ID).
type PersonaState struct {
	ID   SteamID
	Name string
}

// Transport issues fire-and-forget requests against the platform session.
//
// Every method returns as soon as the request is on the wire (or failed to
// get there); the answer, if any, arrives later through the Subscriber. A
// request may go permanently unanswered - callers bound their waits.
type Transport interface {
	// FindLeaderboard looks up a leaderboard by name. Answered by OnFindResult.
	FindLeaderboard(ctx context.Context, name string) error

	// FetchEntries downloads the global entry range [rangeStart, rangeEnd]
	// of a leaderboard. Answered by OnEntriesResult.
	FetchEntries(ctx context.Context, id LeaderboardID, rangeStart, rangeEnd int32) error

	// ListLobbies requests the lobby list matching the given equality
	// filters. Implementations always request worldwide distance scope so
	// results are never geo-restricted. Answered by OnLobbyList.
	ListLobbies(ctx context.Context, filters map[string]string, limit int32) error

	// RequestPersonaNames requests name resolution for a batch of accounts.
	// Answered by zero or more OnPersonaState callbacks, one per account the
	// remote knows about.
	RequestPersonaNames(ctx context.Context, ids []SteamID) error

	// SessionReady reports whether a logged-on session is available.
	SessionReady() bool
}

// Subscriber receives inbound callbacks. Implementations must be safe for
// concurrent use: the transport may deliver different kinds concurrently.
type Subscriber interface {
	OnFindResult(FindResult)
	OnEntriesResult(EntriesResult)
	OnLobbyList(LobbyListResult)
	OnPersonaState(PersonaState)
}

// Source is a Transport that also exposes its callback feed.
type Source interface {
	Transport

	// Subscribe registers the single subscriber for inbound callbacks.
	// Must be called before any request is issued.
	Subscribe(Subscriber)
}
