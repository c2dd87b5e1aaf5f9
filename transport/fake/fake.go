// Package fake provides an in-memory Transport with scriptable answers.
//
// Tests use it to exercise the correlation engine without a real platform
// session; dev_mode deployments use it to serve canned data. Callbacks are
// delivered on their own goroutines, so the timing mirrors production:
// asynchronous, concurrent across kinds, FIFO within a kind.
package fake

import (
	"context"
	"sync"
	"time"

	"github.com/rankgate/rankgate/transport"
)

var _ transport.Source = (*Transport)(nil)

// Transport is a scriptable in-memory transport. Queue answers with the
// Queue* methods before issuing requests; a request with no queued answer is
// simply never answered, which is how timeout paths are exercised.
type Transport struct {
	mu  sync.Mutex
	sub transport.Subscriber

	// Delay postpones every callback delivery. Zero delivers immediately
	// (still on a separate goroutine).
	Delay time.Duration

	// Sticky answers every request with the head of its answer queue
	// without consuming it. Used by dev_mode deployments that serve the
	// same canned data forever.
	Sticky bool

	findAnswers    []transport.FindResult
	entriesAnswers []transport.EntriesResult
	lobbyAnswers   []transport.LobbyListResult
	personas       map[transport.SteamID]string

	findRequests    []string
	entriesRequests []transport.LeaderboardID
	lobbyRequests   []map[string]string
	nameRequests    [][]transport.SteamID

	sessionDown bool
}

// New creates an empty fake transport with a ready session.
func New() *Transport {
	return &Transport{personas: make(map[transport.SteamID]string)}
}

// Subscribe registers the callback receiver.
func (t *Transport) Subscribe(sub transport.Subscriber) {
	t.mu.Lock()
	t.sub = sub
	t.mu.Unlock()
}

// SetSessionDown makes every subsequent request fail with ErrNoSession.
func (t *Transport) SetSessionDown(down bool) {
	t.mu.Lock()
	t.sessionDown = down
	t.mu.Unlock()
}

// QueueFindResult appends an answer for the next FindLeaderboard request.
func (t *Transport) QueueFindResult(r transport.FindResult) {
	t.mu.Lock()
	t.findAnswers = append(t.findAnswers, r)
	t.mu.Unlock()
}

// QueueEntriesResult appends an answer for the next FetchEntries request.
func (t *Transport) QueueEntriesResult(r transport.EntriesResult) {
	t.mu.Lock()
	t.entriesAnswers = append(t.entriesAnswers, r)
	t.mu.Unlock()
}

// QueueLobbyList appends an answer for the next ListLobbies request.
func (t *Transport) QueueLobbyList(r transport.LobbyListResult) {
	t.mu.Lock()
	t.lobbyAnswers = append(t.lobbyAnswers, r)
	t.mu.Unlock()
}

// SetPersona registers a name the fake will answer persona lookups with.
// Accounts without a registered persona are never answered.
func (t *Transport) SetPersona(id transport.SteamID, name string) {
	t.mu.Lock()
	t.personas[id] = name
	t.mu.Unlock()
}

func (t *Transport) FindLeaderboard(ctx context.Context, name string) error {
	t.mu.Lock()
	if t.sessionDown {
		t.mu.Unlock()
		return transport.ErrNoSession
	}
	t.findRequests = append(t.findRequests, name)
	var answer *transport.FindResult
	if len(t.findAnswers) > 0 {
		a := t.findAnswers[0]
		if !t.Sticky {
			t.findAnswers = t.findAnswers[1:]
		}
		answer = &a
	}
	sub, delay := t.sub, t.Delay
	t.mu.Unlock()

	if answer != nil && sub != nil {
		go func(r transport.FindResult) {
			time.Sleep(delay)
			sub.OnFindResult(r)
		}(*answer)
	}
	return nil
}

func (t *Transport) FetchEntries(ctx context.Context, id transport.LeaderboardID, rangeStart, rangeEnd int32) error {
	t.mu.Lock()
	if t.sessionDown {
		t.mu.Unlock()
		return transport.ErrNoSession
	}
	t.entriesRequests = append(t.entriesRequests, id)
	var answer *transport.EntriesResult
	if len(t.entriesAnswers) > 0 {
		a := t.entriesAnswers[0]
		if !t.Sticky {
			t.entriesAnswers = t.entriesAnswers[1:]
		}
		answer = &a
	}
	sub, delay := t.sub, t.Delay
	t.mu.Unlock()

	if answer != nil && sub != nil {
		go func(r transport.EntriesResult) {
			time.Sleep(delay)
			sub.OnEntriesResult(r)
		}(*answer)
	}
	return nil
}

func (t *Transport) ListLobbies(ctx context.Context, filters map[string]string, limit int32) error {
	t.mu.Lock()
	if t.sessionDown {
		t.mu.Unlock()
		return transport.ErrNoSession
	}
	copied := make(map[string]string, len(filters))
	for k, v := range filters {
		copied[k] = v
	}
	t.lobbyRequests = append(t.lobbyRequests, copied)
	var answer *transport.LobbyListResult
	if len(t.lobbyAnswers) > 0 {
		a := t.lobbyAnswers[0]
		if !t.Sticky {
			t.lobbyAnswers = t.lobbyAnswers[1:]
		}
		answer = &a
	}
	sub, delay := t.sub, t.Delay
	t.mu.Unlock()

	if answer != nil && sub != nil {
		go func(r transport.LobbyListResult) {
			time.Sleep(delay)
			sub.OnLobbyList(r)
		}(*answer)
	}
	return nil
}

func (t *Transport) RequestPersonaNames(ctx context.Context, ids []transport.SteamID) error {
	t.mu.Lock()
	if t.sessionDown {
		t.mu.Unlock()
		return transport.ErrNoSession
	}
	batch := make([]transport.SteamID, len(ids))
	copy(batch, ids)
	t.nameRequests = append(t.nameRequests, batch)

	var states []transport.PersonaState
	for _, id := range ids {
		if name, ok := t.personas[id]; ok {
			states = append(states, transport.PersonaState{ID: id, Name: name})
		}
	}
	sub, delay := t.sub, t.Delay
	t.mu.Unlock()

	if sub != nil {
		for _, st := range states {
			go func(s transport.PersonaState) {
				time.Sleep(delay)
				sub.OnPersonaState(s)
			}(st)
		}
	}
	return nil
}

func (t *Transport) SessionReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.sessionDown
}

// FindRequests returns the leaderboard names requested so far.
func (t *Transport) FindRequests() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.findRequests...)
}

// EntriesRequests returns the leaderboard IDs fetched so far.
func (t *Transport) EntriesRequests() []transport.LeaderboardID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]transport.LeaderboardID(nil), t.entriesRequests...)
}

// LobbyRequests returns the filter sets requested so far.
func (t *Transport) LobbyRequests() []map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]map[string]string(nil), t.lobbyRequests...)
}

// NameRequests returns the persona lookup batches issued so far.
func (t *Transport) NameRequests() [][]transport.SteamID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]transport.SteamID(nil), t.nameRequests...)
}

// NameLookupCount returns the total number of identifiers requested across
// all persona lookup batches, counting repeats.
func (t *Transport) NameLookupCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, batch := range t.nameRequests {
		n += len(batch)
	}
	return n
}
