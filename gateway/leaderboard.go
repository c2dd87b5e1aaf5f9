package gateway

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/pokt-network/poktroll/pkg/polylog"

	"github.com/rankgate/rankgate/correlation"
	"github.com/rankgate/rankgate/metrics"
	"github.com/rankgate/rankgate/persona"
	"github.com/rankgate/rankgate/transport"
)

const (
	defaultStepTimeout         = 10 * time.Second
	defaultLeaderboardNameWait = 3 * time.Second
)

// LeaderboardEntry is one ranked row with its display name resolved as far
// as the name cache allows.
type LeaderboardEntry struct {
	SteamID    transport.SteamID
	Name       string
	Score      int32
	Rank       int32
	UGCID      uint64
	DetailsHex string
}

// LeaderboardSnapshot is the assembled answer to one leaderboard query.
type LeaderboardSnapshot struct {
	AppID         uint32
	LeaderboardID transport.LeaderboardID
	TotalEntries  int32
	EntryStart    int
	EntryEnd      int
	ResultCount   int
	Entries       []LeaderboardEntry
}

// LeaderboardServiceConfig carries the per-deployment knobs of the
// leaderboard coordinator.
type LeaderboardServiceConfig struct {
	// AppID is the game whose leaderboards are queried.
	AppID uint32

	// StepTimeout bounds each protocol step (find, entry download).
	StepTimeout time.Duration

	// NameWait bounds the best-effort display name resolution appended to
	// every query. Zero disables waiting; names are still requested.
	NameWait time.Duration
}

func (c *LeaderboardServiceConfig) hydrateDefaults() {
	if c.StepTimeout <= 0 {
		c.StepTimeout = defaultStepTimeout
	}
	if c.NameWait < 0 {
		c.NameWait = defaultLeaderboardNameWait
	}
}

// LeaderboardService answers leaderboard queries: it finds the board by
// name, downloads the requested entry range, resolves display names on a
// best-effort basis and assembles the snapshot.
type LeaderboardService struct {
	logger     polylog.Logger
	transport  transport.Transport
	registries *Registries
	resolver   *persona.Resolver
	names      persona.Store
	config     LeaderboardServiceConfig
}

func NewLeaderboardService(
	logger polylog.Logger,
	tr transport.Transport,
	registries *Registries,
	resolver *persona.Resolver,
	names persona.Store,
	config LeaderboardServiceConfig,
) *LeaderboardService {
	config.hydrateDefaults()
	return &LeaderboardService{
		logger:     logger.With("component", "leaderboard_service"),
		transport:  tr,
		registries: registries,
		resolver:   resolver,
		names:      names,
		config:     config,
	}
}

// Fetch runs the full leaderboard query for the named board, returning at
// most count entries starting from rank 1.
//
// A missing board yields *NotFoundError; a remote refusal yields
// *RemoteFailureError; an unanswered step wraps correlation.ErrTimeout.
// A name resolution shortfall is never an error - unresolved entries carry
// the placeholder name.
func (s *LeaderboardService) Fetch(ctx context.Context, name string, count int) (*LeaderboardSnapshot, error) {
	if !s.transport.SessionReady() {
		metrics.RecordQueryStep(metrics.QueryLeaderboard, metrics.StepFind, metrics.StepOutcomeNoSession)
		return nil, transport.ErrNoSession
	}

	findRes, err := s.find(ctx, name)
	if err != nil {
		return nil, err
	}
	if findRes.ID == 0 {
		metrics.RecordQueryStep(metrics.QueryLeaderboard, metrics.StepFind, metrics.StepOutcomeNotFound)
		return nil, &NotFoundError{Name: name}
	}

	entriesRes, err := s.download(ctx, findRes.ID, count)
	if err != nil {
		return nil, err
	}

	names := s.resolveNames(ctx, entriesRes.Entries)

	snapshot := &LeaderboardSnapshot{
		AppID:         s.config.AppID,
		LeaderboardID: findRes.ID,
		TotalEntries:  findRes.EntryCount,
		EntryStart:    0,
		EntryEnd:      len(entriesRes.Entries),
		ResultCount:   len(entriesRes.Entries),
		Entries:       make([]LeaderboardEntry, 0, len(entriesRes.Entries)),
	}
	for _, e := range entriesRes.Entries {
		displayName, ok := names[e.SteamID]
		if !ok {
			displayName = persona.UnknownName
		}
		snapshot.Entries = append(snapshot.Entries, LeaderboardEntry{
			SteamID:    e.SteamID,
			Name:       displayName,
			Score:      e.Score,
			Rank:       e.Rank,
			UGCID:      e.UGCID,
			DetailsHex: detailsHex(e.Details),
		})
	}

	s.logger.Debug().
		Str("leaderboard", name).
		Int("entries", len(snapshot.Entries)).
		Int("total", int(snapshot.TotalEntries)).
		Msg("assembled leaderboard snapshot")
	return snapshot, nil
}

func (s *LeaderboardService) find(ctx context.Context, name string) (transport.FindResult, error) {
	ticket, err := s.registries.Find.Issue(func() error {
		return s.transport.FindLeaderboard(ctx, name)
	})
	if err != nil {
		metrics.RecordQueryStep(metrics.QueryLeaderboard, metrics.StepFind, sendOutcome(err))
		return transport.FindResult{}, fmt.Errorf("leaderboard find: %w", err)
	}

	result, err := ticket.Await(ctx, s.config.StepTimeout)
	if err != nil {
		metrics.RecordQueryStep(metrics.QueryLeaderboard, metrics.StepFind, metrics.StepOutcomeTimeout)
		return transport.FindResult{}, fmt.Errorf("leaderboard find: %w", err)
	}
	if !result.Status.OK() {
		metrics.RecordQueryStep(metrics.QueryLeaderboard, metrics.StepFind, metrics.StepOutcomeRemoteFailure)
		return transport.FindResult{}, &RemoteFailureError{Step: "leaderboard find", Status: result.Status}
	}

	metrics.RecordQueryStep(metrics.QueryLeaderboard, metrics.StepFind, metrics.StepOutcomeOK)
	return result, nil
}

func (s *LeaderboardService) download(ctx context.Context, id transport.LeaderboardID, count int) (transport.EntriesResult, error) {
	ticket, err := s.registries.Entries.Issue(func() error {
		return s.transport.FetchEntries(ctx, id, 1, int32(count))
	})
	if err != nil {
		metrics.RecordQueryStep(metrics.QueryLeaderboard, metrics.StepEntries, sendOutcome(err))
		return transport.EntriesResult{}, fmt.Errorf("entry download: %w", err)
	}

	result, err := ticket.Await(ctx, s.config.StepTimeout)
	if err != nil {
		metrics.RecordQueryStep(metrics.QueryLeaderboard, metrics.StepEntries, metrics.StepOutcomeTimeout)
		return transport.EntriesResult{}, fmt.Errorf("entry download: %w", err)
	}
	if !result.Status.OK() {
		metrics.RecordQueryStep(metrics.QueryLeaderboard, metrics.StepEntries, metrics.StepOutcomeRemoteFailure)
		return transport.EntriesResult{}, &RemoteFailureError{Step: "entry download", Status: result.Status}
	}

	metrics.RecordQueryStep(metrics.QueryLeaderboard, metrics.StepEntries, metrics.StepOutcomeOK)
	return result, nil
}

// resolveNames improves the name cache for the entries' accounts, bounded
// by the configured wait, then returns whatever the cache holds.
func (s *LeaderboardService) resolveNames(ctx context.Context, entries []transport.Entry) map[transport.SteamID]string {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]transport.SteamID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.SteamID)
	}

	s.resolver.ResolveBatch(ctx, ids, s.config.NameWait)

	names, err := s.names.GetMultiple(ctx, ids)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read name cache")
		return nil
	}
	return names
}

// detailsHex renders the game-defined per-entry payload as the
// concatenated little-endian hex of its 32-bit words.
func detailsHex(words []int32) string {
	if len(words) == 0 {
		return ""
	}
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(w))
	}
	return hex.EncodeToString(buf)
}

func sendOutcome(err error) string {
	if errors.Is(err, transport.ErrNoSession) {
		return metrics.StepOutcomeNoSession
	}
	return metrics.StepOutcomeRemoteFailure
}

// IsTimeout reports whether err stems from an unanswered protocol step.
func IsTimeout(err error) bool {
	return errors.Is(err, correlation.ErrTimeout)
}
