package gateway

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/pokt-network/poktroll/pkg/polylog"

	"github.com/rankgate/rankgate/metrics"
	"github.com/rankgate/rankgate/persona"
	"github.com/rankgate/rankgate/transport"
)

const (
	defaultLobbyNameWait = 5 * time.Second
	defaultFetchWorkers  = 4

	// unknownOwnerName is rendered when no owner name could be determined
	// from either lobby metadata or the persona cache.
	unknownOwnerName = "[Unknown]"

	// metadataOwnerKey and metadataOwnerIDKey are the conventional lobby
	// metadata keys games use to advertise the owner when the remote does
	// not disclose one at the protocol level.
	metadataOwnerKey   = "owner"
	metadataOwnerIDKey = "ownerId"
)

// OwnerNameSource selects how lobby owner display names are derived.
type OwnerNameSource string

const (
	// OwnerNameFromMetadata prefers the game-advertised "owner" metadata
	// value and falls back to the persona cache.
	OwnerNameFromMetadata OwnerNameSource = "metadata"

	// OwnerNameFromCache resolves owner names through the persona cache
	// only, ignoring game-advertised metadata names.
	OwnerNameFromCache OwnerNameSource = "cache"
)

// LobbyInfo is one matchmaking lobby with its owner name resolved as far as
// the configured source allows.
type LobbyInfo struct {
	ID         transport.SteamID
	NumMembers int32
	MaxMembers int32
	Type       transport.LobbyType
	OwnerName  string
	// OwnerID is zero when the remote did not disclose the owner.
	OwnerID  transport.SteamID
	Metadata map[string]string
}

// LobbySnapshot is the assembled answer to one lobby list query.
type LobbySnapshot struct {
	AppID   uint32
	Lobbies []LobbyInfo
}

// LobbyServiceConfig carries the per-deployment knobs of the lobby
// coordinator.
type LobbyServiceConfig struct {
	// AppID is the game whose lobbies are listed.
	AppID uint32

	// StepTimeout bounds each lobby list protocol step.
	StepTimeout time.Duration

	// NameWait bounds the best-effort owner name resolution. Zero disables
	// waiting; names are still requested.
	NameWait time.Duration

	// OwnerNameSource selects where owner display names come from.
	OwnerNameSource OwnerNameSource

	// FetchWorkers caps how many filter sets are fetched concurrently.
	FetchWorkers int
}

func (c *LobbyServiceConfig) hydrateDefaults() {
	if c.StepTimeout <= 0 {
		c.StepTimeout = defaultStepTimeout
	}
	if c.NameWait < 0 {
		c.NameWait = defaultLobbyNameWait
	}
	if c.OwnerNameSource == "" {
		c.OwnerNameSource = OwnerNameFromMetadata
	}
	if c.FetchWorkers <= 0 {
		c.FetchWorkers = defaultFetchWorkers
	}
}

// LobbyService answers lobby list queries: it fans the configured filter
// sets out over the transport, merges and deduplicates the answers,
// resolves owner names on a best-effort basis and assembles the snapshot.
//
// A failing filter set never fails the query; its lobbies are simply
// missing from the merged result.
type LobbyService struct {
	logger     polylog.Logger
	transport  transport.Transport
	registries *Registries
	resolver   *persona.Resolver
	names      persona.Store
	config     LobbyServiceConfig
	pool       pond.Pool
}

func NewLobbyService(
	logger polylog.Logger,
	tr transport.Transport,
	registries *Registries,
	resolver *persona.Resolver,
	names persona.Store,
	config LobbyServiceConfig,
) *LobbyService {
	config.hydrateDefaults()
	return &LobbyService{
		logger:     logger.With("component", "lobby_service"),
		transport:  tr,
		registries: registries,
		resolver:   resolver,
		names:      names,
		config:     config,
		pool:       pond.NewPool(config.FetchWorkers),
	}
}

// Close stops the filter set worker pool, waiting for in-flight fetches.
func (s *LobbyService) Close() {
	s.pool.StopAndWait()
}

// List runs the full lobby query: one transport request per filter set,
// merged, deduplicated by lobby id and sorted by lobby id. An empty
// filterSets means a single unfiltered request.
func (s *LobbyService) List(ctx context.Context, filterSets []map[string]string, limit int) (*LobbySnapshot, error) {
	if !s.transport.SessionReady() {
		metrics.RecordQueryStep(metrics.QueryLobby, metrics.StepList, metrics.StepOutcomeNoSession)
		return nil, transport.ErrNoSession
	}

	if len(filterSets) == 0 {
		filterSets = []map[string]string{{}}
	}

	lobbies := s.fetchAll(ctx, filterSets, limit)

	names := s.resolveOwnerNames(ctx, lobbies)

	snapshot := &LobbySnapshot{
		AppID:   s.config.AppID,
		Lobbies: make([]LobbyInfo, 0, len(lobbies)),
	}
	for _, l := range lobbies {
		snapshot.Lobbies = append(snapshot.Lobbies, LobbyInfo{
			ID:         l.ID,
			NumMembers: l.NumMembers,
			MaxMembers: l.MaxMembers,
			Type:       l.Type,
			OwnerName:  s.ownerName(l, names),
			OwnerID:    l.OwnerID,
			Metadata:   l.Metadata,
		})
	}

	s.logger.Debug().
		Int("filter_sets", len(filterSets)).
		Int("lobbies", len(snapshot.Lobbies)).
		Msg("assembled lobby snapshot")
	return snapshot, nil
}

// fetchAll fans the filter sets out over the worker pool and merges the
// answers, deduplicating by lobby id with first-seen precedence. Per-set
// failures are logged and skipped.
func (s *LobbyService) fetchAll(ctx context.Context, filterSets []map[string]string, limit int) []transport.Lobby {
	var (
		mu       sync.Mutex
		seen     = make(map[transport.SteamID]struct{})
		combined []transport.Lobby
	)

	group := s.pool.NewGroup()
	for _, filters := range filterSets {
		filters := filters
		group.SubmitErr(func() error {
			lobbies, err := s.fetchOne(ctx, filters, limit)
			if err != nil {
				s.logger.Error().Err(err).
					Int("filters", len(filters)).
					Msg("lobby fetch failed for filter set")
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			for _, l := range lobbies {
				if _, dup := seen[l.ID]; dup {
					continue
				}
				seen[l.ID] = struct{}{}
				combined = append(combined, l)
			}
			return nil
		})
	}
	// Per-set failures are already logged above; a partial merge is a
	// valid answer.
	_ = group.Wait()

	sort.Slice(combined, func(i, j int) bool { return combined[i].ID < combined[j].ID })
	return combined
}

func (s *LobbyService) fetchOne(ctx context.Context, filters map[string]string, limit int) ([]transport.Lobby, error) {
	ticket, err := s.registries.Lobbies.Issue(func() error {
		return s.transport.ListLobbies(ctx, filters, int32(limit))
	})
	if err != nil {
		metrics.RecordQueryStep(metrics.QueryLobby, metrics.StepList, sendOutcome(err))
		return nil, fmt.Errorf("lobby list: %w", err)
	}

	result, err := ticket.Await(ctx, s.config.StepTimeout)
	if err != nil {
		metrics.RecordQueryStep(metrics.QueryLobby, metrics.StepList, metrics.StepOutcomeTimeout)
		return nil, fmt.Errorf("lobby list: %w", err)
	}
	if !result.Status.OK() {
		metrics.RecordQueryStep(metrics.QueryLobby, metrics.StepList, metrics.StepOutcomeRemoteFailure)
		return nil, &RemoteFailureError{Step: "lobby list", Status: result.Status}
	}

	metrics.RecordQueryStep(metrics.QueryLobby, metrics.StepList, metrics.StepOutcomeOK)
	return result.Lobbies, nil
}

// resolveOwnerNames requests name resolution for every lobby owner that
// still needs one, bounded by the configured wait, then returns whatever
// the cache holds for them.
func (s *LobbyService) resolveOwnerNames(ctx context.Context, lobbies []transport.Lobby) map[transport.SteamID]string {
	var owners []transport.SteamID
	for _, l := range lobbies {
		owner := effectiveOwner(l)
		if owner == 0 {
			continue
		}
		if s.config.OwnerNameSource == OwnerNameFromMetadata && metadataOwnerName(l) != "" {
			continue
		}
		owners = append(owners, owner)
	}
	if len(owners) == 0 {
		return nil
	}

	s.resolver.ResolveBatch(ctx, owners, s.config.NameWait)

	names, err := s.names.GetMultiple(ctx, owners)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read name cache")
		return nil
	}
	return names
}

func (s *LobbyService) ownerName(l transport.Lobby, names map[transport.SteamID]string) string {
	if s.config.OwnerNameSource == OwnerNameFromMetadata {
		if name := metadataOwnerName(l); name != "" {
			return name
		}
	}
	if name, ok := names[effectiveOwner(l)]; ok && persona.Usable(name) {
		return name
	}
	return unknownOwnerName
}

// effectiveOwner returns the protocol-level owner when disclosed, falling
// back to the game-advertised "ownerId" metadata value.
func effectiveOwner(l transport.Lobby) transport.SteamID {
	if l.OwnerID != 0 {
		return l.OwnerID
	}
	if raw, ok := l.Metadata[metadataOwnerIDKey]; ok {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			return transport.SteamID(parsed)
		}
	}
	return 0
}

func metadataOwnerName(l transport.Lobby) string {
	return strings.TrimSpace(l.Metadata[metadataOwnerKey])
}
