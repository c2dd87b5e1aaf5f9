package persona

import (
	"context"
	"time"

	"github.com/pokt-network/poktroll/pkg/polylog"

	"github.com/rankgate/rankgate/correlation"
	"github.com/rankgate/rankgate/metrics"
	"github.com/rankgate/rankgate/transport"
)

// Resolver turns a set of account identifiers into cache entries, issuing at
// most one outbound lookup per identifier across all concurrent callers.
//
// Flow for one ResolveBatch call:
//
//  1. Drop ids the cache already has a usable name for.
//  2. Atomically claim a pending entry per remaining id; ids already claimed
//     by a concurrent batch are joined, not re-requested.
//  3. Issue one batched lookup for the ids this call claimed first.
//  4. Wait until every claimed entry resolves, or maxWait elapses.
//  5. Drop every claimed entry from the pending map, win or lose.
//
// Callers then re-read the Store; ids still unresolved keep their
// placeholder. This is best-effort freshness, never an error.
type Resolver struct {
	logger    polylog.Logger
	transport transport.Transport
	store     Store
	pending   *correlation.IdentityMap
}

// NewResolver creates a Resolver. The pending map must be the same instance
// the callback router resolves into.
func NewResolver(
	logger polylog.Logger,
	tr transport.Transport,
	store Store,
	pending *correlation.IdentityMap,
) *Resolver {
	return &Resolver{
		logger:    logger.With("component", "persona_resolver"),
		transport: tr,
		store:     store,
		pending:   pending,
	}
}

// ResolveBatch resolves names for ids into the store, waiting at most
// maxWait. With maxWait zero the lookups are issued fire-and-forget and the
// call returns immediately. An empty id set is a no-op.
func (r *Resolver) ResolveBatch(ctx context.Context, ids []transport.SteamID, maxWait time.Duration) {
	if len(ids) == 0 {
		return
	}
	start := time.Now()

	// Deduplicate the caller's ids before touching shared state.
	unique := make(map[transport.SteamID]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}

	// Step 1: skip ids the cache already answers.
	deduped := make([]transport.SteamID, 0, len(unique))
	for id := range unique {
		deduped = append(deduped, id)
	}
	cached, err := r.store.GetMultiple(ctx, deduped)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Name cache read failed, resolving all ids")
		cached = nil
	}
	metrics.RecordNameLookups(metrics.NameOutcomeCacheHit, len(cached))

	// Step 2: claim or join a pending entry per unresolved id.
	claimed := make(map[transport.SteamID]*correlation.Ticket[struct{}])
	var toRequest []transport.SteamID
	for _, id := range deduped {
		if _, ok := cached[id]; ok {
			continue
		}
		ticket, created := r.pending.Claim(uint64(id))
		claimed[id] = ticket
		if created {
			toRequest = append(toRequest, id)
		}
	}
	if len(claimed) == 0 {
		return
	}

	// Step 5 runs no matter how the wait below ends. Release compares
	// tickets by identity, so a batch that already started fresh claims for
	// these ids is left undisturbed.
	defer func() {
		for id, ticket := range claimed {
			r.pending.Release(uint64(id), ticket)
		}
		metrics.ObserveNameBatch(time.Since(start).Seconds())
	}()

	// Step 3: one batched lookup for the ids this call claimed first.
	if len(toRequest) > 0 {
		if err := r.transport.RequestPersonaNames(ctx, toRequest); err != nil {
			r.logger.Warn().
				Err(err).
				Int("id_count", len(toRequest)).
				Msg("Persona lookup request failed")
			// No callback will come for these; joined claims may still
			// resolve through the batch that issued them.
		}
	}

	if maxWait <= 0 {
		// Fire-and-forget: the callbacks, if any, still land in the cache
		// for the next reader.
		metrics.RecordNameLookups(metrics.NameOutcomeUnresolved, len(claimed))
		return
	}

	// Step 4: all resolved or deadline, whichever first.
	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()

	resolved := 0
waitLoop:
	for _, ticket := range claimed {
		select {
		case <-ticket.Done():
			if ticket.Resolved() {
				resolved++
			}
		case <-deadline.C:
			break waitLoop
		case <-ctx.Done():
			break waitLoop
		}
	}

	unresolvedCount := len(claimed) - resolved
	metrics.RecordNameLookups(metrics.NameOutcomeResolved, resolved)
	metrics.RecordNameLookups(metrics.NameOutcomeUnresolved, unresolvedCount)

	if unresolvedCount > 0 {
		r.logger.Debug().
			Int("requested", len(claimed)).
			Int("resolved", resolved).
			Dur("max_wait", maxWait).
			Msg("Name resolution batch ended with unresolved ids")
	}
}
