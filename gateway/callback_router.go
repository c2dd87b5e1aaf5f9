package gateway

import (
	"context"
	"time"

	"github.com/pokt-network/poktroll/pkg/polylog"

	"github.com/rankgate/rankgate/metrics"
	"github.com/rankgate/rankgate/persona"
	"github.com/rankgate/rankgate/transport"
)

// storeWriteTimeout bounds the persona cache write performed on the
// callback delivery path. Callbacks arrive on transport goroutines and
// must never block indefinitely on a slow cache backend.
const storeWriteTimeout = 2 * time.Second

// CallbackRouter receives transport callbacks and routes each one to the
// correlation structure that can answer a waiting query. Callbacks with no
// waiter are dropped: they belong to queries that already timed out, or to
// activity this process never initiated.
type CallbackRouter struct {
	logger     polylog.Logger
	registries *Registries
	names      persona.Store
}

var _ transport.Subscriber = (*CallbackRouter)(nil)

func NewCallbackRouter(logger polylog.Logger, registries *Registries, names persona.Store) *CallbackRouter {
	return &CallbackRouter{
		logger:     logger.With("component", "callback_router"),
		registries: registries,
		names:      names,
	}
}

func (r *CallbackRouter) OnFindResult(result transport.FindResult) {
	delivered := r.registries.Find.Dispatch(result)
	r.record(metrics.KindFind, delivered, r.registries.Find.Len())
	if !delivered {
		r.logger.Debug().
			Str("status", result.Status.String()).
			Msg("dropped find result with no waiter")
	}
}

func (r *CallbackRouter) OnEntriesResult(result transport.EntriesResult) {
	delivered := r.registries.Entries.Dispatch(result)
	r.record(metrics.KindEntries, delivered, r.registries.Entries.Len())
	if !delivered {
		r.logger.Debug().
			Str("status", result.Status.String()).
			Int("entries", len(result.Entries)).
			Msg("dropped entries result with no waiter")
	}
}

func (r *CallbackRouter) OnLobbyList(result transport.LobbyListResult) {
	delivered := r.registries.Lobbies.Dispatch(result)
	r.record(metrics.KindLobby, delivered, r.registries.Lobbies.Len())
	if !delivered {
		r.logger.Debug().
			Int("lobbies", len(result.Lobbies)).
			Msg("dropped lobby list with no waiter")
	}
}

// OnPersonaState writes the announced name through to the persona cache
// before resolving waiters, so a waiter woken by Resolve always observes
// the name on its next cache read.
func (r *CallbackRouter) OnPersonaState(state transport.PersonaState) {
	if persona.Usable(state.Name) {
		ctx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
		if err := r.names.Set(ctx, state.ID, state.Name); err != nil {
			r.logger.Warn().Err(err).
				Uint64("steam_id", uint64(state.ID)).
				Msg("failed to cache persona name")
		}
		cancel()
	}

	delivered := r.registries.Identities.Resolve(uint64(state.ID))
	r.record(metrics.KindPersona, delivered, r.registries.Identities.Len())
}

func (r *CallbackRouter) record(kind string, delivered bool, pending int) {
	outcome := metrics.CallbackDelivered
	if !delivered {
		outcome = metrics.CallbackDropped
	}
	metrics.RecordCallback(kind, outcome)
	metrics.SetPendingWaiters(kind, pending)
}
