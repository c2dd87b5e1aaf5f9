// Package persona resolves display names for opaque account identifiers.
//
// The name cache is authoritative: readers always consult the Store, and the
// Resolver only improves the cache's freshness on a best-effort basis. A
// resolution that times out is not an error; the affected entries simply
// keep their placeholder until a later callback fills them in.
package persona

import (
	"context"
	"errors"

	"github.com/rankgate/rankgate/transport"
)

var (
	// ErrNotFound indicates the store has no usable name for the identifier.
	ErrNotFound = errors.New("persona: name not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("persona: store closed")
)

// UnknownName is the placeholder the platform reports for accounts it has no
// name for. It is treated as absent everywhere.
const UnknownName = "[unknown]"

// Usable reports whether a cached name is worth showing to a caller.
func Usable(name string) bool {
	return name != "" && name != UnknownName
}

// Store is the shared name cache consulted by the query coordinators and
// written by the callback router.
type Store interface {
	// Get returns the cached name for id, or ErrNotFound.
	Get(ctx context.Context, id transport.SteamID) (string, error)

	// GetMultiple returns the cached names for the given ids. Missing or
	// placeholder entries are simply absent from the result.
	GetMultiple(ctx context.Context, ids []transport.SteamID) (map[transport.SteamID]string, error)

	// Set stores or replaces the name for id.
	Set(ctx context.Context, id transport.SteamID, name string) error

	// SetMultiple stores or replaces names for a batch of ids.
	SetMultiple(ctx context.Context, names map[transport.SteamID]string) error

	// Close releases resources held by the store.
	Close() error
}
