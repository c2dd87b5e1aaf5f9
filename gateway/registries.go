// Package gateway coordinates multi-step queries against an asynchronous
// transport: it issues protocol requests, correlates the callbacks that
// answer them, and assembles the results into snapshots ready for
// serialization.
//
// The gateway owns no network code of its own. It speaks to the remote
// service exclusively through a transport.Transport, and receives answers
// through the CallbackRouter, which implements transport.Subscriber.
package gateway

import (
	"github.com/rankgate/rankgate/correlation"
	"github.com/rankgate/rankgate/transport"
)

// Registries bundles the correlation state shared by the callback router
// and the query services. One Registries instance backs one transport
// session; the queues' FIFO positions are only meaningful relative to a
// single outbound request stream.
type Registries struct {
	Find       *correlation.Queue[transport.FindResult]
	Entries    *correlation.Queue[transport.EntriesResult]
	Lobbies    *correlation.Queue[transport.LobbyListResult]
	Identities *correlation.IdentityMap
}

func NewRegistries() *Registries {
	return &Registries{
		Find:       correlation.NewQueue[transport.FindResult](),
		Entries:    correlation.NewQueue[transport.EntriesResult](),
		Lobbies:    correlation.NewQueue[transport.LobbyListResult](),
		Identities: correlation.NewIdentityMap(),
	}
}
