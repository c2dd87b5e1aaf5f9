package correlation

import "sync"

// IdentityMap tracks pending name resolutions keyed by the opaque identifier
// embedded in the callback payload. Unlike Queue, correlation here is exact:
// the callback names the identifier it answers.
//
// The map enforces the dedup invariant: at most one ticket per identifier at
// any time, with concurrent interested parties joining the same ticket.
type IdentityMap struct {
	mu      sync.Mutex
	pending map[uint64]*Ticket[struct{}]
}

// NewIdentityMap creates an empty identity map.
func NewIdentityMap() *IdentityMap {
	return &IdentityMap{pending: make(map[uint64]*Ticket[struct{}])}
}

// Claim returns the pending ticket for id, creating one if none exists.
// created reports whether this caller made the entry and therefore owns
// issuing the outbound lookup for it; joiners must not issue a duplicate.
// The check-and-set is atomic, so two concurrent claimants of the same id
// always agree on a single owner.
func (m *IdentityMap) Claim(id uint64) (t *Ticket[struct{}], created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.pending[id]; ok {
		return existing, false
	}
	t = newTicket[struct{}](nil)
	m.pending[id] = t
	return t, true
}

// Resolve fulfills and removes the pending ticket for id. Returns false when
// nobody was waiting; the callback is dropped, which is normal for unsolicited
// persona updates.
func (m *IdentityMap) Resolve(id uint64) bool {
	m.mu.Lock()
	t, ok := m.pending[id]
	if ok {
		delete(m.pending, id)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	return t.fulfill(struct{}{})
}

// Release removes the entry for id, but only if it still holds t. The pointer
// comparison protects a later batch that already claimed the id afresh: a
// slow, timed-out batch cleaning up after itself must not tear down its
// successor's claim.
func (m *IdentityMap) Release(id uint64, t *Ticket[struct{}]) {
	m.mu.Lock()
	if current, ok := m.pending[id]; ok && current == t {
		delete(m.pending, id)
	}
	m.mu.Unlock()
	t.expire()
}

// Len reports the number of identifiers with an outstanding claim.
func (m *IdentityMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
