package correlation

import (
	"sync"
)

// Queue is a FIFO registry of waiters for one callback kind.
//
// All callers that share a transport session for a given callback kind must
// share the one Queue for that kind: the wire protocol answers requests in
// issue order, and the queue's own ordering is the only way to match answers
// back to callers.
type Queue[T any] struct {
	// issueMu serializes Issue calls so that the order tickets enter the
	// queue is exactly the order requests hit the wire. Held across the
	// caller's send function.
	issueMu sync.Mutex

	mu      sync.Mutex
	waiters []*Ticket[T]
}

// NewQueue creates an empty waiter queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Enqueue registers a new pending ticket and returns it. The caller must
// issue the outbound request only after Enqueue returns, otherwise the
// callback could arrive before any waiter exists. Prefer Issue, which also
// serializes concurrent callers.
//
// When the ticket expires (Await timeout or cancellation) it removes itself
// from the queue, so abandoned waits do not accumulate.
func (q *Queue[T]) Enqueue() *Ticket[T] {
	var t *Ticket[T]
	t = newTicket[T](func() { q.remove(t) })
	q.mu.Lock()
	q.waiters = append(q.waiters, t)
	q.mu.Unlock()
	return t
}

// Issue enqueues a ticket and then runs send, holding the issue lock across
// both. This guarantees two things at once:
//
//  1. the waiter exists before the request that triggers its callback is on
//     the wire, and
//  2. when several goroutines issue concurrently, their queue order equals
//     their wire order, which is the protocol's only correlation key.
//
// If send fails the ticket is withdrawn and the error returned.
func (q *Queue[T]) Issue(send func() error) (*Ticket[T], error) {
	q.issueMu.Lock()
	defer q.issueMu.Unlock()

	t := q.Enqueue()
	if err := send(); err != nil {
		t.expire()
		return nil, err
	}
	return t, nil
}

// Dispatch delivers an inbound callback to the oldest still-pending ticket.
// Expired tickets left at the head (an Await that raced the remove) are
// discarded. At most one ticket is fulfilled per call. Returns false when no
// waiter was interested; that is not an error, the callback is simply
// dropped.
func (q *Queue[T]) Dispatch(v T) bool {
	for {
		q.mu.Lock()
		if len(q.waiters) == 0 {
			q.mu.Unlock()
			return false
		}
		t := q.waiters[0]
		q.waiters = q.waiters[1:]
		q.mu.Unlock()

		if t.fulfill(v) {
			return true
		}
	}
}

// Len reports the number of registered waiters.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiters)
}

func (q *Queue[T]) remove(t *Ticket[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, w := range q.waiters {
		if w == t {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return
		}
	}
}
