// Package correlation matches outbound fire-and-forget requests with the
// asynchronous callbacks that answer them.
//
// The platform protocol carries no request IDs for most callback kinds, so
// correlation is purely positional: the Nth callback of a kind answers the
// Nth outstanding request of that kind. Queue preserves that contract by
// pairing "register waiter" and "send request" under a single lock.
//
// Architecture:
//
//	caller                      Queue                       CallbackRouter
//	  │  Issue(send) ───────────► enqueue ticket, send()
//	  │                             │
//	  │  ticket.Await(ctx, d) ◄─────┘
//	  │      ▲
//	  │      └──────────────────  Dispatch(v) ◄──────────── inbound callback
//
// A Ticket resolves exactly once: fulfilled by Dispatch or expired by Await's
// deadline, whichever happens first. The loser of that race is a no-op.
package correlation

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned by Await when no matching callback arrived in time.
var ErrTimeout = errors.New("timed out waiting for callback")

// Ticket is a single-use handle for a value delivered by a later callback.
// Create tickets through Queue.Enqueue or Queue.Issue; a zero Ticket is not
// usable.
type Ticket[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T

	// expired is written inside once and read only after done is closed.
	expired bool

	// onExpire detaches the ticket from whatever registry tracks it, so an
	// abandoned wait cannot leak an orphaned entry. Set at creation, run at
	// most once.
	onExpire func()
}

func newTicket[T any](onExpire func()) *Ticket[T] {
	return &Ticket[T]{done: make(chan struct{}), onExpire: onExpire}
}

// fulfill resolves the ticket with v. Returns false if the ticket was already
// fulfilled or expired.
func (t *Ticket[T]) fulfill(v T) bool {
	won := false
	t.once.Do(func() {
		t.value = v
		won = true
		close(t.done)
	})
	return won
}

// expire marks the ticket as abandoned. Returns false if it was already
// fulfilled or expired.
func (t *Ticket[T]) expire() bool {
	won := false
	t.once.Do(func() {
		t.expired = true
		won = true
		close(t.done)
	})
	if won && t.onExpire != nil {
		t.onExpire()
	}
	return won
}

// Await blocks until the ticket is fulfilled, the timeout elapses, or ctx is
// canceled. On timeout or cancellation the ticket transitions to expired, so
// a late Dispatch can never deliver a value into a caller that already gave
// up.
func (t *Ticket[T]) Await(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-t.done:
		if t.expired {
			return zero, ErrTimeout
		}
		return t.value, nil
	case <-timer.C:
		if t.expire() {
			return zero, ErrTimeout
		}
		// Dispatch won the race just as the timer fired.
		<-t.done
		return t.value, nil
	case <-ctx.Done():
		if t.expire() {
			return zero, ctx.Err()
		}
		<-t.done
		return t.value, nil
	}
}

// Done exposes the completion channel for callers that join on multiple
// tickets at once (see persona.Resolver).
func (t *Ticket[T]) Done() <-chan struct{} {
	return t.done
}

// Resolved reports whether the ticket was fulfilled with a value.
// Only meaningful after Done is closed.
func (t *Ticket[T]) Resolved() bool {
	select {
	case <-t.done:
		return !t.expired
	default:
		return false
	}
}
