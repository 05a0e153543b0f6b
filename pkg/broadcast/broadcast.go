// Package broadcast provides a small type-safe fan-out primitive used to push
// chat lock events to interested listeners (websocket bridges, audit hooks)
// without coupling the lock ledger to any delivery mechanism.
//
// Delivery is best effort: a subscriber that cannot keep up has messages
// dropped and is then detached, so a stuck listener can never block the flow
// that produced the event.
package broadcast

import (
	"context"
	"sync"
)

// Broadcaster fans values of type T out to all current subscribers.
// All methods are safe for concurrent use.
type Broadcaster[T any] struct {
	mu         sync.RWMutex
	subs       map[*subscriber[T]]struct{}
	bufferSize int
	closed     bool
	cleanupWg  sync.WaitGroup
}

type subscriber[T any] struct {
	ch     chan T
	mu     sync.RWMutex
	closed bool
}

// New creates a broadcaster whose subscribers buffer up to bufferSize
// pending values. A minimum of 1 is enforced so sends stay non-blocking.
func New[T any](bufferSize int) *Broadcaster[T] {
	return &Broadcaster[T]{
		subs:       make(map[*subscriber[T]]struct{}),
		bufferSize: max(bufferSize, 1),
	}
}

// Subscribe registers a new listener and returns its receive channel. The
// subscription is detached and its channel closed when ctx is cancelled or
// the broadcaster is closed. On an already-closed broadcaster the returned
// channel is closed immediately.
func (b *Broadcaster[T]) Subscribe(ctx context.Context) <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber[T]{ch: make(chan T, b.bufferSize)}
	if b.closed {
		sub.close()
		return sub.ch
	}
	b.subs[sub] = struct{}{}

	if ctx.Done() != nil {
		b.cleanupWg.Add(1)
		go func() {
			defer b.cleanupWg.Done()
			<-ctx.Done()
			b.detach(sub)
		}()
	}

	return sub.ch
}

// Publish delivers v to every active subscriber without blocking. A
// subscriber with a full buffer misses the value and is detached.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for sub := range b.subs {
		if !sub.send(v) {
			// Detach asynchronously so a slow listener cannot hold up the
			// broadcast under the read lock.
			go b.detach(sub)
		}
	}
}

// Close detaches all subscribers and closes their channels.
// Safe to call multiple times.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.close()
	}
	clear(b.subs)
	b.mu.Unlock()

	b.cleanupWg.Wait()
}

func (b *Broadcaster[T]) detach(sub *subscriber[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subs, sub)
	sub.close()
}

func (s *subscriber[T]) send(v T) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}
	select {
	case s.ch <- v:
		return true
	default:
		return false
	}
}

func (s *subscriber[T]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		s.closed = true
	}
}
