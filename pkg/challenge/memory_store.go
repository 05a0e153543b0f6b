package challenge

import (
	"context"
	"sync"
	"time"
)

type storeKey struct {
	subject string
	purpose Purpose
}

// MemoryStore implements Store using in-memory storage. Suitable for tests
// and single-instance deployments; use MongoStore when challenges must
// survive restarts or be shared across instances.
type MemoryStore struct {
	mu         sync.RWMutex
	challenges map[storeKey]Challenge

	cleanupInterval time.Duration
	staleAfter      time.Duration
	stopCleanup     chan struct{}
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often stale challenges are swept.
// Set to 0 to disable automatic cleanup.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithStaleAfter sets the age past which the sweeper drops a challenge.
// It should exceed the longest purpose TTL so the sweeper never races the
// service's own expiry handling.
func WithStaleAfter(age time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.staleAfter = age
	}
}

// NewMemoryStore creates a new in-memory store with optional cleanup.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		challenges:      make(map[storeKey]Challenge),
		cleanupInterval: 5 * time.Minute,
		staleAfter:      time.Hour,
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ms)
	}

	if ms.cleanupInterval > 0 {
		go ms.cleanup()
	}

	return ms
}

func (ms *MemoryStore) Put(ctx context.Context, ch Challenge) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.challenges[storeKey{ch.Subject, ch.Purpose}] = ch
	return nil
}

func (ms *MemoryStore) Get(ctx context.Context, subject string, purpose Purpose) (*Challenge, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	ch, ok := ms.challenges[storeKey{subject, purpose}]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	return &ch, nil
}

func (ms *MemoryStore) MarkVerified(ctx context.Context, subject string, purpose Purpose, secret string, at time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	key := storeKey{subject, purpose}
	ch, ok := ms.challenges[key]
	if !ok || ch.Secret != secret {
		return ErrChallengeNotFound
	}
	ch.VerifiedAt = &at
	ms.challenges[key] = ch
	return nil
}

func (ms *MemoryStore) DeleteIfSecret(ctx context.Context, subject string, purpose Purpose, secret string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	key := storeKey{subject, purpose}
	ch, ok := ms.challenges[key]
	if !ok || ch.Secret != secret {
		return ErrChallengeNotFound
	}
	delete(ms.challenges, key)
	return nil
}

func (ms *MemoryStore) Delete(ctx context.Context, subject string, purpose Purpose) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	key := storeKey{subject, purpose}
	if _, ok := ms.challenges[key]; !ok {
		return ErrChallengeNotFound
	}
	delete(ms.challenges, key)
	return nil
}

// cleanup runs periodically to remove stale challenges.
func (ms *MemoryStore) cleanup() {
	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.removeStale()
		case <-ms.stopCleanup:
			return
		}
	}
}

// removeStale drops challenges old enough that no policy could still accept
// them, preventing unbounded growth from abandoned flows.
func (ms *MemoryStore) removeStale() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	for key, ch := range ms.challenges {
		if now.Sub(ch.CreatedAt) > ms.staleAfter {
			delete(ms.challenges, key)
		}
	}
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (ms *MemoryStore) Close() {
	select {
	case <-ms.stopCleanup:
		// Already closed
	default:
		close(ms.stopCleanup)
	}
}
