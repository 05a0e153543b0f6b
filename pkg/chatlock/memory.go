package chatlock

import (
	"context"
	"sync"
	"time"
)

type convKey struct {
	owner string
	peer  string
}

// MemoryLockStore implements LockStore in memory. Suitable for tests and
// single-instance deployments.
type MemoryLockStore struct {
	mu      sync.RWMutex
	records map[convKey]Record
}

// NewMemoryLockStore creates an empty in-memory lock store.
func NewMemoryLockStore() *MemoryLockStore {
	return &MemoryLockStore{records: make(map[convKey]Record)}
}

func (ms *MemoryLockStore) Get(ctx context.Context, owner, peer string) (*Record, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	rec, ok := ms.records[convKey{owner, peer}]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &rec, nil
}

func (ms *MemoryLockStore) Put(ctx context.Context, owner string, rec Record) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.records[convKey{owner, rec.Peer}] = rec
	return nil
}

func (ms *MemoryLockStore) Delete(ctx context.Context, owner, peer string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	key := convKey{owner, peer}
	if _, ok := ms.records[key]; !ok {
		return ErrRecordNotFound
	}
	delete(ms.records, key)
	return nil
}

func (ms *MemoryLockStore) ListLocked(ctx context.Context, owner string) ([]string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var peers []string
	for key, rec := range ms.records {
		if key.owner == owner && rec.Locked {
			peers = append(peers, key.peer)
		}
	}
	return peers, nil
}

type grant struct {
	expiresAt time.Time
}

// MemoryGrantStore implements GrantStore in memory.
type MemoryGrantStore struct {
	mu     sync.RWMutex
	grants map[convKey]grant
	now    func() time.Time
}

// NewMemoryGrantStore creates an empty in-memory grant store.
func NewMemoryGrantStore() *MemoryGrantStore {
	return &MemoryGrantStore{
		grants: make(map[convKey]grant),
		now:    time.Now,
	}
}

// NewMemoryGrantStoreWithClock is NewMemoryGrantStore with an injected time
// source for tests.
func NewMemoryGrantStoreWithClock(now func() time.Time) *MemoryGrantStore {
	gs := NewMemoryGrantStore()
	if now != nil {
		gs.now = now
	}
	return gs
}

func (gs *MemoryGrantStore) Grant(ctx context.Context, owner, peer string, ttl time.Duration) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	gs.grants[convKey{owner, peer}] = grant{expiresAt: gs.now().Add(ttl)}
	return nil
}

func (gs *MemoryGrantStore) Active(ctx context.Context, owner, peer string) (bool, error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	key := convKey{owner, peer}
	g, ok := gs.grants[key]
	if !ok {
		return false, nil
	}
	if !g.expiresAt.After(gs.now()) {
		delete(gs.grants, key)
		return false, nil
	}
	return true, nil
}

func (gs *MemoryGrantStore) Revoke(ctx context.Context, owner, peer string) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	delete(gs.grants, convKey{owner, peer})
	return nil
}
