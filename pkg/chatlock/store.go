package chatlock

import (
	"context"
	"time"
)

// LockStore persists per-conversation lock records. Implementations return
// ErrRecordNotFound from Get and Delete when no record exists.
type LockStore interface {
	// Get returns the record for (owner, peer).
	Get(ctx context.Context, owner, peer string) (*Record, error)
	// Put creates or replaces the record for (owner, peer).
	Put(ctx context.Context, owner string, rec Record) error
	// Delete removes the record for (owner, peer).
	Delete(ctx context.Context, owner, peer string) error
	// ListLocked returns the peers whose conversations owner has locked.
	ListLocked(ctx context.Context, owner string) ([]string, error)
}

// GrantStore tracks short-lived unlock grants issued after a correct PIN.
// Grants expire on their own; Redis backs the shared implementation so every
// instance sees the same grants.
type GrantStore interface {
	// Grant opens (owner, peer) for ttl.
	Grant(ctx context.Context, owner, peer string, ttl time.Duration) error
	// Active reports whether a live grant exists for (owner, peer).
	Active(ctx context.Context, owner, peer string) (bool, error)
	// Revoke drops any grant for (owner, peer). Revoking a missing grant is
	// not an error.
	Revoke(ctx context.Context, owner, peer string) error
}

// PinVerifier checks a chat lock PIN for an owner. The ledger stays ignorant
// of where PIN hashes live; the account service implements this over its
// user store.
type PinVerifier interface {
	// VerifyPin reports whether pin matches owner's chat lock PIN.
	// Implementations return ErrPinNotSet when the owner never set one.
	VerifyPin(ctx context.Context, owner, pin string) (bool, error)
}
