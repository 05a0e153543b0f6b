package chatlock

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrChatLocked     = errors.New("chat is locked")
	ErrNotLocked      = errors.New("chat is not locked")
	ErrPinNotSet      = errors.New("chat lock pin is not set")
	ErrInvalidPin     = errors.New("invalid chat lock pin")
	ErrCooldownActive = errors.New("too many failed attempts, cooldown active")
	ErrOwnerRequired  = errors.New("owner is required")
	ErrPeerRequired   = errors.New("peer is required")
	ErrStoreRequired  = errors.New("lock store is required")
	ErrGrantsRequired = errors.New("grant store is required")
	ErrPinsRequired   = errors.New("pin verifier is required")
	ErrRecordNotFound = errors.New("no lock record for conversation")
)

// CooldownError reports an active cooldown with the remaining wait.
// errors.Is(err, ErrCooldownActive) matches it.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry in %s", e.Remaining.Round(time.Second))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}

// RetryAfterSeconds rounds the remaining wait up to whole seconds, never
// reporting zero while the cooldown is still active.
func (e *CooldownError) RetryAfterSeconds() int {
	secs := int((e.Remaining + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
