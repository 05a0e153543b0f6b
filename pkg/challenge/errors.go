package challenge

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrChallengeNotFound = errors.New("no live challenge for subject and purpose")
	ErrChallengeExpired  = errors.New("challenge expired")
	ErrInvalidCode       = errors.New("invalid code")
	ErrNotVerified       = errors.New("challenge has not been verified")
	ErrGraceExpired      = errors.New("verification grace window expired")
	ErrInvalidPurpose    = errors.New("invalid challenge purpose")
	ErrSubjectRequired   = errors.New("subject is required")
	ErrStoreRequired     = errors.New("store is required")
	ErrRateLimited       = errors.New("code requested too recently")
)

// RateLimitedError carries the remaining cooldown so callers can tell the
// user exactly how long to wait. errors.Is(err, ErrRateLimited) matches it.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("code requested too recently, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryAfterSeconds rounds the remaining wait up to whole seconds, never
// reporting zero while a cooldown is still active.
func (e *RateLimitedError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
