package challenge

import (
	"context"
	"time"
)

// Store persists challenges. Implementations must linearize updates per
// (subject, purpose): the conditional operations take the secret of the
// challenge the caller read, so a concurrent replacement or consumption makes
// the condition fail instead of silently clobbering state. This is what keeps
// a one-time code one-time under concurrent verification attempts.
type Store interface {
	// Put stores ch as the single live challenge for its (subject, purpose),
	// replacing any prior challenge.
	Put(ctx context.Context, ch Challenge) error

	// Get returns the live challenge or ErrChallengeNotFound.
	Get(ctx context.Context, subject string, purpose Purpose) (*Challenge, error)

	// MarkVerified sets VerifiedAt, but only while the stored secret still
	// equals secret. Returns ErrChallengeNotFound when the challenge is gone
	// or has been replaced.
	MarkVerified(ctx context.Context, subject string, purpose Purpose, secret string, at time.Time) error

	// DeleteIfSecret removes the challenge only while the stored secret still
	// equals secret. Returns ErrChallengeNotFound when the challenge is gone
	// or has been replaced; exactly one of several concurrent callers wins.
	DeleteIfSecret(ctx context.Context, subject string, purpose Purpose, secret string) error

	// Delete unconditionally removes the challenge. Used for expiry purges.
	Delete(ctx context.Context, subject string, purpose Purpose) error
}
