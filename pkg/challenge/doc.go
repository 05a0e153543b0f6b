// Package challenge manages purpose-scoped one-time code challenges for
// email verification flows: signup, login, password reset, chat PIN recovery
// and account deletion.
//
// Each (subject, purpose) pair holds at most one live challenge. A challenge
// stores only the TOTP secret, never the code itself; the code is derived at
// issue time, delivered out of band, and re-derived during verification with
// a per-purpose tolerance window. All challenges share a 10 minute absolute
// lifetime regardless of how many time steps the window tolerates.
//
// # Basic Usage
//
// Issue a code and later verify and consume it:
//
//	store := challenge.NewMemoryStore()
//	defer store.Close()
//
//	svc, err := challenge.NewService(store)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	issued, err := svc.Issue(ctx, "user@example.com", challenge.PurposeSignup)
//	if err != nil {
//		// A *RateLimitedError means the resend cooldown is still active.
//		return
//	}
//	// Deliver issued.Code by email. Keep nothing else.
//
//	ch, err := svc.Verify(ctx, "user@example.com", challenge.PurposeSignup, submitted)
//	if err != nil {
//		// ErrInvalidCode, ErrChallengeExpired or ErrChallengeNotFound.
//		return
//	}
//	// Perform the side effect (create the account, reset the password, ...)
//	// and only then consume. A failed side effect leaves the challenge live
//	// so the user can retry with the same code.
//	if err := svc.Consume(ctx, "user@example.com", challenge.PurposeSignup, ch.Secret); err != nil {
//		// Another request consumed it first; treat as already handled.
//	}
//
// # Grace Windows
//
// Multi-step flows such as chat PIN recovery verify the code in one request
// and finish the flow in a later one. MarkVerified records the successful
// check without consuming the challenge, and ConsumeVerified finalizes it as
// long as the purpose's grace window has not elapsed:
//
//	svc.MarkVerified(ctx, subject, challenge.PurposePinRecovery, ch.Secret)
//	// ... user submits the new PIN within the grace window ...
//	ch, err := svc.ConsumeVerified(ctx, subject, challenge.PurposePinRecovery)
//
// # Concurrency
//
// Verify never mutates the challenge, and Consume deletes it only when the
// stored secret still matches the one the caller verified against. When two
// requests race on the same code, exactly one consume succeeds and the other
// observes ErrChallengeNotFound.
package challenge
