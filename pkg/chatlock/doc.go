// Package chatlock implements per-conversation chat locks guarded by the
// owner's PIN.
//
// Locking is opt-in and scoped to a single (owner, peer) conversation. Once
// locked, reading the conversation requires the PIN; a correct entry issues a
// short-lived unlock grant so the owner is not re-prompted on every message.
// Wrong PINs are tracked inside a sliding window and trip an escalating
// cooldown: five failures within ten minutes start at fifteen seconds and
// double on each subsequent trip, capped at five minutes, until a correct PIN
// resets the escalation.
//
// The ledger does not store PIN hashes. It verifies PINs through the
// PinVerifier interface, which the account service implements over its user
// store, keeping one PIN per owner across all of their locked conversations.
//
// # Usage
//
//	ledger, err := chatlock.NewLedger(
//		chatlock.NewMemoryLockStore(),
//		chatlock.NewMemoryGrantStore(),
//		pins, // implements chatlock.PinVerifier
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Gate message access:
//	if err := ledger.EnforceOrAllow(ctx, ownerID, peerID); err != nil {
//		// errors.Is(err, chatlock.ErrChatLocked): prompt for the PIN.
//	}
//
//	// PIN prompt flow:
//	if _, err := ledger.Attempt(ctx, ownerID, peerID, pin); err != nil {
//		var cd *chatlock.CooldownError
//		if errors.As(err, &cd) {
//			// Tell the user to retry after cd.RetryAfterSeconds().
//		}
//	}
//
// Production deployments back the ledger with MongoLockStore and
// RedisGrantStore so lock state and grants are shared across instances.
package chatlock
