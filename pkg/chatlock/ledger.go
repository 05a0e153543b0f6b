package chatlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/securenest/authkit/pkg/broadcast"
	"github.com/securenest/authkit/pkg/logger"
)

// Ledger enforces per-conversation chat locks: opt-in locking gated on the
// owner's PIN, failed-attempt tracking with escalating cooldowns, and
// short-lived unlock grants that stand in for re-entering the PIN on every
// message.
type Ledger struct {
	locks  LockStore
	grants GrantStore
	pins   PinVerifier
	events *broadcast.Broadcaster[Event]
	log    *slog.Logger
	now    func() time.Time

	grantTTL time.Duration
}

type Option func(*Ledger)

// WithLogger sets a custom logger for the ledger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClock overrides the time source, letting tests drive attempt windows
// and cooldowns without sleeping.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithEvents attaches a broadcaster that receives lock-state transitions.
func WithEvents(b *broadcast.Broadcaster[Event]) Option {
	return func(l *Ledger) {
		l.events = b
	}
}

// WithGrantTTL overrides how long a correct PIN keeps a conversation open.
func WithGrantTTL(ttl time.Duration) Option {
	return func(l *Ledger) {
		if ttl > 0 {
			l.grantTTL = ttl
		}
	}
}

// NewLedger creates a chat lock ledger over the given stores and PIN
// verifier.
func NewLedger(locks LockStore, grants GrantStore, pins PinVerifier, opts ...Option) (*Ledger, error) {
	if locks == nil {
		return nil, ErrStoreRequired
	}
	if grants == nil {
		return nil, ErrGrantsRequired
	}
	if pins == nil {
		return nil, ErrPinsRequired
	}

	l := &Ledger{
		locks:    locks,
		grants:   grants,
		pins:     pins,
		log:      logger.NewDiscard(),
		now:      time.Now,
		grantTTL: GrantTTL,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Status reports the lock state of (owner, peer). A conversation that was
// never locked reports as unlocked with no cooldown.
func (l *Ledger) Status(ctx context.Context, owner, peer string) (Status, error) {
	if err := requireConversation(owner, peer); err != nil {
		return Status{}, err
	}

	rec, err := l.locks.Get(ctx, owner, peer)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return Status{}, nil
		}
		return Status{}, err
	}
	if !rec.Locked {
		return Status{}, nil
	}

	active, err := l.grants.Active(ctx, owner, peer)
	if err != nil {
		return Status{}, fmt.Errorf("failed to check unlock grant: %w", err)
	}

	return Status{
		Locked:            true,
		GrantActive:       active,
		CooldownRemaining: rec.cooldownRemaining(l.now()),
	}, nil
}

// Lock turns the lock on for (owner, peer). The PIN must match so a stolen
// session cannot lock the owner out of their own conversations.
func (l *Ledger) Lock(ctx context.Context, owner, peer, pin string) error {
	if err := requireConversation(owner, peer); err != nil {
		return err
	}
	if err := l.checkPin(ctx, owner, pin); err != nil {
		return err
	}

	if err := l.locks.Put(ctx, owner, Record{Peer: peer, Locked: true}); err != nil {
		return fmt.Errorf("failed to store lock: %w", err)
	}
	if err := l.grants.Revoke(ctx, owner, peer); err != nil {
		return fmt.Errorf("failed to revoke unlock grant: %w", err)
	}

	l.publish(Event{Type: EventLocked, Owner: owner, Peer: peer, At: l.now()})
	l.log.InfoContext(ctx, "chat locked",
		logger.UserID(owner), logger.PeerID(peer), logger.Component("chatlock"))
	return nil
}

// Unlock removes the lock entirely. Failed PINs here count toward the same
// cooldown as Attempt, so Unlock cannot be used to brute-force around it.
func (l *Ledger) Unlock(ctx context.Context, owner, peer, pin string) error {
	if err := requireConversation(owner, peer); err != nil {
		return err
	}

	rec, err := l.locks.Get(ctx, owner, peer)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ErrNotLocked
		}
		return err
	}
	if !rec.Locked {
		return ErrNotLocked
	}

	if err := l.gatedPinCheck(ctx, owner, peer, pin, rec); err != nil {
		return err
	}

	if err := l.locks.Delete(ctx, owner, peer); err != nil && !errors.Is(err, ErrRecordNotFound) {
		return fmt.Errorf("failed to delete lock: %w", err)
	}
	if err := l.grants.Revoke(ctx, owner, peer); err != nil {
		return fmt.Errorf("failed to revoke unlock grant: %w", err)
	}

	l.publish(Event{Type: EventUnlocked, Owner: owner, Peer: peer, At: l.now()})
	l.log.InfoContext(ctx, "chat unlocked",
		logger.UserID(owner), logger.PeerID(peer), logger.Component("chatlock"))
	return nil
}

// Attempt verifies the PIN for a locked conversation and, on success, issues
// an unlock grant so the owner can read the conversation without re-entering
// the PIN for a while. Wrong PINs accumulate toward a cooldown.
func (l *Ledger) Attempt(ctx context.Context, owner, peer, pin string) (Status, error) {
	if err := requireConversation(owner, peer); err != nil {
		return Status{}, err
	}

	rec, err := l.locks.Get(ctx, owner, peer)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return Status{}, ErrNotLocked
		}
		return Status{}, err
	}
	if !rec.Locked {
		return Status{}, ErrNotLocked
	}

	if err := l.gatedPinCheck(ctx, owner, peer, pin, rec); err != nil {
		return Status{}, err
	}

	if err := l.grants.Grant(ctx, owner, peer, l.grantTTL); err != nil {
		return Status{}, fmt.Errorf("failed to issue unlock grant: %w", err)
	}

	l.publish(Event{Type: EventUnlockGranted, Owner: owner, Peer: peer, At: l.now(), Until: l.grantTTL})
	l.log.InfoContext(ctx, "chat unlock granted",
		logger.UserID(owner), logger.PeerID(peer), logger.Component("chatlock"))

	return Status{Locked: true, GrantActive: true}, nil
}

// EnforceOrAllow gates access to a conversation: it returns nil when the
// conversation is not locked or a live unlock grant exists, and
// ErrChatLocked otherwise.
func (l *Ledger) EnforceOrAllow(ctx context.Context, owner, peer string) error {
	st, err := l.Status(ctx, owner, peer)
	if err != nil {
		return err
	}
	if st.Locked && !st.GrantActive {
		return ErrChatLocked
	}
	return nil
}

// ListLocked returns the peers whose conversations owner has locked.
func (l *Ledger) ListLocked(ctx context.Context, owner string) ([]string, error) {
	if owner == "" {
		return nil, ErrOwnerRequired
	}
	return l.locks.ListLocked(ctx, owner)
}

// gatedPinCheck enforces the cooldown, verifies the PIN, and updates the
// attempt bookkeeping. A correct PIN resets the attempt history and the
// cooldown escalation; a wrong one is recorded and may start a cooldown.
func (l *Ledger) gatedPinCheck(ctx context.Context, owner, peer, pin string, rec *Record) error {
	now := l.now()

	if remaining := rec.cooldownRemaining(now); remaining > 0 {
		return &CooldownError{Remaining: remaining}
	}

	ok, err := l.pins.VerifyPin(ctx, owner, pin)
	if err != nil {
		return err
	}

	rec.pruneAttempts(now)

	if ok {
		rec.FailedAttempts = nil
		rec.CooldownUntil = nil
		rec.CooldownStreak = 0
		if err := l.locks.Put(ctx, owner, *rec); err != nil {
			return fmt.Errorf("failed to store lock record: %w", err)
		}
		return nil
	}

	rec.FailedAttempts = append(rec.FailedAttempts, now)
	if len(rec.FailedAttempts) >= MaxAttempts {
		cooldown := rec.nextCooldown()
		until := now.Add(cooldown)
		rec.CooldownUntil = &until
		rec.CooldownStreak++
		// Attempts are cleared so the window restarts once the cooldown ends.
		rec.FailedAttempts = nil

		if err := l.locks.Put(ctx, owner, *rec); err != nil {
			return fmt.Errorf("failed to store lock record: %w", err)
		}

		l.publish(Event{Type: EventCooldownStarted, Owner: owner, Peer: peer, At: now, Until: cooldown})
		l.log.WarnContext(ctx, "chat lock cooldown started",
			logger.UserID(owner), logger.PeerID(peer), logger.Component("chatlock"))
		return &CooldownError{Remaining: cooldown}
	}

	if err := l.locks.Put(ctx, owner, *rec); err != nil {
		return fmt.Errorf("failed to store lock record: %w", err)
	}
	return ErrInvalidPin
}

// checkPin verifies the PIN without attempt accounting. Used by Lock, where
// no lock exists yet to protect.
func (l *Ledger) checkPin(ctx context.Context, owner, pin string) error {
	ok, err := l.pins.VerifyPin(ctx, owner, pin)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidPin
	}
	return nil
}

func (l *Ledger) publish(ev Event) {
	if l.events != nil {
		l.events.Publish(ev)
	}
}

func requireConversation(owner, peer string) error {
	if owner == "" {
		return ErrOwnerRequired
	}
	if peer == "" {
		return ErrPeerRequired
	}
	return nil
}
