package chatlock

import (
	"time"
)

// Tunable defaults for attempt tracking, escalation and unlock grants.
const (
	// AttemptWindow is how far back failed PIN attempts count toward the
	// cooldown threshold. Older attempts are pruned on every write.
	AttemptWindow = 10 * time.Minute

	// MaxAttempts is the number of failed attempts inside AttemptWindow that
	// triggers a cooldown.
	MaxAttempts = 5

	// CooldownBase is the first cooldown duration. Each subsequent cooldown
	// for the same conversation doubles it, up to CooldownMax, until a
	// correct PIN resets the escalation.
	CooldownBase = 15 * time.Second
	CooldownMax  = 5 * time.Minute

	// GrantTTL is how long a successful PIN check keeps the conversation
	// open before the lock re-engages.
	GrantTTL = 15 * time.Minute
)

// Record is the lock state for one (owner, peer) conversation. A missing
// record means the conversation was never locked.
type Record struct {
	Peer           string      `bson:"peer" json:"peer"`
	Locked         bool        `bson:"locked" json:"locked"`
	FailedAttempts []time.Time `bson:"failed_attempts,omitempty" json:"-"`
	CooldownUntil  *time.Time  `bson:"cooldown_until,omitempty" json:"-"`
	// CooldownStreak counts cooldowns triggered since the last correct PIN
	// and drives the doubling escalation.
	CooldownStreak int `bson:"cooldown_streak,omitempty" json:"-"`
}

// pruneAttempts drops failed attempts that fell out of the counting window.
func (r *Record) pruneAttempts(now time.Time) {
	if len(r.FailedAttempts) == 0 {
		return
	}
	cutoff := now.Add(-AttemptWindow)
	kept := r.FailedAttempts[:0]
	for _, at := range r.FailedAttempts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	r.FailedAttempts = kept
}

// cooldownRemaining returns the active cooldown remainder, or zero.
func (r *Record) cooldownRemaining(now time.Time) time.Duration {
	if r.CooldownUntil == nil || !r.CooldownUntil.After(now) {
		return 0
	}
	return r.CooldownUntil.Sub(now)
}

// nextCooldown returns the escalated duration for the record's current
// streak: CooldownBase doubled per prior cooldown, capped at CooldownMax.
func (r *Record) nextCooldown() time.Duration {
	d := CooldownBase
	for i := 0; i < r.CooldownStreak; i++ {
		d *= 2
		if d >= CooldownMax {
			return CooldownMax
		}
	}
	return d
}

// Status is the externally visible lock state of a conversation.
type Status struct {
	Locked            bool          `json:"locked"`
	GrantActive       bool          `json:"grant_active"`
	CooldownRemaining time.Duration `json:"-"`
}

// EventType identifies a lock-state transition.
type EventType string

const (
	EventLocked          EventType = "chat_locked"
	EventUnlocked        EventType = "chat_unlocked"
	EventUnlockGranted   EventType = "chat_unlock_granted"
	EventCooldownStarted EventType = "chat_cooldown_started"
)

// Event is published on every lock-state transition so connected clients can
// refresh their conversation list without polling.
type Event struct {
	Type  EventType     `json:"type"`
	Owner string        `json:"owner"`
	Peer  string        `json:"peer"`
	At    time.Time     `json:"at"`
	Until time.Duration `json:"until,omitempty"` // cooldown or grant length, when relevant
}
