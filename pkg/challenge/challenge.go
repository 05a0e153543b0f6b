package challenge

import (
	"time"
)

// Purpose scopes a challenge to the flow that issued it. A code generated for
// one purpose can never satisfy verification for another.
type Purpose string

const (
	PurposeSignup          Purpose = "signup"
	PurposeLogin           Purpose = "login"
	PurposePasswordReset   Purpose = "password_reset"
	PurposePinRecovery     Purpose = "pin_recovery"
	PurposeAccountDeletion Purpose = "account_deletion"
)

// Valid reports whether p is one of the known purposes.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeSignup, PurposeLogin, PurposePasswordReset, PurposePinRecovery, PurposeAccountDeletion:
		return true
	}
	return false
}

func (p Purpose) String() string { return string(p) }

// Challenge is a single-purpose, time-boxed OTP session tying a secret to a
// subject (user id or pending-signup email). At most one live challenge exists
// per (subject, purpose); issuing a new one replaces the prior.
type Challenge struct {
	Subject    string     `bson:"subject" json:"subject"`
	Purpose    Purpose    `bson:"purpose" json:"purpose"`
	Secret     string     `bson:"secret" json:"-"`
	Payload    []byte     `bson:"payload,omitempty" json:"-"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	VerifiedAt *time.Time `bson:"verified_at,omitempty" json:"verified_at,omitempty"`
}

// ExpiresAt returns the absolute expiry for the given TTL.
func (c *Challenge) ExpiresAt(ttl time.Duration) time.Time {
	return c.CreatedAt.Add(ttl)
}

// Policy captures the per-purpose lifetime rules. TTL bounds the challenge as
// a whole; WindowSteps bounds which TOTP buckets a code may come from inside
// that TTL; Cooldown throttles re-issuance; Grace, when non-zero, keeps the
// challenge alive after a successful verification so a dependent follow-up
// step can complete without re-submitting the code.
type Policy struct {
	TTL         time.Duration
	Cooldown    time.Duration
	WindowSteps int
	Grace       time.Duration
}

// DefaultPolicies returns the deliberate per-purpose verification policy:
// narrow windows and short resend cooldowns for signup/login, wider windows
// and longer cooldowns for recovery flows where user delay is expected. The
// wider replay surface of recovery windows is accepted as a tradeoff bounded
// by the absolute 10-minute TTL.
func DefaultPolicies() map[Purpose]Policy {
	return map[Purpose]Policy{
		PurposeSignup:          {TTL: 10 * time.Minute, Cooldown: 30 * time.Second, WindowSteps: 1},
		PurposeLogin:           {TTL: 10 * time.Minute, Cooldown: 30 * time.Second, WindowSteps: 1},
		PurposePasswordReset:   {TTL: 10 * time.Minute, Cooldown: 2 * time.Minute, WindowSteps: 4},
		PurposePinRecovery:     {TTL: 10 * time.Minute, Cooldown: 2 * time.Minute, WindowSteps: 6, Grace: 10 * time.Minute},
		PurposeAccountDeletion: {TTL: 10 * time.Minute, Cooldown: 2 * time.Minute, WindowSteps: 1},
	}
}
