package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/securenest/authkit/pkg/logger"
	"github.com/securenest/authkit/pkg/totp"
)

// Service issues and verifies purpose-scoped one-time codes on top of a
// Store. It owns the lifetime rules: resend cooldowns, the absolute TTL, the
// per-purpose TOTP tolerance window and the post-verification grace window
// used by multi-step recovery flows.
type Service struct {
	store    Store
	policies map[Purpose]Policy
	log      *slog.Logger
	now      func() time.Time
}

// Issued is the result of issuing a challenge. Code is handed to the email
// sender and never stored; only the secret is persisted.
type Issued struct {
	Secret    string
	Code      string
	ExpiresAt time.Time
}

type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source. Tests use it to simulate expiry,
// cooldowns and grace windows without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPolicy overrides the policy for a single purpose.
func WithPolicy(purpose Purpose, policy Policy) Option {
	return func(s *Service) {
		s.policies[purpose] = policy
	}
}

// NewService creates a challenge service with the default per-purpose policies.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	s := &Service{
		store:    store,
		policies: DefaultPolicies(),
		log:      logger.NewDiscard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue creates the single live challenge for (subject, purpose) with a fresh
// secret, replacing any prior one. When the prior challenge was created more
// recently than the purpose's cooldown, issuance fails with a
// RateLimitedError carrying the remaining wait.
func (s *Service) Issue(ctx context.Context, subject string, purpose Purpose) (*Issued, error) {
	return s.IssueWithPayload(ctx, subject, purpose, nil)
}

// IssueWithPayload is Issue with an opaque payload attached to the challenge.
// The signup flow uses it to persist the pending registration alongside the
// secret so any instance can serve the verify step.
func (s *Service) IssueWithPayload(ctx context.Context, subject string, purpose Purpose, payload []byte) (*Issued, error) {
	if subject == "" {
		return nil, ErrSubjectRequired
	}
	if !purpose.Valid() {
		return nil, ErrInvalidPurpose
	}

	policy := s.policies[purpose]
	now := s.now()

	if prior, err := s.store.Get(ctx, subject, purpose); err == nil {
		if wait := policy.Cooldown - now.Sub(prior.CreatedAt); wait > 0 {
			return nil, &RateLimitedError{RetryAfter: wait}
		}
	} else if !errors.Is(err, ErrChallengeNotFound) {
		return nil, fmt.Errorf("failed to check prior challenge: %w", err)
	}

	secret, err := totp.GenerateSecretKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate challenge secret: %w", err)
	}

	ch := Challenge{
		Subject:   subject,
		Purpose:   purpose,
		Secret:    secret,
		Payload:   payload,
		CreatedAt: now,
	}
	if err := s.store.Put(ctx, ch); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	code, err := totp.GenerateTOTPWithTime(secret, now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	s.log.DebugContext(ctx, "challenge issued",
		logger.Purpose(purpose.String()),
		logger.Component("challenge"),
	)

	return &Issued{Secret: secret, Code: code, ExpiresAt: ch.ExpiresAt(policy.TTL)}, nil
}

// Verify checks code against the live challenge without consuming it. Expired
// challenges are purged as a side effect. The returned challenge carries the
// secret the caller must present to Consume, which is what makes
// verify-then-consume safe under concurrency.
func (s *Service) Verify(ctx context.Context, subject string, purpose Purpose, code string) (*Challenge, error) {
	ch, policy, err := s.live(ctx, subject, purpose)
	if err != nil {
		return nil, err
	}

	ok, err := totp.ValidateTOTPWithTime(ch.Secret, code, policy.WindowSteps, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to validate code: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCode
	}

	return ch, nil
}

// Peek returns the live challenge without checking any code. Flows use it to
// read the attached payload, for example when re-issuing a signup code whose
// parked registration must carry over.
func (s *Service) Peek(ctx context.Context, subject string, purpose Purpose) (*Challenge, error) {
	ch, _, err := s.live(ctx, subject, purpose)
	return ch, err
}

// Consume removes the challenge the caller previously verified. Exactly one
// of several concurrent consumers succeeds; the rest get ErrChallengeNotFound,
// which is what enforces single use of a code.
func (s *Service) Consume(ctx context.Context, subject string, purpose Purpose, secret string) error {
	return s.store.DeleteIfSecret(ctx, subject, purpose, secret)
}

// MarkVerified records a successful verification without consuming the
// challenge, opening the purpose's grace window for a dependent follow-up
// step. Only meaningful for purposes with a non-zero Grace policy.
func (s *Service) MarkVerified(ctx context.Context, subject string, purpose Purpose, secret string) error {
	return s.store.MarkVerified(ctx, subject, purpose, secret, s.now())
}

// CheckVerified loads the live challenge and confirms a prior verification is
// still inside the purpose's grace window, without consuming anything.
// Callers perform their side effect and then Consume with the returned
// secret. A lapsed grace window purges the challenge and returns
// ErrGraceExpired.
func (s *Service) CheckVerified(ctx context.Context, subject string, purpose Purpose) (*Challenge, error) {
	ch, policy, err := s.live(ctx, subject, purpose)
	if err != nil {
		return nil, err
	}

	if ch.VerifiedAt == nil {
		return nil, ErrNotVerified
	}
	if policy.Grace > 0 && s.now().Sub(*ch.VerifiedAt) > policy.Grace {
		if err := s.store.Delete(ctx, subject, purpose); err != nil && !errors.Is(err, ErrChallengeNotFound) {
			s.log.ErrorContext(ctx, "failed to purge stale challenge",
				logger.Purpose(purpose.String()),
				logger.Error(err),
				logger.Component("challenge"),
			)
		}
		return nil, ErrGraceExpired
	}

	return ch, nil
}

// ConsumeVerified is CheckVerified plus consumption, for flows whose final
// step has no side effect of its own.
func (s *Service) ConsumeVerified(ctx context.Context, subject string, purpose Purpose) (*Challenge, error) {
	ch, err := s.CheckVerified(ctx, subject, purpose)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteIfSecret(ctx, subject, purpose, ch.Secret); err != nil {
		return nil, err
	}
	return ch, nil
}

// Discard drops any live challenge for (subject, purpose). Flows call it when
// restarting so stale state cannot satisfy a later step.
func (s *Service) Discard(ctx context.Context, subject string, purpose Purpose) error {
	err := s.store.Delete(ctx, subject, purpose)
	if errors.Is(err, ErrChallengeNotFound) {
		return nil
	}
	return err
}

// live loads the challenge and enforces the absolute TTL, purging expired
// records so a matching code can never resurrect them.
func (s *Service) live(ctx context.Context, subject string, purpose Purpose) (*Challenge, Policy, error) {
	if subject == "" {
		return nil, Policy{}, ErrSubjectRequired
	}
	if !purpose.Valid() {
		return nil, Policy{}, ErrInvalidPurpose
	}

	policy := s.policies[purpose]

	ch, err := s.store.Get(ctx, subject, purpose)
	if err != nil {
		return nil, Policy{}, err
	}

	if s.now().After(ch.ExpiresAt(policy.TTL)) {
		if err := s.store.Delete(ctx, subject, purpose); err != nil && !errors.Is(err, ErrChallengeNotFound) {
			s.log.ErrorContext(ctx, "failed to purge expired challenge",
				logger.Purpose(purpose.String()),
				logger.Error(err),
				logger.Component("challenge"),
			)
		}
		return nil, Policy{}, ErrChallengeExpired
	}

	return ch, policy, nil
}
