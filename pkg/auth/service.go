package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/securenest/authkit/pkg/broadcast"
	"github.com/securenest/authkit/pkg/challenge"
	"github.com/securenest/authkit/pkg/credentials"
	"github.com/securenest/authkit/pkg/email"
	"github.com/securenest/authkit/pkg/logger"
	"github.com/securenest/authkit/pkg/totp"
	"github.com/securenest/authkit/pkg/validator"
)

// Service orchestrates the account flows: signup, login, password reset,
// chat lock PIN lifecycle and recovery, backup codes and account deletion.
// It composes the challenge service for anything code-gated and never stores
// a plaintext secret.
type Service struct {
	users      UserStore
	challenges *challenge.Service
	hasher     *credentials.Hasher
	sender     email.EmailSender
	media      MediaCleaner
	events     *broadcast.Broadcaster[Event]
	log        *slog.Logger
	now        func() time.Time

	tokenSecret      string
	sessionTTL       time.Duration
	appName          string
	issuer           string
	encryptionKey    []byte
	passwordStrength validator.PasswordStrengthConfig
	loginOTPCooldown time.Duration
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

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMediaCleaner attaches best-effort media cleanup to account deletion.
func WithMediaCleaner(mc MediaCleaner) Option {
	return func(s *Service) {
		s.media = mc
	}
}

// WithEvents attaches a broadcaster that receives account lifecycle events.
func WithEvents(b *broadcast.Broadcaster[Event]) Option {
	return func(s *Service) {
		s.events = b
	}
}

// WithSessionTTL sets the lifetime of issued session tokens.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithAppName sets the product name used in outbound email.
func WithAppName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.appName = name
		}
	}
}

// WithIssuer sets the issuer embedded in TOTP provisioning URIs.
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithEncryptionKey enables AES-256-GCM encryption of durable TOTP secrets
// at rest. Without it secrets are stored as plain base32.
func WithEncryptionKey(key []byte) Option {
	return func(s *Service) {
		s.encryptionKey = key
	}
}

// WithPasswordStrength overrides the password complexity requirements.
func WithPasswordStrength(cfg validator.PasswordStrengthConfig) Option {
	return func(s *Service) {
		s.passwordStrength = cfg
	}
}

// New creates the account service. The token secret signs session tokens and
// must be non-empty.
func New(users UserStore, challenges *challenge.Service, hasher *credentials.Hasher, sender email.EmailSender, tokenSecret string, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, ErrUsersRequired
	}
	if challenges == nil {
		return nil, ErrChallengesRequired
	}
	if sender == nil {
		return nil, ErrSenderRequired
	}
	if tokenSecret == "" {
		return nil, ErrTokenSecretMissing
	}
	if hasher == nil {
		hasher = credentials.New()
	}

	s := &Service{
		users:            users,
		challenges:       challenges,
		hasher:           hasher,
		sender:           sender,
		log:              logger.NewDiscard(),
		now:              time.Now,
		tokenSecret:      tokenSecret,
		sessionTTL:       24 * time.Hour,
		appName:          "SecureNest",
		issuer:           "SecureNest",
		passwordStrength: validator.DefaultPasswordStrength(),
		loginOTPCooldown: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// VerifyPin implements chatlock.PinVerifier over the user store, so the chat
// lock ledger checks PINs without knowing where hashes live.
func (s *Service) VerifyPin(ctx context.Context, owner, pin string) (bool, error) {
	id, err := uuid.Parse(owner)
	if err != nil {
		return false, ErrUserNotFound
	}
	user, err := s.users.ByID(ctx, id)
	if err != nil {
		return false, err
	}
	if !user.HasPin() {
		return false, ErrPinNotSet
	}
	return s.hasher.VerifyPin(pin, user.PinHash), nil
}

// sendChallengeEmail delivers the code for an issued challenge. A failed
// delivery discards the challenge so the cooldown does not strand the user
// with a code they never received.
func (s *Service) sendChallengeEmail(ctx context.Context, sendTo, subject string, purpose challenge.Purpose, issued *challenge.Issued) error {
	params := email.BuildOTPEmail(s.appName, sendTo, purpose, issued.Code, issued.ExpiresAt.Sub(s.now()))
	if err := s.sender.SendEmail(ctx, params); err != nil {
		if derr := s.challenges.Discard(ctx, subject, purpose); derr != nil {
			s.log.ErrorContext(ctx, "failed to discard undelivered challenge",
				logger.Purpose(purpose.String()), logger.Error(derr), logger.Component("auth"))
		}
		s.log.ErrorContext(ctx, "failed to send code email",
			logger.Purpose(purpose.String()), logger.Error(err), logger.Component("auth"))
		return errors.Join(ErrEmailDelivery, err)
	}
	return nil
}

// codeError maps challenge verification failures onto the service's error
// taxonomy, passing rate limiting through untouched.
func codeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, challenge.ErrInvalidCode),
		errors.Is(err, challenge.ErrChallengeExpired),
		errors.Is(err, challenge.ErrChallengeNotFound):
		return ErrInvalidOrExpiredCode
	default:
		return err
	}
}

// totpSecret returns the user's durable TOTP secret, decrypting when an
// encryption key is configured.
func (s *Service) totpSecret(user *User) (string, error) {
	if len(s.encryptionKey) == 0 {
		return user.TOTPSecret, nil
	}
	return totp.DecryptSecret(user.TOTPSecret, s.encryptionKey)
}

// publish emits a lifecycle event when a broadcaster is attached.
func (s *Service) publish(ev Event) {
	if s.events != nil {
		ev.At = s.now()
		s.events.Publish(ev)
	}
}
