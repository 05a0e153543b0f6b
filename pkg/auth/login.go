package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/securenest/authkit/pkg/challenge"
	"github.com/securenest/authkit/pkg/email"
	"github.com/securenest/authkit/pkg/logger"
	"github.com/securenest/authkit/pkg/sanitizer"
	"github.com/securenest/authkit/pkg/totp"
)

// Login authenticates by email-or-username and password and issues a session
// token. Email-based two-factor is optional; clients that want it call
// SendLoginOTP/VerifyLoginOTP instead of using the token returned here.
func (s *Service) Login(ctx context.Context, identifier, password string) (*User, string, error) {
	user, err := s.authenticate(ctx, identifier, password)
	if err != nil {
		return nil, "", err
	}

	tok, err := s.issueSession(user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session: %w", err)
	}

	s.publish(Event{Type: EventUserLoggedIn, UserID: user.ID.String(), Email: user.Email})
	s.log.InfoContext(ctx, "user logged in",
		logger.UserID(user.ID.String()), logger.Component("auth"))
	return user, tok, nil
}

// SendLoginOTP authenticates the password and emails a second-factor code
// derived from the user's durable TOTP secret. The secret is created lazily
// on first use and survives across logins, so authenticator apps enrolled
// via TOTPProvisioningURI produce the same codes.
func (s *Service) SendLoginOTP(ctx context.Context, identifier, password string) (string, error) {
	user, err := s.authenticate(ctx, identifier, password)
	if err != nil {
		return "", err
	}

	now := s.now()
	if user.LastOTPSentAt != nil {
		if wait := s.loginOTPCooldown - now.Sub(*user.LastOTPSentAt); wait > 0 {
			return "", &challenge.RateLimitedError{RetryAfter: wait}
		}
	}

	secret, err := s.ensureTOTPSecret(ctx, user)
	if err != nil {
		return "", err
	}

	code, err := totp.GenerateTOTPWithTime(secret, now)
	if err != nil {
		return "", fmt.Errorf("failed to generate login code: %w", err)
	}

	params := email.BuildOTPEmail(s.appName, user.Email, challenge.PurposeLogin, code, 30*time.Second)
	if err := s.sender.SendEmail(ctx, params); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEmailDelivery, err)
	}

	user.LastOTPSentAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		return "", fmt.Errorf("failed to record code send time: %w", err)
	}

	s.log.InfoContext(ctx, "login code sent",
		logger.UserID(user.ID.String()), logger.Component("auth"))
	return sanitizer.MaskEmail(user.Email), nil
}

// VerifyLoginOTP checks the second-factor code against the durable TOTP
// secret and issues a session token.
func (s *Service) VerifyLoginOTP(ctx context.Context, identifier, code string) (*User, string, error) {
	user, err := s.lookup(ctx, identifier)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if user.TOTPSecret == "" {
		return nil, "", ErrInvalidOrExpiredCode
	}

	secret, err := s.totpSecret(user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read totp secret: %w", err)
	}

	ok, err := totp.ValidateTOTPWithTime(secret, code, 1, s.now())
	if err != nil {
		return nil, "", fmt.Errorf("failed to validate login code: %w", err)
	}
	if !ok {
		return nil, "", ErrInvalidOrExpiredCode
	}

	tok, err := s.issueSession(user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session: %w", err)
	}

	s.publish(Event{Type: EventUserLoggedIn, UserID: user.ID.String(), Email: user.Email})
	return user, tok, nil
}

// TOTPProvisioningURI returns the otpauth:// URI for enrolling the user's
// durable secret in an authenticator app. The secret is created if missing.
func (s *Service) TOTPProvisioningURI(ctx context.Context, identifier, password string) (string, error) {
	user, err := s.authenticate(ctx, identifier, password)
	if err != nil {
		return "", err
	}

	secret, err := s.ensureTOTPSecret(ctx, user)
	if err != nil {
		return "", err
	}

	return totp.GetTOTPURI(totp.TOTPParams{
		Secret:      secret,
		AccountName: user.Email,
		Issuer:      s.issuer,
	})
}

// authenticate resolves the identifier and checks the password. Failures are
// uniformly ErrInvalidCredentials except for the unverified-email case,
// which the client must be able to distinguish to offer re-verification.
func (s *Service) authenticate(ctx context.Context, identifier, password string) (*User, error) {
	user, err := s.lookup(ctx, identifier)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsEmailVerified {
		return nil, ErrEmailNotVerified
	}
	return user, nil
}

// lookup finds a user by email when the identifier contains "@", by
// username otherwise.
func (s *Service) lookup(ctx context.Context, identifier string) (*User, error) {
	if strings.Contains(identifier, "@") {
		return s.users.ByEmail(ctx, sanitizer.NormalizeEmail(identifier))
	}
	return s.users.ByUsername(ctx, sanitizer.NormalizeUsername(identifier))
}

// ensureTOTPSecret returns the user's durable TOTP secret, creating and
// persisting one on first use.
func (s *Service) ensureTOTPSecret(ctx context.Context, user *User) (string, error) {
	if user.TOTPSecret != "" {
		return s.totpSecret(user)
	}

	secret, err := totp.GenerateSecretKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate totp secret: %w", err)
	}

	stored := secret
	if len(s.encryptionKey) > 0 {
		if stored, err = totp.EncryptSecret(secret, s.encryptionKey); err != nil {
			return "", fmt.Errorf("failed to encrypt totp secret: %w", err)
		}
	}

	user.TOTPSecret = stored
	if err := s.users.Update(ctx, user); err != nil {
		return "", fmt.Errorf("failed to store totp secret: %w", err)
	}
	return secret, nil
}
