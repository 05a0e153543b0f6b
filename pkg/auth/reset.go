package auth

import (
	"context"
	"fmt"

	"github.com/securenest/authkit/pkg/challenge"
	"github.com/securenest/authkit/pkg/logger"
	"github.com/securenest/authkit/pkg/sanitizer"
	"github.com/securenest/authkit/pkg/validator"
)

// RequestPasswordReset emails a reset code to a verified account. The wider
// verification window of the reset purpose tolerates users who take a few
// minutes to get back to their inbox.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) (string, error) {
	emailAddr = sanitizer.NormalizeEmail(emailAddr)

	user, err := s.users.ByEmail(ctx, emailAddr)
	if err != nil {
		return "", err
	}
	if !user.IsEmailVerified {
		return "", ErrEmailNotVerified
	}

	issued, err := s.challenges.Issue(ctx, emailAddr, challenge.PurposePasswordReset)
	if err != nil {
		return "", err
	}
	if err := s.sendChallengeEmail(ctx, emailAddr, emailAddr, challenge.PurposePasswordReset, issued); err != nil {
		return "", err
	}

	s.log.InfoContext(ctx, "password reset code sent",
		logger.UserID(user.ID.String()), logger.Component("auth"))
	return sanitizer.MaskEmail(emailAddr), nil
}

// ResetPassword verifies the code and sets the new password. The stored hash
// is replaced before consuming the challenge, so a storage failure leaves
// the code usable for a retry.
func (s *Service) ResetPassword(ctx context.Context, emailAddr, code, newPassword, confirm string) error {
	emailAddr = sanitizer.NormalizeEmail(emailAddr)

	if err := validator.Apply(
		validator.StrongPassword("password", newPassword, s.passwordStrength),
		validator.NotCommonPassword("password", newPassword),
		validator.MatchingStrings("password_confirmation", newPassword, confirm),
	); err != nil {
		return err
	}

	user, err := s.users.ByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}

	ch, err := s.challenges.Verify(ctx, emailAddr, challenge.PurposePasswordReset, code)
	if err != nil {
		return codeError(err)
	}

	hash, err := s.hasher.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to store new password: %w", err)
	}

	if err := s.challenges.Consume(ctx, emailAddr, challenge.PurposePasswordReset, ch.Secret); err != nil {
		s.log.WarnContext(ctx, "reset challenge already consumed",
			logger.UserID(user.ID.String()), logger.Component("auth"))
	}

	s.publish(Event{Type: EventPasswordReset, UserID: user.ID.String(), Email: user.Email})
	s.log.InfoContext(ctx, "password reset",
		logger.UserID(user.ID.String()), logger.Component("auth"))
	return nil
}
