package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/securenest/authkit/pkg/challenge"
	"github.com/securenest/authkit/pkg/credentials"
	"github.com/securenest/authkit/pkg/logger"
	"github.com/securenest/authkit/pkg/sanitizer"
)

// PinStatus reports whether the user has a chat lock PIN configured.
func (s *Service) PinStatus(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.HasPin(), nil
}

// SetPin configures the chat lock PIN for the first time. Changing an
// existing PIN requires the old one via ChangePin, or the recovery flow.
func (s *Service) SetPin(ctx context.Context, userID uuid.UUID, pin string) error {
	if err := credentials.ValidatePinFormat(pin); err != nil {
		return err
	}

	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.HasPin() {
		return ErrPinAlreadySet
	}

	hash, err := s.hasher.HashPin(pin)
	if err != nil {
		return fmt.Errorf("failed to hash pin: %w", err)
	}

	user.PinHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to store pin: %w", err)
	}

	s.publish(Event{Type: EventPinSet, UserID: user.ID.String()})
	s.log.InfoContext(ctx, "chat lock pin set",
		logger.UserID(user.ID.String()), logger.Component("auth"))
	return nil
}

// ChangePin replaces the PIN after verifying the current one.
func (s *Service) ChangePin(ctx context.Context, userID uuid.UUID, oldPin, newPin string) error {
	if err := credentials.ValidatePinFormat(newPin); err != nil {
		return err
	}

	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasPin() {
		return ErrPinNotSet
	}
	if !s.hasher.VerifyPin(oldPin, user.PinHash) {
		return ErrInvalidPin
	}

	hash, err := s.hasher.HashPin(newPin)
	if err != nil {
		return fmt.Errorf("failed to hash pin: %w", err)
	}

	user.PinHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to store pin: %w", err)
	}

	s.publish(Event{Type: EventPinChanged, UserID: user.ID.String()})
	s.log.InfoContext(ctx, "chat lock pin changed",
		logger.UserID(user.ID.String()), logger.Component("auth"))
	return nil
}

// StartPinRecovery begins the forgotten-PIN flow: the password re-proves
// account ownership, then a code goes to the account email. Returns the
// masked address the code was sent to.
func (s *Service) StartPinRecovery(ctx context.Context, userID uuid.UUID, password string) (string, error) {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if !s.hasher.VerifyPassword(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	if !user.HasPin() {
		return "", ErrPinNotSet
	}

	subject := user.ID.String()
	issued, err := s.challenges.Issue(ctx, subject, challenge.PurposePinRecovery)
	if err != nil {
		return "", err
	}
	if err := s.sendChallengeEmail(ctx, user.Email, subject, challenge.PurposePinRecovery, issued); err != nil {
		return "", err
	}

	s.log.InfoContext(ctx, "pin recovery started",
		logger.UserID(subject), logger.Component("auth"))
	return sanitizer.MaskEmail(user.Email), nil
}

// VerifyPinRecoveryOTP checks the recovery code and opens the grace window
// during which CompletePinRecovery may set a new PIN without re-entering the
// code.
func (s *Service) VerifyPinRecoveryOTP(ctx context.Context, userID uuid.UUID, code string) error {
	subject := userID.String()

	ch, err := s.challenges.Verify(ctx, subject, challenge.PurposePinRecovery, code)
	if err != nil {
		return codeError(err)
	}
	if err := s.challenges.MarkVerified(ctx, subject, challenge.PurposePinRecovery, ch.Secret); err != nil {
		return codeError(err)
	}
	return nil
}

// CompletePinRecovery sets the new PIN, gated on a still-valid verification
// from VerifyPinRecoveryOTP. The PIN is stored before the challenge is
// consumed so a storage failure leaves the verification intact.
func (s *Service) CompletePinRecovery(ctx context.Context, userID uuid.UUID, newPin string) error {
	if err := credentials.ValidatePinFormat(newPin); err != nil {
		return err
	}
	subject := userID.String()

	ch, err := s.challenges.CheckVerified(ctx, subject, challenge.PurposePinRecovery)
	if err != nil {
		switch {
		case errors.Is(err, challenge.ErrNotVerified),
			errors.Is(err, challenge.ErrGraceExpired),
			errors.Is(err, challenge.ErrChallengeNotFound),
			errors.Is(err, challenge.ErrChallengeExpired):
			return ErrRecoveryNotVerified
		default:
			return err
		}
	}

	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return err
	}

	hash, err := s.hasher.HashPin(newPin)
	if err != nil {
		return fmt.Errorf("failed to hash pin: %w", err)
	}

	user.PinHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to store pin: %w", err)
	}

	if err := s.challenges.Consume(ctx, subject, challenge.PurposePinRecovery, ch.Secret); err != nil {
		s.log.WarnContext(ctx, "recovery challenge already consumed",
			logger.UserID(subject), logger.Component("auth"))
	}

	s.publish(Event{Type: EventPinRecovered, UserID: subject})
	s.log.InfoContext(ctx, "chat lock pin recovered",
		logger.UserID(subject), logger.Component("auth"))
	return nil
}
