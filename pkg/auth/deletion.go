package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/securenest/authkit/pkg/challenge"
	"github.com/securenest/authkit/pkg/email"
	"github.com/securenest/authkit/pkg/logger"
	"github.com/securenest/authkit/pkg/sanitizer"
)

// RequestAccountDeletion starts the deletion flow. The password re-proves
// ownership even on an authenticated session, then a confirmation code goes
// to the account email. Returns the masked address.
func (s *Service) RequestAccountDeletion(ctx context.Context, userID uuid.UUID, password string) (string, error) {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if !s.hasher.VerifyPassword(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	subject := user.ID.String()
	issued, err := s.challenges.Issue(ctx, subject, challenge.PurposeAccountDeletion)
	if err != nil {
		return "", err
	}
	if err := s.sendChallengeEmail(ctx, user.Email, subject, challenge.PurposeAccountDeletion, issued); err != nil {
		return "", err
	}

	s.log.InfoContext(ctx, "account deletion requested",
		logger.UserID(subject), logger.Component("auth"))
	return sanitizer.MaskEmail(user.Email), nil
}

// ConfirmAccountDeletion verifies the code and deletes the account. Media
// cleanup and the farewell email run in the background and never block or
// fail the deletion.
func (s *Service) ConfirmAccountDeletion(ctx context.Context, userID uuid.UUID, code string) error {
	subject := userID.String()

	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return err
	}

	ch, err := s.challenges.Verify(ctx, subject, challenge.PurposeAccountDeletion, code)
	if err != nil {
		return codeError(err)
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if err := s.challenges.Consume(ctx, subject, challenge.PurposeAccountDeletion, ch.Secret); err != nil {
		s.log.WarnContext(ctx, "deletion challenge already consumed",
			logger.UserID(subject), logger.Component("auth"))
	}

	s.finalizeDeletion(user)

	s.publish(Event{Type: EventAccountDeleted, UserID: subject, Email: user.Email})
	s.log.InfoContext(ctx, "account deleted",
		logger.UserID(subject), logger.Component("auth"))
	return nil
}

// finalizeDeletion runs the post-deletion side effects detached from the
// request: farewell email and media cleanup. Both are best effort.
func (s *Service) finalizeDeletion(user *User) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("deletion cleanup panicked", logger.Component("auth"))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		params := email.BuildFarewellEmail(s.appName, user.Email, user.Username)
		if err := s.sender.SendEmail(ctx, params); err != nil {
			s.log.Error("failed to send farewell email",
				logger.UserID(user.ID.String()), logger.Error(err), logger.Component("auth"))
		}

		if s.media != nil {
			if err := s.media.RemoveUserMedia(ctx, user.ID); err != nil {
				s.log.Error("failed to remove user media",
					logger.UserID(user.ID.String()), logger.Error(err), logger.Component("auth"))
			}
		}
	}()
}
