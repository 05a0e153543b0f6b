package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/securenest/authkit/pkg/challenge"
	"github.com/securenest/authkit/pkg/logger"
	"github.com/securenest/authkit/pkg/sanitizer"
	"github.com/securenest/authkit/pkg/totp"
)

// backupBatchSize is how many codes a batch contains. A new batch cannot be
// generated while unused codes remain, so users cannot mint codes at will.
const backupBatchSize = 10

// GenerateBackupCodes issues a fresh batch of single-use recovery codes and
// returns the plaintexts exactly once. Only hashes are stored.
func (s *Service) GenerateBackupCodes(ctx context.Context, userID uuid.UUID) ([]string, error) {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.UnusedBackupCodes() > 0 {
		return nil, ErrBackupCodesRemaining
	}

	codes, err := totp.GenerateBackupCodes(backupBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate backup codes: %w", err)
	}

	hashed := make([]BackupCode, len(codes))
	for i, code := range codes {
		hashed[i] = BackupCode{CodeHash: totp.HashBackupCode(code)}
	}

	user.BackupCodes = hashed
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to store backup codes: %w", err)
	}

	s.publish(Event{Type: EventBackupCodesIssued, UserID: user.ID.String()})
	s.log.InfoContext(ctx, "backup codes generated",
		logger.UserID(user.ID.String()), logger.Component("auth"))
	return codes, nil
}

// ListBackupCodes returns the used/unused state of the current batch. The
// codes themselves are not recoverable.
func (s *Service) ListBackupCodes(ctx context.Context, userID uuid.UUID) ([]BackupCode, error) {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.BackupCodes, nil
}

// RecoverWithBackupCode burns a backup code for a locked-out user and opens
// a password reset challenge, emailing its code to the account address.
// Returns the masked address.
func (s *Service) RecoverWithBackupCode(ctx context.Context, emailAddr, code string) (string, error) {
	emailAddr = sanitizer.NormalizeEmail(emailAddr)

	user, err := s.users.ByEmail(ctx, emailAddr)
	if err != nil {
		return "", err
	}

	idx := -1
	for i, bc := range user.BackupCodes {
		if !bc.Used && totp.VerifyBackupCode(code, bc.CodeHash) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", ErrInvalidBackupCode
	}

	now := s.now()
	user.BackupCodes[idx].Used = true
	user.BackupCodes[idx].UsedAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		return "", fmt.Errorf("failed to mark backup code used: %w", err)
	}

	issued, err := s.challenges.Issue(ctx, emailAddr, challenge.PurposePasswordReset)
	if err != nil {
		return "", err
	}
	if err := s.sendChallengeEmail(ctx, user.Email, emailAddr, challenge.PurposePasswordReset, issued); err != nil {
		return "", err
	}

	s.publish(Event{Type: EventBackupCodeUsed, UserID: user.ID.String()})
	s.log.InfoContext(ctx, "backup code redeemed",
		logger.UserID(user.ID.String()), logger.Component("auth"))
	return sanitizer.MaskEmail(user.Email), nil
}
