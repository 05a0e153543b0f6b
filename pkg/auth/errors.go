package auth

import "errors"

var (
	// Credential failures are deliberately indistinguishable so responses
	// cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	ErrEmailTaken           = errors.New("email is already registered")
	ErrUsernameTaken        = errors.New("username is already taken")
	ErrEmailNotVerified     = errors.New("email is not verified")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailDelivery        = errors.New("failed to deliver email")

	ErrPinNotSet     = errors.New("chat lock pin is not set")
	ErrPinAlreadySet = errors.New("chat lock pin is already set")
	ErrInvalidPin    = errors.New("invalid chat lock pin")

	ErrRecoveryNotVerified  = errors.New("recovery code has not been verified or the verification lapsed")
	ErrBackupCodesRemaining = errors.New("unused backup codes remain")
	ErrInvalidBackupCode    = errors.New("invalid backup code")

	ErrUsersRequired      = errors.New("user store is required")
	ErrChallengesRequired = errors.New("challenge service is required")
	ErrSenderRequired     = errors.New("email sender is required")
	ErrTokenSecretMissing = errors.New("session token secret is required")
)
