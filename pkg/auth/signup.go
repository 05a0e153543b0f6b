package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/securenest/authkit/pkg/challenge"
	"github.com/securenest/authkit/pkg/logger"
	"github.com/securenest/authkit/pkg/sanitizer"
	"github.com/securenest/authkit/pkg/validator"
)

// SignupRequest carries the registration form.
type SignupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// pendingSignup is the challenge payload holding the registration until the
// email is proven. The password is hashed before it ever reaches the
// challenge store.
type pendingSignup struct {
	Email        string `json:"email"`
	Username     string `json:"username"`
	FullName     string `json:"full_name"`
	PasswordHash string `json:"password_hash"`
}

// SendSignupOTP validates the registration, parks it as a pending-signup
// challenge and emails the verification code. No user record exists until
// the code is verified. Returns the masked recipient address.
func (s *Service) SendSignupOTP(ctx context.Context, req SignupRequest) (string, error) {
	req.Email = sanitizer.NormalizeEmail(req.Email)
	req.Username = sanitizer.NormalizeUsername(req.Username)
	req.FullName = sanitizer.NormalizeFullName(req.FullName)

	if err := validator.Apply(
		validator.ValidEmail("email", req.Email),
		validator.ValidUsername("username", req.Username),
		validator.StrongPassword("password", req.Password, s.passwordStrength),
		validator.NotCommonPassword("password", req.Password),
	); err != nil {
		return "", err
	}

	if err := s.checkAvailability(ctx, req.Email, req.Username); err != nil {
		return "", err
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	payload, err := json.Marshal(pendingSignup{
		Email:        req.Email,
		Username:     req.Username,
		FullName:     req.FullName,
		PasswordHash: hash,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode pending signup: %w", err)
	}

	issued, err := s.challenges.IssueWithPayload(ctx, req.Email, challenge.PurposeSignup, payload)
	if err != nil {
		return "", err
	}

	if err := s.sendChallengeEmail(ctx, req.Email, req.Email, challenge.PurposeSignup, issued); err != nil {
		return "", err
	}

	s.log.InfoContext(ctx, "signup code sent",
		logger.Email(sanitizer.MaskEmail(req.Email)), logger.Component("auth"))
	return sanitizer.MaskEmail(req.Email), nil
}

// VerifySignupOTP finishes registration: the code is checked, uniqueness is
// re-checked (another signup may have won the race during the challenge
// window), the account is created, and only then is the challenge consumed.
// A failed create leaves the challenge live so the same code still works on
// retry.
func (s *Service) VerifySignupOTP(ctx context.Context, emailAddr, code string) (*User, string, error) {
	emailAddr = sanitizer.NormalizeEmail(emailAddr)

	ch, err := s.challenges.Verify(ctx, emailAddr, challenge.PurposeSignup, code)
	if err != nil {
		return nil, "", codeError(err)
	}

	var pending pendingSignup
	if err := json.Unmarshal(ch.Payload, &pending); err != nil {
		return nil, "", fmt.Errorf("failed to decode pending signup: %w", err)
	}

	if err := s.checkAvailability(ctx, pending.Email, pending.Username); err != nil {
		// The registration can never complete; drop the challenge with it.
		if derr := s.challenges.Discard(ctx, emailAddr, challenge.PurposeSignup); derr != nil {
			s.log.ErrorContext(ctx, "failed to discard conflicted signup challenge",
				logger.Error(derr), logger.Component("auth"))
		}
		return nil, "", err
	}

	user := &User{
		ID:              uuid.New(),
		Email:           pending.Email,
		Username:        pending.Username,
		FullName:        pending.FullName,
		PasswordHash:    pending.PasswordHash,
		IsEmailVerified: true,
		CreatedAt:       s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.challenges.Consume(ctx, emailAddr, challenge.PurposeSignup, ch.Secret); err != nil {
		// A concurrent verify already created the account and consumed the
		// challenge; surface the replay instead of a duplicate session.
		if errors.Is(err, challenge.ErrChallengeNotFound) {
			return nil, "", ErrInvalidOrExpiredCode
		}
		return nil, "", err
	}

	tok, err := s.issueSession(user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session: %w", err)
	}

	s.publish(Event{Type: EventUserRegistered, UserID: user.ID.String(), Email: user.Email})
	s.log.InfoContext(ctx, "user registered",
		logger.UserID(user.ID.String()), logger.Component("auth"))
	return user, tok, nil
}

// checkAvailability confirms neither the email nor the username is taken.
func (s *Service) checkAvailability(ctx context.Context, emailAddr, username string) error {
	if _, err := s.users.ByEmail(ctx, emailAddr); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("failed to check email availability: %w", err)
	}

	if _, err := s.users.ByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("failed to check username availability: %w", err)
	}
	return nil
}

// ResendSignupOTP re-issues the signup code, subject to the resend cooldown.
// The parked registration is carried over unchanged; the secret and code are
// re-randomized.
func (s *Service) ResendSignupOTP(ctx context.Context, emailAddr string) (string, error) {
	emailAddr = sanitizer.NormalizeEmail(emailAddr)

	ch, err := s.challenges.Peek(ctx, emailAddr, challenge.PurposeSignup)
	if err != nil {
		return "", codeError(err)
	}

	issued, err := s.challenges.IssueWithPayload(ctx, emailAddr, challenge.PurposeSignup, ch.Payload)
	if err != nil {
		return "", err
	}
	if err := s.sendChallengeEmail(ctx, emailAddr, emailAddr, challenge.PurposeSignup, issued); err != nil {
		return "", err
	}
	return sanitizer.MaskEmail(emailAddr), nil
}
