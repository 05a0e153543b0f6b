package auth

import (
	"errors"

	"github.com/securenest/authkit/pkg/token"
)

// SessionClaims is the payload of issued session tokens.
type SessionClaims struct {
	UserID   string `json:"uid"`
	Email    string `json:"email"`
	IssuedAt int64  `json:"iat"`
	ExpireAt int64  `json:"exp"`
}

var ErrSessionInvalid = errors.New("session token is invalid or expired")

// issueSession signs a session token for the user.
func (s *Service) issueSession(user *User) (string, error) {
	now := s.now()
	return token.Generate(SessionClaims{
		UserID:   user.ID.String(),
		Email:    user.Email,
		IssuedAt: now.Unix(),
		ExpireAt: now.Add(s.sessionTTL).Unix(),
	}, s.tokenSecret)
}

// ParseSession verifies a session token and returns its claims. Expired or
// tampered tokens fail with ErrSessionInvalid.
func (s *Service) ParseSession(tok string) (SessionClaims, error) {
	claims, err := token.Parse[SessionClaims](tok, s.tokenSecret)
	if err != nil {
		return SessionClaims{}, ErrSessionInvalid
	}
	if claims.ExpireAt < s.now().Unix() {
		return SessionClaims{}, ErrSessionInvalid
	}
	return claims, nil
}
