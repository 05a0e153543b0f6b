package account

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/securenest/authkit/pkg/auth"
)

type contextKey struct{ name string }

var sessionKey = contextKey{"account.session"}

// sessionInfo is what authenticated handlers read from the request context.
type sessionInfo struct {
	UserID uuid.UUID
	Email  string
}

// requireSession authenticates requests via a bearer session token.
func (m *Module) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			m.respondError(w, r, auth.ErrSessionInvalid)
			return
		}

		claims, err := m.auth.ParseSession(tok)
		if err != nil {
			m.respondError(w, r, err)
			return
		}
		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			m.respondError(w, r, auth.ErrSessionInvalid)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, sessionInfo{
			UserID: userID,
			Email:  claims.Email,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) (sessionInfo, bool) {
	info, ok := r.Context().Value(sessionKey).(sessionInfo)
	return info, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
