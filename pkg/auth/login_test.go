package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/securenest/authkit/pkg/auth"
	"github.com/securenest/authkit/pkg/challenge"
	"github.com/securenest/authkit/pkg/totp"
)

func TestLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("by email", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		seeded := env.seedUser(t, "alice@example.com", "alice")

		user, tok, err := env.svc.Login(ctx, "alice@example.com", testPassword)
		require.NoError(t, err)
		require.Equal(t, seeded.ID, user.ID)

		claims, err := env.svc.ParseSession(tok)
		require.NoError(t, err)
		require.Equal(t, seeded.ID.String(), claims.UserID)
	})

	t.Run("by username", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.seedUser(t, "alice@example.com", "alice")

		_, _, err := env.svc.Login(ctx, "alice", testPassword)
		require.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.seedUser(t, "alice@example.com", "alice")

		_, _, err := env.svc.Login(ctx, "alice@example.com", "Wrong-Password-9!")
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		_, _, err := env.svc.Login(ctx, "ghost@example.com", testPassword)
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unverified email", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		user := env.seedUser(t, "alice@example.com", "alice")
		user.IsEmailVerified = false
		require.NoError(t, env.users.Update(ctx, user))

		_, _, err := env.svc.Login(ctx, "alice@example.com", testPassword)
		require.ErrorIs(t, err, auth.ErrEmailNotVerified)
	})

	t.Run("expired session token", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.seedUser(t, "alice@example.com", "alice")

		_, tok, err := env.svc.Login(ctx, "alice@example.com", testPassword)
		require.NoError(t, err)

		env.clock.Advance(25 * time.Hour)

		_, err = env.svc.ParseSession(tok)
		require.ErrorIs(t, err, auth.ErrSessionInvalid)
	})
}

func TestLoginOTP(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("send and verify", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		seeded := env.seedUser(t, "alice@example.com", "alice")

		masked, err := env.svc.SendLoginOTP(ctx, "alice@example.com", testPassword)
		require.NoError(t, err)
		require.Equal(t, "al***@example.com", masked)

		user, tok, err := env.svc.VerifyLoginOTP(ctx, "alice@example.com", env.sender.lastCode(t))
		require.NoError(t, err)
		require.Equal(t, seeded.ID, user.ID)
		require.NotEmpty(t, tok)
	})

	t.Run("requires the password", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.seedUser(t, "alice@example.com", "alice")

		_, err := env.svc.SendLoginOTP(ctx, "alice@example.com", "Wrong-Password-9!")
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("send cooldown", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.seedUser(t, "alice@example.com", "alice")

		_, err := env.svc.SendLoginOTP(ctx, "alice@example.com", testPassword)
		require.NoError(t, err)

		_, err = env.svc.SendLoginOTP(ctx, "alice@example.com", testPassword)
		require.ErrorIs(t, err, challenge.ErrRateLimited)

		env.clock.Advance(31 * time.Second)

		_, err = env.svc.SendLoginOTP(ctx, "alice@example.com", testPassword)
		require.NoError(t, err)
	})

	t.Run("wrong code", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.seedUser(t, "alice@example.com", "alice")

		_, err := env.svc.SendLoginOTP(ctx, "alice@example.com", testPassword)
		require.NoError(t, err)

		wrong := "000000"
		if env.sender.lastCode(t) == wrong {
			wrong = "000001"
		}
		_, _, err = env.svc.VerifyLoginOTP(ctx, "alice@example.com", wrong)
		require.ErrorIs(t, err, auth.ErrInvalidOrExpiredCode)
	})

	t.Run("verify without enrollment", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.seedUser(t, "alice@example.com", "alice")

		_, _, err := env.svc.VerifyLoginOTP(ctx, "alice@example.com", "123456")
		require.ErrorIs(t, err, auth.ErrInvalidOrExpiredCode)
	})

	t.Run("durable secret survives across sends", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		seeded := env.seedUser(t, "alice@example.com", "alice")

		_, err := env.svc.SendLoginOTP(ctx, "alice@example.com", testPassword)
		require.NoError(t, err)

		first, err := env.users.ByID(ctx, seeded.ID)
		require.NoError(t, err)
		require.NotEmpty(t, first.TOTPSecret)

		env.clock.Advance(31 * time.Second)
		_, err = env.svc.SendLoginOTP(ctx, "alice@example.com", testPassword)
		require.NoError(t, err)

		second, err := env.users.ByID(ctx, seeded.ID)
		require.NoError(t, err)
		require.Equal(t, first.TOTPSecret, second.TOTPSecret)
	})
}

func TestTOTPProvisioningURI(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("plain secret", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.seedUser(t, "alice@example.com", "alice")

		uri, err := env.svc.TOTPProvisioningURI(ctx, "alice@example.com", testPassword)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(uri, "otpauth://totp/"))
		require.Contains(t, uri, "alice@example.com")
		require.Contains(t, uri, "issuer=SecureNest")
	})

	t.Run("encrypted secret round trips", func(t *testing.T) {
		t.Parallel()

		key, err := totp.GenerateEncryptionKey()
		require.NoError(t, err)

		env := newTestEnv(t, auth.WithEncryptionKey(key))
		seeded := env.seedUser(t, "alice@example.com", "alice")

		_, err = env.svc.SendLoginOTP(ctx, "alice@example.com", testPassword)
		require.NoError(t, err)

		// The stored secret is ciphertext, not base32.
		stored, err := env.users.ByID(ctx, seeded.ID)
		require.NoError(t, err)
		require.False(t, totp.ValidateSecretKeyRegex.MatchString(stored.TOTPSecret))

		// But the emailed code still verifies.
		_, _, err = env.svc.VerifyLoginOTP(ctx, "alice@example.com", env.sender.lastCode(t))
		require.NoError(t, err)
	})
}
