package auth_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/securenest/authkit/pkg/auth"
)

type recordingCleaner struct {
	mu      sync.Mutex
	cleaned []uuid.UUID
}

func (rc *recordingCleaner) RemoveUserMedia(ctx context.Context, userID uuid.UUID) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.cleaned = append(rc.cleaned, userID)
	return nil
}

func (rc *recordingCleaner) count() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.cleaned)
}

func TestAccountDeletion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("full flow with cleanup and farewell", func(t *testing.T) {
		t.Parallel()
		cleaner := &recordingCleaner{}
		env := newTestEnv(t, auth.WithMediaCleaner(cleaner))
		user := env.seedUser(t, "alice@example.com", "alice")

		masked, err := env.svc.RequestAccountDeletion(ctx, user.ID, testPassword)
		require.NoError(t, err)
		require.Equal(t, "al***@example.com", masked)

		require.NoError(t, env.svc.ConfirmAccountDeletion(ctx, user.ID, env.sender.lastCode(t)))

		_, err = env.users.ByID(ctx, user.ID)
		require.ErrorIs(t, err, auth.ErrUserNotFound)

		// Farewell email and media cleanup run detached from the request.
		require.Eventually(t, func() bool {
			return env.sender.count() == 2 && cleaner.count() == 1
		}, time.Second, 10*time.Millisecond)
		require.True(t, strings.Contains(env.sender.last().Subject, "deleted"))
	})

	t.Run("request requires the password", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		user := env.seedUser(t, "alice@example.com", "alice")

		_, err := env.svc.RequestAccountDeletion(ctx, user.ID, "Wrong-Password-9!")
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("confirm with wrong code keeps the account", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		user := env.seedUser(t, "alice@example.com", "alice")

		_, err := env.svc.RequestAccountDeletion(ctx, user.ID, testPassword)
		require.NoError(t, err)

		wrong := "000000"
		if env.sender.lastCode(t) == wrong {
			wrong = "000001"
		}
		err = env.svc.ConfirmAccountDeletion(ctx, user.ID, wrong)
		require.ErrorIs(t, err, auth.ErrInvalidOrExpiredCode)

		_, err = env.users.ByID(ctx, user.ID)
		require.NoError(t, err)
	})

	t.Run("confirm without a request", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		user := env.seedUser(t, "alice@example.com", "alice")

		err := env.svc.ConfirmAccountDeletion(ctx, user.ID, "123456")
		require.ErrorIs(t, err, auth.ErrInvalidOrExpiredCode)
	})

	t.Run("expired confirmation code", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		user := env.seedUser(t, "alice@example.com", "alice")

		_, err := env.svc.RequestAccountDeletion(ctx, user.ID, testPassword)
		require.NoError(t, err)
		code := env.sender.lastCode(t)

		env.clock.Advance(10*time.Minute + time.Second)

		err = env.svc.ConfirmAccountDeletion(ctx, user.ID, code)
		require.ErrorIs(t, err, auth.ErrInvalidOrExpiredCode)
	})
}
