package auth_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/securenest/authkit/pkg/auth"
	"github.com/securenest/authkit/pkg/challenge"
	"github.com/securenest/authkit/pkg/credentials"
	"github.com/securenest/authkit/pkg/email"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memUserStore is an in-memory UserStore with injectable failures.
type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*auth.User

	failCreate error
	failUpdate error
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]*auth.User)}
}

func (ms *memUserStore) Create(ctx context.Context, user *auth.User) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.failCreate != nil {
		return ms.failCreate
	}
	for _, u := range ms.users {
		if u.Email == user.Email {
			return auth.ErrEmailTaken
		}
		if u.Username == user.Username {
			return auth.ErrUsernameTaken
		}
	}
	clone := *user
	ms.users[user.ID] = &clone
	return nil
}

func (ms *memUserStore) ByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	u, ok := ms.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (ms *memUserStore) ByEmail(ctx context.Context, emailAddr string) (*auth.User, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, u := range ms.users {
		if u.Email == emailAddr {
			clone := *u
			return &clone, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (ms *memUserStore) ByUsername(ctx context.Context, username string) (*auth.User, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, u := range ms.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (ms *memUserStore) Update(ctx context.Context, user *auth.User) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.failUpdate != nil {
		return ms.failUpdate
	}
	if _, ok := ms.users[user.ID]; !ok {
		return auth.ErrUserNotFound
	}
	clone := *user
	ms.users[user.ID] = &clone
	return nil
}

func (ms *memUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.users[id]; !ok {
		return auth.ErrUserNotFound
	}
	delete(ms.users, id)
	return nil
}

func (ms *memUserStore) setFailCreate(err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.failCreate = err
}

// capturingSender records outbound mail instead of sending it.
type capturingSender struct {
	mu   sync.Mutex
	sent []email.SendEmailParams
	fail error
}

func (cs *capturingSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.fail != nil {
		return cs.fail
	}
	cs.sent = append(cs.sent, params)
	return nil
}

func (cs *capturingSender) count() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.sent)
}

func (cs *capturingSender) last() email.SendEmailParams {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.sent[len(cs.sent)-1]
}

func (cs *capturingSender) setFail(err error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.fail = err
}

var codeRegex = regexp.MustCompile(`\d{6}`)

// lastCode extracts the 6-digit code from the most recent email body.
func (cs *capturingSender) lastCode(t *testing.T) string {
	t.Helper()

	code := codeRegex.FindString(cs.last().BodyHTML)
	require.NotEmpty(t, code, "no code found in email body")
	return code
}

type testEnv struct {
	svc    *auth.Service
	users  *memUserStore
	sender *capturingSender
	clock  *fakeClock
	hasher *credentials.Hasher
}

func newTestEnv(t *testing.T, opts ...auth.Option) *testEnv {
	t.Helper()

	clock := newFakeClock()
	store := challenge.NewMemoryStore(challenge.WithCleanupInterval(0))
	t.Cleanup(store.Close)

	challenges, err := challenge.NewService(store, challenge.WithClock(clock.Now))
	require.NoError(t, err)

	users := newMemUserStore()
	sender := &capturingSender{}
	hasher := credentials.New(credentials.WithCost(4))

	opts = append([]auth.Option{auth.WithClock(clock.Now)}, opts...)
	svc, err := auth.New(users, challenges, hasher, sender, "test-token-secret", opts...)
	require.NoError(t, err)

	return &testEnv{svc: svc, users: users, sender: sender, clock: clock, hasher: hasher}
}

const testPassword = "Correct-Horse-9!"

// seedUser creates a verified account directly in the store.
func (env *testEnv) seedUser(t *testing.T, emailAddr, username string) *auth.User {
	t.Helper()

	hash, err := env.hasher.HashPassword(testPassword)
	require.NoError(t, err)

	user := &auth.User{
		ID:              uuid.New(),
		Email:           emailAddr,
		Username:        username,
		PasswordHash:    hash,
		IsEmailVerified: true,
		CreatedAt:       env.clock.Now(),
	}
	require.NoError(t, env.users.Create(context.Background(), user))
	return user
}
