package account_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/securenest/authkit/modules/account"
	"github.com/securenest/authkit/pkg/auth"
	"github.com/securenest/authkit/pkg/challenge"
	"github.com/securenest/authkit/pkg/chatlock"
	"github.com/securenest/authkit/pkg/credentials"
	"github.com/securenest/authkit/pkg/email"
)

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*auth.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[uuid.UUID]*auth.User)}
}

func (ms *memUsers) Create(ctx context.Context, user *auth.User) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
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

func (ms *memUsers) ByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	u, ok := ms.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (ms *memUsers) ByEmail(ctx context.Context, emailAddr string) (*auth.User, error) {
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

func (ms *memUsers) ByUsername(ctx context.Context, username string) (*auth.User, error) {
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

func (ms *memUsers) Update(ctx context.Context, user *auth.User) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.users[user.ID]; !ok {
		return auth.ErrUserNotFound
	}
	clone := *user
	ms.users[user.ID] = &clone
	return nil
}

func (ms *memUsers) Delete(ctx context.Context, id uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.users[id]; !ok {
		return auth.ErrUserNotFound
	}
	delete(ms.users, id)
	return nil
}

type capturingSender struct {
	mu   sync.Mutex
	sent []email.SendEmailParams
}

func (cs *capturingSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.sent = append(cs.sent, params)
	return nil
}

var codeRegex = regexp.MustCompile(`\d{6}`)

func (cs *capturingSender) lastCode(t *testing.T) string {
	t.Helper()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	require.NotEmpty(t, cs.sent)
	code := codeRegex.FindString(cs.sent[len(cs.sent)-1].BodyHTML)
	require.NotEmpty(t, code)
	return code
}

type testServer struct {
	srv    *httptest.Server
	sender *capturingSender
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := challenge.NewMemoryStore(challenge.WithCleanupInterval(0))
	t.Cleanup(store.Close)
	challenges, err := challenge.NewService(store)
	require.NoError(t, err)

	sender := &capturingSender{}
	authSvc, err := auth.New(newMemUsers(), challenges, credentials.New(credentials.WithCost(4)), sender, "module-test-secret")
	require.NoError(t, err)

	ledger, err := chatlock.NewLedger(
		chatlock.NewMemoryLockStore(),
		chatlock.NewMemoryGrantStore(),
		authSvc,
	)
	require.NoError(t, err)

	mod, err := account.New(authSvc, ledger)
	require.NoError(t, err)

	srv := httptest.NewServer(mod.Router())
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, sender: sender}
}

// call sends a JSON request and decodes the envelope.
func (ts *testServer) call(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

// signup drives the full signup flow and returns a session token.
func (ts *testServer) signup(t *testing.T, emailAddr, username string) string {
	t.Helper()

	status, _ := ts.call(t, http.MethodPost, "/signup/otp/send", "", map[string]string{
		"email":    emailAddr,
		"username": username,
		"password": "Correct-Horse-9!",
	})
	require.Equal(t, http.StatusAccepted, status)

	status, env := ts.call(t, http.MethodPost, "/signup/otp/verify", "", map[string]string{
		"email": emailAddr,
		"otp":   ts.sender.lastCode(t),
	})
	require.Equal(t, http.StatusCreated, status)

	data := env["data"].(map[string]any)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func errBody(t *testing.T, env map[string]any) map[string]any {
	t.Helper()
	require.Equal(t, false, env["success"])
	body, ok := env["error"].(map[string]any)
	require.True(t, ok)
	return body
}

func TestSignupEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("full flow issues a usable session", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		status, env := ts.call(t, http.MethodPost, "/signup/otp/send", "", map[string]string{
			"email":    "alice@example.com",
			"username": "alice",
			"password": "Correct-Horse-9!",
		})
		require.Equal(t, http.StatusAccepted, status)
		data := env["data"].(map[string]any)
		require.Equal(t, "al***@example.com", data["masked_email"])

		status, env = ts.call(t, http.MethodPost, "/signup/otp/verify", "", map[string]string{
			"email": "alice@example.com",
			"otp":   ts.sender.lastCode(t),
		})
		require.Equal(t, http.StatusCreated, status)
		data = env["data"].(map[string]any)
		user := data["user"].(map[string]any)
		require.Equal(t, "alice@example.com", user["email"])
		require.Equal(t, true, user["is_email_verified"])

		// Secret material never appears in the response.
		raw, err := json.Marshal(env)
		require.NoError(t, err)
		require.NotContains(t, string(raw), "password")
		require.NotContains(t, string(raw), "hash")

		token := data["token"].(string)
		status, env = ts.call(t, http.MethodGet, "/pin/status", token, nil)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, false, env["data"].(map[string]any)["has_pin"])
	})

	t.Run("resend before cooldown is rate limited", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		body := map[string]string{
			"email":    "alice@example.com",
			"username": "alice",
			"password": "Correct-Horse-9!",
		}
		status, _ := ts.call(t, http.MethodPost, "/signup/otp/send", "", body)
		require.Equal(t, http.StatusAccepted, status)

		status, env := ts.call(t, http.MethodPost, "/signup/otp/resend", "", map[string]string{"email": "alice@example.com"})
		require.Equal(t, http.StatusTooManyRequests, status)
		e := errBody(t, env)
		require.Equal(t, "rate_limited", e["code"])
		require.Greater(t, e["cooldown"].(float64), float64(0))
	})

	t.Run("weak password reports field errors", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		status, env := ts.call(t, http.MethodPost, "/signup/otp/send", "", map[string]string{
			"email":    "alice@example.com",
			"username": "alice",
			"password": "short",
		})
		require.Equal(t, http.StatusBadRequest, status)
		e := errBody(t, env)
		require.Equal(t, "invalid_format", e["code"])
		require.Contains(t, e["fields"], "password")
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/signup/otp/send", bytes.NewBufferString("{not json"))
		require.NoError(t, err)
		resp, err := ts.srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestLoginEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.signup(t, "alice@example.com", "alice")

		status, env := ts.call(t, http.MethodPost, "/login", "", map[string]string{
			"identifier": "alice",
			"password":   "Correct-Horse-9!",
		})
		require.Equal(t, http.StatusOK, status)
		require.NotEmpty(t, env["data"].(map[string]any)["token"])
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.signup(t, "alice@example.com", "alice")

		status, env := ts.call(t, http.MethodPost, "/login", "", map[string]string{
			"identifier": "alice",
			"password":   "Wrong-Password-9!",
		})
		require.Equal(t, http.StatusUnauthorized, status)
		require.Equal(t, "invalid_credential", errBody(t, env)["code"])
	})

	t.Run("login OTP pair", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.signup(t, "alice@example.com", "alice")

		status, _ := ts.call(t, http.MethodPost, "/login/otp/send", "", map[string]string{
			"identifier": "alice@example.com",
			"password":   "Correct-Horse-9!",
		})
		require.Equal(t, http.StatusAccepted, status)

		status, env := ts.call(t, http.MethodPost, "/login/otp/verify", "", map[string]string{
			"identifier": "alice@example.com",
			"otp":        ts.sender.lastCode(t),
		})
		require.Equal(t, http.StatusOK, status)
		require.NotEmpty(t, env["data"].(map[string]any)["token"])
	})
}

func TestAuthenticatedRoutes(t *testing.T) {
	t.Parallel()

	t.Run("reject missing token", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		status, env := ts.call(t, http.MethodGet, "/pin/status", "", nil)
		require.Equal(t, http.StatusUnauthorized, status)
		require.Equal(t, "invalid_credential", errBody(t, env)["code"])
	})

	t.Run("reject garbage token", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		status, _ := ts.call(t, http.MethodGet, "/pin/status", "not-a-token", nil)
		require.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestPinEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("set and change", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		token := ts.signup(t, "alice@example.com", "alice")

		status, _ := ts.call(t, http.MethodPost, "/pin/set", token, map[string]string{"pin": "1234"})
		require.Equal(t, http.StatusOK, status)

		status, env := ts.call(t, http.MethodGet, "/pin/status", token, nil)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, true, env["data"].(map[string]any)["has_pin"])

		status, env = ts.call(t, http.MethodPost, "/pin/set", token, map[string]string{"pin": "5678"})
		require.Equal(t, http.StatusConflict, status)
		require.Equal(t, "conflict", errBody(t, env)["code"])

		status, _ = ts.call(t, http.MethodPost, "/pin/change", token, map[string]string{
			"old_pin": "1234", "new_pin": "5678",
		})
		require.Equal(t, http.StatusOK, status)
	})

	t.Run("bad pin format", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		token := ts.signup(t, "alice@example.com", "alice")

		status, env := ts.call(t, http.MethodPost, "/pin/set", token, map[string]string{"pin": "12a4"})
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "invalid_format", errBody(t, env)["code"])
	})

	t.Run("recovery flow over HTTP", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		token := ts.signup(t, "alice@example.com", "alice")

		status, _ := ts.call(t, http.MethodPost, "/pin/set", token, map[string]string{"pin": "1234"})
		require.Equal(t, http.StatusOK, status)

		status, _ = ts.call(t, http.MethodPost, "/pin/recovery/start", token, map[string]string{"password": "Correct-Horse-9!"})
		require.Equal(t, http.StatusAccepted, status)

		status, _ = ts.call(t, http.MethodPost, "/pin/recovery/verify", token, map[string]string{"otp": ts.sender.lastCode(t)})
		require.Equal(t, http.StatusOK, status)

		status, _ = ts.call(t, http.MethodPost, "/pin/recovery/complete", token, map[string]string{
			"new_pin": "9876", "confirm_pin": "9876",
		})
		require.Equal(t, http.StatusOK, status)

		status, _ = ts.call(t, http.MethodPost, "/pin/change", token, map[string]string{
			"old_pin": "9876", "new_pin": "1111",
		})
		require.Equal(t, http.StatusOK, status)
	})

	t.Run("recovery complete without verification", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		token := ts.signup(t, "alice@example.com", "alice")

		status, _ := ts.call(t, http.MethodPost, "/pin/set", token, map[string]string{"pin": "1234"})
		require.Equal(t, http.StatusOK, status)

		status, env := ts.call(t, http.MethodPost, "/pin/recovery/complete", token, map[string]string{
			"new_pin": "9876", "confirm_pin": "9876",
		})
		require.Equal(t, http.StatusForbidden, status)
		require.Equal(t, "forbidden", errBody(t, env)["code"])
	})

	t.Run("mismatched confirmation", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		token := ts.signup(t, "alice@example.com", "alice")

		status, env := ts.call(t, http.MethodPost, "/pin/recovery/complete", token, map[string]string{
			"new_pin": "9876", "confirm_pin": "6789",
		})
		require.Equal(t, http.StatusBadRequest, status)
		require.Contains(t, errBody(t, env)["fields"], "confirm_pin")
	})
}

func TestChatLockEndpoints(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T) (*testServer, string) {
		ts := newTestServer(t)
		token := ts.signup(t, "alice@example.com", "alice")
		status, _ := ts.call(t, http.MethodPost, "/pin/set", token, map[string]string{"pin": "1234"})
		require.Equal(t, http.StatusOK, status)
		return ts, token
	}

	t.Run("lock, status, list, unlock", func(t *testing.T) {
		t.Parallel()
		ts, token := setup(t)

		status, _ := ts.call(t, http.MethodPost, "/chatlock/peer-9/lock", token, map[string]string{"pin": "1234"})
		require.Equal(t, http.StatusOK, status)

		status, env := ts.call(t, http.MethodGet, "/chatlock/peer-9", token, nil)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, true, env["data"].(map[string]any)["locked"])

		status, env = ts.call(t, http.MethodGet, "/chatlock", token, nil)
		require.Equal(t, http.StatusOK, status)
		require.Contains(t, env["data"].(map[string]any)["locked"], "peer-9")

		status, _ = ts.call(t, http.MethodPost, "/chatlock/peer-9/unlock", token, map[string]string{"pin": "1234"})
		require.Equal(t, http.StatusOK, status)

		status, env = ts.call(t, http.MethodGet, "/chatlock/peer-9", token, nil)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, false, env["data"].(map[string]any)["locked"])
	})

	t.Run("verify grants access", func(t *testing.T) {
		t.Parallel()
		ts, token := setup(t)

		status, _ := ts.call(t, http.MethodPost, "/chatlock/peer-9/lock", token, map[string]string{"pin": "1234"})
		require.Equal(t, http.StatusOK, status)

		status, env := ts.call(t, http.MethodPost, "/chatlock/peer-9/verify", token, map[string]string{"pin": "1234"})
		require.Equal(t, http.StatusOK, status)
		data := env["data"].(map[string]any)
		require.Equal(t, true, data["locked"])
		require.Equal(t, true, data["grant_active"])
	})

	t.Run("wrong pin attempts trip the cooldown", func(t *testing.T) {
		t.Parallel()
		ts, token := setup(t)

		status, _ := ts.call(t, http.MethodPost, "/chatlock/peer-9/lock", token, map[string]string{"pin": "1234"})
		require.Equal(t, http.StatusOK, status)

		for i := 0; i < 4; i++ {
			status, env := ts.call(t, http.MethodPost, "/chatlock/peer-9/verify", token, map[string]string{"pin": "0000"})
			require.Equal(t, http.StatusUnauthorized, status, "attempt %d", i+1)
			require.Equal(t, "invalid_credential", errBody(t, env)["code"])
		}

		// Fifth failure starts the cooldown; the correct PIN is refused too.
		status, env := ts.call(t, http.MethodPost, "/chatlock/peer-9/verify", token, map[string]string{"pin": "0000"})
		require.Equal(t, http.StatusTooManyRequests, status)
		require.Greater(t, errBody(t, env)["cooldown"].(float64), float64(0))

		status, env = ts.call(t, http.MethodPost, "/chatlock/peer-9/verify", token, map[string]string{"pin": "1234"})
		require.Equal(t, http.StatusTooManyRequests, status)
		require.Equal(t, "rate_limited", errBody(t, env)["code"])
	})

	t.Run("locking without a pin set", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		token := ts.signup(t, "alice@example.com", "alice")

		status, env := ts.call(t, http.MethodPost, "/chatlock/peer-9/lock", token, map[string]string{"pin": "1234"})
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "invalid_format", errBody(t, env)["code"])
	})
}

func TestDeletionEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("request and confirm", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		token := ts.signup(t, "alice@example.com", "alice")

		status, _ := ts.call(t, http.MethodPost, "/deletion/request", token, map[string]string{"password": "Correct-Horse-9!"})
		require.Equal(t, http.StatusAccepted, status)

		status, _ = ts.call(t, http.MethodPost, "/deletion/confirm", token, map[string]string{"otp": ts.sender.lastCode(t)})
		require.Equal(t, http.StatusOK, status)

		// Account is gone; the still-unexpired session hits a 404.
		status, env := ts.call(t, http.MethodGet, "/pin/status", token, nil)
		require.Equal(t, http.StatusNotFound, status)
		require.Equal(t, "not_found", errBody(t, env)["code"])
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		token := ts.signup(t, "alice@example.com", "alice")

		status, env := ts.call(t, http.MethodPost, "/deletion/request", token, map[string]string{"password": "Wrong-Password-9!"})
		require.Equal(t, http.StatusUnauthorized, status)
		require.Equal(t, "invalid_credential", errBody(t, env)["code"])
	})
}

func TestBackupCodeEndpoints(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token := ts.signup(t, "alice@example.com", "alice")

	status, env := ts.call(t, http.MethodPost, "/backup-codes", token, nil)
	require.Equal(t, http.StatusCreated, status)
	codes := env["data"].(map[string]any)["codes"].([]any)
	require.Len(t, codes, 10)

	status, env = ts.call(t, http.MethodGet, "/backup-codes", token, nil)
	require.Equal(t, http.StatusOK, status)
	listed := env["data"].(map[string]any)["codes"].([]any)
	require.Len(t, listed, 10)
	for _, item := range listed {
		entry := item.(map[string]any)
		require.Equal(t, false, entry["used"])
		_, leaked := entry["code"]
		require.False(t, leaked)
	}

	status, env = ts.call(t, http.MethodPost, "/recovery/backup", "", map[string]string{
		"email": "alice@example.com",
		"code":  fmt.Sprint(codes[0]),
	})
	require.Equal(t, http.StatusAccepted, status)
	require.Equal(t, "al***@example.com", env["data"].(map[string]any)["masked_email"])
}
