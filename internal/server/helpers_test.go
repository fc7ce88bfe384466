package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/textjournal/backend/internal/config"
	"github.com/textjournal/backend/internal/db"
	"github.com/textjournal/backend/internal/logging"
	"github.com/textjournal/backend/internal/services"
	"github.com/textjournal/backend/internal/storage"
)

const (
	testPassword = "Abcdefg1"
	testIP       = "203.0.113.7"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
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

type recordingNotifier struct {
	mu   sync.Mutex
	sent []services.Recipient
}

func (n *recordingNotifier) SendConfirmation(_ context.Context, to services.Recipient) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, to)
	return nil
}

func (n *recordingNotifier) Sent() []services.Recipient {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]services.Recipient(nil), n.sent...)
}

type testServer struct {
	e        *echo.Echo
	srv      *Server
	clock    *fakeClock
	photos   *storage.MemoryStore
	notifier *recordingNotifier
}

func testConfig() config.AppConfig {
	return config.AppConfig{
		DatabaseURL:          "sqlite://:memory:",
		JWTSecret:            "test-secret",
		JWTExpiry:            time.Hour,
		ContentEncryptionKey: "test-master",
		SigninMaxAttempts:    5,
		SignupMaxAttempts:    3,
		RateLimitWindow:      15 * time.Minute,
		LockoutThreshold:     3,
		LockoutDuration:      30 * time.Minute,
		SMSWebhookAPIKey:     "hook-key",
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gdb, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	ts := &testServer{
		e:        echo.New(),
		clock:    &fakeClock{t: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)},
		photos:   storage.NewMemoryStore("http://photos.test"),
		notifier: &recordingNotifier{},
	}
	ts.srv, err = New(ts.e, gdb, testConfig(), Options{
		Photos:     ts.photos,
		Notifier:   ts.notifier,
		Log:        logging.Discard(),
		Now:        ts.clock.Now,
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)
	t.Cleanup(ts.srv.Shutdown)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set("X-Forwarded-For", testIP)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// signUp creates an account through the gateway.
func (ts *testServer) signUp(t *testing.T, email string, extra map[string]any) {
	t.Helper()
	body := map[string]any{"action": "signup", "email": email, "password": testPassword}
	for k, v := range extra {
		body[k] = v
	}
	rec := ts.do(t, http.MethodPost, "/auth-security", body, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

// login exchanges credentials for an access token.
func (ts *testServer) login(t *testing.T, email string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/auth/v1/token?grant_type=password", tokenRequest{Email: email, Password: testPassword}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[services.Session](t, rec).AccessToken
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	return &buf
}
