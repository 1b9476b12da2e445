package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/apiclient"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/storage"
)

type stubAPI struct {
	loginFn func(ctx context.Context, email, password string) (apiclient.Tokens, error)
	fetchFn func(ctx context.Context, method, path, token string, body, out any) error
}

func (s *stubAPI) Login(ctx context.Context, email, password string) (apiclient.Tokens, error) {
	if s.loginFn == nil {
		return apiclient.Tokens{}, errors.New("login not stubbed")
	}
	return s.loginFn(ctx, email, password)
}

func (s *stubAPI) Fetch(ctx context.Context, method, path, token string, body, out any) error {
	if s.fetchFn == nil {
		return errors.New("fetch not stubbed")
	}
	return s.fetchFn(ctx, method, path, token, body, out)
}

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func signed(t *testing.T, exp *time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "1"}
	if exp != nil {
		claims.ExpiresAt = jwt.NewNumericDate(*exp)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newSession(t *testing.T, api API) (*Session, storage.Store) {
	t.Helper()
	manager, err := NewManager(ManagerDeps{API: api, Clock: func() time.Time { return testNow }})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	store := storage.NewMemoryStore()
	return manager.Session(store), store
}

func TestNewManagerRequiresAPI(t *testing.T) {
	if _, err := NewManager(ManagerDeps{}); err == nil {
		t.Fatalf("expected error without api")
	}
}

func TestLoginStoresTokens(t *testing.T) {
	exp := testNow.Add(time.Hour)
	access := signed(t, &exp)
	session, store := newSession(t, &stubAPI{
		loginFn: func(_ context.Context, email, password string) (apiclient.Tokens, error) {
			if email != "jo@example.com" || password != "changeme" {
				t.Fatalf("unexpected credentials %q/%q", email, password)
			}
			return apiclient.Tokens{AccessToken: access, RefreshToken: "refresh"}, nil
		},
	})
	ctx := context.Background()

	if err := session.Login(ctx, " jo@example.com ", "changeme"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if raw, _ := store.Get(ctx, storage.KeyRefreshToken); string(raw) != "refresh" {
		t.Fatalf("refresh token not stored, got %q", raw)
	}
	if !session.IsAuthenticated(ctx) {
		t.Fatalf("expected authenticated session")
	}
}

func TestLoginFailureMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"api message", &apiclient.APIError{Status: http.StatusUnauthorized, Message: "Unauthorized"}, "Unauthorized"},
		{"no message", errors.New("dial tcp: refused"), MsgInvalidCredentials},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			session, store := newSession(t, &stubAPI{
				loginFn: func(context.Context, string, string) (apiclient.Tokens, error) {
					return apiclient.Tokens{}, tc.err
				},
			})
			err := session.Login(context.Background(), "a@b.co", "x")
			if !errors.Is(err, ErrLoginFailed) {
				t.Fatalf("expected ErrLoginFailed, got %v", err)
			}
			if got := Message(err, ""); got != tc.want {
				t.Fatalf("Message() = %q, want %q", got, tc.want)
			}
			if _, err := store.Get(context.Background(), storage.KeyToken); !errors.Is(err, storage.ErrNotFound) {
				t.Fatalf("expected no token stored, got %v", err)
			}
		})
	}
}

func TestIsAuthenticatedClearsExpiredTokens(t *testing.T) {
	past := testNow.Add(-time.Minute)
	cases := map[string]string{
		"expired":     signed(t, &past),
		"garbage":     "not-a-jwt",
		"missing exp": signed(t, nil),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			session, store := newSession(t, &stubAPI{})
			ctx := context.Background()
			_ = store.Set(ctx, storage.KeyToken, []byte(token))
			_ = store.Set(ctx, storage.KeyRefreshToken, []byte("refresh"))

			if session.IsAuthenticated(ctx) {
				t.Fatalf("expected unauthenticated")
			}
			if _, err := store.Get(ctx, storage.KeyToken); !errors.Is(err, storage.ErrNotFound) {
				t.Fatalf("expected token cleared, got %v", err)
			}
			if _, err := store.Get(ctx, storage.KeyRefreshToken); !errors.Is(err, storage.ErrNotFound) {
				t.Fatalf("expected refresh token cleared, got %v", err)
			}
		})
	}
}

func TestIsAuthenticatedWithoutToken(t *testing.T) {
	session, _ := newSession(t, &stubAPI{})
	if session.IsAuthenticated(context.Background()) {
		t.Fatalf("expected unauthenticated without token")
	}
}

func TestFetchWithAuth(t *testing.T) {
	var gotToken string
	api := &stubAPI{
		fetchFn: func(_ context.Context, method, path, token string, _ any, out any) error {
			gotToken = token
			if path == "auth/profile" && method == http.MethodGet {
				*(out.(*map[string]string)) = map[string]string{"name": "Jo"}
				return nil
			}
			return &apiclient.APIError{Status: http.StatusForbidden}
		},
	}
	session, store := newSession(t, api)
	ctx := context.Background()

	err := session.FetchWithAuth(ctx, http.MethodGet, "auth/profile", nil, nil)
	if !errors.Is(err, ErrNoToken) || Message(err, "") != MsgNoToken {
		t.Fatalf("expected no token error, got %v", err)
	}

	_ = store.Set(ctx, storage.KeyToken, []byte("abc"))
	var out map[string]string
	if err := session.FetchWithAuth(ctx, http.MethodGet, "auth/profile", nil, &out); err != nil {
		t.Fatalf("FetchWithAuth: %v", err)
	}
	if gotToken != "abc" || out["name"] != "Jo" {
		t.Fatalf("unexpected fetch result token=%q out=%v", gotToken, out)
	}

	err = session.FetchWithAuth(ctx, http.MethodDelete, "users/1", nil, nil)
	if !errors.Is(err, ErrRequestFailed) || Message(err, "") != MsgRequestFailed {
		t.Fatalf("expected request failed, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	session, store := newSession(t, &stubAPI{})
	ctx := context.Background()
	_ = store.Set(ctx, storage.KeyToken, []byte("abc"))
	if err := session.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := session.Token(ctx); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected token removed, got %v", err)
	}
}
