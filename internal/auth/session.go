// Package auth keeps the visitor's API tokens in durable storage and performs authenticated calls.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/apiclient"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/storage"
)

// Messages shown to the visitor.
const (
	MsgInvalidCredentials = "Invalid credentials."
	MsgNoToken            = "No token available."
	MsgRequestFailed      = "Request failed"
)

var (
	// ErrNoToken indicates that no access token is stored.
	ErrNoToken = errors.New("auth: no token available")
	// ErrLoginFailed wraps a rejected login.
	ErrLoginFailed = errors.New("auth: login failed")
	// ErrRequestFailed wraps a non-2xx authenticated call.
	ErrRequestFailed = errors.New("auth: request failed")
)

// Error pairs a visitor-facing message with the underlying cause.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Message returns the visitor-facing text of err, or fallback.
func Message(err error, fallback string) string {
	var authErr *Error
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	return fallback
}

// API is the subset of the upstream client used for authentication.
type API interface {
	Login(ctx context.Context, email, password string) (apiclient.Tokens, error)
	Fetch(ctx context.Context, method, path, token string, body, out any) error
}

// ManagerDeps wires a Manager.
type ManagerDeps struct {
	API    API
	Clock  func() time.Time
	Logger func(context.Context, string, map[string]any)
}

// Manager builds per-visitor sessions over a shared API client.
type Manager struct {
	api    API
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)
}

// NewManager validates deps.
func NewManager(deps ManagerDeps) (*Manager, error) {
	if deps.API == nil {
		return nil, errors.New("auth: api client is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &Manager{api: deps.API, clock: func() time.Time { return clock().UTC() }, logger: logger}, nil
}

// Session binds the manager to one visitor's storage.
func (m *Manager) Session(store storage.Store) *Session {
	return &Session{manager: m, store: store}
}

// Session is the token state of a single visitor.
type Session struct {
	manager *Manager
	store   storage.Store
}

// Login exchanges credentials for tokens and persists them.
func (s *Session) Login(ctx context.Context, email, password string) error {
	tokens, err := s.manager.api.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		s.manager.logger(ctx, "auth.login_failed", map[string]any{"error": err.Error()})
		return &Error{Message: apiclient.MessageOf(err, MsgInvalidCredentials), Err: errors.Join(ErrLoginFailed, err)}
	}
	if err := s.store.Set(ctx, storage.KeyToken, []byte(tokens.AccessToken)); err != nil {
		return err
	}
	if err := s.store.Set(ctx, storage.KeyRefreshToken, []byte(tokens.RefreshToken)); err != nil {
		return err
	}
	s.manager.logger(ctx, "auth.login", nil)
	return nil
}

// Logout clears both stored tokens.
func (s *Session) Logout(ctx context.Context) error {
	return errors.Join(
		s.store.Delete(ctx, storage.KeyToken),
		s.store.Delete(ctx, storage.KeyRefreshToken),
	)
}

// Token returns the stored access token or ErrNoToken.
func (s *Session) Token(ctx context.Context) (string, error) {
	raw, err := s.store.Get(ctx, storage.KeyToken)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.manager.logger(ctx, "auth.token_read_failed", map[string]any{"error": err.Error()})
		}
		return "", ErrNoToken
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// IsAuthenticated reports whether a stored token has an expiry in the future. Expired or unreadable
// tokens are cleared.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	token, err := s.Token(ctx)
	if err != nil {
		return false
	}
	exp, ok := expiry(token)
	if ok && exp.After(s.manager.clock()) {
		return true
	}
	s.manager.logger(ctx, "auth.token_expired", map[string]any{"parsed": ok})
	if err := s.Logout(ctx); err != nil {
		s.manager.logger(ctx, "auth.logout_failed", map[string]any{"error": err.Error()})
	}
	return false
}

// FetchWithAuth calls path on the API with the stored bearer token and decodes the response into
// out when out is non-nil.
func (s *Session) FetchWithAuth(ctx context.Context, method, path string, body, out any) error {
	token, err := s.Token(ctx)
	if err != nil {
		return &Error{Message: MsgNoToken, Err: err}
	}
	if err := s.manager.api.Fetch(ctx, method, path, token, body, out); err != nil {
		return &Error{Message: apiclient.MessageOf(err, MsgRequestFailed), Err: errors.Join(ErrRequestFailed, err)}
	}
	return nil
}

// expiry reads the exp claim without verifying the signature.
func expiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
