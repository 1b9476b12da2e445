package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/apiclient"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/auth"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/domain"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/services"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/session"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/storage"
)

func errorBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestLoginRejectedShowsMessage(t *testing.T) {
	h := newHarness(t)

	h.api.loginErr = &apiclient.APIError{Status: http.StatusUnauthorized}
	rr := h.postForm(t, http.MethodPost, "/login", "v1", "email=jane%40example.com&password=nope")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, auth.MsgInvalidCredentials, errorBody(t, rr.Body.Bytes())["message"])

	h.api.loginErr = &apiclient.APIError{Status: http.StatusUnauthorized, Message: "Account locked"}
	rr = h.postForm(t, http.MethodPost, "/login", "v1", "email=jane%40example.com&password=nope")
	assert.Equal(t, "Account locked", errorBody(t, rr.Body.Bytes())["message"])
}

func TestLoginLogoutFlow(t *testing.T) {
	h := newHarness(t)

	var page loginPageResponse
	require.NoError(t, json.Unmarshal(h.do(t, http.MethodGet, "/login", "v1", nil, "").Body.Bytes(), &page))
	assert.False(t, page.Authenticated)

	h.login(t, "v1")

	require.NoError(t, json.Unmarshal(h.do(t, http.MethodGet, "/login", "v1", nil, "").Body.Bytes(), &page))
	assert.True(t, page.Authenticated)
	assert.Equal(t, "/dashboard", page.Redirect)

	stored, err := session.VisitorStore(h.backend, "v1").Get(context.Background(), storage.KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh", string(stored))

	rr := h.do(t, http.MethodPost, "/logout", "v1", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	_, err = session.VisitorStore(h.backend, "v1").Get(context.Background(), storage.KeyToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRegisterPageFallsBackToDefaultRoles(t *testing.T) {
	h := newHarness(t)
	h.api.roles = nil
	h.api.rolesErr = assert.AnError

	rr := h.do(t, http.MethodGet, "/register", "v1", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body services.RoleOptions
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, services.DefaultRoles, body.Roles)
	assert.Equal(t, services.MsgRolesFallback, body.Notice)
}

func TestRegisterValidationErrors(t *testing.T) {
	h := newHarness(t)

	rr := h.postForm(t, http.MethodPost, "/register", "v1",
		"name=&email=bad&password=123&confirmPassword=456&role=&dob=2020-01-01")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "invalid_input", body.Error)
	assert.Equal(t, "Name is required", body.Fields["name"])
	assert.Equal(t, "Email must be a valid email address", body.Fields["email"])
	assert.Equal(t, "Password must be at least 6 characters", body.Fields["password"])
	assert.Equal(t, "Passwords do not match", body.Fields["confirmPassword"])
	assert.Equal(t, "Role is required", body.Fields["role"])
	assert.Equal(t, "You must be at least 18 years old.", body.Fields["dob"])
}

func TestRegisterSuccess(t *testing.T) {
	h := newHarness(t)
	var got apiclient.RegisterRequest
	h.api.registerFn = func(_ context.Context, req apiclient.RegisterRequest) (domain.UserProfile, error) {
		got = req
		return domain.UserProfile{ID: 11, Name: req.Name, Email: req.Email, Role: req.Role}, nil
	}

	rr := h.postJSON(t, http.MethodPost, "/register", "v1",
		`{"name":"Jane","email":"jane@example.com","password":"secret1","confirmPassword":"secret1","role":"customer","dob":"1990-04-02"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var body registerResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, MsgRegistered, body.Message)
	assert.Equal(t, "/login", body.Redirect)
	assert.Equal(t, 11, body.User.ID)
	assert.Equal(t, services.DefaultAvatar, got.Avatar)
	assert.Equal(t, "1990-04-02", got.DOB)
}

func TestRegisterUpstreamFailure(t *testing.T) {
	h := newHarness(t)
	h.api.registerFn = func(context.Context, apiclient.RegisterRequest) (domain.UserProfile, error) {
		return domain.UserProfile{}, &apiclient.APIError{Status: http.StatusBadRequest, Message: "email already exists"}
	}

	rr := h.postForm(t, http.MethodPost, "/register", "v1",
		"name=Jane&email=jane%40example.com&password=secret1&confirmPassword=secret1&role=customer&dob=1990-04-02")
	require.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "email already exists", errorBody(t, rr.Body.Bytes())["message"])
}

func TestDashboardRequiresLogin(t *testing.T) {
	h := newHarness(t)

	rr := h.do(t, http.MethodGet, "/dashboard", "v1", nil, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, MsgLoginRequired, errorBody(t, rr.Body.Bytes())["message"])
}

func TestDashboardProfileAndDelete(t *testing.T) {
	h := newHarness(t)
	var calls []string
	h.api.fetchFn = func(_ context.Context, method, path, token string, _, out any) error {
		calls = append(calls, method+" "+path)
		if token == "" {
			t.Fatalf("expected bearer token")
		}
		if profile, ok := out.(*domain.UserProfile); ok {
			*profile = domain.UserProfile{ID: 7, Name: "Jane", Email: "jane@example.com", Role: "customer"}
		}
		return nil
	}
	h.login(t, "v1")

	rr := h.do(t, http.MethodGet, "/dashboard", "v1", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var profile domain.UserProfile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	assert.Equal(t, "Jane", profile.Name)

	rr = h.do(t, http.MethodDelete, "/dashboard", "v1", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"GET auth/profile", "DELETE auth/profile"}, calls)

	rr = h.do(t, http.MethodGet, "/dashboard", "v1", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
