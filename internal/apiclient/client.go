// Package apiclient talks to the upstream storefront REST API that owns products, categories and
// user accounts.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/domain"
)

const (
	defaultTimeout  = 8 * time.Second
	maxErrorBody    = 4 << 10
	tracerName      = "github.com/rifqisaleh/shopsmart-rifqi/internal/apiclient"
	defaultUserRole = "customer"
)

var (
	// ErrNotFound is returned when the API answers 404.
	ErrNotFound = errors.New("apiclient: not found")
	// ErrUnauthorized is returned when the API rejects the bearer token or credentials.
	ErrUnauthorized = errors.New("apiclient: unauthorized")
	// ErrMissingBaseURL is returned by NewClient without a base URL.
	ErrMissingBaseURL = errors.New("apiclient: base url is required")
)

// APIError carries a non-2xx response. Message holds the API's own "message" field when present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("apiclient: status %d", e.Status)
	}
	return fmt.Sprintf("apiclient: status %d: %s", e.Status, e.Message)
}

// Unwrap maps well-known statuses onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return nil
	}
}

// MessageOf returns the API supplied message carried by err, or fallback when there is none.
func MessageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return strings.TrimSpace(apiErr.Message)
	}
	return fallback
}

// Client issues requests against the storefront API.
type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(c *Client) {
		if provider != nil {
			c.tracer = provider.Tracer(tracerName)
		}
	}
}

// NewClient constructs a client rooted at baseURL, e.g. https://api.escuelajs.co/api/v1/.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, ErrMissingBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	c := &Client{
		baseURL: base,
		http:    &http.Client{Timeout: defaultTimeout},
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// BaseURL returns the normalised API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Products lists the catalogue, optionally restricted to one category.
func (c *Client) Products(ctx context.Context, categoryID string) ([]domain.Product, error) {
	var query url.Values
	if id := strings.TrimSpace(categoryID); id != "" {
		query = url.Values{"categoryId": {id}}
	}
	var products []domain.Product
	if err := c.do(ctx, request{method: http.MethodGet, path: []string{"products"}, query: query}, &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// Product fetches one product. A 404 yields ErrNotFound.
func (c *Client) Product(ctx context.Context, id int) (domain.Product, error) {
	var product domain.Product
	err := c.do(ctx, request{method: http.MethodGet, path: []string{"products", strconv.Itoa(id)}}, &product)
	return product, err
}

// Categories lists the raw upstream categories.
func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := c.do(ctx, request{method: http.MethodGet, path: []string{"categories"}}, &categories); err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	return categories, nil
}

// Tokens is the login response.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login exchanges credentials for tokens.
func (c *Client) Login(ctx context.Context, email, password string) (Tokens, error) {
	var tokens Tokens
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, request{method: http.MethodPost, path: []string{"auth", "login"}, body: body}, &tokens); err != nil {
		return Tokens{}, err
	}
	if strings.TrimSpace(tokens.AccessToken) == "" {
		return Tokens{}, &APIError{Status: http.StatusUnauthorized}
	}
	return tokens, nil
}

// Profile returns the account behind token.
func (c *Client) Profile(ctx context.Context, token string) (domain.UserProfile, error) {
	var profile domain.UserProfile
	err := c.do(ctx, request{method: http.MethodGet, path: []string{"auth", "profile"}, token: token}, &profile)
	return profile, err
}

// DeleteProfile removes the account behind token.
func (c *Client) DeleteProfile(ctx context.Context, token string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: []string{"auth", "profile"}, token: token}, nil)
}

// RegisterRequest is the account creation payload.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	DOB      string `json:"dob"`
	Avatar   string `json:"avatar"`
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (domain.UserProfile, error) {
	var profile domain.UserProfile
	err := c.do(ctx, request{method: http.MethodPost, path: []string{"users"}, body: req}, &profile)
	return profile, err
}

// Roles returns the distinct roles of existing users in first-seen order.
func (c *Client) Roles(ctx context.Context) ([]string, error) {
	var users []struct {
		Role string `json:"role"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: []string{"users"}}, &users); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(users))
	roles := make([]string, 0, 2)
	for _, user := range users {
		role := strings.TrimSpace(user.Role)
		if role == "" {
			role = defaultUserRole
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}
	return roles, nil
}

// Fetch performs an authenticated JSON request against an arbitrary API path and decodes the
// response into out when out is non-nil.
func (c *Client) Fetch(ctx context.Context, method, path, token string, body, out any) error {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	return c.do(ctx, request{method: method, path: segments, token: token, body: body}, out)
}

type request struct {
	method string
	path   []string
	query  url.Values
	token  string
	body   any
}

func (c *Client) do(ctx context.Context, req request, out any) (err error) {
	endpoint, err := url.JoinPath(c.baseURL, req.path...)
	if err != nil {
		return fmt.Errorf("apiclient: build url: %w", err)
	}
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	ctx, span := c.tracer.Start(ctx, "apiclient "+req.method+" /"+strings.Join(req.path, "/"),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.request.method", req.method)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reader io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("apiclient: encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, reader)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "application/json")
	if reader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token := strings.TrimSpace(req.token); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("apiclient: %s %s: %w", req.method, endpoint, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("apiclient: decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the "message" field. Some endpoints return a list of validation messages.
func errorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var payload struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Message) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(payload.Message, &single); err == nil {
		return strings.TrimSpace(single)
	}
	var many []string
	if err := json.Unmarshal(payload.Message, &many); err == nil {
		return strings.TrimSpace(strings.Join(many, "; "))
	}
	return ""
}
