package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile          = ".env"
	defaultPort             = "8080"
	defaultReadTimeout      = 15 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultIdleTimeout      = 120 * time.Second
	defaultAPITimeout       = 10 * time.Second
	defaultEnvironment      = "local"
	defaultPlaceholder      = "/placeholder.png"
	defaultPriceUpperBound  = 500
	defaultSortLocale       = "en"
	defaultCurrency         = "USD"
	defaultStorageBackend   = "memory"
	defaultStorageDir       = ".storefront"
	defaultStateCollection  = "storefrontState"
	defaultSessionCookie    = "shopsmart_session"
	defaultSessionTTL       = 30 * 24 * time.Hour
	defaultCartIdleTTL      = 2 * time.Hour
	defaultCartSweep        = 5 * time.Minute
	defaultContentCacheTTL  = 5 * time.Minute
	defaultOrderEventsTopic = "storefront-orders"
)

// Storage backends accepted by Storage.Backend.
const (
	StorageMemory    = "memory"
	StorageFile      = "file"
	StorageFirestore = "firestore"
)

var defaultImageHosts = []string{"i.imgur.com", "content.r9cdn.net", "picsum.photos"}

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	Server      ServerConfig
	API         APIConfig
	Catalog     CatalogConfig
	Storage     StorageConfig
	Firestore   FirestoreConfig
	Events      EventsConfig
	Session     SessionConfig
	Content     ContentConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// APIConfig points at the external storefront REST API.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// CatalogConfig controls listing and image behaviour.
type CatalogConfig struct {
	ImageHosts       []string
	ImagePlaceholder string
	PriceUpperBound  float64
	SortLocale       string
	DisplayCurrency  string
}

// StorageConfig selects where durable visitor state (wishlist, tokens) lives.
type StorageConfig struct {
	Backend    string
	Dir        string
	Collection string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// EventsConfig configures order event publishing. An empty project disables Pub/Sub.
type EventsConfig struct {
	ProjectID string
	Topic     string
}

// SessionConfig configures the visitor cookie and in-memory cart lifetime.
type SessionConfig struct {
	CookieName    string
	SigningKey    string
	TTL           time.Duration
	Secure        bool
	CartIdleTTL   time.Duration
	SweepInterval time.Duration
}

// ContentConfig controls static content pages.
type ContentConfig struct {
	Dir      string
	CacheTTL time.Duration
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// EnvironmentValues returns the effective key/value environment map after applying the same
// precedence rules as Load (dotenv < OS env < explicit env map). Callers use it to build the secret
// fetcher before invoking Load.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	values, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = make(map[string]string)
	}

	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			key = strings.TrimSpace(key)
			if !ok || key == "" {
				continue
			}
			values[key] = value
		}
	}
	for key, value := range options.envMap {
		values[key] = value
	}
	return values, nil
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets a custom secret resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables, and optional secret manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
		}),
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}

	priceUpper := floatWithDefault(lookup, "STOREFRONT_PRICE_UPPER_BOUND", defaultPriceUpperBound)

	cfg := Config{
		Environment: strings.ToLower(stringWithDefault(lookup, "STOREFRONT_ENVIRONMENT", defaultEnvironment)),
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "STOREFRONT_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "STOREFRONT_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "STOREFRONT_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "STOREFRONT_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		API: APIConfig{
			BaseURL: strings.TrimSpace(stringWithDefault(lookup, "STOREFRONT_API_BASE_URL", "")),
			Timeout: durationWithDefault(lookup, "STOREFRONT_API_TIMEOUT", defaultAPITimeout),
		},
		Catalog: CatalogConfig{
			ImageHosts:       csvWithDefault(lookup, "STOREFRONT_IMAGE_HOSTS", defaultImageHosts),
			ImagePlaceholder: stringWithDefault(lookup, "STOREFRONT_IMAGE_PLACEHOLDER", defaultPlaceholder),
			PriceUpperBound:  priceUpper,
			SortLocale:       stringWithDefault(lookup, "STOREFRONT_SORT_LOCALE", defaultSortLocale),
			DisplayCurrency:  strings.ToUpper(stringWithDefault(lookup, "STOREFRONT_DISPLAY_CURRENCY", defaultCurrency)),
		},
		Storage: StorageConfig{
			Backend:    strings.ToLower(stringWithDefault(lookup, "STOREFRONT_STORAGE_BACKEND", defaultStorageBackend)),
			Dir:        stringWithDefault(lookup, "STOREFRONT_STORAGE_DIR", defaultStorageDir),
			Collection: stringWithDefault(lookup, "STOREFRONT_STORAGE_COLLECTION", defaultStateCollection),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "STOREFRONT_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "STOREFRONT_FIRESTORE_EMULATOR_HOST", ""),
		},
		Events: EventsConfig{
			ProjectID: stringWithDefault(lookup, "STOREFRONT_PUBSUB_PROJECT_ID", ""),
			Topic:     stringWithDefault(lookup, "STOREFRONT_PUBSUB_ORDER_TOPIC", defaultOrderEventsTopic),
		},
		Session: SessionConfig{
			CookieName:    stringWithDefault(lookup, "STOREFRONT_SESSION_COOKIE", defaultSessionCookie),
			SigningKey:    stringWithDefault(lookup, "STOREFRONT_SESSION_SIGNING_KEY", ""),
			TTL:           durationWithDefault(lookup, "STOREFRONT_SESSION_TTL", defaultSessionTTL),
			Secure:        boolWithDefault(lookup, "STOREFRONT_SESSION_SECURE", false),
			CartIdleTTL:   durationWithDefault(lookup, "STOREFRONT_CART_IDLE_TTL", defaultCartIdleTTL),
			SweepInterval: durationWithDefault(lookup, "STOREFRONT_CART_SWEEP_INTERVAL", defaultCartSweep),
		},
		Content: ContentConfig{
			Dir:      stringWithDefault(lookup, "STOREFRONT_CONTENT_DIR", ""),
			CacheTTL: durationWithDefault(lookup, "STOREFRONT_CONTENT_CACHE_TTL", defaultContentCacheTTL),
		},
	}

	// Firestore project defaults to the Pub/Sub project when unspecified.
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Events.ProjectID
	}

	secretFields := []struct {
		name  string
		field *string
	}{
		{"Session.SigningKey", &cfg.Session.SigningKey},
	}
	for _, target := range secretFields {
		resolved, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target.field = resolved
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" || !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.API.BaseURL == "" {
		missing = append(missing, "API.BaseURL")
	} else if parsed, err := url.Parse(cfg.API.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		missing = append(missing, "API.BaseURL")
	}
	if cfg.API.Timeout <= 0 {
		missing = append(missing, "API.Timeout")
	}
	if cfg.Catalog.PriceUpperBound <= 0 {
		missing = append(missing, "Catalog.PriceUpperBound")
	}
	switch cfg.Storage.Backend {
	case StorageMemory:
	case StorageFile:
		if strings.TrimSpace(cfg.Storage.Dir) == "" {
			missing = append(missing, "Storage.Dir")
		}
	case StorageFirestore:
		if cfg.Firestore.ProjectID == "" {
			missing = append(missing, "Firestore.ProjectID")
		}
	default:
		missing = append(missing, "Storage.Backend")
	}
	if strings.TrimSpace(cfg.Session.CookieName) == "" {
		missing = append(missing, "Session.CookieName")
	}
	if cfg.Environment != defaultEnvironment && cfg.Session.SigningKey == "" {
		missing = append(missing, "Session.SigningKey")
	}
	if cfg.Session.CartIdleTTL <= 0 {
		missing = append(missing, "Session.CartIdleTTL")
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return &ValidationError{fields: missing}
	}
	return nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

// RedactSecretName hashes a secret identifier for safe logging.
func RedactSecretName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	values, err := godotenv.Read(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string, fallback []string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return append([]string(nil), fallback...)
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
