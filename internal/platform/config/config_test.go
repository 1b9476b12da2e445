package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"STOREFRONT_API_BASE_URL": "https://api.escuelajs.co/api/v1/",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.API.Timeout != defaultAPITimeout {
		t.Errorf("unexpected api timeout: %s", cfg.API.Timeout)
	}
	if !reflect.DeepEqual(cfg.Catalog.ImageHosts, defaultImageHosts) {
		t.Errorf("expected default image hosts, got %v", cfg.Catalog.ImageHosts)
	}
	if cfg.Catalog.PriceUpperBound != 500 {
		t.Errorf("expected price upper bound 500, got %v", cfg.Catalog.PriceUpperBound)
	}
	if cfg.Catalog.ImagePlaceholder != "/placeholder.png" {
		t.Errorf("unexpected placeholder %s", cfg.Catalog.ImagePlaceholder)
	}
	if cfg.Storage.Backend != StorageMemory {
		t.Errorf("expected memory storage, got %s", cfg.Storage.Backend)
	}
	if cfg.Session.CookieName != defaultSessionCookie {
		t.Errorf("unexpected cookie name %s", cfg.Session.CookieName)
	}
	if cfg.Session.CartIdleTTL != defaultCartIdleTTL {
		t.Errorf("unexpected cart idle ttl %s", cfg.Session.CartIdleTTL)
	}
	if cfg.Environment != "local" {
		t.Errorf("expected local environment, got %s", cfg.Environment)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"STOREFRONT_ENVIRONMENT":             "prod",
		"STOREFRONT_SERVER_PORT":             "9090",
		"STOREFRONT_SERVER_READ_TIMEOUT":     "20s",
		"STOREFRONT_API_BASE_URL":            "https://shop.example.com/api/",
		"STOREFRONT_API_TIMEOUT":             "3s",
		"STOREFRONT_IMAGE_HOSTS":             "cdn.example.com, images.example.com",
		"STOREFRONT_PRICE_UPPER_BOUND":       "1000",
		"STOREFRONT_DISPLAY_CURRENCY":        "eur",
		"STOREFRONT_STORAGE_BACKEND":         "firestore",
		"STOREFRONT_PUBSUB_PROJECT_ID":       "shop-prod",
		"STOREFRONT_PUBSUB_ORDER_TOPIC":      "orders",
		"STOREFRONT_SESSION_SIGNING_KEY":     "sm://session/key",
		"STOREFRONT_SESSION_SECURE":          "yes",
		"STOREFRONT_CART_IDLE_TTL":           "30m",
		"STOREFRONT_FIRESTORE_EMULATOR_HOST": "localhost:8081",
	}

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if ref == "secret://session/key" {
			return "signing-key", nil
		}
		return "", errors.New("unknown ref")
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" || cfg.Server.ReadTimeout != 20*time.Second {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("unexpected api timeout %s", cfg.API.Timeout)
	}
	if !reflect.DeepEqual(cfg.Catalog.ImageHosts, []string{"cdn.example.com", "images.example.com"}) {
		t.Errorf("unexpected image hosts %v", cfg.Catalog.ImageHosts)
	}
	if cfg.Catalog.PriceUpperBound != 1000 {
		t.Errorf("unexpected upper bound %v", cfg.Catalog.PriceUpperBound)
	}
	if cfg.Catalog.DisplayCurrency != "EUR" {
		t.Errorf("expected upper-cased currency, got %s", cfg.Catalog.DisplayCurrency)
	}
	if cfg.Firestore.ProjectID != "shop-prod" {
		t.Errorf("expected firestore project to default to pubsub project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Session.SigningKey != "signing-key" {
		t.Errorf("expected resolved signing key, got %s", cfg.Session.SigningKey)
	}
	if !cfg.Session.Secure {
		t.Errorf("expected secure cookie")
	}
	if cfg.Session.CartIdleTTL != 30*time.Minute {
		t.Errorf("unexpected cart ttl %s", cfg.Session.CartIdleTTL)
	}
}

func TestLoadValidationError(t *testing.T) {
	env := map[string]string{
		"STOREFRONT_ENVIRONMENT":       "prod",
		"STOREFRONT_API_BASE_URL":      "not a url",
		"STOREFRONT_STORAGE_BACKEND":   "redis",
		"STOREFRONT_PRICE_UPPER_BOUND": "-1",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := []string{"API.BaseURL", "Catalog.PriceUpperBound", "Session.SigningKey", "Storage.Backend"}
	if !reflect.DeepEqual(vErr.Fields(), want) {
		t.Fatalf("expected fields %v, got %v", want, vErr.Fields())
	}
}

func TestLoadSecretErrorWithoutResolver(t *testing.T) {
	env := map[string]string{
		"STOREFRONT_API_BASE_URL":        "https://api.example.com/",
		"STOREFRONT_SESSION_SIGNING_KEY": "secret://session/key",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var sErr *SecretError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected SecretError, got %v", err)
	}
	if sErr.Ref != "secret://session/key" {
		t.Fatalf("unexpected ref %s", sErr.Ref)
	}
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\nSTOREFRONT_API_BASE_URL=\"https://dotenv.example.com/\"\nexport STOREFRONT_SERVER_PORT=7070\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(path), WithEnvMap(map[string]string{
		"STOREFRONT_SERVER_PORT": "6060",
	}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.BaseURL != "https://dotenv.example.com/" {
		t.Errorf("expected base url from dotenv, got %s", cfg.API.BaseURL)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("expected env map to override dotenv, got %s", cfg.Server.Port)
	}

	values, err := EnvironmentValues(WithoutSystemEnv(), WithEnvFile(path))
	if err != nil {
		t.Fatalf("EnvironmentValues: %v", err)
	}
	if values["STOREFRONT_SERVER_PORT"] != "7070" {
		t.Errorf("expected dotenv port, got %q", values["STOREFRONT_SERVER_PORT"])
	}
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	env := map[string]string{"STOREFRONT_API_BASE_URL": "https://api.example.com/"}
	if _, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(filepath.Join(t.TempDir(), "missing.env"))); err != nil {
		t.Fatalf("expected missing dotenv to be ignored, got %v", err)
	}
}
