// Package session identifies anonymous visitors with a signed cookie and holds their in-memory
// carts.
package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/requestctx"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/storage"
)

const minKeyLength = 16

// ErrWeakKey is returned when the signing key is shorter than 16 bytes.
var ErrWeakKey = errors.New("session: signing key must be at least 16 bytes")

// Codec signs and verifies visitor ids.
type Codec struct {
	key []byte
}

// NewCodec builds a Codec for key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) < minKeyLength {
		return nil, ErrWeakKey
	}
	return &Codec{key: append([]byte(nil), key...)}, nil
}

// RandomKey returns a fresh 32 byte key for processes without a configured one.
func RandomKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Encode returns "<id>.<signature>".
func (c *Codec) Encode(id string) string {
	return id + "." + c.sign(id)
}

// Decode verifies value and returns the visitor id it carries.
func (c *Codec) Decode(value string) (string, bool) {
	id, sig, ok := strings.Cut(strings.TrimSpace(value), ".")
	if !ok || id == "" || sig == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(c.sign(id))) {
		return "", false
	}
	if _, err := ulid.ParseStrict(id); err != nil {
		return "", false
	}
	return id, true
}

func (c *Codec) sign(id string) string {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Options configures the visitor middleware.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	NewID      func() string
}

// Middleware resolves the visitor id from the signed cookie, issuing a new id when the cookie is
// missing or fails verification, and stores it on the request context.
func Middleware(codec *Codec, opts Options) func(http.Handler) http.Handler {
	name := strings.TrimSpace(opts.CookieName)
	if name == "" {
		name = "shopsmart_session"
	}
	newID := opts.NewID
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if cookie, err := r.Cookie(name); err == nil {
				id, _ = codec.Decode(cookie.Value)
			}
			if id == "" {
				id = newID()
				cookie := &http.Cookie{
					Name:     name,
					Value:    codec.Encode(id),
					Path:     "/",
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				}
				if opts.TTL > 0 {
					cookie.MaxAge = int(opts.TTL / time.Second)
				}
				http.SetCookie(w, cookie)
				requestctx.Logger(r.Context()).Debug("visitor issued")
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithVisitorID(r.Context(), id)))
		})
	}
}

// VisitorStore scopes backend to one visitor.
func VisitorStore(backend storage.Store, visitorID string) storage.Store {
	return storage.Namespaced(backend, "visitors/"+visitorID)
}
