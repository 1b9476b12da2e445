package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/auth"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/cart"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/httpx"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/requestctx"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/session"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/storage"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/wishlist"
)

// Visitors resolves the per-visitor state behind a request: durable storage, the in-memory cart
// and the token session.
type Visitors struct {
	backend storage.Store
	carts   *session.CartRegistry
	auth    *auth.Manager
	logger  func(context.Context, string, map[string]any)
}

// VisitorsDeps wires Visitors.
type VisitorsDeps struct {
	Storage storage.Store
	Carts   *session.CartRegistry
	Auth    *auth.Manager
	Logger  func(context.Context, string, map[string]any)
}

// NewVisitors constructs the resolver. Missing components make the matching accessor return nil.
func NewVisitors(deps VisitorsDeps) *Visitors {
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &Visitors{
		backend: deps.Storage,
		carts:   deps.Carts,
		auth:    deps.Auth,
		logger:  logger,
	}
}

// Store returns the visitor's namespaced storage.
func (v *Visitors) Store(visitorID string) storage.Store {
	if v == nil || v.backend == nil {
		return nil
	}
	return session.VisitorStore(v.backend, visitorID)
}

// Cart returns the visitor's cart, creating it on first use.
func (v *Visitors) Cart(ctx context.Context, visitorID string) *cart.Store {
	if v == nil || v.carts == nil {
		return nil
	}
	return v.carts.Cart(ctx, visitorID)
}

// Session returns the visitor's token session.
func (v *Visitors) Session(visitorID string) *auth.Session {
	store := v.Store(visitorID)
	if store == nil || v.auth == nil {
		return nil
	}
	return v.auth.Session(store)
}

// Wishlist returns the visitor's wishlist.
func (v *Visitors) Wishlist(visitorID string) *wishlist.Store {
	store := v.Store(visitorID)
	if store == nil {
		return nil
	}
	return wishlist.NewStore(store, v.logger)
}

// requireVisitor reads the visitor id set by the session middleware.
func requireVisitor(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(requestctx.VisitorID(r.Context()))
	if id == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("visitor_required", "visitor session is missing", http.StatusBadRequest))
		return "", false
	}
	return id, true
}

func unavailable(w http.ResponseWriter, r *http.Request, component string) {
	httpx.WriteError(r.Context(), w, httpx.NewError(component+"_unavailable", component+" is unavailable", http.StatusServiceUnavailable))
}
