package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type routerConfig struct {
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers

	catalog  RouteRegistrar
	cart     RouteRegistrar
	wishlist RouteRegistrar
	account  RouteRegistrar
	checkout RouteRegistrar
	content  RouteRegistrar

	visitorMiddlewares []func(http.Handler) http.Handler
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	defaultTimeout    = 30 * time.Second
	errorNotFoundCode = "route_not_found"
)

// NewRouter constructs the chi router with shared middleware and the storefront page groups.
// Page groups run behind the visitor middlewares; health endpoints do not.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(defaultTimeout),
		},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()

	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(errorNotFoundCode, fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Group(func(pages chi.Router) {
		for _, mw := range cfg.visitorMiddlewares {
			if mw != nil {
				pages.Use(mw)
			}
		}
		for _, registrar := range []RouteRegistrar{cfg.catalog, cfg.cart, cfg.wishlist, cfg.account, cfg.checkout, cfg.content} {
			if registrar != nil {
				registrar(pages)
			}
		}
	})

	return r
}

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithVisitorMiddlewares configures middlewares applied to every page route.
func WithVisitorMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.visitorMiddlewares = append(cfg.visitorMiddlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers used for /healthz and /readyz endpoints.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithCatalogRoutes configures the registrar for home, shop and product pages.
func WithCatalogRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.catalog = reg
	}
}

// WithCartRoutes configures the registrar for cart pages.
func WithCartRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.cart = reg
	}
}

// WithWishlistRoutes configures the registrar for wishlist pages.
func WithWishlistRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.wishlist = reg
	}
}

// WithAccountRoutes configures the registrar for login, registration and dashboard pages.
func WithAccountRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.account = reg
	}
}

// WithCheckoutRoutes configures the registrar for checkout pages.
func WithCheckoutRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.checkout = reg
	}
}

// WithContentRoutes configures the registrar for static content pages.
func WithContentRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.content = reg
	}
}
