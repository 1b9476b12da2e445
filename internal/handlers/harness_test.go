package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/apiclient"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/auth"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/content"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/domain"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/images"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/listing"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/requestctx"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/pricing"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/services"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/session"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/storage"
)

const headerTestVisitor = "X-Test-Visitor"

type fakeAPI struct {
	mu sync.Mutex

	products      []domain.Product
	productsErr   error
	categories    []domain.Category
	categoriesErr error

	tokens   apiclient.Tokens
	loginErr error
	fetchFn  func(ctx context.Context, method, path, token string, body, out any) error

	registerFn func(ctx context.Context, req apiclient.RegisterRequest) (domain.UserProfile, error)
	roles      []string
	rolesErr   error
}

func (f *fakeAPI) Products(_ context.Context, categoryID string) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productsErr != nil {
		return nil, f.productsErr
	}
	out := make([]domain.Product, 0, len(f.products))
	for _, p := range f.products {
		if categoryID == "" || p.Category.ID.String() == categoryID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeAPI) Product(_ context.Context, id int) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, &apiclient.APIError{Status: http.StatusNotFound}
}

func (f *fakeAPI) Categories(context.Context) ([]domain.Category, error) {
	if f.categoriesErr != nil {
		return nil, f.categoriesErr
	}
	return f.categories, nil
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (apiclient.Tokens, error) {
	if f.loginErr != nil {
		return apiclient.Tokens{}, f.loginErr
	}
	return f.tokens, nil
}

func (f *fakeAPI) Fetch(ctx context.Context, method, path, token string, body, out any) error {
	if f.fetchFn == nil {
		return errors.New("fetch not stubbed")
	}
	return f.fetchFn(ctx, method, path, token, body, out)
}

func (f *fakeAPI) Register(ctx context.Context, req apiclient.RegisterRequest) (domain.UserProfile, error) {
	if f.registerFn == nil {
		return domain.UserProfile{}, errors.New("register not stubbed")
	}
	return f.registerFn(ctx, req)
}

func (f *fakeAPI) Roles(context.Context) ([]string, error) {
	return f.roles, f.rolesErr
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []services.OrderPlacedEvent
	err    error
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, event services.OrderPlacedEvent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, event)
	return "msg-1", nil
}

type harness struct {
	api       *fakeAPI
	backend   storage.Store
	carts     *session.CartRegistry
	visitors  *Visitors
	publisher *recordingPublisher
	router    chi.Router
}

func product(id int, title, price, categoryID string) domain.Product {
	return domain.Product{
		ID:       id,
		Title:    title,
		Price:    decimal.RequireFromString(price),
		Images:   domain.ImageList("https://i.imgur.com/" + strings.ToLower(strings.ReplaceAll(title, " ", "-")) + ".jpeg"),
		Category: domain.CategoryRef{ID: domain.FlexibleID(categoryID), Name: "cat-" + categoryID},
	}
}

func sampleProducts() []domain.Product {
	return []domain.Product{
		product(1, "Grey Hoodie", "109.99", "1"),
		product(2, "Toaster", "19.99", "2"),
		product(3, "Desk Chair", "49.50", "3"),
		product(4, "Black Shoes", "34.99", "4"),
		product(5, "Wireless Mouse", "12.00", "2"),
		product(6, "Mystery Box", "5.00", "5"),
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := &fakeAPI{
		products: sampleProducts(),
		categories: []domain.Category{
			{ID: "1", Name: "Clothes"},
			{ID: "2", Name: "Electronics"},
		},
		roles: []string{"customer", "admin"},
	}
	resolver := images.NewResolver()
	backend := storage.NewMemoryStore()
	carts := session.NewCartRegistry(session.RegistryOptions{Images: resolver})
	manager, err := auth.NewManager(auth.ManagerDeps{API: api})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	visitors := NewVisitors(VisitorsDeps{Storage: backend, Carts: carts, Auth: manager})

	controller, err := listing.NewController(listing.ControllerDeps{Catalog: api, Images: resolver})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	productSvc, err := services.NewProductService(services.ProductServiceDeps{Catalog: api, Images: resolver})
	if err != nil {
		t.Fatalf("NewProductService: %v", err)
	}
	accountSvc, err := services.NewAccountService(services.AccountServiceDeps{API: api})
	if err != nil {
		t.Fatalf("NewAccountService: %v", err)
	}
	publisher := &recordingPublisher{}
	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{Events: publisher})
	if err != nil {
		t.Fatalf("NewCheckoutService: %v", err)
	}
	prices := pricing.NewConverter()

	catalog := NewCatalogHandlers(CatalogHandlersDeps{
		Listing:  controller,
		Products: productSvc,
		Featured: api,
		Images:   resolver,
		Visitors: visitors,
	})
	cartHandlers := NewCartHandlers(CartHandlersDeps{Visitors: visitors, Products: api, Prices: prices})

	router := NewRouter(
		WithVisitorMiddlewares(testVisitorMiddleware),
		WithCatalogRoutes(catalog.Routes),
		WithCartRoutes(cartHandlers.Routes),
		WithWishlistRoutes(NewWishlistHandlers(visitors, api, resolver).Routes),
		WithAccountRoutes(NewAccountHandlers(visitors, accountSvc).Routes),
		WithCheckoutRoutes(NewCheckoutHandlers(visitors, checkoutSvc, prices).Routes),
		WithContentRoutes(NewContentHandlers(content.NewLibrary()).Routes),
	)

	return &harness{
		api:       api,
		backend:   backend,
		carts:     carts,
		visitors:  visitors,
		publisher: publisher,
		router:    router,
	}
}

func testVisitorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(headerTestVisitor); id != "" {
			r = r.WithContext(requestctx.WithVisitorID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (h *harness) do(t *testing.T, method, target, visitor string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if visitor != "" {
		req.Header.Set(headerTestVisitor, visitor)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func (h *harness) postForm(t *testing.T, method, target, visitor, form string) *httptest.ResponseRecorder {
	t.Helper()
	return h.do(t, method, target, visitor, strings.NewReader(form), "application/x-www-form-urlencoded")
}

func (h *harness) postJSON(t *testing.T, method, target, visitor, body string) *httptest.ResponseRecorder {
	t.Helper()
	return h.do(t, method, target, visitor, strings.NewReader(body), "application/json")
}

func validToken(t *testing.T) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func (h *harness) login(t *testing.T, visitor string) {
	t.Helper()
	h.api.tokens = apiclient.Tokens{AccessToken: validToken(t), RefreshToken: "refresh"}
	rr := h.postForm(t, http.MethodPost, "/login", visitor, "email=jane%40example.com&password=secret1")
	if rr.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}
