// Package listing builds the product listing page: it fetches catalogue data, tolerates partial
// upstream failure and applies the visitor's filter selection.
package listing

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/domain"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/filter"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/observability"
)

// Inline messages shown when a fetch fails.
const (
	MsgCategoriesFailed = "Failed to load categories. Please try again later."
	MsgProductsFailed   = "Failed to load products. Please try again later."
)

// Catalog fetches raw catalogue data.
type Catalog interface {
	Products(ctx context.Context, categoryID string) ([]domain.Product, error)
	Categories(ctx context.Context) ([]domain.Category, error)
}

// ImageResolver picks the card image for a product.
type ImageResolver interface {
	First(field domain.ImageField) string
}

// PriceFormatter renders a USD price in a display currency.
type PriceFormatter interface {
	Format(amount decimal.Decimal, code string) (string, error)
}

// ControllerDeps wires a Controller.
type ControllerDeps struct {
	Catalog         Catalog
	Images          ImageResolver
	Prices          PriceFormatter
	Metrics         *observability.StorefrontMetrics
	Clock           func() time.Time
	Logger          func(context.Context, string, map[string]any)
	PriceUpperBound float64
	Locale          language.Tag
	Currency        string
}

// Request describes one listing load.
type Request struct {
	// Scope identifies the visitor whose loads are sequenced against each other.
	Scope string
	// CategoryID is the route category, if any. It overrides the category query parameter.
	CategoryID string
	// Path is the page path used for the canonical URL.
	Path string
	// Query is the serialised filter state.
	Query url.Values
	// CurrentURL is the address the visitor currently sees.
	CurrentURL string
	// Currency overrides the default display currency.
	Currency string
}

// Card is one product tile.
type Card struct {
	ID         int             `json:"id"`
	Title      string          `json:"title"`
	Price      decimal.Decimal `json:"price"`
	PriceLabel string          `json:"priceLabel"`
	Image      string          `json:"image"`
	CategoryID string          `json:"categoryId"`
	Category   string          `json:"category"`
}

// View is the listing view model.
type View struct {
	Products           []Card             `json:"products"`
	Categories         []domain.Category  `json:"categories"`
	State              domain.FilterState `json:"state"`
	CategoriesDisabled bool               `json:"categoriesDisabled"`
	Error              string             `json:"error,omitempty"`
	Loading            bool               `json:"loading"`
	Stale              bool               `json:"-"`
	CanonicalURL       string             `json:"canonicalUrl"`
	// ReplaceURL is set when the address bar should be rewritten to CanonicalURL.
	ReplaceURL string `json:"-"`
	Generation uint64 `json:"generation"`
}

// Controller loads listings. It is safe for concurrent use.
type Controller struct {
	catalog  Catalog
	images   ImageResolver
	prices   PriceFormatter
	metrics  *observability.StorefrontMetrics
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
	upper    float64
	locale   language.Tag
	currency string

	seq *sequencer
}

// NewController validates deps.
func NewController(deps ControllerDeps) (*Controller, error) {
	if deps.Catalog == nil {
		return nil, errors.New("listing: catalog is required")
	}
	if deps.Images == nil {
		return nil, errors.New("listing: image resolver is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	upper := deps.PriceUpperBound
	if upper <= 0 {
		upper = filter.DefaultPriceUpperBound
	}
	return &Controller{
		catalog:  deps.Catalog,
		images:   deps.Images,
		prices:   deps.Prices,
		metrics:  deps.Metrics,
		clock:    clock,
		logger:   logger,
		upper:    upper,
		locale:   deps.Locale,
		currency: strings.ToUpper(strings.TrimSpace(deps.Currency)),
		seq:      newSequencer(),
	}, nil
}

// Load fetches categories and products in parallel and returns the filtered, sorted view. Fetch
// failures become inline messages; Load never returns an error. A response that resolves after a
// newer load for the same scope has already been applied is marked Stale.
func (c *Controller) Load(ctx context.Context, req Request) View {
	gen := c.seq.begin(req.Scope, c.clock())

	state := filter.DecodeQuery(req.Query, c.upper)
	routeCategory := strings.TrimSpace(req.CategoryID)
	if routeCategory != "" {
		state.CategoryID = &routeCategory
	}

	var (
		wg            sync.WaitGroup
		products      []domain.Product
		categories    []domain.Category
		productErr    error
		categoriesErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		products, productErr = c.catalog.Products(ctx, routeCategory)
	}()
	go func() {
		defer wg.Done()
		categories, categoriesErr = c.catalog.Categories(ctx)
	}()
	wg.Wait()

	view := View{
		Products:   []Card{},
		Categories: []domain.Category{},
		State:      state,
		Generation: gen,
	}

	if categoriesErr != nil {
		c.metrics.ListingFailure(ctx, "categories")
		c.logger(ctx, "listing.categories_failed", map[string]any{"error": categoriesErr.Error()})
		view.CategoriesDisabled = true
		view.Error = MsgCategoriesFailed
	} else {
		view.Categories = filter.DeriveCategories(categories)
	}

	if productErr != nil {
		c.metrics.ListingFailure(ctx, "products")
		c.logger(ctx, "listing.products_failed", map[string]any{"error": productErr.Error()})
		view.Error = MsgProductsFailed
	} else {
		displayed := filter.Apply(products, state, filter.SortOptions{Locale: c.locale, Now: c.clock()})
		view.Products = c.cards(ctx, displayed, req.Currency)
	}

	path := req.Path
	if path == "" {
		path = "/shop"
	}
	urlSync := filter.NewURLSync(c.upper)
	urlSync.Observe(req.CurrentURL)
	canonical, changed := urlSync.Commit(path, stateForURL(state, routeCategory))
	view.CanonicalURL = canonical
	if changed {
		view.ReplaceURL = canonical
	}

	stale, pending := c.seq.finish(req.Scope, gen, c.clock())
	if stale {
		c.metrics.StaleResponse(ctx)
		c.logger(ctx, "listing.stale_response", map[string]any{"generation": gen})
	}
	view.Stale = stale
	view.Loading = pending
	return view
}

// Forget drops the sequencing state of scope.
func (c *Controller) Forget(scope string) {
	c.seq.forget(scope)
}

// SweepIdle drops the sequencing state of every scope not seen since cutoff and returns how many
// were removed.
func (c *Controller) SweepIdle(ctx context.Context, cutoff time.Time) int {
	n := c.seq.sweep(cutoff)
	if n > 0 {
		c.logger(ctx, "listing.scopes_swept", map[string]any{"evicted": n})
	}
	return n
}

// Scopes returns the number of scopes with sequencing state.
func (c *Controller) Scopes() int {
	return c.seq.len()
}

func (c *Controller) cards(ctx context.Context, products []domain.Product, currency string) []Card {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = c.currency
	}
	cards := make([]Card, 0, len(products))
	for _, product := range products {
		categoryID := product.Category.ID.String()
		cards = append(cards, Card{
			ID:         product.ID,
			Title:      product.Title,
			Price:      product.Price,
			PriceLabel: c.priceLabel(ctx, product.Price, code),
			Image:      c.images.First(product.Images),
			CategoryID: categoryID,
			Category:   filter.CategoryName(categoryID),
		})
	}
	return cards
}

func (c *Controller) priceLabel(ctx context.Context, price decimal.Decimal, code string) string {
	fallback := "$" + price.StringFixed(2)
	if c.prices == nil || code == "" {
		return fallback
	}
	label, err := c.prices.Format(price, code)
	if err != nil {
		c.logger(ctx, "listing.price_format_failed", map[string]any{"currency": code, "error": err.Error()})
		return fallback
	}
	return label
}

// stateForURL removes the route category from the query encoding; it already lives in the path.
func stateForURL(state domain.FilterState, routeCategory string) domain.FilterState {
	if routeCategory != "" {
		state.CategoryID = nil
	}
	return state
}

type sequencer struct {
	mu       sync.Mutex
	issued   map[string]uint64
	applied  map[string]uint64
	lastSeen map[string]time.Time
}

func newSequencer() *sequencer {
	return &sequencer{
		issued:   map[string]uint64{},
		applied:  map[string]uint64{},
		lastSeen: map[string]time.Time{},
	}
}

func (s *sequencer) begin(scope string, now time.Time) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[scope]++
	s.lastSeen[scope] = now
	return s.issued[scope]
}

// finish reports whether gen lost to an already applied newer load, and whether a newer load is
// still in flight.
func (s *sequencer) finish(scope string, gen uint64, now time.Time) (stale, pending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen[scope] = now
	if gen < s.applied[scope] {
		return true, false
	}
	s.applied[scope] = gen
	if s.issued[scope] < gen {
		s.issued[scope] = gen
	}
	return false, s.issued[scope] > gen
}

func (s *sequencer) forget(scope string) {
	s.mu.Lock()
	delete(s.issued, scope)
	delete(s.applied, scope)
	delete(s.lastSeen, scope)
	s.mu.Unlock()
}

func (s *sequencer) sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for scope, seen := range s.lastSeen {
		if seen.Before(cutoff) {
			delete(s.issued, scope)
			delete(s.applied, scope)
			delete(s.lastSeen, scope)
			n++
		}
	}
	return n
}

func (s *sequencer) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lastSeen)
}
