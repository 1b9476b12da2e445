package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/domain"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/filter"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/listing"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/httpx"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/requestctx"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/services"
)

const (
	featuredLimit = 4

	headerReplaceURL = "HX-Replace-Url"
	headerCurrentURL = "HX-Current-URL"
)

// ListingLoader builds listing views.
type ListingLoader interface {
	Load(ctx context.Context, req listing.Request) listing.View
}

// FeaturedSource returns the full product catalogue.
type FeaturedSource interface {
	Products(ctx context.Context, categoryID string) ([]domain.Product, error)
}

// CardImages picks the display image of a product.
type CardImages interface {
	First(field domain.ImageField) string
}

// CatalogHandlers serves the home, shop and product pages.
type CatalogHandlers struct {
	listing  ListingLoader
	products services.ProductService
	featured FeaturedSource
	images   CardImages
	visitors *Visitors
}

// CatalogHandlersDeps wires CatalogHandlers.
type CatalogHandlersDeps struct {
	Listing  ListingLoader
	Products services.ProductService
	Featured FeaturedSource
	Images   CardImages
	Visitors *Visitors
}

// NewCatalogHandlers constructs the catalogue handlers.
func NewCatalogHandlers(deps CatalogHandlersDeps) *CatalogHandlers {
	return &CatalogHandlers{
		listing:  deps.Listing,
		products: deps.Products,
		featured: deps.Featured,
		images:   deps.Images,
		visitors: deps.Visitors,
	}
}

// Routes wires the catalogue pages.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.home)
	r.Get("/shop", h.shop)
	r.Get("/shop/categories/{categoryID}", h.shop)
	r.Get("/product/{productID}", h.product)
}

type categoryTile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
	Href  string `json:"href"`
}

type featuredProduct struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Href        string          `json:"href"`
}

type homeResponse struct {
	Featured   []featuredProduct `json:"featured"`
	Categories []categoryTile    `json:"categories"`
	Error      string            `json:"error,omitempty"`
}

var homeCategoryIDs = []string{"1", "2", "3", "4", domain.MiscCategoryID}

func (h *CatalogHandlers) home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := homeResponse{
		Featured:   []featuredProduct{},
		Categories: make([]categoryTile, 0, len(homeCategoryIDs)),
	}
	for _, id := range homeCategoryIDs {
		name := filter.CategoryName(id)
		resp.Categories = append(resp.Categories, categoryTile{
			ID:    id,
			Name:  name,
			Image: "/categories/" + strings.ToLower(name) + ".jpg",
			Href:  "/shop/categories/" + id,
		})
	}

	if h.featured != nil {
		products, err := h.featured.Products(ctx, "")
		if err != nil {
			requestctx.Logger(ctx).Sugar().Warnw("featured products unavailable", "error", err)
			resp.Error = listing.MsgProductsFailed
		}
		for i, p := range products {
			if i == featuredLimit {
				break
			}
			resp.Featured = append(resp.Featured, featuredProduct{
				ID:          p.ID,
				Title:       p.Title,
				Description: p.Description,
				Price:       p.Price,
				Image:       h.firstImage(p.Images),
				Href:        "/product/" + strconv.Itoa(p.ID),
			})
		}
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *CatalogHandlers) firstImage(field domain.ImageField) string {
	if h.images == nil {
		return ""
	}
	return h.images.First(field)
}

func (h *CatalogHandlers) shop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.listing == nil {
		unavailable(w, r, "listing")
		return
	}

	current := strings.TrimSpace(r.Header.Get(headerCurrentURL))
	if current == "" {
		current = r.URL.RequestURI()
	}
	query := r.URL.Query()
	currency := query.Get("currency")
	query.Del("currency")

	view := h.listing.Load(ctx, listing.Request{
		Scope:      requestctx.VisitorID(ctx),
		CategoryID: chi.URLParam(r, "categoryID"),
		Path:       r.URL.Path,
		Query:      query,
		CurrentURL: current,
		Currency:   currency,
	})
	if view.Stale {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if view.ReplaceURL != "" {
		w.Header().Set(headerReplaceURL, view.ReplaceURL)
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

type productResponse struct {
	services.ProductDetail
	InWishlist bool `json:"inWishlist"`
}

func (h *CatalogHandlers) product(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.products == nil {
		unavailable(w, r, "products")
		return
	}
	id, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "productID")))
	if err != nil || id <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "Product not found.", http.StatusNotFound))
		return
	}

	detail, err := h.products.Detail(ctx, id)
	if err != nil {
		writeServiceError(ctx, w, err, "Failed to load product details.")
		return
	}

	resp := productResponse{ProductDetail: detail}
	if visitorID := requestctx.VisitorID(ctx); visitorID != "" {
		if list := h.visitors.Wishlist(visitorID); list != nil {
			resp.InWishlist = list.Contains(ctx, id)
		}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
