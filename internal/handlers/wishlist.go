package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/domain"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/httpx"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/wishlist"
)

// WishlistHandlers exposes the visitor's durable wishlist.
type WishlistHandlers struct {
	visitors *Visitors
	products ProductLookup
	images   CardImages
}

// NewWishlistHandlers constructs the wishlist handlers. Items are resolved through products so the
// stored title, price and image always come from the catalogue.
func NewWishlistHandlers(visitors *Visitors, products ProductLookup, images CardImages) *WishlistHandlers {
	return &WishlistHandlers{visitors: visitors, products: products, images: images}
}

// Routes wires the /wishlist endpoints.
func (h *WishlistHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/wishlist", h.list)
	r.Post("/wishlist/items", h.add)
	r.Delete("/wishlist/items/{productID}", h.remove)
}

type wishlistResponse struct {
	Items []domain.WishlistItem `json:"items"`
}

func (h *WishlistHandlers) list(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, wishlistResponse{Items: store.Get(r.Context())})
}

func (h *WishlistHandlers) add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}
	if h.products == nil {
		unavailable(w, r, "products")
		return
	}
	form, err := httpx.DecodeForm(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is invalid", http.StatusBadRequest))
		return
	}
	id, err := strconv.Atoi(strings.TrimSpace(form.Get("id")))
	if err != nil || id <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_input", "a product id is required", http.StatusBadRequest))
		return
	}

	product, err := h.products.Product(ctx, id)
	if err != nil {
		writeServiceError(ctx, w, err, "Failed to add the product to the wishlist.")
		return
	}
	item := domain.WishlistItem{ID: product.ID, Title: product.Title, Price: product.Price}
	if h.images != nil {
		item.Image = h.images.First(product.Images)
	}

	items, err := store.Add(ctx, item)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("storage_failed", "Failed to update the wishlist.", http.StatusInternalServerError))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, wishlistResponse{Items: items})
}

func (h *WishlistHandlers) remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	items, err := store.Remove(ctx, id)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("storage_failed", "Failed to update the wishlist.", http.StatusInternalServerError))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, wishlistResponse{Items: items})
}

func (h *WishlistHandlers) storeFor(w http.ResponseWriter, r *http.Request) (*wishlist.Store, bool) {
	visitorID, ok := requireVisitor(w, r)
	if !ok {
		return nil, false
	}
	store := h.visitors.Wishlist(visitorID)
	if store == nil {
		unavailable(w, r, "wishlist")
		return nil, false
	}
	return store, true
}
