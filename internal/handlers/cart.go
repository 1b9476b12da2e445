package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/cart"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/domain"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/httpx"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/observability"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/services"
)

// PriceConverter renders USD amounts in the supported display currencies.
type PriceConverter interface {
	Currencies() []string
	Format(amount decimal.Decimal, code string) (string, error)
}

// ProductLookup fetches one product by id.
type ProductLookup interface {
	Product(ctx context.Context, id int) (domain.Product, error)
}

// CartHandlers exposes the visitor's in-memory cart.
type CartHandlers struct {
	visitors *Visitors
	products ProductLookup
	prices   PriceConverter
	metrics  *observability.StorefrontMetrics
}

// CartHandlersDeps wires CartHandlers.
type CartHandlersDeps struct {
	Visitors *Visitors
	Products ProductLookup
	Prices   PriceConverter
	Metrics  *observability.StorefrontMetrics
}

// NewCartHandlers constructs the cart handlers.
func NewCartHandlers(deps CartHandlersDeps) *CartHandlers {
	return &CartHandlers{
		visitors: deps.Visitors,
		products: deps.Products,
		prices:   deps.Prices,
		metrics:  deps.Metrics,
	}
}

// Routes wires the /cart endpoints.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/cart", h.getCart)
	r.Delete("/cart", h.clearCart)
	r.Post("/cart/items", h.addItem)
	r.Patch("/cart/items/{productID}", h.updateItem)
	r.Delete("/cart/items/{productID}", h.removeItem)
}

type priceConversion struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

type cartResponse struct {
	Items       []domain.CartItem `json:"items"`
	Count       int               `json:"count"`
	Total       string            `json:"total"`
	Conversions []priceConversion `json:"conversions,omitempty"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCartResponse(store.Snapshot(), h.prices))
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store, ok := h.cartFor(w, r)
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
		writeServiceError(ctx, w, err, "Failed to add the product to the cart.")
		return
	}
	store.Add(product)
	h.metrics.CartMutation(ctx, "add")

	httpx.WriteJSON(w, http.StatusOK, buildCartResponse(store.Snapshot(), h.prices))
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	form, err := httpx.DecodeForm(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is invalid", http.StatusBadRequest))
		return
	}
	quantity, err := strconv.ParseFloat(strings.TrimSpace(form.Get("quantity")), 64)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_input", "quantity must be a number", http.StatusBadRequest))
		return
	}

	if !store.Update(id, quantity) {
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "item is not in the cart", http.StatusNotFound))
		return
	}
	h.metrics.CartMutation(ctx, "update")

	httpx.WriteJSON(w, http.StatusOK, buildCartResponse(store.Snapshot(), h.prices))
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	if store.Remove(id) {
		h.metrics.CartMutation(ctx, "remove")
	}
	httpx.WriteJSON(w, http.StatusOK, buildCartResponse(store.Snapshot(), h.prices))
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	store.Reset()
	h.metrics.CartMutation(r.Context(), "clear")
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandlers) cartFor(w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	visitorID, ok := requireVisitor(w, r)
	if !ok {
		return nil, false
	}
	store := h.visitors.Cart(r.Context(), visitorID)
	if store == nil {
		unavailable(w, r, "cart")
		return nil, false
	}
	return store, true
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "productID")))
	if err != nil || id <= 0 {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_input", "product id must be a positive integer", http.StatusBadRequest))
		return 0, false
	}
	return id, true
}

func buildCartResponse(snapshot services.CartSnapshot, prices PriceConverter) cartResponse {
	items := snapshot.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	return cartResponse{
		Items:       items,
		Count:       snapshot.Count,
		Total:       snapshot.DisplayTotal(),
		Conversions: conversions(prices, snapshot.Total),
	}
}

func conversions(prices PriceConverter, amount decimal.Decimal) []priceConversion {
	if prices == nil {
		return nil
	}
	codes := prices.Currencies()
	out := make([]priceConversion, 0, len(codes))
	for _, code := range codes {
		formatted, err := prices.Format(amount, code)
		if err != nil {
			continue
		}
		out = append(out, priceConversion{Currency: code, Amount: formatted})
	}
	return out
}
