package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/httpx"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/services"
)

// CheckoutHandlers serves the order summary and places orders.
type CheckoutHandlers struct {
	visitors *Visitors
	checkout services.CheckoutService
	prices   PriceConverter
}

// NewCheckoutHandlers constructs the checkout handlers.
func NewCheckoutHandlers(visitors *Visitors, checkout services.CheckoutService, prices PriceConverter) *CheckoutHandlers {
	return &CheckoutHandlers{visitors: visitors, checkout: checkout, prices: prices}
}

// Routes wires the /checkout endpoints.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/checkout", h.summary)
	r.Post("/checkout", h.placeOrder)
}

type checkoutSummaryResponse struct {
	cartResponse
	Authenticated  bool   `json:"authenticated"`
	TransferMethod string `json:"transferMethod"`
}

func (h *CheckoutHandlers) summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	visitorID, ok := requireVisitor(w, r)
	if !ok {
		return
	}
	store := h.visitors.Cart(ctx, visitorID)
	if store == nil {
		unavailable(w, r, "cart")
		return
	}
	resp := checkoutSummaryResponse{
		cartResponse:   buildCartResponse(store.Snapshot(), h.prices),
		TransferMethod: services.TransferMethod,
	}
	if sess := h.visitors.Session(visitorID); sess != nil {
		resp.Authenticated = sess.IsAuthenticated(ctx)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *CheckoutHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		unavailable(w, r, "checkout")
		return
	}
	visitorID, ok := requireVisitor(w, r)
	if !ok {
		return
	}
	store := h.visitors.Cart(ctx, visitorID)
	sess := h.visitors.Session(visitorID)
	if store == nil || sess == nil {
		unavailable(w, r, "checkout")
		return
	}
	form, err := httpx.DecodeForm(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is invalid", http.StatusBadRequest))
		return
	}

	confirmation, err := h.checkout.PlaceOrder(ctx, services.PlaceOrderCommand{
		VisitorID: visitorID,
		Session:   sess,
		Cart:      store,
		Name:      form.Get("name"),
		Email:     form.Get("email"),
		Address:   form.Get("address"),
	})
	if err != nil {
		writeServiceError(ctx, w, err, MsgLoginRequired)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, confirmation)
}
