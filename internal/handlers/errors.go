package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/apiclient"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/httpx"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/services"
)

const upstreamRetryAfter = 5 * time.Second

// writeServiceError maps service sentinels onto HTTP statuses. The visitor-facing message of the
// error is preserved; fallback is used when it carries none.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	if err == nil {
		return
	}
	message := services.Message(err, fallback)

	var fields services.FieldErrors
	if errors.As(err, &fields) {
		httpx.WriteError(ctx, w, httpx.NewFieldError(message, fields))
		return
	}

	switch {
	case errors.Is(err, services.ErrAccountInvalidInput), errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_input", message, http.StatusBadRequest))
	case errors.Is(err, services.ErrAccountUnauthenticated), errors.Is(err, services.ErrCheckoutUnauthenticated),
		errors.Is(err, apiclient.ErrUnauthorized):
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", message, http.StatusUnauthorized))
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", message, http.StatusConflict))
	case errors.Is(err, services.ErrProductNotFound), errors.Is(err, apiclient.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", message, http.StatusNotFound))
	case errors.Is(err, services.ErrAccountUnavailable), errors.Is(err, services.ErrProductUnavailable),
		errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("upstream_unavailable", message, http.StatusBadGateway).
			WithRetryAfter(upstreamRetryAfter))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal", message, http.StatusInternalServerError))
	}
}
