package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/content"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/httpx"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/requestctx"
)

// ContentPages loads rendered markdown pages.
type ContentPages interface {
	Page(ctx context.Context, slug string) (content.Page, error)
}

// ContentHandlers serves the static informational pages as HTML.
type ContentHandlers struct {
	pages ContentPages
}

// NewContentHandlers constructs the content handlers.
func NewContentHandlers(pages ContentPages) *ContentHandlers {
	return &ContentHandlers{pages: pages}
}

// Routes wires the content pages.
func (h *ContentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/shipping-policy", h.page(content.SlugShippingPolicy))
	r.Get("/aboutus", h.page(content.SlugAboutUs))
}

func (h *ContentHandlers) page(slug string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if h.pages == nil {
			unavailable(w, r, "content")
			return
		}
		page, err := h.pages.Page(ctx, slug)
		if err != nil {
			if errors.Is(err, content.ErrNotFound) {
				httpx.WriteError(ctx, w, httpx.NewError("not_found", "page not found", http.StatusNotFound))
				return
			}
			requestctx.Logger(ctx).Error("content page failed", zap.String("slug", slug), zap.Error(err))
			httpx.WriteError(ctx, w, httpx.NewError("content_failed", "page could not be rendered", http.StatusInternalServerError))
			return
		}

		var buf bytes.Buffer
		if err := content.Render(&buf, page); err != nil {
			requestctx.Logger(ctx).Error("content render failed", zap.String("slug", slug), zap.Error(err))
			httpx.WriteError(ctx, w, httpx.NewError("content_failed", "page could not be rendered", http.StatusInternalServerError))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=300")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}
