package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/content"
)

func TestContentPagesRenderHTML(t *testing.T) {
	h := newHarness(t)

	rr := h.do(t, http.MethodGet, "/shipping-policy", "v1", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html"))

	doc, err := goquery.NewDocumentFromReader(rr.Body)
	require.NoError(t, err)
	assert.Equal(t, content.SlugShippingPolicy, doc.Find("main").AttrOr("data-slug", ""))
	assert.Equal(t, "Terms & Conditions", doc.Find("h1").First().Text())

	rr = h.do(t, http.MethodGet, "/aboutus", "v1", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
}

type failingPages struct{ err error }

func (f failingPages) Page(context.Context, string) (content.Page, error) {
	return content.Page{}, f.err
}

func TestContentPageErrors(t *testing.T) {
	for name, tc := range map[string]struct {
		err    error
		status int
	}{
		"missing": {err: content.ErrNotFound, status: http.StatusNotFound},
		"broken":  {err: assert.AnError, status: http.StatusInternalServerError},
	} {
		t.Run(name, func(t *testing.T) {
			r := chi.NewRouter()
			NewContentHandlers(failingPages{err: tc.err}).Routes(r)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/aboutus", nil))
			assert.Equal(t, tc.status, rr.Code)
		})
	}
}
