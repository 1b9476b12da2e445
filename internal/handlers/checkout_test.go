package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/services"
)

func TestCheckoutSummary(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusOK, h.postForm(t, http.MethodPost, "/cart/items", "v1", "id=2").Code)

	rr := h.do(t, http.MethodGet, "/checkout", "v1", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Count          int               `json:"count"`
		Total          string            `json:"total"`
		Authenticated  bool              `json:"authenticated"`
		TransferMethod string            `json:"transferMethod"`
		Conversions    []priceConversion `json:"conversions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "19.99", body.Total)
	assert.False(t, body.Authenticated)
	assert.Equal(t, services.TransferMethod, body.TransferMethod)
	assert.NotEmpty(t, body.Conversions)
}

func TestCheckoutRequiresLogin(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusOK, h.postForm(t, http.MethodPost, "/cart/items", "v1", "id=2").Code)

	rr := h.postForm(t, http.MethodPost, "/checkout", "v1", "name=Jane&email=jane%40example.com&address=1+Main+St")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, h.publisher.events)
}

func TestCheckoutEmptyCartAndMissingFields(t *testing.T) {
	h := newHarness(t)
	h.login(t, "v1")

	rr := h.postForm(t, http.MethodPost, "/checkout", "v1", "name=Jane&email=jane%40example.com&address=1+Main+St")
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, services.MsgEmptyCart, errorBody(t, rr.Body.Bytes())["message"])

	require.Equal(t, http.StatusOK, h.postForm(t, http.MethodPost, "/cart/items", "v1", "id=2").Code)
	rr = h.postForm(t, http.MethodPost, "/checkout", "v1", "name=Jane&email=&address=")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, services.MsgRequiredFields, errorBody(t, rr.Body.Bytes())["message"])
}

func TestCheckoutPlacesOrderAndClearsCart(t *testing.T) {
	h := newHarness(t)
	h.login(t, "v1")
	require.Equal(t, http.StatusOK, h.postForm(t, http.MethodPost, "/cart/items", "v1", "id=2").Code)
	require.Equal(t, http.StatusOK, h.postForm(t, http.MethodPost, "/cart/items", "v1", "id=5").Code)

	rr := h.postForm(t, http.MethodPost, "/checkout", "v1", "name=Jane&email=jane%40example.com&address=1+Main+St")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var confirmation services.OrderConfirmation
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &confirmation))
	assert.NotEmpty(t, confirmation.OrderID)
	assert.Equal(t, "31.99", confirmation.Total)
	assert.Len(t, confirmation.Items, 2)

	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, "v1", h.publisher.events[0].VisitorID)
	assert.Equal(t, confirmation.OrderID, h.publisher.events[0].OrderID)

	cart := decodeCart(t, h.do(t, http.MethodGet, "/cart", "v1", nil, "").Body.Bytes())
	assert.Empty(t, cart.Items)
}

func TestCheckoutPublishFailureKeepsCart(t *testing.T) {
	h := newHarness(t)
	h.login(t, "v1")
	h.publisher.err = assert.AnError
	require.Equal(t, http.StatusOK, h.postForm(t, http.MethodPost, "/cart/items", "v1", "id=2").Code)

	rr := h.postForm(t, http.MethodPost, "/checkout", "v1", "name=Jane&email=jane%40example.com&address=1+Main+St")
	require.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, services.MsgOrderFailed, errorBody(t, rr.Body.Bytes())["message"])

	cart := decodeCart(t, h.do(t, http.MethodGet, "/cart", "v1", nil, "").Body.Bytes())
	assert.Equal(t, 1, cart.Count)
}
