package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/rifqisaleh/shopsmart-rifqi/internal/platform/observability"

// StorefrontMetrics groups the counters recorded by the cart and listing flows.
type StorefrontMetrics struct {
	cartMutations   metric.Int64Counter
	listingFailures metric.Int64Counter
	staleResponses  metric.Int64Counter
	activeCarts     metric.Int64UpDownCounter
}

// NewStorefrontMetrics registers instruments on meter, or on the global provider when meter is nil.
// Instruments that fail to register become no-ops.
func NewStorefrontMetrics(meter metric.Meter) *StorefrontMetrics {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}
	m := &StorefrontMetrics{}
	m.cartMutations, _ = meter.Int64Counter("storefront.cart.mutations",
		metric.WithDescription("Cart add, update and remove operations"))
	m.listingFailures, _ = meter.Int64Counter("storefront.listing.fetch_failures",
		metric.WithDescription("Product or category fetches that failed while building a listing"))
	m.staleResponses, _ = meter.Int64Counter("storefront.listing.stale_responses",
		metric.WithDescription("Listing responses dropped because a newer request already resolved"))
	m.activeCarts, _ = meter.Int64UpDownCounter("storefront.cart.active",
		metric.WithDescription("Visitor carts currently held in memory"))
	return m
}

// CartMutation records one cart operation.
func (m *StorefrontMetrics) CartMutation(ctx context.Context, op string) {
	if m == nil || m.cartMutations == nil {
		return
	}
	m.cartMutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// ListingFailure records a failed upstream fetch for resource ("products" or "categories").
func (m *StorefrontMetrics) ListingFailure(ctx context.Context, resource string) {
	if m == nil || m.listingFailures == nil {
		return
	}
	m.listingFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("resource", resource)))
}

// StaleResponse records a dropped out-of-order listing response.
func (m *StorefrontMetrics) StaleResponse(ctx context.Context) {
	if m == nil || m.staleResponses == nil {
		return
	}
	m.staleResponses.Add(ctx, 1)
}

// ActiveCarts adjusts the in-memory cart gauge by delta.
func (m *StorefrontMetrics) ActiveCarts(ctx context.Context, delta int64) {
	if m == nil || m.activeCarts == nil {
		return
	}
	m.activeCarts.Add(ctx, delta)
}
