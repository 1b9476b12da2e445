package session

import (
	"context"
	"sync"
	"time"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/cart"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/observability"
)

const defaultIdleTTL = 2 * time.Hour

// RegistryOptions configures a CartRegistry.
type RegistryOptions struct {
	Images  cart.ImageResolver
	IdleTTL time.Duration
	Clock   func() time.Time
	Metrics *observability.StorefrontMetrics
	Logger  func(context.Context, string, map[string]any)
}

type registryEntry struct {
	cart     *cart.Store
	lastSeen time.Time
}

// CartRegistry holds one in-memory cart per visitor. Carts idle for longer than the idle TTL are
// dropped by Sweep.
type CartRegistry struct {
	images  cart.ImageResolver
	idleTTL time.Duration
	clock   func() time.Time
	metrics *observability.StorefrontMetrics
	logger  func(context.Context, string, map[string]any)

	mu      sync.Mutex
	entries map[string]*registryEntry
	onEvict []func(visitorID string)
	onSweep []func(ctx context.Context, cutoff time.Time)
}

// NewCartRegistry builds an empty registry.
func NewCartRegistry(opts RegistryOptions) *CartRegistry {
	ttl := opts.IdleTTL
	if ttl <= 0 {
		ttl = defaultIdleTTL
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &CartRegistry{
		images:  opts.Images,
		idleTTL: ttl,
		clock:   clock,
		metrics: opts.Metrics,
		logger:  logger,
		entries: map[string]*registryEntry{},
	}
}

// OnEvict registers fn to run for every visitor whose cart is swept.
func (r *CartRegistry) OnEvict(fn func(visitorID string)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.onEvict = append(r.onEvict, fn)
	r.mu.Unlock()
}

// OnSweep registers fn to run on every Sweep with the idle cutoff, so state kept for visitors who
// never opened a cart ages out on the same schedule.
func (r *CartRegistry) OnSweep(fn func(ctx context.Context, cutoff time.Time)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.onSweep = append(r.onSweep, fn)
	r.mu.Unlock()
}

// Cart returns the visitor's cart, creating it on first use, and marks it as active.
func (r *CartRegistry) Cart(ctx context.Context, visitorID string) *cart.Store {
	now := r.clock()
	r.mu.Lock()
	entry, ok := r.entries[visitorID]
	if !ok {
		entry = &registryEntry{cart: cart.NewStore(r.images)}
		r.entries[visitorID] = entry
	}
	entry.lastSeen = now
	r.mu.Unlock()

	if !ok {
		r.metrics.ActiveCarts(ctx, 1)
	}
	return entry.cart
}

// Peek returns the visitor's cart without creating or touching it.
func (r *CartRegistry) Peek(visitorID string) (*cart.Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[visitorID]
	if !ok {
		return nil, false
	}
	return entry.cart, true
}

// Len returns the number of carts held.
func (r *CartRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep drops carts idle for longer than the idle TTL and returns how many were removed.
func (r *CartRegistry) Sweep(ctx context.Context) int {
	cutoff := r.clock().Add(-r.idleTTL)
	r.mu.Lock()
	var evicted []string
	for id, entry := range r.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(r.entries, id)
			evicted = append(evicted, id)
		}
	}
	hooks := append([]func(string){}, r.onEvict...)
	sweepers := append([]func(context.Context, time.Time){}, r.onSweep...)
	r.mu.Unlock()

	for _, sweep := range sweepers {
		sweep(ctx, cutoff)
	}
	if len(evicted) == 0 {
		return 0
	}
	r.metrics.ActiveCarts(ctx, -int64(len(evicted)))
	for _, id := range evicted {
		for _, hook := range hooks {
			hook(id)
		}
	}
	r.logger(ctx, "session.carts_swept", map[string]any{"evicted": len(evicted)})
	return len(evicted)
}

// Run sweeps every interval until ctx is cancelled.
func (r *CartRegistry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = r.idleTTL / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Reset drops every cart and runs the eviction hooks for each.
func (r *CartRegistry) Reset() {
	r.mu.Lock()
	evicted := make([]string, 0, len(r.entries))
	for id := range r.entries {
		evicted = append(evicted, id)
	}
	r.entries = map[string]*registryEntry{}
	hooks := append([]func(string){}, r.onEvict...)
	r.mu.Unlock()

	r.metrics.ActiveCarts(context.Background(), -int64(len(evicted)))
	for _, id := range evicted {
		for _, hook := range hooks {
			hook(id)
		}
	}
}
