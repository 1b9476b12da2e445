package wishlist

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/domain"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/storage"
)

type failingStore struct {
	getErr error
	setErr error
}

func (f failingStore) Get(context.Context, string) ([]byte, error) { return nil, f.getErr }
func (f failingStore) Set(context.Context, string, []byte) error   { return f.setErr }
func (f failingStore) Delete(context.Context, string) error        { return nil }

func item(id int) domain.WishlistItem {
	return domain.WishlistItem{ID: id, Title: "item", Price: decimal.RequireFromString("9.99"), Image: "/placeholder.png"}
}

func TestAddDeduplicatesByID(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemoryStore(), nil)

	if _, err := store.Add(ctx, item(1)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	items, err := store.Add(ctx, item(1))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(items) != 1 || len(store.Get(ctx)) != 1 {
		t.Fatalf("expected a single entry, got %+v", store.Get(ctx))
	}
	if !store.Contains(ctx, 1) || store.Contains(ctx, 2) {
		t.Fatalf("unexpected Contains result")
	}
}

func TestRemoveReturnsRemainder(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemoryStore(), nil)
	for _, id := range []int{1, 2, 3} {
		if _, err := store.Add(ctx, item(id)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	items, err := store.Remove(ctx, 2)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(items) != 2 || items[0].ID != 1 || items[1].ID != 3 {
		t.Fatalf("unexpected remainder %+v", items)
	}
	if got := store.Get(ctx); len(got) != 2 {
		t.Fatalf("expected persisted remainder, got %+v", got)
	}
	if !items[0].Price.Equal(decimal.RequireFromString("9.99")) {
		t.Fatalf("price did not survive persistence: %s", items[0].Price)
	}
}

func TestGetTreatsCorruptDataAsEmpty(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	if err := backend.Set(ctx, storage.KeyWishlist, []byte("{not json")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var events []string
	store := NewStore(backend, func(_ context.Context, event string, _ map[string]any) {
		events = append(events, event)
	})

	if got := store.Get(ctx); len(got) != 0 {
		t.Fatalf("expected empty list, got %+v", got)
	}
	if len(events) != 1 || events[0] != "wishlist.corrupt" {
		t.Fatalf("expected corruption to be logged, got %v", events)
	}

	items, err := store.Add(ctx, item(4))
	if err != nil || len(items) != 1 {
		t.Fatalf("expected add to recover from corrupt state, got %+v (%v)", items, err)
	}
}

func TestGetNullIsEmpty(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	_ = backend.Set(ctx, storage.KeyWishlist, []byte("null"))
	if got := NewStore(backend, nil).Get(ctx); got == nil || len(got) != 0 {
		t.Fatalf("expected non-nil empty list, got %#v", got)
	}
}

func TestBackendFailures(t *testing.T) {
	ctx := context.Background()
	store := NewStore(failingStore{getErr: errors.New("down"), setErr: errors.New("down")}, nil)

	if got := store.Get(ctx); len(got) != 0 {
		t.Fatalf("expected empty list on read failure")
	}
	if _, err := store.Add(ctx, item(1)); err == nil {
		t.Fatalf("expected persist error")
	}
}

// flakyStore fails the next failReads reads and otherwise delegates to Store.
type flakyStore struct {
	storage.Store
	failReads int
	writes    int
}

func (f *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failReads > 0 {
		f.failReads--
		return nil, errors.New("unavailable")
	}
	return f.Store.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	f.writes++
	return f.Store.Set(ctx, key, value)
}

func TestWritesKeepListAfterTransientReadFailure(t *testing.T) {
	ctx := context.Background()
	backend := &flakyStore{Store: storage.NewMemoryStore()}
	store := NewStore(backend, nil)
	for _, id := range []int{1, 2, 3} {
		if _, err := store.Add(ctx, item(id)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	writes := backend.writes

	backend.failReads = 1
	if _, err := store.Add(ctx, item(4)); err == nil {
		t.Fatalf("expected Add to surface the read failure")
	}
	backend.failReads = 1
	if _, err := store.Remove(ctx, 1); err == nil {
		t.Fatalf("expected Remove to surface the read failure")
	}
	if backend.writes != writes {
		t.Fatalf("expected no writes after failed reads, got %d", backend.writes-writes)
	}

	if got := store.Get(ctx); len(got) != 3 {
		t.Fatalf("wishlist lost entries: want 3, got %+v", got)
	}
	items, err := store.Add(ctx, item(4))
	if err != nil || len(items) != 4 {
		t.Fatalf("expected Add to succeed once reads recover, got %+v (%v)", items, err)
	}
}
